package domain

// SessionState is the lifecycle position of one connection.
type SessionState int

const (
	Connecting SessionState = iota
	Active
	Closed
)

func (s SessionState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Active:
		return "active"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}
