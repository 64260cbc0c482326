package runtime

import (
	"chat-lounge/contract"
	"chat-lounge/domain"
	"chat-lounge/errors"
	"context"
	"sync"
	"time"
)

// Session is the server side of one connection.
//
// Connecting -> Active on a successful Open, anything -> Closed on Close.
// Commands are only honored while Active, the others are ignored.
type Session struct {
	mu           sync.Mutex
	id           domain.ConnectionID
	state        domain.SessionState
	sink         contract.EventSink
	orchestrator *Orchestrator
}

func newSession(o *Orchestrator, id domain.ConnectionID, sink contract.EventSink) *Session {
	return &Session{id: id, state: domain.Connecting, sink: sink, orchestrator: o}
}

func (s *Session) ID() domain.ConnectionID { return s.id }

func (s *Session) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Open activates the session for identity.
// An empty identity closes the session and reports ErrAuthFailure,
// nothing is registered and nobody is notified.
func (s *Session) Open(ctx context.Context, identity domain.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.Connecting {
		return errors.ErrSessionClosed
	}
	if identity.IsZero() {
		s.state = domain.Closed
		return errors.ErrAuthFailure
	}

	conn := domain.NewConnection(s.id, identity.Username, time.Now().UTC())
	if err := s.orchestrator.activate(ctx, conn, s.sink); err != nil {
		s.state = domain.Closed
		return err
	}
	s.state = domain.Active
	return nil
}

// Handle applies one inbound command.
func (s *Session) Handle(ctx context.Context, cmd domain.Command) {
	if s.State() != domain.Active {
		s.orchestrator.log.Debug("Ignoring command on inactive session",
			"connection_id", s.id, "command", cmd.Kind())
		return
	}

	switch c := cmd.(type) {
	case domain.PostMessageCommand:
		s.orchestrator.post(ctx, s.id, c.Text)
	case domain.TypingCommand:
		s.orchestrator.typing(ctx, s.id)
	default:
		s.orchestrator.log.Debug("Ignoring unknown command", "connection_id", s.id, "command", cmd.Kind())
	}
}

// Close is safe to call any number of times, from any state.
// Only the call that actually unregisters the connection announces the departure.
func (s *Session) Close(ctx context.Context) {
	s.mu.Lock()
	s.state = domain.Closed
	s.mu.Unlock()

	s.orchestrator.disconnect(ctx, s.id)
}
