// Package domain contains core concepts of the chat system.
// This file defines Participant entities and related invariants.
// No runtime, network, or UI logic should be added here.
package domain

import "time"

// Username is the authenticated identity of a participant.
// Several live connections may share the same username.
type Username string

func (u Username) String() string { return string(u) }

// ConnectionID identifies one live transport session.
type ConnectionID string

func (c ConnectionID) String() string { return string(c) }

// Identity is what the user directory hands back after a successful login.
// Token is opaque to the session core.
type Identity struct {
	Username Username
	Token    string
}

// IsZero reports whether the identity carries no username.
func (i Identity) IsZero() bool {
	return i.Username == ""
}

// Connection is owned by the connection registry for as long as the transport lives.
type Connection struct {
	ID          ConnectionID
	Username    Username
	ConnectedAt time.Time
}

func NewConnection(id ConnectionID, username Username, at time.Time) Connection {
	return Connection{ID: id, Username: username, ConnectedAt: at}
}
