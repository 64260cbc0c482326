package runtime

import (
	"chat-lounge/contract"
	"chat-lounge/domain"
	"chat-lounge/errors"
	"iter"
	"sync"
)

var _ contract.IRegistry = (*Registry)(nil)

type session struct {
	conn domain.Connection
	sink contract.EventSink
}

// Registry is the source of truth for who is online.
// It maps a live connection id to its username and outbound sink.
type Registry struct {
	mu       sync.RWMutex
	sessions map[domain.ConnectionID]session
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[domain.ConnectionID]session),
	}
}

// Register inserts a live connection.
// A connection id can only be reused once the previous holder has been unregistered.
func (r *Registry) Register(conn domain.Connection, sink contract.EventSink) error {
	if conn.Username == "" {
		return errors.ErrEmptyUsername
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[conn.ID]; ok {
		return errors.ErrDuplicateConnection
	}
	r.sessions[conn.ID] = session{conn: conn, sink: sink}
	return nil
}

// Unregister removes the connection and returns the username it was bound to.
// Calling it twice is safe, the second call reports ErrNotFound.
func (r *Registry) Unregister(id domain.ConnectionID) (domain.Username, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return "", errors.ErrNotFound
	}
	delete(r.sessions, id)
	return s.conn.Username, nil
}

func (r *Registry) Lookup(id domain.ConnectionID) (domain.Username, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return "", errors.ErrNotFound
	}
	return s.conn.Username, nil
}

// AllConnections yields the connections registered at call time.
// The snapshot is copied under the read lock, iteration happens without it,
// so a consumer may call back into the registry while ranging.
func (r *Registry) AllConnections() iter.Seq2[domain.Connection, contract.EventSink] {
	return func(yield func(domain.Connection, contract.EventSink) bool) {
		for _, s := range r.snapshot() {
			if !yield(s.conn, s.sink) {
				return
			}
		}
	}
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) snapshot() []session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res := make([]session, 0, len(r.sessions))
	for _, s := range r.sessions {
		res = append(res, s)
	}
	return res
}
