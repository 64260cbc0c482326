package runtime

import (
	"chat-lounge/domain"
	"chat-lounge/domain/event"
	"chat-lounge/errors"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type Sink struct {
	name string
}

func (s Sink) Consume(_ context.Context, _ event.DomainEvent) error {
	return nil
}

func newConnection(username string) domain.Connection {
	return domain.NewConnection(domain.ConnectionID(uuid.NewString()), domain.Username(username), time.Now())
}

func collect(registry *Registry) map[domain.ConnectionID]domain.Username {
	res := make(map[domain.ConnectionID]domain.Username)
	for conn := range registry.AllConnections() {
		res[conn.ID] = conn.Username
	}
	return res
}

func TestRegistry_Register_One_Connection(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	conn := newConnection("alice")
	sink := Sink{name: "alice"}

	// Given no user is connected
	req.Zero(registry.Count())

	// When a connection is registered
	err := registry.Register(conn, sink)

	// Then it is online and can be looked up
	req.NoError(err)
	req.Equal(1, registry.Count())
	username, err := registry.Lookup(conn.ID)
	req.NoError(err)
	req.Equal(domain.Username("alice"), username)

	for c, s := range registry.AllConnections() {
		req.Equal(conn, c)
		req.Equal(sink, s)
	}
}

func TestRegistry_Register_Duplicate_Connection(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	conn := newConnection("alice")

	// Given a registered connection
	req.NoError(registry.Register(conn, Sink{}))

	// When the same connection id is registered again
	err := registry.Register(domain.NewConnection(conn.ID, "bob", time.Now()), Sink{})

	// Then the registration is refused and the first owner is kept
	req.ErrorIs(err, errors.ErrDuplicateConnection)
	username, err := registry.Lookup(conn.ID)
	req.NoError(err)
	req.Equal(domain.Username("alice"), username)
}

func TestRegistry_Register_Empty_Username(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	err := registry.Register(newConnection(""), Sink{})

	req.ErrorIs(err, errors.ErrEmptyUsername)
	req.Zero(registry.Count())
}

func TestRegistry_Same_Username_Multiple_Connections(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	first := newConnection("alice")
	second := newConnection("alice")

	// When the same user opens two connections
	req.NoError(registry.Register(first, Sink{}))
	req.NoError(registry.Register(second, Sink{}))

	// Then both are tracked independently
	req.Equal(2, registry.Count())
	req.Len(collect(registry), 2)
}

func TestRegistry_Unregister_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	conn := newConnection("bob")
	req.NoError(registry.Register(conn, Sink{}))

	// When the connection is unregistered twice
	username, err := registry.Unregister(conn.ID)
	req.NoError(err)
	req.Equal(domain.Username("bob"), username)

	username, err = registry.Unregister(conn.ID)

	// Then the second call reports not found without side effects
	req.ErrorIs(err, errors.ErrNotFound)
	req.Empty(username)
	req.Zero(registry.Count())

	// And lookup reports not found
	_, err = registry.Lookup(conn.ID)
	req.ErrorIs(err, errors.ErrNotFound)
}

func TestRegistry_Id_Reused_After_Teardown(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	conn := newConnection("alice")

	req.NoError(registry.Register(conn, Sink{}))
	_, err := registry.Unregister(conn.ID)
	req.NoError(err)

	req.NoError(registry.Register(domain.NewConnection(conn.ID, "clara", time.Now()), Sink{}))
	username, err := registry.Lookup(conn.ID)
	req.NoError(err)
	req.Equal(domain.Username("clara"), username)
}

func TestRegistry_AllConnections_Is_A_Snapshot(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	alice := newConnection("alice")
	bob := newConnection("bob")
	req.NoError(registry.Register(alice, Sink{}))
	req.NoError(registry.Register(bob, Sink{}))

	// When the registry is mutated while ranging
	seen := 0
	for conn := range registry.AllConnections() {
		seen++
		_, _ = registry.Unregister(conn.ID)
		req.NoError(registry.Register(newConnection("late"), Sink{}))
	}

	// Then the iteration only covers the entries present at call time
	req.Equal(2, seen)

	// And a new call restarts with a fresh snapshot
	req.Len(collect(registry), 2)
	for _, username := range collect(registry) {
		req.Equal(domain.Username("late"), username)
	}
}

func TestRegistry_AllConnections_Early_Stop(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	for i := 0; i < 5; i++ {
		req.NoError(registry.Register(newConnection(fmt.Sprintf("user_%d", i)), Sink{}))
	}

	seen := 0
	for range registry.AllConnections() {
		seen++
		if seen == 2 {
			break
		}
	}
	req.Equal(2, seen)
}

func TestRegistry_Concurrent_Register_Unregister(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	var wg sync.WaitGroup

	// When many goroutines register and unregister concurrently
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conn := newConnection(fmt.Sprintf("user_%d", i))
			if err := registry.Register(conn, Sink{}); err != nil {
				return
			}
			for c := range registry.AllConnections() {
				// Then no torn entry is ever observed
				if c.ID == "" || c.Username == "" {
					panic("torn registry entry")
				}
			}
			if i%2 == 0 {
				_, _ = registry.Unregister(conn.ID)
			}
		}(i)
	}
	wg.Wait()

	req.Equal(25, registry.Count())
	ids := collect(registry)
	req.Len(ids, 25)
}
