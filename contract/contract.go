//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-lounge/domain"
	"chat-lounge/domain/event"
	"context"
	"iter"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink is the outbound side of one connection.
// Consume must not block on network I/O.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// QueueReporter is implemented by sinks backed by a bounded queue.
type QueueReporter interface {
	Backlog() (length, capacity int)
}

type IRegistry interface {
	Register(conn domain.Connection, sink EventSink) error
	Unregister(id domain.ConnectionID) (domain.Username, error)
	Lookup(id domain.ConnectionID) (domain.Username, error)
	AllConnections() iter.Seq2[domain.Connection, EventSink]
	Count() int
}

type IBroadcaster interface {
	Broadcast(ctx context.Context, e event.DomainEvent, exclude domain.ConnectionID) int
}

type IMessageLog interface {
	Append(message domain.ChatMessage) domain.Entry
	Persist(ctx context.Context, entry domain.Entry) error
	All() []domain.ChatMessage
	Restore(ctx context.Context) error
}
