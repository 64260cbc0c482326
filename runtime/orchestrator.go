// Package runtime runs the chat room: who is online, in which order events
// reach them, and the lifecycle of every connection.
package runtime

import (
	"chat-lounge/contract"
	"chat-lounge/domain"
	"chat-lounge/domain/event"
	"chat-lounge/moderation"
	"chat-lounge/observability"
	"context"
	"embed"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

//go:embed censored/*
var censoredFolder embed.FS

// Orchestrator sequences every state transition of the room.
//
// The sequencer lock is held while the registry changes and while the
// matching broadcast is submitted. Sinks only enqueue, so the lock is never
// held across network I/O, and every recipient observes events in the same
// order they were submitted. Durable writes happen after the lock is released.
type Orchestrator struct {
	mu                sync.Mutex
	log               *slog.Logger
	supervisor        contract.ISupervisor
	registry          contract.IRegistry
	hub               contract.IBroadcaster
	messages          contract.IMessageLog
	metrics           *observability.ChatMetrics
	moderator         atomic.Pointer[moderation.Moderator]
	moderationEnabled bool
	charReplacement   rune
	clock             func() time.Time
}

func NewOrchestrator(log *slog.Logger, supervisor contract.ISupervisor,
	registry contract.IRegistry, hub contract.IBroadcaster, messages contract.IMessageLog,
	metrics *observability.ChatMetrics, moderationEnabled bool, charReplacement rune) *Orchestrator {
	return &Orchestrator{
		log:               log,
		supervisor:        supervisor,
		registry:          registry,
		hub:               hub,
		messages:          messages,
		metrics:           metrics,
		moderationEnabled: moderationEnabled,
		charReplacement:   charReplacement,
		clock:             time.Now,
	}
}

// Add registers long-lived workers started with the orchestrator.
func (o *Orchestrator) Add(workers ...contract.Worker) {
	o.supervisor.Add(workers...)
}

// Prepare restores the history and builds the moderator.
// It must complete before the first connection is accepted.
func (o *Orchestrator) Prepare(ctx context.Context) error {
	if err := o.messages.Restore(ctx); err != nil {
		return err
	}
	o.log.Info(fmt.Sprintf("%d messages restored", len(o.messages.All())))

	if !o.moderationEnabled {
		return nil
	}
	moderator, err := o.prepareModeration("censored")
	if err != nil {
		return err
	}
	o.moderator.Store(moderator)
	return nil
}

// Start prepares the room then runs the supervised workers until ctx is done.
func (o *Orchestrator) Start(ctx context.Context) error {
	if err := o.Prepare(ctx); err != nil {
		return err
	}
	o.log.Info("Starting orchestrator and all supervised workers")
	o.supervisor.Run(ctx)
	return nil
}

func (o *Orchestrator) Stop() {
	o.log.Info("Requesting orchestrator shutdown")
	o.supervisor.Stop()
}

// NewSession binds a fresh connection id to the outbound sink of a transport.
func (o *Orchestrator) NewSession(sink contract.EventSink) *Session {
	return newSession(o, domain.ConnectionID(uuid.NewString()), sink)
}

func (o *Orchestrator) History() []domain.ChatMessage {
	return o.messages.All()
}

func (o *Orchestrator) Online() int {
	return o.registry.Count()
}

func (o *Orchestrator) prepareModeration(dir string) (*moderation.Moderator, error) {
	data, err := NewCensoredLoader(censoredFolder).LoadAll(dir)
	if err != nil {
		return nil, err
	}

	o.log.Info(fmt.Sprintf("%d censored files loaded [%s]",
		len(data.Languages), strings.Join(data.Languages, ",")))
	o.log.Info(fmt.Sprintf("%d unique censored words loaded", len(data.Words)))

	moderator, err := moderation.NewModerator(data.Words, o.charReplacement, o.log)
	if err != nil {
		return nil, err
	}
	return &moderator, nil
}

// activate replays the history to the new sink, registers the connection
// and announces it to everyone, the newcomer included.
// The replay is queued first so that it precedes any live event.
func (o *Orchestrator) activate(ctx context.Context, conn domain.Connection, sink contract.EventSink) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := sink.Consume(ctx, event.HistoryReplayed{Messages: o.messages.All()}); err != nil {
		return err
	}
	if err := o.registry.Register(conn, sink); err != nil {
		return err
	}
	o.hub.Broadcast(ctx, event.UserJoined{Username: conn.Username}, "")
	o.metrics.ConnectionOpened()
	o.log.Info("User joined", "connection_id", conn.ID, "username", conn.Username)
	return nil
}

// post appends a chat message and delivers it to every connection, the author included.
// A connection that is no longer registered is ignored.
func (o *Orchestrator) post(ctx context.Context, id domain.ConnectionID, text string) {
	text = o.censor(id, text)

	o.mu.Lock()
	username, err := o.registry.Lookup(id)
	if err != nil {
		o.mu.Unlock()
		o.log.Debug("Dropping message from unknown connection", "connection_id", id)
		return
	}
	entry := o.messages.Append(domain.NewChatMessage(username, text, o.clock()))
	o.hub.Broadcast(ctx, event.MessagePosted{Message: entry.Message}, "")
	o.mu.Unlock()

	o.metrics.MessagePosted()
	if err := o.messages.Persist(ctx, entry); err != nil {
		o.metrics.StorageFailed()
		o.log.Error("Message not persisted", "seq", entry.Seq, "username", username, "error", err)
	}
}

// typing notifies everyone but the typist.
func (o *Orchestrator) typing(ctx context.Context, id domain.ConnectionID) {
	o.mu.Lock()
	defer o.mu.Unlock()

	username, err := o.registry.Lookup(id)
	if err != nil {
		o.log.Debug("Dropping typing from unknown connection", "connection_id", id)
		return
	}
	o.hub.Broadcast(ctx, event.UserTyping{Username: username}, id)
	o.metrics.TypingRelayed()
}

// disconnect removes the connection, a departure is announced only once.
func (o *Orchestrator) disconnect(ctx context.Context, id domain.ConnectionID) {
	o.mu.Lock()
	defer o.mu.Unlock()

	username, err := o.registry.Unregister(id)
	if err != nil {
		return
	}
	o.hub.Broadcast(ctx, event.UserLeft{Username: username}, "")
	o.metrics.ConnectionClosed()
	o.log.Info("User left", "connection_id", id, "username", username)
}

func (o *Orchestrator) censor(id domain.ConnectionID, text string) string {
	moderator := o.moderator.Load()
	if moderator == nil {
		return text
	}

	censored, words := moderator.Censor(text)
	if len(words) > 0 {
		o.metrics.Censored()
		o.log.Debug("Message censored",
			"connection_id", id,
			"lang", moderation.Language(text),
			"words", len(words))
	}
	return censored
}
