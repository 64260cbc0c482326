// Package projection builds the local chat timeline from posted messages.
// Handles ordering and the optional durable copy of the timeline.
// Does not emit events or interact with the transport directly.
package projection

import (
	"chat-lounge/contract"
	"chat-lounge/domain"
	"chat-lounge/errors"
	"chat-lounge/repositories"
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
)

var _ contract.IMessageLog = (*MessageLog)(nil)

// MessageLog is the ordered, append-only history of the room.
// Read order is insertion order, nothing is reordered or deduplicated.
type MessageLog struct {
	mu         sync.RWMutex
	entries    []domain.Entry
	lastSeq    uint64
	repository repositories.IMessageRepository
}

// NewMessageLog builds an in-memory log, durable when repository is not nil.
func NewMessageLog(repository repositories.IMessageRepository) *MessageLog {
	return &MessageLog{repository: repository}
}

// Append records the message in memory and hands back its sequenced entry.
func (l *MessageLog) Append(message domain.ChatMessage) domain.Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.lastSeq++
	entry := domain.Entry{Seq: l.lastSeq, Message: message}
	l.entries = append(l.entries, entry)
	return entry
}

// Persist forwards the entry to the durable log.
// A failure leaves the in-memory copy untouched and is reported as ErrStorage.
func (l *MessageLog) Persist(_ context.Context, entry domain.Entry) error {
	if l.repository == nil {
		return nil
	}
	if err := l.repository.StoreMessage(repositories.FromEntry(entry)); err != nil {
		return fmt.Errorf("%w: seq %d: %v", errors.ErrStorage, entry.Seq, err)
	}
	return nil
}

// All returns a copy of the whole history, oldest first.
func (l *MessageLog) All() []domain.ChatMessage {
	l.mu.RLock()
	defer l.mu.RUnlock()

	res := make([]domain.ChatMessage, 0, len(l.entries))
	for _, e := range l.entries {
		res = append(res, e.Message)
	}
	return res
}

func (l *MessageLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Restore loads the durable log, it is meant to run once before any connection is accepted.
// Later appends continue the stored sequence.
func (l *MessageLog) Restore(_ context.Context) error {
	if l.repository == nil {
		return nil
	}
	messages, err := l.repository.GetMessages()
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	entries := repositories.ToEntries(messages)
	slices.SortStableFunc(entries, func(a, b domain.Entry) int {
		return cmp.Compare(a.Seq, b.Seq)
	})

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = entries
	l.lastSeq = 0
	if n := len(entries); n > 0 {
		l.lastSeq = entries[n-1].Seq
	}
	return nil
}
