//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"chat-lounge/domain"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
)

const messagePrefix = "msg:"

type IMessageRepository interface {
	StoreMessage(message DiskMessage) error
	GetMessages() ([]DiskMessage, error)
}

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) MessageRepository {
	return MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

type DiskMessage struct {
	Seq    uint64    `json:"seq"`
	Author string    `json:"author"`
	Text   string    `json:"text"`
	At     time.Time `json:"at"`
}

// StoreMessage persists a message in BadgerDB.
// The key is formatted as "msg:{seq_padded}" so that the lexicographical
// order of keys is the arrival order of the message log, whatever the order
// in which concurrent writes reach the database.
func (m MessageRepository) StoreMessage(message DiskMessage) error {
	bytes, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(message.Seq), bytes)
	})
}

// GetMessages returns the stored log in arrival order.
// When limitMessages is set only the most recent messages are kept.
func (m MessageRepository) GetMessages() ([]DiskMessage, error) {
	var diskMessages []DiskMessage
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(messagePrefix)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				var message DiskMessage
				if err := json.Unmarshal(value, &message); err != nil {
					return err
				}
				diskMessages = append(diskMessages, message)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if m.limitMessages != nil && len(diskMessages) > *m.limitMessages {
		m.log.Debug(fmt.Sprintf("Keeping the last %d of %d messages", *m.limitMessages, len(diskMessages)))
		diskMessages = diskMessages[len(diskMessages)-*m.limitMessages:]
	}
	return diskMessages, nil
}

func messageKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%019d", messagePrefix, seq))
}

func FromEntry(entry domain.Entry) DiskMessage {
	return DiskMessage{
		Seq:    entry.Seq,
		Author: entry.Message.Author.String(),
		Text:   entry.Message.Text,
		At:     entry.Message.At,
	}
}

func ToEntries(messages []DiskMessage) []domain.Entry {
	return lo.Map(messages, func(item DiskMessage, _ int) domain.Entry {
		return domain.Entry{
			Seq: item.Seq,
			Message: domain.ChatMessage{
				Author: domain.Username(item.Author),
				Text:   item.Text,
				At:     item.At,
			},
		}
	})
}
