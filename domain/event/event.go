package event

import (
	"chat-lounge/domain"
	"fmt"
)

type Kind string

const (
	UserJoinedKind      Kind = "joined"
	UserLeftKind        Kind = "left"
	UserTypingKind      Kind = "typing"
	MessagePostedKind   Kind = "chat_message"
	HistoryReplayedKind Kind = "history"
)

// DomainEvent is anything the broadcast hub can push to a connection.
type DomainEvent interface {
	Kind() Kind
}

type UserJoined struct {
	Username domain.Username
}

func (UserJoined) Kind() Kind { return UserJoinedKind }

func (e UserJoined) Text() string { return fmt.Sprintf("%s joined", e.Username) }

type UserLeft struct {
	Username domain.Username
}

func (UserLeft) Kind() Kind { return UserLeftKind }

func (e UserLeft) Text() string { return fmt.Sprintf("%s left", e.Username) }

// UserTyping is never persisted and never echoed to its origin.
type UserTyping struct {
	Username domain.Username
}

func (UserTyping) Kind() Kind { return UserTypingKind }

type MessagePosted struct {
	Message domain.ChatMessage
}

func (MessagePosted) Kind() Kind { return MessagePostedKind }

// HistoryReplayed carries the message log snapshot a connection receives
// before any live event.
type HistoryReplayed struct {
	Messages []domain.ChatMessage
}

func (HistoryReplayed) Kind() Kind { return HistoryReplayedKind }
