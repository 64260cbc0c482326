// Package domain contains core concepts of the chat system.
// This file defines Message events and related rules.
// Messages are immutable and validated by the domain.
package domain

import (
	"time"
)

// TimeLayout is the minute-resolution clock shown next to every message.
const TimeLayout = "15:04"

// ChatMessage represents an immutable chat line.
type ChatMessage struct {
	Author Username
	Text   string
	At     time.Time
}

// NewChatMessage truncates the timestamp to the minute.
func NewChatMessage(author Username, text string, at time.Time) ChatMessage {
	return ChatMessage{
		Author: author,
		Text:   text,
		At:     at.Truncate(time.Minute),
	}
}

// Time returns the HH:MM rendering of the message timestamp.
func (m ChatMessage) Time() string {
	return m.At.Format(TimeLayout)
}

// Entry is a message as stored in the message log, Seq starts at 1.
type Entry struct {
	Seq     uint64
	Message ChatMessage
}
