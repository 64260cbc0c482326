// Package wire is the JSON frame format spoken on the chat websocket.
// Every frame is an object carrying an "event" discriminator.
package wire

import (
	"chat-lounge/auth"
	"chat-lounge/domain"
	"chat-lounge/domain/event"
	"chat-lounge/errors"
	"encoding/json"
	"fmt"

	"github.com/samber/lo"
)

const (
	StatusEvent      = "status"
	ChatMessageEvent = "chat_message"
	TypingEvent      = "typing"
	HistoryEvent     = "history"
)

// Inbound is what a client sends.
type Inbound struct {
	Event string `json:"event"`
	Text  string `json:"text,omitempty"`
}

type Status struct {
	Event    string `json:"event"`
	Kind     string `json:"kind"`
	Username string `json:"username"`
	Text     string `json:"text"`
}

type ChatMessage struct {
	Event string `json:"event"`
	User  string `json:"user"`
	Text  string `json:"text"`
	Time  string `json:"time"`
}

type Typing struct {
	Event    string `json:"event"`
	Username string `json:"username"`
}

type History struct {
	Event    string        `json:"event"`
	Messages []ChatMessage `json:"messages"`
}

// Outbound is the union of every server frame, used by clients to decode.
type Outbound struct {
	Event    string        `json:"event"`
	Kind     string        `json:"kind,omitempty"`
	Username string        `json:"username,omitempty"`
	User     string        `json:"user,omitempty"`
	Text     string        `json:"text,omitempty"`
	Time     string        `json:"time,omitempty"`
	Messages []ChatMessage `json:"messages,omitempty"`
}

// Decode turns a client frame into a command.
// Chat text is validated against maxLength characters.
func Decode(data []byte, maxLength int) (domain.Command, error) {
	var in Inbound
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidFrame, err)
	}

	switch in.Event {
	case ChatMessageEvent:
		if err := auth.ValidateChatText(in.Text, maxLength); err != nil {
			return nil, err
		}
		return domain.PostMessageCommand{Text: in.Text}, nil
	case TypingEvent:
		return domain.TypingCommand{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownEvent, in.Event)
	}
}

// Encode renders a domain event as a server frame.
func Encode(e event.DomainEvent) ([]byte, error) {
	return json.Marshal(ToFrame(e))
}

func ToFrame(e event.DomainEvent) any {
	switch evt := e.(type) {
	case event.UserJoined:
		return Status{Event: StatusEvent, Kind: string(evt.Kind()), Username: evt.Username.String(), Text: evt.Text()}
	case event.UserLeft:
		return Status{Event: StatusEvent, Kind: string(evt.Kind()), Username: evt.Username.String(), Text: evt.Text()}
	case event.UserTyping:
		return Typing{Event: TypingEvent, Username: evt.Username.String()}
	case event.MessagePosted:
		return ToChatMessage(evt.Message)
	case event.HistoryReplayed:
		return History{Event: HistoryEvent, Messages: ToChatMessages(evt.Messages)}
	default:
		return Outbound{Event: string(e.Kind())}
	}
}

func ToChatMessage(m domain.ChatMessage) ChatMessage {
	return ChatMessage{Event: ChatMessageEvent, User: m.Author.String(), Text: m.Text, Time: m.Time()}
}

func ToChatMessages(messages []domain.ChatMessage) []ChatMessage {
	return lo.Map(messages, func(item domain.ChatMessage, _ int) ChatMessage {
		return ToChatMessage(item)
	})
}
