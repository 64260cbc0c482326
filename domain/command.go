package domain

// Command is an inbound event sent by a connected client.
type Command interface {
	Kind() CommandKind
}

type CommandKind string

const (
	ChatMessageCommandKind CommandKind = "chat_message"
	TypingCommandKind      CommandKind = "typing"
)

type PostMessageCommand struct {
	Text string
}

func (PostMessageCommand) Kind() CommandKind { return ChatMessageCommandKind }

type TypingCommand struct{}

func (TypingCommand) Kind() CommandKind { return TypingCommandKind }
