package services

import (
	"chat-lounge/contract"
	"chat-lounge/domain"
	"chat-lounge/runtime"
)

type IChatService interface {
	Connect(sink contract.EventSink) *runtime.Session
	History() []domain.ChatMessage
	Online() int
}

// ChatService is what the transport layer sees of the room.
type ChatService struct {
	orchestrator *runtime.Orchestrator
}

func NewChatService(o *runtime.Orchestrator) *ChatService {
	return &ChatService{orchestrator: o}
}

// Connect returns a session in the Connecting state, Open activates it.
func (s *ChatService) Connect(sink contract.EventSink) *runtime.Session {
	return s.orchestrator.NewSession(sink)
}

func (s *ChatService) History() []domain.ChatMessage {
	return s.orchestrator.History()
}

func (s *ChatService) Online() int {
	return s.orchestrator.Online()
}
