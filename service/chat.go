package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/aiwolfdial/studybuddy/model"
	"github.com/google/uuid"
)

const ChatErrorMessage = "Произошла ошибка при ответе. Попробуйте снова."

var (
	ErrEmptyMessage = errors.New("メッセージが空です")
	ErrTooManyChats = errors.New("チャット数が上限に達しています")
)

// ChatSession keeps the running conversation so the assistant sees earlier turns.
type ChatSession struct {
	ID       string
	mu       sync.Mutex
	oracle   Oracle
	messages []model.ChatMessage
}

func NewChatSession(oracle Oracle) *ChatSession {
	return &ChatSession{
		ID:       uuid.NewString(),
		oracle:   oracle,
		messages: make([]model.ChatMessage, 0),
	}
}

// Send appends the user's message and the reply. A failed reply is recorded as an
// error message from the assistant and the error is returned alongside it.
func (s *ChatSession) Send(ctx context.Context, text string) (model.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.ChatMessage{}, ErrEmptyMessage
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, model.ChatMessage{
		ID:     uuid.NewString(),
		Text:   text,
		Sender: model.SENDER_USER,
	})
	history := make([]model.ChatMessage, 0, len(s.messages))
	for _, message := range s.messages {
		if message.Text != ChatErrorMessage {
			history = append(history, message)
		}
	}
	reply, err := s.oracle.Chat(ctx, history)
	if err != nil {
		slog.Warn("チャットの応答に失敗しました", "id", s.ID, "error", err)
		message := model.ChatMessage{
			ID:     uuid.NewString(),
			Text:   ChatErrorMessage,
			Sender: model.SENDER_AI,
		}
		s.messages = append(s.messages, message)
		return message, err
	}
	message := model.ChatMessage{
		ID:     uuid.NewString(),
		Text:   reply,
		Sender: model.SENDER_AI,
	}
	s.messages = append(s.messages, message)
	return message, nil
}

func (s *ChatSession) Messages() []model.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.messages)
}

// ChatStore holds open chats. A maxSessions of zero or less means no limit.
type ChatStore struct {
	mu          sync.Mutex
	oracle      Oracle
	maxSessions int
	sessions    map[string]*ChatSession
}

func NewChatStore(oracle Oracle, maxSessions int) *ChatStore {
	return &ChatStore{
		oracle:      oracle,
		maxSessions: maxSessions,
		sessions:    make(map[string]*ChatSession),
	}
}

func (cs *ChatStore) Create() (*ChatSession, error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.maxSessions > 0 && len(cs.sessions) >= cs.maxSessions {
		slog.Warn("チャット数が上限に達しています", "max", cs.maxSessions)
		return nil, ErrTooManyChats
	}
	session := NewChatSession(cs.oracle)
	cs.sessions[session.ID] = session
	slog.Info("チャットを作成しました", "id", session.ID, "chats", len(cs.sessions))
	return session, nil
}

func (cs *ChatStore) Get(id string) (*ChatSession, bool) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	session, exists := cs.sessions[id]
	return session, exists
}

func (cs *ChatStore) Delete(id string) bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if _, exists := cs.sessions[id]; !exists {
		return false
	}
	delete(cs.sessions, id)
	slog.Info("チャットを削除しました", "id", id, "chats", len(cs.sessions))
	return true
}

func (cs *ChatStore) Len() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return len(cs.sessions)
}
