package service

import (
	"context"
	"strings"
	"sync"

	"github.com/aiwolfdial/studybuddy/model"
)

type stubOracle struct {
	mu       sync.Mutex
	asked    []string
	chats    [][]model.ChatMessage
	narrated []string
	reply    string
	err      error
}

func (s *stubOracle) Narrate(_ context.Context, prompt string, _ []model.ConversationTurn) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.narrated = append(s.narrated, prompt)
	return s.reply, s.err
}

func (s *stubOracle) Ask(_ context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.asked = append(s.asked, prompt)
	return s.reply, s.err
}

func (s *stubOracle) Chat(_ context.Context, messages []model.ChatMessage) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats = append(s.chats, messages)
	return s.reply, s.err
}

func (s *stubOracle) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}
