package core

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/aiwolfdial/studybuddy/logic"
)

var (
	ErrSessionNotFound = errors.New("ゲームが見つかりません")
	ErrTooManySessions = errors.New("ゲーム数が上限に達しています")
)

type SessionStore struct {
	mu          sync.Mutex
	maxSessions int
	count       atomic.Int64
	sessions    sync.Map
	onChange    func(n int)
}

func NewSessionStore(maxSessions int) *SessionStore {
	return &SessionStore{
		maxSessions: maxSessions,
	}
}

func (ss *SessionStore) Add(controller *logic.Controller) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if ss.maxSessions > 0 && ss.count.Load() >= int64(ss.maxSessions) {
		slog.Warn("ゲーム数が上限に達しています", "max", ss.maxSessions)
		return ErrTooManySessions
	}
	if _, loaded := ss.sessions.LoadOrStore(controller.ID, controller); loaded {
		return nil
	}
	n := ss.count.Add(1)
	slog.Info("新しいゲームをセッションに追加しました", "id", controller.ID, "sessions", n)
	ss.notify(int(n))
	return nil
}

func (ss *SessionStore) Get(id string) (*logic.Controller, error) {
	value, exists := ss.sessions.Load(id)
	if !exists {
		return nil, ErrSessionNotFound
	}
	return value.(*logic.Controller), nil
}

func (ss *SessionStore) Remove(id string) (*logic.Controller, error) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	value, loaded := ss.sessions.LoadAndDelete(id)
	if !loaded {
		return nil, ErrSessionNotFound
	}
	n := ss.count.Add(-1)
	slog.Info("ゲームをセッションから削除しました", "id", id, "sessions", n)
	ss.notify(int(n))
	return value.(*logic.Controller), nil
}

func (ss *SessionStore) Len() int {
	return int(ss.count.Load())
}

func (ss *SessionStore) Range(f func(controller *logic.Controller) bool) {
	ss.sessions.Range(func(_, value any) bool {
		return f(value.(*logic.Controller))
	})
}

func (ss *SessionStore) notify(n int) {
	if ss.onChange != nil {
		ss.onChange(n)
	}
}
