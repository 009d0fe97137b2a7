package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/aiwolfdial/studybuddy/model"
	"github.com/google/uuid"
)

const ScheduleWeeks = 2

var (
	ErrNotFound    = errors.New("指定された時間割が見つかりません")
	ErrInvalidItem = errors.New("時間割の項目が不正です")
)

type ScheduleStore interface {
	Week(ctx context.Context, week int) ([]model.DaySchedule, error)
	AddItem(ctx context.Context, week int, day string, item model.ScheduleItem) (model.ScheduleItem, error)
	UpdateItem(ctx context.Context, week int, day string, id string, item model.ScheduleItem) (model.ScheduleItem, error)
	DeleteItem(ctx context.Context, week int, day string, id string) error
	Close() error
}

func NewScheduleStoreFromConfig(config *model.Config) (ScheduleStore, error) {
	switch config.Schedule.Driver {
	case "memory":
		return NewMemoryScheduleStore(), nil
	case "sqlite":
		return OpenSQLiteScheduleStore(config.Schedule.Path)
	}
	return nil, fmt.Errorf("不明な時間割ストアです: %s", config.Schedule.Driver)
}

func checkSlot(week int, day string) error {
	if week < 1 || week > ScheduleWeeks {
		return fmt.Errorf("%w: 週 %d", ErrNotFound, week)
	}
	if !model.IsWeekday(day) {
		return fmt.Errorf("%w: 曜日 %s", ErrNotFound, day)
	}
	return nil
}

func normalizeItem(item model.ScheduleItem) (model.ScheduleItem, error) {
	item.Subject = strings.TrimSpace(item.Subject)
	if item.Subject == "" {
		return item, fmt.Errorf("%w: 科目名が空です", ErrInvalidItem)
	}
	return item, nil
}

type MemoryScheduleStore struct {
	mu    sync.RWMutex
	weeks map[int][]model.DaySchedule
}

func NewMemoryScheduleStore() *MemoryScheduleStore {
	return &MemoryScheduleStore{
		weeks: SeedSchedule(),
	}
}

func (s *MemoryScheduleStore) Week(_ context.Context, week int) ([]model.DaySchedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	days, exists := s.weeks[week]
	if !exists {
		return nil, fmt.Errorf("%w: 週 %d", ErrNotFound, week)
	}
	return cloneWeek(days), nil
}

func (s *MemoryScheduleStore) AddItem(_ context.Context, week int, day string, item model.ScheduleItem) (model.ScheduleItem, error) {
	if err := checkSlot(week, day); err != nil {
		return item, err
	}
	item, err := normalizeItem(item)
	if err != nil {
		return item, err
	}
	item.ID = uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	schedule := s.daySchedule(week, day)
	schedule.Classes = append(schedule.Classes, item)
	slog.Info("時間割に授業を追加しました", "week", week, "day", day, "id", item.ID)
	return item, nil
}

func (s *MemoryScheduleStore) UpdateItem(_ context.Context, week int, day string, id string, item model.ScheduleItem) (model.ScheduleItem, error) {
	if err := checkSlot(week, day); err != nil {
		return item, err
	}
	item, err := normalizeItem(item)
	if err != nil {
		return item, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	schedule := s.daySchedule(week, day)
	idx := slices.IndexFunc(schedule.Classes, func(c model.ScheduleItem) bool { return c.ID == id })
	if idx < 0 {
		return item, fmt.Errorf("%w: 授業 %s", ErrNotFound, id)
	}
	item.ID = id
	schedule.Classes[idx] = item
	slog.Info("時間割の授業を更新しました", "week", week, "day", day, "id", id)
	return item, nil
}

func (s *MemoryScheduleStore) DeleteItem(_ context.Context, week int, day string, id string) error {
	if err := checkSlot(week, day); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	schedule := s.daySchedule(week, day)
	idx := slices.IndexFunc(schedule.Classes, func(c model.ScheduleItem) bool { return c.ID == id })
	if idx < 0 {
		return fmt.Errorf("%w: 授業 %s", ErrNotFound, id)
	}
	schedule.Classes = slices.Delete(schedule.Classes, idx, idx+1)
	slog.Info("時間割から授業を削除しました", "week", week, "day", day, "id", id)
	return nil
}

func (s *MemoryScheduleStore) Close() error {
	return nil
}

func (s *MemoryScheduleStore) daySchedule(week int, day string) *model.DaySchedule {
	days := s.weeks[week]
	for i := range days {
		if days[i].Day == day {
			return &days[i]
		}
	}
	s.weeks[week] = append(days, model.DaySchedule{Day: day, Classes: []model.ScheduleItem{}})
	return &s.weeks[week][len(s.weeks[week])-1]
}

func cloneWeek(days []model.DaySchedule) []model.DaySchedule {
	cloned := make([]model.DaySchedule, len(days))
	for i, day := range days {
		cloned[i] = model.DaySchedule{
			Day:     day.Day,
			Classes: slices.Clone(day.Classes),
		}
		if cloned[i].Classes == nil {
			cloned[i].Classes = []model.ScheduleItem{}
		}
	}
	return cloned
}
