package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aiwolfdial/studybuddy/model"
	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

const scheduleSchema = `
CREATE TABLE IF NOT EXISTS schedule_items (
	id           TEXT PRIMARY KEY,
	week         INTEGER NOT NULL,
	day          TEXT NOT NULL,
	position     INTEGER NOT NULL,
	subject      TEXT NOT NULL,
	time         TEXT NOT NULL DEFAULT '',
	classroom    TEXT NOT NULL DEFAULT '',
	teacher      TEXT NOT NULL DEFAULT '',
	homework     TEXT NOT NULL DEFAULT '',
	is_important INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_schedule_items_slot ON schedule_items(week, day, position);
`

type SQLiteScheduleStore struct {
	db *sql.DB
}

// OpenSQLiteScheduleStore opens or creates the database at path and seeds it on first use.
func OpenSQLiteScheduleStore(path string) (*SQLiteScheduleStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s := &SQLiteScheduleStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	slog.Info("時間割データベースを開きました", "path", path)
	return s, nil
}

func (s *SQLiteScheduleStore) migrate() error {
	if _, err := s.db.Exec(scheduleSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM schedule_items").Scan(&count); err != nil {
		return fmt.Errorf("count schedule items: %w", err)
	}
	if count > 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	for week, days := range SeedSchedule() {
		for _, day := range days {
			for position, item := range day.Classes {
				if err := insertItem(tx, week, day.Day, position, item); err != nil {
					return err
				}
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	return nil
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func insertItem(db execer, week int, day string, position int, item model.ScheduleItem) error {
	_, err := db.Exec(
		`INSERT INTO schedule_items(id, week, day, position, subject, time, classroom, teacher, homework, is_important)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, week, day, position, item.Subject, item.Time, item.Classroom, item.Teacher, item.Homework, item.IsImportant,
	)
	if err != nil {
		return fmt.Errorf("insert schedule item: %w", err)
	}
	return nil
}

func (s *SQLiteScheduleStore) Week(ctx context.Context, week int) ([]model.DaySchedule, error) {
	if week < 1 || week > ScheduleWeeks {
		return nil, fmt.Errorf("%w: 週 %d", ErrNotFound, week)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, day, subject, time, classroom, teacher, homework, is_important
		 FROM schedule_items WHERE week = ? ORDER BY position, rowid`, week)
	if err != nil {
		return nil, fmt.Errorf("query schedule: %w", err)
	}
	defer rows.Close()

	byDay := make(map[string][]model.ScheduleItem)
	for rows.Next() {
		var item model.ScheduleItem
		var day string
		if err := rows.Scan(&item.ID, &day, &item.Subject, &item.Time, &item.Classroom, &item.Teacher, &item.Homework, &item.IsImportant); err != nil {
			return nil, fmt.Errorf("scan schedule item: %w", err)
		}
		byDay[day] = append(byDay[day], item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schedule: %w", err)
	}

	days := make([]model.DaySchedule, 0, len(model.Weekdays))
	for _, day := range model.Weekdays {
		classes := byDay[day]
		if classes == nil {
			classes = []model.ScheduleItem{}
		}
		days = append(days, model.DaySchedule{Day: day, Classes: classes})
	}
	return days, nil
}

func (s *SQLiteScheduleStore) AddItem(ctx context.Context, week int, day string, item model.ScheduleItem) (model.ScheduleItem, error) {
	if err := checkSlot(week, day); err != nil {
		return item, err
	}
	item, err := normalizeItem(item)
	if err != nil {
		return item, err
	}
	item.ID = uuid.NewString()
	var position int
	err = s.db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(position), -1) + 1 FROM schedule_items WHERE week = ? AND day = ?", week, day,
	).Scan(&position)
	if err != nil {
		return item, fmt.Errorf("next position: %w", err)
	}
	if err := insertItem(s.db, week, day, position, item); err != nil {
		return item, err
	}
	slog.Info("時間割に授業を追加しました", "week", week, "day", day, "id", item.ID)
	return item, nil
}

func (s *SQLiteScheduleStore) UpdateItem(ctx context.Context, week int, day string, id string, item model.ScheduleItem) (model.ScheduleItem, error) {
	if err := checkSlot(week, day); err != nil {
		return item, err
	}
	item, err := normalizeItem(item)
	if err != nil {
		return item, err
	}
	item.ID = id
	result, err := s.db.ExecContext(ctx,
		`UPDATE schedule_items SET subject = ?, time = ?, classroom = ?, teacher = ?, homework = ?, is_important = ?
		 WHERE id = ? AND week = ? AND day = ?`,
		item.Subject, item.Time, item.Classroom, item.Teacher, item.Homework, item.IsImportant, id, week, day,
	)
	if err != nil {
		return item, fmt.Errorf("update schedule item: %w", err)
	}
	if err := requireAffected(result, id); err != nil {
		return item, err
	}
	slog.Info("時間割の授業を更新しました", "week", week, "day", day, "id", id)
	return item, nil
}

func (s *SQLiteScheduleStore) DeleteItem(ctx context.Context, week int, day string, id string) error {
	if err := checkSlot(week, day); err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, "DELETE FROM schedule_items WHERE id = ? AND week = ? AND day = ?", id, week, day)
	if err != nil {
		return fmt.Errorf("delete schedule item: %w", err)
	}
	if err := requireAffected(result, id); err != nil {
		return err
	}
	slog.Info("時間割から授業を削除しました", "week", week, "day", day, "id", id)
	return nil
}

func (s *SQLiteScheduleStore) Close() error {
	return s.db.Close()
}

func requireAffected(result sql.Result, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: 授業 %s", ErrNotFound, id)
	}
	return nil
}
