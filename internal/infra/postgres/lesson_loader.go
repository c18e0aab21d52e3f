package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"sel-lesson-service/internal/domain"
)

// LessonLoader loads lesson JSONB from Postgres.
type LessonLoader struct {
	pool *pgxpool.Pool
}

func NewLessonLoader(pool *pgxpool.Pool) *LessonLoader {
	return &LessonLoader{pool: pool}
}

func (l *LessonLoader) LoadLesson(ctx context.Context, lessonID string) (domain.LessonDocument, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM lessons WHERE id=$1`, lessonID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.LessonDocument{}, fmt.Errorf("%w: %s", domain.ErrLessonNotFound, lessonID)
	}
	if err != nil {
		return domain.LessonDocument{}, fmt.Errorf("load lesson: %w", err)
	}
	return domain.DecodeLesson(raw)
}

// SaveLesson validates and upserts a lesson document.
func (l *LessonLoader) SaveLesson(ctx context.Context, lesson domain.LessonDocument) error {
	if err := domain.Validate(lesson); err != nil {
		return err
	}
	raw, err := domain.EncodeLesson(lesson)
	if err != nil {
		return fmt.Errorf("encode lesson: %w", err)
	}
	_, err = l.pool.Exec(ctx, `
		INSERT INTO lessons (id, title, data) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title, data = EXCLUDED.data, updated_at = now()`,
		lesson.ID, lesson.Title, raw)
	if err != nil {
		return fmt.Errorf("save lesson: %w", err)
	}
	return nil
}

// ListLessons returns the id and title of every stored lesson.
func (l *LessonLoader) ListLessons(ctx context.Context) ([]domain.Summary, error) {
	rows, err := l.pool.Query(ctx, `SELECT id, title, jsonb_array_length(data->'pages') FROM lessons ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	defer rows.Close()

	var out []domain.Summary
	for rows.Next() {
		var s domain.Summary
		if err := rows.Scan(&s.ID, &s.Title, &s.PageCount); err != nil {
			return nil, fmt.Errorf("scan lesson: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
