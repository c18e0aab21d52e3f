package redis

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"sel-lesson-service/internal/domain"
	"sel-lesson-service/internal/logger"
)

// LessonLoader fetches lesson content from a backing store (registry, files, Postgres).
type LessonLoader interface {
	LoadLesson(ctx context.Context, lessonID string) (domain.LessonDocument, error)
}

// LessonRepository caches validated lesson documents in Redis and falls back
// to a loader on cache miss. Documents are stored as JSON under lesson:{id}.
type LessonRepository struct {
	client *redis.Client
	loader LessonLoader
	ttl    time.Duration
	log    *logger.Logger
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewLessonRepository(client *redis.Client, loader LessonLoader, ttl time.Duration, log *logger.Logger) *LessonRepository {
	if log == nil {
		log = logger.Nop()
	}
	return &LessonRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		log:    log,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *LessonRepository) GetLesson(ctx context.Context, lessonID string) (domain.LessonDocument, error) {
	if lesson, ok := r.cached(ctx, lessonID); ok {
		return lesson, nil
	}

	loadCtx := context.WithoutCancel(ctx)
	ch := r.sf.DoChan(lessonID, func() (interface{}, error) {
		// Re-check cache in case another instance filled it.
		if lesson, ok := r.cached(loadCtx, lessonID); ok {
			return lesson, nil
		}

		lesson, err := r.loader.LoadLesson(loadCtx, lessonID)
		if err != nil {
			return domain.LessonDocument{}, err
		}
		r.store(loadCtx, lesson)
		return lesson, nil
	})

	select {
	case <-ctx.Done():
		return domain.LessonDocument{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return domain.LessonDocument{}, res.Err
		}
		return res.Val.(domain.LessonDocument), nil
	}
}

// Invalidate drops the cached copy of a lesson.
func (r *LessonRepository) Invalidate(ctx context.Context, lessonID string) error {
	return r.client.Del(ctx, lessonKey(lessonID)).Err()
}

func (r *LessonRepository) cached(ctx context.Context, lessonID string) (domain.LessonDocument, bool) {
	raw, err := r.client.Get(ctx, lessonKey(lessonID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.Warn("lesson cache read failed", "lesson_id", lessonID, "error", err)
		}
		return domain.LessonDocument{}, false
	}
	lesson, err := domain.DecodeLesson(raw)
	if err != nil {
		// A stale or corrupt entry is treated as a miss and overwritten.
		r.log.Warn("cached lesson rejected", "lesson_id", lessonID, "error", err)
		return domain.LessonDocument{}, false
	}
	return lesson, true
}

func (r *LessonRepository) store(ctx context.Context, lesson domain.LessonDocument) {
	raw, err := domain.EncodeLesson(lesson)
	if err != nil {
		r.log.Warn("encode lesson for cache", "lesson_id", lesson.ID, "error", err)
		return
	}
	if err := r.client.Set(ctx, lessonKey(lesson.ID), raw, r.ttlWithJitter()).Err(); err != nil {
		r.log.Warn("lesson cache write failed", "lesson_id", lesson.ID, "error", err)
	}
}

func lessonKey(lessonID string) string {
	return "lesson:" + lessonID
}

func (r *LessonRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
