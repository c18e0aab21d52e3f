package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"sel-lesson-service/internal/domain"
)

// LessonLoader fetches lesson content from a backing store (registry, files, Postgres).
type LessonLoader interface {
	LoadLesson(ctx context.Context, lessonID string) (domain.LessonDocument, error)
}

// LessonRepository caches lessons with TTL to avoid repeated backend hits.
type LessonRepository struct {
	loader LessonLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.Mutex
	rnd   *rand.Rand
	cache map[string]cachedLesson
}

type cachedLesson struct {
	lesson    domain.LessonDocument
	expiresAt time.Time
}

func NewLessonRepository(loader LessonLoader, ttl time.Duration) *LessonRepository {
	return &LessonRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedLesson),
	}
}

// GetLesson returns a cached lesson or loads it once for all concurrent
// callers. A caller whose ctx ends stops waiting; the shared load carries on
// and fills the cache for the others.
func (r *LessonRepository) GetLesson(ctx context.Context, lessonID string) (domain.LessonDocument, error) {
	if lesson, ok := r.cached(lessonID); ok {
		return lesson, nil
	}

	loadCtx := context.WithoutCancel(ctx)
	ch := r.sf.DoChan(lessonID, func() (interface{}, error) {
		if lesson, ok := r.cached(lessonID); ok {
			return lesson, nil
		}
		lesson, err := r.loader.LoadLesson(loadCtx, lessonID)
		if err != nil {
			return domain.LessonDocument{}, err
		}

		r.mu.Lock()
		r.cache[lessonID] = cachedLesson{
			lesson:    lesson,
			expiresAt: r.clock().Add(r.ttlWithJitterLocked()),
		}
		r.mu.Unlock()
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

// Invalidate drops a cached lesson so the next read reloads it.
func (r *LessonRepository) Invalidate(lessonID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cache, lessonID)
}

func (r *LessonRepository) cached(lessonID string) (domain.LessonDocument, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.cache[lessonID]
	if !ok || !entry.expiresAt.After(r.clock()) {
		return domain.LessonDocument{}, false
	}
	return entry.lesson, true
}

func (r *LessonRepository) ttlWithJitterLocked() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
