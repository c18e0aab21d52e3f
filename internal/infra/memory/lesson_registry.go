package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"sel-lesson-service/internal/domain"
)

// LoaderFunc produces one lesson document.
type LoaderFunc func(ctx context.Context) (domain.LessonDocument, error)

// Registry maps lesson ids to loader functions. Lessons are resolved only by
// id; an id without a loader is domain.ErrLessonNotFound.
type Registry struct {
	mu      sync.RWMutex
	loaders map[string]LoaderFunc
}

func NewRegistry() *Registry {
	return &Registry{loaders: make(map[string]LoaderFunc)}
}

// NewStaticRegistry registers ready-made documents (useful for tests/demos).
func NewStaticRegistry(lessons ...domain.LessonDocument) *Registry {
	r := NewRegistry()
	for _, lesson := range lessons {
		r.RegisterDocument(lesson)
	}
	return r
}

func (r *Registry) Register(lessonID string, fn LoaderFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaders[lessonID] = fn
}

func (r *Registry) RegisterDocument(lesson domain.LessonDocument) {
	r.Register(lesson.ID, func(context.Context) (domain.LessonDocument, error) {
		return lesson, nil
	})
}

// RegisterRaw registers a JSON document that is decoded and validated on
// every load.
func (r *Registry) RegisterRaw(lessonID string, raw []byte) {
	r.Register(lessonID, func(context.Context) (domain.LessonDocument, error) {
		doc, err := domain.DecodeLesson(raw)
		if err != nil {
			return domain.LessonDocument{}, err
		}
		if doc.ID != lessonID {
			return domain.LessonDocument{}, &domain.ContentDefectError{
				LessonID: lessonID,
				Problems: []string{fmt.Sprintf("document id %q does not match registered id", doc.ID)},
			}
		}
		return doc, nil
	})
}

func (r *Registry) LoadLesson(ctx context.Context, lessonID string) (domain.LessonDocument, error) {
	r.mu.RLock()
	fn, ok := r.loaders[lessonID]
	r.mu.RUnlock()
	if !ok {
		return domain.LessonDocument{}, fmt.Errorf("%w: %s", domain.ErrLessonNotFound, lessonID)
	}
	return fn(ctx)
}

// IDs lists registered lesson ids, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.loaders))
	for id := range r.loaders {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
