package player

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sel-lesson-service/internal/domain"
)

// gatedRepo blocks each lesson until its gate is released.
type gatedRepo struct {
	mu    sync.Mutex
	gates map[string]chan struct{}
	seen  chan string
}

func newGatedRepo(ids ...string) *gatedRepo {
	r := &gatedRepo{gates: make(map[string]chan struct{}), seen: make(chan string, len(ids))}
	for _, id := range ids {
		r.gates[id] = make(chan struct{})
	}
	return r
}

func (r *gatedRepo) release(id string) { close(r.gates[id]) }

func (r *gatedRepo) GetLesson(ctx context.Context, id string) (domain.LessonDocument, error) {
	r.mu.Lock()
	gate, ok := r.gates[id]
	r.mu.Unlock()
	if !ok {
		return domain.LessonDocument{}, domain.ErrLessonNotFound
	}
	r.seen <- id
	// Ignore cancellation on purpose: a slow backend may still answer late.
	<-gate
	return domain.LessonDocument{ID: id, Pages: []domain.Page{{ID: id + "-p"}}}, nil
}

func TestLoaderDiscardsSupersededLoad(t *testing.T) {
	repo := newGatedRepo("A", "B")
	loader := NewLoader(repo)

	var mu sync.Mutex
	var applied []string
	apply := func(doc domain.LessonDocument, err error) {
		assert.NoError(t, err)
		mu.Lock()
		applied = append(applied, doc.ID)
		mu.Unlock()
	}

	errA := make(chan error, 1)
	go func() { errA <- loader.Load(context.Background(), "A", apply) }()
	require.Equal(t, "A", <-repo.seen)

	errB := make(chan error, 1)
	go func() { errB <- loader.Load(context.Background(), "B", apply) }()
	require.Equal(t, "B", <-repo.seen)

	repo.release("B")
	require.NoError(t, <-errB)
	repo.release("A")

	select {
	case err := <-errA:
		assert.ErrorIs(t, err, domain.ErrLoadSuperseded)
	case <-time.After(2 * time.Second):
		t.Fatal("load A never returned")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"B"}, applied)
	assert.False(t, loader.Pending())
}

func TestLoaderCancelsPreviousContext(t *testing.T) {
	started := make(chan struct{})
	repo := repoFunc(func(ctx context.Context, id string) (domain.LessonDocument, error) {
		if id == "slow" {
			close(started)
			<-ctx.Done()
			return domain.LessonDocument{}, ctx.Err()
		}
		return domain.LessonDocument{ID: id}, nil
	})
	loader := NewLoader(repo)

	errSlow := make(chan error, 1)
	go func() { errSlow <- loader.Load(context.Background(), "slow", func(domain.LessonDocument, error) {}) }()
	<-started

	var got string
	require.NoError(t, loader.Load(context.Background(), "fast", func(doc domain.LessonDocument, err error) { got = doc.ID }))
	assert.Equal(t, "fast", got)
	assert.ErrorIs(t, <-errSlow, domain.ErrLoadSuperseded)
}

func TestLoaderOrderIsSetByBegin(t *testing.T) {
	repo := repoFunc(func(_ context.Context, id string) (domain.LessonDocument, error) {
		return domain.LessonDocument{ID: id}, nil
	})
	loader := NewLoader(repo)

	var order []string
	ticketA := loader.Begin(context.Background(), "A", func() { order = append(order, "A") })
	ticketB := loader.Begin(context.Background(), "B", func() { order = append(order, "B") })
	assert.Equal(t, []string{"A", "B"}, order)

	// Fetches finish in the opposite order; the later Begin still wins.
	var applied []string
	apply := func(doc domain.LessonDocument, err error) {
		assert.NoError(t, err)
		applied = append(applied, doc.ID)
	}
	require.NoError(t, ticketB.Finish(apply))
	assert.ErrorIs(t, ticketA.Finish(apply), domain.ErrLoadSuperseded)
	assert.Equal(t, []string{"B"}, applied)
	assert.False(t, loader.Pending())
}

func TestLoaderNotFound(t *testing.T) {
	loader := NewLoader(newGatedRepo())
	var applied error
	err := loader.Load(context.Background(), "missing", func(_ domain.LessonDocument, err error) {
		applied = err
	})
	assert.ErrorIs(t, err, domain.ErrLessonNotFound)
	assert.ErrorIs(t, applied, domain.ErrLessonNotFound)
}

type repoFunc func(ctx context.Context, id string) (domain.LessonDocument, error)

func (f repoFunc) GetLesson(ctx context.Context, id string) (domain.LessonDocument, error) {
	return f(ctx, id)
}
