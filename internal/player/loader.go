package player

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"sel-lesson-service/internal/domain"
)

// LessonRepository resolves lesson ids. Unknown ids must yield an error
// wrapping domain.ErrLessonNotFound.
type LessonRepository interface {
	GetLesson(ctx context.Context, lessonID string) (domain.LessonDocument, error)
}

// Loader fetches lessons for one player. Only the newest request may apply
// its result: starting a load cancels the previous one, and a load that
// finishes after being superseded returns domain.ErrLoadSuperseded without
// touching shared state.
type Loader struct {
	repo LessonRepository

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

func NewLoader(repo LessonRepository) *Loader {
	return &Loader{repo: repo}
}

// Ticket is one started load. Only the newest ticket may apply its result.
type Ticket struct {
	l        *Loader
	gen      uint64
	lessonID string
	ctx      context.Context
	cancel   context.CancelFunc
}

// Begin makes lessonID the newest request and cancels the previous one.
// started runs under the loader lock, so its effects land in the same order
// as the Begin calls. It must not call back into the Loader.
func (l *Loader) Begin(ctx context.Context, lessonID string, started func()) *Ticket {
	ctx, cancel := context.WithCancel(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.gen++
	if l.cancel != nil {
		l.cancel()
	}
	l.cancel = cancel
	if started != nil {
		started()
	}
	return &Ticket{l: l, gen: l.gen, lessonID: lessonID, ctx: ctx, cancel: cancel}
}

// Finish fetches the lesson and, if the ticket is still current, hands the
// outcome to apply while holding the loader lock. apply must not call back
// into the Loader. A superseded ticket never reaches apply.
func (t *Ticket) Finish(apply func(domain.LessonDocument, error)) error {
	defer t.cancel()
	doc, err := t.l.repo.GetLesson(t.ctx, t.lessonID)

	l := t.l
	l.mu.Lock()
	defer l.mu.Unlock()
	if t.gen != l.gen {
		return fmt.Errorf("%w: %s", domain.ErrLoadSuperseded, t.lessonID)
	}
	l.cancel = nil
	if err != nil && !errors.Is(err, domain.ErrLessonNotFound) {
		err = fmt.Errorf("load lesson %s: %w", t.lessonID, err)
	}
	apply(doc, err)
	return err
}

// Load is Begin followed by Finish.
func (l *Loader) Load(ctx context.Context, lessonID string, apply func(domain.LessonDocument, error)) error {
	return l.Begin(ctx, lessonID, nil).Finish(apply)
}

// Cancel abandons any in-flight load.
func (l *Loader) Cancel() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gen++
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
}

// Pending reports whether a load is in flight.
func (l *Loader) Pending() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cancel != nil
}
