package player

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"sel-lesson-service/internal/domain"
	"sel-lesson-service/internal/interaction"
	"sel-lesson-service/internal/logger"
)

// Direction moves the page cursor.
type Direction int

const (
	Backward Direction = -1
	Forward  Direction = 1
)

// SpeakFn triggers text-to-speech. It must not block.
type SpeakFn func(text string)

// Capabilities are the audio settings every page may use.
type Capabilities struct {
	MuteAudio bool
	Speak     SpeakFn
}

func (c Capabilities) say(text string) {
	text = strings.TrimSpace(text)
	if c.MuteAudio || c.Speak == nil || text == "" {
		return
	}
	c.Speak(text)
}

// SessionService is the backend session API.
type SessionService interface {
	StartActivity(ctx context.Context, sessionID, activityName string) (string, error)
	CompleteLesson(ctx context.Context, lessonID string) error
}

// CompletionRecorder keeps the local set of finished lessons.
type CompletionRecorder interface {
	MarkCompleted(lessonID string)
}

// Options wire a Navigator to its collaborators.
type Options struct {
	Deps         interaction.Deps
	Capabilities Capabilities
	Sessions     SessionService
	Completed    CompletionRecorder
	Logger       *logger.Logger
	// CompleteTimeout bounds the background complete-lesson call; zero means none.
	CompleteTimeout time.Duration
}

// Navigator walks the pages of one lesson. It owns pageIndex,
// activityCompleted and feedback; only page changes and controller
// verdicts modify them. It is not safe for concurrent use.
type Navigator struct {
	lesson domain.LessonDocument
	opts   Options
	log    *logger.Logger

	pageIndex         int
	activityCompleted bool
	feedback          *domain.Feedback
	controller        interaction.Controller
	mountErr          error
	mount             int
	finished          bool
}

// NewNavigator mounts the first page of lesson.
func NewNavigator(lesson domain.LessonDocument, opts Options) *Navigator {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	n := &Navigator{lesson: lesson, opts: opts, log: log.With("lesson_id", lesson.ID)}
	n.enterPage(0)
	return n
}

func (n *Navigator) Lesson() domain.LessonDocument { return n.lesson }
func (n *Navigator) PageIndex() int                 { return n.pageIndex }
func (n *Navigator) ActivityCompleted() bool        { return n.activityCompleted }
func (n *Navigator) Finished() bool                 { return n.finished }

// Feedback returns the verdict text of the current page, if any.
func (n *Navigator) Feedback() *domain.Feedback {
	if n.feedback == nil {
		return nil
	}
	f := *n.feedback
	return &f
}

// Page returns the page under the cursor.
func (n *Navigator) Page() domain.Page {
	return n.lesson.Pages[n.pageIndex]
}

// Controller is the live interaction controller, nil for ungated pages.
func (n *Navigator) Controller() interaction.Controller { return n.controller }

// SetMuted toggles speech for subsequent pages and feedback.
func (n *Navigator) SetMuted(muted bool) { n.opts.Capabilities.MuteAudio = muted }

// ChangePage moves one page in dir. Moves past either end are ignored.
// It reports whether the page changed.
func (n *Navigator) ChangePage(dir Direction) bool {
	next := n.pageIndex
	switch {
	case dir == Forward && n.pageIndex < n.lesson.LastPageIndex():
		next++
	case dir == Backward && n.pageIndex > 0:
		next--
	default:
		return false
	}
	n.enterPage(next)
	return true
}

// CanNavigateForward is true for pages without a gating interaction and for
// gated pages whose interaction completed.
func (n *Navigator) CanNavigateForward() bool {
	if n.finished {
		return false
	}
	if !interaction.Gated(n.Page().Content.Interaction) {
		return true
	}
	return n.activityCompleted
}

func (n *Navigator) CanNavigateBack() bool {
	return !n.finished && n.pageIndex > 0
}

// Forward advances one page, or completes the lesson from the last page.
func (n *Navigator) Forward(ctx context.Context) error {
	if n.finished {
		return domain.ErrNoActiveLesson
	}
	if !n.CanNavigateForward() {
		return domain.ErrNavigationLocked
	}
	if n.pageIndex == n.lesson.LastPageIndex() {
		n.completeLesson(ctx)
		return nil
	}
	n.ChangePage(Forward)
	return nil
}

// Back moves to the previous page.
func (n *Navigator) Back() error {
	if n.finished {
		return domain.ErrNoActiveLesson
	}
	n.ChangePage(Backward)
	return nil
}

// Apply forwards a user action to the live controller.
func (n *Navigator) Apply(action interaction.Action) error {
	if n.finished {
		return domain.ErrNoActiveLesson
	}
	if n.mountErr != nil {
		return n.mountErr
	}
	if n.controller == nil {
		return fmt.Errorf("%w: page %s has no interaction", interaction.ErrUnsupportedAction, n.Page().ID)
	}
	return n.controller.Apply(action)
}

// Close releases the live controller.
func (n *Navigator) Close() {
	if n.controller != nil {
		n.controller.Close()
		n.controller = nil
	}
}

// View renders the live controller, nil when there is none.
func (n *Navigator) View() *domain.InteractionView {
	if n.controller == nil {
		return nil
	}
	v := n.controller.View()
	return &v
}

func (n *Navigator) enterPage(index int) {
	n.Close()
	n.pageIndex = index
	n.activityCompleted = false
	n.feedback = nil
	n.mountErr = nil
	n.mount++

	page := n.Page()
	mount := n.mount
	controller, err := interaction.New(page.Content.Interaction, n.opts.Deps, func(v interaction.Verdict) {
		n.onComplete(mount, v)
	})
	if err != nil {
		n.mountErr = err
		n.log.Error("page interaction cannot be mounted", "page_id", page.ID, "error", err)
	}
	n.controller = controller

	n.opts.Capabilities.say(pageSpeech(page))
}

// onComplete receives controller verdicts. Verdicts from a controller that
// belongs to an earlier mount are dropped.
func (n *Navigator) onComplete(mount int, v interaction.Verdict) {
	if mount != n.mount || n.finished {
		return
	}
	if v.Completed {
		n.activityCompleted = true
	}
	if v.Correct != nil {
		n.feedback = &domain.Feedback{IsCorrect: *v.Correct, Text: v.Feedback}
		n.opts.Capabilities.say(v.Feedback)
	}
}

// completeLesson records the lesson locally first, then tells the backend in
// the background. Backend failures are logged only.
func (n *Navigator) completeLesson(ctx context.Context) {
	n.finished = true
	n.Close()
	if n.opts.Completed != nil {
		n.opts.Completed.MarkCompleted(n.lesson.ID)
	}
	if n.opts.Sessions == nil {
		return
	}

	callCtx := context.WithoutCancel(ctx)
	lessonID := n.lesson.ID
	sessions := n.opts.Sessions
	timeout := n.opts.CompleteTimeout
	log := n.log
	go func() {
		if timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(callCtx, timeout)
			defer cancel()
		}
		if err := sessions.CompleteLesson(callCtx, lessonID); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn("complete lesson call failed", "error", err)
			return
		}
		log.Debug("lesson completion reported")
	}()
}

func pageSpeech(page domain.Page) string {
	var parts []string
	for _, s := range []string{page.Content.Title, page.Content.Body} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ". ")
}
