package app

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"sel-lesson-service/internal/activity"
	"sel-lesson-service/internal/clock"
	"sel-lesson-service/internal/domain"
	"sel-lesson-service/internal/interaction"
	"sel-lesson-service/internal/logger"
	"sel-lesson-service/internal/player"
)

type sessionDeps struct {
	clock  clock.Clock
	rand   interaction.Rand
	loader *player.Loader
	opts   Options
	log    *logger.Logger
}

// Session is one player: the lesson it plays, its standalone activity and
// the clients watching it. All state changes, timer callbacks included, run
// under mu. Lock order is loader before mu; code holding mu never calls
// into the loader.
type Session struct {
	id     string
	loader *player.Loader
	opts   Options
	log    *logger.Logger
	clock  clock.Clock
	timers clock.Clock
	rand   interaction.Rand

	mu           sync.Mutex
	closed       bool
	restored     bool
	mode         domain.Mode
	muted        bool
	lessonID     string
	loadErr      string
	nav          *player.Navigator
	game         activity.Game
	activityName string
	activityID   string
	completed    map[string]struct{}
	speech       []string
	subscribers  map[chan domain.Event]struct{}
}

func newSession(id string, deps sessionDeps) *Session {
	s := &Session{
		id:          id,
		loader:      deps.loader,
		opts:        deps.opts,
		log:         deps.log,
		clock:       deps.clock,
		rand:        deps.rand,
		mode:        domain.ModeSelecting,
		muted:       deps.opts.MuteAudio,
		completed:   make(map[string]struct{}),
		subscribers: make(map[chan domain.Event]struct{}),
	}
	s.timers = lockedClock{base: deps.clock, s: s}
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State returns the current snapshot.
func (s *Session) State() domain.PlayerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// IsEmpty reports whether no client is subscribed.
func (s *Session) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers) == 0
}

// Close stops the lesson, pending loads and timers, and disconnects subscribers.
func (s *Session) Close() {
	s.loader.Cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.closeLessonLocked()
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

// MarkCompleted records a finished lesson. The navigator calls it while the
// session lock is held.
func (s *Session) MarkCompleted(lessonID string) {
	s.completed[lessonID] = struct{}{}
	s.queueSpeech("Lesson complete")
	if s.opts.Ledger == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.opts.Ledger.MarkCompleted(ctx, s.id, lessonID); err != nil {
			s.log.Warn("persist completed lesson", "lesson_id", lessonID, "error", err)
		}
	}()
}

func (s *Session) restoreCompleted(ctx context.Context) {
	if s.opts.Ledger == nil {
		return
	}
	s.mu.Lock()
	done := s.restored
	s.restored = true
	s.mu.Unlock()
	if done {
		return
	}

	ids, err := s.opts.Ledger.Completed(ctx, s.id)
	if err != nil {
		s.log.Warn("restore completed lessons", "error", err)
		return
	}
	s.mu.Lock()
	for _, id := range ids {
		s.completed[id] = struct{}{}
	}
	s.mu.Unlock()
}

func (s *Session) mutate(fn func(*Session) error) (domain.PlayerState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.PlayerState{}, domain.ErrSessionNotFound
	}
	if err := fn(s); err != nil {
		return s.snapshotLocked(), err
	}
	return s.broadcastLocked(), nil
}

func (s *Session) beginLoad(lessonID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closeLessonLocked()
	s.mode = domain.ModeLoading
	s.lessonID = lessonID
	s.loadErr = ""
	s.broadcastLocked()
}

// finishLoad runs under the loader lock for the newest load only.
func (s *Session) finishLoad(doc domain.LessonDocument, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if err != nil {
		s.log.Warn("lesson load failed", "lesson_id", s.lessonID, "error", err)
		s.mode = domain.ModeSelecting
		s.lessonID = ""
		s.loadErr = err.Error()
		s.broadcastLocked()
		return
	}

	s.nav = player.NewNavigator(doc, player.Options{
		Deps: interaction.Deps{
			Clock:         s.timers,
			Rand:          s.rand,
			Layout:        s.opts.Layout,
			ShakeDuration: s.opts.ShakeDuration,
			Games:         s.opts.Games,
		},
		Capabilities:    player.Capabilities{MuteAudio: s.muted, Speak: s.queueSpeech},
		Sessions:        s.opts.Sessions,
		Completed:       s,
		Logger:          s.log,
		CompleteTimeout: s.opts.CompleteTimeout,
	})
	s.mode = domain.ModePlaying
	s.lessonID = doc.ID
	s.log.Info("lesson started", "lesson_id", doc.ID, "pages", len(doc.Pages))
	s.broadcastLocked()
}

func (s *Session) forwardLocked(ctx context.Context) error {
	if s.nav == nil {
		return domain.ErrNoActiveLesson
	}
	if err := s.nav.Forward(ctx); err != nil {
		return err
	}
	if s.nav.Finished() {
		s.log.Info("lesson completed", "lesson_id", s.lessonID)
		s.resetLocked()
	}
	return nil
}

func (s *Session) backLocked() error {
	if s.nav == nil {
		return domain.ErrNoActiveLesson
	}
	return s.nav.Back()
}

func (s *Session) interactLocked(action interaction.Action) error {
	if s.game != nil {
		if action.Type != interaction.ActionGame {
			return fmt.Errorf("%w: %s on activity %s", interaction.ErrUnsupportedAction, action.Type, s.activityName)
		}
		return s.game.Handle(action.Game)
	}
	if s.nav == nil {
		return domain.ErrNoActiveLesson
	}
	return s.nav.Apply(action)
}

func (s *Session) setMutedLocked(muted bool) {
	s.muted = muted
	if muted {
		s.speech = nil
	}
	if s.nav != nil {
		s.nav.SetMuted(muted)
	}
}

func (s *Session) startActivityLocked(name string) error {
	if s.opts.Games == nil {
		return fmt.Errorf("%w: %s", domain.ErrUnknownActivity, name)
	}
	game, ok := s.opts.Games.New(name, nil, s.timers)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownActivity, name)
	}
	s.closeLessonLocked()
	s.mode = domain.ModeActivity
	s.lessonID = ""
	s.loadErr = ""
	s.game = game
	s.activityName = name
	game.Start(func() {
		s.log.Info("activity finished", "activity", name)
		s.queueSpeech("Great job")
	})
	return nil
}

// registerActivity reports a standalone activity to the backend and records
// the id it hands out. Failures leave the activity running.
func (s *Session) registerActivity(ctx context.Context, svc player.SessionService, name string) {
	id, err := svc.StartActivity(ctx, s.id, name)
	if err != nil {
		s.log.Warn("start activity call failed", "activity", name, "error", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.game == nil || s.activityName != name {
		return
	}
	s.activityID = id
	s.broadcastLocked()
}

func (s *Session) resetLocked() {
	s.closeLessonLocked()
	s.mode = domain.ModeSelecting
	s.lessonID = ""
	s.loadErr = ""
}

func (s *Session) closeLessonLocked() {
	if s.nav != nil {
		s.nav.Close()
		s.nav = nil
	}
	if s.game != nil {
		s.game.Stop()
		s.game = nil
		s.activityName = ""
		s.activityID = ""
	}
}

func (s *Session) queueSpeech(text string) {
	if s.muted {
		return
	}
	s.speech = append(s.speech, text)
}

func (s *Session) subscribe() (<-chan domain.Event, func(), error) {
	ch := make(chan domain.Event, 16)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, nil, domain.ErrSessionNotFound
	}
	s.subscribers[ch] = struct{}{}
	// The buffer is empty, so this never blocks.
	initial := s.snapshotLocked()
	ch <- domain.Event{Type: domain.EventState, State: &initial}

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel, nil
}

// broadcastLocked fans the snapshot and queued speech out to subscribers.
// Slow subscribers lose their oldest event instead of blocking the session.
func (s *Session) broadcastLocked() domain.PlayerState {
	state := s.snapshotLocked()
	events := []domain.Event{{Type: domain.EventState, State: &state}}
	for _, text := range s.speech {
		events = append(events, domain.Event{Type: domain.EventSpeak, Text: text})
	}
	s.speech = nil

	for ch := range s.subscribers {
		for _, ev := range events {
			select {
			case ch <- ev:
			default:
				select {
				case <-ch:
				default:
				}
				ch <- ev
			}
		}
	}
	return state
}

func (s *Session) snapshotLocked() domain.PlayerState {
	completed := make([]string, 0, len(s.completed))
	for id := range s.completed {
		completed = append(completed, id)
	}
	sort.Strings(completed)

	state := domain.PlayerState{
		SessionID:        s.id,
		Mode:             s.mode,
		Muted:            s.muted,
		LessonID:         s.lessonID,
		CompletedLessons: completed,
		LoadError:        s.loadErr,
		UpdatedAt:        s.clock.Now(),
	}
	if s.nav != nil {
		lesson := s.nav.Lesson()
		page := s.nav.Page()
		state.LessonTitle = lesson.Title
		state.PageIndex = s.nav.PageIndex()
		state.PageCount = len(lesson.Pages)
		state.Page = &page
		state.CanNext = s.nav.CanNavigateForward()
		state.CanBack = s.nav.CanNavigateBack()
		state.ActivityCompleted = s.nav.ActivityCompleted()
		state.Feedback = s.nav.Feedback()
		state.Interaction = s.nav.View()
	}
	if s.game != nil {
		view := s.game.View()
		state.Activity = &view
		state.ActivityID = s.activityID
	}
	return state
}

// lockedClock runs timer callbacks under the session lock and publishes the
// resulting state.
type lockedClock struct {
	base clock.Clock
	s    *Session
}

func (c lockedClock) Now() time.Time { return c.base.Now() }

func (c lockedClock) AfterFunc(d time.Duration, f func()) clock.Timer {
	return c.base.AfterFunc(d, func() {
		c.s.mu.Lock()
		defer c.s.mu.Unlock()
		if c.s.closed {
			return
		}
		f()
		c.s.broadcastLocked()
	})
}
