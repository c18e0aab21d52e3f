package app

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"sel-lesson-service/internal/activity"
	"sel-lesson-service/internal/clock"
	"sel-lesson-service/internal/domain"
	"sel-lesson-service/internal/interaction"
	"sel-lesson-service/internal/logger"
	"sel-lesson-service/internal/player"
)

// SessionRepository abstracts where live player sessions are kept (in-memory, Redis, etc).
type SessionRepository interface {
	GetOrCreate(sessionID string, create func(id string) *Session) *Session
	Get(sessionID string) (*Session, bool)
	DeleteIfEmpty(sessionID string) bool
}

// CompletionLedger persists which lessons a session has finished.
type CompletionLedger interface {
	MarkCompleted(ctx context.Context, sessionID, lessonID string) error
	Completed(ctx context.Context, sessionID string) ([]string, error)
}

// Options configure every session the service opens.
type Options struct {
	Clock           clock.Clock
	Seed            int64
	Layout          interaction.Layout
	ShakeDuration   time.Duration
	Games           *activity.Registry
	Sessions        player.SessionService
	Ledger          CompletionLedger
	Logger          *logger.Logger
	MuteAudio       bool
	CompleteTimeout time.Duration
}

// PlayerService contains the player use cases. Each command returns the
// fresh snapshot; subscribers see the same snapshot plus speech cues.
type PlayerService struct {
	sessions SessionRepository
	lessons  player.LessonRepository
	opts     Options
	log      *logger.Logger
}

func NewPlayerService(store SessionRepository, lessons player.LessonRepository, opts Options) *PlayerService {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	return &PlayerService{sessions: store, lessons: lessons, opts: opts, log: opts.Logger}
}

// Open creates the session if needed and returns its snapshot.
func (s *PlayerService) Open(ctx context.Context, sessionID string) domain.PlayerState {
	session := s.sessions.GetOrCreate(sessionID, s.newSession)
	session.restoreCompleted(ctx)
	return session.State()
}

func (s *PlayerService) newSession(id string) *Session {
	seed := s.opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return newSession(id, sessionDeps{
		clock:  s.opts.Clock,
		rand:   rand.New(rand.NewSource(seed)),
		loader: player.NewLoader(s.lessons),
		opts:   s.opts,
		log:    s.log.With("session_id", id),
	})
}

// Subscribe returns a channel of session events. The caller must invoke the
// returned cancel function to avoid leaks.
func (s *PlayerService) Subscribe(_ context.Context, sessionID string) (<-chan domain.Event, func(), error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	return session.subscribe()
}

// Leave drops the session once nobody is subscribed anymore.
func (s *PlayerService) Leave(_ context.Context, sessionID string) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return
	}
	if session.IsEmpty() && s.sessions.DeleteIfEmpty(sessionID) {
		session.Close()
	}
}

// SelectLesson loads lessonID and returns the resulting state. Selecting
// again while a load is in flight supersedes it; only the newest lesson is
// ever shown.
func (s *PlayerService) SelectLesson(ctx context.Context, sessionID, lessonID string) (domain.PlayerState, error) {
	sel, err := s.BeginSelection(ctx, sessionID, lessonID)
	if err != nil {
		return domain.PlayerState{}, err
	}
	return sel.Wait()
}

// Selection is a lesson load whose place in line is fixed but whose fetch
// has not run yet.
type Selection struct {
	session *Session
	ticket  *player.Ticket
}

// BeginSelection puts the session into loading mode for lessonID and makes
// it the newest selection, without fetching. Callers that fetch
// concurrently call it in arrival order and then Wait elsewhere.
//
// The fetch belongs to the session, not to ctx: a caller going away does
// not fail the load for other subscribers. Exit, a newer selection or
// closing the session cancel it.
func (s *PlayerService) BeginSelection(ctx context.Context, sessionID, lessonID string) (*Selection, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	ticket := session.loader.Begin(context.WithoutCancel(ctx), lessonID, func() {
		session.beginLoad(lessonID)
	})
	return &Selection{session: session, ticket: ticket}, nil
}

// Wait fetches the lesson and applies it if this is still the newest
// selection. A superseded selection returns the current state and no error.
func (sel *Selection) Wait() (domain.PlayerState, error) {
	err := sel.ticket.Finish(sel.session.finishLoad)
	if errors.Is(err, domain.ErrLoadSuperseded) {
		sel.session.log.Debug("lesson load superseded", "error", err)
		return sel.session.State(), nil
	}
	return sel.session.State(), err
}

// Next advances one page; on the last page it completes the lesson.
func (s *PlayerService) Next(ctx context.Context, sessionID string) (domain.PlayerState, error) {
	return s.update(sessionID, func(session *Session) error { return session.forwardLocked(ctx) })
}

func (s *PlayerService) Back(_ context.Context, sessionID string) (domain.PlayerState, error) {
	return s.update(sessionID, (*Session).backLocked)
}

// Interact forwards a user action to the current page or activity.
func (s *PlayerService) Interact(_ context.Context, sessionID string, action interaction.Action) (domain.PlayerState, error) {
	return s.update(sessionID, func(session *Session) error { return session.interactLocked(action) })
}

// ExitLesson returns to lesson selection, abandoning any pending load.
func (s *PlayerService) ExitLesson(_ context.Context, sessionID string) (domain.PlayerState, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.PlayerState{}, domain.ErrSessionNotFound
	}
	session.loader.Cancel()
	return s.update(sessionID, func(session *Session) error {
		session.resetLocked()
		return nil
	})
}

func (s *PlayerService) SetMute(_ context.Context, sessionID string, muted bool) (domain.PlayerState, error) {
	return s.update(sessionID, func(session *Session) error {
		session.setMutedLocked(muted)
		return nil
	})
}

// StartActivity opens a standalone mini-game outside any lesson and tells the
// backend about it in the background.
func (s *PlayerService) StartActivity(ctx context.Context, sessionID, name string) (domain.PlayerState, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.PlayerState{}, domain.ErrSessionNotFound
	}
	session.loader.Cancel()
	state, err := s.update(sessionID, func(session *Session) error { return session.startActivityLocked(name) })
	if err != nil {
		return state, err
	}
	if s.opts.Sessions != nil {
		go session.registerActivity(context.WithoutCancel(ctx), s.opts.Sessions, name)
	}
	return state, nil
}

// State returns the current snapshot of a session.
func (s *PlayerService) State(_ context.Context, sessionID string) (domain.PlayerState, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.PlayerState{}, domain.ErrSessionNotFound
	}
	return session.State(), nil
}

func (s *PlayerService) update(sessionID string, fn func(*Session) error) (domain.PlayerState, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.PlayerState{}, domain.ErrSessionNotFound
	}
	return session.mutate(fn)
}
