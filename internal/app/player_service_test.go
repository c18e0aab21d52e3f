package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sel-lesson-service/internal/activity"
	"sel-lesson-service/internal/app"
	"sel-lesson-service/internal/clock"
	"sel-lesson-service/internal/domain"
	"sel-lesson-service/internal/infra/memory"
	"sel-lesson-service/internal/interaction"
	"sel-lesson-service/internal/player"
)

type fakeBackend struct {
	mu         sync.Mutex
	activities []string
	completed  []string
}

func (f *fakeBackend) StartActivity(_ context.Context, _ string, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activities = append(f.activities, name)
	return "act-42", nil
}

func (f *fakeBackend) CompleteLesson(_ context.Context, lessonID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, lessonID)
	return nil
}

func (f *fakeBackend) completedLessons() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.completed...)
}

type fixture struct {
	service *app.PlayerService
	store   *memory.SessionStore
	clock   *clock.Fake
	backend *fakeBackend
	ledger  *memory.Ledger
}

func newFixture(t *testing.T, repo player.LessonRepository) *fixture {
	t.Helper()
	f := &fixture{
		store:   memory.NewSessionStore(),
		clock:   clock.NewFake(time.Unix(1700000000, 0)),
		backend: &fakeBackend{},
		ledger:  memory.NewLedger(),
	}
	if repo == nil {
		repo = memory.NewLessonRepository(memory.NewStaticRegistry(feelingsLesson(), sortingLesson()), time.Minute)
	}
	f.service = app.NewPlayerService(f.store, repo, app.Options{
		Clock:         f.clock,
		Seed:          7,
		ShakeDuration: 500 * time.Millisecond,
		Games:         activity.DefaultRegistry(activity.DefaultConfig()),
		Sessions:      f.backend,
		Ledger:        f.ledger,
	})
	return f
}

func feelingsLesson() domain.LessonDocument {
	return domain.LessonDocument{
		ID:    "feelings",
		Title: "Naming feelings",
		Pages: []domain.Page{
			{ID: "intro", Content: domain.PageContent{Title: "Welcome", Body: "Let's talk about feelings", Interaction: domain.Next{}}},
			{ID: "q", Content: domain.PageContent{Title: "Pick one", Interaction: domain.MultipleChoice{
				Options:      []domain.Option{{Text: "frown"}, {Text: "smile", IsCorrect: true}},
				FeedbackText: domain.FeedbackText{CorrectText: "Yes!", IncorrectText: "Not quite"},
			}}},
			{ID: "end", Content: domain.PageContent{Title: "Great work"}},
		},
	}
}

func sortingLesson() domain.LessonDocument {
	happy, sad := "happy", "sad"
	return domain.LessonDocument{
		ID:    "sorting",
		Title: "Sorting",
		Pages: []domain.Page{
			{ID: "sort", Content: domain.PageContent{Title: "Sort them", Interaction: domain.BucketSort{
				Categories: []string{happy, sad},
				Items: []domain.BucketItem{
					{ID: "sun", Text: "Sunny day", CorrectCategory: &happy},
					{ID: "rain", Text: "Lost toy", CorrectCategory: &sad},
				},
			}}},
		},
	}
}

func TestPlayLessonToCompletion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	state := f.service.Open(ctx, "s1")
	assert.Equal(t, domain.ModeSelecting, state.Mode)
	assert.Empty(t, state.CompletedLessons)

	state, err := f.service.SelectLesson(ctx, "s1", "feelings")
	require.NoError(t, err)
	assert.Equal(t, domain.ModePlaying, state.Mode)
	assert.Equal(t, 0, state.PageIndex)
	assert.Equal(t, 3, state.PageCount)
	assert.True(t, state.CanNext)
	assert.False(t, state.CanBack)

	state, err = f.service.Next(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, state.PageIndex)
	assert.False(t, state.CanNext)

	state, err = f.service.Next(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrNavigationLocked)
	assert.Equal(t, 1, state.PageIndex)

	state, err = f.service.Interact(ctx, "s1", interaction.Action{Type: interaction.ActionPick, Index: 0})
	require.NoError(t, err)
	require.NotNil(t, state.Feedback)
	assert.False(t, state.Feedback.IsCorrect)
	assert.False(t, state.CanNext)

	state, err = f.service.Interact(ctx, "s1", interaction.Action{Type: interaction.ActionPick, Index: 1})
	require.NoError(t, err)
	assert.Equal(t, &domain.Feedback{IsCorrect: true, Text: "Yes!"}, state.Feedback)
	assert.True(t, state.CanNext)

	state, err = f.service.Next(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, state.PageIndex)
	assert.Nil(t, state.Feedback)
	assert.False(t, state.ActivityCompleted)

	state, err = f.service.Next(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.ModeSelecting, state.Mode)
	assert.Equal(t, []string{"feelings"}, state.CompletedLessons)

	require.Eventually(t, func() bool {
		return len(f.backend.completedLessons()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		ids, _ := f.ledger.Completed(ctx, "s1")
		return len(ids) == 1 && ids[0] == "feelings"
	}, 2*time.Second, 10*time.Millisecond)

	_, err = f.service.Next(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrNoActiveLesson)
}

func TestOpenRestoresCompletedLessons(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	require.NoError(t, f.ledger.MarkCompleted(ctx, "s1", "sorting"))

	state := f.service.Open(ctx, "s1")
	assert.Equal(t, []string{"sorting"}, state.CompletedLessons)
}

func TestSelectUnknownLesson(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.service.Open(ctx, "s1")

	state, err := f.service.SelectLesson(ctx, "s1", "missing")
	assert.ErrorIs(t, err, domain.ErrLessonNotFound)
	assert.Equal(t, domain.ModeSelecting, state.Mode)
	assert.NotEmpty(t, state.LoadError)
	assert.Empty(t, state.LessonID)
}

func TestCommandsRequireOpenSession(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.service.Next(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, _, err = f.service.Subscribe(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

type blockingRepo struct {
	inner   *memory.Registry
	started chan string
	gates   map[string]chan struct{}
}

func (r *blockingRepo) GetLesson(ctx context.Context, id string) (domain.LessonDocument, error) {
	r.started <- id
	if gate, ok := r.gates[id]; ok {
		<-gate
	}
	return r.inner.LoadLesson(ctx, id)
}

func TestNewestSelectionWins(t *testing.T) {
	ctx := context.Background()
	repo := &blockingRepo{
		inner:   memory.NewStaticRegistry(feelingsLesson(), sortingLesson()),
		started: make(chan string, 2),
		gates:   map[string]chan struct{}{"feelings": make(chan struct{})},
	}
	f := newFixture(t, repo)
	f.service.Open(ctx, "s1")

	first := make(chan error, 1)
	go func() {
		_, err := f.service.SelectLesson(ctx, "s1", "feelings")
		first <- err
	}()
	require.Equal(t, "feelings", <-repo.started)

	state, err := f.service.SelectLesson(ctx, "s1", "sorting")
	require.NoError(t, err)
	require.Equal(t, "sorting", <-repo.started)
	assert.Equal(t, "sorting", state.LessonID)

	close(repo.gates["feelings"])
	require.NoError(t, <-first)

	state, err = f.service.State(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.ModePlaying, state.Mode)
	assert.Equal(t, "sorting", state.LessonID)
	assert.Equal(t, "Sorting", state.LessonTitle)
}

func TestExitDuringLoadKeepsSelection(t *testing.T) {
	ctx := context.Background()
	repo := &blockingRepo{
		inner:   memory.NewStaticRegistry(feelingsLesson()),
		started: make(chan string, 1),
		gates:   map[string]chan struct{}{"feelings": make(chan struct{})},
	}
	f := newFixture(t, repo)
	f.service.Open(ctx, "s1")

	done := make(chan error, 1)
	go func() {
		_, err := f.service.SelectLesson(ctx, "s1", "feelings")
		done <- err
	}()
	<-repo.started

	state, err := f.service.ExitLesson(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.ModeSelecting, state.Mode)

	close(repo.gates["feelings"])
	require.NoError(t, <-done)
	state, _ = f.service.State(ctx, "s1")
	assert.Equal(t, domain.ModeSelecting, state.Mode)
}

func TestSelectionOrderFollowsBegin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.service.Open(ctx, "s1")

	first, err := f.service.BeginSelection(ctx, "s1", "feelings")
	require.NoError(t, err)
	second, err := f.service.BeginSelection(ctx, "s1", "sorting")
	require.NoError(t, err)

	state, err := second.Wait()
	require.NoError(t, err)
	assert.Equal(t, "sorting", state.LessonID)

	state, err = first.Wait()
	require.NoError(t, err)
	assert.Equal(t, "sorting", state.LessonID)
	assert.Equal(t, domain.ModePlaying, state.Mode)
}

// cancelAwareRepo blocks until released or until the fetch context ends.
type cancelAwareRepo struct {
	inner   *memory.Registry
	started chan struct{}
	release chan struct{}
}

func (r *cancelAwareRepo) GetLesson(ctx context.Context, id string) (domain.LessonDocument, error) {
	close(r.started)
	select {
	case <-r.release:
		return r.inner.LoadLesson(ctx, id)
	case <-ctx.Done():
		return domain.LessonDocument{}, ctx.Err()
	}
}

func TestCallerGoingAwayDoesNotFailLoad(t *testing.T) {
	repo := &cancelAwareRepo{
		inner:   memory.NewStaticRegistry(feelingsLesson()),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	f := newFixture(t, repo)
	f.service.Open(context.Background(), "s1")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := f.service.SelectLesson(ctx, "s1", "feelings")
		done <- err
	}()
	<-repo.started
	cancel()
	close(repo.release)
	require.NoError(t, <-done)

	state, err := f.service.State(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.ModePlaying, state.Mode)
	assert.Equal(t, "feelings", state.LessonID)
	assert.Empty(t, state.LoadError)
}

func TestSubscribeToClosedSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.service.Open(ctx, "s1")
	session, ok := f.store.Get("s1")
	require.True(t, ok)
	session.Close()

	_, _, err := f.service.Subscribe(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestShakeCueClearsAndIsBroadcast(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.service.Open(ctx, "s1")
	events, cancel, err := f.service.Subscribe(ctx, "s1")
	require.NoError(t, err)
	defer cancel()
	drain(events)

	_, err = f.service.SelectLesson(ctx, "s1", "sorting")
	require.NoError(t, err)
	_, err = f.service.Interact(ctx, "s1", interaction.Action{Type: interaction.ActionMove, ItemID: "sun", Bucket: "sad"})
	require.NoError(t, err)
	state, err := f.service.Interact(ctx, "s1", interaction.Action{Type: interaction.ActionSubmit})
	require.NoError(t, err)
	assert.Equal(t, []string{"rain", "sun"}, state.Interaction.Shaking)
	assert.False(t, state.CanNext)
	drain(events)

	f.clock.Advance(500 * time.Millisecond)
	evs := drain(events)
	require.NotEmpty(t, evs)
	last := evs[len(evs)-1]
	require.Equal(t, domain.EventState, last.Type)
	assert.Empty(t, last.State.Interaction.Shaking)
	assert.Equal(t, domain.StatusInProgress, last.State.Interaction.Status)

	_, err = f.service.Interact(ctx, "s1", interaction.Action{Type: interaction.ActionMove, ItemID: "sun", Bucket: "happy"})
	require.NoError(t, err)
	_, err = f.service.Interact(ctx, "s1", interaction.Action{Type: interaction.ActionMove, ItemID: "rain", Bucket: "sad"})
	require.NoError(t, err)
	state, err = f.service.Interact(ctx, "s1", interaction.Action{Type: interaction.ActionSubmit})
	require.NoError(t, err)
	assert.True(t, state.CanNext)
	assert.Empty(t, state.Interaction.Shaking)
}

func TestSpeechFollowsMute(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.service.Open(ctx, "s1")
	events, cancel, err := f.service.Subscribe(ctx, "s1")
	require.NoError(t, err)
	defer cancel()
	drain(events)

	_, err = f.service.SelectLesson(ctx, "s1", "feelings")
	require.NoError(t, err)
	assert.Contains(t, speechOf(drain(events)), "Welcome. Let's talk about feelings")

	state, err := f.service.SetMute(ctx, "s1", true)
	require.NoError(t, err)
	assert.True(t, state.Muted)
	drain(events)

	_, err = f.service.Next(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, speechOf(drain(events)))
}

func TestStandaloneActivity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.service.Open(ctx, "s1")

	state, err := f.service.StartActivity(ctx, "s1", activity.BreathingName)
	require.NoError(t, err)
	assert.Equal(t, domain.ModeActivity, state.Mode)
	require.NotNil(t, state.Activity)
	assert.Equal(t, activity.PhaseInhale, state.Activity.Phase)

	require.Eventually(t, func() bool {
		st, _ := f.service.State(ctx, "s1")
		return st.ActivityID == "act-42"
	}, 2*time.Second, 10*time.Millisecond)

	f.clock.Advance(4 * time.Second)
	state, _ = f.service.State(ctx, "s1")
	assert.Equal(t, activity.PhaseHold, state.Activity.Phase)

	f.clock.Advance(time.Minute)
	state, _ = f.service.State(ctx, "s1")
	assert.True(t, state.Activity.Done)

	_, err = f.service.Interact(ctx, "s1", interaction.Action{Type: interaction.ActionPick})
	assert.ErrorIs(t, err, interaction.ErrUnsupportedAction)

	state, err = f.service.ExitLesson(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.ModeSelecting, state.Mode)
	assert.Nil(t, state.Activity)
}

func TestUnknownActivity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.service.Open(ctx, "s1")

	state, err := f.service.StartActivity(ctx, "s1", "juggling")
	assert.True(t, errors.Is(err, domain.ErrUnknownActivity))
	assert.Equal(t, domain.ModeSelecting, state.Mode)
}

func TestLeaveDropsIdleSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.service.Open(ctx, "s1")
	events, cancel, err := f.service.Subscribe(ctx, "s1")
	require.NoError(t, err)

	f.service.Leave(ctx, "s1")
	_, ok := f.store.Get("s1")
	assert.True(t, ok, "subscribed session must stay")

	cancel()
	f.service.Leave(ctx, "s1")
	_, ok = f.store.Get("s1")
	assert.False(t, ok)

	drain(events)
	_, open := <-events
	assert.False(t, open)
}

func drain(ch <-chan domain.Event) []domain.Event {
	var out []domain.Event
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, ev)
		default:
			return out
		}
	}
}

func speechOf(events []domain.Event) []string {
	var out []string
	for _, ev := range events {
		if ev.Type == domain.EventSpeak {
			out = append(out, ev.Text)
		}
	}
	return out
}
