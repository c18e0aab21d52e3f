package activity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sel-lesson-service/internal/clock"
)

func TestBreathingPacerWalksPhases(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	pacer := NewBreathingPacer(BreathingConfig{Inhale: time.Second, Exhale: 2 * time.Second, Cycles: 2}, clk)

	doneCalls := 0
	pacer.Start(func() { doneCalls++ })
	assert.Equal(t, PhaseInhale, pacer.Phase())

	clk.Advance(time.Second)
	assert.Equal(t, PhaseExhale, pacer.Phase())
	assert.Equal(t, 1, pacer.View().Cycle)

	clk.Advance(2 * time.Second)
	assert.Equal(t, PhaseInhale, pacer.Phase())
	assert.Equal(t, 2, pacer.View().Cycle)

	clk.Advance(10 * time.Second)
	assert.Equal(t, PhaseDone, pacer.Phase())
	assert.True(t, pacer.View().Done)
	assert.Equal(t, 1, doneCalls)
	assert.Equal(t, 0, clk.Pending())
}

func TestBreathingPacerStopCancelsCompletion(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	pacer := NewBreathingPacer(DefaultBreathingConfig(), clk)

	called := false
	pacer.Start(func() { called = true })
	clk.Advance(5 * time.Second)
	pacer.Stop()
	clk.Advance(time.Hour)

	assert.False(t, called)
	assert.Equal(t, 0, clk.Pending())
}

func TestBreathingOverrideFromSettings(t *testing.T) {
	cfg := DefaultBreathingConfig().Override(map[string]any{"cycles": float64(1), "holdSeconds": float64(0)})
	assert.Equal(t, 1, cfg.Cycles)
	assert.Equal(t, time.Duration(0), cfg.Hold)
	assert.Equal(t, 4*time.Second, cfg.Inhale)
}

func TestCounterCompletesOnce(t *testing.T) {
	counter := NewCounter(2)
	calls := 0
	counter.Start(func() { calls++ })

	require.NoError(t, counter.Handle(ActionTap))
	assert.False(t, counter.View().Done)
	require.NoError(t, counter.Handle(ActionTap))
	require.NoError(t, counter.Handle(ActionTap))

	assert.Equal(t, 1, calls)
	assert.Equal(t, 2, counter.View().Count)
	assert.ErrorIs(t, counter.Handle("shake"), ErrUnknownAction)
}

func TestRegistry(t *testing.T) {
	reg := DefaultRegistry(DefaultConfig())
	assert.Equal(t, []string{BreathingName, CountingName}, reg.Names())

	game, ok := reg.New(CountingName, map[string]any{"target": float64(3)}, clock.Real())
	require.True(t, ok)
	assert.Equal(t, 3, game.View().Target)

	_, ok = reg.New("coloring", nil, clock.Real())
	assert.False(t, ok)
}
