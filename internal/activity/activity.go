package activity

import (
	"errors"
	"sort"
	"sync"

	"sel-lesson-service/internal/clock"
	"sel-lesson-service/internal/domain"
)

// ErrUnknownAction is returned when a game does not understand an action.
var ErrUnknownAction = errors.New("unknown activity action")

// Game is a server-driven mini-game. Start is called once; onDone fires at
// most once. Stop cancels pending timers when the player walks away.
type Game interface {
	Start(onDone func())
	Handle(action string) error
	View() domain.ActivityView
	Stop()
}

// Factory builds a game from page settings.
type Factory func(settings map[string]any, clk clock.Clock) Game

// Registry maps activity names to game factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry registers the built-in games.
func DefaultRegistry(cfg Config) *Registry {
	r := NewRegistry()
	r.Register(BreathingName, func(settings map[string]any, clk clock.Clock) Game {
		return NewBreathingPacer(cfg.Breathing.Override(settings), clk)
	})
	r.Register(CountingName, func(settings map[string]any, _ clock.Clock) Game {
		return NewCounter(intSetting(settings, "target", cfg.CountingTarget))
	})
	return r
}

func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// New builds the named game. ok is false for names the registry does not know.
func (r *Registry) New(name string, settings map[string]any, clk clock.Clock) (Game, bool) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return f(settings, clk), true
}

// Names lists registered games, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// intSetting reads a numeric page setting. JSON numbers arrive as float64,
// YAML ones as int.
func intSetting(settings map[string]any, key string, fallback int) int {
	switch v := settings[key].(type) {
	case float64:
		if v > 0 {
			return int(v)
		}
	case int:
		if v > 0 {
			return v
		}
	}
	return fallback
}
