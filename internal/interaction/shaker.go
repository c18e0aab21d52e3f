package interaction

import (
	"sort"
	"time"

	"sel-lesson-service/internal/clock"
)

// shaker keeps transient shake cues keyed by item id. Each cue clears itself
// after the configured duration; nothing about past failures is kept.
type shaker struct {
	clock    clock.Clock
	duration time.Duration
	active   map[string]*shakeCue
}

type shakeCue struct {
	timer clock.Timer
}

func newShaker(c clock.Clock, d time.Duration) *shaker {
	return &shaker{clock: c, duration: d, active: make(map[string]*shakeCue)}
}

func (s *shaker) shake(ids []string) {
	for _, id := range ids {
		id := id
		if prev, ok := s.active[id]; ok {
			prev.timer.Stop()
		}
		cue := &shakeCue{}
		s.active[id] = cue
		cue.timer = s.clock.AfterFunc(s.duration, func() {
			if s.active[id] == cue {
				delete(s.active, id)
			}
		})
	}
}

func (s *shaker) ids() []string {
	if len(s.active) == 0 {
		return nil
	}
	out := make([]string, 0, len(s.active))
	for id := range s.active {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (s *shaker) stop() {
	for id, cue := range s.active {
		cue.timer.Stop()
		delete(s.active, id)
	}
}
