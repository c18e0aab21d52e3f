package activity

import (
	"fmt"
	"time"

	"sel-lesson-service/internal/clock"
	"sel-lesson-service/internal/domain"
)

const BreathingName = "breathing"

const (
	PhaseInhale = "inhale"
	PhaseHold   = "hold"
	PhaseExhale = "exhale"
	PhaseDone   = "done"
)

type phase struct {
	name string
	dur  time.Duration
}

// BreathingPacer walks inhale, hold and exhale phases on a clock for a fixed
// number of cycles.
type BreathingPacer struct {
	clock  clock.Clock
	phases []phase
	cycles int

	cycle   int
	current int
	timer   clock.Timer
	onDone  func()
	done    bool
	stopped bool
}

func NewBreathingPacer(cfg BreathingConfig, clk clock.Clock) *BreathingPacer {
	var phases []phase
	for _, p := range []phase{{PhaseInhale, cfg.Inhale}, {PhaseHold, cfg.Hold}, {PhaseExhale, cfg.Exhale}} {
		if p.dur > 0 {
			phases = append(phases, p)
		}
	}
	if len(phases) == 0 {
		phases = []phase{{PhaseInhale, time.Second}, {PhaseExhale, time.Second}}
	}
	cycles := cfg.Cycles
	if cycles <= 0 {
		cycles = 1
	}
	return &BreathingPacer{clock: clk, phases: phases, cycles: cycles}
}

func (b *BreathingPacer) Start(onDone func()) {
	b.onDone = onDone
	b.cycle = 1
	b.current = 0
	b.schedule()
}

func (b *BreathingPacer) schedule() {
	b.timer = b.clock.AfterFunc(b.phases[b.current].dur, b.advance)
}

func (b *BreathingPacer) advance() {
	if b.stopped || b.done {
		return
	}
	b.current++
	if b.current == len(b.phases) {
		b.current = 0
		b.cycle++
	}
	if b.cycle > b.cycles {
		b.done = true
		b.cycle = b.cycles
		if b.onDone != nil {
			b.onDone()
		}
		return
	}
	b.schedule()
}

// Phase returns the phase currently shown.
func (b *BreathingPacer) Phase() string {
	if b.done {
		return PhaseDone
	}
	return b.phases[b.current].name
}

func (b *BreathingPacer) Handle(action string) error {
	return fmt.Errorf("%w: %q", ErrUnknownAction, action)
}

func (b *BreathingPacer) View() domain.ActivityView {
	return domain.ActivityView{
		Name:         BreathingName,
		ServerDriven: true,
		Phase:        b.Phase(),
		Cycle:        b.cycle,
		Cycles:       b.cycles,
		Done:         b.done,
	}
}

func (b *BreathingPacer) Stop() {
	b.stopped = true
	if b.timer != nil {
		b.timer.Stop()
	}
}
