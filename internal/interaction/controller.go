package interaction

import (
	"errors"
	"time"

	"sel-lesson-service/internal/activity"
	"sel-lesson-service/internal/clock"
	"sel-lesson-service/internal/domain"
)

var (
	// ErrInvalidInput covers out-of-range indexes, unknown ids and malformed orders.
	ErrInvalidInput = errors.New("invalid interaction input")
	// ErrUnsupportedAction is returned when an action does not apply to the live interaction.
	ErrUnsupportedAction = errors.New("action not supported by this interaction")
	// ErrAlreadySubmitted is returned for input after a terminal verdict.
	ErrAlreadySubmitted = errors.New("interaction already answered")
	// ErrWordUnavailable is returned when picking a bank word that sits in a slot.
	ErrWordUnavailable = errors.New("word is already placed")
)

// DefaultShakeDuration is how long a failing item keeps its shake cue.
const DefaultShakeDuration = 500 * time.Millisecond

// Verdict is what a controller reports upward. Correct is nil for
// interactions without a correctness concept.
type Verdict struct {
	Completed bool
	Correct   *bool
	Feedback  string
}

// CompletionFunc receives every verdict a controller produces.
type CompletionFunc func(Verdict)

// Controller owns the input state of one page interaction.
type Controller interface {
	Kind() domain.InteractionKind
	Apply(Action) error
	View() domain.InteractionView
	Close()
}

// Rand is the randomness a controller needs. *rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
}

// Layout describes the viewport the client reported.
type Layout struct {
	Narrow bool `json:"narrow"`
}

// Deps are the capabilities controllers are built with.
type Deps struct {
	Clock         clock.Clock
	Rand          Rand
	Layout        Layout
	ShakeDuration time.Duration
	Games         *activity.Registry
}

func (d Deps) withDefaults() Deps {
	if d.Clock == nil {
		d.Clock = clock.Real()
	}
	if d.Rand == nil {
		d.Rand = firstRand{}
	}
	if d.ShakeDuration <= 0 {
		d.ShakeDuration = DefaultShakeDuration
	}
	return d
}

// firstRand always picks zero; used when no randomness source is wired.
type firstRand struct{}

func (firstRand) Intn(int) int { return 0 }

// ActionType names a user command against the live interaction.
type ActionType string

const (
	ActionPick       ActionType = "pick"
	ActionToggle     ActionType = "toggle"
	ActionAnswer     ActionType = "answer"
	ActionSubmit     ActionType = "submit"
	ActionMove       ActionType = "move"
	ActionReorder    ActionType = "reorder"
	ActionSwap       ActionType = "swap"
	ActionSelectSlot ActionType = "selectSlot"
	ActionPickWord   ActionType = "pickWord"
	ActionClearSlot  ActionType = "clearSlot"
	ActionDone       ActionType = "done"
	ActionGame       ActionType = "game"
)

// Action is the transport-neutral form of a user command. Only the fields
// relevant to Type are read.
type Action struct {
	Type   ActionType      `json:"action"`
	Index  int             `json:"index"`
	To     int             `json:"to"`
	Answer string          `json:"answer,omitempty"`
	ItemID domain.ItemID   `json:"itemId,omitempty"`
	Bucket string          `json:"bucket,omitempty"`
	Order  []domain.ItemID `json:"order,omitempty"`
	Game   string          `json:"game,omitempty"`
}

func boolPtr(b bool) *bool { return &b }
