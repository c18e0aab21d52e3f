package interaction

import (
	"fmt"
	"sort"

	"sel-lesson-service/internal/domain"
)

// MultiSelectController toggles a subset of options and grades it once.
type MultiSelectController struct {
	def        domain.MultiSelect
	onComplete CompletionFunc

	selected  map[int]bool
	submitted bool
	correct   *bool
}

func newMultiSelect(def domain.MultiSelect, onComplete CompletionFunc) *MultiSelectController {
	return &MultiSelectController{def: def, onComplete: onComplete, selected: make(map[int]bool)}
}

func (c *MultiSelectController) Kind() domain.InteractionKind { return domain.KindMS }

// Toggle flips option i in or out of the selection.
func (c *MultiSelectController) Toggle(i int) error {
	if c.submitted {
		return ErrAlreadySubmitted
	}
	if i < 0 || i >= len(c.def.Options) {
		return fmt.Errorf("%w: option %d of %d", ErrInvalidInput, i, len(c.def.Options))
	}
	if c.selected[i] {
		delete(c.selected, i)
	} else {
		c.selected[i] = true
	}
	return nil
}

// Submit grades the selection. It is terminal whatever the verdict.
func (c *MultiSelectController) Submit() (bool, error) {
	if c.submitted {
		return false, ErrAlreadySubmitted
	}
	correct := EvaluateMultiSelect(c.def.Options, c.selected)
	c.submitted = true
	c.correct = boolPtr(correct)
	c.onComplete(Verdict{Completed: true, Correct: boolPtr(correct), Feedback: c.def.Text(correct)})
	return correct, nil
}

func (c *MultiSelectController) Apply(a Action) error {
	switch a.Type {
	case ActionToggle:
		return c.Toggle(a.Index)
	case ActionSubmit:
		_, err := c.Submit()
		return err
	default:
		return fmt.Errorf("%w: %s on %s", ErrUnsupportedAction, a.Type, c.Kind())
	}
}

func (c *MultiSelectController) View() domain.InteractionView {
	v := domain.InteractionView{Kind: c.Kind(), Status: domain.StatusInProgress, Correct: c.correct}
	if c.submitted {
		v.Status = domain.StatusSubmitted
	}
	for i := range c.selected {
		v.Selected = append(v.Selected, i)
	}
	sort.Ints(v.Selected)
	return v
}

func (c *MultiSelectController) Close() {}
