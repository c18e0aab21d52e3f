package interaction

import (
	"fmt"

	"sel-lesson-service/internal/domain"
)

// ChoiceController runs a multiple-choice question. Wrong picks may be
// retried; the first correct pick is terminal.
type ChoiceController struct {
	def        domain.MultipleChoice
	onComplete CompletionFunc

	selected *int
	correct  *bool
	answered bool
}

func newChoice(def domain.MultipleChoice, onComplete CompletionFunc) *ChoiceController {
	return &ChoiceController{def: def, onComplete: onComplete}
}

func (c *ChoiceController) Kind() domain.InteractionKind { return domain.KindMC }

// Pick selects option i and reports the verdict.
func (c *ChoiceController) Pick(i int) error {
	if c.answered {
		return ErrAlreadySubmitted
	}
	correct, err := EvaluateChoice(c.def.Options, i)
	if err != nil {
		return err
	}
	c.selected = &i
	c.correct = boolPtr(correct)
	if correct {
		c.answered = true
		c.onComplete(Verdict{Completed: true, Correct: boolPtr(true), Feedback: c.def.CorrectText})
		return nil
	}
	c.onComplete(Verdict{Completed: false, Correct: boolPtr(false), Feedback: c.def.IncorrectText})
	return nil
}

func (c *ChoiceController) Apply(a Action) error {
	if a.Type != ActionPick {
		return fmt.Errorf("%w: %s on %s", ErrUnsupportedAction, a.Type, c.Kind())
	}
	return c.Pick(a.Index)
}

func (c *ChoiceController) View() domain.InteractionView {
	v := domain.InteractionView{Kind: c.Kind(), Status: domain.StatusUnanswered, Correct: c.correct}
	if c.answered {
		v.Status = domain.StatusAnswered
	}
	if c.selected != nil {
		v.Selected = []int{*c.selected}
	}
	return v
}

func (c *ChoiceController) Close() {}
