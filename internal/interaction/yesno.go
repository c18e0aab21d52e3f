package interaction

import (
	"fmt"
	"strings"

	"sel-lesson-service/internal/domain"
)

// YesNoController takes a single yes/no pick.
type YesNoController struct {
	def        domain.YesNo
	onComplete CompletionFunc

	answer  string
	correct *bool
}

func newYesNo(def domain.YesNo, onComplete CompletionFunc) *YesNoController {
	return &YesNoController{def: def, onComplete: onComplete}
}

func (c *YesNoController) Kind() domain.InteractionKind { return domain.KindYesNo }

// Answer records "yes" or "no" and completes the page.
func (c *YesNoController) Answer(pick string) error {
	if c.answer != "" {
		return ErrAlreadySubmitted
	}
	pick = strings.ToLower(strings.TrimSpace(pick))
	if pick != domain.AnswerYes && pick != domain.AnswerNo {
		return fmt.Errorf("%w: answer %q", ErrInvalidInput, pick)
	}
	correct := EvaluateYesNo(c.def.CorrectAnswer, pick)
	c.answer = pick
	c.correct = boolPtr(correct)
	c.onComplete(Verdict{Completed: true, Correct: boolPtr(correct), Feedback: c.def.Text(correct)})
	return nil
}

func (c *YesNoController) Apply(a Action) error {
	if a.Type != ActionAnswer {
		return fmt.Errorf("%w: %s on %s", ErrUnsupportedAction, a.Type, c.Kind())
	}
	return c.Answer(a.Answer)
}

func (c *YesNoController) View() domain.InteractionView {
	v := domain.InteractionView{Kind: c.Kind(), Status: domain.StatusUnanswered, Answer: c.answer, Correct: c.correct}
	if c.answer != "" {
		v.Status = domain.StatusAnswered
	}
	return v
}

func (c *YesNoController) Close() {}
