package interaction

import (
	"fmt"
	"strconv"

	"sel-lesson-service/internal/domain"
)

const emptySlot = -1

// FillBlankController places word bank entries into row slots. A slot holds
// a bank index, so repeated words stay distinguishable.
type FillBlankController struct {
	def        domain.FillBlank
	onComplete CompletionFunc
	shaker     *shaker

	bank        []domain.BankWord
	slots       []int
	activeSlot  *int
	pendingWord *int
	submitted   bool
}

func newFillBlank(def domain.FillBlank, deps Deps, onComplete CompletionFunc) *FillBlankController {
	bank := make([]domain.BankWord, len(def.WordBank))
	for i, w := range def.WordBank {
		bank[i] = domain.BankWord{Index: i, Word: w}
	}
	for i := len(bank) - 1; i > 0; i-- {
		j := deps.Rand.Intn(i + 1)
		bank[i], bank[j] = bank[j], bank[i]
	}
	slots := make([]int, len(def.Rows))
	for i := range slots {
		slots[i] = emptySlot
	}
	return &FillBlankController{
		def:        def,
		onComplete: onComplete,
		shaker:     newShaker(deps.Clock, deps.ShakeDuration),
		bank:       bank,
		slots:      slots,
	}
}

func (c *FillBlankController) Kind() domain.InteractionKind { return domain.KindFillBlank }

// SelectSlot targets a row. If a word was picked first it lands here;
// otherwise the row waits for a word. Selecting the active row again
// deselects it.
func (c *FillBlankController) SelectSlot(row int) error {
	if c.submitted {
		return ErrAlreadySubmitted
	}
	if row < 0 || row >= len(c.slots) {
		return fmt.Errorf("%w: row %d of %d", ErrInvalidInput, row, len(c.slots))
	}
	if c.pendingWord != nil {
		c.slots[row] = *c.pendingWord
		c.pendingWord = nil
		return nil
	}
	if c.activeSlot != nil && *c.activeSlot == row {
		c.activeSlot = nil
		return nil
	}
	c.activeSlot = &row
	return nil
}

// PickWord takes bank entry index. With a row selected the word lands there;
// otherwise it waits for a row.
func (c *FillBlankController) PickWord(index int) error {
	if c.submitted {
		return ErrAlreadySubmitted
	}
	if index < 0 || index >= len(c.def.WordBank) {
		return fmt.Errorf("%w: word %d of %d", ErrInvalidInput, index, len(c.def.WordBank))
	}
	if c.slotOf(index) != emptySlot {
		return ErrWordUnavailable
	}
	if c.activeSlot != nil {
		c.slots[*c.activeSlot] = index
		c.activeSlot = nil
		return nil
	}
	c.pendingWord = &index
	return nil
}

// ClearSlot returns a row's word to the bank.
func (c *FillBlankController) ClearSlot(row int) error {
	if c.submitted {
		return ErrAlreadySubmitted
	}
	if row < 0 || row >= len(c.slots) {
		return fmt.Errorf("%w: row %d of %d", ErrInvalidInput, row, len(c.slots))
	}
	c.slots[row] = emptySlot
	return nil
}

// Remaining lists the bank words not sitting in any slot, in display order.
func (c *FillBlankController) Remaining() []domain.BankWord {
	out := make([]domain.BankWord, 0, len(c.bank))
	for _, w := range c.bank {
		if c.slotOf(w.Index) == emptySlot {
			out = append(out, w)
		}
	}
	return out
}

// Assigned returns the word in each row, "" for empty rows.
func (c *FillBlankController) Assigned() []string {
	out := make([]string, len(c.slots))
	for r, idx := range c.slots {
		if idx != emptySlot {
			out[r] = c.def.WordBank[idx]
		}
	}
	return out
}

// Submit grades every row. Failing rows shake and may be retried.
func (c *FillBlankController) Submit() ([]int, error) {
	if c.submitted {
		return nil, ErrAlreadySubmitted
	}
	failed := FillBlankFailures(c.def.Rows, c.Assigned())
	if len(failed) > 0 {
		ids := make([]string, len(failed))
		for i, r := range failed {
			ids[i] = strconv.Itoa(r)
		}
		c.shaker.shake(ids)
		return failed, nil
	}
	c.submitted = true
	c.activeSlot, c.pendingWord = nil, nil
	c.shaker.stop()
	c.onComplete(Verdict{Completed: true})
	return nil, nil
}

func (c *FillBlankController) Apply(a Action) error {
	switch a.Type {
	case ActionSelectSlot:
		return c.SelectSlot(a.Index)
	case ActionPickWord:
		return c.PickWord(a.Index)
	case ActionClearSlot:
		return c.ClearSlot(a.Index)
	case ActionSubmit:
		_, err := c.Submit()
		return err
	default:
		return fmt.Errorf("%w: %s on %s", ErrUnsupportedAction, a.Type, c.Kind())
	}
}

func (c *FillBlankController) View() domain.InteractionView {
	v := domain.InteractionView{
		Kind:        c.Kind(),
		Status:      domain.StatusInProgress,
		Slots:       append([]int(nil), c.slots...),
		Bank:        append([]domain.BankWord(nil), c.bank...),
		Remaining:   c.Remaining(),
		ActiveSlot:  c.activeSlot,
		PendingWord: c.pendingWord,
		Shaking:     c.shaker.ids(),
	}
	if c.submitted {
		v.Status = domain.StatusSubmitted
	}
	return v
}

func (c *FillBlankController) Close() { c.shaker.stop() }

func (c *FillBlankController) slotOf(index int) int {
	for r, idx := range c.slots {
		if idx == index {
			return r
		}
	}
	return emptySlot
}
