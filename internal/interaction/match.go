package interaction

import (
	"fmt"

	"sel-lesson-service/internal/domain"
)

// MatchController orders items against fixed labels; position k faces
// Labels[k].
type MatchController struct {
	def        domain.MatchOrder
	onComplete CompletionFunc
	shaker     *shaker

	order     []domain.MatchItem
	submitted bool
}

func newMatch(def domain.MatchOrder, deps Deps, onComplete CompletionFunc) *MatchController {
	order := make([]domain.MatchItem, len(def.Items))
	copy(order, def.Items)
	return &MatchController{
		def:        def,
		onComplete: onComplete,
		shaker:     newShaker(deps.Clock, deps.ShakeDuration),
		order:      order,
	}
}

func (c *MatchController) Kind() domain.InteractionKind { return domain.KindDnDMatch }

// Order returns the item ids in their current positions.
func (c *MatchController) Order() []domain.ItemID {
	ids := make([]domain.ItemID, len(c.order))
	for i, item := range c.order {
		ids[i] = item.ID
	}
	return ids
}

// Reorder replaces the whole ordering. ids must be a permutation of the items.
func (c *MatchController) Reorder(ids []domain.ItemID) error {
	if c.submitted {
		return ErrAlreadySubmitted
	}
	if len(ids) != len(c.def.Items) {
		return fmt.Errorf("%w: order has %d items, want %d", ErrInvalidInput, len(ids), len(c.def.Items))
	}
	byID := make(map[domain.ItemID]domain.MatchItem, len(c.def.Items))
	for _, item := range c.def.Items {
		byID[item.ID] = item
	}
	next := make([]domain.MatchItem, 0, len(ids))
	for _, id := range ids {
		item, ok := byID[id]
		if !ok {
			return fmt.Errorf("%w: unknown or repeated item %s", ErrInvalidInput, id)
		}
		delete(byID, id)
		next = append(next, item)
	}
	c.order = next
	return nil
}

// Swap exchanges the items at positions i and j.
func (c *MatchController) Swap(i, j int) error {
	if c.submitted {
		return ErrAlreadySubmitted
	}
	if i < 0 || j < 0 || i >= len(c.order) || j >= len(c.order) {
		return fmt.Errorf("%w: swap %d with %d", ErrInvalidInput, i, j)
	}
	c.order[i], c.order[j] = c.order[j], c.order[i]
	return nil
}

// MoveTo drags one item to position pos, shifting the others.
func (c *MatchController) MoveTo(id domain.ItemID, pos int) error {
	if c.submitted {
		return ErrAlreadySubmitted
	}
	from := -1
	for i, item := range c.order {
		if item.ID == id {
			from = i
			break
		}
	}
	if from < 0 || pos < 0 || pos >= len(c.order) {
		return fmt.Errorf("%w: move %s to %d", ErrInvalidInput, id, pos)
	}
	item := c.order[from]
	rest := append(append([]domain.MatchItem{}, c.order[:from]...), c.order[from+1:]...)
	next := append(append(append([]domain.MatchItem{}, rest[:pos]...), item), rest[pos:]...)
	c.order = next
	return nil
}

// Submit checks every position. Mismatches shake and may be retried.
func (c *MatchController) Submit() ([]domain.ItemID, error) {
	if c.submitted {
		return nil, ErrAlreadySubmitted
	}
	failed := MatchFailures(c.def.Labels, c.order)
	if len(failed) > 0 {
		c.shaker.shake(itemIDStrings(failed))
		return failed, nil
	}
	c.submitted = true
	c.shaker.stop()
	c.onComplete(Verdict{Completed: true})
	return nil, nil
}

func (c *MatchController) Apply(a Action) error {
	switch a.Type {
	case ActionReorder:
		return c.Reorder(a.Order)
	case ActionSwap:
		return c.Swap(a.Index, a.To)
	case ActionMove:
		return c.MoveTo(a.ItemID, a.Index)
	case ActionSubmit:
		_, err := c.Submit()
		return err
	default:
		return fmt.Errorf("%w: %s on %s", ErrUnsupportedAction, a.Type, c.Kind())
	}
}

func (c *MatchController) View() domain.InteractionView {
	v := domain.InteractionView{
		Kind:    c.Kind(),
		Status:  domain.StatusInProgress,
		Order:   c.Order(),
		Shaking: c.shaker.ids(),
	}
	if c.submitted {
		v.Status = domain.StatusSubmitted
	}
	return v
}

func (c *MatchController) Close() { c.shaker.stop() }
