package interaction

import (
	"fmt"

	"sel-lesson-service/internal/domain"
)

// BucketController sorts items into category buckets.
type BucketController struct {
	def        domain.BucketSort
	onComplete CompletionFunc
	shaker     *shaker

	placement map[domain.ItemID]string
	submitted bool
}

func newBucket(def domain.BucketSort, deps Deps, onComplete CompletionFunc) *BucketController {
	c := &BucketController{
		def:        def,
		onComplete: onComplete,
		shaker:     newShaker(deps.Clock, deps.ShakeDuration),
		placement:  make(map[domain.ItemID]string, len(def.Items)),
	}
	// Narrow screens have no room for a pool, so items start in one of the
	// first two buckets instead.
	scatter := deps.Layout.Narrow && len(def.Categories) > 1
	for _, item := range def.Items {
		if scatter {
			c.placement[item.ID] = def.Categories[deps.Rand.Intn(2)]
		} else {
			c.placement[item.ID] = domain.PoolBucket
		}
	}
	return c
}

func (c *BucketController) Kind() domain.InteractionKind { return domain.KindDnDBucket }

// Placement returns the bucket an item currently sits in.
func (c *BucketController) Placement(id domain.ItemID) string {
	return c.placement[id]
}

// Move drops an item into a bucket.
func (c *BucketController) Move(id domain.ItemID, bucket string) error {
	if c.submitted {
		return ErrAlreadySubmitted
	}
	if _, ok := c.placement[id]; !ok {
		return fmt.Errorf("%w: unknown item %s", ErrInvalidInput, id)
	}
	if !c.isBucket(bucket) {
		return fmt.Errorf("%w: unknown bucket %q", ErrInvalidInput, bucket)
	}
	c.placement[id] = bucket
	return nil
}

// Submit checks every placement. Failing items shake and the controller
// stays in progress; with no failures the page completes.
func (c *BucketController) Submit() ([]domain.ItemID, error) {
	if c.submitted {
		return nil, ErrAlreadySubmitted
	}
	failed := BucketFailures(c.def.Items, c.placement)
	if len(failed) > 0 {
		c.shaker.shake(itemIDStrings(failed))
		return failed, nil
	}
	c.submitted = true
	c.shaker.stop()
	c.onComplete(Verdict{Completed: true})
	return nil, nil
}

func (c *BucketController) Apply(a Action) error {
	switch a.Type {
	case ActionMove:
		return c.Move(a.ItemID, a.Bucket)
	case ActionSubmit:
		_, err := c.Submit()
		return err
	default:
		return fmt.Errorf("%w: %s on %s", ErrUnsupportedAction, a.Type, c.Kind())
	}
}

func (c *BucketController) View() domain.InteractionView {
	buckets := make(map[string][]domain.ItemID, len(c.def.Categories)+1)
	for _, cat := range c.def.Categories {
		buckets[cat] = []domain.ItemID{}
	}
	for _, item := range c.def.Items {
		b := c.placement[item.ID]
		buckets[b] = append(buckets[b], item.ID)
	}
	v := domain.InteractionView{
		Kind:    c.Kind(),
		Status:  domain.StatusInProgress,
		Buckets: buckets,
		Shaking: c.shaker.ids(),
	}
	if c.submitted {
		v.Status = domain.StatusSubmitted
	}
	return v
}

func (c *BucketController) Close() { c.shaker.stop() }

func (c *BucketController) isBucket(name string) bool {
	if name == domain.PoolBucket {
		return true
	}
	for _, cat := range c.def.Categories {
		if cat == name {
			return true
		}
	}
	return false
}

func itemIDStrings(ids []domain.ItemID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
