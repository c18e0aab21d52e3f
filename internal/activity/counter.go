package activity

import (
	"fmt"

	"sel-lesson-service/internal/domain"
)

const CountingName = "counting"

// ActionTap counts one item.
const ActionTap = "tap"

// Counter finishes once the child has tapped target times.
type Counter struct {
	target int
	count  int
	onDone func()
	done   bool
}

func NewCounter(target int) *Counter {
	if target <= 0 {
		target = 1
	}
	return &Counter{target: target}
}

func (c *Counter) Start(onDone func()) { c.onDone = onDone }

func (c *Counter) Handle(action string) error {
	if action != ActionTap {
		return fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	if c.done {
		return nil
	}
	c.count++
	if c.count >= c.target {
		c.done = true
		if c.onDone != nil {
			c.onDone()
		}
	}
	return nil
}

func (c *Counter) View() domain.ActivityView {
	return domain.ActivityView{
		Name:         CountingName,
		ServerDriven: true,
		Count:        c.count,
		Target:       c.target,
		Done:         c.done,
	}
}

func (c *Counter) Stop() {}
