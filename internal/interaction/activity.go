package interaction

import (
	"fmt"

	"sel-lesson-service/internal/activity"
	"sel-lesson-service/internal/domain"
)

// ActivityController hosts a mini-game. Registered games run server-side and
// finish on their own; anything else finishes when the client reports done.
type ActivityController struct {
	def        domain.Activity
	onComplete CompletionFunc
	game       activity.Game
	done       bool
}

func newActivity(def domain.Activity, deps Deps, onComplete CompletionFunc) *ActivityController {
	c := &ActivityController{def: def, onComplete: onComplete}
	if deps.Games != nil {
		if game, ok := deps.Games.New(def.Name, def.Settings, deps.Clock); ok {
			c.game = game
			game.Start(c.finish)
		}
	}
	return c
}

func (c *ActivityController) Kind() domain.InteractionKind { return domain.KindActivity }

// Done is the completion signal of a client-rendered activity.
func (c *ActivityController) Done() error {
	if c.game != nil {
		return fmt.Errorf("%w: %s finishes on its own", ErrUnsupportedAction, c.def.Name)
	}
	c.finish()
	return nil
}

func (c *ActivityController) Apply(a Action) error {
	switch a.Type {
	case ActionDone:
		return c.Done()
	case ActionGame:
		if c.game == nil {
			return fmt.Errorf("%w: %s has no server-side game", ErrUnsupportedAction, c.def.Name)
		}
		return c.game.Handle(a.Game)
	default:
		return fmt.Errorf("%w: %s on %s", ErrUnsupportedAction, a.Type, c.Kind())
	}
}

func (c *ActivityController) View() domain.InteractionView {
	v := domain.InteractionView{Kind: c.Kind(), Status: domain.StatusInProgress}
	if c.done {
		v.Status = domain.StatusSubmitted
	}
	if c.game != nil {
		gv := c.game.View()
		v.Activity = &gv
	} else {
		v.Activity = &domain.ActivityView{Name: c.def.Name, Done: c.done}
	}
	return v
}

func (c *ActivityController) Close() {
	if c.game != nil {
		c.game.Stop()
	}
}

// finish reports completion at most once.
func (c *ActivityController) finish() {
	if c.done {
		return
	}
	c.done = true
	c.onComplete(Verdict{Completed: true})
}
