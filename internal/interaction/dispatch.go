package interaction

import (
	"fmt"

	"sel-lesson-service/internal/domain"
)

// New builds the controller for a page interaction. Pages without an
// interaction and "next" pages need no controller and get nil.
func New(in domain.Interaction, deps Deps, onComplete CompletionFunc) (Controller, error) {
	deps = deps.withDefaults()
	if onComplete == nil {
		onComplete = func(Verdict) {}
	}
	switch v := in.(type) {
	case nil, domain.Next:
		return nil, nil
	case domain.MultipleChoice:
		return newChoice(v, onComplete), nil
	case domain.MultiSelect:
		return newMultiSelect(v, onComplete), nil
	case domain.YesNo:
		return newYesNo(v, onComplete), nil
	case domain.BucketSort:
		return newBucket(v, deps, onComplete), nil
	case domain.MatchOrder:
		return newMatch(v, deps, onComplete), nil
	case domain.FillBlank:
		return newFillBlank(v, deps, onComplete), nil
	case domain.Activity:
		return newActivity(v, deps, onComplete), nil
	default:
		return nil, fmt.Errorf("%w: no controller for %T", domain.ErrContentDefect, in)
	}
}

// Gated reports whether a page interaction blocks forward navigation until
// it completes.
func Gated(in domain.Interaction) bool {
	switch in.(type) {
	case nil, domain.Next:
		return false
	default:
		return true
	}
}
