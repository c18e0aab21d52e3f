package interaction

import (
	"fmt"

	"sel-lesson-service/internal/domain"
)

// EvaluateChoice reports whether options[i] is correct.
func EvaluateChoice(options []domain.Option, i int) (bool, error) {
	if i < 0 || i >= len(options) {
		return false, fmt.Errorf("%w: option %d of %d", ErrInvalidInput, i, len(options))
	}
	return options[i].IsCorrect, nil
}

// EvaluateMultiSelect is exact set equality between the selection and the
// correct options. Order never matters.
func EvaluateMultiSelect(options []domain.Option, selected map[int]bool) bool {
	chosen := 0
	for i, on := range selected {
		if !on {
			continue
		}
		if i < 0 || i >= len(options) || !options[i].IsCorrect {
			return false
		}
		chosen++
	}
	correct := 0
	for _, o := range options {
		if o.IsCorrect {
			correct++
		}
	}
	return chosen == correct
}

// EvaluateYesNo compares a pick with the expected answer; nil accepts anything.
func EvaluateYesNo(correctAnswer *string, pick string) bool {
	if correctAnswer == nil {
		return true
	}
	return *correctAnswer == pick
}

// BucketFailures returns the items sitting outside their correct category,
// in item order. Items without a category never fail.
func BucketFailures(items []domain.BucketItem, placement map[domain.ItemID]string) []domain.ItemID {
	var failed []domain.ItemID
	for _, item := range items {
		if item.CorrectCategory == nil {
			continue
		}
		if placement[item.ID] != *item.CorrectCategory {
			failed = append(failed, item.ID)
		}
	}
	return failed
}

// MatchFailures returns the items whose position does not face their label.
func MatchFailures(labels []string, order []domain.MatchItem) []domain.ItemID {
	var failed []domain.ItemID
	for k, item := range order {
		if k >= len(labels) || item.CorrectMatch != labels[k] {
			failed = append(failed, item.ID)
		}
	}
	return failed
}

// FillBlankFailures returns the rows whose assigned word differs from the
// row answer. An empty string means the slot is empty and always fails.
func FillBlankFailures(rows []domain.BlankRow, assigned []string) []int {
	var failed []int
	for r, row := range rows {
		if r >= len(assigned) || assigned[r] == "" || assigned[r] != row.Answer {
			failed = append(failed, r)
		}
	}
	return failed
}
