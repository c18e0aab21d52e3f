package domain

import (
	"fmt"
	"sort"
)

// Validate checks the authoring invariants of a lesson. It reports every
// problem at once so content authors can fix a document in one pass.
func Validate(doc LessonDocument) error {
	var problems []string
	addf := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if doc.ID == "" {
		addf("lesson id is empty")
	}
	if len(doc.Pages) == 0 {
		addf("lesson has no pages")
	}
	for i, page := range doc.Pages {
		where := fmt.Sprintf("page %d (%s)", i, page.ID)
		if page.Content.Interaction == nil {
			continue
		}
		for _, p := range validateInteraction(page.Content.Interaction) {
			addf("%s: %s", where, p)
		}
	}

	if len(problems) > 0 {
		return &ContentDefectError{LessonID: doc.ID, Problems: problems}
	}
	return nil
}

func validateInteraction(in Interaction) []string {
	var problems []string
	addf := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	switch v := in.(type) {
	case Next:
	case MultipleChoice:
		if len(v.Options) == 0 {
			addf("mc has no options")
		} else if countCorrect(v.Options) == 0 {
			addf("mc has no correct option")
		}
	case MultiSelect:
		if len(v.Options) == 0 {
			addf("ms has no options")
		}
	case YesNo:
		if v.CorrectAnswer != nil && *v.CorrectAnswer != AnswerYes && *v.CorrectAnswer != AnswerNo {
			addf("yesno correctAnswer %q is not yes or no", *v.CorrectAnswer)
		}
	case BucketSort:
		if len(v.Categories) == 0 {
			addf("dndBucket has no categories")
		}
		known := make(map[string]bool, len(v.Categories))
		for _, c := range v.Categories {
			if c == PoolBucket {
				addf("dndBucket category %q is reserved", c)
			}
			known[c] = true
		}
		ids := make([]ItemID, 0, len(v.Items))
		for _, item := range v.Items {
			ids = append(ids, item.ID)
			if item.CorrectCategory != nil && !known[*item.CorrectCategory] {
				addf("dndBucket item %s names unknown category %q", item.ID, *item.CorrectCategory)
			}
		}
		problems = append(problems, duplicateIDs("dndBucket", ids)...)
	case MatchOrder:
		if len(v.Items) != len(v.Labels) {
			addf("dndMatch has %d items for %d labels", len(v.Items), len(v.Labels))
		}
		labels := make(map[string]bool, len(v.Labels))
		for _, l := range v.Labels {
			labels[l] = true
		}
		ids := make([]ItemID, 0, len(v.Items))
		for _, item := range v.Items {
			ids = append(ids, item.ID)
			if !labels[item.CorrectMatch] {
				addf("dndMatch item %s matches unknown label %q", item.ID, item.CorrectMatch)
			}
		}
		problems = append(problems, duplicateIDs("dndMatch", ids)...)
	case FillBlank:
		if len(v.WordBank) != len(v.Rows) {
			addf("fillBlank has %d bank words for %d rows", len(v.WordBank), len(v.Rows))
		} else {
			answers := make([]string, 0, len(v.Rows))
			for _, row := range v.Rows {
				answers = append(answers, row.Answer)
			}
			if !sameMultiset(answers, v.WordBank) {
				addf("fillBlank word bank does not hold exactly the row answers")
			}
		}
	case Activity:
		if v.Name == "" {
			addf("activity has no name")
		}
	default:
		addf("unsupported interaction %T", in)
	}
	return problems
}

func countCorrect(options []Option) int {
	n := 0
	for _, o := range options {
		if o.IsCorrect {
			n++
		}
	}
	return n
}

func duplicateIDs(kind string, ids []ItemID) []string {
	seen := make(map[ItemID]bool, len(ids))
	var problems []string
	for _, id := range ids {
		if seen[id] {
			problems = append(problems, fmt.Sprintf("%s item id %s is duplicated", kind, id))
		}
		seen[id] = true
	}
	return problems
}

func sameMultiset(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	x := append([]string(nil), a...)
	y := append([]string(nil), b...)
	sort.Strings(x)
	sort.Strings(y)
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}
