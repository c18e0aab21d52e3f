package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// InteractionKind is the wire discriminant of an Interaction.
type InteractionKind string

const (
	KindNext      InteractionKind = "next"
	KindMC        InteractionKind = "mc"
	KindMS        InteractionKind = "ms"
	KindYesNo     InteractionKind = "yesno"
	KindDnDBucket InteractionKind = "dndBucket"
	KindDnDMatch  InteractionKind = "dndMatch"
	KindFillBlank InteractionKind = "fillBlank"
	KindActivity  InteractionKind = "activity"
)

// Interaction is the closed set of page mini-activities. Only the types in
// this file implement it.
type Interaction interface {
	Kind() InteractionKind
	isInteraction()
}

// FeedbackText is shown (and spoken) after a verdict.
type FeedbackText struct {
	CorrectText   string `json:"correctText,omitempty"`
	IncorrectText string `json:"incorrectText,omitempty"`
}

// Text picks the feedback string for a verdict.
func (f FeedbackText) Text(correct bool) string {
	if correct {
		return f.CorrectText
	}
	return f.IncorrectText
}

// Next is an always-navigable placeholder.
type Next struct{}

// Option is one choice of a multiple-choice or multi-select question.
type Option struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

// MultipleChoice has a single correct answer and allows retries.
type MultipleChoice struct {
	Prompt  string   `json:"prompt,omitempty"`
	Options []Option `json:"options"`
	FeedbackText
}

// MultiSelect is correct when exactly the correct options are selected.
type MultiSelect struct {
	Prompt  string   `json:"prompt,omitempty"`
	Options []Option `json:"options"`
	FeedbackText
}

const (
	AnswerYes = "yes"
	AnswerNo  = "no"
)

// YesNo compares a binary pick against CorrectAnswer. A nil CorrectAnswer
// marks an opinion question where any answer is accepted.
type YesNo struct {
	Prompt        string  `json:"prompt,omitempty"`
	CorrectAnswer *string `json:"correctAnswer"`
	FeedbackText
}

// BucketItem is a draggable card. A nil CorrectCategory never fails.
type BucketItem struct {
	ID              ItemID  `json:"id"`
	Text            string  `json:"text"`
	Image           string  `json:"image,omitempty"`
	CorrectCategory *string `json:"correctCategory"`
}

// BucketSort categorizes items into named buckets.
type BucketSort struct {
	Prompt     string       `json:"prompt,omitempty"`
	Categories []string     `json:"categories"`
	Items      []BucketItem `json:"items"`
}

// FreeSort reports whether no item carries a correct category.
func (b BucketSort) FreeSort() bool {
	for _, item := range b.Items {
		if item.CorrectCategory != nil {
			return false
		}
	}
	return true
}

// MatchItem is placed opposite the label named by CorrectMatch.
type MatchItem struct {
	ID           ItemID `json:"id"`
	Text         string `json:"text"`
	CorrectMatch string `json:"correctMatch"`
}

// MatchOrder pairs the item at position k with Labels[k].
type MatchOrder struct {
	Prompt string      `json:"prompt,omitempty"`
	Labels []string    `json:"labels"`
	Items  []MatchItem `json:"items"`
}

// BlankRow renders as "Left ____ Right".
type BlankRow struct {
	Left   string `json:"left"`
	Right  string `json:"right,omitempty"`
	Answer string `json:"answer"`
}

// FillBlank assigns each word bank entry to one row slot.
type FillBlank struct {
	Prompt   string     `json:"prompt,omitempty"`
	Rows     []BlankRow `json:"rows"`
	WordBank []string   `json:"wordBank"`
}

// Activity delegates the page to a named mini-game.
type Activity struct {
	Name     string         `json:"activity"`
	Settings map[string]any `json:"settings,omitempty"`
}

func (Next) Kind() InteractionKind           { return KindNext }
func (MultipleChoice) Kind() InteractionKind { return KindMC }
func (MultiSelect) Kind() InteractionKind    { return KindMS }
func (YesNo) Kind() InteractionKind          { return KindYesNo }
func (BucketSort) Kind() InteractionKind     { return KindDnDBucket }
func (MatchOrder) Kind() InteractionKind     { return KindDnDMatch }
func (FillBlank) Kind() InteractionKind      { return KindFillBlank }
func (Activity) Kind() InteractionKind       { return KindActivity }

func (Next) isInteraction()           {}
func (MultipleChoice) isInteraction() {}
func (MultiSelect) isInteraction()    {}
func (YesNo) isInteraction()          {}
func (BucketSort) isInteraction()     {}
func (MatchOrder) isInteraction()     {}
func (FillBlank) isInteraction()      {}
func (Activity) isInteraction()       {}

// ItemID identifies a draggable item. Content may author ids as numbers.
type ItemID string

func (id *ItemID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ItemID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("item id must be a string or number: %w", err)
	}
	*id = ItemID(n.String())
	return nil
}

// MarshalInteraction encodes an interaction with its "type" discriminant.
func MarshalInteraction(in Interaction) ([]byte, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	head := fmt.Sprintf(`{"type":%q`, in.Kind())
	body = bytes.TrimSpace(body)
	if string(body) == "{}" {
		return []byte(head + "}"), nil
	}
	return append([]byte(head+","), body[1:]...), nil
}

// UnmarshalInteraction decodes a tagged interaction object. Unknown types are
// content defects.
func UnmarshalInteraction(data []byte) (Interaction, error) {
	var head struct {
		Type InteractionKind `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("%w: interaction: %v", ErrContentDefect, err)
	}
	switch head.Type {
	case KindNext:
		return Next{}, nil
	case KindMC:
		var v MultipleChoice
		err := json.Unmarshal(data, &v)
		return v, wrapDecode(head.Type, err)
	case KindMS:
		var v MultiSelect
		err := json.Unmarshal(data, &v)
		return v, wrapDecode(head.Type, err)
	case KindYesNo:
		var v YesNo
		err := json.Unmarshal(data, &v)
		if err == nil && v.CorrectAnswer != nil {
			normalized := strings.ToLower(strings.TrimSpace(*v.CorrectAnswer))
			v.CorrectAnswer = &normalized
		}
		return v, wrapDecode(head.Type, err)
	case KindDnDBucket:
		var v BucketSort
		err := json.Unmarshal(data, &v)
		return v, wrapDecode(head.Type, err)
	case KindDnDMatch:
		var v MatchOrder
		err := json.Unmarshal(data, &v)
		return v, wrapDecode(head.Type, err)
	case KindFillBlank:
		var v FillBlank
		err := json.Unmarshal(data, &v)
		return v, wrapDecode(head.Type, err)
	case KindActivity:
		var v Activity
		err := json.Unmarshal(data, &v)
		return v, wrapDecode(head.Type, err)
	default:
		return nil, fmt.Errorf("%w: unknown interaction type %q", ErrContentDefect, head.Type)
	}
}

func wrapDecode(kind InteractionKind, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s interaction: %v", ErrContentDefect, kind, err)
}

func (c PageContent) MarshalJSON() ([]byte, error) {
	type alias PageContent
	out := struct {
		alias
		Interaction json.RawMessage `json:"interaction,omitempty"`
	}{alias: alias(c)}
	if c.Interaction != nil {
		raw, err := MarshalInteraction(c.Interaction)
		if err != nil {
			return nil, err
		}
		out.Interaction = raw
	}
	return json.Marshal(out)
}

func (c *PageContent) UnmarshalJSON(data []byte) error {
	type alias PageContent
	var in struct {
		alias
		Interaction json.RawMessage `json:"interaction"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*c = PageContent(in.alias)
	c.Interaction = nil
	raw := bytes.TrimSpace(in.Interaction)
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	interaction, err := UnmarshalInteraction(raw)
	if err != nil {
		return err
	}
	c.Interaction = interaction
	return nil
}
