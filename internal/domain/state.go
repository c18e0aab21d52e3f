package domain

import "time"

// PoolBucket holds bucket-sort items that have not been placed yet.
const PoolBucket = "pool"

// Mode is where a player session currently is.
type Mode string

const (
	ModeSelecting Mode = "selecting"
	ModeLoading   Mode = "loading"
	ModePlaying   Mode = "playing"
	ModeActivity  Mode = "activity"
)

// Status of an interaction controller.
type Status string

const (
	StatusUnanswered Status = "unanswered"
	StatusAnswered   Status = "answered"
	StatusInProgress Status = "inProgress"
	StatusSubmitted  Status = "submitted"
)

// Feedback is the verdict text shown under a page.
type Feedback struct {
	IsCorrect bool   `json:"isCorrect"`
	Text      string `json:"text"`
}

// BankWord is one fill-in-blank word bank entry in display order.
type BankWord struct {
	Index int    `json:"index"`
	Word  string `json:"word"`
}

// ActivityView exposes mini-game progress to the client.
type ActivityView struct {
	Name         string `json:"name"`
	ServerDriven bool   `json:"serverDriven"`
	Phase        string `json:"phase,omitempty"`
	Cycle        int    `json:"cycle,omitempty"`
	Cycles       int    `json:"cycles,omitempty"`
	Count        int    `json:"count,omitempty"`
	Target       int    `json:"target,omitempty"`
	Done         bool   `json:"done"`
}

// InteractionView is the render state of the live interaction controller.
type InteractionView struct {
	Kind        InteractionKind     `json:"type"`
	Status      Status              `json:"status"`
	Selected    []int               `json:"selected,omitempty"`
	Answer      string              `json:"answer,omitempty"`
	Correct     *bool               `json:"correct,omitempty"`
	Buckets     map[string][]ItemID `json:"buckets,omitempty"`
	Order       []ItemID            `json:"order,omitempty"`
	Slots       []int               `json:"slots,omitempty"`
	Bank        []BankWord          `json:"bank,omitempty"`
	Remaining   []BankWord          `json:"remaining,omitempty"`
	ActiveSlot  *int                `json:"activeSlot,omitempty"`
	PendingWord *int                `json:"pendingWord,omitempty"`
	Shaking     []string            `json:"shaking,omitempty"`
	Activity    *ActivityView       `json:"activity,omitempty"`
}

// PlayerState is the full snapshot pushed to clients after every change.
type PlayerState struct {
	SessionID         string           `json:"sessionId"`
	Mode              Mode             `json:"mode"`
	Muted             bool             `json:"muted"`
	LessonID          string           `json:"lessonId,omitempty"`
	LessonTitle       string           `json:"lessonTitle,omitempty"`
	PageIndex         int              `json:"pageIndex"`
	PageCount         int              `json:"pageCount"`
	Page              *Page            `json:"page,omitempty"`
	CanNext           bool             `json:"canNext"`
	CanBack           bool             `json:"canBack"`
	ActivityCompleted bool             `json:"activityCompleted"`
	Feedback          *Feedback        `json:"feedback,omitempty"`
	Interaction       *InteractionView `json:"interaction,omitempty"`
	Activity          *ActivityView    `json:"activity,omitempty"`
	ActivityID        string           `json:"activityId,omitempty"`
	CompletedLessons  []string         `json:"completedLessons"`
	LoadError         string           `json:"loadError,omitempty"`
	UpdatedAt         time.Time        `json:"updatedAt"`
}

// EventType tags messages fanned out to session subscribers.
type EventType string

const (
	EventState EventType = "state"
	EventSpeak EventType = "speak"
)

// Event is either a state snapshot or a speech cue.
type Event struct {
	Type  EventType    `json:"type"`
	State *PlayerState `json:"state,omitempty"`
	Text  string       `json:"text,omitempty"`
}
