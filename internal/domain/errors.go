package domain

import (
	"errors"
	"strings"
)

var (
	// ErrSessionNotFound is returned when a player session has not been opened.
	ErrSessionNotFound = errors.New("player session not found")
	// ErrLessonNotFound indicates no resolver is registered for a lesson id.
	ErrLessonNotFound = errors.New("lesson not found")
	// ErrNoActiveLesson is returned for page commands while no lesson is playing.
	ErrNoActiveLesson = errors.New("no lesson is playing")
	// ErrNavigationLocked is returned when moving forward past an unfinished interaction.
	ErrNavigationLocked = errors.New("current page interaction is not completed")
	// ErrLoadSuperseded marks a lesson load that lost the race to a newer selection.
	ErrLoadSuperseded = errors.New("lesson load superseded by a newer selection")
	// ErrUnknownActivity is returned for activity names no game is registered under.
	ErrUnknownActivity = errors.New("unknown activity")
	// ErrContentDefect is the root of every lesson authoring problem.
	ErrContentDefect = errors.New("lesson content defect")
)

// ContentDefectError lists every authoring problem found in one lesson document.
type ContentDefectError struct {
	LessonID string
	Problems []string
}

func (e *ContentDefectError) Error() string {
	var b strings.Builder
	b.WriteString("lesson ")
	if e.LessonID != "" {
		b.WriteString(e.LessonID)
		b.WriteString(" ")
	}
	b.WriteString("has content defects: ")
	b.WriteString(strings.Join(e.Problems, "; "))
	return b.String()
}

func (e *ContentDefectError) Unwrap() error { return ErrContentDefect }
