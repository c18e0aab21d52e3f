package memory

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"sel-lesson-service/internal/domain"
)

func TestRegistryResolvesOnlyRegisteredIDs(t *testing.T) {
	registry := NewStaticRegistry(sampleLesson())

	lesson, err := registry.LoadLesson(context.Background(), "lesson-1")
	if err != nil {
		t.Fatalf("load lesson: %v", err)
	}
	if lesson.Title != "Naming feelings" {
		t.Fatalf("unexpected lesson %+v", lesson)
	}

	if _, err := registry.LoadLesson(context.Background(), "nope"); !errors.Is(err, domain.ErrLessonNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRegistryRawDocuments(t *testing.T) {
	registry := NewRegistry()
	registry.RegisterRaw("raw-1", []byte(`{"id":"raw-1","title":"Raw","pages":[{"id":"p1","content":{"title":"Hi"}}]}`))
	registry.RegisterRaw("wrong-id", []byte(`{"id":"other","title":"Other","pages":[{"id":"p1","content":{"title":"Hi"}}]}`))
	registry.RegisterRaw("broken", []byte(`{"id":"broken","title":"Broken","pages":[]}`))

	lesson, err := registry.LoadLesson(context.Background(), "raw-1")
	if err != nil {
		t.Fatalf("load raw: %v", err)
	}
	if len(lesson.Pages) != 1 {
		t.Fatalf("expected one page, got %d", len(lesson.Pages))
	}

	if _, err := registry.LoadLesson(context.Background(), "wrong-id"); !errors.Is(err, domain.ErrContentDefect) {
		t.Fatalf("expected content defect for id mismatch, got %v", err)
	}
	if _, err := registry.LoadLesson(context.Background(), "broken"); !errors.Is(err, domain.ErrContentDefect) {
		t.Fatalf("expected content defect for empty lesson, got %v", err)
	}

	want := []string{"broken", "raw-1", "wrong-id"}
	if got := registry.IDs(); !reflect.DeepEqual(got, want) {
		t.Fatalf("ids = %v, want %v", got, want)
	}
}
