package http

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"sel-lesson-service/internal/domain"
)

func TestHealthz(t *testing.T) {
	server := newTestServer(t)
	resp, err := http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Fatalf("unexpected health response %d %q", resp.StatusCode, body)
	}
}

func TestGetLesson(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/lessons/lesson-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var lesson domain.LessonDocument
	if err := json.NewDecoder(resp.Body).Decode(&lesson); err != nil {
		t.Fatalf("decode lesson: %v", err)
	}
	if _, ok := lesson.Pages[1].Content.Interaction.(domain.MultipleChoice); !ok {
		t.Fatalf("expected mc interaction, got %T", lesson.Pages[1].Content.Interaction)
	}

	missing, err := http.Get(server.URL + "/lessons/nope")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	defer missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", missing.StatusCode)
	}
}

func TestListLessons(t *testing.T) {
	server := newTestServer(t)
	resp, err := http.Get(server.URL + "/lessons")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	var summaries []domain.Summary
	if err := json.NewDecoder(resp.Body).Decode(&summaries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(summaries) != 1 || summaries[0] != (domain.Summary{ID: "lesson-1", Title: "Naming feelings", PageCount: 2}) {
		t.Fatalf("unexpected summaries %+v", summaries)
	}
}
