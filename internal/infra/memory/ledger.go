package memory

import (
	"context"
	"sort"
	"sync"
)

// Ledger is an in-memory app.CompletionLedger.
type Ledger struct {
	mu   sync.RWMutex
	done map[string]map[string]struct{}
}

func NewLedger() *Ledger {
	return &Ledger{done: make(map[string]map[string]struct{})}
}

func (l *Ledger) MarkCompleted(_ context.Context, sessionID, lessonID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	set, ok := l.done[sessionID]
	if !ok {
		set = make(map[string]struct{})
		l.done[sessionID] = set
	}
	set[lessonID] = struct{}{}
	return nil
}

func (l *Ledger) Completed(_ context.Context, sessionID string) ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := make([]string, 0, len(l.done[sessionID]))
	for id := range l.done[sessionID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
