package redis

import (
	"context"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// Ledger is an app.CompletionLedger backed by one Redis set per session.
// Entries expire with the session; nothing outlives ttl of inactivity.
type Ledger struct {
	client *redis.Client
	ttl    time.Duration
}

func NewLedger(client *redis.Client, ttl time.Duration) *Ledger {
	return &Ledger{client: client, ttl: ttl}
}

func (l *Ledger) MarkCompleted(ctx context.Context, sessionID, lessonID string) error {
	key := ledgerKey(sessionID)
	pipe := l.client.TxPipeline()
	pipe.SAdd(ctx, key, lessonID)
	if l.ttl > 0 {
		pipe.Expire(ctx, key, l.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (l *Ledger) Completed(ctx context.Context, sessionID string) ([]string, error) {
	ids, err := l.client.SMembers(ctx, ledgerKey(sessionID)).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}

func ledgerKey(sessionID string) string {
	return "player:completed:" + sessionID
}
