package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	dErrors "takedown/pkg/domain-errors"
)

// Deduper suppresses repeat notifications for the same case and template
// within a window. First claim wins; later claims inside the window report
// already-sent.
type Deduper interface {
	// Claim reserves the (caseID, templateKey) pair for the window. It returns
	// true when this caller is first, false when a prior claim is still live.
	Claim(ctx context.Context, caseID, templateKey string, window time.Duration) (bool, error)
}

func dedupeKey(caseID, templateKey string) string {
	return fmt.Sprintf("notify:dedupe:%s:%s", caseID, templateKey)
}

// RedisDeduper shares suppression state across processes via SET NX with a
// TTL, so only one worker replica sends a given warning per window.
type RedisDeduper struct {
	client *redis.Client
}

func NewRedisDeduper(client *redis.Client) *RedisDeduper {
	return &RedisDeduper{client: client}
}

func (d *RedisDeduper) Claim(ctx context.Context, caseID, templateKey string, window time.Duration) (bool, error) {
	ok, err := d.client.SetNX(ctx, dedupeKey(caseID, templateKey), 1, window).Result()
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeUnavailable, "claim notification dedupe key")
	}
	return ok, nil
}

// MemoryDeduper is a process-local Deduper for tests and broker-less runs.
type MemoryDeduper struct {
	mu     sync.Mutex
	claims map[string]time.Time
	now    func() time.Time
}

func NewMemoryDeduper() *MemoryDeduper {
	return &MemoryDeduper{claims: make(map[string]time.Time), now: time.Now}
}

func (d *MemoryDeduper) Claim(ctx context.Context, caseID, templateKey string, window time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	key := dedupeKey(caseID, templateKey)
	now := d.now()
	if expiry, ok := d.claims[key]; ok && now.Before(expiry) {
		return false, nil
	}
	d.claims[key] = now.Add(window)
	return true, nil
}
