package shared

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// BillingRunLockKey builds redis keys for the billing-run critical section.
func BillingRunLockKey(referenceMonth string) string {
	return fmt.Sprintf("billing:%s:lock", referenceMonth)
}

// RunLock is a best-effort mutual-exclusion lock on top of redis SETNX.
// Invoice uniqueness is still guaranteed by the database; the lock only
// keeps concurrent generator runs from doing duplicate work.
type RunLock struct {
	client *redis.Client
	ttl    time.Duration

	mu     sync.Mutex
	tokens map[string]string
}

// NewRunLock constructs a RunLock with the given lease duration.
func NewRunLock(client *redis.Client, ttl time.Duration) *RunLock {
	return &RunLock{client: client, ttl: ttl, tokens: make(map[string]string)}
}

// Acquire attempts to take the lock. It returns false when another holder
// owns the key. A nil client always acquires, so the lock degrades to a
// no-op when redis is unavailable.
func (l *RunLock) Acquire(ctx context.Context, key string) (bool, error) {
	if l == nil || l.client == nil {
		return true, nil
	}
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("shared: acquire run lock: %w", err)
	}
	if ok {
		l.mu.Lock()
		l.tokens[key] = token
		l.mu.Unlock()
	}
	return ok, nil
}

// Release drops the lock if this instance still holds it. A key owned by
// another holder, or a lease that already expired and was reacquired, is
// left untouched.
func (l *RunLock) Release(ctx context.Context, key string) error {
	if l == nil || l.client == nil {
		return nil
	}
	l.mu.Lock()
	token, held := l.tokens[key]
	delete(l.tokens, key)
	l.mu.Unlock()
	if !held {
		return nil
	}
	current, err := l.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("shared: release run lock: %w", err)
	}
	if current != token {
		return nil
	}
	return l.client.Del(ctx, key).Err()
}
