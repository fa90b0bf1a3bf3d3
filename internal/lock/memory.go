package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryLease struct {
	token     string
	expiresAt time.Time
}

// MemoryLocker is a process-local Locker for single-instance deployments
// and tests. Semantics match RedisLocker: expired leases are claimable.
type MemoryLocker struct {
	mu     sync.Mutex
	leases map[string]memoryLease
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{leases: make(map[string]memoryLease)}
}

func (l *MemoryLocker) TryLock(_ context.Context, key string, ttl time.Duration) (string, bool, error) {
	if key == "" {
		return "", false, errors.New("lock key is empty")
	}
	if ttl <= 0 {
		return "", false, errors.New("lock ttl must be positive")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if lease, held := l.leases[key]; held && lease.expiresAt.After(now) {
		return "", false, nil
	}

	token := uuid.NewString()
	l.leases[key] = memoryLease{token: token, expiresAt: now.Add(ttl)}
	return token, true, nil
}

func (l *MemoryLocker) Release(_ context.Context, key, token string) error {
	if key == "" || token == "" {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if lease, held := l.leases[key]; held && lease.token == token {
		delete(l.leases, key)
	}
	return nil
}
