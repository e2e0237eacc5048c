package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"rentmate/pkg/clock"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrLocked = errors.New("lock already held")

// ReleaseFunc releases a held lock. It is safe to call after expiry.
type ReleaseFunc func(ctx context.Context) error

type Locker interface {
	// Acquire takes key for ttl or fails with ErrLocked.
	Acquire(ctx context.Context, key string, ttl time.Duration) (ReleaseFunc, error)
}

// releaseScript deletes the key only while it still holds our token, so an
// expired lock re-acquired by someone else is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisLocker struct {
	client *redis.Client
}

func NewRedisLocker(client *redis.Client) Locker {
	return &redisLocker{client: client}
}

func (l *redisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (ReleaseFunc, error) {
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLocked
	}

	return func(ctx context.Context) error {
		return releaseScript.Run(ctx, l.client, []string{key}, token).Err()
	}, nil
}

type memoryLocker struct {
	mu    sync.Mutex
	held  map[string]memoryLease
	clock clock.Clock
}

type memoryLease struct {
	token   string
	expires time.Time
}

// NewMemoryLocker is the single-process fallback used when Redis is not
// configured, and in tests.
func NewMemoryLocker(c clock.Clock) Locker {
	return &memoryLocker{held: make(map[string]memoryLease), clock: c}
}

func (l *memoryLocker) Acquire(_ context.Context, key string, ttl time.Duration) (ReleaseFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	if lease, ok := l.held[key]; ok && now.Before(lease.expires) {
		return nil, ErrLocked
	}

	token := uuid.NewString()
	l.held[key] = memoryLease{token: token, expires: now.Add(ttl)}

	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if lease, ok := l.held[key]; ok && lease.token == token {
			delete(l.held, key)
		}
		return nil
	}, nil
}

func InitiateKey(userID string) string {
	return "lock:initiate:" + userID
}
