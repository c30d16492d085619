package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/propscope/oddsjobs/internal/domain"
	"github.com/redis/go-redis/v9"
)

// Both scripts act only while the key still holds the caller's token, so a
// run whose lock already expired cannot touch the next run's lock.
var (
	releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0`)

	renewScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return 0`)
)

// LockManager hands out one lock per job name so two overlapping invocations
// never write the same keys. A held lock is renewed every ttl/3 until
// released, so a run that outlives ttl keeps it.
type LockManager struct {
	rdb *redis.Client
}

// NewLockManager creates a LockManager backed by the given Client.
func NewLockManager(c *Client) *LockManager {
	return &LockManager{rdb: c.Underlying()}
}

// LockKey returns the lock key for a job name.
func LockKey(job string) string {
	return "lock:job:" + job
}

// Acquire takes the lock for job or returns domain.ErrLockHeld. The returned
// release function may be called more than once.
func (lm *LockManager) Acquire(ctx context.Context, job string, ttl time.Duration) (func(), error) {
	key, token := LockKey(job), uuid.NewString()

	ok, err := lm.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: lock %s: %w", job, err)
	}
	if !ok {
		return nil, fmt.Errorf("redis: lock %s: %w", job, domain.ErrLockHeld)
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go lm.keepAlive(key, token, ttl, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			// Runs after the job context may already be cancelled.
			rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = releaseScript.Run(rctx, lm.rdb, []string{key}, token).Err()
		})
	}, nil
}

// keepAlive extends key while it still belongs to token. It gives up once
// ownership is lost.
func (lm *LockManager) keepAlive(key, token string, ttl time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	every := ttl / 3
	if every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()

	for {
		select {
		case <-stop:
			return
		case <-t.C:
			ctx, cancel := context.WithTimeout(context.Background(), every)
			n, err := renewScript.Run(ctx, lm.rdb, []string{key}, token, ttl.Milliseconds()).Int()
			cancel()
			if err == nil && n == 0 {
				return
			}
		}
	}
}

var _ domain.LockManager = (*LockManager)(nil)
