package redis

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/turtacn/CaseLens/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CaseLens/pkg/errors"
)

const lockKeyPrefix = "caselens:lock:"

var (
	ErrLockNotAcquired = errors.New(errors.ErrCodeConflict, "failed to acquire lock")
	ErrLockNotHeld     = errors.New(errors.ErrCodeConflict, "lock not held by this owner")
)

var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

type LockOption func(*lockConfig)

func WithLockTTL(ttl time.Duration) LockOption {
	return func(c *lockConfig) { c.ttl = ttl }
}

func WithRetry(count int, delay time.Duration) LockOption {
	return func(c *lockConfig) {
		c.retryCount = count
		c.retryDelay = delay
	}
}

// WithWatchdog keeps extending a held lock every ttl/3 until Unlock.
func WithWatchdog() LockOption {
	return func(c *lockConfig) { c.watchdog = true }
}

type lockConfig struct {
	ttl        time.Duration
	retryCount int
	retryDelay time.Duration
	watchdog   bool
}

// LockFactory hands out named mutexes that live in Redis.
type LockFactory struct {
	client *Client
	logger logging.Logger
	opts   []LockOption
}

// NewLockFactory applies opts to every mutex it creates.
func NewLockFactory(client *Client, log logging.Logger, opts ...LockOption) *LockFactory {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &LockFactory{client: client, logger: log.Named("lock"), opts: opts}
}

// NewMutex returns an unlocked mutex with a fresh owner token.
func (f *LockFactory) NewMutex(name string, opts ...LockOption) *Mutex {
	cfg := lockConfig{ttl: 30 * time.Second, retryCount: 30, retryDelay: 100 * time.Millisecond}
	for _, o := range f.opts {
		o(&cfg)
	}
	for _, o := range opts {
		o(&cfg)
	}
	return &Mutex{
		client: f.client,
		logger: f.logger,
		key:    lockKeyPrefix + name,
		token:  uuid.NewString(),
		cfg:    cfg,
	}
}

// Acquire locks name and returns its release func.
func (f *LockFactory) Acquire(ctx context.Context, name string) (func(), error) {
	m := f.NewMutex(name)
	if err := m.Lock(ctx); err != nil {
		return nil, err
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.Unlock(ctx); err != nil {
			f.logger.Warn("failed to release lock", logging.String("key", m.key), logging.Err(err))
		}
	}, nil
}

// Mutex is a SET NX lock owned by a random token.
type Mutex struct {
	client *Client
	logger logging.Logger
	key    string
	token  string
	cfg    lockConfig

	mu           sync.Mutex
	stopWatchdog context.CancelFunc
	watchdogDone chan struct{}
}

// Key is the Redis key guarding the mutex.
func (m *Mutex) Key() string { return m.key }

// TryLock makes a single attempt.
func (m *Mutex) TryLock(ctx context.Context) (bool, error) {
	rdb, err := m.client.Underlying()
	if err != nil {
		return false, err
	}
	ok, err := rdb.SetNX(ctx, m.key, m.token, m.cfg.ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeCacheError, "lock setnx")
	}
	if ok && m.cfg.watchdog {
		m.startWatchdog()
	}
	return ok, nil
}

// Lock retries TryLock until it succeeds, the retries run out or ctx ends.
func (m *Mutex) Lock(ctx context.Context) error {
	attempts := m.cfg.retryCount
	if attempts < 1 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		ok, err := m.TryLock(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.cfg.retryDelay):
		}
	}
	return ErrLockNotAcquired
}

func (m *Mutex) Unlock(ctx context.Context) error {
	m.haltWatchdog()
	rdb, err := m.client.Underlying()
	if err != nil {
		return err
	}
	n, err := unlockScript.Run(ctx, rdb, []string{m.key}, m.token).Int64()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "lock release")
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// Extend resets the expiry when the lock is still ours.
func (m *Mutex) Extend(ctx context.Context, ttl time.Duration) (bool, error) {
	rdb, err := m.client.Underlying()
	if err != nil {
		return false, err
	}
	n, err := extendScript.Run(ctx, rdb, []string{m.key}, m.token, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeCacheError, "lock extend")
	}
	return n == 1, nil
}

func (m *Mutex) startWatchdog() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopWatchdog != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.stopWatchdog = cancel
	m.watchdogDone = make(chan struct{})
	go m.runWatchdog(ctx, m.watchdogDone)
}

func (m *Mutex) haltWatchdog() {
	m.mu.Lock()
	cancel, done := m.stopWatchdog, m.watchdogDone
	m.stopWatchdog, m.watchdogDone = nil, nil
	m.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}

func (m *Mutex) runWatchdog(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(m.cfg.ttl / 3)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ok, err := m.Extend(ctx, m.cfg.ttl)
			if err != nil {
				if ctx.Err() == nil {
					m.logger.Error("watchdog failed to extend lock", logging.String("key", m.key), logging.Err(err))
				}
				return
			}
			if !ok {
				m.logger.Warn("watchdog lost lock", logging.String("key", m.key))
				return
			}
		}
	}
}
