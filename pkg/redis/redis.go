package redis

import (
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultDialTimeout  = 2 * time.Second
	defaultReadTimeout  = 500 * time.Millisecond
	defaultWriteTimeout = 500 * time.Millisecond
	defaultPoolSize     = 20
)

// Option tunes the client before it is created.
type Option func(*redis.Options)

func WithPassword(password string) Option {
	return func(o *redis.Options) {
		o.Password = password
	}
}

func WithDB(db int) Option {
	return func(o *redis.Options) {
		o.DB = db
	}
}

func WithPoolSize(n int) Option {
	return func(o *redis.Options) {
		o.PoolSize = n
	}
}

func WithDialTimeout(d time.Duration) Option {
	return func(o *redis.Options) {
		o.DialTimeout = d
	}
}

// New creates a client for addr. The connection is established lazily, so an
// unreachable server surfaces on the first command rather than here.
// Context deadlines bound socket reads and writes, so callers can keep cache
// calls shorter than the read and write timeouts.
func New(addr string, opts ...Option) *redis.Client {
	o := &redis.Options{
		Addr:         addr,
		DialTimeout:  defaultDialTimeout,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		PoolSize:     defaultPoolSize,

		ContextTimeoutEnabled: true,
	}

	for _, opt := range opts {
		opt(o)
	}

	return redis.NewClient(o)
}
