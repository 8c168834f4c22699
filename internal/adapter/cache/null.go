package cache

import (
	"context"
	"time"

	"github.com/vadimbarashkov/shortlink/internal/entity"
)

// NullCache is used when caching is disabled. It never holds anything and never fails.
type NullCache struct{}

func NewNullCache() NullCache {
	return NullCache{}
}

func (NullCache) Enabled() bool {
	return false
}

func (NullCache) Get(context.Context, string) (string, error) {
	return "", entity.ErrCacheMiss
}

func (NullCache) Set(context.Context, string, string, time.Duration) error {
	return nil
}

func (NullCache) Delete(context.Context, ...string) error {
	return nil
}

func (NullCache) Ping(context.Context) error {
	return nil
}
