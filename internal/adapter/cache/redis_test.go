package cache

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/vadimbarashkov/shortlink/internal/entity"

	rds "github.com/vadimbarashkov/shortlink/pkg/redis"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func TestRedisCache_Unreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { client.Close() })

	c := NewRedisCache(client, 100*time.Millisecond)
	ctx := context.Background()

	_, err := c.Get(ctx, "AbC12XZ")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, entity.ErrCacheMiss)

	assert.Error(t, c.Set(ctx, "AbC12XZ", "https://example.com", time.Hour))
	assert.Error(t, c.Ping(ctx))
	assert.True(t, c.Enabled())
}

// stalledServer accepts connections and never answers.
func stalledServer(t *testing.T) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				io.Copy(io.Discard, conn)
			}()
		}
	}()

	return ln.Addr().String()
}

func TestRedisCache_StalledServer(t *testing.T) {
	client := rds.New(stalledServer(t))
	t.Cleanup(func() { client.Close() })

	const timeout = 100 * time.Millisecond

	c := NewRedisCache(client, timeout)
	ctx := context.Background()

	start := time.Now()
	_, err := c.Get(ctx, "AbC12XZ")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, entity.ErrCacheMiss)
	assert.Less(t, time.Since(start), 3*timeout)

	start = time.Now()
	assert.Error(t, c.Set(ctx, "AbC12XZ", "https://example.com", time.Hour))
	assert.Less(t, time.Since(start), 3*timeout)
}

type RedisCacheTestSuite struct {
	suite.Suite
	client *redis.Client
	cache  *RedisCache
}

func (suite *RedisCacheTestSuite) SetupSuite() {
	if testing.Short() {
		suite.T().Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	redisCont, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		suite.T().Fatalf("Failed to start redis container: %v", err)
	}
	suite.T().Cleanup(func() {
		if err := redisCont.Terminate(ctx); err != nil {
			suite.T().Logf("Failed to terminate redis container: %v", err)
		}
	})

	endpoint, err := redisCont.Endpoint(ctx, "")
	if err != nil {
		suite.T().Fatalf("Failed to get redis endpoint: %v", err)
	}

	suite.client = redis.NewClient(&redis.Options{Addr: endpoint})
	suite.T().Cleanup(func() {
		suite.client.Close()
	})

	suite.cache = NewRedisCache(suite.client, time.Second)
}

func (suite *RedisCacheTestSuite) TearDownSubTest() {
	if err := suite.client.FlushDB(context.Background()).Err(); err != nil {
		suite.T().Fatalf("Failed to flush redis: %v", err)
	}
}

func (suite *RedisCacheTestSuite) TestGet() {
	ctx := context.Background()

	suite.Run("miss", func() {
		got, err := suite.cache.Get(ctx, "AbC12XZ")

		suite.ErrorIs(err, entity.ErrCacheMiss)
		suite.Empty(got)
	})

	suite.Run("hit", func() {
		suite.Require().NoError(suite.cache.Set(ctx, "AbC12XZ", "https://example.com", time.Hour))

		got, err := suite.cache.Get(ctx, "AbC12XZ")

		suite.NoError(err)
		suite.Equal("https://example.com", got)
	})
}

func (suite *RedisCacheTestSuite) TestSet() {
	ctx := context.Background()

	suite.Run("key and ttl", func() {
		suite.Require().NoError(suite.cache.Set(ctx, "AbC12XZ", "https://example.com", 24*time.Hour))

		val, err := suite.client.Get(ctx, "url:AbC12XZ").Result()
		suite.NoError(err)
		suite.Equal("https://example.com", val)

		ttl, err := suite.client.TTL(ctx, "url:AbC12XZ").Result()
		suite.NoError(err)
		suite.InDelta(24*time.Hour, ttl, float64(time.Minute))
	})
}

func (suite *RedisCacheTestSuite) TestDelete() {
	ctx := context.Background()

	suite.Run("removes every key", func() {
		suite.Require().NoError(suite.cache.Set(ctx, "aaaaaaa", "https://example.com/a", time.Hour))
		suite.Require().NoError(suite.cache.Set(ctx, "bbbbbbb", "https://example.com/b", time.Hour))

		suite.NoError(suite.cache.Delete(ctx, "aaaaaaa", "bbbbbbb", "ccccccc"))

		_, err := suite.cache.Get(ctx, "aaaaaaa")
		suite.ErrorIs(err, entity.ErrCacheMiss)
		_, err = suite.cache.Get(ctx, "bbbbbbb")
		suite.ErrorIs(err, entity.ErrCacheMiss)
	})

	suite.Run("nothing to delete", func() {
		suite.NoError(suite.cache.Delete(ctx))
	})
}

func (suite *RedisCacheTestSuite) TestPing() {
	suite.Run("connected", func() {
		suite.NoError(suite.cache.Ping(context.Background()))
	})
}

func TestRedisCache(t *testing.T) {
	suite.Run(t, new(RedisCacheTestSuite))
}
