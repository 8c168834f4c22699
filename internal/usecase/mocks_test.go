package usecase

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/vadimbarashkov/shortlink/internal/entity"
)

type MockURLRepository struct {
	mock.Mock
}

func (r *MockURLRepository) FindByOriginalURL(ctx context.Context, originalURL string) (*entity.URL, error) {
	args := r.Called(ctx, originalURL)
	url, _ := args.Get(0).(*entity.URL)
	return url, args.Error(1)
}

func (r *MockURLRepository) ExistingShortCodes(ctx context.Context, codes []string) ([]string, error) {
	args := r.Called(ctx, codes)
	existing, _ := args.Get(0).([]string)
	return existing, args.Error(1)
}

func (r *MockURLRepository) Save(ctx context.Context, shortCode, originalURL string) (*entity.URL, error) {
	args := r.Called(ctx, shortCode, originalURL)
	url, _ := args.Get(0).(*entity.URL)
	return url, args.Error(1)
}

func (r *MockURLRepository) RetrieveByShortCode(ctx context.Context, shortCode string) (*entity.URL, error) {
	args := r.Called(ctx, shortCode)
	url, _ := args.Get(0).(*entity.URL)
	return url, args.Error(1)
}

func (r *MockURLRepository) RetrieveAndUpdateStats(ctx context.Context, shortCode string) (*entity.URL, error) {
	args := r.Called(ctx, shortCode)
	url, _ := args.Get(0).(*entity.URL)
	return url, args.Error(1)
}

func (r *MockURLRepository) IncrementAccessCount(ctx context.Context, shortCode string) error {
	args := r.Called(ctx, shortCode)
	return args.Error(0)
}

func (r *MockURLRepository) Update(ctx context.Context, shortCode, originalURL string) (*entity.URL, error) {
	args := r.Called(ctx, shortCode, originalURL)
	url, _ := args.Get(0).(*entity.URL)
	return url, args.Error(1)
}

func (r *MockURLRepository) Remove(ctx context.Context, shortCode string) error {
	args := r.Called(ctx, shortCode)
	return args.Error(0)
}

func (r *MockURLRepository) PurgeExpired(ctx context.Context, before time.Time) ([]string, error) {
	args := r.Called(ctx, before)
	codes, _ := args.Get(0).([]string)
	return codes, args.Error(1)
}

type MockURLCache struct {
	mock.Mock
	enabled bool
}

func (c *MockURLCache) Enabled() bool {
	return c.enabled
}

func (c *MockURLCache) Get(ctx context.Context, shortCode string) (string, error) {
	args := c.Called(ctx, shortCode)
	return args.String(0), args.Error(1)
}

func (c *MockURLCache) Set(ctx context.Context, shortCode, originalURL string, ttl time.Duration) error {
	args := c.Called(ctx, shortCode, originalURL, ttl)
	return args.Error(0)
}

func (c *MockURLCache) Delete(ctx context.Context, shortCodes ...string) error {
	args := c.Called(ctx, shortCodes)
	return args.Error(0)
}

func (c *MockURLCache) Ping(ctx context.Context) error {
	args := c.Called(ctx)
	return args.Error(0)
}

type MockCodeGenerator struct {
	mock.Mock
}

func (g *MockCodeGenerator) Batch(n int) ([]string, error) {
	args := g.Called(n)
	codes, _ := args.Get(0).([]string)
	return codes, args.Error(1)
}
