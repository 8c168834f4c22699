package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/vadimbarashkov/shortlink/internal/entity"
	"github.com/vadimbarashkov/shortlink/internal/metrics"
)

const (
	defaultCacheTTL     = 24 * time.Hour
	defaultStoreTimeout = 3 * time.Second
	defaultRecordTTL    = 7 * 24 * time.Hour
	defaultBatchSize    = 5
	defaultMaxAttempts  = 5
)

type urlRepository interface {
	FindByOriginalURL(ctx context.Context, originalURL string) (*entity.URL, error)
	ExistingShortCodes(ctx context.Context, codes []string) ([]string, error)
	Save(ctx context.Context, shortCode, originalURL string) (*entity.URL, error)
	RetrieveByShortCode(ctx context.Context, shortCode string) (*entity.URL, error)
	RetrieveAndUpdateStats(ctx context.Context, shortCode string) (*entity.URL, error)
	IncrementAccessCount(ctx context.Context, shortCode string) error
	Update(ctx context.Context, shortCode, originalURL string) (*entity.URL, error)
	Remove(ctx context.Context, shortCode string) error
	PurgeExpired(ctx context.Context, before time.Time) ([]string, error)
}

type urlCache interface {
	Enabled() bool
	Get(ctx context.Context, shortCode string) (string, error)
	Set(ctx context.Context, shortCode, originalURL string, ttl time.Duration) error
	Delete(ctx context.Context, shortCodes ...string) error
	Ping(ctx context.Context) error
}

type codeGenerator interface {
	Batch(n int) ([]string, error)
}

type urlChecker interface {
	Check(raw string) (string, error)
}

// Config carries the tunables of URLUseCase. Zero values fall back to defaults.
type Config struct {
	BaseURL      string
	CacheTTL     time.Duration
	StoreTimeout time.Duration
	RecordTTL    time.Duration
	BatchSize    int
	MaxAttempts  int
}

type URLUseCase struct {
	cfg     Config
	urlRepo urlRepository
	cache   urlCache
	gen     codeGenerator
	checker urlChecker
	logger  *slog.Logger
	now     func() time.Time

	// bg tracks the detached access count increments.
	bg sync.WaitGroup
}

func New(
	cfg Config,
	urlRepo urlRepository,
	cache urlCache,
	gen codeGenerator,
	checker urlChecker,
	logger *slog.Logger,
) *URLUseCase {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = defaultStoreTimeout
	}
	if cfg.RecordTTL <= 0 {
		cfg.RecordTTL = defaultRecordTTL
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}

	return &URLUseCase{
		cfg:     cfg,
		urlRepo: urlRepo,
		cache:   cache,
		gen:     gen,
		checker: checker,
		logger:  logger,
		now:     time.Now,
	}
}

// ShortURL composes the public short URL for shortCode.
func (uc *URLUseCase) ShortURL(shortCode string) string {
	return uc.cfg.BaseURL + "/" + shortCode
}

func (uc *URLUseCase) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, uc.cfg.StoreTimeout)
}

// ShortenURL returns the record for originalURL, creating it on first use.
// The same original URL always yields the same short code.
func (uc *URLUseCase) ShortenURL(ctx context.Context, originalURL string) (*entity.URL, error) {
	const op = "usecase.URLUseCase.ShortenURL"

	originalURL, err := uc.checker.Check(originalURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	url, err := uc.findByOriginalURL(ctx, originalURL)
	if err == nil {
		metrics.Shortens.WithLabelValues(metrics.ShortenExisting).Inc()
		return url, nil
	}
	if !errors.Is(err, entity.ErrURLNotFound) {
		metrics.Shortens.WithLabelValues(metrics.ShortenFailed).Inc()
		return nil, fmt.Errorf("%s: failed to look up original url: %w", op, err)
	}

	url, created, err := uc.allocate(ctx, originalURL)
	if err != nil {
		metrics.Shortens.WithLabelValues(metrics.ShortenFailed).Inc()
		return nil, fmt.Errorf("%s: failed to shorten url: %w", op, err)
	}

	if !created {
		metrics.Shortens.WithLabelValues(metrics.ShortenExisting).Inc()
		return url, nil
	}

	metrics.Shortens.WithLabelValues(metrics.ShortenCreated).Inc()
	uc.cacheSet(ctx, url.ShortCode, url.OriginalURL)

	return url, nil
}

func (uc *URLUseCase) findByOriginalURL(ctx context.Context, originalURL string) (*entity.URL, error) {
	ctx, cancel := uc.storeCtx(ctx)
	defer cancel()

	return uc.urlRepo.FindByOriginalURL(ctx, originalURL)
}

// allocate persists originalURL under a fresh short code. created is false when a
// concurrent request stored the same original URL first and its record is returned instead.
func (uc *URLUseCase) allocate(ctx context.Context, originalURL string) (*entity.URL, bool, error) {
	for attempt := 0; attempt < uc.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			metrics.AllocationRetries.Inc()
		}

		shortCode, err := uc.freeCandidate(ctx)
		if err != nil {
			return nil, false, err
		}
		if shortCode == "" {
			continue
		}

		url, err := uc.save(ctx, shortCode, originalURL)
		switch {
		case err == nil:
			return url, true, nil
		case errors.Is(err, entity.ErrShortCodeExists):
			continue
		case errors.Is(err, entity.ErrOriginalURLExists):
			url, err := uc.findByOriginalURL(ctx, originalURL)
			if err != nil {
				return nil, false, err
			}
			return url, false, nil
		default:
			return nil, false, err
		}
	}

	return nil, false, entity.ErrAllocationExhausted
}

// freeCandidate generates a batch of codes and returns the first one not yet stored,
// or an empty string when the whole batch is taken.
func (uc *URLUseCase) freeCandidate(ctx context.Context) (string, error) {
	candidates, err := uc.gen.Batch(uc.cfg.BatchSize)
	if err != nil {
		return "", err
	}

	ctx, cancel := uc.storeCtx(ctx)
	defer cancel()

	existing, err := uc.urlRepo.ExistingShortCodes(ctx, candidates)
	if err != nil {
		return "", err
	}

	taken := make(map[string]struct{}, len(existing))
	for _, code := range existing {
		taken[code] = struct{}{}
	}

	for _, code := range candidates {
		if _, ok := taken[code]; !ok {
			return code, nil
		}
	}

	return "", nil
}

func (uc *URLUseCase) save(ctx context.Context, shortCode, originalURL string) (*entity.URL, error) {
	ctx, cancel := uc.storeCtx(ctx)
	defer cancel()

	return uc.urlRepo.Save(ctx, shortCode, originalURL)
}

// ResolveShortCode returns the original URL behind shortCode and counts the access.
// A cache hit answers immediately and counts in the background; a miss counts and
// reads in one store call and then refills the cache.
func (uc *URLUseCase) ResolveShortCode(ctx context.Context, shortCode string) (string, error) {
	const op = "usecase.URLUseCase.ResolveShortCode"

	start := time.Now()

	originalURL, err := uc.cache.Get(ctx, shortCode)
	if err == nil {
		uc.observeCacheLookup(metrics.CacheHit)
		uc.incrementInBackground(ctx, shortCode)
		metrics.ResolveDuration.WithLabelValues("cache").Observe(time.Since(start).Seconds())
		return originalURL, nil
	}

	if errors.Is(err, entity.ErrCacheMiss) {
		uc.observeCacheLookup(metrics.CacheMiss)
	} else {
		uc.observeCacheLookup(metrics.CacheError)
		uc.logger.WarnContext(ctx, "cache lookup failed, falling back to store",
			slog.String("op", op),
			slog.String("short_code", shortCode),
			slog.Any("err", err),
		)
	}

	storeCtx, cancel := uc.storeCtx(ctx)
	defer cancel()

	url, err := uc.urlRepo.RetrieveAndUpdateStats(storeCtx, shortCode)
	if err != nil {
		return "", fmt.Errorf("%s: failed to resolve short code: %w", op, err)
	}

	uc.cacheSet(ctx, shortCode, url.OriginalURL)
	metrics.ResolveDuration.WithLabelValues("store").Observe(time.Since(start).Seconds())

	return url.OriginalURL, nil
}

func (uc *URLUseCase) observeCacheLookup(result string) {
	if uc.cache.Enabled() {
		metrics.CacheLookups.WithLabelValues(result).Inc()
	}
}

// incrementInBackground counts an access served from the cache without holding up the caller.
// The work outlives the request, so it keeps the request's values but not its cancellation.
func (uc *URLUseCase) incrementInBackground(ctx context.Context, shortCode string) {
	const op = "usecase.URLUseCase.incrementInBackground"

	ctx = context.WithoutCancel(ctx)

	uc.bg.Add(1)
	go func() {
		defer uc.bg.Done()

		storeCtx, cancel := uc.storeCtx(ctx)
		defer cancel()

		err := uc.urlRepo.IncrementAccessCount(storeCtx, shortCode)
		if err == nil {
			return
		}

		metrics.IncrementFailures.Inc()
		uc.logger.ErrorContext(ctx, "failed to increment access count",
			slog.String("op", op),
			slog.String("short_code", shortCode),
			slog.Any("err", err),
		)

		// The record is gone, so the cached entry must not keep resolving.
		if errors.Is(err, entity.ErrURLNotFound) {
			uc.cacheDelete(ctx, shortCode)
		}
	}()
}

func (uc *URLUseCase) cacheSet(ctx context.Context, shortCode, originalURL string) {
	const op = "usecase.URLUseCase.cacheSet"

	if err := uc.cache.Set(ctx, shortCode, originalURL, uc.cfg.CacheTTL); err != nil {
		metrics.CacheWriteFailures.Inc()
		uc.logger.WarnContext(ctx, "failed to cache url",
			slog.String("op", op),
			slog.String("short_code", shortCode),
			slog.Any("err", err),
		)
	}
}

func (uc *URLUseCase) cacheDelete(ctx context.Context, shortCodes ...string) {
	const op = "usecase.URLUseCase.cacheDelete"

	if err := uc.cache.Delete(ctx, shortCodes...); err != nil {
		metrics.CacheWriteFailures.Inc()
		uc.logger.WarnContext(ctx, "failed to evict cached urls",
			slog.String("op", op),
			slog.Int("count", len(shortCodes)),
			slog.Any("err", err),
		)
	}
}

func (uc *URLUseCase) ModifyURL(ctx context.Context, shortCode, originalURL string) (*entity.URL, error) {
	const op = "usecase.URLUseCase.ModifyURL"

	originalURL, err := uc.checker.Check(originalURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	storeCtx, cancel := uc.storeCtx(ctx)
	defer cancel()

	url, err := uc.urlRepo.Update(storeCtx, shortCode, originalURL)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to modify url: %w", op, err)
	}

	uc.cacheDelete(ctx, shortCode)

	return url, nil
}

func (uc *URLUseCase) DeactivateURL(ctx context.Context, shortCode string) error {
	const op = "usecase.URLUseCase.DeactivateURL"

	storeCtx, cancel := uc.storeCtx(ctx)
	defer cancel()

	if err := uc.urlRepo.Remove(storeCtx, shortCode); err != nil {
		return fmt.Errorf("%s: failed to deactivate url: %w", op, err)
	}

	uc.cacheDelete(ctx, shortCode)

	return nil
}

func (uc *URLUseCase) GetURLStats(ctx context.Context, shortCode string) (*entity.URL, error) {
	const op = "usecase.URLUseCase.GetURLStats"

	ctx, cancel := uc.storeCtx(ctx)
	defer cancel()

	url, err := uc.urlRepo.RetrieveByShortCode(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get url stats: %w", op, err)
	}

	return url, nil
}

// Health reports the cache connectivity. The service itself is always OK while it can answer.
func (uc *URLUseCase) Health(ctx context.Context) entity.Health {
	h := entity.Health{
		Status:    "OK",
		Timestamp: uc.now().UTC(),
		Cache:     entity.CacheConnected,
	}

	switch {
	case !uc.cache.Enabled():
		h.Cache = entity.CacheDisabled
	case uc.cache.Ping(ctx) != nil:
		h.Cache = entity.CacheDisconnected
	}

	return h
}

// Close waits for background increments to finish or for ctx to end.
func (uc *URLUseCase) Close(ctx context.Context) error {
	const op = "usecase.URLUseCase.Close"

	done := make(chan struct{})
	go func() {
		uc.bg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	}
}
