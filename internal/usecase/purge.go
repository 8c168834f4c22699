package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vadimbarashkov/shortlink/internal/metrics"
)

// PurgeExpired removes records idle for longer than the record TTL along with
// their cache entries, and returns how many records were removed.
func (uc *URLUseCase) PurgeExpired(ctx context.Context) (int, error) {
	const op = "usecase.URLUseCase.PurgeExpired"

	before := uc.now().Add(-uc.cfg.RecordTTL)

	storeCtx, cancel := uc.storeCtx(ctx)
	defer cancel()

	codes, err := uc.urlRepo.PurgeExpired(storeCtx, before)
	if err != nil {
		return 0, fmt.Errorf("%s: failed to purge expired urls: %w", op, err)
	}

	if len(codes) > 0 {
		metrics.PurgedRecords.Add(float64(len(codes)))
		uc.cacheDelete(ctx, codes...)
	}

	return len(codes), nil
}

// RunPurger calls PurgeExpired every interval until ctx is done.
// Failed runs are logged and retried on the next tick.
func (uc *URLUseCase) RunPurger(ctx context.Context, interval time.Duration) error {
	const op = "usecase.URLUseCase.RunPurger"

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := uc.PurgeExpired(ctx)
			if err != nil {
				uc.logger.ErrorContext(ctx, "purge failed", slog.String("op", op), slog.Any("err", err))
				continue
			}
			if n > 0 {
				uc.logger.InfoContext(ctx, "purged expired urls", slog.String("op", op), slog.Int("count", n))
			}
		}
	}
}
