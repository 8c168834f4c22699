// Package app wires the configuration, adapters and use case into a running service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/httplog/v2"
	"github.com/jmoiron/sqlx"
	"github.com/vadimbarashkov/shortlink/internal/adapter/cache"
	"github.com/vadimbarashkov/shortlink/internal/adapter/repository/postgres"
	"github.com/vadimbarashkov/shortlink/internal/config"
	"github.com/vadimbarashkov/shortlink/internal/shortcode"
	"github.com/vadimbarashkov/shortlink/internal/urlcheck"
	"github.com/vadimbarashkov/shortlink/internal/usecase"
	"github.com/vadimbarashkov/shortlink/migrations"
	"golang.org/x/sync/errgroup"

	goredis "github.com/redis/go-redis/v9"
	delivery "github.com/vadimbarashkov/shortlink/internal/adapter/delivery/http"
	pg "github.com/vadimbarashkov/shortlink/pkg/postgres"
	rds "github.com/vadimbarashkov/shortlink/pkg/redis"
)

const (
	serviceName     = "shortlink"
	shutdownTimeout = 10 * time.Second
)

type urlCache interface {
	Enabled() bool
	Get(ctx context.Context, shortCode string) (string, error)
	Set(ctx context.Context, shortCode, originalURL string, ttl time.Duration) error
	Delete(ctx context.Context, shortCodes ...string) error
	Ping(ctx context.Context) error
}

type App struct {
	cfg     *config.Config
	logger  *httplog.Logger
	db      *sqlx.DB
	redis   *goredis.Client
	useCase *usecase.URLUseCase
	handler http.Handler
}

// New connects the store, migrates it, selects the cache and builds the router.
// A cache that cannot be reached is only reported; the service runs on the store alone until it recovers.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	const op = "app.New"

	logger := newLogger(cfg)

	if err := pg.RunMigrations(migrations.FS, cfg.Postgres.DSN()); err != nil {
		return nil, fmt.Errorf("%s: failed to run migrations: %w", op, err)
	}

	db, err := pg.New(
		ctx,
		cfg.Postgres.DSN(),
		pg.WithConnMaxIdleTime(cfg.Postgres.ConnMaxIdleTime),
		pg.WithConnMaxLifetime(cfg.Postgres.ConnMaxLifetime),
		pg.WithMaxIdleConns(cfg.Postgres.MaxIdleConns),
		pg.WithMaxOpenConns(cfg.Postgres.MaxOpenConns),
		pg.WithConnectTimeout(cfg.Store.OpTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to connect to database: %w", op, err)
	}

	a := &App{
		cfg:    cfg,
		logger: logger,
		db:     db,
	}

	var c urlCache

	if cfg.Cache.Enabled {
		a.redis = rds.New(cfg.Cache.Addr, rds.WithPassword(cfg.Cache.Password), rds.WithDB(cfg.Cache.DB))
		redisCache := cache.NewRedisCache(a.redis, cfg.Cache.OpTimeout)

		if err := redisCache.Ping(ctx); err != nil {
			logger.WarnContext(ctx, "cache is unreachable, serving from store until it recovers",
				slog.String("op", op),
				slog.String("addr", cfg.Cache.Addr),
				slog.Any("err", err),
			)
		}

		c = redisCache
	} else {
		logger.InfoContext(ctx, "cache is disabled", slog.String("op", op))
		c = cache.NewNullCache()
	}

	gen, err := shortcode.New(cfg.ShortCode.Alphabet, cfg.ShortCode.Length)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("%s: failed to create short code generator: %w", op, err)
	}

	a.useCase = usecase.New(
		usecase.Config{
			BaseURL:      cfg.BaseURL,
			CacheTTL:     cfg.Cache.TTL,
			StoreTimeout: cfg.Store.OpTimeout,
			RecordTTL:    cfg.Store.RecordTTL,
			BatchSize:    cfg.ShortCode.BatchSize,
			MaxAttempts:  cfg.ShortCode.MaxAttempts,
		},
		postgres.NewURLRepository(db),
		c,
		gen,
		urlcheck.New(cfg.BaseURL, cfg.ShortCode.Length, cfg.BlacklistedDomains),
		logger.Logger,
	)

	a.handler = delivery.NewRouter(logger, a.useCase, gen)

	return a, nil
}

func newLogger(cfg *config.Config) *httplog.Logger {
	opts := httplog.Options{
		LogLevel:        slog.LevelDebug,
		Concise:         true,
		RequestHeaders:  true,
		TimeFieldFormat: time.RFC3339,
		Tags: map[string]string{
			"env": cfg.Env,
		},
	}

	if cfg.Env == config.EnvProd {
		opts.LogLevel = slog.LevelInfo
		opts.JSON = true
		opts.Concise = false
	}

	return httplog.NewLogger(serviceName, opts)
}

func (a *App) Handler() http.Handler {
	return a.handler
}

// newServer builds the HTTP server. Requests keep the values of ctx but not its
// cancellation, so Shutdown can drain them after ctx is done.
func (a *App) newServer(ctx context.Context) *http.Server {
	return &http.Server{
		Addr:           a.cfg.HTTPServer.Addr(),
		Handler:        a.handler,
		ReadTimeout:    a.cfg.HTTPServer.ReadTimeout,
		WriteTimeout:   a.cfg.HTTPServer.WriteTimeout,
		IdleTimeout:    a.cfg.HTTPServer.IdleTimeout,
		MaxHeaderBytes: a.cfg.HTTPServer.MaxHeaderBytes,
		BaseContext: func(_ net.Listener) context.Context {
			return context.WithoutCancel(ctx)
		},
	}
}

// Run serves HTTP and purges expired records until ctx is done, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	const op = "app.App.Run"

	server := a.newServer(ctx)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.InfoContext(ctx, "starting server",
			slog.String("addr", server.Addr),
			slog.String("env", a.cfg.Env),
		)

		var err error

		switch a.cfg.Env {
		case config.EnvProd:
			err = server.ListenAndServeTLS(a.cfg.HTTPServer.CertFile, a.cfg.HTTPServer.KeyFile)
		default:
			err = server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s: server error occurred: %w", op, err)
		}

		return nil
	})

	g.Go(func() error {
		return a.useCase.RunPurger(ctx, a.cfg.Store.PurgeInterval)
	})

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s: failed to shutdown server: %w", op, err)
		}

		if err := a.useCase.Close(shutdownCtx); err != nil {
			return fmt.Errorf("%s: failed to drain background work: %w", op, err)
		}

		a.logger.InfoContext(shutdownCtx, "server stopped")

		return nil
	})

	return g.Wait()
}

// Close releases the store and cache connections.
func (a *App) Close() error {
	var errs []error

	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}

	return errors.Join(errs...)
}

// Run builds the service from cfg and serves it until ctx is done.
func Run(ctx context.Context, cfg *config.Config) error {
	const op = "app.Run"

	a, err := New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer a.Close()

	return a.Run(ctx)
}
