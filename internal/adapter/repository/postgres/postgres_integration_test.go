package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/vadimbarashkov/shortlink/internal/entity"
	"github.com/vadimbarashkov/shortlink/migrations"

	pg "github.com/vadimbarashkov/shortlink/pkg/postgres"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

type URLRepositoryIntegrationTestSuite struct {
	suite.Suite
	db   *sqlx.DB
	repo *URLRepository
}

func (suite *URLRepositoryIntegrationTestSuite) SetupSuite() {
	if testing.Short() {
		suite.T().Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	pgCont, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("shortlink"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		tcpostgres.WithSQLDriver("pgx"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		suite.T().Fatalf("Failed to start postgres container: %v", err)
	}
	suite.T().Cleanup(func() {
		if err := pgCont.Terminate(ctx); err != nil {
			suite.T().Logf("Failed to terminate postgres container: %v", err)
		}
	})

	dsn, err := pgCont.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		suite.T().Fatalf("Failed to get postgres connection string: %v", err)
	}

	if err := pg.RunMigrations(migrations.FS, dsn); err != nil {
		suite.T().Fatalf("Failed to run migrations: %v", err)
	}

	suite.db, err = pg.New(ctx, dsn)
	if err != nil {
		suite.T().Fatalf("Failed to connect to database: %v", err)
	}
	suite.T().Cleanup(func() {
		suite.db.Close()
	})

	suite.repo = NewURLRepository(suite.db)
}

func (suite *URLRepositoryIntegrationTestSuite) TearDownSubTest() {
	_, err := suite.db.ExecContext(context.Background(), `TRUNCATE TABLE urls RESTART IDENTITY CASCADE`)
	if err != nil {
		suite.T().Fatalf("Failed to clean urls table: %v", err)
	}
}

func (suite *URLRepositoryIntegrationTestSuite) TestUniqueness() {
	ctx := context.Background()

	suite.Run("short code", func() {
		_, err := suite.repo.Save(ctx, "AbC12XZ", "https://example.com/a")
		suite.Require().NoError(err)

		_, err = suite.repo.Save(ctx, "AbC12XZ", "https://example.com/b")
		suite.ErrorIs(err, entity.ErrShortCodeExists)
	})

	suite.Run("original url", func() {
		_, err := suite.repo.Save(ctx, "AbC12XZ", "https://example.com/a")
		suite.Require().NoError(err)

		_, err = suite.repo.Save(ctx, "XyZ9876", "https://example.com/a")
		suite.ErrorIs(err, entity.ErrOriginalURLExists)

		url, err := suite.repo.FindByOriginalURL(ctx, "https://example.com/a")
		suite.NoError(err)
		suite.Equal("AbC12XZ", url.ShortCode)
	})

	suite.Run("existing short codes", func() {
		_, err := suite.repo.Save(ctx, "AbC12XZ", "https://example.com/a")
		suite.Require().NoError(err)

		existing, err := suite.repo.ExistingShortCodes(ctx, []string{"0000000", "AbC12XZ", "1111111"})
		suite.NoError(err)
		suite.Equal([]string{"AbC12XZ"}, existing)
	})
}

func (suite *URLRepositoryIntegrationTestSuite) TestConcurrentAccessCount() {
	ctx := context.Background()

	suite.Run("no lost updates", func() {
		_, err := suite.repo.Save(ctx, "AbC12XZ", "https://example.com")
		suite.Require().NoError(err)

		const k = 50

		var wg sync.WaitGroup
		for i := 0; i < k; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if i%2 == 0 {
					_, err := suite.repo.RetrieveAndUpdateStats(ctx, "AbC12XZ")
					suite.NoError(err)
					return
				}
				suite.NoError(suite.repo.IncrementAccessCount(ctx, "AbC12XZ"))
			}(i)
		}
		wg.Wait()

		url, err := suite.repo.RetrieveByShortCode(ctx, "AbC12XZ")
		suite.NoError(err)
		suite.Equal(int64(k), url.AccessCount)
	})
}

func (suite *URLRepositoryIntegrationTestSuite) TestPurgeExpired() {
	ctx := context.Background()

	suite.Run("rolling ttl", func() {
		_, err := suite.repo.Save(ctx, "0ldC0de", "https://example.com/old")
		suite.Require().NoError(err)
		_, err = suite.repo.Save(ctx, "FreshC0", "https://example.com/fresh")
		suite.Require().NoError(err)

		for _, stmt := range []string{
			`ALTER TABLE urls DISABLE TRIGGER urls_set_updated_at`,
			`UPDATE urls SET updated_at = now() - interval '8 days' WHERE short_code = '0ldC0de'`,
			`ALTER TABLE urls ENABLE TRIGGER urls_set_updated_at`,
		} {
			_, err = suite.db.ExecContext(ctx, stmt)
			suite.Require().NoError(err)
		}

		codes, err := suite.repo.PurgeExpired(ctx, time.Now().Add(-7*24*time.Hour))
		suite.NoError(err)
		suite.Equal([]string{"0ldC0de"}, codes)

		_, err = suite.repo.RetrieveByShortCode(ctx, "0ldC0de")
		suite.ErrorIs(err, entity.ErrURLNotFound)

		_, err = suite.repo.RetrieveByShortCode(ctx, "FreshC0")
		suite.NoError(err)
	})
}

func TestURLRepositoryIntegration(t *testing.T) {
	suite.Run(t, new(URLRepositoryIntegrationTestSuite))
}
