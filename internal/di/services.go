// Package di provides dependency injection for service implementations.
package di

import (
	"context"
	"fmt"

	"github.com/Ahmed-aleryani/coinmind/internal/clients/exchangerate"
	"github.com/Ahmed-aleryani/coinmind/internal/config"
	"github.com/Ahmed-aleryani/coinmind/internal/modules/analytics"
	"github.com/Ahmed-aleryani/coinmind/internal/modules/categories"
	"github.com/Ahmed-aleryani/coinmind/internal/modules/currency"
	"github.com/Ahmed-aleryani/coinmind/internal/modules/profiles"
	"github.com/Ahmed-aleryani/coinmind/internal/modules/transactions"
	"github.com/Ahmed-aleryani/coinmind/internal/reliability"
	"github.com/rs/zerolog"
)

// InitializeServices creates all services and seeds the default categories.
// Object-storage backups are only wired when a bucket is configured; a client
// that fails to initialize disables backups instead of failing startup.
func InitializeServices(ctx context.Context, container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	// Exchange rates: provider client behind the process-wide cache
	container.RateClient = exchangerate.NewClient(cfg.Rates.ProviderURL, log)
	container.RateCache = currency.NewRateCache(container.RateClient.FetchRates, currency.RateCacheConfig{
		TTL:      cfg.Rates.CacheTTL,
		Timeout:  cfg.Rates.FetchTimeout,
		Capacity: cfg.Rates.CacheSlots,
	}, log)
	container.Normalizer = currency.NewNormalizer(container.RateCache, log)

	container.ProfileService = profiles.NewService(container.ProfileRepo, cfg.DefaultCurrency, log)
	container.CategoryResolver = categories.NewResolver(container.CategoryRepo, log)

	seeded, err := container.CategoryRepo.SeedDefaults(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed default categories: %w", err)
	}
	log.Info().Int("inserted", seeded).Msg("Default categories seeded")

	container.Engine = analytics.NewEngine(container.Normalizer, container.RateCache, log)
	container.TransactionStore = transactions.NewStore(
		container.TransactionRepo,
		container.ProfileService,
		container.CategoryResolver,
		container.Normalizer,
		container.RateCache,
		container.Engine,
		log,
	)
	container.AnalyticsService = analytics.NewService(
		container.Engine,
		container.TransactionStore,
		container.ProfileService,
		log,
	)

	if cfg.Backup.Enabled() {
		s3Client, err := reliability.NewS3Client(ctx, cfg.Backup, log)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize S3 client - backups disabled")
		} else {
			container.S3Client = s3Client
			container.BackupService = reliability.NewBackupService(container.Databases(), s3Client, cfg.DataDir, log)
			log.Info().Str("bucket", cfg.Backup.Bucket).Msg("Backup service initialized")
		}
	} else {
		log.Debug().Msg("Backup bucket not configured - backups disabled")
	}

	log.Debug().Msg("Services initialized")
	return nil
}
