// Package di provides dependency injection type definitions.
package di

import (
	"github.com/Ahmed-aleryani/coinmind/internal/clients/exchangerate"
	"github.com/Ahmed-aleryani/coinmind/internal/database"
	"github.com/Ahmed-aleryani/coinmind/internal/modules/analytics"
	"github.com/Ahmed-aleryani/coinmind/internal/modules/categories"
	"github.com/Ahmed-aleryani/coinmind/internal/modules/currency"
	"github.com/Ahmed-aleryani/coinmind/internal/modules/profiles"
	"github.com/Ahmed-aleryani/coinmind/internal/modules/transactions"
	"github.com/Ahmed-aleryani/coinmind/internal/reliability"
	"github.com/Ahmed-aleryani/coinmind/internal/scheduler"
)

// Container holds all dependencies for the application.
// It is created by Wire() and passed to the server and the CLI.
type Container struct {
	// Databases
	LedgerDB *database.DB

	// Clients
	RateClient *exchangerate.Client
	S3Client   *reliability.S3Client // nil when backups are not configured

	// Repositories
	ProfileRepo     *profiles.Repository
	CategoryRepo    *categories.Repository
	TransactionRepo *transactions.Repository

	// Services
	RateCache        *currency.RateCache
	Normalizer       *currency.Normalizer
	ProfileService   *profiles.Service
	CategoryResolver *categories.Resolver
	Engine           *analytics.Engine
	TransactionStore *transactions.Store
	AnalyticsService *analytics.Service
	BackupService    *reliability.BackupService // nil when backups are not configured
}

// Databases returns every open database, for maintenance jobs
func (c *Container) Databases() []*database.DB {
	if c.LedgerDB == nil {
		return nil
	}
	return []*database.DB{c.LedgerDB}
}

// Close closes all databases
func (c *Container) Close() error {
	if c.LedgerDB != nil {
		return c.LedgerDB.Close()
	}
	return nil
}

// JobInstances holds the maintenance jobs built from the container
type JobInstances struct {
	Checkpoint *reliability.CheckpointJob
	Backup     *reliability.BackupJob // nil when backups are not configured
	Reconvert  *scheduler.ReconvertJob
}
