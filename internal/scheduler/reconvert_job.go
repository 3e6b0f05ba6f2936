package scheduler

import (
	"context"
	"time"

	"github.com/Ahmed-aleryani/coinmind/internal/modules/transactions"
	"github.com/rs/zerolog"
)

// Reconverter rewrites stored conversions for every user
type Reconverter interface {
	ReconvertAll(ctx context.Context) (transactions.MigrationReport, error)
}

// ReconvertJob sweeps all users and re-converts rows whose stored currency
// no longer matches the user's default
type ReconvertJob struct {
	reconverter Reconverter
	timeout     time.Duration
	log         zerolog.Logger
}

// NewReconvertJob creates a new re-conversion sweep job
func NewReconvertJob(reconverter Reconverter, log zerolog.Logger) *ReconvertJob {
	return &ReconvertJob{
		reconverter: reconverter,
		timeout:     time.Hour,
		log:         log.With().Str("job", "reconvert").Logger(),
	}
}

// Name returns the job name
func (j *ReconvertJob) Name() string {
	return "reconvert"
}

// Run executes the sweep. Per-row failures are reported, not returned.
func (j *ReconvertJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	report, err := j.reconverter.ReconvertAll(ctx)
	if err != nil {
		return err
	}

	event := j.log.Info()
	if report.Failed > 0 {
		event = j.log.Warn().Strs("errors", report.Errors)
	}
	event.
		Int("users", report.Users).
		Int("scanned", report.Scanned).
		Int("updated", report.Updated).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Msg("Re-conversion sweep completed")

	return nil
}
