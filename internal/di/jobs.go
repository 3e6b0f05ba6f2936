// Package di provides dependency injection for scheduler jobs.
package di

import (
	"fmt"

	"github.com/Ahmed-aleryani/coinmind/internal/config"
	"github.com/Ahmed-aleryani/coinmind/internal/reliability"
	"github.com/Ahmed-aleryani/coinmind/internal/scheduler"
	"github.com/rs/zerolog"
)

// RegisterJobs builds the maintenance jobs from the container
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	if container == nil {
		return nil, fmt.Errorf("container cannot be nil")
	}

	instances := &JobInstances{
		Checkpoint: reliability.NewCheckpointJob(container.Databases(), cfg.DataDir, log),
		Reconvert:  scheduler.NewReconvertJob(container.TransactionStore, log),
	}

	if container.BackupService != nil {
		instances.Backup = reliability.NewBackupJob(container.BackupService, cfg.Backup.RetentionDays, log)
	}

	return instances, nil
}

// ScheduleJobs registers every job that has a schedule with s.
// Jobs with an empty schedule stay available for manual runs.
func ScheduleJobs(s *scheduler.Scheduler, jobs *JobInstances, cfg *config.Config) error {
	if err := s.AddJob(cfg.Schedules.Checkpoint, jobs.Checkpoint); err != nil {
		return err
	}
	if err := s.AddJob(cfg.Schedules.Reconvert, jobs.Reconvert); err != nil {
		return err
	}
	if jobs.Backup != nil {
		if err := s.AddJob(cfg.Schedules.Backup, jobs.Backup); err != nil {
			return err
		}
	}
	return nil
}
