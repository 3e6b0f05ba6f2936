package reliability

import (
	"context"
	"fmt"
	"time"

	"github.com/Ahmed-aleryani/coinmind/internal/database"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"
)

// lowDiskBytes is the free-space level below which maintenance logs an error
const lowDiskBytes = 500 * 1024 * 1024

// CheckpointJob truncates the WAL of every database and reports free disk space
type CheckpointJob struct {
	databases []*database.DB
	dataDir   string
	log       zerolog.Logger
}

// NewCheckpointJob creates a new WAL checkpoint job
func NewCheckpointJob(databases []*database.DB, dataDir string, log zerolog.Logger) *CheckpointJob {
	return &CheckpointJob{
		databases: databases,
		dataDir:   dataDir,
		log:       log.With().Str("job", "wal_checkpoint").Logger(),
	}
}

// Name returns the job name for scheduler
func (j *CheckpointJob) Name() string {
	return "wal_checkpoint"
}

// Run checkpoints every database. A failed checkpoint is logged and the
// remaining databases are still processed.
func (j *CheckpointJob) Run() error {
	failed := 0
	for _, db := range j.databases {
		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			j.log.Warn().Err(err).Str("database", db.Name()).Msg("WAL checkpoint failed")
			failed++
			continue
		}

		if stats, err := db.GetStats(); err == nil {
			j.log.Debug().
				Str("database", db.Name()).
				Int64("size_bytes", stats.SizeBytes).
				Int64("wal_size_bytes", stats.WALSizeBytes).
				Msg("WAL checkpoint completed")
		}
	}

	j.checkDiskSpace()

	if failed > 0 {
		return fmt.Errorf("%d of %d WAL checkpoints failed", failed, len(j.databases))
	}
	return nil
}

func (j *CheckpointJob) checkDiskSpace() {
	usage, err := disk.Usage(j.dataDir)
	if err != nil {
		j.log.Warn().Err(err).Str("path", j.dataDir).Msg("Failed to read disk usage")
		return
	}

	if usage.Free < lowDiskBytes {
		j.log.Error().
			Uint64("free_bytes", usage.Free).
			Float64("used_percent", usage.UsedPercent).
			Msg("Low disk space in data directory")
		return
	}

	j.log.Debug().Uint64("free_bytes", usage.Free).Msg("Disk space check")
}

// BackupJob uploads a fresh backup and rotates old ones
type BackupJob struct {
	service       *BackupService
	retentionDays int
	timeout       time.Duration
	log           zerolog.Logger
}

// NewBackupJob creates a new backup job
func NewBackupJob(service *BackupService, retentionDays int, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		service:       service,
		retentionDays: retentionDays,
		timeout:       30 * time.Minute,
		log:           log.With().Str("job", "backup").Logger(),
	}
}

// Name returns the job name for scheduler
func (j *BackupJob) Name() string {
	return "backup"
}

// Run uploads a backup, then rotates. Rotation only runs after a successful upload.
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	info, err := j.service.CreateAndUploadBackup(ctx)
	if err != nil {
		return err
	}

	deleted, err := j.service.RotateOldBackups(ctx, j.retentionDays)
	if err != nil {
		j.log.Warn().Err(err).Msg("Backup rotation failed")
	}

	j.log.Info().
		Str("archive", info.Filename).
		Int("rotated", deleted).
		Msg("Backup job completed")
	return nil
}
