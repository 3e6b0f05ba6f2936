package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var errBackupDisabled = errors.New("backups are not configured (set BACKUP_BUCKET)")

func backupCmd(a *app) *cobra.Command {
	var (
		rotate bool
		list   bool
	)

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Upload a snapshot of the ledger to object storage",
		Long: `Backup snapshots the ledger database, uploads the archive to the configured
S3-compatible bucket and, unless --rotate=false, deletes archives older than
BACKUP_RETENTION_DAYS. With --list it only prints the stored archives.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			container, cfg, err := a.openContainer(ctx)
			if err != nil {
				return err
			}
			defer container.Close()

			if container.BackupService == nil {
				return errBackupDisabled
			}

			if list {
				backups, err := container.BackupService.ListBackups(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), backups)
			}

			info, err := container.BackupService.CreateAndUploadBackup(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "uploaded %s (%d bytes)\n", info.Filename, info.SizeBytes)

			if rotate {
				deleted, err := container.BackupService.RotateOldBackups(ctx, cfg.Backup.RetentionDays)
				if err != nil {
					return fmt.Errorf("backup uploaded but rotation failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "rotated %d old backup(s)\n", deleted)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&rotate, "rotate", true, "delete backups past the retention window")
	cmd.Flags().BoolVar(&list, "list", false, "list stored backups instead of creating one")

	return cmd
}
