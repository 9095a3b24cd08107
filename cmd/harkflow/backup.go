package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AndyHark/HarkFlowV2-sub000/internal/ops"
)

var (
	backupOut        string
	restoreArchive   string
	restoreTarget    string
	restoreOverwrite bool
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Archive the data directory as .tar.gz",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := backupOut
		if out == "" {
			ts := time.Now().UTC().Format("20060102T150405Z")
			out = filepath.Join("backups", "harkflow-"+ts+".tar.gz")
		}
		m, err := ops.BackupDataDir(cmd.Context(), cfg.Store.DataDir, out)
		if err != nil {
			return fmt.Errorf("backup: %w", err)
		}
		logger.Info("backup_written", zap.String("archive", out), zap.Int("files", len(m.Files)))
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Unpack a backup archive and verify it",
	RunE: func(cmd *cobra.Command, args []string) error {
		if restoreArchive == "" {
			return fmt.Errorf("--archive is required")
		}
		target := restoreTarget
		if target == "" {
			target = cfg.Store.DataDir
		}
		m, err := ops.RestoreDataDir(cmd.Context(), restoreArchive, target, ops.RestoreOptions{Overwrite: restoreOverwrite})
		if err != nil {
			return fmt.Errorf("restore: %w", err)
		}
		logger.Info("backup_restored",
			zap.String("archive", restoreArchive),
			zap.String("target", target),
			zap.Int("files", len(m.Files)),
			zap.Time("created_at", m.CreatedAt),
		)
		return nil
	},
}

func init() {
	backupCmd.Flags().StringVarP(&backupOut, "out", "o", "", "archive path (default backups/harkflow-<ts>.tar.gz)")
	restoreCmd.Flags().StringVar(&restoreArchive, "archive", "", "backup archive to restore")
	restoreCmd.Flags().StringVar(&restoreTarget, "target-dir", "", "restore into this directory (default store.data_dir)")
	restoreCmd.Flags().BoolVar(&restoreOverwrite, "overwrite", false, "allow restoring over existing files")
	rootCmd.AddCommand(backupCmd, restoreCmd)
}
