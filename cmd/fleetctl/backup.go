package main

import (
	"fmt"

	"carbook/internal/database"

	"github.com/spf13/cobra"
)

func newBackupCmd(open func() (*env, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Write a database snapshot and prune old ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := open()
			if err != nil {
				return err
			}
			defer e.Close()

			svc := database.NewBackupService(e.db, e.cfg.Database.Backup, e.logger)
			path, err := svc.PerformBackup(cmd.Context())
			if err != nil {
				return err
			}
			svc.CleanupOldBackups()
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}
