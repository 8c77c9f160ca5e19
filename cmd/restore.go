// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/flysquash/flysquash/pkg/squash"
)

func restoreCmd() *cobra.Command {
	var force bool
	var withDatabase bool

	restoreCmd := &cobra.Command{
		Use:       "restore <backup directory>",
		Short:     "Undo a squash by restoring migration files (and optionally the database) from a backup",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"directory"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			backupDir := args[0]

			s, err := NewSquash(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			sp, _ := pterm.DefaultSpinner.WithText(fmt.Sprintf("Restoring from %s...", backupDir)).Start()

			err = s.Restore(ctx, backupDir, squash.RestoreOptions{
				Force:        force,
				WithDatabase: withDatabase,
			})
			if err != nil {
				sp.Fail(fmt.Sprintf("Failed to restore: %s", err))
				return err
			}

			sp.Success("Restore complete")
			return nil
		},
	}

	restoreCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite a non-empty migrations directory")
	restoreCmd.Flags().BoolVar(&withDatabase, "with-database", false, "also replay the database dump through psql")

	return restoreCmd
}
