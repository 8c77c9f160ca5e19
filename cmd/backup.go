// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func backupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Back up the migration files and the database without squashing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			s, err := NewSquash(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			sp, _ := pterm.DefaultSpinner.WithText("Backing up migration files and database...").Start()

			b, err := s.Backup(ctx)
			if err != nil {
				sp.Fail(fmt.Sprintf("Failed to back up: %s", err))
				return err
			}

			sp.Success(fmt.Sprintf("Backup written to %s", b.Dir()))
			return nil
		},
	}
}
