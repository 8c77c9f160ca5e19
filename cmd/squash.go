// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/flysquash/flysquash/pkg/squash"
)

func squashCmd() *cobra.Command {
	var yes bool

	squashCmd := &cobra.Command{
		Use:   "squash",
		Short: "Squash the migration history into a single baseline migration",
		Long: `Squash backs up the migration files and the database, exports the current
schema as a baseline migration, clears the Flyway history table, installs
the baseline and repairs checksums, then verifies the result.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			s, err := NewSquash(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			if !yes {
				fmt.Println("Squashing will rewrite the migration history of the target database.")
				ok, _ := pterm.DefaultInteractiveConfirm.Show()
				if !ok {
					return ErrNotConfirmed
				}
			}

			sp, _ := pterm.DefaultSpinner.WithText("Squashing migration history...").Start()

			result, err := s.Run(ctx)
			if err != nil {
				sp.Fail(fmt.Sprintf("Failed to squash: %s", err))
				return err
			}

			sp.Success(fmt.Sprintf("Squashed %d history rows into baseline %q (backup in %s)",
				result.RowsCleared, result.BaselineFile, result.BackupDir))
			return nil
		},
	}

	squashCmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	squashCmd.Flags().String("baseline-version", "", "version for the new baseline (defaults to the latest applied version)")
	squashCmd.Flags().String("baseline-description", squash.DefaultBaselineDescription, "description for the new baseline migration")

	viper.BindPFlag("BASELINE_VERSION", squashCmd.Flags().Lookup("baseline-version"))
	viper.BindPFlag("BASELINE_DESCRIPTION", squashCmd.Flags().Lookup("baseline-description"))

	return squashCmd
}
