// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flysquash/flysquash/cmd/flags"
	"github.com/flysquash/flysquash/pkg/state"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show a summary of the Flyway migration history",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			st, err := state.New(ctx, flags.PostgresURL(), flags.HistorySchema(), flags.HistoryTable(), flags.LockTimeout())
			if err != nil {
				return err
			}
			defer st.Close()

			exists, err := st.HistoryTableExists(ctx)
			if err != nil {
				return err
			}
			if !exists {
				return fmt.Errorf("history table %s.%s does not exist", flags.HistorySchema(), flags.HistoryTable())
			}

			summary, err := st.Summarize(ctx)
			if err != nil {
				return err
			}

			summaryJSON, err := json.MarshalIndent(summary, "", "  ")
			if err != nil {
				return err
			}

			fmt.Println(string(summaryJSON))
			return nil
		},
	}
}
