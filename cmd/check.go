// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the environment without changing anything",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			s, err := NewSquash(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			report, err := s.Check(ctx)
			if err != nil {
				return err
			}

			reportJSON, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return err
			}

			fmt.Println(string(reportJSON))

			return report.Err()
		},
	}
}
