// SPDX-License-Identifier: Apache-2.0

package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		Name      string
		Err       error
		Retryable bool
	}{
		{
			Name:      "lock_timeout is retryable",
			Err:       &pq.Error{Code: "55P03"},
			Retryable: true,
		},
		{
			Name:      "deadlock_detected is retryable",
			Err:       &pq.Error{Code: "40P01"},
			Retryable: true,
		},
		{
			Name:      "wrapped retryable errors are recognized",
			Err:       fmt.Errorf("query failed: %w", &pq.Error{Code: "55P03"}),
			Retryable: true,
		},
		{
			Name:      "other postgres errors are not retryable",
			Err:       &pq.Error{Code: "42P01"},
			Retryable: false,
		},
		{
			Name:      "non-postgres errors are not retryable",
			Err:       errors.New("connection refused"),
			Retryable: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			assert.Equal(t, tt.Retryable, isRetryable(tt.Err))
		})
	}
}
