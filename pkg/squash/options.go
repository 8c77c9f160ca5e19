// SPDX-License-Identifier: Apache-2.0

package squash

import (
	"github.com/flysquash/flysquash/internal/xexec"
)

type options struct {
	runner xexec.Runner
	logger Logger
	store  HistoryStore
}

type Option func(*options)

func defaultOptions() *options {
	return &options{
		runner: xexec.New(),
		logger: NewNoopLogger(),
	}
}

// WithRunner sets the command runner used for the external tools. Tests use
// this to substitute a fake.
func WithRunner(r xexec.Runner) Option {
	return func(o *options) {
		o.runner = r
	}
}

// WithLogger sets the logger used to report step progress.
func WithLogger(l Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithHistoryStore substitutes the history table access, bypassing the
// database connection. Tests use this to run the sequence against a fake.
func WithHistoryStore(hs HistoryStore) Option {
	return func(o *options) {
		o.store = hs
	}
}
