// SPDX-License-Identifier: Apache-2.0

package xexec

import (
	"context"
	"fmt"
	"slices"
)

// Call records a single invocation made through a FakeRunner.
type Call struct {
	Bin  string
	Args []string
	Env  []string
}

// FakeRunner is a scriptable Runner implementation for tests. Results are
// keyed by binary name; unscripted binaries succeed with empty output. When
// finer control is needed, Script takes precedence over Results and Errors.
type FakeRunner struct {
	Calls   []Call
	Results map[string]Result
	Errors  map[string]error

	// Script, when set, decides the outcome of every call.
	Script func(bin string, args []string) (Result, error)

	// Missing lists binaries that LookPath should fail to resolve.
	Missing []string
}

func NewFakeRunner() *FakeRunner {
	return &FakeRunner{
		Results: map[string]Result{},
		Errors:  map[string]error{},
	}
}

func (r *FakeRunner) Run(_ context.Context, bin string, args []string, env []string) (Result, error) {
	r.Calls = append(r.Calls, Call{Bin: bin, Args: args, Env: env})

	if r.Script != nil {
		return r.Script(bin, args)
	}
	if err, ok := r.Errors[bin]; ok {
		return Result{}, err
	}
	return r.Results[bin], nil
}

func (r *FakeRunner) LookPath(bin string) (string, error) {
	if slices.Contains(r.Missing, bin) {
		return "", fmt.Errorf("%q not found in PATH", bin)
	}
	return "/usr/bin/" + bin, nil
}

// CallsTo returns the recorded calls made to the given binary.
func (r *FakeRunner) CallsTo(bin string) []Call {
	var calls []Call
	for _, c := range r.Calls {
		if c.Bin == bin {
			calls = append(calls, c)
		}
	}
	return calls
}
