// SPDX-License-Identifier: Apache-2.0

package xexec

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
)

// Result captures the outcome of a single command invocation.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner abstracts command execution so the tool drivers can be tested
// without the external binaries installed.
type Runner interface {
	// Run executes bin with args, appending env to the inherited
	// environment, and waits for it to exit. A non-zero exit status is
	// reported through Result.ExitCode, not as an error; errors are
	// reserved for failures to start or cancellation.
	Run(ctx context.Context, bin string, args []string, env []string) (Result, error)

	// LookPath resolves bin against PATH.
	LookPath(bin string) (string, error)
}

type execRunner struct{}

// New returns a Runner backed by os/exec.
func New() Runner {
	return &execRunner{}
}

func (r *execRunner) Run(ctx context.Context, bin string, args []string, env []string) (Result, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Env = append(os.Environ(), env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	res := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	exitErr := &exec.ExitError{}
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	if err != nil {
		return res, err
	}

	return res, nil
}

func (r *execRunner) LookPath(bin string) (string, error) {
	return exec.LookPath(bin)
}
