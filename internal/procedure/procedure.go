// Package procedure defines the sync procedure a run invokes, and the
// external-command implementation of it.
package procedure

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Invocation is everything a procedure receives for one run.
type Invocation struct {
	// Env is the complete environment, NAME=value entries.
	Env []string

	// Stdout receives the human-readable output that lands in the sync log.
	Stdout io.Writer

	// Stderr receives diagnostics.
	Stderr io.Writer
}

// Procedure performs the actual reconciliation between the two stores.
type Procedure interface {
	// Name identifies the procedure in logs and metrics.
	Name() string

	// Run executes the procedure once. A non-nil error means the run
	// failed; ExitCode extracts the status to report.
	Run(ctx context.Context, inv Invocation) error
}

// ExitError reports a procedure that finished with a non-zero status.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("procedure exited with status %d: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("procedure exited with status %d", e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode maps a procedure error to a process exit status:
// 0 for nil, the carried code for an *ExitError, 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return 1
}

// Func adapts an ordinary function into a Procedure.
type Func struct {
	ID string
	Fn func(ctx context.Context, inv Invocation) error
}

var _ Procedure = Func{}

// Name implements Procedure.
func (f Func) Name() string { return f.ID }

// Run implements Procedure.
func (f Func) Run(ctx context.Context, inv Invocation) error { return f.Fn(ctx, inv) }
