package procedure

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// exitNotFound mirrors the shell's status for a command that cannot be run.
const exitNotFound = 127

// waitDelay bounds how long Run waits for output pipes after the command
// is killed, in case it left children holding them open.
const waitDelay = 2 * time.Second

// Exec runs an external command as the sync procedure.
type Exec struct {
	argv    []string
	workDir string
}

var _ Procedure = (*Exec)(nil)

// NewExec returns a procedure running argv in workDir ("" = current).
func NewExec(argv []string, workDir string) (*Exec, error) {
	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return nil, errors.New("procedure: empty command")
	}
	return &Exec{argv: append([]string(nil), argv...), workDir: workDir}, nil
}

// Name implements Procedure.
func (e *Exec) Name() string {
	return "exec:" + filepath.Base(e.argv[0])
}

// Run implements Procedure. The command sees exactly inv.Env.
func (e *Exec) Run(ctx context.Context, inv Invocation) error {
	cmd := exec.CommandContext(ctx, e.argv[0], e.argv[1:]...)
	cmd.Dir = e.workDir
	cmd.Env = inv.Env
	cmd.Stdout = inv.Stdout
	cmd.Stderr = inv.Stderr
	cmd.WaitDelay = waitDelay

	err := cmd.Run()
	if err == nil {
		return nil
	}

	var ee *exec.ExitError
	if errors.As(err, &ee) {
		code := ee.ExitCode()
		if code < 0 {
			// Killed by a signal, typically the context deadline.
			code = 1
			if ctx.Err() != nil {
				return &ExitError{Code: code, Err: ctx.Err()}
			}
		}
		return &ExitError{Code: code, Err: err}
	}
	if errors.Is(err, exec.ErrNotFound) {
		return &ExitError{Code: exitNotFound, Err: err}
	}
	return fmt.Errorf("procedure: starting %s: %w", e.argv[0], err)
}
