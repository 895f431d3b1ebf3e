// Package runner executes one sync run: create the timestamped log, run
// the sync procedure into it, then commit the log whatever the outcome.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/flemzord/notionsync/internal/procedure"
	"github.com/flemzord/notionsync/internal/security"
	"github.com/flemzord/notionsync/internal/synclog"
	"github.com/flemzord/notionsync/internal/vcs"
)

// Trigger says what started a run.
type Trigger string

// Triggers.
const (
	TriggerSchedule Trigger = "schedule"
	TriggerManual   Trigger = "manual"
	TriggerHTTP     Trigger = "http"
	TriggerWebhook  Trigger = "webhook"
)

var (
	// ErrProcedureFailed wraps the error of a procedure that did not succeed.
	ErrProcedureFailed = errors.New("runner: sync procedure failed")

	// ErrRunInProgress is returned when another run holds the run lock.
	ErrRunInProgress = errors.New("runner: a sync run is already in progress")
)

// LockFile is the name of the run lock inside the log directory.
const LockFile = ".notionsync.lock"

// Result describes a finished run.
type Result struct {
	Trigger   Trigger       `json:"trigger"`
	LogName   string        `json:"log_name"`
	LogPath   string        `json:"log_path"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
	ExitCode  int           `json:"exit_code"`

	ProcedureErr error      `json:"-"`
	Persist      vcs.Result `json:"-"`
	PersistErr   error      `json:"-"`
}

// OK reports whether both the procedure and persistence succeeded.
func (r *Result) OK() bool {
	return r.ProcedureErr == nil && r.PersistErr == nil
}

// Options configures a Runner. Dir and Procedure are required.
type Options struct {
	Dir       *synclog.Dir
	Procedure procedure.Procedure

	// Persister commits the log. Nil disables persistence.
	Persister vcs.Persister

	// Credentials are injected into the procedure environment and
	// registered with Redactor.
	Credentials *security.CredentialStore
	Redactor    *security.Redactor

	// BaseEnv supplies the environment the procedure inherits before
	// sanitizing. Defaults to os.Environ.
	BaseEnv func() []string

	// Stderr receives the procedure's diagnostics. Defaults to os.Stderr.
	Stderr io.Writer

	// CaptureStderr also copies the procedure's stderr into the log file.
	CaptureStderr bool

	// Timeout bounds the procedure. Zero means none.
	Timeout time.Duration

	// Lock serializes runs across processes sharing the log directory.
	Lock bool

	Logger  *slog.Logger
	Metrics *Metrics
	Tracer  trace.Tracer

	// Now is the clock. Defaults to time.Now.
	Now func() time.Time
}

// Runner runs syncs. It is safe for concurrent use; with Lock set,
// concurrent runs fail fast with ErrRunInProgress.
type Runner struct {
	opts   Options
	logger *slog.Logger
	tracer trace.Tracer

	mu   sync.Mutex
	last *Result
}

// New creates a Runner.
func New(opts Options) *Runner {
	if opts.BaseEnv == nil {
		opts.BaseEnv = os.Environ
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Credentials == nil {
		opts.Credentials = security.NewCredentialStore()
	}
	if opts.Redactor == nil {
		opts.Redactor = security.NewRedactor()
	}
	opts.Redactor.SyncCredentials(opts.Credentials)
	if opts.Now == nil {
		opts.Now = time.Now
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	return &Runner{opts: opts, logger: logger, tracer: tracer}
}

// Last returns a copy of the most recent result, or nil.
func (r *Runner) Last() *Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		return nil
	}
	cp := *r.last
	return &cp
}

// Run performs one sync run. The returned Result is nil only when the
// run never started (lock held, log file could not be created). A failed
// procedure yields an error wrapping ErrProcedureFailed; the log is still
// persisted first. A persistence failure is joined into the error.
func (r *Runner) Run(ctx context.Context, trigger Trigger) (*Result, error) {
	ctx, span := r.tracer.Start(ctx, "sync.run",
		trace.WithAttributes(attribute.String("sync.trigger", string(trigger))))
	defer span.End()

	if r.opts.Lock {
		unlock, err := r.acquire()
		if err != nil {
			if errors.Is(err, ErrRunInProgress) {
				r.opts.Metrics.busy(trigger)
			}
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		defer unlock()
	}

	started := r.opts.Now()
	f, err := r.opts.Dir.Create(started)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("runner: %w", err)
	}

	res := &Result{
		Trigger:   trigger,
		LogName:   filepath.Base(f.Name()),
		LogPath:   f.Name(),
		StartedAt: started,
	}
	span.SetAttributes(attribute.String("sync.log", res.LogName))
	r.logger.Info("runner: run started",
		"trigger", trigger,
		"procedure", r.opts.Procedure.Name(),
		"log", res.LogPath,
	)

	res.ProcedureErr = r.runProcedure(ctx, f)
	res.ExitCode = procedure.ExitCode(res.ProcedureErr)
	span.SetAttributes(attribute.Int("sync.exit_code", res.ExitCode))
	if res.ProcedureErr != nil {
		r.logger.Error("runner: procedure failed",
			"exit_code", res.ExitCode,
			"error", res.ProcedureErr,
		)
	}

	res.Persist, res.PersistErr = r.persist(ctx, res.LogName)
	res.Duration = r.opts.Now().Sub(started)

	r.opts.Metrics.observe(res)
	r.mu.Lock()
	r.last = res
	r.mu.Unlock()

	var errs []error
	if res.ProcedureErr != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrProcedureFailed, res.ProcedureErr))
	}
	if res.PersistErr != nil {
		errs = append(errs, res.PersistErr)
	}
	err = errors.Join(errs...)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}

	r.logger.Info("runner: run finished",
		"trigger", trigger,
		"log", res.LogName,
		"exit_code", res.ExitCode,
		"persist", res.Persist.Outcome.String(),
		"duration", res.Duration.Round(time.Millisecond),
	)
	return res, err
}

// runProcedure runs the procedure with stdout going to f, then closes f.
func (r *Runner) runProcedure(ctx context.Context, f *os.File) error {
	ctx, span := r.tracer.Start(ctx, "sync.procedure",
		trace.WithAttributes(attribute.String("sync.procedure", r.opts.Procedure.Name())))
	defer span.End()

	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	stdout := security.NewRedactingWriter(f, r.opts.Redactor)
	console := security.NewRedactingWriter(r.opts.Stderr, r.opts.Redactor)
	var stderr io.Writer = console
	if r.opts.CaptureStderr {
		stderr = io.MultiWriter(console, stdout)
	}

	err := r.opts.Procedure.Run(ctx, procedure.Invocation{
		Env:    security.ProcedureEnv(r.opts.BaseEnv(), r.opts.Credentials),
		Stdout: stdout,
		Stderr: stderr,
	})

	var closeErrs []error
	if cerr := stdout.Close(); cerr != nil {
		closeErrs = append(closeErrs, fmt.Errorf("runner: writing log: %w", cerr))
	}
	if cerr := console.Close(); cerr != nil {
		r.logger.Warn("runner: flushing procedure stderr", "error", cerr)
	}
	if cerr := f.Close(); cerr != nil {
		closeErrs = append(closeErrs, fmt.Errorf("runner: closing log: %w", cerr))
	}
	if err == nil && len(closeErrs) > 0 {
		err = errors.Join(closeErrs...)
	}

	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (r *Runner) persist(ctx context.Context, logName string) (vcs.Result, error) {
	if r.opts.Persister == nil {
		return vcs.Result{Outcome: vcs.Skipped}, nil
	}

	ctx, span := r.tracer.Start(ctx, "sync.persist")
	defer span.End()

	res, err := r.opts.Persister.Persist(ctx, r.opts.Dir.Path(), logName)
	span.SetAttributes(attribute.String("sync.persist", res.Outcome.String()))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		r.logger.Error("runner: persisting log failed", "log", logName, "error", err)
		return res, err
	}

	switch res.Outcome {
	case vcs.NoChanges:
		r.logger.Info("runner: nothing to commit, working tree clean", "log", logName)
	case vcs.Committed:
		r.logger.Info("runner: log committed", "log", logName, "commit", res.Hash, "pushed", res.Pushed)
	}
	return res, nil
}

// acquire takes the cross-process run lock.
func (r *Runner) acquire() (func(), error) {
	dir := r.opts.Dir.Path()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("runner: creating %s: %w", dir, err)
	}

	fl := flock.New(filepath.Join(dir, LockFile))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("runner: acquiring run lock: %w", err)
	}
	if !ok {
		return nil, ErrRunInProgress
	}
	return func() {
		if err := fl.Unlock(); err != nil {
			r.logger.Warn("runner: releasing run lock", "error", err)
		}
	}, nil
}
