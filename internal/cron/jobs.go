package cron

import (
	"context"
	"errors"
	"log/slog"

	"github.com/flemzord/notionsync/internal/runner"
)

// DefaultSyncSchedule runs the sync daily at midnight.
const DefaultSyncSchedule = "0 0 * * *"

// SyncRunner is the part of runner.Runner a scheduled job needs.
type SyncRunner interface {
	Run(ctx context.Context, trigger runner.Trigger) (*runner.Result, error)
}

// SyncJob runs one sync per tick.
type SyncJob struct {
	Runner       SyncRunner
	Logger       *slog.Logger
	ScheduleExpr string // empty = DefaultSyncSchedule
}

// Compile-time interface check.
var _ Job = (*SyncJob)(nil)

// Name implements Job.
func (j *SyncJob) Name() string { return "sync" }

// Schedule implements Job.
func (j *SyncJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return DefaultSyncSchedule
}

// Run implements Job. A run already in progress from another trigger is
// not a failure of this tick.
func (j *SyncJob) Run(ctx context.Context) error {
	res, err := j.Runner.Run(ctx, runner.TriggerSchedule)
	if errors.Is(err, runner.ErrRunInProgress) {
		j.logger().Warn("cron: sync already running, skipping tick")
		return nil
	}
	if err != nil {
		return err
	}
	j.logger().Info("cron: scheduled sync done", "log", res.LogName, "persist", res.Persist.Outcome.String())
	return nil
}

func (j *SyncJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
