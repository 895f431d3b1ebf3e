// Package cron runs sync jobs on cron schedules.
package cron

import (
	"context"

	"github.com/robfig/cron/v3"
)

// Job is a task run on a schedule.
type Job interface {
	// Name returns a unique identifier for this job (used for logging and dedup).
	Name() string

	// Schedule returns a 5-field cron expression (e.g., "0 0 * * *").
	Schedule() string

	// Run executes the job. Implementations should check ctx.Done() for
	// graceful cancellation.
	Run(ctx context.Context) error
}

// parser accepts standard 5-field expressions and descriptors such as
// "@daily".
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseSchedule validates a cron expression.
func ParseSchedule(expr string) (cron.Schedule, error) {
	return parser.Parse(expr)
}
