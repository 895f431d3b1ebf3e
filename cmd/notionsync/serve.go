package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/flemzord/notionsync/internal/core"
	"github.com/flemzord/notionsync/internal/cron"
	"github.com/flemzord/notionsync/internal/gateway"
)

func serveCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler and the HTTP gateway until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), g, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()

			return serveUntil(cmd.Context(), a)
		},
	}
}

// serveApp composes the long-running components enabled in the config.
func (a *app) serveApp() (*core.App, error) {
	app := core.NewApp(a.logger)

	var sched *cron.Scheduler
	if a.cfg.Schedule.Enabled {
		sched = cron.NewScheduler(a.logger, cron.WithLocation(a.loc))
		job := &cron.SyncJob{Runner: a.runner, Logger: a.logger, ScheduleExpr: a.cfg.Schedule.Cron}
		if err := sched.RegisterJob(job); err != nil {
			return nil, err
		}
		app.Add(sched)
	}

	if a.cfg.Gateway.Enabled {
		gc := a.cfg.Gateway
		var next func() (time.Time, bool)
		if sched != nil {
			next = func() (time.Time, bool) { return sched.Next("sync") }
		}
		app.Add(gateway.New(gateway.Config{
			Bind: gc.Bind,
			Auth: gateway.AuthConfig{
				BearerToken: gc.Auth.BearerToken,
				BasicUser:   gc.Auth.BasicUser,
				BasicPass:   gc.Auth.BasicPass,
			},
			ReadTimeout:     gc.ReadTimeout,
			WriteTimeout:    gc.WriteTimeout,
			ShutdownTimeout: gc.ShutdownTimeout,
			RunsPerHour:     gc.RunsPerHour,
			WebhookSecret:   gc.WebhookSecret,
		}, gateway.Deps{
			Runner:     a.runner,
			Logs:       a.dir,
			NextRun:    next,
			Gatherer:   a.registry,
			Registerer: a.registry,
			Logger:     a.logger,
		}))
	}

	if sched == nil && !a.cfg.Gateway.Enabled {
		return nil, errors.New("serve: nothing to run, enable schedule or gateway in the config")
	}
	return app, nil
}

// serveUntil runs the configured components until ctx is done.
func serveUntil(ctx context.Context, a *app) error {
	app, err := a.serveApp()
	if err != nil {
		return err
	}
	return app.Run(ctx)
}
