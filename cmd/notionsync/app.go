package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/flemzord/notionsync/internal/config"
	"github.com/flemzord/notionsync/internal/notion"
	"github.com/flemzord/notionsync/internal/procedure"
	"github.com/flemzord/notionsync/internal/runner"
	"github.com/flemzord/notionsync/internal/security"
	"github.com/flemzord/notionsync/internal/synclog"
	"github.com/flemzord/notionsync/internal/telemetry"
	"github.com/flemzord/notionsync/internal/vcs"
)

// app holds everything a command needs, built once from the config.
type app struct {
	cfg       *config.Config
	cfgPath   string
	logger    *slog.Logger
	redactor  *security.Redactor
	creds     *security.CredentialStore
	loc       *time.Location
	dir       *synclog.Dir
	registry  *prometheus.Registry
	telemetry *telemetry.Telemetry
	runner    *runner.Runner
}

// loadConfig loads and validates the configuration selected by flags.
func loadConfig(g *globalFlags) (*config.Config, string, error) {
	cfg, path, err := config.LoadOrDefault(g.configPath)
	if err != nil {
		return nil, "", err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// newApp wires the runner and its collaborators. Log output goes to
// stderr. Callers must call close.
func newApp(ctx context.Context, g *globalFlags, stderr io.Writer) (*app, error) {
	cfg, path, err := loadConfig(g)
	if err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(cfg.Runner.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: runner.timezone: %w", err)
	}

	creds := security.NewCredentialStore()
	creds.LoadEnv(cfg.Secrets.APIKeyEnv, cfg.Secrets.MasterIDEnv, cfg.Secrets.SlaveIDEnv)

	redactor := security.NewRedactor()
	redactor.SyncCredentials(creds)
	gitToken := ""
	if cfg.Git.TokenEnv != "" {
		gitToken = os.Getenv(cfg.Git.TokenEnv)
		redactor.AddLiteral(gitToken)
	}
	redactor.AddLiteral(cfg.Gateway.Auth.BearerToken)
	redactor.AddLiteral(cfg.Gateway.Auth.BasicPass)
	redactor.AddLiteral(cfg.Gateway.WebhookSecret)

	logger := security.NewLogger(stderr, cfg.Log.Level, cfg.Log.Format, redactor)
	if path != "" {
		logger.Debug("config loaded", "path", path)
	} else {
		logger.Debug("no config file found, using defaults")
	}

	proc, err := newProcedure(cfg)
	if err != nil {
		return nil, err
	}

	var persister vcs.Persister
	if cfg.Git.IsEnabled() {
		persister = vcs.NewGit(vcs.Options{
			Repo:        cfg.Git.Repo,
			AuthorName:  cfg.Git.AuthorName,
			AuthorEmail: cfg.Git.AuthorEmail,
			Remote:      cfg.Git.Remote,
			Push:        cfg.Git.Push,
			Username:    cfg.Git.Username,
			Token:       gitToken,
		})
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	tel, err := telemetry.New(ctx, telemetry.Config{
		Endpoint:       cfg.Telemetry.OTLPEndpoint,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
	}, logger)
	if err != nil {
		return nil, err
	}

	dir := synclog.NewDir(cfg.Runner.LogDir, loc)
	r := runner.New(runner.Options{
		Dir:           dir,
		Procedure:     proc,
		Persister:     persister,
		Credentials:   creds,
		Redactor:      redactor,
		Stderr:        stderr,
		CaptureStderr: cfg.Runner.CaptureStderr,
		Timeout:       cfg.Runner.Timeout,
		Lock:          cfg.Runner.LockEnabled(),
		Logger:        logger,
		Metrics:       runner.NewMetrics(reg),
		Tracer:        tel.Tracer("github.com/flemzord/notionsync/internal/runner"),
	})

	return &app{
		cfg:       cfg,
		cfgPath:   path,
		logger:    logger,
		redactor:  redactor,
		creds:     creds,
		loc:       loc,
		dir:       dir,
		registry:  reg,
		telemetry: tel,
		runner:    r,
	}, nil
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.telemetry.Shutdown(ctx); err != nil {
		a.logger.Warn("telemetry shutdown", "error", err)
	}
}

// newProcedure selects the external command or the built-in sync.
func newProcedure(cfg *config.Config) (procedure.Procedure, error) {
	if len(cfg.Runner.Command) > 0 {
		return procedure.NewExec(cfg.Runner.Command, cfg.Runner.WorkDir)
	}
	return notion.NewBuiltin(envNames(cfg.Secrets), notionOptions(cfg.Notion), nil), nil
}

func envNames(s config.SecretsConfig) notion.EnvNames {
	return notion.EnvNames{APIKey: s.APIKeyEnv, MasterID: s.MasterIDEnv, SlaveID: s.SlaveIDEnv}
}

func notionOptions(n config.NotionConfig) notion.Options {
	return notion.Options{
		Limit:          n.Limit,
		Properties:     n.Properties,
		StatusProperty: n.StatusProperty,
		PendingValue:   n.PendingValue,
		SyncedValue:    n.SyncedValue,
		FailedValue:    n.FailedValue,
		FlagProperty:   n.FlagProperty,
		FlagValue:      n.FlagValue,
	}
}
