package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/flemzord/notionsync/internal/config"
	"github.com/flemzord/notionsync/internal/cron"
)

const defaultConfigFile = "notionsync.yaml"

func configCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	check := &cobra.Command{
		Use:   "check [path]",
		Short: "Validate configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := g.configPath
			if len(args) == 1 {
				path = args[0]
			}
			cfg, loaded, err := config.LoadOrDefault(path)
			if err != nil {
				return err
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}
			if loaded == "" {
				loaded = "built-in defaults"
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Configuration is valid (%s).\n", loaded)
			fmt.Fprintf(out, "  log dir:   %s (%s)\n", cfg.Runner.LogDir, cfg.Runner.Timezone)
			if len(cfg.Runner.Command) > 0 {
				fmt.Fprintf(out, "  procedure: %s\n", strings.Join(cfg.Runner.Command, " "))
			} else {
				fmt.Fprintln(out, "  procedure: built-in Notion sync")
			}
			if cfg.Schedule.Enabled {
				fmt.Fprintf(out, "  schedule:  %s\n", cfg.Schedule.Cron)
			}
			if cfg.Git.IsEnabled() {
				fmt.Fprintf(out, "  git:       %s (push: %t)\n", cfg.Git.Repo, cfg.Git.Push)
			}
			if cfg.Gateway.Enabled {
				fmt.Fprintf(out, "  gateway:   %s\n", cfg.Gateway.Bind)
			}
			return nil
		},
	}
	cmd.AddCommand(check)
	return cmd
}

// initAnswers are the values the init form asks for.
type initAnswers struct {
	LogDir   string
	Timezone string
	Cron     string
	Push     bool
	Gateway  bool
}

func initCmd() *cobra.Command {
	var defaults, force bool
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a new configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := defaultConfigFile
			if len(args) == 1 {
				path = args[0]
			}
			if !force {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", path)
				} else if !errors.Is(err, fs.ErrNotExist) {
					return err
				}
			}

			cfg := config.Default()
			a := initAnswers{
				LogDir:   cfg.Runner.LogDir,
				Timezone: cfg.Runner.Timezone,
				Cron:     cron.DefaultSyncSchedule,
			}
			if !defaults {
				if err := askInit(&a); err != nil {
					if errors.Is(err, huh.ErrUserAborted) {
						return errors.New("init aborted")
					}
					return err
				}
			}
			applyInit(cfg, a)
			if err := config.Validate(cfg); err != nil {
				return err
			}

			raw, err := config.Marshal(cfg)
			if err != nil {
				return err
			}
			if dir := filepath.Dir(path); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return err
				}
			}
			if err := os.WriteFile(path, raw, 0o600); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&defaults, "defaults", false, "Write the defaults without prompting")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

func askInit(a *initAnswers) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Log directory").
				Value(&a.LogDir).
				Validate(nonEmpty),
			huh.NewInput().
				Title("Timezone for log names and the schedule").
				Value(&a.Timezone).
				Validate(validTimezone),
			huh.NewInput().
				Title("Cron schedule").
				Value(&a.Cron).
				Validate(validCron),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Push commits to the remote?").
				Value(&a.Push),
			huh.NewConfirm().
				Title("Enable the HTTP gateway?").
				Value(&a.Gateway),
		),
	)
	return form.Run()
}

func applyInit(cfg *config.Config, a initAnswers) {
	cfg.Runner.LogDir = strings.TrimSpace(a.LogDir)
	cfg.Runner.Timezone = strings.TrimSpace(a.Timezone)
	cfg.Schedule.Enabled = true
	cfg.Schedule.Cron = strings.TrimSpace(a.Cron)
	cfg.Git.Push = a.Push
	cfg.Gateway.Enabled = a.Gateway
}

func nonEmpty(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("required")
	}
	return nil
}

func validTimezone(s string) error {
	if err := nonEmpty(s); err != nil {
		return err
	}
	_, err := time.LoadLocation(strings.TrimSpace(s))
	return err
}

func validCron(s string) error {
	_, err := cron.ParseSchedule(strings.TrimSpace(s))
	return err
}
