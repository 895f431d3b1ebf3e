package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"
)

// serviceActions are the verbs handed to service.Control.
var serviceActions = []string{"install", "uninstall", "start", "stop", "restart"}

// program adapts serve to the OS service manager.
type program struct {
	g      *globalFlags
	stderr io.Writer

	cancel context.CancelFunc
	done   chan error
}

var _ service.Interface = (*program)(nil)

// Start must not block; the service manager waits for it to return.
func (p *program) Start(_ service.Service) error {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan error, 1)
	go func() {
		p.done <- p.serve(ctx)
	}()
	return nil
}

func (p *program) serve(ctx context.Context) error {
	a, err := newApp(ctx, p.g, p.stderr)
	if err != nil {
		return err
	}
	defer a.close()
	return serveUntil(ctx, a)
}

func (p *program) Stop(_ service.Service) error {
	if p.cancel == nil {
		return nil
	}
	p.cancel()
	select {
	case err := <-p.done:
		return err
	case <-time.After(30 * time.Second):
		return errors.New("service: timed out waiting for shutdown")
	}
}

func newService(g *globalFlags, stderr io.Writer) (service.Service, error) {
	args := []string{"service", "run"}
	if g.configPath != "" {
		abs, err := filepath.Abs(g.configPath)
		if err != nil {
			return nil, err
		}
		args = append(args, "--config", abs)
	}
	if g.envFile != "" {
		abs, err := filepath.Abs(g.envFile)
		if err != nil {
			return nil, err
		}
		args = append(args, "--env-file", abs)
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return service.New(&program{g: g, stderr: stderr}, &service.Config{
		Name:             "notionsync",
		DisplayName:      "Notion sync runner",
		Description:      "Runs the scheduled Notion sync and commits its logs.",
		Arguments:        args,
		WorkingDirectory: wd,
	})
}

func serviceCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Install and control notionsync as an OS service",
	}

	for _, action := range serviceActions {
		cmd.AddCommand(&cobra.Command{
			Use:   action,
			Short: fmt.Sprintf("%s the service", action),
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				s, err := newService(g, cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				if err := service.Control(s, action); err != nil {
					return fmt.Errorf("service %s: %w", action, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "service %s: ok\n", action)
				return nil
			},
		})
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the service status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := newService(g, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			st, err := s.Status()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), statusString(st))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:    "run",
		Short:  "Run under the service manager",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := newService(g, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return s.Run()
		},
	})
	return cmd
}

func statusString(st service.Status) string {
	switch st {
	case service.StatusRunning:
		return "running"
	case service.StatusStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
