package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/flemzord/notionsync/internal/synclog"
)

func logsCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "List sync log files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := logDir(g)
			if err != nil {
				return err
			}
			entries, err := dir.List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintf(out, "No sync logs in %s\n", dir.Path())
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tSTARTED\tSIZE")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%d\n", e.Name, e.Time.Format(time.RFC3339), e.Size)
			}
			return tw.Flush()
		},
	}
	cmd.AddCommand(logsShowCmd(g))
	return cmd
}

func logsShowCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show [name]",
		Short: "Print a sync log (the latest when no name is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := logDir(g)
			if err != nil {
				return err
			}

			var name string
			if len(args) == 1 {
				name = filepath.Base(args[0])
				if _, err := synclog.Parse(name, dir.Location()); err != nil {
					return err
				}
			} else {
				entries, err := dir.List()
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					return fmt.Errorf("no sync logs in %s", dir.Path())
				}
				name = entries[len(entries)-1].Name
			}

			f, err := os.Open(filepath.Join(dir.Path(), name))
			if err != nil {
				return err
			}
			defer f.Close()
			_, err = io.Copy(cmd.OutOrStdout(), f)
			return err
		},
	}
}

func logDir(g *globalFlags) (*synclog.Dir, error) {
	cfg, _, err := loadConfig(g)
	if err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(cfg.Runner.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: runner.timezone: %w", err)
	}
	return synclog.NewDir(cfg.Runner.LogDir, loc), nil
}
