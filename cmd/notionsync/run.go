package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flemzord/notionsync/internal/runner"
	"github.com/flemzord/notionsync/internal/vcs"
)

func runCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run one sync now and commit its log",
		Long: `Run the sync procedure once with its output written to a new
notion_sync_<timestamp>.synclog file, then commit (and optionally push)
that file. The log is committed even when the procedure fails; the
command then exits with the procedure's status.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), g, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()

			res, err := a.runner.Run(cmd.Context(), runner.TriggerManual)
			if res != nil {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Log: %s\n", res.LogPath)
				switch res.Persist.Outcome {
				case vcs.NoChanges:
					fmt.Fprintln(out, "nothing to commit, working tree clean")
				case vcs.Committed:
					fmt.Fprintf(out, "Committed %s\n", shortHash(res.Persist.Hash))
				}
			}
			return err
		},
	}
}

func shortHash(h string) string {
	if len(h) > 7 {
		return h[:7]
	}
	return h
}
