package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/flemzord/notionsync/internal/config"
	"github.com/flemzord/notionsync/internal/notion"
	"github.com/flemzord/notionsync/internal/procedure"
	"github.com/flemzord/notionsync/internal/runner"
	"github.com/flemzord/notionsync/internal/security"
)

// syncCmd runs the built-in Notion sync directly, without a log file or a
// commit. It is the procedure a scheduled run invokes when no external
// command is configured.
func syncCmd(g *globalFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run the built-in Notion sync once, printing to stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfig(g)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("limit") {
				cfg.Notion.Limit = limit
				if err := config.Validate(cfg); err != nil {
					return err
				}
			}

			creds := security.NewCredentialStore()
			creds.LoadEnv(cfg.Secrets.APIKeyEnv, cfg.Secrets.MasterIDEnv, cfg.Secrets.SlaveIDEnv)
			redactor := security.NewRedactor()
			redactor.SyncCredentials(creds)

			stdout := security.NewRedactingWriter(cmd.OutOrStdout(), redactor)
			defer stdout.Close()

			b := notion.NewBuiltin(envNames(cfg.Secrets), notionOptions(cfg.Notion), nil)
			err = b.Run(cmd.Context(), procedure.Invocation{
				Env:    os.Environ(),
				Stdout: stdout,
				Stderr: cmd.ErrOrStderr(),
			})
			if err != nil {
				return fmt.Errorf("%w: %w", runner.ErrProcedureFailed, err)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of pages to sync (0 = all)")
	return cmd
}
