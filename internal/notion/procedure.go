package notion

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/flemzord/notionsync/internal/procedure"
)

// ErrMissingEnv is returned when a required secret is absent from the
// procedure environment.
var ErrMissingEnv = errors.New("notion: required environment variables missing")

// EnvNames names the environment variables carrying the three secrets.
type EnvNames struct {
	APIKey   string
	MasterID string
	SlaveID  string
}

// WorkspaceFactory builds a Workspace authenticated with apiKey.
type WorkspaceFactory func(apiKey string) Workspace

// Builtin is the in-process sync procedure.
type Builtin struct {
	names EnvNames
	opts  Options
	newWS WorkspaceFactory
}

var _ procedure.Procedure = (*Builtin)(nil)

// NewBuiltin returns the built-in procedure. A nil factory uses the real
// Notion API client.
func NewBuiltin(names EnvNames, opts Options, factory WorkspaceFactory) *Builtin {
	if factory == nil {
		factory = func(apiKey string) Workspace { return NewClient(apiKey) }
	}
	return &Builtin{names: names, opts: opts, newWS: factory}
}

// Name implements procedure.Procedure.
func (b *Builtin) Name() string { return "builtin:notion" }

// Run implements procedure.Procedure. Secrets come from inv.Env only.
func (b *Builtin) Run(ctx context.Context, inv procedure.Invocation) error {
	apiKey := lookupEnv(inv.Env, b.names.APIKey)
	master := lookupEnv(inv.Env, b.names.MasterID)
	slave := lookupEnv(inv.Env, b.names.SlaveID)

	var missing []string
	for _, kv := range [][2]string{
		{b.names.APIKey, apiKey},
		{b.names.MasterID, master},
		{b.names.SlaveID, slave},
	} {
		if kv[1] == "" {
			missing = append(missing, kv[0])
		}
	}
	if len(missing) > 0 {
		fmt.Fprintf(inv.Stdout, "Error: The following required environment variables are missing: %s\n", strings.Join(missing, ", "))
		fmt.Fprintln(inv.Stdout, "Please add them to your .env file")
		return &procedure.ExitError{Code: 1, Err: ErrMissingEnv}
	}

	opts := b.opts
	opts.MasterID = master
	opts.SlaveID = slave

	if _, err := NewSyncer(b.newWS(apiKey), opts).Run(ctx, inv.Stdout); err != nil {
		fmt.Fprintf(inv.Stdout, "Sync aborted: %v\n", err)
		return &procedure.ExitError{Code: 1, Err: err}
	}
	return nil
}

// lookupEnv returns the value of name in env, last entry wins.
func lookupEnv(env []string, name string) string {
	if name == "" {
		return ""
	}
	var value string
	for _, entry := range env {
		k, v, ok := strings.Cut(entry, "=")
		if ok && k == name {
			value = v
		}
	}
	return value
}
