package notion

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/flemzord/notionsync/internal/procedure"
)

var testNames = EnvNames{APIKey: "NOTION_API_KEY", MasterID: "MASTER_DB_ID", SlaveID: "SLAVE_DB_ID"}

func TestBuiltin_MissingEnv(t *testing.T) {
	t.Parallel()

	called := false
	b := NewBuiltin(testNames, testOptions(), func(string) Workspace {
		called = true
		return newFakeWorkspace()
	})

	var out bytes.Buffer
	err := b.Run(context.Background(), procedure.Invocation{
		Env:    []string{"MASTER_DB_ID=m", "SLAVE_DB_ID="},
		Stdout: &out,
	})
	if !errors.Is(err, ErrMissingEnv) {
		t.Fatalf("Run() error = %v, want ErrMissingEnv", err)
	}
	if code := procedure.ExitCode(err); code != 1 {
		t.Errorf("ExitCode = %d, want 1", code)
	}
	if called {
		t.Error("workspace built despite missing env")
	}
	want := "Error: The following required environment variables are missing: NOTION_API_KEY, SLAVE_DB_ID\n"
	if !strings.HasPrefix(out.String(), want) {
		t.Errorf("output = %q", out.String())
	}
	if !strings.Contains(out.String(), "Please add them to your .env file") {
		t.Errorf("output = %q", out.String())
	}
}

func TestBuiltin_UsesEnvSecrets(t *testing.T) {
	t.Parallel()

	var gotKey string
	ws := newFakeWorkspace()
	b := NewBuiltin(testNames, testOptions(), func(key string) Workspace {
		gotKey = key
		return ws
	})

	var out bytes.Buffer
	err := b.Run(context.Background(), procedure.Invocation{
		Env:    []string{"NOTION_API_KEY=old", "NOTION_API_KEY=key-1", "MASTER_DB_ID=m", "SLAVE_DB_ID=s"},
		Stdout: &out,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if gotKey != "key-1" {
		t.Errorf("api key = %q, want last entry", gotKey)
	}
	if !strings.Contains(out.String(), "No pages need to be synced.") {
		t.Errorf("output = %q", out.String())
	}
}

func TestBuiltin_AbortExitsNonZero(t *testing.T) {
	t.Parallel()

	ws := newFakeWorkspace()
	ws.typesErr = errors.New("unauthorized")
	b := NewBuiltin(testNames, testOptions(), func(string) Workspace { return ws })

	var out bytes.Buffer
	err := b.Run(context.Background(), procedure.Invocation{
		Env:    []string{"NOTION_API_KEY=k", "MASTER_DB_ID=m", "SLAVE_DB_ID=s"},
		Stdout: &out,
	})
	if procedure.ExitCode(err) != 1 {
		t.Fatalf("ExitCode = %d, want 1 (err %v)", procedure.ExitCode(err), err)
	}
	if !strings.Contains(out.String(), "Sync aborted:") {
		t.Errorf("output = %q", out.String())
	}
}
