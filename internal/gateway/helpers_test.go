package gateway

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/flemzord/notionsync/internal/runner"
	"github.com/flemzord/notionsync/internal/synclog"
)

// fakeRunner is a scripted Runner.
type fakeRunner struct {
	mu       sync.Mutex
	res      *runner.Result
	err      error
	triggers []runner.Trigger
	ctxErr   error
	deadline time.Time
	last     *runner.Result
}

func (f *fakeRunner) Run(ctx context.Context, trigger runner.Trigger) (*runner.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.triggers = append(f.triggers, trigger)
	f.ctxErr = ctx.Err()
	f.deadline, _ = ctx.Deadline()
	if f.res != nil {
		f.last = f.res
	}
	return f.res, f.err
}

func (f *fakeRunner) Last() *runner.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

type fakeLogs struct {
	entries []synclog.Entry
	err     error
}

func (f fakeLogs) List() ([]synclog.Entry, error) { return f.entries, f.err }

const testToken = "test-bearer-token"

func newTestGateway(t *testing.T, r Runner, opts ...func(*Deps)) (*Gateway, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	deps := Deps{
		Runner:     r,
		Gatherer:   reg,
		Registerer: reg,
		Logger:     slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
	}
	for _, o := range opts {
		o(&deps)
	}
	return New(Config{Auth: AuthConfig{BearerToken: testToken}}, deps), reg
}

var testStart = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
