package gateway

import (
	"net/http"
	"time"

	"github.com/flemzord/notionsync/internal/runner"
)

// RunJSON is the wire form of a run result.
type RunJSON struct {
	Trigger   string    `json:"trigger"`
	Status    string    `json:"status"` // "success" or "failed"
	LogName   string    `json:"log_name"`
	StartedAt time.Time `json:"started_at"`
	Duration  float64   `json:"duration_seconds"`
	ExitCode  int       `json:"exit_code"`
	Persist   string    `json:"persist"`
	Commit    string    `json:"commit,omitempty"`
	Pushed    bool      `json:"pushed"`
	Error     string    `json:"error,omitempty"`
}

func toRunJSON(res *runner.Result, err error) RunJSON {
	out := RunJSON{
		Trigger:   string(res.Trigger),
		Status:    "success",
		LogName:   res.LogName,
		StartedAt: res.StartedAt,
		Duration:  res.Duration.Seconds(),
		ExitCode:  res.ExitCode,
		Persist:   res.Persist.Outcome.String(),
		Commit:    res.Persist.Hash,
		Pushed:    res.Persist.Pushed,
	}
	if !res.OK() {
		out.Status = "failed"
	}
	if err != nil {
		out.Error = err.Error()
	}
	return out
}

// StatusResponse is the JSON response for GET /status.
type StatusResponse struct {
	Uptime  float64    `json:"uptime_seconds"`
	LastRun *RunJSON   `json:"last_run"`
	NextRun *time.Time `json:"next_run"`
}

// handleStatus returns an http.HandlerFunc for GET /status.
func (g *Gateway) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := StatusResponse{}
		if !g.startedAt.IsZero() {
			resp.Uptime = time.Since(g.startedAt).Truncate(time.Second).Seconds()
		}
		if last := g.deps.Runner.Last(); last != nil {
			rj := toRunJSON(last, nil)
			resp.LastRun = &rj
		}
		if g.deps.NextRun != nil {
			if next, ok := g.deps.NextRun(); ok {
				resp.NextRun = &next
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
