package gateway

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/flemzord/notionsync/internal/runner"
)

// handleRun dispatches a sync and answers when it has finished. An
// aborted client request does not cancel the run, but the run is cut off
// at the server write timeout, after which no response can be written.
func (g *Gateway) handleRun() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := g.limiter.Allow(clientKey(r)); err != nil {
			g.logger.Warn("gateway: run request rate limited", "remote", r.RemoteAddr)
			w.Header().Set("Retry-After", "3600")
			http.Error(w, "too many run requests", http.StatusTooManyRequests)
			return
		}

		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), g.config.WriteTimeout)
		defer cancel()

		res, err := g.deps.Runner.Run(ctx, runner.TriggerHTTP)
		switch {
		case errors.Is(err, runner.ErrRunInProgress):
			http.Error(w, "a sync run is already in progress", http.StatusConflict)
			return
		case res == nil:
			g.logger.Error("gateway: run did not start", "error", err)
			http.Error(w, "run did not start", http.StatusInternalServerError)
			return
		}

		code := http.StatusOK
		if err != nil {
			code = http.StatusInternalServerError
		}
		writeJSON(w, code, toRunJSON(res, err))
	}
}

// clientKey identifies the caller for rate limiting by host, without port.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// LogJSON is the wire form of a log directory entry.
type LogJSON struct {
	Name string    `json:"name"`
	Time time.Time `json:"time"`
	Size int64     `json:"size"`
}

// handleListLogs lists the sync logs, oldest first.
func (g *Gateway) handleListLogs() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		out := []LogJSON{}
		if g.deps.Logs != nil {
			entries, err := g.deps.Logs.List()
			if err != nil {
				g.logger.Error("gateway: listing logs", "error", err)
				http.Error(w, "listing logs failed", http.StatusInternalServerError)
				return
			}
			for _, e := range entries {
				out = append(out, LogJSON{Name: e.Name, Time: e.Time, Size: e.Size})
			}
		}
		writeJSON(w, http.StatusOK, out)
	}
}
