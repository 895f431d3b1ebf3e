package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"io"
	"net/http"

	"github.com/flemzord/notionsync/internal/runner"
)

// maxWebhookBody bounds the payload read for signature checks.
const maxWebhookBody = 1 << 20

// signatureHeaders are checked in order. The first is what GitHub sends.
var signatureHeaders = []string{"X-Hub-Signature-256", "X-Signature-256"}

// handleWebhook starts a run from a signed POST and answers 202 without
// waiting for it. The body content is ignored beyond the signature.
func (g *Gateway) handleWebhook() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			http.Error(w, "failed to read body", http.StatusBadRequest)
			return
		}

		sig := ""
		for _, h := range signatureHeaders {
			if sig = r.Header.Get(h); sig != "" {
				break
			}
		}
		if !validSignature(g.config.WebhookSecret, body, sig) {
			deny(w, r, g.logger, "invalid webhook signature")
			return
		}

		if err := g.limiter.Allow(clientKey(r)); err != nil {
			http.Error(w, "too many run requests", http.StatusTooManyRequests)
			return
		}

		ctx := context.WithoutCancel(r.Context())
		g.inflight.Add(1)
		go func() {
			defer g.inflight.Done()
			res, err := g.deps.Runner.Run(ctx, runner.TriggerWebhook)
			switch {
			case errors.Is(err, runner.ErrRunInProgress):
				g.logger.Warn("gateway: webhook run skipped, sync already running")
			case err != nil:
				g.logger.Error("gateway: webhook run failed", "error", err)
			case res != nil:
				g.logger.Info("gateway: webhook run done", "log", res.LogName)
			}
		}()

		writeJSON(w, http.StatusAccepted, map[string]bool{"accepted": true})
	}
}

// validSignature checks a "sha256=<hex>" HMAC of body under secret.
func validSignature(secret string, body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}
