package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	checks map[string]Pinger
	now    func() time.Time
}

func NewHealthHandler(checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{checks: checks, now: time.Now}
}

// GET /health
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":    "ok",
		"timestamp": h.now().UTC().Format(time.RFC3339),
	}

	status := http.StatusOK
	if len(h.checks) > 0 {
		results := make(map[string]string, len(h.checks))
		for name, check := range h.checks {
			if err := check.Ping(r.Context()); err != nil {
				log.Warn().Err(err).Str("check", name).Msg("health check failed")
				results[name] = "down"
				status = http.StatusServiceUnavailable
				resp["status"] = "degraded"
				continue
			}
			results[name] = "up"
		}
		resp["checks"] = results
	}

	writeJSON(w, status, resp)
}

// PingFunc adapts a plain function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error {
	return f(ctx)
}
