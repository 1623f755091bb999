package http

import (
	"context"
	"net/http"
	"time"

	"github.com/dropDatabas3/fedgrant/internal/observability/logger"
)

// ReadyCheck reports whether a dependency can serve traffic.
type ReadyCheck func(ctx context.Context) error

func healthz(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readyz runs every check with a short deadline and answers 503 on the
// first failure.
func readyz(checks map[string]ReadyCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := map[string]string{}
		healthy := true
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.From(ctx).Warn("readiness check failed", logger.Component(name), logger.Err(err))
				status[name] = "down"
				healthy = false
				continue
			}
			status[name] = "up"
		}
		if !healthy {
			WriteJSON(w, http.StatusServiceUnavailable, status)
			return
		}
		WriteJSON(w, http.StatusOK, status)
	}
}
