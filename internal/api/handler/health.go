package handler

import (
	"context"
	"net/http"

	"github.com/proofpick/proofpick/internal/api/response"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewHealthHandler returns the handler for GET /api/v1/health. Reports the
// database and job store individually; any failing check degrades the whole
// response to 503.
func NewHealthHandler(db, jobs Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database":  "ok",
			"job_store": "ok",
		}
		healthy := true

		if err := db.Ping(r.Context()); err != nil {
			checks["database"] = "unavailable"
			healthy = false
		}
		if err := jobs.Ping(r.Context()); err != nil {
			checks["job_store"] = "unavailable"
			healthy = false
		}

		body := struct {
			Status string            `json:"status"`
			Checks map[string]string `json:"checks"`
		}{Status: "ok", Checks: checks}

		if !healthy {
			body.Status = "degraded"
			response.JSONStatus(w, http.StatusServiceUnavailable, body)
			return
		}

		response.JSON(w, body)
	}
}
