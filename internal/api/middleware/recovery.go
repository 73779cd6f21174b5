package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/proofpick/proofpick/internal/api/response"
)

// Recovery converts panics in downstream handlers into a JSON 500 so a bad
// request never takes the whole server down mid-archive.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("panic recovered",
					slog.Any("panic", rec),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("stack", string(debug.Stack())),
				)
				response.Error(w, http.StatusInternalServerError,
					"INTERNAL_ERROR", "An unexpected error occurred", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
