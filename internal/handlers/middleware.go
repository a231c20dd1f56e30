package handlers

import (
	"net/http"
	"time"

	"eudguide/internal/logger"
	"eudguide/internal/security"
)

// Middleware holds dependencies for middleware functions
type Middleware struct {
	tokens *security.DashboardTokens
	log    *logger.Logger
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(tokens *security.DashboardTokens, log *logger.Logger) *Middleware {
	return &Middleware{tokens: tokens, log: log}
}

// RequireDashboard admits requests carrying a valid parent dashboard token
func (m *Middleware) RequireDashboard(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := security.DashboardToken(r)
		if token == "" {
			respondJSON(w, http.StatusUnauthorized, errorResponse{Error: ErrUnauthorized})
			return
		}
		if err := m.tokens.Verify(token); err != nil {
			m.log.Debug("dashboard token rejected", "error", err)
			http.SetCookie(w, security.CreateDeleteCookie(r))
			respondJSON(w, http.StatusUnauthorized, errorResponse{Error: ErrUnauthorized})
			return
		}
		next(w, r)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Logging middleware logs HTTP requests
func Logging(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			log.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration", time.Since(start),
			)
		})
	}
}
