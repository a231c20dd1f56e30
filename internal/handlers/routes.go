package handlers

import (
	"net/http"

	"eudguide/internal/logger"
	"eudguide/internal/security"
	"eudguide/internal/service"
)

// Services bundles what the router needs
type Services struct {
	Family  *service.FamilyService
	Verify  *service.VerificationService
	Reports *service.ReportService
	Tokens  *security.DashboardTokens
	Limiter *security.RateLimiter
}

// NewRouter registers every API route
func NewRouter(svc Services, log *logger.Logger) http.Handler {
	household := NewHouseholdHandler(svc.Family, log)
	gates := NewGateHandler(svc.Verify, log)
	parent := NewParentHandler(svc.Family, svc.Reports, svc.Tokens, log)
	mw := NewMiddleware(svc.Tokens, log)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("GET /api/status", household.Status)
	mux.HandleFunc("GET /api/subjects", household.Subjects)
	mux.HandleFunc("GET /api/levels", household.Levels)
	mux.HandleFunc("POST /api/onboarding/complete", household.CompleteOnboarding)

	mux.HandleFunc("GET /api/profiles", household.ListProfiles)
	mux.HandleFunc("POST /api/profiles", household.CreateProfile)
	mux.HandleFunc("GET /api/profiles/active", household.ActiveProfile)
	mux.HandleFunc("GET /api/profiles/{id}", household.GetProfile)
	mux.HandleFunc("POST /api/profiles/{id}/recordings", household.AddRecording)

	mux.HandleFunc("POST /api/gates", gates.Begin)
	mux.HandleFunc("GET /api/gates/pending", gates.Pending)
	mux.HandleFunc("GET /api/gates/{id}", gates.Get)
	mux.HandleFunc("POST /api/gates/{id}/pin", gates.SubmitPIN)
	biometric := http.Handler(http.HandlerFunc(gates.SubmitBiometric))
	if svc.Limiter != nil {
		biometric = svc.Limiter.Middleware(biometric)
	}
	mux.Handle("POST /api/gates/{id}/biometric", biometric)
	mux.HandleFunc("POST /api/gates/{id}/cancel", gates.Cancel)

	mux.HandleFunc("POST /api/parent/unlock", parent.Unlock)
	mux.HandleFunc("POST /api/parent/lock", parent.Lock)
	mux.HandleFunc("GET /api/parent/dashboard", mw.RequireDashboard(parent.Dashboard))
	mux.HandleFunc("GET /api/parent/report.xlsx", mw.RequireDashboard(parent.Report))

	return Logging(log)(mux)
}
