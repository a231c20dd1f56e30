package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"eudguide/internal/logger"
	"eudguide/internal/models"
	"eudguide/internal/security"
	"eudguide/internal/service"
)

// recentSessionLimit is how many sessions the dashboard shows per profile
const recentSessionLimit = 5

// ParentHandler handles parent dashboard requests
type ParentHandler struct {
	family  *service.FamilyService
	reports *service.ReportService
	tokens  *security.DashboardTokens
	log     *logger.Logger
	now     func() time.Time
}

// NewParentHandler creates a new parent handler
func NewParentHandler(family *service.FamilyService, reports *service.ReportService, tokens *security.DashboardTokens, log *logger.Logger) *ParentHandler {
	return &ParentHandler{
		family:  family,
		reports: reports,
		tokens:  tokens,
		log:     log,
		now:     time.Now,
	}
}

type unlockResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Unlock exchanges the guardian PIN for a short-lived dashboard token
func (h *ParentHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	var req pinRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: ErrInvalidJSON})
		return
	}

	if err := h.family.VerifyPIN(req.PIN); err != nil {
		respondWithServiceError(w, h.log, err, nil)
		return
	}

	token, expires, err := h.tokens.Issue()
	if err != nil {
		respondWithError(w, h.log, http.StatusInternalServerError, ErrInternalServerError, "failed to issue dashboard token", err)
		return
	}

	http.SetCookie(w, security.CreateDashboardCookie(r, token, expires))
	h.log.Info("parent dashboard unlocked", "expires_at", expires)
	respondJSON(w, http.StatusOK, unlockResponse{Token: token, ExpiresAt: expires})
}

// Lock clears the dashboard cookie
func (h *ParentHandler) Lock(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, security.CreateDeleteCookie(r))
	w.WriteHeader(http.StatusNoContent)
}

type dashboardProfile struct {
	ID             string                  `json:"id"`
	Name           string                  `json:"name"`
	Standard       string                  `json:"standard"`
	School         string                  `json:"school"`
	Stats          service.ProfileStats    `json:"stats"`
	RecentSessions []models.StudySession   `json:"recent_sessions"`
	Recordings     []models.VoiceRecording `json:"recordings"`
}

type dashboardResponse struct {
	Children        []dashboardProfile `json:"children"`
	ActiveProfileID string             `json:"active_child_id,omitempty"`
	TotalMinutes    int                `json:"total_minutes"`
	TotalSessions   int                `json:"total_sessions"`
}

// Dashboard summarises every profile's progress for the guardian
func (h *ParentHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	profiles := h.family.Profiles()
	resp := dashboardResponse{
		Children:        make([]dashboardProfile, 0, len(profiles)),
		ActiveProfileID: h.family.ActiveProfileID(),
	}

	for _, p := range profiles {
		stats, err := h.family.ProfileStats(p.ID)
		if err != nil {
			respondWithServiceError(w, h.log, err, nil)
			return
		}
		recent := p.Sessions
		if len(recent) > recentSessionLimit {
			recent = recent[:recentSessionLimit]
		}
		resp.Children = append(resp.Children, dashboardProfile{
			ID:             p.ID,
			Name:           p.Name,
			Standard:       p.Standard,
			School:         p.School,
			Stats:          stats,
			RecentSessions: recent,
			Recordings:     p.Recordings,
		})
		resp.TotalMinutes += stats.TotalMinutes
		resp.TotalSessions += stats.SessionCount
	}

	respondJSON(w, http.StatusOK, resp)
}

// Report downloads the progress workbook
func (h *ParentHandler) Report(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.reports.WriteProgressReport(&buf); err != nil {
		respondWithError(w, h.log, http.StatusInternalServerError, ErrInternalServerError, "failed to build progress report", err)
		return
	}

	filename := fmt.Sprintf("eudguide-progress-%s.xlsx", h.now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
