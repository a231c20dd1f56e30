package handlers

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"eudguide/internal/leveling"
	"eudguide/internal/logger"
	"eudguide/internal/models"
	"eudguide/internal/service"
)

// HouseholdHandler serves profile, recording and onboarding requests
type HouseholdHandler struct {
	family *service.FamilyService
	log    *logger.Logger
}

// NewHouseholdHandler creates a new household handler
func NewHouseholdHandler(family *service.FamilyService, log *logger.Logger) *HouseholdHandler {
	return &HouseholdHandler{family: family, log: log}
}

type statusResponse struct {
	Onboarded       bool   `json:"onboarding_complete"`
	ProfileCount    int    `json:"profile_count"`
	MaxProfiles     int    `json:"max_profiles"`
	ActiveProfileID string `json:"active_child_id,omitempty"`
	FaceDigest      string `json:"face_digest,omitempty"`
}

// Status reports onboarding state and the active profile
func (h *HouseholdHandler) Status(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, statusResponse{
		Onboarded:       h.family.IsOnboarded(),
		ProfileCount:    len(h.family.Profiles()),
		MaxProfiles:     models.MaxProfiles,
		ActiveProfileID: h.family.ActiveProfileID(),
		FaceDigest:      h.family.FaceDigest(),
	})
}

// Subjects lists the fixed subject choices
func (h *HouseholdHandler) Subjects(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{"subjects": models.Subjects})
}

// Levels lists the rank table
func (h *HouseholdHandler) Levels(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"levels":         leveling.Tiers(),
		"xp_per_session": models.XPPerSession,
	})
}

type profileResponse struct {
	models.Profile
	Stats service.ProfileStats `json:"stats"`
}

// ListProfiles returns every profile with its derived stats
func (h *HouseholdHandler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles := h.family.Profiles()
	out := make([]profileResponse, 0, len(profiles))
	for _, p := range profiles {
		stats, err := h.family.ProfileStats(p.ID)
		if err != nil {
			respondWithServiceError(w, h.log, err, nil)
			return
		}
		out = append(out, profileResponse{Profile: p, Stats: stats})
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"children":        out,
		"active_child_id": h.family.ActiveProfileID(),
	})
}

// CreateProfile adds a dependent. Adding profiles is not gated.
func (h *HouseholdHandler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	var req service.NewProfile
	if err := decodeJSON(w, r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: ErrInvalidJSON})
		return
	}

	id, err := h.family.AddProfile(r.Context(), req)
	if err != nil {
		respondWithServiceError(w, h.log, err, nil)
		return
	}

	p, err := h.family.Profile(id)
	if err != nil {
		respondWithServiceError(w, h.log, err, nil)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

// GetProfile returns one profile with its stats
func (h *HouseholdHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	p, err := h.family.Profile(id)
	if err != nil {
		respondWithServiceError(w, h.log, err, nil)
		return
	}
	stats, err := h.family.ProfileStats(id)
	if err != nil {
		respondWithServiceError(w, h.log, err, nil)
		return
	}
	respondJSON(w, http.StatusOK, profileResponse{Profile: p, Stats: stats})
}

// ActiveProfile returns the profile currently using the device
func (h *HouseholdHandler) ActiveProfile(w http.ResponseWriter, r *http.Request) {
	p, ok := h.family.ActiveProfile()
	if !ok {
		respondJSON(w, http.StatusNotFound, errorResponse{Error: "No active profile"})
		return
	}
	respondJSON(w, http.StatusOK, p)
}

type recordingRequest struct {
	Subject  models.Subject `json:"subject"`
	AudioRef string         `json:"audio_url"`
}

// AddRecording stores a homework explanation for a profile
func (h *HouseholdHandler) AddRecording(w http.ResponseWriter, r *http.Request) {
	var req recordingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: ErrInvalidJSON})
		return
	}

	id, err := h.family.AddRecording(r.Context(), r.PathValue("id"), req.Subject, req.AudioRef)
	if err != nil {
		respondWithServiceError(w, h.log, err, nil)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"id": id})
}

type onboardingRequest struct {
	PIN       string `json:"pin"`
	FaceImage string `json:"face_image"`
	MIMEType  string `json:"mime_type"`
}

// CompleteOnboarding registers the guardian PIN and reference face
func (h *HouseholdHandler) CompleteOnboarding(w http.ResponseWriter, r *http.Request) {
	var req onboardingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: ErrInvalidJSON})
		return
	}

	face, err := decodeImage(req.FaceImage)
	if err != nil {
		respondWithServiceError(w, h.log, err, nil)
		return
	}

	if err := h.family.CompleteOnboarding(r.Context(), req.PIN, face, req.MIMEType); err != nil {
		respondWithServiceError(w, h.log, err, nil)
		return
	}
	respondJSON(w, http.StatusOK, statusResponse{
		Onboarded:       true,
		ProfileCount:    len(h.family.Profiles()),
		MaxProfiles:     models.MaxProfiles,
		ActiveProfileID: h.family.ActiveProfileID(),
		FaceDigest:      h.family.FaceDigest(),
	})
}

// decodeImage accepts raw base64 or a data URL as produced by a canvas capture
func decodeImage(s string) ([]byte, error) {
	if strings.HasPrefix(s, "data:") {
		_, s, _ = strings.Cut(s, ",")
	}
	if s == "" {
		return nil, nil
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: image is not valid base64", service.ErrInvalidInput)
	}
	return data, nil
}
