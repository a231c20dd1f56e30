package handlers

import (
	"fmt"
	"net/http"

	"eudguide/internal/biometric"
	"eudguide/internal/logger"
	"eudguide/internal/models"
	"eudguide/internal/service"
)

// GateHandler drives verification gates over HTTP
type GateHandler struct {
	verify *service.VerificationService
	log    *logger.Logger
}

// NewGateHandler creates a new gate handler
func NewGateHandler(verify *service.VerificationService, log *logger.Logger) *GateHandler {
	return &GateHandler{verify: verify, log: log}
}

type beginRequest struct {
	Action          string         `json:"action"`
	ProfileID       string         `json:"profile_id"`
	Subject         models.Subject `json:"subject,omitempty"`
	DurationMinutes int            `json:"duration_minutes,omitempty"`
}

func (req beginRequest) toAction() (service.Action, error) {
	switch req.Action {
	case service.ActionCreditSession:
		return service.CreditSession{
			ProfileID:       req.ProfileID,
			Subject:         req.Subject,
			DurationMinutes: req.DurationMinutes,
		}, nil
	case service.ActionSwitchActive:
		return service.SwitchActive{ProfileID: req.ProfileID}, nil
	default:
		return nil, fmt.Errorf("%w: unknown action %q", service.ErrInvalidInput, req.Action)
	}
}

type pinRequest struct {
	PIN string `json:"pin"`
}

type biometricRequest struct {
	Image    string `json:"image"`
	MIMEType string `json:"mime_type"`
}

// Begin opens a gate for a privileged action
func (h *GateHandler) Begin(w http.ResponseWriter, r *http.Request) {
	var req beginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: ErrInvalidJSON})
		return
	}

	action, err := req.toAction()
	if err != nil {
		respondWithServiceError(w, h.log, err, nil)
		return
	}

	g, err := h.verify.Begin(action)
	if err != nil {
		var pending *service.GateStatus
		if p, ok := h.verify.Pending(); ok {
			st := p.Status()
			pending = &st
		}
		respondWithServiceError(w, h.log, err, pending)
		return
	}
	respondJSON(w, http.StatusCreated, g.Status())
}

// Pending returns the gate still waiting for input
func (h *GateHandler) Pending(w http.ResponseWriter, r *http.Request) {
	g, ok := h.verify.Pending()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	respondJSON(w, http.StatusOK, g.Status())
}

// Get returns a gate's status
func (h *GateHandler) Get(w http.ResponseWriter, r *http.Request) {
	g, err := h.verify.Gate(r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, h.log, err, nil)
		return
	}
	respondJSON(w, http.StatusOK, g.Status())
}

// SubmitPIN supplies the first factor
func (h *GateHandler) SubmitPIN(w http.ResponseWriter, r *http.Request) {
	g, err := h.verify.Gate(r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, h.log, err, nil)
		return
	}

	var req pinRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: ErrInvalidJSON})
		return
	}

	h.respond(w, g, g.SubmitPIN(req.PIN))
}

// SubmitBiometric supplies the camera frame for the second factor
func (h *GateHandler) SubmitBiometric(w http.ResponseWriter, r *http.Request) {
	g, err := h.verify.Gate(r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, h.log, err, nil)
		return
	}

	var req biometricRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: ErrInvalidJSON})
		return
	}
	data, err := decodeImage(req.Image)
	if err != nil {
		respondWithServiceError(w, h.log, err, nil)
		return
	}

	probe := biometric.Image{Data: data, MIMEType: req.MIMEType}
	h.respond(w, g, g.SubmitBiometric(r.Context(), probe))
}

// Cancel abandons a gate
func (h *GateHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	g, err := h.verify.Gate(r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, h.log, err, nil)
		return
	}
	h.respond(w, g, g.Cancel())
}

func (h *GateHandler) respond(w http.ResponseWriter, g *service.Gate, err error) {
	st := g.Status()
	if err != nil {
		respondWithServiceError(w, h.log, err, &st)
		return
	}
	respondJSON(w, http.StatusOK, st)
}
