package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"eudguide/internal/logger"
	"eudguide/internal/security"
	"eudguide/internal/service"
	"eudguide/internal/validation"
)

type errorResponse struct {
	Error  string                  `json:"error"`
	Fields []validation.FieldError `json:"fields,omitempty"`
	Gate   *service.GateStatus     `json:"gate,omitempty"`
}

func respondWithError(w http.ResponseWriter, log *logger.Logger, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		log.Error(logMsg, "error", err)
	}
	respondJSON(w, status, errorResponse{Error: userMsg})
}

// respondWithServiceError maps domain errors to HTTP status codes
func respondWithServiceError(w http.ResponseWriter, log *logger.Logger, err error, gate *service.GateStatus) {
	status, msg := statusFor(err)
	if status == http.StatusInternalServerError {
		respondWithError(w, log, status, ErrInternalServerError, "request failed", err)
		return
	}

	resp := errorResponse{Error: msg, Gate: gate}
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		resp.Fields = verrs
	}
	respondJSON(w, status, resp)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrPinMismatch):
		return http.StatusUnauthorized, "Incorrect PIN"
	case errors.Is(err, security.ErrInvalidToken):
		return http.StatusUnauthorized, ErrUnauthorized
	case errors.Is(err, service.ErrBiometricRejected):
		return http.StatusForbidden, "Face not recognised"
	case errors.Is(err, service.ErrOracleUnavailable):
		return http.StatusServiceUnavailable, "Face verification is unavailable"
	case errors.Is(err, service.ErrProfileNotFound):
		return http.StatusNotFound, "Profile not found"
	case errors.Is(err, service.ErrGateNotFound):
		return http.StatusNotFound, "Verification not found"
	case errors.Is(err, service.ErrCapacityExceeded):
		return http.StatusConflict, "A household can have at most 5 profiles"
	case errors.Is(err, service.ErrAlreadyOnboarded):
		return http.StatusConflict, "Onboarding is already complete"
	case errors.Is(err, service.ErrGateBusy):
		return http.StatusConflict, "Another verification is in progress"
	case errors.Is(err, service.ErrWrongState):
		return http.StatusConflict, "That step is not expected now"
	case errors.Is(err, service.ErrNotOnboarded):
		return http.StatusPreconditionFailed, "Complete onboarding first"
	case errors.Is(err, service.ErrGateExpired):
		return http.StatusGone, "Verification expired"
	case errors.Is(err, service.ErrGateClosed):
		return http.StatusGone, "Verification is closed"
	case errors.Is(err, service.ErrCoolingDown):
		return http.StatusTooManyRequests, "Please wait before scanning again"
	default:
		return http.StatusInternalServerError, ErrInternalServerError
	}
}

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
