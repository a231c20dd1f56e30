package service

import (
	"errors"

	"eudguide/internal/biometric"
)

var (
	ErrPinMismatch       = errors.New("PIN does not match")
	ErrBiometricRejected = errors.New("biometric verification rejected")
	ErrOracleUnavailable = biometric.ErrOracleUnavailable

	ErrCapacityExceeded = errors.New("profile limit reached")
	ErrInvalidInput     = errors.New("invalid input")
	ErrProfileNotFound  = errors.New("profile not found")
	ErrNotOnboarded     = errors.New("guardian has not completed onboarding")
	ErrAlreadyOnboarded = errors.New("onboarding already completed")

	ErrGateBusy     = errors.New("another verification is in progress")
	ErrGateClosed   = errors.New("verification gate is closed")
	ErrGateExpired  = errors.New("verification gate expired")
	ErrGateNotFound = errors.New("verification gate not found")
	ErrCoolingDown  = errors.New("biometric re-scan not yet allowed")
	ErrWrongState   = errors.New("operation not allowed in current gate state")
)
