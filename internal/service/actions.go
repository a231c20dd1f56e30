package service

import (
	"fmt"

	"eudguide/internal/models"
	"eudguide/internal/validation"
)

// Action is a privileged mutation that only a verification gate may commit.
// The set of actions is closed: CreditSession and SwitchActive.
type Action interface {
	Kind() string
	privileged()
}

const (
	ActionCreditSession = "credit_session"
	ActionSwitchActive  = "switch_active"
)

// CreditSession records a completed study session and awards XP
type CreditSession struct {
	ProfileID       string         `json:"profile_id" validate:"notblank"`
	Subject         models.Subject `json:"subject" validate:"subject"`
	DurationMinutes int            `json:"duration_minutes" validate:"gt=0,lte=1440"`
}

func (CreditSession) Kind() string { return ActionCreditSession }
func (CreditSession) privileged()  {}

// SwitchActive changes which profile is the active one
type SwitchActive struct {
	ProfileID string `json:"profile_id" validate:"notblank"`
}

func (SwitchActive) Kind() string { return ActionSwitchActive }
func (SwitchActive) privileged()  {}

func validateAction(a Action) error {
	switch a.(type) {
	case CreditSession, SwitchActive:
	default:
		return fmt.Errorf("%w: unsupported action %T", ErrInvalidInput, a)
	}
	if err := validation.Struct(a); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return nil
}

func actionProfileID(a Action) string {
	switch a := a.(type) {
	case CreditSession:
		return a.ProfileID
	case SwitchActive:
		return a.ProfileID
	default:
		return ""
	}
}
