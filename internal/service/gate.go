package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"eudguide/internal/biometric"
	"eudguide/internal/logger"
	"eudguide/internal/models"
)

// GateState is a step in the two-factor verification lifecycle
type GateState string

const (
	GateIdle              GateState = "idle"
	GateAwaitingPin       GateState = "awaiting_pin"
	GateAwaitingBiometric GateState = "awaiting_biometric"
	GateCommitting        GateState = "committing"
	GateCompleted         GateState = "completed"
	GateRejected          GateState = "rejected"
	GateAborted           GateState = "aborted"
)

// Terminal reports whether no further transitions are possible
func (s GateState) Terminal() bool {
	return s == GateCompleted || s == GateRejected || s == GateAborted
}

// GatePolicy holds the tunables of a verification gate
type GatePolicy struct {
	// Threshold is the exclusive lower bound on oracle confidence
	Threshold float64
	// Cooldown is the wait between a rejected scan and the next attempt
	Cooldown time.Duration
	// MaxBiometricAttempts consecutive rejections close the gate as Rejected
	MaxBiometricAttempts int
	// Timeout is how long a gate may sit waiting for input
	Timeout time.Duration
}

// DefaultGatePolicy returns the household defaults
func DefaultGatePolicy() GatePolicy {
	return GatePolicy{
		Threshold:            0.6,
		Cooldown:             3 * time.Second,
		MaxBiometricAttempts: 3,
		Timeout:              5 * time.Minute,
	}
}

// GateOutcome records how a gate finished
type GateOutcome struct {
	Reason string        `json:"reason"`
	Credit *CreditResult `json:"credit,omitempty"`
}

// GateStatus is a point-in-time view of a gate
type GateStatus struct {
	ID                string       `json:"id"`
	State             GateState    `json:"state"`
	ActionKind        string       `json:"action"`
	Action            Action       `json:"payload"`
	PinVerified       bool         `json:"pin_verified"`
	BiometricAttempts int          `json:"biometric_attempts"`
	RetryAt           *time.Time   `json:"retry_at,omitempty"`
	ExpiresAt         time.Time    `json:"expires_at"`
	Outcome           *GateOutcome `json:"outcome,omitempty"`
}

// Gate guards exactly one privileged action behind a PIN and a biometric match.
// A gate is single-use; once terminal it only reports its status.
type Gate struct {
	mu sync.Mutex

	id     string
	action Action
	state  GateState

	store  *FamilyService
	oracle biometric.Oracle
	policy GatePolicy
	now    func() time.Time
	log    *logger.Logger

	pinVerified bool
	rejections  int
	retryAt     time.Time
	expiresAt   time.Time
	outcome     *GateOutcome
}

func newGate(id string, action Action, store *FamilyService, oracle biometric.Oracle, policy GatePolicy, now func() time.Time, log *logger.Logger) *Gate {
	g := &Gate{
		id:     id,
		action: action,
		state:  GateIdle,
		store:  store,
		oracle: oracle,
		policy: policy,
		now:    now,
		log:    log.With("gate_id", id, "action", action.Kind()),
	}
	g.transition(GateAwaitingPin)
	g.touch()
	return g
}

// ID returns the gate identifier
func (g *Gate) ID() string {
	return g.id
}

// SubmitPIN compares the PIN exactly. A mismatch keeps the gate waiting for a PIN.
func (g *Gate) SubmitPIN(pin string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.ensureOpen(); err != nil {
		return err
	}
	if g.state != GateAwaitingPin {
		return fmt.Errorf("%w: %s", ErrWrongState, g.state)
	}

	g.touch()
	if err := g.store.VerifyPIN(pin); err != nil {
		if errors.Is(err, ErrPinMismatch) {
			g.log.Info("PIN mismatch")
		}
		return err
	}

	g.pinVerified = true
	g.transition(GateAwaitingBiometric)
	return nil
}

// SubmitBiometric asks the oracle to compare the probe with the registered face.
// On success the action is committed before returning.
func (g *Gate) SubmitBiometric(ctx context.Context, probe biometric.Image) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.ensureOpen(); err != nil {
		return err
	}
	if g.state != GateAwaitingBiometric || !g.pinVerified {
		return fmt.Errorf("%w: %s", ErrWrongState, g.state)
	}
	if now := g.now(); now.Before(g.retryAt) {
		return fmt.Errorf("%w: retry in %s", ErrCoolingDown, g.retryAt.Sub(now).Round(time.Millisecond))
	}

	guardian, ok := g.store.guardian()
	if !ok {
		g.abort("guardian credential missing")
		return ErrNotOnboarded
	}
	if probe.Empty() {
		g.abort("camera frame unavailable")
		return fmt.Errorf("%w: camera frame unavailable", ErrOracleUnavailable)
	}

	reference := biometric.Image{Data: guardian.FaceImage, MIMEType: guardian.FaceMIMEType}
	result, err := g.oracle.Compare(ctx, reference, probe)
	if err != nil {
		g.log.Warn("biometric oracle fault", "error", err)
		g.abort("biometric oracle unavailable")
		if !errors.Is(err, ErrOracleUnavailable) {
			err = fmt.Errorf("%w: %v", ErrOracleUnavailable, err)
		}
		return err
	}

	if c := result.Confidence; math.IsNaN(c) || c < 0 || c > 1 {
		g.log.Warn("biometric oracle returned malformed confidence", "confidence", c)
		g.abort("malformed oracle verdict")
		return fmt.Errorf("%w: confidence %v outside [0,1]", ErrOracleUnavailable, c)
	}

	accepted := result.Match && result.Confidence > g.policy.Threshold
	if !accepted {
		g.rejections++
		g.log.Info("biometric rejected",
			"match", result.Match,
			"confidence", result.Confidence,
			"attempt", g.rejections,
		)
		if g.rejections >= g.policy.MaxBiometricAttempts {
			g.outcome = &GateOutcome{Reason: "biometric rejected"}
			g.transition(GateRejected)
			return fmt.Errorf("%w: attempts exhausted", ErrBiometricRejected)
		}
		g.retryAt = g.now().Add(g.policy.Cooldown)
		g.touch()
		return ErrBiometricRejected
	}

	g.log.Debug("biometric accepted", "confidence", result.Confidence)
	g.transition(GateCommitting)

	credit, err := g.commit(ctx)
	if err != nil {
		g.log.Error("commit failed", "error", err)
		g.abort("commit failed")
		return err
	}

	g.outcome = &GateOutcome{Reason: "verified", Credit: credit}
	g.transition(GateCompleted)
	return nil
}

// Cancel abandons the gate; the action is never committed.
func (g *Gate) Cancel() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.ensureOpen(); err != nil {
		return err
	}
	g.abort("cancelled")
	return nil
}

// Status returns a snapshot of the gate
func (g *Gate) Status() GateStatus {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.expireIfDueLocked()

	st := GateStatus{
		ID:                g.id,
		State:             g.state,
		ActionKind:        g.action.Kind(),
		Action:            g.action,
		PinVerified:       g.pinVerified,
		BiometricAttempts: g.rejections,
		ExpiresAt:         g.expiresAt,
	}
	if !g.retryAt.IsZero() && g.state == GateAwaitingBiometric {
		retryAt := g.retryAt
		st.RetryAt = &retryAt
	}
	if g.outcome != nil {
		outcome := *g.outcome
		st.Outcome = &outcome
	}
	return st
}

// State returns the current lifecycle state
func (g *Gate) State() GateState {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.expireIfDueLocked()
	return g.state
}

// commit dispatches the verified action to the store. Both factors have passed.
func (g *Gate) commit(ctx context.Context) (*CreditResult, error) {
	switch a := g.action.(type) {
	case CreditSession:
		res, err := g.store.creditSession(ctx, a.ProfileID, a.Subject, a.DurationMinutes, models.XPPerSession)
		if err != nil {
			return nil, err
		}
		return &res, nil
	case SwitchActive:
		return nil, g.store.switchActive(ctx, a.ProfileID)
	default:
		return nil, fmt.Errorf("%w: unsupported action %T", ErrInvalidInput, a)
	}
}

// expireIfDue moves a waiting gate past its deadline to Aborted
func (g *Gate) expireIfDue() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.expireIfDueLocked()
}

func (g *Gate) expireIfDueLocked() bool {
	if g.state.Terminal() || g.now().Before(g.expiresAt) {
		return false
	}
	g.abort("expired")
	return true
}

func (g *Gate) ensureOpen() error {
	if g.expireIfDueLocked() {
		return ErrGateExpired
	}
	if g.state.Terminal() {
		return fmt.Errorf("%w: %s", ErrGateClosed, g.state)
	}
	return nil
}

func (g *Gate) abort(reason string) {
	g.outcome = &GateOutcome{Reason: reason}
	g.transition(GateAborted)
}

func (g *Gate) touch() {
	g.expiresAt = g.now().Add(g.policy.Timeout)
}

func (g *Gate) transition(to GateState) {
	from := g.state
	g.state = to
	g.log.Debug("gate transition", "from", from, "state", to)
	if to.Terminal() {
		g.log.Info("gate closed", "state", to, "reason", g.outcome.Reason)
	}
}
