package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"eudguide/internal/biometric"
	"eudguide/internal/logger"
)

// VerificationService opens verification gates for privileged actions.
// At most one gate is pending per device.
type VerificationService struct {
	mu      sync.Mutex
	current *Gate

	store         *FamilyService
	oracle        biometric.Oracle
	policy        GatePolicy
	sweepInterval time.Duration
	log           *logger.Logger

	now   func() time.Time
	newID func() string
}

// NewVerificationService creates the gate coordinator
func NewVerificationService(store *FamilyService, oracle biometric.Oracle, policy GatePolicy, sweepInterval time.Duration, log *logger.Logger) *VerificationService {
	if sweepInterval <= 0 {
		sweepInterval = 30 * time.Second
	}
	return &VerificationService{
		store:         store,
		oracle:        oracle,
		policy:        policy,
		sweepInterval: sweepInterval,
		log:           log,
		now:           time.Now,
		newID:         func() string { return uuid.New().String() },
	}
}

// Begin intercepts a privileged action and returns a gate awaiting the PIN
func (s *VerificationService) Begin(action Action) (*Gate, error) {
	if err := validateAction(action); err != nil {
		return nil, err
	}
	if !s.store.IsOnboarded() {
		return nil, ErrNotOnboarded
	}
	if _, err := s.store.Profile(actionProfileID(action)); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil && !s.current.State().Terminal() {
		return nil, ErrGateBusy
	}

	g := newGate(s.newID(), action, s.store, s.oracle, s.policy, s.now, s.log)
	s.current = g
	return g, nil
}

// Gate returns the pending gate, or the most recently finished one
func (s *VerificationService) Gate(id string) (*Gate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || s.current.id != id {
		return nil, ErrGateNotFound
	}
	return s.current, nil
}

// Pending returns the gate still waiting for input, if any
func (s *VerificationService) Pending() (*Gate, bool) {
	s.mu.Lock()
	g := s.current
	s.mu.Unlock()

	if g == nil || g.State().Terminal() {
		return nil, false
	}
	return g, true
}

// Sweep expires a pending gate past its deadline
func (s *VerificationService) Sweep() {
	s.mu.Lock()
	g := s.current
	s.mu.Unlock()

	if g != nil && g.expireIfDue() {
		s.log.Info("verification gate expired", "gate_id", g.id)
	}
}

// Run sweeps for expired gates until ctx is cancelled
func (s *VerificationService) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Sweep()
		}
	}
}
