package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"eudguide/internal/credentials"
	"eudguide/internal/leveling"
	"eudguide/internal/logger"
	"eudguide/internal/models"
	"eudguide/internal/validation"
)

// SnapshotSaver persists the whole household state after a mutation
type SnapshotSaver interface {
	SaveSnapshot(ctx context.Context, state *models.AppState) error
}

// RankObserver is told about certificates earned by a committed study session
type RankObserver interface {
	CertificateEarned(ctx context.Context, profile models.Profile, rank models.Rank)
}

// NewProfile holds the fields a guardian supplies for a new dependent
type NewProfile struct {
	Name     string `json:"name" validate:"notblank,max=60"`
	Standard string `json:"standard" validate:"notblank,max=20"`
	School   string `json:"school" validate:"notblank,max=100"`
}

// CreditResult describes the effect of a credited session
type CreditResult struct {
	SessionID      string      `json:"session_id"`
	ProfileID      string      `json:"profile_id"`
	XP             int         `json:"xp"`
	Rank           models.Rank `json:"level"`
	NewCertificate models.Rank `json:"new_certificate,omitempty"`
}

// ProfileStats is the derived progress view for one profile
type ProfileStats struct {
	ProfileID      string        `json:"profile_id"`
	XP             int           `json:"xp"`
	Rank           models.Rank   `json:"level"`
	Progress       float64       `json:"progress"`
	XPToNextRank   int           `json:"xp_to_next_level"`
	TotalMinutes   int           `json:"total_minutes"`
	SessionCount   int           `json:"session_count"`
	RecordingCount int           `json:"recording_count"`
	Certificates   []models.Rank `json:"certificates"`
}

// FamilyService owns the household state: dependent profiles, their study
// history, and the guardian credential.
type FamilyService struct {
	mu       sync.RWMutex
	state    *models.AppState
	saver    SnapshotSaver
	observer RankObserver
	log      *logger.Logger

	now   func() time.Time
	newID func() string
}

// NewFamilyService creates a store seeded with initial (may be nil for a fresh device)
func NewFamilyService(initial *models.AppState, saver SnapshotSaver, log *logger.Logger) *FamilyService {
	state := initial.Clone()
	if state == nil {
		state = models.NewAppState()
	}
	return &FamilyService{
		state: state,
		saver: saver,
		log:   log,
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
}

// OpenFamilyService loads the stored household. A snapshot that breaks the
// profile invariants is refused rather than served and written back.
func OpenFamilyService(ctx context.Context, store SnapshotStore, log *logger.Logger) (*FamilyService, error) {
	initial, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load household: %w", err)
	}
	if initial != nil {
		if err := ValidateState(initial); err != nil {
			return nil, fmt.Errorf("stored household is invalid: %w", err)
		}
	}
	return NewFamilyService(initial, store, log), nil
}

// SetRankObserver registers the hook for newly earned certificates
func (s *FamilyService) SetRankObserver(o RankObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observer = o
}

// mutate applies fn to a copy of the state, persists the copy, then swaps it in.
// Any error leaves the current state untouched.
func (s *FamilyService) mutate(ctx context.Context, fn func(st *models.AppState) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.Clone()
	if err := fn(next); err != nil {
		return err
	}
	if err := s.saver.SaveSnapshot(ctx, next); err != nil {
		s.log.Error("failed to persist snapshot", "error", err)
		return fmt.Errorf("failed to persist snapshot: %w", err)
	}
	s.state = next
	return nil
}

// AddProfile creates a dependent profile at XP 0. The first profile becomes active.
func (s *FamilyService) AddProfile(ctx context.Context, np NewProfile) (string, error) {
	if err := validation.Struct(np); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	id := s.newID()
	err := s.mutate(ctx, func(st *models.AppState) error {
		if len(st.Profiles) >= models.MaxProfiles {
			return ErrCapacityExceeded
		}
		st.Profiles = append(st.Profiles, models.Profile{
			ID:           id,
			Name:         strings.TrimSpace(np.Name),
			Standard:     strings.TrimSpace(np.Standard),
			School:       strings.TrimSpace(np.School),
			XP:           0,
			Rank:         leveling.RankOf(0),
			Sessions:     []models.StudySession{},
			Recordings:   []models.VoiceRecording{},
			Certificates: []models.Rank{},
			CreatedAt:    s.now().UTC(),
		})
		if st.ActiveProfileID == "" {
			st.ActiveProfileID = id
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	s.log.Info("profile added", "profile_id", id)
	return id, nil
}

// creditSession is only reachable from a gate commit.
func (s *FamilyService) creditSession(ctx context.Context, profileID string, subject models.Subject, minutes, xp int) (CreditResult, error) {
	if minutes <= 0 || xp <= 0 {
		return CreditResult{}, fmt.Errorf("%w: duration and xp must be positive", ErrInvalidInput)
	}
	if _, err := models.ParseSubject(string(subject)); err != nil {
		return CreditResult{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	res := CreditResult{SessionID: s.newID(), ProfileID: profileID}
	var earned models.Profile
	err := s.mutate(ctx, func(st *models.AppState) error {
		idx := st.FindProfile(profileID)
		if idx < 0 {
			return ErrProfileNotFound
		}
		p := &st.Profiles[idx]

		session := models.StudySession{
			ID:              res.SessionID,
			Subject:         subject,
			DurationMinutes: minutes,
			CompletedAt:     s.now().UTC(),
			XPEarned:        xp,
		}
		p.Sessions = append([]models.StudySession{session}, p.Sessions...)

		previous := p.Rank
		p.XP += xp
		p.Rank = leveling.RankOf(p.XP)
		if p.Rank != previous && !p.HasCertificate(p.Rank) {
			p.Certificates = append(p.Certificates, p.Rank)
			res.NewCertificate = p.Rank
			earned = p.Clone()
		}

		res.XP = p.XP
		res.Rank = p.Rank
		return nil
	})
	if err != nil {
		return CreditResult{}, err
	}

	s.log.Info("study session credited",
		"profile_id", profileID,
		"session_id", res.SessionID,
		"subject", subject,
		"duration_minutes", minutes,
		"xp", res.XP,
		"level", res.Rank,
	)

	if res.NewCertificate != "" {
		s.log.Info("certificate earned", "profile_id", profileID, "level", res.NewCertificate)
		s.mu.RLock()
		observer := s.observer
		s.mu.RUnlock()
		if observer != nil {
			observer.CertificateEarned(ctx, earned, res.NewCertificate)
		}
	}

	return res, nil
}

// switchActive is only reachable from a gate commit.
func (s *FamilyService) switchActive(ctx context.Context, profileID string) error {
	err := s.mutate(ctx, func(st *models.AppState) error {
		if st.FindProfile(profileID) < 0 {
			return ErrProfileNotFound
		}
		st.ActiveProfileID = profileID
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info("active profile switched", "profile_id", profileID)
	return nil
}

// AddRecording stores a homework explanation. It is not gated.
func (s *FamilyService) AddRecording(ctx context.Context, profileID string, subject models.Subject, audioRef string) (string, error) {
	if _, err := models.ParseSubject(string(subject)); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if strings.TrimSpace(audioRef) == "" {
		return "", fmt.Errorf("%w: audio reference is required", ErrInvalidInput)
	}

	id := s.newID()
	err := s.mutate(ctx, func(st *models.AppState) error {
		idx := st.FindProfile(profileID)
		if idx < 0 {
			return ErrProfileNotFound
		}
		p := &st.Profiles[idx]
		rec := models.VoiceRecording{
			ID:        id,
			Subject:   subject,
			CreatedAt: s.now().UTC(),
			AudioRef:  audioRef,
		}
		p.Recordings = append([]models.VoiceRecording{rec}, p.Recordings...)
		return nil
	})
	if err != nil {
		return "", err
	}

	s.log.Info("recording added", "profile_id", profileID, "recording_id", id, "subject", subject)
	return id, nil
}

// CompleteOnboarding registers the guardian PIN and reference face. It succeeds once.
func (s *FamilyService) CompleteOnboarding(ctx context.Context, pin string, faceImage []byte, mimeType string) error {
	if err := credentials.ValidatePIN(pin); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if len(faceImage) == 0 {
		return fmt.Errorf("%w: reference face image is required", ErrInvalidInput)
	}

	err := s.mutate(ctx, func(st *models.AppState) error {
		if st.Guardian.OnboardingComplete {
			return ErrAlreadyOnboarded
		}
		if len(st.Profiles) == 0 {
			return fmt.Errorf("%w: add at least one profile first", ErrInvalidInput)
		}
		st.Guardian = models.GuardianCredential{
			PIN:                pin,
			FaceImage:          append([]byte(nil), faceImage...),
			FaceMIMEType:       mimeType,
			FaceRegistered:     true,
			OnboardingComplete: true,
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("onboarding completed", "face_digest", credentials.FaceDigest(faceImage))
	return nil
}

// VerifyPIN checks a submitted PIN against the guardian credential
func (s *FamilyService) VerifyPIN(pin string) error {
	g, ok := s.guardian()
	if !ok {
		return ErrNotOnboarded
	}
	if !credentials.PINMatches(g.PIN, pin) {
		return ErrPinMismatch
	}
	return nil
}

func (s *FamilyService) guardian() (models.GuardianCredential, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.state.Guardian.OnboardingComplete {
		return models.GuardianCredential{}, false
	}
	g := s.state.Guardian
	g.FaceImage = append([]byte(nil), g.FaceImage...)
	return g, true
}

// IsOnboarded reports whether a guardian credential is registered
func (s *FamilyService) IsOnboarded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Guardian.OnboardingComplete
}

// FaceDigest returns a fingerprint of the registered reference face
func (s *FamilyService) FaceDigest() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return credentials.FaceDigest(s.state.Guardian.FaceImage)
}

// Profiles returns copies of every profile in insertion order
func (s *FamilyService) Profiles() []models.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Profile, len(s.state.Profiles))
	for i, p := range s.state.Profiles {
		out[i] = p.Clone()
	}
	return out
}

// Profile returns a copy of one profile
func (s *FamilyService) Profile(id string) (models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.state.FindProfile(id)
	if idx < 0 {
		return models.Profile{}, ErrProfileNotFound
	}
	return s.state.Profiles[idx].Clone(), nil
}

// ActiveProfile returns the active profile, if any
func (s *FamilyService) ActiveProfile() (models.Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.state.FindProfile(s.state.ActiveProfileID)
	if idx < 0 {
		return models.Profile{}, false
	}
	return s.state.Profiles[idx].Clone(), true
}

// ActiveProfileID returns the active profile ID, empty when none
func (s *FamilyService) ActiveProfileID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.ActiveProfileID
}

// Snapshot returns a deep copy of the whole state
func (s *FamilyService) Snapshot() *models.AppState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// ProfileStats derives progress figures for one profile
func (s *FamilyService) ProfileStats(id string) (ProfileStats, error) {
	p, err := s.Profile(id)
	if err != nil {
		return ProfileStats{}, err
	}
	return statsFor(p), nil
}

func statsFor(p models.Profile) ProfileStats {
	return ProfileStats{
		ProfileID:      p.ID,
		XP:             p.XP,
		Rank:           p.Rank,
		Progress:       leveling.ProgressWithinRank(p.XP),
		XPToNextRank:   leveling.XPToNextRank(p.XP),
		TotalMinutes:   p.TotalMinutes(),
		SessionCount:   len(p.Sessions),
		RecordingCount: len(p.Recordings),
		Certificates:   append(make([]models.Rank, 0, len(p.Certificates)), p.Certificates...),
	}
}
