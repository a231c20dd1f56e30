package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"eudguide/internal/credentials"
	"eudguide/internal/leveling"
	"eudguide/internal/logger"
	"eudguide/internal/models"
)

// BackupVersion is the format version written to backup files
const BackupVersion = "1.0"

// SnapshotStore loads and saves the persisted household state
type SnapshotStore interface {
	Load(ctx context.Context) (*models.AppState, error)
	SaveSnapshot(ctx context.Context, state *models.AppState) error
}

// BackupData represents a complete backup file
type BackupData struct {
	Version    string           `json:"version"`
	ExportedAt time.Time        `json:"exported_at"`
	State      *models.AppState `json:"state"`
}

// BackupService handles backup and restore of the household snapshot
type BackupService struct {
	store SnapshotStore
	log   *logger.Logger
	now   func() time.Time
}

// NewBackupService creates a new backup service
func NewBackupService(store SnapshotStore, log *logger.Logger) *BackupService {
	return &BackupService{store: store, log: log, now: time.Now}
}

// Export writes the current snapshot to a file
func (s *BackupService) Export(ctx context.Context, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if err := s.ExportToWriter(ctx, file); err != nil {
		return err
	}

	s.log.Info("snapshot exported", "path", outputPath)
	return nil
}

// ExportToWriter writes the current snapshot as indented JSON
func (s *BackupService) ExportToWriter(ctx context.Context, w io.Writer) error {
	state, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load snapshot: %w", err)
	}
	if state == nil {
		state = models.NewAppState()
	}

	backup := &BackupData{
		Version:    BackupVersion,
		ExportedAt: s.now().UTC(),
		State:      state,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}

	s.log.Info("backup written", "profiles", len(state.Profiles))
	return nil
}

// Import restores the snapshot from a backup file
func (s *BackupService) Import(ctx context.Context, inputPath string) error {
	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	return s.ImportFromReader(ctx, file)
}

// ImportFromReader validates a backup and replaces the stored snapshot with it
func (s *BackupService) ImportFromReader(ctx context.Context, reader io.Reader) error {
	var backup BackupData
	decoder := json.NewDecoder(reader)
	if err := decoder.Decode(&backup); err != nil {
		return fmt.Errorf("failed to decode backup: %w", err)
	}

	if backup.Version != BackupVersion {
		return fmt.Errorf("%w: unsupported backup version %q", ErrInvalidInput, backup.Version)
	}
	if backup.State == nil {
		return fmt.Errorf("%w: backup has no state", ErrInvalidInput)
	}
	if backup.State.Profiles == nil {
		backup.State.Profiles = []models.Profile{}
	}
	if err := ValidateState(backup.State); err != nil {
		return err
	}

	if err := s.store.SaveSnapshot(ctx, backup.State); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	s.log.Info("backup imported",
		"version", backup.Version,
		"exported_at", backup.ExportedAt,
		"profiles", len(backup.State.Profiles),
	)
	return nil
}

// ValidateState checks the invariants every persisted snapshot must hold
func ValidateState(st *models.AppState) error {
	if len(st.Profiles) > models.MaxProfiles {
		return fmt.Errorf("%w: %d profiles exceeds limit of %d", ErrInvalidInput, len(st.Profiles), models.MaxProfiles)
	}

	seen := make(map[string]bool, len(st.Profiles))
	for _, p := range st.Profiles {
		if p.ID == "" || seen[p.ID] {
			return fmt.Errorf("%w: missing or duplicate profile id %q", ErrInvalidInput, p.ID)
		}
		seen[p.ID] = true

		if p.XP < 0 {
			return fmt.Errorf("%w: profile %s has negative xp", ErrInvalidInput, p.ID)
		}
		if p.Rank != leveling.RankOf(p.XP) {
			return fmt.Errorf("%w: profile %s level %s does not match %d xp", ErrInvalidInput, p.ID, p.Rank, p.XP)
		}

		held := make(map[models.Rank]bool, len(p.Certificates))
		for _, c := range p.Certificates {
			if !c.Valid() || held[c] || c.Index() > p.Rank.Index() {
				return fmt.Errorf("%w: profile %s has invalid certificate %q", ErrInvalidInput, p.ID, c)
			}
			held[c] = true
		}

		for _, sess := range p.Sessions {
			if sess.DurationMinutes <= 0 {
				return fmt.Errorf("%w: session %s has non-positive duration", ErrInvalidInput, sess.ID)
			}
			if _, err := models.ParseSubject(string(sess.Subject)); err != nil {
				return fmt.Errorf("%w: session %s: %w", ErrInvalidInput, sess.ID, err)
			}
		}
	}

	if st.ActiveProfileID != "" && !seen[st.ActiveProfileID] {
		return fmt.Errorf("%w: active profile %s does not exist", ErrInvalidInput, st.ActiveProfileID)
	}

	if st.Guardian.OnboardingComplete {
		if err := credentials.ValidatePIN(st.Guardian.PIN); err != nil {
			return fmt.Errorf("%w: guardian %w", ErrInvalidInput, err)
		}
		if len(st.Guardian.FaceImage) == 0 {
			return fmt.Errorf("%w: guardian face image missing", ErrInvalidInput)
		}
	}

	return nil
}
