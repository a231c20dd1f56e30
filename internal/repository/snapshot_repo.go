package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"eudguide/internal/database"
	"eudguide/internal/models"
)

// SnapshotRepository persists the whole household state as one JSON row
type SnapshotRepository struct {
	db  *database.DB
	now func() time.Time
}

func NewSnapshotRepository(db *database.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db, now: time.Now}
}

// Load returns the last saved state, or nil when nothing has been saved yet
func (r *SnapshotRepository) Load(ctx context.Context) (*models.AppState, error) {
	var payload string
	err := r.db.QueryRowContext(ctx, `SELECT payload FROM app_state WHERE id = ?`, 1).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	state := models.NewAppState()
	if err := json.Unmarshal([]byte(payload), state); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if state.Profiles == nil {
		state.Profiles = []models.Profile{}
	}
	return state, nil
}

// SaveSnapshot replaces the stored state
func (r *SnapshotRepository) SaveSnapshot(ctx context.Context, state *models.AppState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	return r.db.WithTx(ctx, func(tx *database.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.SQLDialect().SnapshotUpsert(), string(payload), r.now().UTC()); err != nil {
			return fmt.Errorf("failed to save snapshot: %w", err)
		}
		return nil
	})
}
