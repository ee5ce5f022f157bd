package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edupanel/campus-api/internal/models"
)

// SettingsRepository manages persistence for the settings table.
type SettingsRepository struct {
	db *sqlx.DB
}

// NewSettingsRepository constructs a new settings repository.
func NewSettingsRepository(db *sqlx.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// ListAll returns every settings row.
func (r *SettingsRepository) ListAll(ctx context.Context) ([]models.Setting, error) {
	const query = `SELECT id, key, value, updated_by, updated_at FROM settings ORDER BY key ASC`
	var settings []models.Setting
	if err := r.db.SelectContext(ctx, &settings, query); err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	return settings, nil
}

// Upsert writes a settings key, inserting or replacing its value.
func (r *SettingsRepository) Upsert(ctx context.Context, setting *models.Setting) error {
	if setting.ID == "" {
		setting.ID = uuid.NewString()
	}
	setting.UpdatedAt = time.Now().UTC()

	const query = `INSERT INTO settings (id, key, value, updated_by, updated_at) VALUES (:id, :key, :value, :updated_by, :updated_at)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_by = EXCLUDED.updated_by, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, setting); err != nil {
		return fmt.Errorf("upsert setting: %w", err)
	}
	return nil
}
