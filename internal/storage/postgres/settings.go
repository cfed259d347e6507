package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"calendar_bot/internal/config"
)

// SettingsStore keeps the live settings in a single JSONB row and appends every saved
// version to settings_history.
type SettingsStore struct {
	db *sqlx.DB
	tx *TransactionManager
}

func NewSettingsStore(db *sqlx.DB, tx *TransactionManager) *SettingsStore {
	return &SettingsStore{db: db, tx: tx}
}

// Load returns nil when nothing was saved yet.
func (s *SettingsStore) Load(ctx context.Context) (*config.Settings, error) {
	var data []byte
	err := s.db.GetContext(ctx, &data, `SELECT data FROM bot_settings WHERE id = 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select settings: %w", err)
	}

	var settings config.Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	return &settings, nil
}

func (s *SettingsStore) Save(ctx context.Context, settings *config.Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	return s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		exec := GetExecutor(ctx, s.db)

		_, err := exec.ExecContext(ctx, `
			INSERT INTO bot_settings (id, data, updated_at)
			VALUES (1, $1, NOW())
			ON CONFLICT (id) DO UPDATE SET
				data = EXCLUDED.data,
				updated_at = EXCLUDED.updated_at`,
			data,
		)
		if err != nil {
			return fmt.Errorf("upsert settings: %w", err)
		}

		if _, err := exec.ExecContext(ctx, `INSERT INTO settings_history (data) VALUES ($1)`, data); err != nil {
			return fmt.Errorf("insert settings history: %w", err)
		}

		return nil
	})
}
