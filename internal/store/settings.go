package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bugreport/internal/model"
)

// settingsRowID is the single row holding the widget options.
const settingsRowID = 1

type SettingsStore struct {
	db *DB
}

func NewSettingsStore(db *DB) *SettingsStore {
	return &SettingsStore{db: db}
}

// Load returns the current settings. Seeds the defaults if no row exists.
func (s *SettingsStore) Load(ctx context.Context) (*model.Settings, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		s.db.rebind(`SELECT data FROM settings WHERE id = ?`), settingsRowID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		defaults := model.DefaultSettings()
		if err := s.SeedDefaults(ctx); err != nil {
			return nil, err
		}
		slog.Info("settings: seeded defaults")
		return defaults, nil
	} else if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	var settings model.Settings
	if err := json.Unmarshal([]byte(data), &settings); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	return &settings, nil
}

// Save validates and persists settings, replacing the current row.
func (s *SettingsStore) Save(ctx context.Context, settings *model.Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.db.rebind(`
		INSERT INTO settings (id, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`), settingsRowID, string(raw), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// SeedDefaults writes the default settings unless a row already exists.
func (s *SettingsStore) SeedDefaults(ctx context.Context) error {
	raw, err := json.Marshal(model.DefaultSettings())
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.db.rebind(`
		INSERT INTO settings (id, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`), settingsRowID, string(raw), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("seed settings: %w", err)
	}
	return nil
}
