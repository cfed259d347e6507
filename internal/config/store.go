package config

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// SettingsRepository persists Settings. Load returns nil and no error when nothing is stored yet.
type SettingsRepository interface {
	Load(ctx context.Context) (*Settings, error)
	Save(ctx context.Context, settings *Settings) error
}

// Store holds the current Settings snapshot. Readers never block; writers replace the
// snapshot wholesale so a reader sees either the old or the new value, never a mix.
type Store struct {
	current atomic.Pointer[Settings]
	mu      sync.Mutex
	repo    SettingsRepository
	logger  *slog.Logger
}

// NewStore loads persisted settings, seeding the repository with defaults on first start.
func NewStore(ctx context.Context, repo SettingsRepository, defaults Settings, logger *slog.Logger) (*Store, error) {
	s := &Store{repo: repo, logger: logger}

	stored, err := repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	if stored == nil {
		stored = defaults.Clone()
		if err := repo.Save(ctx, stored); err != nil {
			return nil, fmt.Errorf("seed settings: %w", err)
		}
		logger.Info("seeded settings from defaults")
	} else if err := stored.Validate(); err != nil {
		logger.Warn("stored settings invalid, using defaults", "error", err)
		stored = defaults.Clone()
	}

	s.current.Store(stored.Clone())
	return s, nil
}

// Current returns the active snapshot. The caller must not modify it.
func (s *Store) Current() *Settings {
	return s.current.Load()
}

// Update applies fn to a copy of the current settings, validates and persists the result
// and then publishes it. Nothing changes when fn, validation or persistence fails.
func (s *Store) Update(ctx context.Context, fn func(*Settings) error) (*Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current.Load().Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	if err := next.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, next); err != nil {
		return nil, fmt.Errorf("save settings: %w", err)
	}

	s.current.Store(next)
	s.logger.Info("settings updated")

	return next, nil
}
