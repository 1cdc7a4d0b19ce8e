package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"storefront/internal/models"
	"storefront/internal/repositories"
)

// SettingsService manages the store-wide settings document.
type SettingsService struct {
	repo   repositories.SettingsRepository
	logger zerolog.Logger
}

// NewSettingsService creates a new SettingsService.
func NewSettingsService(repo repositories.SettingsRepository, logger zerolog.Logger) *SettingsService {
	return &SettingsService{repo: repo, logger: logger}
}

// Get returns the store settings, falling back to defaults when none were
// saved yet or the store is unreachable. Never fails.
func (s *SettingsService) Get(ctx context.Context) *models.Settings {
	settings, err := s.repo.Get(ctx)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			s.logger.Warn().Err(err).Msg("settings fetch failed, using defaults")
		}
		return models.DefaultSettings()
	}
	return settings
}

// Update saves the store settings.
func (s *SettingsService) Update(ctx context.Context, settings *models.Settings) error {
	return s.repo.Save(ctx, settings)
}
