package repositories

import (
	"context"

	"storefront/internal/models"
)

// SettingsRepository defines access to the single store-settings document.
type SettingsRepository interface {
	Get(ctx context.Context) (*models.Settings, error)
	Save(ctx context.Context, settings *models.Settings) error
}
