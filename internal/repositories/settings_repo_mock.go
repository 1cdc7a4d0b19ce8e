package repositories

import (
	"context"
	"sync"
	"time"

	"storefront/internal/models"
)

// MockSettingsRepository is an in-memory implementation of SettingsRepository.
type MockSettingsRepository struct {
	settings *models.Settings
	mu       sync.RWMutex
}

// NewMockSettingsRepository creates a new instance of MockSettingsRepository.
func NewMockSettingsRepository() *MockSettingsRepository {
	return &MockSettingsRepository{}
}

// Get returns the stored settings, or ErrNotFound.
func (r *MockSettingsRepository) Get(ctx context.Context) (*models.Settings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.settings == nil {
		return nil, ErrNotFound
	}
	settings := *r.settings
	return &settings, nil
}

// Save stores the settings document.
func (r *MockSettingsRepository) Save(ctx context.Context, settings *models.Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	settings.ID = models.SettingsID
	settings.UpdatedAt = time.Now()
	stored := *settings
	r.settings = &stored
	return nil
}
