package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"storefront/internal/models"
)

const settingsCollection = "settings"

// MongoSettingsRepository is a MongoDB implementation of SettingsRepository.
type MongoSettingsRepository struct {
	db *mongo.Database
}

// NewMongoSettingsRepository creates a new MongoSettingsRepository.
func NewMongoSettingsRepository(db *mongo.Database) *MongoSettingsRepository {
	return &MongoSettingsRepository{db: db}
}

// Get returns the store settings document, or ErrNotFound if an admin has
// never saved one.
func (r *MongoSettingsRepository) Get(ctx context.Context) (*models.Settings, error) {
	result := r.db.Collection(settingsCollection).FindOne(ctx, bson.M{"_id": models.SettingsID})
	if err := result.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	var settings models.Settings
	if err := result.Decode(&settings); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	return &settings, nil
}

// Save writes the settings document, creating it if absent.
func (r *MongoSettingsRepository) Save(ctx context.Context, settings *models.Settings) error {
	settings.ID = models.SettingsID
	settings.UpdatedAt = time.Now()
	_, err := r.db.Collection(settingsCollection).ReplaceOne(
		ctx,
		bson.M{"_id": models.SettingsID},
		settings,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}
