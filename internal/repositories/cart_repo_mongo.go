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

const cartCollection = "carts"

// MongoCartRepository is a MongoDB implementation of CartRepository.
type MongoCartRepository struct {
	db *mongo.Database
}

// NewMongoCartRepository creates a new MongoCartRepository.
func NewMongoCartRepository(db *mongo.Database) *MongoCartRepository {
	return &MongoCartRepository{db: db}
}

// Get returns the cart owned by ownerID, or ErrNotFound.
func (r *MongoCartRepository) Get(ctx context.Context, ownerID string) (*models.Cart, error) {
	result := r.db.Collection(cartCollection).FindOne(ctx, bson.M{"_id": ownerID})
	if err := result.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get cart for %s: %w", ownerID, err)
	}

	var cart models.Cart
	if err := result.Decode(&cart); err != nil {
		return nil, fmt.Errorf("failed to decode cart for %s: %w", ownerID, err)
	}
	return &cart, nil
}

// Upsert writes the cart document, creating it if absent.
func (r *MongoCartRepository) Upsert(ctx context.Context, cart *models.Cart) error {
	cart.UpdatedAt = time.Now()
	_, err := r.db.Collection(cartCollection).ReplaceOne(
		ctx,
		bson.M{"_id": cart.OwnerID},
		cart,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert cart for %s: %w", cart.OwnerID, err)
	}
	return nil
}

// Delete removes the cart owned by ownerID. Deleting an absent cart is not an
// error.
func (r *MongoCartRepository) Delete(ctx context.Context, ownerID string) error {
	_, err := r.db.Collection(cartCollection).DeleteOne(ctx, bson.M{"_id": ownerID})
	if err != nil {
		return fmt.Errorf("failed to delete cart for %s: %w", ownerID, err)
	}
	return nil
}
