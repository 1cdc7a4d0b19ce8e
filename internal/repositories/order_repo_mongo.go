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

const orderCollection = "orders"

// MongoOrderRepository is a MongoDB implementation of OrderRepository.
type MongoOrderRepository struct {
	db *mongo.Database
}

// NewMongoOrderRepository creates a new MongoOrderRepository.
func NewMongoOrderRepository(db *mongo.Database) *MongoOrderRepository {
	return &MongoOrderRepository{db: db}
}

// Create inserts a new order document.
func (r *MongoOrderRepository) Create(ctx context.Context, order *models.Order) error {
	if _, err := r.db.Collection(orderCollection).InsertOne(ctx, order); err != nil {
		return fmt.Errorf("failed to create order %s: %w", order.ID, err)
	}
	return nil
}

// GetByID returns the order with the given id, or ErrNotFound.
func (r *MongoOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	result := r.db.Collection(orderCollection).FindOne(ctx, bson.M{"_id": id})
	if err := result.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get order %s: %w", id, err)
	}

	var order models.Order
	if err := result.Decode(&order); err != nil {
		return nil, fmt.Errorf("failed to decode order %s: %w", id, err)
	}
	return &order, nil
}

// ListByOwner returns the orders owned by userID, newest first.
func (r *MongoOrderRepository) ListByOwner(ctx context.Context, userID string) ([]models.Order, error) {
	return r.list(ctx, bson.M{"user_id": userID})
}

// ListAll returns every order, newest first.
func (r *MongoOrderRepository) ListAll(ctx context.Context) ([]models.Order, error) {
	return r.list(ctx, bson.M{})
}

// UpdateStatus sets the status of an existing order.
func (r *MongoOrderRepository) UpdateStatus(ctx context.Context, id, status string) error {
	result, err := r.db.Collection(orderCollection).UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"status": status, "updated_at": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("failed to update status for order %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ReassignOwner moves every order owned by fromID to toID, stamping the
// provenance fields on each.
func (r *MongoOrderRepository) ReassignOwner(ctx context.Context, fromID, toID string, migratedAt time.Time) (int64, error) {
	result, err := r.db.Collection(orderCollection).UpdateMany(
		ctx,
		bson.M{"user_id": fromID},
		bson.M{"$set": bson.M{
			"user_id":       toID,
			"migrated_from": fromID,
			"migrated_at":   migratedAt,
			"updated_at":    time.Now(),
		}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to reassign orders from %s to %s: %w", fromID, toID, err)
	}
	return result.ModifiedCount, nil
}

func (r *MongoOrderRepository) list(ctx context.Context, filter bson.M) ([]models.Order, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.db.Collection(orderCollection).Find(ctx, filter, findOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer cursor.Close(ctx)

	orders := []models.Order{}
	for cursor.Next(ctx) {
		var order models.Order
		if err := cursor.Decode(&order); err != nil {
			return nil, fmt.Errorf("failed to decode order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate orders: %w", err)
	}
	return orders, nil
}
