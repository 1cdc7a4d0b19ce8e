package models

import (
	"strings"
	"time"
)

// Product represents a product document in the catalog.
type Product struct {
	ID          string    `json:"id" bson:"_id" validate:"omitempty,uuid"`
	Name        string    `json:"name" bson:"name" validate:"required,min=3,max=120"`
	Description string    `json:"description" bson:"description" validate:"omitempty,max=500"`
	Price       float64   `json:"price" bson:"price" validate:"required,gt=0"`
	Stock       int       `json:"stock" bson:"stock" validate:"gte=0"`
	CategoryID  string    `json:"category_id" bson:"category_id"`
	Image       string    `json:"image" bson:"image"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

// ProductFilter narrows a catalog listing. Zero values mean "not filtered";
// prices at or below zero are treated as unset.
type ProductFilter struct {
	CategoryID string
	MinPrice   float64
	MaxPrice   float64
	Search     string
}

// Matches reports whether a product passes the filter. Used by the in-memory
// repository; the MongoDB repository translates the same rules to a query.
func (f ProductFilter) Matches(p Product) bool {
	if f.CategoryID != "" && p.CategoryID != f.CategoryID {
		return false
	}
	if f.MinPrice > 0 && p.Price < f.MinPrice {
		return false
	}
	if f.MaxPrice > 0 && p.Price > f.MaxPrice {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Search)) {
		return false
	}
	return true
}
