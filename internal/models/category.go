package models

import "time"

// Category is a catalog category document. A top-level category has an empty
// ParentID.
type Category struct {
	ID        string    `json:"id" bson:"_id" validate:"omitempty,uuid"`
	Name      string    `json:"name" bson:"name" validate:"required,min=2,max=80"`
	ParentID  string    `json:"parent_id,omitempty" bson:"parent_id,omitempty"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// FlatCategory is a category positioned in the flattened hierarchy: depth-first
// order with its nesting depth and the full "Parent / Child" path.
type FlatCategory struct {
	Category
	Depth int    `json:"depth"`
	Path  string `json:"path"`
}
