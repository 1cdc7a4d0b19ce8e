package models

import "time"

// SettingsID is the fixed key of the single store-settings document.
const SettingsID = "store"

// Settings is the store-wide configuration document managed from the admin
// panel.
type Settings struct {
	ID           string    `json:"-" bson:"_id"`
	StoreName    string    `json:"store_name" bson:"store_name" validate:"required,min=2,max=100"`
	Currency     string    `json:"currency" bson:"currency" validate:"required,len=3"`
	SupportEmail string    `json:"support_email" bson:"support_email" validate:"omitempty,email"`
	TaxRate      float64   `json:"tax_rate" bson:"tax_rate" validate:"gte=0,lte=1"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
}

// DefaultSettings returns the settings used until an admin saves their own.
func DefaultSettings() *Settings {
	return &Settings{
		ID:        SettingsID,
		StoreName: "Storefront",
		Currency:  "USD",
		TaxRate:   0,
		UpdatedAt: time.Now(),
	}
}
