package models

import "time"

// Order statuses. Orders start as pending and move forward (or get cancelled);
// they are never deleted.
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

// ValidOrderStatuses enumerates the accepted status values.
var ValidOrderStatuses = map[string]bool{
	OrderStatusPending:    true,
	OrderStatusProcessing: true,
	OrderStatusShipped:    true,
	OrderStatusDelivered:  true,
	OrderStatusCancelled:  true,
}

// OrderItem is a line-item snapshot taken at checkout time; later price or
// name changes on the product never touch it.
type OrderItem struct {
	ProductID string  `json:"product_id" bson:"product_id"`
	Name      string  `json:"name" bson:"name"`
	UnitPrice float64 `json:"unit_price" bson:"unit_price"`
	Quantity  int     `json:"quantity" bson:"quantity"`
}

// ShippingDetails are the customer-entered shipping fields.
type ShippingDetails struct {
	FullName   string `json:"full_name" bson:"full_name" validate:"required,min=2,max=100"`
	Email      string `json:"email" bson:"email" validate:"required,email"`
	Address    string `json:"address" bson:"address" validate:"required,max=200"`
	City       string `json:"city" bson:"city" validate:"required,max=80"`
	PostalCode string `json:"postal_code" bson:"postal_code" validate:"required,max=20"`
	Country    string `json:"country" bson:"country" validate:"required,max=80"`
	Phone      string `json:"phone" bson:"phone" validate:"omitempty,max=30"`
}

// PaymentSummary keeps only the last four digits of the card; the full number
// is never stored.
type PaymentSummary struct {
	Method    string `json:"method" bson:"method"`
	CardLast4 string `json:"card_last4" bson:"card_last4"`
}

// Order is an order document. Immutable once placed, with two exceptions:
// status updates and the reassignment of the owning identity when a guest
// converts to an account (recorded via the provenance fields).
type Order struct {
	ID           string          `json:"id" bson:"_id"`
	UserID       string          `json:"user_id" bson:"user_id"`
	Items        []OrderItem     `json:"items" bson:"items"`
	Shipping     ShippingDetails `json:"shipping" bson:"shipping"`
	Payment      PaymentSummary  `json:"payment" bson:"payment"`
	Subtotal     float64         `json:"subtotal" bson:"subtotal"`
	Tax          float64         `json:"tax" bson:"tax"`
	Total        float64         `json:"total" bson:"total"`
	Status       string          `json:"status" bson:"status"`
	MigratedFrom string          `json:"migrated_from,omitempty" bson:"migrated_from,omitempty"`
	MigratedAt   *time.Time      `json:"migrated_at,omitempty" bson:"migrated_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" bson:"updated_at"`
}
