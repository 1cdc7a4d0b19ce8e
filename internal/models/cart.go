package models

import "time"

// CartItem is a single line in a cart. Quantity is always >= 1; a product id
// appears at most once per cart.
type CartItem struct {
	ProductID string  `json:"product_id" bson:"product_id"`
	Name      string  `json:"name" bson:"name"`
	UnitPrice float64 `json:"unit_price" bson:"unit_price"`
	Quantity  int     `json:"quantity" bson:"quantity"`
	Image     string  `json:"image" bson:"image"`
}

// Cart is the cart document, keyed by the id of the identity that owns it.
// MigratedFrom/MigratedAt record provenance when a guest cart is carried over
// to a freshly registered account.
type Cart struct {
	OwnerID      string     `json:"owner_id" bson:"_id"`
	Items        []CartItem `json:"items" bson:"items"`
	IsGuestCart  bool       `json:"is_guest_cart" bson:"is_guest_cart"`
	MigratedFrom string     `json:"migrated_from,omitempty" bson:"migrated_from,omitempty"`
	MigratedAt   *time.Time `json:"migrated_at,omitempty" bson:"migrated_at,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at" bson:"updated_at"`
}

// NewCart returns an empty cart owned by the given identity.
func NewCart(ownerID string) *Cart {
	return &Cart{
		OwnerID:     ownerID,
		Items:       []CartItem{},
		IsGuestCart: IsGuestID(ownerID),
		UpdatedAt:   time.Now(),
	}
}

// Add merges an item into the cart: an existing product id has its quantity
// incremented and its image reference refreshed from the incoming data, a new
// product id is appended. Quantities below 1 are ignored.
func (c *Cart) Add(item CartItem) {
	if item.Quantity < 1 {
		return
	}
	for i := range c.Items {
		if c.Items[i].ProductID == item.ProductID {
			c.Items[i].Quantity += item.Quantity
			if item.Image != "" {
				c.Items[i].Image = item.Image
			}
			return
		}
	}
	c.Items = append(c.Items, item)
}

// Remove drops the line for the given product id, if present.
func (c *Cart) Remove(productID string) {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return
		}
	}
}

// SetQuantity replaces the quantity of an existing line. Quantities below 1
// are a no-op; removal is a separate explicit operation.
func (c *Cart) SetQuantity(productID string, quantity int) bool {
	if quantity < 1 {
		return false
	}
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity = quantity
			return true
		}
	}
	return false
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.Items = []CartItem{}
}

// Total is the derived cart total: sum of unit price times quantity.
func (c *Cart) Total() float64 {
	var total float64
	for _, item := range c.Items {
		total += item.UnitPrice * float64(item.Quantity)
	}
	return total
}

// Count is the derived item count: sum of quantities.
func (c *Cart) Count() int {
	var count int
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

// Clone returns a deep copy so callers can hand out snapshots without
// exposing internal slices.
func (c *Cart) Clone() *Cart {
	clone := *c
	clone.Items = make([]CartItem, len(c.Items))
	copy(clone.Items, c.Items)
	return &clone
}
