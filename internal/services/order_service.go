package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"storefront/internal/models"
	"storefront/internal/repositories"
)

// CheckoutRequest carries the customer-entered checkout form. Only the last
// four digits of the card number survive into the order record.
type CheckoutRequest struct {
	Shipping      models.ShippingDetails `json:"shipping"`
	PaymentMethod string                 `json:"payment_method" validate:"required,oneof=card cod"`
	CardNumber    string                 `json:"card_number" validate:"omitempty,min=12,max=19"`
}

// OrderService records orders at checkout and serves order history and admin
// status updates.
type OrderService struct {
	orders   repositories.OrderRepository
	settings *SettingsService
	cart     *CartService
	identity *IdentityService
	events   EventPublisher
	logger   zerolog.Logger
}

// NewOrderService creates a new OrderService. events may be nil.
func NewOrderService(
	orders repositories.OrderRepository,
	settings *SettingsService,
	cart *CartService,
	identity *IdentityService,
	events EventPublisher,
	logger zerolog.Logger,
) *OrderService {
	return &OrderService{
		orders:   orders,
		settings: settings,
		cart:     cart,
		identity: identity,
		events:   events,
		logger:   logger,
	}
}

// Checkout records an order for the effective identity from the current cart
// contents, then clears the cart. The line items, prices and totals are
// snapshots; later catalog changes never touch a placed order.
func (s *OrderService) Checkout(ctx context.Context, req CheckoutRequest) (*models.Order, error) {
	ownerID, ok := s.identity.EffectiveUserID()
	if !ok {
		return nil, fmt.Errorf("no acting identity for checkout")
	}

	cart, err := s.cart.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, fmt.Errorf("cart is empty")
	}

	items := make([]models.OrderItem, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, models.OrderItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		})
	}

	settings := s.settings.Get(ctx)
	subtotal := round2(cart.Total())
	tax := round2(subtotal * settings.TaxRate)

	now := time.Now()
	order := &models.Order{
		ID:       uuid.New().String(),
		UserID:   ownerID,
		Items:    items,
		Shipping: req.Shipping,
		Payment: models.PaymentSummary{
			Method:    req.PaymentMethod,
			CardLast4: lastFour(req.CardNumber),
		},
		Subtotal:  subtotal,
		Tax:       tax,
		Total:     round2(subtotal + tax),
		Status:    models.OrderStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to record order: %w", err)
	}

	s.publishOrderCreated(order)

	if _, err := s.cart.Clear(ctx); err != nil {
		s.logger.Warn().Err(err).Str("order_id", order.ID).Msg("failed to clear cart after checkout")
	}

	return order, nil
}

// ListMine returns the order history of the effective identity.
func (s *OrderService) ListMine(ctx context.Context) ([]models.Order, error) {
	ownerID, ok := s.identity.EffectiveUserID()
	if !ok {
		return []models.Order{}, nil
	}
	return s.orders.ListByOwner(ctx, ownerID)
}

// GetOrderByID retrieves a single order by its ID.
func (s *OrderService) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	return s.orders.GetByID(ctx, id)
}

// ListAll returns every order, for the admin console.
func (s *OrderService) ListAll(ctx context.Context) ([]models.Order, error) {
	return s.orders.ListAll(ctx)
}

// UpdateOrderStatus updates the status of an existing order.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, id, status string) error {
	if !models.ValidOrderStatuses[status] {
		return fmt.Errorf("invalid order status: %s", status)
	}
	if err := s.orders.UpdateStatus(ctx, id, status); err != nil {
		return fmt.Errorf("failed to update order status for order %s: %w", id, err)
	}
	return nil
}

func (s *OrderService) publishOrderCreated(order *models.Order) {
	if s.events == nil {
		return
	}

	body, err := json.Marshal(map[string]interface{}{
		"order_id": order.ID,
		"user_id":  order.UserID,
		"status":   order.Status,
		"total":    order.Total,
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to encode order event")
		return
	}
	if err := s.events.Publish("storefront", "order.created", body); err != nil {
		s.logger.Warn().Err(err).Str("order_id", order.ID).Msg("failed to publish order event")
	}
}

func lastFour(cardNumber string) string {
	if len(cardNumber) <= 4 {
		return cardNumber
	}
	return cardNumber[len(cardNumber)-4:]
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
