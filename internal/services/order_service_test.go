package services_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"
	"storefront/internal/storage"
)

type orderFixture struct {
	identity *services.IdentityService
	cart     *services.CartService
	orders   *repositories.MockOrderRepository
	service  *services.OrderService
	events   *RecordingPublisher
}

func newOrderFixture(t *testing.T, taxRate float64) *orderFixture {
	t.Helper()
	local := storage.NewMemoryStore()
	users := repositories.NewMockUserRepository()
	identity := services.NewIdentityService(nil, users, local, zerolog.Nop())
	cart := services.NewCartService(identity, repositories.NewMockCartRepository(), local, zerolog.Nop())

	settingsRepo := repositories.NewMockSettingsRepository()
	settings := services.NewSettingsService(settingsRepo, zerolog.Nop())
	require.NoError(t, settings.Update(context.Background(), &models.Settings{
		StoreName: "Test Store",
		Currency:  "USD",
		TaxRate:   taxRate,
	}))

	orders := repositories.NewMockOrderRepository()
	events := &RecordingPublisher{}
	service := services.NewOrderService(orders, settings, cart, identity, events, zerolog.Nop())
	return &orderFixture{identity: identity, cart: cart, orders: orders, service: service, events: events}
}

func checkoutRequest() services.CheckoutRequest {
	return services.CheckoutRequest{
		Shipping: models.ShippingDetails{
			FullName:   "Sam Carter",
			Email:      "sam@example.com",
			Address:    "1 Main St",
			City:       "Springfield",
			PostalCode: "12345",
			Country:    "US",
		},
		PaymentMethod: "card",
		CardNumber:    "4242424242424242",
	}
}

func TestCheckoutSnapshotsCartAndAppliesTax(t *testing.T) {
	f := newOrderFixture(t, 0.1)
	ctx := context.Background()

	guestID, _ := f.identity.EnableGuestMode(ctx)
	_, err := f.cart.AddItem(ctx, testProduct("p1", "Keyboard", 19.99), 2)
	require.NoError(t, err)

	order, err := f.service.Checkout(ctx, checkoutRequest())
	require.NoError(t, err)
	require.NotNil(t, order)

	assert.Equal(t, guestID, order.UserID)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "Keyboard", order.Items[0].Name)
	assert.Equal(t, 2, order.Items[0].Quantity)
	assert.InDelta(t, 39.98, order.Subtotal, 0.001)
	assert.InDelta(t, 4.00, order.Tax, 0.001)
	assert.InDelta(t, 43.98, order.Total, 0.001)
	assert.Equal(t, "card", order.Payment.Method)
	assert.Equal(t, "4242", order.Payment.CardLast4, "only the last four digits survive")

	// The order is recorded and announced, and the cart is emptied.
	mine, err := f.service.ListMine(ctx)
	require.NoError(t, err)
	require.Len(t, mine, 1)

	events := f.events.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "order.created", events[0].RoutingKey)

	snapshot, err := f.cart.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, snapshot.Items)
}

func TestCheckoutRejectsEmptyCart(t *testing.T) {
	f := newOrderFixture(t, 0)
	ctx := context.Background()

	f.identity.EnableGuestMode(ctx)
	_, err := f.service.Checkout(ctx, checkoutRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cart is empty")
}

func TestCheckoutRequiresActingIdentity(t *testing.T) {
	f := newOrderFixture(t, 0)

	// No session and guest mode never enabled.
	_, err := f.service.Checkout(context.Background(), checkoutRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no acting identity")
}

func TestListMineWithoutIdentityIsEmpty(t *testing.T) {
	f := newOrderFixture(t, 0)

	orders, err := f.service.ListMine(context.Background())
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestUpdateOrderStatus(t *testing.T) {
	f := newOrderFixture(t, 0)
	ctx := context.Background()

	require.NoError(t, f.orders.Create(ctx, &models.Order{ID: "order-1", UserID: "u1", Status: models.OrderStatusPending}))

	require.NoError(t, f.service.UpdateOrderStatus(ctx, "order-1", models.OrderStatusShipped))
	order, err := f.service.GetOrderByID(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusShipped, order.Status)

	err = f.service.UpdateOrderStatus(ctx, "order-1", "teleported")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid order status")
}

func TestOrdersSurviveCatalogChanges(t *testing.T) {
	f := newOrderFixture(t, 0)
	ctx := context.Background()

	f.identity.EnableGuestMode(ctx)
	product := testProduct("p1", "Keyboard", 50)
	_, err := f.cart.AddItem(ctx, product, 1)
	require.NoError(t, err)

	order, err := f.service.Checkout(ctx, checkoutRequest())
	require.NoError(t, err)

	// Mutating the product afterwards must not touch the recorded snapshot.
	product.Name = "Renamed"
	product.Price = 999

	stored, err := f.service.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "Keyboard", stored.Items[0].Name)
	assert.InDelta(t, 50, stored.Items[0].UnitPrice, 0.001)
}
