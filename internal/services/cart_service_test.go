package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"
	"storefront/internal/storage"
)

func newCartFixture(t *testing.T) (*services.CartService, *services.IdentityService, *repositories.MockCartRepository, *storage.MemoryStore) {
	t.Helper()
	local := storage.NewMemoryStore()
	users := repositories.NewMockUserRepository()
	identity := services.NewIdentityService(nil, users, local, zerolog.Nop())
	carts := repositories.NewMockCartRepository()
	cart := services.NewCartService(identity, carts, local, zerolog.Nop())
	return cart, identity, carts, local
}

func testProduct(id, name string, price float64) *models.Product {
	return &models.Product{ID: id, Name: name, Price: price, Stock: 10}
}

func TestAddItemMergesQuantities(t *testing.T) {
	cart, _, _, _ := newCartFixture(t)
	ctx := context.Background()
	keyboard := testProduct("p1", "Keyboard", 49.90)

	_, err := cart.AddItem(ctx, keyboard, 2)
	require.NoError(t, err)
	_, err = cart.AddItem(ctx, keyboard, 3)
	require.NoError(t, err)

	snapshot, err := cart.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snapshot.Items, 1)
	assert.Equal(t, 5, snapshot.Items[0].Quantity)
	assert.Equal(t, 5, snapshot.Count())
	assert.InDelta(t, 249.50, snapshot.Total(), 0.001)
}

func TestAddItemRefreshesImageOnMerge(t *testing.T) {
	cart, _, _, _ := newCartFixture(t)
	ctx := context.Background()

	first := testProduct("p1", "Keyboard", 49.90)
	first.Image = "old.jpg"
	_, err := cart.AddItem(ctx, first, 1)
	require.NoError(t, err)

	second := testProduct("p1", "Keyboard", 49.90)
	second.Image = "new.jpg"
	_, err = cart.AddItem(ctx, second, 1)
	require.NoError(t, err)

	snapshot, err := cart.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snapshot.Items, 1)
	assert.Equal(t, "new.jpg", snapshot.Items[0].Image)
}

func TestQuantityFloorIsNoOp(t *testing.T) {
	cart, _, _, _ := newCartFixture(t)
	ctx := context.Background()
	mouse := testProduct("p1", "Mouse", 19.99)

	durability, err := cart.AddItem(ctx, mouse, 0)
	require.NoError(t, err)
	assert.Equal(t, services.DurabilityNone, durability)

	_, err = cart.AddItem(ctx, mouse, 2)
	require.NoError(t, err)

	durability, err = cart.SetQuantity(ctx, "p1", 0)
	require.NoError(t, err)
	assert.Equal(t, services.DurabilityNone, durability)

	snapshot, err := cart.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snapshot.Items, 1)
	assert.Equal(t, 2, snapshot.Items[0].Quantity, "rejected quantity must leave the line untouched")
}

func TestSetQuantityUnknownProduct(t *testing.T) {
	cart, _, _, _ := newCartFixture(t)

	durability, err := cart.SetQuantity(context.Background(), "missing", 3)
	require.NoError(t, err)
	assert.Equal(t, services.DurabilityNone, durability)
}

func TestRemoveItemUnknownProduct(t *testing.T) {
	cart, _, _, _ := newCartFixture(t)

	durability, err := cart.RemoveItem(context.Background(), "missing")
	require.NoError(t, err)
	assert.Equal(t, services.DurabilityNone, durability)
}

func TestIdentitySwitchIsolatesCart(t *testing.T) {
	local := storage.NewMemoryStore()
	users := repositories.NewMockUserRepository()
	auth := services.NewAuthService(users, "test-secret", zerolog.Nop())
	identity := services.NewIdentityService(auth, users, local, zerolog.Nop())
	carts := repositories.NewMockCartRepository()
	cart := services.NewCartService(identity, carts, local, zerolog.Nop())
	ctx := context.Background()

	guestID, _ := identity.EnableGuestMode(ctx)
	_, err := cart.AddItem(ctx, testProduct("p1", "Keyboard", 49.90), 2)
	require.NoError(t, err)

	user, _, err := auth.Register(ctx, "iso@example.com", "password123", "Iso")
	require.NoError(t, err)

	// The new identity starts from its own (empty) cart. The guest's items
	// must never be visible under the account.
	snapshot, err := cart.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, user.ID, snapshot.OwnerID)
	assert.Empty(t, snapshot.Items)

	// The guest cart itself is untouched by the switch.
	guestCart, err := carts.Get(ctx, guestID)
	require.NoError(t, err)
	assert.Len(t, guestCart.Items, 1)
}

func TestRemoteWriteFailureKeepsLocalMirror(t *testing.T) {
	local := storage.NewMemoryStore()
	users := repositories.NewMockUserRepository()
	identity := services.NewIdentityService(nil, users, local, zerolog.Nop())
	carts := new(MockCartRepo)
	carts.On("Get", mock.Anything, mock.Anything).Return(nil, repositories.ErrNotFound)
	carts.On("Upsert", mock.Anything, mock.Anything).Return(errors.New("permission denied"))
	cart := services.NewCartService(identity, carts, local, zerolog.Nop())
	ctx := context.Background()

	guestID, _ := identity.EnableGuestMode(ctx)
	durability, err := cart.AddItem(ctx, testProduct("p1", "Keyboard", 49.90), 2)
	require.NoError(t, err)
	assert.Equal(t, services.DurabilityLocal, durability)

	raw, err := local.Get("cart_" + guestID)
	require.NoError(t, err)
	var mirror models.Cart
	require.NoError(t, json.Unmarshal([]byte(raw), &mirror))
	require.Len(t, mirror.Items, 1)
	assert.Equal(t, 2, mirror.Items[0].Quantity)
}

func TestLoadPrefersRemoteOverMirror(t *testing.T) {
	cart, identity, carts, local := newCartFixture(t)
	ctx := context.Background()
	guestID, _ := identity.EnableGuestMode(ctx)

	remote := models.NewCart(guestID)
	remote.Add(models.CartItem{ProductID: "remote-p", Name: "Remote", UnitPrice: 10, Quantity: 1})
	require.NoError(t, carts.Upsert(ctx, remote))

	stale := models.NewCart(guestID)
	stale.Add(models.CartItem{ProductID: "stale-p", Name: "Stale", UnitPrice: 5, Quantity: 9})
	payload, err := json.Marshal(stale)
	require.NoError(t, err)
	require.NoError(t, local.Set("cart_"+guestID, string(payload)))

	snapshot, err := cart.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snapshot.Items, 1)
	assert.Equal(t, "remote-p", snapshot.Items[0].ProductID)
}

func TestMirrorIsAdoptedAndWrittenBack(t *testing.T) {
	cart, identity, carts, local := newCartFixture(t)
	ctx := context.Background()
	guestID, _ := identity.EnableGuestMode(ctx)

	mirror := models.NewCart(guestID)
	mirror.Add(models.CartItem{ProductID: "p1", Name: "Keyboard", UnitPrice: 49.90, Quantity: 2})
	payload, err := json.Marshal(mirror)
	require.NoError(t, err)
	require.NoError(t, local.Set("cart_"+guestID, string(payload)))

	snapshot, err := cart.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snapshot.Items, 1)
	assert.Equal(t, "p1", snapshot.Items[0].ProductID)

	// Reading the mirror pushes it to the remote store.
	adopted, err := carts.Get(ctx, guestID)
	require.NoError(t, err)
	assert.Len(t, adopted.Items, 1)
}

func TestCorruptMirrorFallsBackToEmptyCart(t *testing.T) {
	cart, identity, _, local := newCartFixture(t)
	ctx := context.Background()
	guestID, _ := identity.EnableGuestMode(ctx)

	require.NoError(t, local.Set("cart_"+guestID, "{not json"))

	snapshot, err := cart.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, snapshot.Items)
	assert.Equal(t, guestID, snapshot.OwnerID)
}

func TestSnapshotLazilyEnablesGuestMode(t *testing.T) {
	cart, identity, _, _ := newCartFixture(t)

	assert.Equal(t, services.StateUnresolved, identity.State())

	snapshot, err := cart.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, services.StateGuest, identity.State())
	assert.Equal(t, identity.GuestID(), snapshot.OwnerID)
	assert.True(t, snapshot.IsGuestCart)
}
