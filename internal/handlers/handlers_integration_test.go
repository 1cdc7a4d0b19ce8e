package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/handlers"
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"
	"storefront/internal/storage"
)

type testEnv struct {
	app      *fiber.App
	users    *repositories.MockUserRepository
	products *repositories.MockProductRepository
	orders   *repositories.MockOrderRepository
	identity *services.IdentityService
}

// setupTestApp wires the full route surface over in-memory repositories, the
// same way main.go wires it over the real stores.
func setupTestApp(t *testing.T) *testEnv {
	t.Helper()
	logger := zerolog.Nop()
	local := storage.NewMemoryStore()
	users := repositories.NewMockUserRepository()
	carts := repositories.NewMockCartRepository()
	orders := repositories.NewMockOrderRepository()
	products := repositories.NewMockProductRepository()
	categories := repositories.NewMockCategoryRepository()
	settings := repositories.NewMockSettingsRepository()

	authService := services.NewAuthService(users, "test-secret", logger)
	identityService := services.NewIdentityService(authService, users, local, logger)
	cartService := services.NewCartService(identityService, carts, local, logger)
	migrationService := services.NewMigrationService(authService, identityService, carts, orders, local, nil, logger)
	productService := services.NewProductService(products)
	categoryService := services.NewCategoryService(categories)
	settingsService := services.NewSettingsService(settings, logger)
	orderService := services.NewOrderService(orders, settingsService, cartService, identityService, nil, logger)

	app := fiber.New()
	apiV1 := app.Group("/api/v1")
	handlers.NewSessionHandler(authService, identityService, migrationService, logger).RegisterRoutes(apiV1)
	handlers.NewCartHandler(cartService, productService, logger).RegisterRoutes(apiV1)
	productHandler := handlers.NewProductHandler(productService, logger)
	productHandler.RegisterRoutes(apiV1)
	categoryHandler := handlers.NewCategoryHandler(categoryService, logger)
	categoryHandler.RegisterRoutes(apiV1)
	orderHandler := handlers.NewOrderHandler(orderService, identityService, logger)
	orderHandler.RegisterRoutes(apiV1)
	settingsHandler := handlers.NewSettingsHandler(settingsService, logger)
	settingsHandler.RegisterRoutes(apiV1)

	adminRoutes := apiV1.Group("/admin",
		middleware.AuthRequired(authService),
		middleware.RoleRequired("admin"),
	)
	productHandler.RegisterAdminRoutes(adminRoutes)
	categoryHandler.RegisterAdminRoutes(adminRoutes)
	orderHandler.RegisterAdminRoutes(adminRoutes)
	settingsHandler.RegisterAdminRoutes(adminRoutes)

	return &testEnv{app: app, users: users, products: products, orders: orders, identity: identityService}
}

func doJSON(t *testing.T, app *fiber.App, method, target, token string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]interface{}
	if len(raw) > 0 && json.Valid(raw) && strings.HasPrefix(strings.TrimSpace(string(raw)), "{") {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp, decoded
}

func seedAdmin(t *testing.T, users *repositories.MockUserRepository) {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte("admin-pass-123"), bcrypt.DefaultCost)
	require.NoError(t, err)
	require.NoError(t, users.Create(context.Background(), &models.User{
		ID:       "admin-1",
		Email:    "admin@example.com",
		Name:     "Admin",
		Role:     models.RoleAdmin,
		Password: string(hashed),
	}))
}

func TestGuestToAccountFlow(t *testing.T) {
	env := setupTestApp(t)
	require.NoError(t, env.products.Create(context.Background(), &models.Product{
		ID: "p1", Name: "Mechanical Keyboard", Price: 49.90, Stock: 10,
	}))

	// Fresh visitor: no acting identity yet.
	resp, body := doJSON(t, env.app, http.MethodGet, "/api/v1/session", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "unresolved", body["state"])
	assert.Equal(t, false, body["resolved"])

	// Enable guest mode.
	resp, body = doJSON(t, env.app, http.MethodPost, "/api/v1/session/guest", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	guestID, _ := body["guest_id"].(string)
	require.True(t, strings.HasPrefix(guestID, models.GuestIDPrefix))
	assert.Equal(t, "remote", body["durability"])

	// Add to the guest cart.
	resp, body = doJSON(t, env.app, http.MethodPost, "/api/v1/cart/items", "", map[string]interface{}{
		"product_id": "p1",
		"quantity":   2,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), body["count"])
	assert.InDelta(t, 99.80, body["total"].(float64), 0.001)

	// Register; the guest cart must follow the new account.
	resp, body = doJSON(t, env.app, http.MethodPost, "/api/v1/session/register", "", map[string]interface{}{
		"email":    "shopper@example.com",
		"password": "password123",
		"name":     "Shopper",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	userToken, _ := body["token"].(string)
	require.NotEmpty(t, userToken)

	resp, body = doJSON(t, env.app, http.MethodGet, "/api/v1/cart", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), body["count"])
	cart, ok := body["cart"].(map[string]interface{})
	require.True(t, ok)
	assert.NotEqual(t, guestID, cart["owner_id"])
	assert.Equal(t, guestID, cart["migrated_from"])

	// Checkout the migrated cart.
	resp, body = doJSON(t, env.app, http.MethodPost, "/api/v1/checkout", "", map[string]interface{}{
		"shipping": map[string]interface{}{
			"full_name":   "Shopper One",
			"email":       "shopper@example.com",
			"address":     "1 Main St",
			"city":        "Springfield",
			"postal_code": "12345",
			"country":     "US",
		},
		"payment_method": "card",
		"card_number":    "4242424242424242",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "pending", body["status"])
	assert.Equal(t, "4242", body["payment"].(map[string]interface{})["card_last4"])

	resp, _ = doJSON(t, env.app, http.MethodGet, "/api/v1/orders", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The same email cannot register twice.
	resp, _ = doJSON(t, env.app, http.MethodPost, "/api/v1/session/register", "", map[string]interface{}{
		"email":    "shopper@example.com",
		"password": "password123",
		"name":     "Shopper Again",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestRegisterValidation(t *testing.T) {
	env := setupTestApp(t)

	resp, body := doJSON(t, env.app, http.MethodPost, "/api/v1/session/register", "", map[string]interface{}{
		"email":    "not-an-email",
		"password": "123",
		"name":     "",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Validation failed", body["message"])
}

func TestCartRejectsUnknownProduct(t *testing.T) {
	env := setupTestApp(t)

	resp, _ := doJSON(t, env.app, http.MethodPost, "/api/v1/cart/items", "", map[string]interface{}{
		"product_id": "ghost",
		"quantity":   1,
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCartQuantityEndpoints(t *testing.T) {
	env := setupTestApp(t)
	require.NoError(t, env.products.Create(context.Background(), &models.Product{
		ID: "p1", Name: "Mechanical Keyboard", Price: 49.90, Stock: 10,
	}))

	resp, _ := doJSON(t, env.app, http.MethodPost, "/api/v1/cart/items", "", map[string]interface{}{
		"product_id": "p1",
		"quantity":   1,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, env.app, http.MethodPatch, "/api/v1/cart/items/p1", "", map[string]interface{}{
		"quantity": 5,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(5), body["count"])

	// Updating an absent line is a 404, not a silent no-op.
	resp, _ = doJSON(t, env.app, http.MethodPatch, "/api/v1/cart/items/ghost", "", map[string]interface{}{
		"quantity": 2,
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Zero quantities never pass request validation.
	resp, _ = doJSON(t, env.app, http.MethodPatch, "/api/v1/cart/items/p1", "", map[string]interface{}{
		"quantity": 0,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, env.app, http.MethodDelete, "/api/v1/cart/items/p1", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = doJSON(t, env.app, http.MethodDelete, "/api/v1/cart/items/p1", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAdminSurfaceRequiresAdminRole(t *testing.T) {
	env := setupTestApp(t)
	seedAdmin(t, env.users)

	newProduct := map[string]interface{}{
		"name":  "Ergonomic Chair",
		"price": 299.0,
		"stock": 5,
	}

	// No token.
	resp, _ := doJSON(t, env.app, http.MethodPost, "/api/v1/admin/products", "", newProduct)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Regular user token.
	resp, body := doJSON(t, env.app, http.MethodPost, "/api/v1/session/register", "", map[string]interface{}{
		"email":    "user@example.com",
		"password": "password123",
		"name":     "User",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	userToken := body["token"].(string)
	resp, _ = doJSON(t, env.app, http.MethodPost, "/api/v1/admin/products", userToken, newProduct)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Admin token.
	resp, body = doJSON(t, env.app, http.MethodPost, "/api/v1/session/login", "", map[string]interface{}{
		"email":    "admin@example.com",
		"password": "admin-pass-123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	adminToken := body["token"].(string)

	resp, body = doJSON(t, env.app, http.MethodPost, "/api/v1/admin/products", adminToken, newProduct)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	productID := body["id"].(string)
	require.NotEmpty(t, productID)

	// The product is publicly visible.
	resp, _ = doJSON(t, env.app, http.MethodGet, fmt.Sprintf("/api/v1/products/%s", productID), "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCategoryTreeEndpoint(t *testing.T) {
	env := setupTestApp(t)
	seedAdmin(t, env.users)

	resp, body := doJSON(t, env.app, http.MethodPost, "/api/v1/session/login", "", map[string]interface{}{
		"email":    "admin@example.com",
		"password": "admin-pass-123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	adminToken := body["token"].(string)

	resp, body = doJSON(t, env.app, http.MethodPost, "/api/v1/admin/categories", adminToken, map[string]interface{}{
		"name": "Electronics",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	parentID := body["id"].(string)

	resp, _ = doJSON(t, env.app, http.MethodPost, "/api/v1/admin/categories", adminToken, map[string]interface{}{
		"name":      "Phones",
		"parent_id": parentID,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// A dangling parent is rejected.
	resp, _ = doJSON(t, env.app, http.MethodPost, "/api/v1/admin/categories", adminToken, map[string]interface{}{
		"name":      "Orphans",
		"parent_id": "missing",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/categories/tree", nil)
	treeResp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, treeResp.StatusCode)
	raw, err := io.ReadAll(treeResp.Body)
	require.NoError(t, err)

	var tree []models.FlatCategory
	require.NoError(t, json.Unmarshal(raw, &tree))
	require.Len(t, tree, 2)
	assert.Equal(t, "Electronics", tree[0].Name)
	assert.Equal(t, 0, tree[0].Depth)
	assert.Equal(t, "Phones", tree[1].Name)
	assert.Equal(t, "Electronics / Phones", tree[1].Path)
}

func TestOrderOwnershipIsEnforced(t *testing.T) {
	env := setupTestApp(t)

	// Seed an order owned by someone else.
	require.NoError(t, env.orders.Create(context.Background(), &models.Order{
		ID:     "foreign-order",
		UserID: "someone-else",
		Status: models.OrderStatusPending,
	}))

	// The current (guest) identity cannot read it.
	doJSON(t, env.app, http.MethodPost, "/api/v1/session/guest", "", nil)
	resp, _ := doJSON(t, env.app, http.MethodGet, "/api/v1/orders/foreign-order", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
