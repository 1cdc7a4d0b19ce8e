package handlers

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"storefront/internal/services"
)

// SessionHandler exposes the identity surface: current session info, guest
// mode, registration (guest conversion), login and logout.
type SessionHandler struct {
	auth      *services.AuthService
	identity  *services.IdentityService
	migration *services.MigrationService
	validate  *validator.Validate
	logger    zerolog.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(auth *services.AuthService, identity *services.IdentityService, migration *services.MigrationService, logger zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		auth:      auth,
		identity:  identity,
		migration: migration,
		validate:  validator.New(),
		logger:    logger,
	}
}

// RegisterRoutes registers the session routes with the Fiber app.
func (h *SessionHandler) RegisterRoutes(router fiber.Router) {
	sessionRoutes := router.Group("/session")
	sessionRoutes.Get("/", h.HandleGetSession)
	sessionRoutes.Post("/guest", h.HandleEnableGuestMode)
	sessionRoutes.Post("/register", h.HandleRegister)
	sessionRoutes.Post("/login", h.HandleLogin)
	sessionRoutes.Post("/logout", h.HandleLogout)
}

// HandleGetSession reports the effective identity.
func (h *SessionHandler) HandleGetSession(c *fiber.Ctx) error {
	userID, ok := h.identity.EffectiveUserID()
	return c.JSON(fiber.Map{
		"state":             h.identity.State().String(),
		"effective_user_id": userID,
		"resolved":          ok,
		"is_guest":          h.identity.IsGuestMode(),
		"role":              h.identity.CurrentRole(),
	})
}

// HandleEnableGuestMode enables guest mode. Idempotent; never fails, the
// durability field tells callers whether the guest profile reached the remote
// store.
func (h *SessionHandler) HandleEnableGuestMode(c *fiber.Ctx) error {
	guestID, durability := h.identity.EnableGuestMode(c.Context())
	return c.JSON(fiber.Map{
		"guest_id":   guestID,
		"durability": durability.String(),
	})
}

// RegisterRequest represents the request body for registration.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name" validate:"required,min=1,max=100"`
}

// HandleRegister converts the current guest (if any) into a registered
// account. Registration errors are surfaced; migration hiccups are not.
func (h *SessionHandler) HandleRegister(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return validationErrorResponse(c, err)
	}

	user, token, err := h.migration.ConvertGuestToUser(c.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		h.logger.Warn().Err(err).Str("email", req.Email).Msg("registration failed")
		if errors.Is(err, services.ErrEmailTaken) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"message": "Registration failed",
				"error":   err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not register user",
			"error":   err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully",
		"user":    user,
		"token":   token,
	})
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// HandleLogin signs a user in and issues a session token.
func (h *SessionHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return validationErrorResponse(c, err)
	}

	user, token, err := h.auth.SignIn(c.Context(), req.Email, req.Password)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Authentication failed",
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "Login successful",
		"user":    user,
		"token":   token,
	})
}

// HandleLogout ends the session. The identity resolver drops back into guest
// mode, so the caller is never left without an acting identity.
func (h *SessionHandler) HandleLogout(c *fiber.Ctx) error {
	h.auth.SignOut()
	return c.JSON(fiber.Map{
		"message":  "Logged out",
		"is_guest": h.identity.IsGuestMode(),
	})
}

// validationErrorResponse renders validator errors field by field.
func validationErrorResponse(c *fiber.Ctx, err error) error {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"error":   err.Error(),
		})
	}
	errorMessages := make(map[string]string)
	for _, e := range validationErrors {
		errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Validation failed",
		"errors":  errorMessages,
	})
}
