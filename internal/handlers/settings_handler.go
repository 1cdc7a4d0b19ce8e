package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"storefront/internal/models"
	"storefront/internal/services"
)

// SettingsHandler serves the store settings publicly and lets admins edit
// them.
type SettingsHandler struct {
	service  *services.SettingsService
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(service *services.SettingsService, logger zerolog.Logger) *SettingsHandler {
	return &SettingsHandler{
		service:  service,
		validate: validator.New(),
		logger:   logger,
	}
}

// RegisterRoutes registers the public settings route.
func (h *SettingsHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/settings", h.HandleGetSettings)
}

// RegisterAdminRoutes registers the settings update route.
func (h *SettingsHandler) RegisterAdminRoutes(router fiber.Router) {
	router.Put("/settings", h.HandleUpdateSettings)
}

// HandleGetSettings returns the store settings (defaults when none saved).
func (h *SettingsHandler) HandleGetSettings(c *fiber.Ctx) error {
	return c.JSON(h.service.Get(c.Context()))
}

// HandleUpdateSettings saves the store settings.
func (h *SettingsHandler) HandleUpdateSettings(c *fiber.Ctx) error {
	var settings models.Settings
	if err := c.BodyParser(&settings); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := h.validate.Struct(settings); err != nil {
		return validationErrorResponse(c, err)
	}

	if err := h.service.Update(c.Context(), &settings); err != nil {
		h.logger.Error().Err(err).Msg("settings update failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not update settings",
			"error":   err.Error(),
		})
	}
	return c.JSON(settings)
}
