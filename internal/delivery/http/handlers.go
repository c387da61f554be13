package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/hydromap/backend/internal/domain"
	"github.com/hydromap/backend/internal/logging"
	"github.com/hydromap/backend/internal/service"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// Handler contains all HTTP handlers
type Handler struct {
	assets *service.AssetService
}

// NewHandler creates a new handler
func NewHandler(assets *service.AssetService) *Handler {
	return &Handler{assets: assets}
}

// HealthCheck returns service health status, including the backing store
func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	status, store := "ok", "ok"
	if err := h.assets.Health(c.UserContext()); err != nil {
		logging.Warn().Err(err).Msg("store health check failed")
		status, store = "degraded", err.Error()
	}

	return c.JSON(fiber.Map{
		"status":  status,
		"service": "hydromap-backend",
		"version": Version,
		"store":   store,
	})
}

// ListExistingPlants returns the map projection of existing hydrogen plants
func (h *Handler) ListExistingPlants(c *fiber.Ctx) error {
	rows, err := h.assets.ListPlants(c.UserContext())
	if err != nil {
		return fetchError(fiber.StatusInternalServerError, err)
	}
	return c.JSON(rows)
}

// GetExistingPlant returns one plant with every column
func (h *Handler) GetExistingPlant(c *fiber.Ctx) error {
	row, err := h.assets.GetPlant(c.UserContext(), c.Params("id"))
	if errors.Is(err, domain.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "Data not found")
	}
	if err != nil {
		return fetchError(fiber.StatusInternalServerError, err)
	}
	return c.JSON(row)
}

// ListRenewables returns the map projection of renewable stations
func (h *Handler) ListRenewables(c *fiber.Ctx) error {
	rows, err := h.assets.ListRenewables(c.UserContext())
	if err != nil {
		return fetchError(fiber.StatusInternalServerError, err)
	}
	return c.JSON(rows)
}

// ListSiteRecommendations returns the stored pipeline output. Store failures
// answer 400, which existing clients rely on.
func (h *Handler) ListSiteRecommendations(c *fiber.Ctx) error {
	rows, err := h.assets.ListSiteRecommendations(c.UserContext())
	if err != nil {
		return fetchError(fiber.StatusBadRequest, err)
	}
	return c.JSON(rows)
}

func fetchError(code int, err error) error {
	logging.Error().Err(err).Int("status", code).Msg("store read failed")
	return fiber.NewError(code, "Error fetching data: "+err.Error())
}

// ErrorHandler renders errors as JSON. "detail" carries the message under
// the key the map client reads.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
		"detail":  message,
	})
}
