package handlers

import (
	"crypto/subtle"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shiftwatch/shift-backend/database"
	"github.com/shiftwatch/shift-backend/models"
	"github.com/shiftwatch/shift-backend/services"
	"github.com/shiftwatch/shift-backend/shared"
	"github.com/sirupsen/logrus"
)

// CodeHandler exposes the code set over HTTP for dashboards and monitoring.
// The Discord bot is the primary interface; this API is read-only except for
// the token-guarded refresh endpoint.
type CodeHandler struct {
	Aggregator  *services.CodeAggregatorService
	CodeService *services.CodeService
	Metrics     *shared.ScrapeMetrics
	AdminToken  string
}

func NewCodeHandler(aggregator *services.CodeAggregatorService, codeService *services.CodeService, metrics *shared.ScrapeMetrics, adminToken string) *CodeHandler {
	return &CodeHandler{
		Aggregator:  aggregator,
		CodeService: codeService,
		Metrics:     metrics,
		AdminToken:  adminToken,
	}
}

// RegisterRoutes mounts all API routes on the app
func (h *CodeHandler) RegisterRoutes(app *fiber.App) {
	app.Get("/health", h.HealthCheck)

	api := app.Group("/api/v1")
	api.Get("/codes", h.GetCodes)
	api.Get("/codes/latest", h.GetLatestCode)
	api.Get("/stats", h.GetStats)
	api.Post("/admin/refresh", h.ForceRefresh)
}

// HealthCheck reports process and database health
func (h *CodeHandler) HealthCheck(c *fiber.Ctx) error {
	status := fiber.Map{
		"status": "ok",
		"time":   time.Now().UTC(),
	}

	if h.CodeService != nil {
		if err := database.HealthCheck(); err != nil {
			status["status"] = "degraded"
			status["database"] = err.Error()
			return c.Status(fiber.StatusServiceUnavailable).JSON(status)
		}
		status["database"] = "ok"
	}

	return c.JSON(status)
}

// GetCodes returns the current active codes, optionally filtered by source
func (h *CodeHandler) GetCodes(c *fiber.Ctx) error {
	source := c.Query("source")

	var codes []models.ShiftCode
	var err error
	if source != "" {
		codes, err = h.Aggregator.GetCodesBySource(c.Context(), source)
	} else {
		codes, err = h.Aggregator.GetCodes(c.Context(), false)
	}
	if err != nil {
		logrus.WithError(err).Error("Failed to fetch codes for API request")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "failed to fetch codes",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    codes,
		"count":   len(codes),
	})
}

// GetLatestCode returns the most recently discovered code
func (h *CodeHandler) GetLatestCode(c *fiber.Ctx) error {
	code, err := h.Aggregator.LatestCode(c.Context())
	if err != nil {
		logrus.WithError(err).Error("Failed to fetch latest code for API request")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "failed to fetch latest code",
		})
	}
	if code == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "no codes known",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    code,
	})
}

// GetStats returns scrape metrics plus database statistics when available
func (h *CodeHandler) GetStats(c *fiber.Ctx) error {
	data := fiber.Map{
		"scrapes": h.Metrics.Snapshot(),
	}

	if h.CodeService != nil {
		stats, err := h.CodeService.GetStatistics(c.Context())
		if err != nil {
			logrus.WithError(err).Warn("Failed to load code statistics for API request")
		} else {
			data["codes"] = stats
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

// ForceRefresh triggers an immediate re-scrape. Guarded by the admin token;
// disabled entirely when no token is configured.
func (h *CodeHandler) ForceRefresh(c *fiber.Ctx) error {
	if h.AdminToken == "" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"error":   "admin endpoints are disabled",
		})
	}

	provided := c.Get("X-Admin-Token")
	if subtle.ConstantTimeCompare([]byte(provided), []byte(h.AdminToken)) != 1 {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"error":   "invalid admin token",
		})
	}

	allCodes, newCodes, err := h.Aggregator.Refresh(c.Context())
	if err != nil {
		logrus.WithError(err).Error("Forced refresh failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "refresh failed",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"total_codes": len(allCodes),
			"new_codes":   len(newCodes),
		},
	})
}
