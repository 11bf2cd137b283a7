package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/agentdock/agentdock-be/internal/shared/database"
)

type HealthHandler struct {
	db *database.DB
}

func NewHealthHandler(db *database.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// Check godoc
// @Summary Health check
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	status := "ok"
	dbStatus := "ok"
	if sqlDB, err := h.db.GORM.DB(); err != nil || sqlDB.Ping() != nil {
		status = "degraded"
		dbStatus = "unreachable"
	}
	return c.JSON(fiber.Map{"status": status, "database": dbStatus})
}
