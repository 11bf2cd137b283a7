package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/agentdock/agentdock-be/internal/core/agent"
	"github.com/agentdock/agentdock-be/internal/repositories"
)

type ChatHandler struct {
	engine  *agent.Engine
	tenants repositories.TenantRepo
}

func NewChatHandler(engine *agent.Engine, tenants repositories.TenantRepo) *ChatHandler {
	return &ChatHandler{engine: engine, tenants: tenants}
}

type chatRequest struct {
	TenantID      string `json:"tenant_id"`
	Message       string `json:"message"`
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
}

// DemoChat godoc
// @Summary Send a demo chat message
// @Description Runs one conversation turn against a tenant's agent from the web demo widget
// @Tags Chat
// @Accept json
// @Produce json
// @Param data body chatRequest true "Chat message"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /demo/chat [post]
func (h *ChatHandler) DemoChat(c *fiber.Ctx) error {
	var req chatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if strings.TrimSpace(req.Message) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "message is required"})
	}
	tenantID, err := uuid.Parse(req.TenantID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid tenant_id"})
	}

	tenant, err := h.tenants.GetByID(tenantID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "tenant not found"})
	}

	// Web demo customers get a synthetic per-thread handle so their
	// conversation history survives page reloads.
	phone := req.CustomerPhone
	if strings.TrimSpace(phone) == "" {
		phone = "web:" + uuid.NewString()
	}

	reply, err := h.engine.HandleTurn(c.UserContext(), tenant, req.CustomerName, phone, req.Message)
	if err != nil {
		log.Error().Err(err).Str("tenant_id", tenantID.String()).Msg("demo chat turn failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "could not process message"})
	}

	return c.JSON(fiber.Map{
		"reply_text":     reply,
		"customer_phone": agent.NormalizePhone(phone),
	})
}
