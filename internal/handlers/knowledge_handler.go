package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/agentdock/agentdock-be/internal/core/events"
	"github.com/agentdock/agentdock-be/internal/core/kb"
	"github.com/agentdock/agentdock-be/internal/repositories"
)

type KnowledgeHandler struct {
	tenants     repositories.TenantRepo
	knowledge   repositories.KnowledgeRepo
	retriever   *kb.Retriever
	broadcaster *events.Broadcaster
}

func NewKnowledgeHandler(tenants repositories.TenantRepo, knowledge repositories.KnowledgeRepo, retriever *kb.Retriever, broadcaster *events.Broadcaster) *KnowledgeHandler {
	return &KnowledgeHandler{tenants: tenants, knowledge: knowledge, retriever: retriever, broadcaster: broadcaster}
}

// Upload godoc
// @Summary Replace a tenant's knowledge text
// @Description Accepts plain text only; the previous knowledge and its index are replaced atomically
// @Tags Knowledge
// @Accept text/plain
// @Produce json
// @Param id path string true "Tenant ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /tenants/{id}/knowledge [put]
func (h *KnowledgeHandler) Upload(c *fiber.Ctx) error {
	tenantID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid tenant id"})
	}
	if _, err := h.tenants.GetByID(tenantID); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "tenant not found"})
	}

	contentType := string(c.Request().Header.ContentType())
	if contentType != "" && !strings.HasPrefix(contentType, "text/plain") {
		return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{"error": "only text/plain knowledge uploads are supported"})
	}

	rawText := string(c.Body())
	if err := h.knowledge.SaveRawText(tenantID, rawText); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "could not save knowledge"})
	}
	if err := h.retriever.Rebuild(tenantID, rawText); err != nil {
		log.Error().Err(err).Str("tenant_id", tenantID.String()).Msg("knowledge reindex failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "could not index knowledge"})
	}

	chunks := kb.ChunkText(rawText, kb.DefaultChunkSize, kb.DefaultOverlap)
	if h.broadcaster != nil {
		h.broadcaster.Publish(events.Event{
			Type:     events.TypeKnowledgeUpdated,
			TenantID: tenantID,
			Data:     map[string]any{"chunks": len(chunks)},
		})
	}
	return c.JSON(fiber.Map{"ok": true, "chunks": len(chunks)})
}

// GetRaw godoc
// @Summary Get a tenant's raw knowledge text
// @Tags Knowledge
// @Produce text/plain
// @Param id path string true "Tenant ID"
// @Success 200 {string} string
// @Router /tenants/{id}/knowledge [get]
func (h *KnowledgeHandler) GetRaw(c *fiber.Ctx) error {
	tenantID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid tenant id"})
	}
	rawText, err := h.knowledge.GetRawText(tenantID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "could not load knowledge"})
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.SendString(rawText)
}
