package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/agentdock/agentdock-be/internal/core/whatsapp"
)

type WhatsAppHandler struct {
	service *whatsapp.Service
}

func NewWhatsAppHandler(service *whatsapp.Service) *WhatsAppHandler {
	return &WhatsAppHandler{service: service}
}

// GetQRCode godoc
// @Summary Get WhatsApp pairing QR code
// @Tags WhatsApp
// @Produce image/png
// @Success 200 {file} image/png
// @Failure 500 {object} map[string]interface{}
// @Router /whatsapp/qr [get]
func (h *WhatsAppHandler) GetQRCode(c *fiber.Ctx) error {
	qr, err := h.service.GenerateQR()
	if err != nil {
		log.Error().Err(err).Msg("QR generation failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	c.Set(fiber.HeaderContentType, "image/png")
	c.Set(fiber.HeaderContentDisposition, "inline; filename=whatsapp-qr.png")
	return c.Send(qr)
}

// Status godoc
// @Summary WhatsApp connection status
// @Tags WhatsApp
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /whatsapp/status [get]
func (h *WhatsAppHandler) Status(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"connected": h.service.IsConnected()})
}
