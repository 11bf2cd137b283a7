package handlers

import (
	"bufio"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	"github.com/agentdock/agentdock-be/internal/core/events"
)

type EventsHandler struct {
	broadcaster *events.Broadcaster
}

func NewEventsHandler(broadcaster *events.Broadcaster) *EventsHandler {
	return &EventsHandler{broadcaster: broadcaster}
}

// Stream godoc
// @Summary Subscribe to a tenant's event stream
// @Description Server-sent events: bookings, orders, complaints, handoffs, profile updates
// @Tags Events
// @Produce text/event-stream
// @Param id path string true "Tenant ID"
// @Success 200 {string} string
// @Router /tenants/{id}/events [get]
func (h *EventsHandler) Stream(c *fiber.Ctx) error {
	tenantID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid tenant id"})
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	ch, cancel := h.broadcaster.Subscribe(tenantID)

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()

		// Periodic comments keep intermediaries from closing the idle
		// stream.
		heartbeat := time.NewTicker(25 * time.Second)
		defer heartbeat.Stop()

		for {
			select {
			case evt, ok := <-ch:
				if !ok {
					return
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, evt.JSON())
				if err := w.Flush(); err != nil {
					return
				}
			case <-heartbeat.C:
				fmt.Fprint(w, ": heartbeat\n\n")
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	}))
	return nil
}
