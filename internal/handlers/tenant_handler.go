package handlers

import (
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/agentdock/agentdock-be/internal/core/profile"
	"github.com/agentdock/agentdock-be/internal/models"
	"github.com/agentdock/agentdock-be/internal/repositories"
)

type TenantHandler struct {
	tenants      repositories.TenantRepo
	appointments repositories.AppointmentRepo
	orders       repositories.OrderRepo
	complaints   repositories.ComplaintRepo
	handoffs     repositories.HandoffRepo
	traces       repositories.TraceRepo
}

func NewTenantHandler(
	tenants repositories.TenantRepo,
	appointments repositories.AppointmentRepo,
	orders repositories.OrderRepo,
	complaints repositories.ComplaintRepo,
	handoffs repositories.HandoffRepo,
	traces repositories.TraceRepo,
) *TenantHandler {
	return &TenantHandler{
		tenants:      tenants,
		appointments: appointments,
		orders:       orders,
		complaints:   complaints,
		handoffs:     handoffs,
		traces:       traces,
	}
}

type createTenantRequest struct {
	Name            string          `json:"name"`
	WhatsAppNumber  string          `json:"whatsapp_number"`
	BusinessProfile json.RawMessage `json:"business_profile"`
}

// Create godoc
// @Summary Create a tenant
// @Tags Tenants
// @Accept json
// @Produce json
// @Param data body createTenantRequest true "Tenant"
// @Success 201 {object} models.Tenant
// @Failure 400 {object} map[string]interface{}
// @Router /tenants [post]
func (h *TenantHandler) Create(c *fiber.Ctx) error {
	var req createTenantRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if strings.TrimSpace(req.Name) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name is required"})
	}

	tenant := &models.Tenant{
		Name:           strings.TrimSpace(req.Name),
		WhatsAppNumber: strings.TrimSpace(req.WhatsAppNumber),
	}
	if len(req.BusinessProfile) > 0 {
		tenant.BusinessProfile = datatypes.JSON(req.BusinessProfile)
	}
	if err := h.tenants.Create(tenant); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "could not create tenant"})
	}
	return c.Status(fiber.StatusCreated).JSON(tenant)
}

// Get godoc
// @Summary Get a tenant
// @Tags Tenants
// @Produce json
// @Param id path string true "Tenant ID"
// @Success 200 {object} models.Tenant
// @Failure 404 {object} map[string]interface{}
// @Router /tenants/{id} [get]
func (h *TenantHandler) Get(c *fiber.Ctx) error {
	tenant, errResp := h.lookup(c)
	if errResp != nil {
		return errResp
	}
	return c.JSON(tenant)
}

type updateProfileRequest struct {
	BusinessProfile json.RawMessage `json:"business_profile"`
	Path            string          `json:"path"`
	Value           any             `json:"value"`
}

// UpdateProfile godoc
// @Summary Update a tenant's business profile
// @Description Replaces the whole profile, or merges one dotted-path field when path is given
// @Tags Tenants
// @Accept json
// @Produce json
// @Param id path string true "Tenant ID"
// @Param data body updateProfileRequest true "Profile update"
// @Success 200 {object} models.Tenant
// @Failure 400 {object} map[string]interface{}
// @Router /tenants/{id}/profile [patch]
func (h *TenantHandler) UpdateProfile(c *fiber.Ctx) error {
	tenant, errResp := h.lookup(c)
	if errResp != nil {
		return errResp
	}

	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	switch {
	case strings.TrimSpace(req.Path) != "":
		prof := profile.Parse(tenant.BusinessProfile)
		if !prof.SetPath(req.Path, req.Value) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid path"})
		}
		tenant.BusinessProfile = datatypes.JSON(prof.JSON())
	case len(req.BusinessProfile) > 0:
		tenant.BusinessProfile = datatypes.JSON(req.BusinessProfile)
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "business_profile or path is required"})
	}

	if err := h.tenants.UpdateProfile(tenant.ID, tenant.BusinessProfile); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "could not update profile"})
	}
	return c.JSON(tenant)
}

// Appointments godoc
// @Summary List a tenant's appointments
// @Tags Tenants
// @Produce json
// @Param id path string true "Tenant ID"
// @Success 200 {array} models.Appointment
// @Router /tenants/{id}/appointments [get]
func (h *TenantHandler) Appointments(c *fiber.Ctx) error {
	tenant, errResp := h.lookup(c)
	if errResp != nil {
		return errResp
	}
	appts, err := h.appointments.GetByTenant(tenant.ID, c.QueryInt("limit", 100))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "could not load appointments"})
	}
	return c.JSON(appts)
}

// Orders godoc
// @Summary List a tenant's orders
// @Tags Tenants
// @Produce json
// @Param id path string true "Tenant ID"
// @Success 200 {array} models.Order
// @Router /tenants/{id}/orders [get]
func (h *TenantHandler) Orders(c *fiber.Ctx) error {
	tenant, errResp := h.lookup(c)
	if errResp != nil {
		return errResp
	}
	orders, err := h.orders.GetByTenant(tenant.ID, c.QueryInt("limit", 100))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "could not load orders"})
	}
	return c.JSON(orders)
}

// Complaints godoc
// @Summary List a tenant's complaints
// @Tags Tenants
// @Produce json
// @Param id path string true "Tenant ID"
// @Success 200 {array} models.Complaint
// @Router /tenants/{id}/complaints [get]
func (h *TenantHandler) Complaints(c *fiber.Ctx) error {
	tenant, errResp := h.lookup(c)
	if errResp != nil {
		return errResp
	}
	complaints, err := h.complaints.GetByTenant(tenant.ID, c.QueryInt("limit", 100))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "could not load complaints"})
	}
	return c.JSON(complaints)
}

// Handoffs godoc
// @Summary List a tenant's open handoffs
// @Tags Tenants
// @Produce json
// @Param id path string true "Tenant ID"
// @Success 200 {array} models.Handoff
// @Router /tenants/{id}/handoffs [get]
func (h *TenantHandler) Handoffs(c *fiber.Ctx) error {
	tenant, errResp := h.lookup(c)
	if errResp != nil {
		return errResp
	}
	handoffs, err := h.handoffs.GetOpenByTenant(tenant.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "could not load handoffs"})
	}
	return c.JSON(handoffs)
}

// Traces godoc
// @Summary List a tenant's agent traces
// @Description Owner-only observability page; never exposed to customers
// @Tags Tenants
// @Produce json
// @Param id path string true "Tenant ID"
// @Success 200 {array} models.AgentTrace
// @Router /tenants/{id}/traces [get]
func (h *TenantHandler) Traces(c *fiber.Ctx) error {
	tenant, errResp := h.lookup(c)
	if errResp != nil {
		return errResp
	}
	traces, err := h.traces.GetByTenant(tenant.ID, c.QueryInt("limit", 50))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "could not load traces"})
	}
	return c.JSON(traces)
}

func (h *TenantHandler) lookup(c *fiber.Ctx) (*models.Tenant, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid tenant id"})
	}
	tenant, err := h.tenants.GetByID(id)
	if err != nil {
		return nil, c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "tenant not found"})
	}
	return tenant, nil
}
