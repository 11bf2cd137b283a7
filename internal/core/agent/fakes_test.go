package agent

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"
	"gorm.io/datatypes"

	"github.com/agentdock/agentdock-be/internal/core/kb"
	"github.com/agentdock/agentdock-be/internal/core/llm"
	"github.com/agentdock/agentdock-be/internal/models"
)

// scriptedGateway returns canned completions in order and records the
// prompts it was called with. When err is set the gateway fails from
// call number failFrom onwards (every call when failFrom is zero).
type scriptedGateway struct {
	replies  []string
	err      error
	errMeta  llm.Meta
	failFrom int
	calls    [][]openai.ChatCompletionMessage
}

func (g *scriptedGateway) GenerateReply(_ context.Context, messages []openai.ChatCompletionMessage) (string, llm.Meta, error) {
	g.calls = append(g.calls, messages)
	if g.err != nil && (g.failFrom == 0 || len(g.calls) >= g.failFrom) {
		return "", g.errMeta, g.err
	}
	idx := len(g.calls) - 1
	if idx >= len(g.replies) {
		idx = len(g.replies) - 1
	}
	return g.replies[idx], llm.Meta{ModelUsed: "test-model"}, nil
}

type fakeRetriever struct {
	chunks []kb.Chunk
}

func (r *fakeRetriever) Retrieve(uuid.UUID, string, int) ([]kb.Chunk, error) {
	return r.chunks, nil
}

type fakeServiceRepo struct {
	services []*models.Service
}

func (r *fakeServiceRepo) GetByTenant(uuid.UUID) ([]models.Service, error) {
	out := make([]models.Service, 0, len(r.services))
	for _, s := range r.services {
		out = append(out, *s)
	}
	return out, nil
}

func (r *fakeServiceRepo) FindByName(tenantID uuid.UUID, name string) (*models.Service, error) {
	for _, s := range r.services {
		if s.TenantID == tenantID && strings.EqualFold(s.Name, name) {
			return s, nil
		}
	}
	return nil, nil
}

func (r *fakeServiceRepo) Create(service *models.Service) error {
	if service.ID == uuid.Nil {
		service.ID = uuid.New()
	}
	r.services = append(r.services, service)
	return nil
}

type fakeAppointmentRepo struct {
	appointments []*models.Appointment
}

func (r *fakeAppointmentRepo) Create(appt *models.Appointment) error {
	if appt.ID == uuid.Nil {
		appt.ID = uuid.New()
	}
	r.appointments = append(r.appointments, appt)
	return nil
}

func (r *fakeAppointmentRepo) FindActiveBySlot(tenantID uuid.UUID, startTime time.Time) (*models.Appointment, error) {
	for _, a := range r.appointments {
		if a.TenantID == tenantID && a.StartTime.Equal(startTime) && a.Status != models.AppointmentStatusCancelled {
			return a, nil
		}
	}
	return nil, nil
}

func (r *fakeAppointmentRepo) GetByTenant(tenantID uuid.UUID, _ int) ([]models.Appointment, error) {
	var out []models.Appointment
	for _, a := range r.appointments {
		if a.TenantID == tenantID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *fakeAppointmentRepo) UpdateStatus(id uuid.UUID, status string) error {
	for _, a := range r.appointments {
		if a.ID == id {
			a.Status = status
		}
	}
	return nil
}

type fakeOrderRepo struct {
	orders []*models.Order
}

func (r *fakeOrderRepo) Create(order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	r.orders = append(r.orders, order)
	return nil
}

func (r *fakeOrderRepo) GetByID(id uuid.UUID) (*models.Order, error) {
	for _, o := range r.orders {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, nil
}

func (r *fakeOrderRepo) GetByTenant(tenantID uuid.UUID, _ int) ([]models.Order, error) {
	var out []models.Order
	for _, o := range r.orders {
		if o.TenantID == tenantID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) Overdue(now time.Time) ([]models.Order, error) {
	var out []models.Order
	for _, o := range r.orders {
		if o.Status == models.OrderStatusPending && o.DueAt != nil && o.DueAt.Before(now) && o.ResolutionNotes == "" {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) MarkAlerted(id uuid.UUID, note string) error {
	for _, o := range r.orders {
		if o.ID == id {
			o.ResolutionNotes = note
		}
	}
	return nil
}

func (r *fakeOrderRepo) UpdateStatus(id uuid.UUID, status string) error {
	for _, o := range r.orders {
		if o.ID == id {
			o.Status = status
		}
	}
	return nil
}

func (r *fakeOrderRepo) Update(order *models.Order) error { return nil }

type fakeComplaintRepo struct {
	complaints []*models.Complaint
}

func (r *fakeComplaintRepo) Create(complaint *models.Complaint) error {
	if complaint.ID == uuid.Nil {
		complaint.ID = uuid.New()
	}
	r.complaints = append(r.complaints, complaint)
	return nil
}

func (r *fakeComplaintRepo) GetByTenant(tenantID uuid.UUID, _ int) ([]models.Complaint, error) {
	var out []models.Complaint
	for _, c := range r.complaints {
		if c.TenantID == tenantID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *fakeComplaintRepo) UpdateStatus(uuid.UUID, string, string) error { return nil }

type fakeHandoffRepo struct {
	handoffs []*models.Handoff
}

func (r *fakeHandoffRepo) Create(handoff *models.Handoff) error {
	if handoff.ID == uuid.Nil {
		handoff.ID = uuid.New()
	}
	r.handoffs = append(r.handoffs, handoff)
	return nil
}

func (r *fakeHandoffRepo) GetOpenByTenant(tenantID uuid.UUID) ([]models.Handoff, error) {
	var out []models.Handoff
	for _, h := range r.handoffs {
		if h.TenantID == tenantID && h.Status == models.HandoffStatusOpen {
			out = append(out, *h)
		}
	}
	return out, nil
}

func (r *fakeHandoffRepo) Overdue(now time.Time) ([]models.Handoff, error) {
	var out []models.Handoff
	for _, h := range r.handoffs {
		if h.Status == models.HandoffStatusOpen && h.DueAt != nil && h.DueAt.Before(now) && h.ResolutionNotes == "" {
			out = append(out, *h)
		}
	}
	return out, nil
}

func (r *fakeHandoffRepo) MarkAlerted(id uuid.UUID, note string) error {
	for _, h := range r.handoffs {
		if h.ID == id {
			h.ResolutionNotes = note
		}
	}
	return nil
}

func (r *fakeHandoffRepo) Resolve(id uuid.UUID, notes string) error { return nil }

type fakeCustomerRepo struct {
	customers []*models.Customer
}

func (r *fakeCustomerRepo) GetOrCreate(tenantID uuid.UUID, phone string) (*models.Customer, error) {
	for _, c := range r.customers {
		if c.TenantID == tenantID && c.Phone == phone {
			return c, nil
		}
	}
	customer := &models.Customer{ID: uuid.New(), TenantID: tenantID, Phone: phone}
	r.customers = append(r.customers, customer)
	return customer, nil
}

func (r *fakeCustomerRepo) Enrich(id uuid.UUID, name, phone string) error {
	for _, c := range r.customers {
		if c.ID == id {
			if name != "" {
				c.Name = name
			}
			if phone != "" && !strings.HasPrefix(phone, "web") {
				c.Phone = phone
			}
		}
	}
	return nil
}

func (r *fakeCustomerRepo) GetByID(id uuid.UUID) (*models.Customer, error) {
	for _, c := range r.customers {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, nil
}

type fakeTenantRepo struct {
	tenants []*models.Tenant
}

func (r *fakeTenantRepo) Create(tenant *models.Tenant) error {
	if tenant.ID == uuid.Nil {
		tenant.ID = uuid.New()
	}
	r.tenants = append(r.tenants, tenant)
	return nil
}

func (r *fakeTenantRepo) GetByID(id uuid.UUID) (*models.Tenant, error) {
	for _, t := range r.tenants {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, nil
}

func (r *fakeTenantRepo) GetByWhatsAppNumber(number string) (*models.Tenant, error) {
	for _, t := range r.tenants {
		if t.WhatsAppNumber == number {
			return t, nil
		}
	}
	return nil, nil
}

func (r *fakeTenantRepo) List() ([]models.Tenant, error) {
	out := make([]models.Tenant, 0, len(r.tenants))
	for _, t := range r.tenants {
		out = append(out, *t)
	}
	return out, nil
}

func (r *fakeTenantRepo) UpdateProfile(id uuid.UUID, profile datatypes.JSON) error {
	for _, t := range r.tenants {
		if t.ID == id {
			t.BusinessProfile = profile
		}
	}
	return nil
}

func (r *fakeTenantRepo) Update(tenant *models.Tenant) error { return nil }

type fakeMessageRepo struct {
	messages []*models.Message
}

func (r *fakeMessageRepo) Append(msg *models.Message) error {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	msg.CreatedAt = time.Now()
	r.messages = append(r.messages, msg)
	return nil
}

func (r *fakeMessageRepo) Recent(tenantID, customerID uuid.UUID, limit int) ([]models.Message, error) {
	var out []models.Message
	for _, m := range r.messages {
		if m.TenantID == tenantID && m.CustomerID != nil && *m.CustomerID == customerID {
			out = append(out, *m)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

type fakeStateRepo struct {
	states map[string]datatypes.JSON
}

func newFakeStateRepo() *fakeStateRepo {
	return &fakeStateRepo{states: map[string]datatypes.JSON{}}
}

func (r *fakeStateRepo) Get(tenantID, customerID uuid.UUID) (datatypes.JSON, error) {
	return r.states[tenantID.String()+customerID.String()], nil
}

func (r *fakeStateRepo) Save(tenantID, customerID uuid.UUID, _ string, state datatypes.JSON) error {
	r.states[tenantID.String()+customerID.String()] = state
	return nil
}

type fakeCacheRepo struct {
	entries map[string]string
	puts    int
}

func newFakeCacheRepo() *fakeCacheRepo {
	return &fakeCacheRepo{entries: map[string]string{}}
}

func (r *fakeCacheRepo) Get(_ uuid.UUID, key string) (string, bool, error) {
	reply, ok := r.entries[key]
	return reply, ok, nil
}

func (r *fakeCacheRepo) Put(_ uuid.UUID, key, reply string) error {
	r.puts++
	if _, exists := r.entries[key]; !exists {
		r.entries[key] = reply
	}
	return nil
}

type fakeTraceRepo struct {
	traces []*models.AgentTrace
}

func (r *fakeTraceRepo) Create(trace *models.AgentTrace) error {
	if trace.ID == uuid.Nil {
		trace.ID = uuid.New()
	}
	r.traces = append(r.traces, trace)
	return nil
}

func (r *fakeTraceRepo) GetByTenant(tenantID uuid.UUID, _ int) ([]models.AgentTrace, error) {
	var out []models.AgentTrace
	for _, t := range r.traces {
		if t.TenantID == tenantID {
			out = append(out, *t)
		}
	}
	return out, nil
}
