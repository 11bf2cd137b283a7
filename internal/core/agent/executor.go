package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"

	"github.com/agentdock/agentdock-be/internal/core/events"
	"github.com/agentdock/agentdock-be/internal/core/notification"
	"github.com/agentdock/agentdock-be/internal/core/profile"
	"github.com/agentdock/agentdock-be/internal/models"
	"github.com/agentdock/agentdock-be/internal/repositories"
)

// Turn is the per-message context the executor operates in.
type Turn struct {
	Tenant   *models.Tenant
	Profile  profile.Profile
	Customer *models.Customer
	Phone    string
	Now      time.Time
}

// Executor runs the side-effectful half of the agent: every structured
// action the model emits is dispatched here. Notifications and events
// are best effort; persistence failures are the only hard errors.
type Executor struct {
	services     repositories.ServiceRepo
	appointments repositories.AppointmentRepo
	orders       repositories.OrderRepo
	complaints   repositories.ComplaintRepo
	handoffs     repositories.HandoffRepo
	customers    repositories.CustomerRepo
	tenants      repositories.TenantRepo
	notifier     *notification.Notifier
	broadcaster  *events.Broadcaster
	orderSLA     time.Duration
	handoffSLA   time.Duration
}

type ExecutorDeps struct {
	Services     repositories.ServiceRepo
	Appointments repositories.AppointmentRepo
	Orders       repositories.OrderRepo
	Complaints   repositories.ComplaintRepo
	Handoffs     repositories.HandoffRepo
	Customers    repositories.CustomerRepo
	Tenants      repositories.TenantRepo
	Notifier     *notification.Notifier
	Broadcaster  *events.Broadcaster
	OrderSLA     time.Duration
	HandoffSLA   time.Duration
}

func NewExecutor(deps ExecutorDeps) *Executor {
	return &Executor{
		services:     deps.Services,
		appointments: deps.Appointments,
		orders:       deps.Orders,
		complaints:   deps.Complaints,
		handoffs:     deps.Handoffs,
		customers:    deps.Customers,
		tenants:      deps.Tenants,
		notifier:     deps.Notifier,
		broadcaster:  deps.Broadcaster,
		orderSLA:     deps.OrderSLA,
		handoffSLA:   deps.HandoffSLA,
	}
}

// ExecuteAll dispatches every parsed action in order, collecting tool
// results and advancing the conversation state. An action that cannot
// run because fields are missing produces no tool result; it parks the
// state in the matching awaiting mode instead so the next turn collects
// what is missing.
func (e *Executor) ExecuteAll(ctx context.Context, turn Turn, actions []Action, state *State) []map[string]any {
	var results []map[string]any
	for _, action := range actions {
		switch action.Type() {
		case "QUOTE_PRICE":
			results = append(results, e.quotePrice(turn, action))

		case "CHECK_AVAILABILITY":
			res := e.checkAvailability(turn, action)
			results = append(results, res)
			if ok, _ := res["ok"].(bool); ok {
				if available, found := res["available"].(bool); found && !available {
					state.Mode = ModeAwaitingTime
				}
			}

		case "CREATE_APPOINTMENT":
			res := e.createAppointment(ctx, turn, action)
			if res != nil {
				results = append(results, res)
				state.Clear()
			} else {
				state.SetMissing(ModeAwaitingBookingDetails, missingAppointmentFields(action))
			}

		case "CREATE_ORDER":
			res := e.createOrder(ctx, turn, action)
			if res != nil {
				results = append(results, res)
				state.Clear()
			} else {
				state.SetMissing(ModeAwaitingOrderDetails, missingOrderFields(action))
			}

		case "ESCALATE_TO_HUMAN":
			res := e.escalateToHuman(ctx, turn, action)
			if res != nil {
				results = append(results, res)
				state.Mode = ModeHandoffOpen
			}

		case "CREATE_COMPLAINT":
			if res := e.createComplaint(ctx, turn, action); res != nil {
				results = append(results, res)
			}

		case "UPDATE_PROFILE_FIELD":
			if res := e.updateProfileField(ctx, turn, action); res != nil {
				results = append(results, res)
			}

		default:
			log.Warn().Str("action_type", action.Type()).Msg("unknown action type, skipping")
		}
	}
	return results
}

func (e *Executor) quotePrice(turn Turn, action Action) map[string]any {
	name := action.Str("service_name")
	if name == "" {
		return map[string]any{"type": "QUOTE_PRICE", "ok": false, "error": "missing service_name"}
	}

	service, err := e.services.FindByName(turn.Tenant.ID, name)
	if err != nil {
		log.Error().Err(err).Msg("quote price service lookup failed")
	}
	if service != nil && service.Price != nil {
		return map[string]any{"type": "QUOTE_PRICE", "ok": true, "service_name": service.Name, "price": *service.Price}
	}

	for _, entry := range turn.Profile.Services() {
		if strings.EqualFold(entry.Name, name) {
			res := map[string]any{"type": "QUOTE_PRICE", "ok": true, "service_name": entry.Name}
			if entry.Price != nil {
				res["price"] = *entry.Price
			} else {
				res["price"] = nil
			}
			return res
		}
	}
	return map[string]any{"type": "QUOTE_PRICE", "ok": false, "service_name": name, "error": "service not found"}
}

func (e *Executor) checkAvailability(turn Turn, action Action) map[string]any {
	startISO := action.Str("start_time_iso")
	if startISO == "" {
		return map[string]any{"type": "CHECK_AVAILABILITY", "ok": false, "error": "missing start_time_iso"}
	}
	startTime, err := ParseISOTime(startISO, turn.Now.Location())
	if err != nil {
		return map[string]any{"type": "CHECK_AVAILABILITY", "ok": false, "error": "invalid start_time_iso"}
	}

	day := strings.ToLower(startTime.Weekday().String())
	hoursValue := strings.TrimSpace(turn.Profile.OpeningHours()[day])
	if hoursValue == "" || strings.EqualFold(hoursValue, "closed") {
		return map[string]any{
			"type": "CHECK_AVAILABILITY", "ok": true, "available": false,
			"reason": "closed on " + day,
		}
	}

	openMinutes, closeMinutes, err := parseHoursRange(hoursValue)
	if err != nil {
		// Malformed opening hours must not block bookings; report
		// unknown and let the model decide.
		return map[string]any{"type": "CHECK_AVAILABILITY", "ok": true, "available": nil, "hours": hoursValue}
	}
	slotMinutes := startTime.Hour()*60 + startTime.Minute()
	if slotMinutes < openMinutes || slotMinutes > closeMinutes {
		return map[string]any{
			"type": "CHECK_AVAILABILITY", "ok": true, "available": false,
			"reason": fmt.Sprintf("outside opening hours (%s)", hoursValue),
		}
	}

	existing, err := e.appointments.FindActiveBySlot(turn.Tenant.ID, startTime)
	if err != nil {
		log.Error().Err(err).Msg("availability slot lookup failed")
	}
	if existing != nil {
		return map[string]any{
			"type": "CHECK_AVAILABILITY", "ok": true, "available": false,
			"reason": "slot already booked",
		}
	}
	return map[string]any{"type": "CHECK_AVAILABILITY", "ok": true, "available": true}
}

// createAppointment returns nil when required fields are missing or
// unparseable; the caller parks the state so the model collects them.
func (e *Executor) createAppointment(ctx context.Context, turn Turn, action Action) map[string]any {
	if len(missingAppointmentFields(action)) > 0 {
		return nil
	}
	startTime, err := ParseISOTime(action.Str("start_time_iso"), turn.Now.Location())
	if err != nil {
		return nil
	}
	serviceName := action.Str("service_name")
	customerName := action.Str("customer_name")
	customerPhone := NormalizePhone(action.Str("customer_phone"))

	// Learn the real name/phone for web customers who only had a
	// synthetic handle so far.
	if turn.Customer != nil {
		if err := e.customers.Enrich(turn.Customer.ID, customerName, customerPhone); err != nil {
			log.Warn().Err(err).Msg("customer enrichment failed")
		}
	}

	service, err := e.services.FindByName(turn.Tenant.ID, serviceName)
	if err != nil {
		log.Error().Err(err).Msg("appointment service lookup failed")
	}
	if service == nil {
		service = &models.Service{TenantID: turn.Tenant.ID, Name: serviceName}
		if err := e.services.Create(service); err != nil {
			log.Error().Err(err).Msg("service auto-create failed")
		}
	}

	// One active booking per slot. The partial unique index is the
	// authority; this pre-check just gives the common case a friendly
	// deduped answer without a constraint round-trip.
	if existing, err := e.appointments.FindActiveBySlot(turn.Tenant.ID, startTime); err == nil && existing != nil {
		if existing.CustomerPhone == customerPhone {
			return map[string]any{"type": "CREATE_APPOINTMENT", "ok": true, "appointment_id": existing.ID.String(), "deduped": true}
		}
		return map[string]any{
			"type": "CREATE_APPOINTMENT", "ok": true,
			"appointment_id": existing.ID.String(),
			"deduped":        true,
			"reason":         "slot already booked",
		}
	}

	appt := &models.Appointment{
		TenantID:      turn.Tenant.ID,
		ServiceID:     &service.ID,
		CustomerName:  customerName,
		CustomerPhone: customerPhone,
		StartTime:     startTime,
		Status:        models.AppointmentStatusPending,
	}
	if turn.Customer != nil {
		appt.CustomerID = &turn.Customer.ID
	}
	err = e.appointments.Create(appt)
	if errors.Is(err, repositories.ErrSlotTaken) {
		// Lost the race to a concurrent booking of the same slot.
		existing, ferr := e.appointments.FindActiveBySlot(turn.Tenant.ID, startTime)
		res := map[string]any{"type": "CREATE_APPOINTMENT", "ok": true, "deduped": true, "reason": "slot already booked"}
		if ferr == nil && existing != nil {
			res["appointment_id"] = existing.ID.String()
		}
		return res
	}
	if err != nil {
		log.Error().Err(err).Msg("appointment create failed")
		return map[string]any{"type": "CREATE_APPOINTMENT", "ok": false, "error": "could not save booking"}
	}

	e.publish(events.Event{
		Type:     events.TypeAppointmentCreated,
		TenantID: turn.Tenant.ID,
		Data: map[string]any{
			"appointment_id": appt.ID.String(),
			"customer_name":  appt.CustomerName,
			"service_name":   service.Name,
			"start_time":     appt.StartTime.Format(time.RFC3339),
		},
	})
	if e.notifier != nil {
		e.notifier.NotifyBooking(ctx, turn.Profile.OwnerPhone(), appt, service.Name)
	}
	return map[string]any{"type": "CREATE_APPOINTMENT", "ok": true, "appointment_id": appt.ID.String()}
}

func (e *Executor) createOrder(ctx context.Context, turn Turn, action Action) map[string]any {
	if len(missingOrderFields(action)) > 0 {
		return nil
	}
	items := orderItems(action)
	if len(items) == 0 {
		return nil
	}
	customerName := action.Str("customer_name")
	customerPhone := NormalizePhone(action.Str("customer_phone"))

	var total float64
	for _, item := range items {
		qty := item.Qty
		if qty <= 0 {
			qty = 1
		}
		total += float64(qty) * item.Price
	}

	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return nil
	}
	dueAt := turn.Now.Add(e.orderSLA)
	order := &models.Order{
		TenantID:      turn.Tenant.ID,
		CustomerName:  customerName,
		CustomerPhone: customerPhone,
		Items:         datatypes.JSON(itemsJSON),
		Status:        models.OrderStatusPending,
		DueAt:         &dueAt,
	}
	if total > 0 {
		order.TotalAmount = &total
	}
	if turn.Customer != nil {
		order.CustomerID = &turn.Customer.ID
		if err := e.customers.Enrich(turn.Customer.ID, customerName, customerPhone); err != nil {
			log.Warn().Err(err).Msg("customer enrichment failed")
		}
	}
	if err := e.orders.Create(order); err != nil {
		log.Error().Err(err).Msg("order create failed")
		return map[string]any{"type": "CREATE_ORDER", "ok": false, "error": "could not save order"}
	}

	e.publish(events.Event{
		Type:     events.TypeOrderCreated,
		TenantID: turn.Tenant.ID,
		Data:     map[string]any{"order_id": order.ID.String(), "customer_name": customerName},
	})
	if e.notifier != nil {
		e.notifier.NotifyOrder(ctx, turn.Profile.OwnerPhone(), order, items)
	}
	res := map[string]any{
		"type": "CREATE_ORDER", "ok": true,
		"order_id":       order.ID.String(),
		"customer_name":  customerName,
		"customer_phone": customerPhone,
	}
	if order.TotalAmount != nil {
		res["total_amount"] = *order.TotalAmount
	}
	return res
}

func (e *Executor) escalateToHuman(ctx context.Context, turn Turn, action Action) map[string]any {
	dueAt := turn.Now.Add(e.handoffSLA)
	handoff := &models.Handoff{
		TenantID: turn.Tenant.ID,
		Reason:   action.Str("reason"),
		Status:   models.HandoffStatusOpen,
		DueAt:    &dueAt,
	}
	if turn.Customer != nil {
		handoff.CustomerID = &turn.Customer.ID
	}
	if err := e.handoffs.Create(handoff); err != nil {
		log.Error().Err(err).Msg("handoff create failed")
		return nil
	}

	e.publish(events.Event{
		Type:     events.TypeHandoffCreated,
		TenantID: turn.Tenant.ID,
		Data:     map[string]any{"handoff_id": handoff.ID.String(), "reason": handoff.Reason},
	})
	if e.notifier != nil {
		e.notifier.NotifyHandoff(ctx, turn.Profile.OwnerPhone(), handoff, turn.Phone)
	}
	return map[string]any{"type": "ESCALATE_TO_HUMAN", "ok": true, "handoff_id": handoff.ID.String()}
}

func (e *Executor) createComplaint(ctx context.Context, turn Turn, action Action) map[string]any {
	details := action.Str("complaint_details")
	if details == "" {
		return nil
	}
	customerName := action.Str("customer_name")
	customerPhone := NormalizePhone(action.Str("customer_phone"))
	if turn.Customer != nil {
		if customerName == "" {
			customerName = turn.Customer.Name
		}
		if customerPhone == "" {
			customerPhone = turn.Customer.Phone
		}
	}
	category := action.Str("category")
	if category == "" {
		category = "General"
	}
	priority := action.Str("priority")
	if priority == "" {
		priority = "Medium"
	}

	complaint := &models.Complaint{
		TenantID:         turn.Tenant.ID,
		CustomerName:     customerName,
		CustomerPhone:    customerPhone,
		ComplaintDetails: details,
		Category:         category,
		Priority:         priority,
		Status:           models.ComplaintStatusPending,
	}
	if turn.Customer != nil {
		complaint.CustomerID = &turn.Customer.ID
	}
	if err := e.complaints.Create(complaint); err != nil {
		log.Error().Err(err).Msg("complaint create failed")
		return nil
	}

	e.publish(events.Event{
		Type:     events.TypeComplaintCreated,
		TenantID: turn.Tenant.ID,
		Data:     map[string]any{"complaint_id": complaint.ID.String(), "category": category, "priority": priority},
	})
	if e.notifier != nil {
		e.notifier.NotifyComplaint(ctx, turn.Profile.OwnerPhone(), complaint)
	}
	return map[string]any{"type": "CREATE_COMPLAINT", "ok": true, "complaint_id": complaint.ID.String()}
}

func (e *Executor) updateProfileField(_ context.Context, turn Turn, action Action) map[string]any {
	path := action.Str("path")
	if path == "" {
		return nil
	}
	if !turn.Profile.SetPath(path, action["value"]) {
		return nil
	}
	if err := e.tenants.UpdateProfile(turn.Tenant.ID, datatypes.JSON(turn.Profile.JSON())); err != nil {
		log.Error().Err(err).Msg("profile field update failed")
		return map[string]any{"type": "UPDATE_PROFILE_FIELD", "ok": false, "path": path, "error": "could not save profile"}
	}

	e.publish(events.Event{
		Type:     events.TypeProfileUpdated,
		TenantID: turn.Tenant.ID,
		Data:     map[string]any{"path": path},
	})
	return map[string]any{"type": "UPDATE_PROFILE_FIELD", "ok": true, "path": path}
}

func (e *Executor) publish(evt events.Event) {
	if e.broadcaster != nil {
		e.broadcaster.Publish(evt)
	}
}

// missingAppointmentFields lists, in fixed order, what the booking
// still needs. The order is stable so prompts stay deterministic.
func missingAppointmentFields(action Action) []string {
	var missing []string
	if action.Str("start_time_iso") == "" {
		missing = append(missing, "date/time")
	}
	if action.Str("service_name") == "" {
		missing = append(missing, "service")
	}
	if action.Str("customer_name") == "" {
		missing = append(missing, "name")
	}
	if NormalizePhone(action.Str("customer_phone")) == "" {
		missing = append(missing, "phone")
	}
	return missing
}

func missingOrderFields(action Action) []string {
	var missing []string
	if items, ok := action["items"].([]any); !ok || len(items) == 0 {
		missing = append(missing, "items")
	}
	if action.Str("customer_name") == "" {
		missing = append(missing, "name")
	}
	if NormalizePhone(action.Str("customer_phone")) == "" {
		missing = append(missing, "phone")
	}
	return missing
}

func orderItems(action Action) []models.OrderItem {
	raw, ok := action["items"].([]any)
	if !ok {
		return nil
	}
	var items []models.OrderItem
	for _, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		name, _ := m["name"].(string)
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		item := models.OrderItem{Name: name, Qty: 1}
		if qty, ok := toInt(m["qty"]); ok && qty > 0 {
			item.Qty = qty
		}
		if price, ok := m["price"].(float64); ok {
			item.Price = price
		}
		items = append(items, item)
	}
	return items
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, false
		}
		return parsed, true
	}
	return 0, false
}

// ParseISOTime accepts the ISO-8601 shapes the model produces. Naive
// timestamps are interpreted in the tenant's zone.
func ParseISOTime(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	value = strings.TrimSpace(value)
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04"} {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", value)
}

// parseHoursRange parses "HH:MM-HH:MM" into minutes since midnight.
func parseHoursRange(value string) (int, int, error) {
	openPart, closePart, found := strings.Cut(value, "-")
	if !found {
		return 0, 0, fmt.Errorf("malformed hours %q", value)
	}
	open, err := parseClock(openPart)
	if err != nil {
		return 0, 0, err
	}
	closeAt, err := parseClock(closePart)
	if err != nil {
		return 0, 0, err
	}
	return open, closeAt, nil
}

func parseClock(value string) (int, error) {
	hourPart, minutePart, found := strings.Cut(strings.TrimSpace(value), ":")
	if !found {
		return 0, fmt.Errorf("malformed clock %q", value)
	}
	hour, err := strconv.Atoi(strings.TrimSpace(hourPart))
	if err != nil {
		return 0, err
	}
	minute, err := strconv.Atoi(strings.TrimSpace(minutePart))
	if err != nil {
		return 0, err
	}
	return hour*60 + minute, nil
}
