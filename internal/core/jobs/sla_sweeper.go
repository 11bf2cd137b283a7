package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/agentdock/agentdock-be/internal/core/notification"
	"github.com/agentdock/agentdock-be/internal/core/profile"
	"github.com/agentdock/agentdock-be/internal/repositories"
)

const alertNote = "SLA breached, owner alerted"

// SLASweeper periodically finds orders and handoffs that blew their
// deadline and alerts the owning business once per record.
type SLASweeper struct {
	tenants  repositories.TenantRepo
	orders   repositories.OrderRepo
	handoffs repositories.HandoffRepo
	notifier *notification.Notifier
}

func NewSLASweeper(
	tenants repositories.TenantRepo,
	orders repositories.OrderRepo,
	handoffs repositories.HandoffRepo,
	notifier *notification.Notifier,
) *SLASweeper {
	return &SLASweeper{tenants: tenants, orders: orders, handoffs: handoffs, notifier: notifier}
}

// Sweep runs one pass over both record kinds.
func (s *SLASweeper) Sweep(ctx context.Context) {
	now := time.Now()
	s.sweepOrders(ctx, now)
	s.sweepHandoffs(ctx, now)
}

func (s *SLASweeper) sweepOrders(ctx context.Context, now time.Time) {
	orders, err := s.orders.Overdue(now)
	if err != nil {
		log.Error().Err(err).Msg("overdue order query failed")
		return
	}
	for _, order := range orders {
		log.Warn().
			Str("order_id", order.ID.String()).
			Time("due_at", *order.DueAt).
			Msg("order SLA breached")
		if phone := s.ownerPhone(order.TenantID); phone != "" && s.notifier != nil {
			s.notifier.NotifySLABreach(ctx, phone, "pending order", *order.DueAt)
		}
		if err := s.orders.MarkAlerted(order.ID, alertNote); err != nil {
			log.Error().Err(err).Str("order_id", order.ID.String()).Msg("order alert flag failed")
		}
	}
}

func (s *SLASweeper) sweepHandoffs(ctx context.Context, now time.Time) {
	handoffs, err := s.handoffs.Overdue(now)
	if err != nil {
		log.Error().Err(err).Msg("overdue handoff query failed")
		return
	}
	for _, handoff := range handoffs {
		log.Warn().
			Str("handoff_id", handoff.ID.String()).
			Time("due_at", *handoff.DueAt).
			Msg("handoff SLA breached")
		if phone := s.ownerPhone(handoff.TenantID); phone != "" && s.notifier != nil {
			s.notifier.NotifySLABreach(ctx, phone, "waiting customer handoff", *handoff.DueAt)
		}
		if err := s.handoffs.MarkAlerted(handoff.ID, alertNote); err != nil {
			log.Error().Err(err).Str("handoff_id", handoff.ID.String()).Msg("handoff alert flag failed")
		}
	}
}

func (s *SLASweeper) ownerPhone(tenantID uuid.UUID) string {
	tenant, err := s.tenants.GetByID(tenantID)
	if err != nil {
		return ""
	}
	return profile.Parse(tenant.BusinessProfile).OwnerPhone()
}
