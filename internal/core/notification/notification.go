package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/agentdock/agentdock-be/internal/models"
)

// Sender delivers a text message to one phone number. The WhatsApp
// service satisfies this; tests plug a recorder.
type Sender interface {
	SendText(ctx context.Context, to, text string) error
}

// Notifier pushes owner alerts over the messaging channel. Every call
// is best effort: a delivery failure is logged and never propagates
// into the conversation turn.
type Notifier struct {
	sender Sender
}

func NewNotifier(sender Sender) *Notifier {
	return &Notifier{sender: sender}
}

func (n *Notifier) NotifyBooking(ctx context.Context, ownerPhone string, appt *models.Appointment, serviceName string) {
	if serviceName == "" {
		serviceName = "(unspecified service)"
	}
	text := fmt.Sprintf(
		"📅 New booking!\nService: %s\nWhen: %s\nCustomer: %s\nPhone: %s",
		serviceName,
		appt.StartTime.Format("Mon, 02 Jan 2006 15:04"),
		fallback(appt.CustomerName, "(no name)"),
		fallback(appt.CustomerPhone, "(no phone)"),
	)
	n.send(ctx, ownerPhone, text, "booking")
}

func (n *Notifier) NotifyOrder(ctx context.Context, ownerPhone string, order *models.Order, items []models.OrderItem) {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		qty := item.Qty
		if qty <= 0 {
			qty = 1
		}
		lines = append(lines, fmt.Sprintf("- %dx %s", qty, item.Name))
	}
	text := fmt.Sprintf(
		"🛒 New order!\n%s\nCustomer: %s\nPhone: %s",
		strings.Join(lines, "\n"),
		fallback(order.CustomerName, "(no name)"),
		fallback(order.CustomerPhone, "(no phone)"),
	)
	if order.DueAt != nil {
		text += "\nDue by: " + order.DueAt.Format("15:04")
	}
	n.send(ctx, ownerPhone, text, "order")
}

func (n *Notifier) NotifyComplaint(ctx context.Context, ownerPhone string, complaint *models.Complaint) {
	text := fmt.Sprintf(
		"⚠️ New complaint (%s priority)\nCategory: %s\nDetails: %s\nCustomer: %s %s",
		fallback(complaint.Priority, "Medium"),
		fallback(complaint.Category, "general"),
		complaint.ComplaintDetails,
		fallback(complaint.CustomerName, "(no name)"),
		complaint.CustomerPhone,
	)
	n.send(ctx, ownerPhone, text, "complaint")
}

func (n *Notifier) NotifyHandoff(ctx context.Context, ownerPhone string, handoff *models.Handoff, customerPhone string) {
	text := fmt.Sprintf(
		"🙋 A customer needs a human!\nReason: %s\nCustomer: %s",
		fallback(handoff.Reason, "(no reason given)"),
		customerPhone,
	)
	if handoff.DueAt != nil {
		text += "\nPlease respond before " + handoff.DueAt.Format("15:04")
	}
	n.send(ctx, ownerPhone, text, "handoff")
}

func (n *Notifier) NotifySLABreach(ctx context.Context, ownerPhone, kind string, dueAt time.Time) {
	text := fmt.Sprintf(
		"⏰ SLA breached: a %s has been waiting since %s. Please follow up now.",
		kind, dueAt.Format("Mon 15:04"),
	)
	n.send(ctx, ownerPhone, text, "sla")
}

func (n *Notifier) send(ctx context.Context, to, text, kind string) {
	if n == nil || n.sender == nil || to == "" {
		return
	}
	if err := n.sender.SendText(ctx, to, text); err != nil {
		log.Warn().Err(err).Str("kind", kind).Str("to", to).Msg("owner notification failed")
	}
}

func fallback(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
