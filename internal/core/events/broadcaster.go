package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Event is one business occurrence pushed to tenant dashboards.
type Event struct {
	Type      string         `json:"type"`
	TenantID  uuid.UUID      `json:"tenant_id"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Event type constants.
const (
	TypeMessageIn          = "message_in"
	TypeMessageOut         = "message_out"
	TypeAppointmentCreated = "appointment_created"
	TypeOrderCreated       = "order_created"
	TypeComplaintCreated   = "complaint_created"
	TypeHandoffCreated     = "handoff_created"
	TypeProfileUpdated     = "profile_updated"
	TypeKnowledgeUpdated   = "knowledge_updated"
	TypeSLABreached        = "sla_breached"
)

func (e Event) JSON() []byte {
	raw, err := json.Marshal(e)
	if err != nil {
		return []byte("{}")
	}
	return raw
}

// Broadcaster fans events out to per-tenant subscribers. Publishing
// never blocks; a subscriber that cannot keep up drops events.
type Broadcaster struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]map[chan Event]struct{}
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[uuid.UUID]map[chan Event]struct{})}
}

// Subscribe registers a listener for one tenant's events. The returned
// cancel func must be called when the listener goes away.
func (b *Broadcaster) Subscribe(tenantID uuid.UUID) (<-chan Event, func()) {
	ch := make(chan Event, 16)

	b.mu.Lock()
	if b.subs[tenantID] == nil {
		b.subs[tenantID] = make(map[chan Event]struct{})
	}
	b.subs[tenantID][ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if set, ok := b.subs[tenantID]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(b.subs, tenantID)
			}
		}
		b.mu.Unlock()
		close(ch)
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber of its tenant.
func (b *Broadcaster) Publish(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subs[evt.TenantID] {
		select {
		case ch <- evt:
		default:
			log.Warn().
				Str("tenant_id", evt.TenantID.String()).
				Str("type", evt.Type).
				Msg("event subscriber buffer full, dropping event")
		}
	}
}

// SubscriberCount reports active listeners for a tenant.
func (b *Broadcaster) SubscriberCount(tenantID uuid.UUID) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[tenantID])
}
