package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Complaint status constants
const (
	ComplaintStatusPending    = "Pending"
	ComplaintStatusInProgress = "In-Progress"
	ComplaintStatusResolved   = "Resolved"
	ComplaintStatusEscalated  = "Escalated"
	ComplaintStatusReopened   = "Reopened"
)

// Complaint is created by the CREATE_COMPLAINT tool action.
type Complaint struct {
	ID               uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	TenantID         uuid.UUID  `gorm:"type:uuid;not null;index" json:"tenant_id"`
	CustomerID       *uuid.UUID `gorm:"type:uuid;index" json:"customer_id"`
	CustomerName     string     `gorm:"type:text" json:"customer_name"`
	CustomerPhone    string     `gorm:"type:text" json:"customer_phone"`
	ComplaintDetails string     `gorm:"type:text;not null" json:"complaint_details"`
	Category         string     `gorm:"type:text" json:"category"`
	Priority         string     `gorm:"type:text;default:'Medium'" json:"priority"`
	Status           string     `gorm:"type:text;default:'Pending'" json:"status"`
	Notes            string     `gorm:"type:text" json:"notes"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	ResolvedAt       *time.Time `json:"resolved_at"`
}

func (Complaint) TableName() string {
	return "complaints"
}

func (c *Complaint) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Handoff status constants
const (
	HandoffStatusOpen     = "open"
	HandoffStatusResolved = "resolved"
)

// Handoff is an escalation to a human, created by ESCALATE_TO_HUMAN.
// DueAt is the SLA deadline (now + HANDOFF_SLA_MINUTES).
type Handoff struct {
	ID              uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	TenantID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"tenant_id"`
	CustomerID      *uuid.UUID `gorm:"type:uuid;index" json:"customer_id"`
	Reason          string     `gorm:"type:text" json:"reason"`
	Status          string     `gorm:"type:text;default:'open'" json:"status"`
	DueAt           *time.Time `json:"due_at"`
	ResolutionNotes string     `gorm:"type:text" json:"resolution_notes"`
	ResolvedAt      *time.Time `json:"resolved_at"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Handoff) TableName() string {
	return "handoffs"
}

func (h *Handoff) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}
