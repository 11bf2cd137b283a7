package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service is a bookable/quotable service offered by a tenant.
// Services can also live only inside the business profile JSON; rows
// here take precedence for pricing lookups.
type Service struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	TenantID        uuid.UUID `gorm:"type:uuid;not null;index" json:"tenant_id"`
	Name            string    `gorm:"type:text;not null" json:"name"`
	Description     string    `gorm:"type:text" json:"description"`
	DurationMinutes *int      `json:"duration_minutes"`
	Price           *float64  `gorm:"type:decimal(12,2)" json:"price"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Service) TableName() string {
	return "services"
}

func (s *Service) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// Appointment status constants
const (
	AppointmentStatusPending   = "pending"
	AppointmentStatusConfirmed = "confirmed"
	AppointmentStatusCancelled = "cancelled"
)

// Appointment is a booking for one slot. At most one non-cancelled row
// may exist per (tenant_id, start_time); the partial unique index in the
// migrations is the authority for that invariant.
type Appointment struct {
	ID            uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	TenantID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"tenant_id"`
	CustomerID    *uuid.UUID `gorm:"type:uuid;index" json:"customer_id"`
	ServiceID     *uuid.UUID `gorm:"type:uuid" json:"service_id"`
	CustomerName  string     `gorm:"type:text" json:"customer_name"`
	CustomerPhone string     `gorm:"type:text" json:"customer_phone"`
	StartTime     time.Time  `gorm:"not null;index" json:"start_time"`
	Status        string     `gorm:"type:text;default:'pending'" json:"status"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Appointment) TableName() string {
	return "appointments"
}

func (a *Appointment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
