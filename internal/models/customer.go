package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Customer is identified within a tenant by a normalized phone/handle.
// Created on first contact; name/phone are enriched opportunistically
// when learned during booking.
type Customer struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index" json:"tenant_id"`
	Name      string    `gorm:"type:text" json:"name"`
	Phone     string    `gorm:"type:text;not null;index" json:"phone"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Customer) TableName() string {
	return "customers"
}

func (c *Customer) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Message direction constants
const (
	DirectionIn  = "in"
	DirectionOut = "out"
)

// Message is one turn of the conversation transcript, append-only.
type Message struct {
	ID         uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	TenantID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"tenant_id"`
	CustomerID *uuid.UUID `gorm:"type:uuid;index" json:"customer_id"`
	Direction  string     `gorm:"type:text;not null" json:"direction"`
	Text       string     `gorm:"type:text;not null" json:"text"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (Message) TableName() string {
	return "messages"
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// CustomerState is the per-(tenant, customer) conversation memory.
// State holds the serialized state machine payload (mode, missing,
// preferences); it is read fresh at the start of every turn and
// persisted again at the end.
type CustomerState struct {
	ID            uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	TenantID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"tenant_id"`
	CustomerID    *uuid.UUID     `gorm:"type:uuid;index" json:"customer_id"`
	CustomerPhone string         `gorm:"type:text;index" json:"customer_phone"`
	State         datatypes.JSON `gorm:"type:jsonb" json:"state"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (CustomerState) TableName() string {
	return "customer_states"
}

func (s *CustomerState) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
