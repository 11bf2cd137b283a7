package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// OrderItem is one line of an order as requested by the customer.
type OrderItem struct {
	Name  string  `json:"name"`
	Qty   int     `json:"qty"`
	Price float64 `json:"price"`
}

// Order status constants
const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusFulfilled = "fulfilled"
	OrderStatusCancelled = "cancelled"
)

// Order is created by the CREATE_ORDER tool action. DueAt is the SLA
// deadline (now + ORDER_SLA_MINUTES) used by external reporting.
type Order struct {
	ID              uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	TenantID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"tenant_id"`
	CustomerID      *uuid.UUID     `gorm:"type:uuid;index" json:"customer_id"`
	CustomerName    string         `gorm:"type:text" json:"customer_name"`
	CustomerPhone   string         `gorm:"type:text" json:"customer_phone"`
	Items           datatypes.JSON `gorm:"type:jsonb;not null" json:"items"`
	TotalAmount     *float64       `gorm:"type:decimal(12,2)" json:"total_amount"`
	Status          string         `gorm:"type:text;default:'pending'" json:"status"`
	DueAt           *time.Time     `json:"due_at"`
	ResolutionNotes string         `gorm:"type:text" json:"resolution_notes"`
	ResolvedAt      *time.Time     `json:"resolved_at"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Order) TableName() string {
	return "orders"
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
