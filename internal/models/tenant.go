package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Tenant represents one business using the agent.
// BusinessProfile holds the structured profile JSON (services, hours,
// policies, voice/tone) edited by the owner and patched by the agent
// via UPDATE_PROFILE_FIELD.
type Tenant struct {
	ID              uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Name            string         `gorm:"type:text;not null" json:"name"`
	WhatsAppNumber  string         `gorm:"type:text;index" json:"whatsapp_number"`
	BusinessProfile datatypes.JSON `gorm:"type:jsonb" json:"business_profile"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Tenant) TableName() string {
	return "tenants"
}

func (t *Tenant) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// TenantKnowledge is the long-form knowledge/FAQ text per tenant.
// The chunked, indexed form lives in knowledge_chunks; this row keeps
// the raw text so a rebuild can always start from the full source.
type TenantKnowledge struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"tenant_id"`
	RawText   string    `gorm:"type:text" json:"raw_text"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (TenantKnowledge) TableName() string {
	return "tenant_knowledge"
}

func (k *TenantKnowledge) BeforeCreate(tx *gorm.DB) error {
	if k.ID == uuid.Nil {
		k.ID = uuid.New()
	}
	return nil
}
