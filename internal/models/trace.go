package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AIReplyCache stores replies for repeated, side-effect-free turns.
// CacheKey is the fingerprint of (tenant, customer, message, history,
// retrieved chunk ids); only turns that produced no tool calls are
// cached.
type AIReplyCache struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index" json:"tenant_id"`
	CacheKey  string    `gorm:"type:text;not null;uniqueIndex" json:"cache_key"`
	ReplyText string    `gorm:"type:text;not null" json:"reply_text"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (AIReplyCache) TableName() string {
	return "ai_reply_cache"
}

func (c *AIReplyCache) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// AgentTrace is a per-turn observability record for the owner trace
// page. Never shown to customers.
type AgentTrace struct {
	ID            uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	TenantID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"tenant_id"`
	CustomerID    *uuid.UUID     `gorm:"type:uuid" json:"customer_id"`
	CustomerPhone string         `gorm:"type:text" json:"customer_phone"`
	MessageInID   *uuid.UUID     `gorm:"type:uuid" json:"message_in_id"`
	ModelUsed     string         `gorm:"type:text" json:"model_used"`
	KBChunkIDs    string         `gorm:"type:text" json:"kb_chunk_ids"`
	Actions       datatypes.JSON `gorm:"type:jsonb" json:"actions"`
	ToolResults   datatypes.JSON `gorm:"type:jsonb" json:"tool_results"`
	ErrorType     string         `gorm:"type:text" json:"error_type"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

func (AgentTrace) TableName() string {
	return "agent_traces"
}

func (t *AgentTrace) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
