package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// KnowledgeChunk is one ordered, overlapping slice of a tenant's
// knowledge text. Chunks are immutable; a knowledge update replaces the
// whole set for the tenant. The content_tsv column (migrations) carries
// the full-text index used for retrieval.
type KnowledgeChunk struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	TenantID   uuid.UUID `gorm:"type:uuid;not null;index" json:"tenant_id"`
	Source     string    `gorm:"type:text;default:'tenant_knowledge'" json:"source"`
	ChunkIndex int       `gorm:"not null;default:0" json:"chunk_index"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (KnowledgeChunk) TableName() string {
	return "knowledge_chunks"
}

func (k *KnowledgeChunk) BeforeCreate(tx *gorm.DB) error {
	if k.ID == uuid.Nil {
		k.ID = uuid.New()
	}
	return nil
}
