package repositories

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agentdock/agentdock-be/internal/models"
)

type KnowledgeRepo interface {
	GetRawText(tenantID uuid.UUID) (string, error)
	SaveRawText(tenantID uuid.UUID, rawText string) error
}

type knowledgeRepo struct {
	db *gorm.DB
}

func NewKnowledgeRepo(db *gorm.DB) KnowledgeRepo {
	return &knowledgeRepo{db: db}
}

func (r *knowledgeRepo) GetRawText(tenantID uuid.UUID) (string, error) {
	var row models.TenantKnowledge
	err := r.db.Where("tenant_id = ?", tenantID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return row.RawText, nil
}

func (r *knowledgeRepo) SaveRawText(tenantID uuid.UUID, rawText string) error {
	var row models.TenantKnowledge
	err := r.db.Where("tenant_id = ?", tenantID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		row = models.TenantKnowledge{TenantID: tenantID, RawText: rawText}
		return r.db.Create(&row).Error
	}
	if err != nil {
		return err
	}
	return r.db.Model(&row).Update("raw_text", rawText).Error
}
