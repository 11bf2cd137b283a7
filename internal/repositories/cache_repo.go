package repositories

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/agentdock/agentdock-be/internal/models"
)

type CacheRepo interface {
	Get(tenantID uuid.UUID, key string) (string, bool, error)
	Put(tenantID uuid.UUID, key, reply string) error
}

type cacheRepo struct {
	db *gorm.DB
}

func NewCacheRepo(db *gorm.DB) CacheRepo {
	return &cacheRepo{db: db}
}

func (r *cacheRepo) Get(tenantID uuid.UUID, key string) (string, bool, error) {
	var row models.AIReplyCache
	err := r.db.Where("tenant_id = ? AND cache_key = ?", tenantID, key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return row.ReplyText, true, nil
}

// Put inserts a cached reply; a concurrent writer winning the race is
// fine, the first stored reply stays.
func (r *cacheRepo) Put(tenantID uuid.UUID, key, reply string) error {
	row := models.AIReplyCache{TenantID: tenantID, CacheKey: key, ReplyText: reply}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "cache_key"}},
		DoNothing: true,
	}).Create(&row).Error
}

type TraceRepo interface {
	Create(trace *models.AgentTrace) error
	GetByTenant(tenantID uuid.UUID, limit int) ([]models.AgentTrace, error)
}

type traceRepo struct {
	db *gorm.DB
}

func NewTraceRepo(db *gorm.DB) TraceRepo {
	return &traceRepo{db: db}
}

func (r *traceRepo) Create(trace *models.AgentTrace) error {
	return r.db.Create(trace).Error
}

func (r *traceRepo) GetByTenant(tenantID uuid.UUID, limit int) ([]models.AgentTrace, error) {
	if limit <= 0 {
		limit = 50
	}
	var traces []models.AgentTrace
	err := r.db.Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Limit(limit).
		Find(&traces).Error
	return traces, err
}
