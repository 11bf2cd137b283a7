package repositories

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agentdock/agentdock-be/internal/models"
)

type ComplaintRepo interface {
	Create(complaint *models.Complaint) error
	GetByTenant(tenantID uuid.UUID, limit int) ([]models.Complaint, error)
	UpdateStatus(id uuid.UUID, status, notes string) error
}

type complaintRepo struct {
	db *gorm.DB
}

func NewComplaintRepo(db *gorm.DB) ComplaintRepo {
	return &complaintRepo{db: db}
}

func (r *complaintRepo) Create(complaint *models.Complaint) error {
	return r.db.Create(complaint).Error
}

func (r *complaintRepo) GetByTenant(tenantID uuid.UUID, limit int) ([]models.Complaint, error) {
	var complaints []models.Complaint
	query := r.db.Where("tenant_id = ?", tenantID).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&complaints).Error
	return complaints, err
}

func (r *complaintRepo) UpdateStatus(id uuid.UUID, status, notes string) error {
	updates := map[string]any{"status": status}
	if notes != "" {
		updates["notes"] = notes
	}
	if status == models.ComplaintStatusResolved {
		now := time.Now()
		updates["resolved_at"] = &now
	}
	return r.db.Model(&models.Complaint{}).Where("id = ?", id).Updates(updates).Error
}

type HandoffRepo interface {
	Create(handoff *models.Handoff) error
	GetOpenByTenant(tenantID uuid.UUID) ([]models.Handoff, error)
	Overdue(now time.Time) ([]models.Handoff, error)
	MarkAlerted(id uuid.UUID, note string) error
	Resolve(id uuid.UUID, notes string) error
}

type handoffRepo struct {
	db *gorm.DB
}

func NewHandoffRepo(db *gorm.DB) HandoffRepo {
	return &handoffRepo{db: db}
}

func (r *handoffRepo) Create(handoff *models.Handoff) error {
	return r.db.Create(handoff).Error
}

func (r *handoffRepo) GetOpenByTenant(tenantID uuid.UUID) ([]models.Handoff, error) {
	var handoffs []models.Handoff
	err := r.db.Where("tenant_id = ? AND status = ?", tenantID, models.HandoffStatusOpen).
		Order("created_at ASC").
		Find(&handoffs).Error
	return handoffs, err
}

// Overdue returns open handoffs whose SLA deadline has passed and that
// have not been flagged yet.
func (r *handoffRepo) Overdue(now time.Time) ([]models.Handoff, error) {
	var handoffs []models.Handoff
	err := r.db.Where("status = ? AND due_at IS NOT NULL AND due_at < ? AND (resolution_notes IS NULL OR resolution_notes = '')",
		models.HandoffStatusOpen, now).
		Order("due_at ASC").
		Find(&handoffs).Error
	return handoffs, err
}

func (r *handoffRepo) MarkAlerted(id uuid.UUID, note string) error {
	return r.db.Model(&models.Handoff{}).
		Where("id = ?", id).
		Update("resolution_notes", note).Error
}

func (r *handoffRepo) Resolve(id uuid.UUID, notes string) error {
	now := time.Now()
	return r.db.Model(&models.Handoff{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":           models.HandoffStatusResolved,
			"resolution_notes": notes,
			"resolved_at":      &now,
		}).Error
}
