package repositories

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agentdock/agentdock-be/internal/models"
)

type OrderRepo interface {
	Create(order *models.Order) error
	GetByID(id uuid.UUID) (*models.Order, error)
	GetByTenant(tenantID uuid.UUID, limit int) ([]models.Order, error)
	Overdue(now time.Time) ([]models.Order, error)
	MarkAlerted(id uuid.UUID, note string) error
	UpdateStatus(id uuid.UUID, status string) error
	Update(order *models.Order) error
}

type orderRepo struct {
	db *gorm.DB
}

func NewOrderRepo(db *gorm.DB) OrderRepo {
	return &orderRepo{db: db}
}

func (r *orderRepo) Create(order *models.Order) error {
	return r.db.Create(order).Error
}

func (r *orderRepo) GetByID(id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepo) GetByTenant(tenantID uuid.UUID, limit int) ([]models.Order, error) {
	var orders []models.Order
	query := r.db.Where("tenant_id = ?", tenantID).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&orders).Error
	return orders, err
}

// Overdue returns pending orders whose SLA deadline has passed and
// that have not been flagged yet.
func (r *orderRepo) Overdue(now time.Time) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.Where("status = ? AND due_at IS NOT NULL AND due_at < ? AND (resolution_notes IS NULL OR resolution_notes = '')",
		models.OrderStatusPending, now).
		Order("due_at ASC").
		Find(&orders).Error
	return orders, err
}

func (r *orderRepo) MarkAlerted(id uuid.UUID, note string) error {
	return r.db.Model(&models.Order{}).
		Where("id = ?", id).
		Update("resolution_notes", note).Error
}

func (r *orderRepo) UpdateStatus(id uuid.UUID, status string) error {
	return r.db.Model(&models.Order{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *orderRepo) Update(order *models.Order) error {
	return r.db.Save(order).Error
}
