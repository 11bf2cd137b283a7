package repositories

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/agentdock/agentdock-be/internal/models"
)

type CustomerRepo interface {
	GetOrCreate(tenantID uuid.UUID, phone string) (*models.Customer, error)
	Enrich(id uuid.UUID, name, phone string) error
	GetByID(id uuid.UUID) (*models.Customer, error)
}

type customerRepo struct {
	db *gorm.DB
}

func NewCustomerRepo(db *gorm.DB) CustomerRepo {
	return &customerRepo{db: db}
}

func (r *customerRepo) GetOrCreate(tenantID uuid.UUID, phone string) (*models.Customer, error) {
	var customer models.Customer
	err := r.db.Where("tenant_id = ? AND phone = ?", tenantID, phone).First(&customer).Error
	if err == nil {
		return &customer, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	customer = models.Customer{TenantID: tenantID, Phone: phone}
	if err := r.db.Create(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

// Enrich fills in name/phone learned mid-conversation. Empty values and
// synthetic web handles never overwrite existing data.
func (r *customerRepo) Enrich(id uuid.UUID, name, phone string) error {
	updates := map[string]any{}
	if name = strings.TrimSpace(name); name != "" {
		updates["name"] = name
	}
	if phone = strings.TrimSpace(phone); phone != "" && !strings.HasPrefix(phone, "web") {
		updates["phone"] = phone
	}
	if len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.Customer{}).Where("id = ?", id).Updates(updates).Error
}

func (r *customerRepo) GetByID(id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	err := r.db.First(&customer, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

type MessageRepo interface {
	Append(msg *models.Message) error
	Recent(tenantID, customerID uuid.UUID, limit int) ([]models.Message, error)
}

type messageRepo struct {
	db *gorm.DB
}

func NewMessageRepo(db *gorm.DB) MessageRepo {
	return &messageRepo{db: db}
}

func (r *messageRepo) Append(msg *models.Message) error {
	return r.db.Create(msg).Error
}

// Recent returns the last messages in chronological order.
func (r *messageRepo) Recent(tenantID, customerID uuid.UUID, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = 12
	}
	var messages []models.Message
	err := r.db.Where("tenant_id = ? AND customer_id = ?", tenantID, customerID).
		Order("created_at DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

type StateRepo interface {
	Get(tenantID, customerID uuid.UUID) (datatypes.JSON, error)
	Save(tenantID, customerID uuid.UUID, phone string, state datatypes.JSON) error
}

type stateRepo struct {
	db *gorm.DB
}

func NewStateRepo(db *gorm.DB) StateRepo {
	return &stateRepo{db: db}
}

func (r *stateRepo) Get(tenantID, customerID uuid.UUID) (datatypes.JSON, error) {
	var row models.CustomerState
	err := r.db.Where("tenant_id = ? AND customer_id = ?", tenantID, customerID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row.State, nil
}

func (r *stateRepo) Save(tenantID, customerID uuid.UUID, phone string, state datatypes.JSON) error {
	var row models.CustomerState
	err := r.db.Where("tenant_id = ? AND customer_id = ?", tenantID, customerID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		row = models.CustomerState{
			TenantID:      tenantID,
			CustomerID:    &customerID,
			CustomerPhone: phone,
			State:         state,
		}
		return r.db.Create(&row).Error
	}
	if err != nil {
		return err
	}
	return r.db.Model(&row).Update("state", state).Error
}
