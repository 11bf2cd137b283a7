package repositories

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/agentdock/agentdock-be/internal/models"
)

type TenantRepo interface {
	Create(tenant *models.Tenant) error
	GetByID(id uuid.UUID) (*models.Tenant, error)
	GetByWhatsAppNumber(number string) (*models.Tenant, error)
	List() ([]models.Tenant, error)
	UpdateProfile(id uuid.UUID, profile datatypes.JSON) error
	Update(tenant *models.Tenant) error
}

type tenantRepo struct {
	db *gorm.DB
}

func NewTenantRepo(db *gorm.DB) TenantRepo {
	return &tenantRepo{db: db}
}

func (r *tenantRepo) Create(tenant *models.Tenant) error {
	return r.db.Create(tenant).Error
}

func (r *tenantRepo) GetByID(id uuid.UUID) (*models.Tenant, error) {
	var tenant models.Tenant
	err := r.db.First(&tenant, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

func (r *tenantRepo) GetByWhatsAppNumber(number string) (*models.Tenant, error) {
	var tenant models.Tenant
	err := r.db.Where("whatsapp_number = ?", number).First(&tenant).Error
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

func (r *tenantRepo) List() ([]models.Tenant, error) {
	var tenants []models.Tenant
	err := r.db.Order("created_at ASC").Find(&tenants).Error
	return tenants, err
}

func (r *tenantRepo) UpdateProfile(id uuid.UUID, profile datatypes.JSON) error {
	return r.db.Model(&models.Tenant{}).
		Where("id = ?", id).
		Update("business_profile", profile).Error
}

func (r *tenantRepo) Update(tenant *models.Tenant) error {
	return r.db.Save(tenant).Error
}
