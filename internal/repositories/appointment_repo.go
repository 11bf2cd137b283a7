package repositories

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/agentdock/agentdock-be/internal/models"
)

// ErrSlotTaken means a non-cancelled appointment already holds the
// slot. The partial unique index on (tenant_id, start_time) raises it
// under concurrency; callers treat it as an idempotent duplicate.
var ErrSlotTaken = errors.New("appointment slot already booked")

type AppointmentRepo interface {
	Create(appt *models.Appointment) error
	FindActiveBySlot(tenantID uuid.UUID, startTime time.Time) (*models.Appointment, error)
	GetByTenant(tenantID uuid.UUID, limit int) ([]models.Appointment, error)
	UpdateStatus(id uuid.UUID, status string) error
}

type appointmentRepo struct {
	db *gorm.DB
}

func NewAppointmentRepo(db *gorm.DB) AppointmentRepo {
	return &appointmentRepo{db: db}
}

func (r *appointmentRepo) Create(appt *models.Appointment) error {
	err := r.db.Create(appt).Error
	if isUniqueViolation(err) {
		return ErrSlotTaken
	}
	return err
}

func (r *appointmentRepo) FindActiveBySlot(tenantID uuid.UUID, startTime time.Time) (*models.Appointment, error) {
	var appt models.Appointment
	err := r.db.Where("tenant_id = ? AND start_time = ? AND status <> ?",
		tenantID, startTime, models.AppointmentStatusCancelled).
		First(&appt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &appt, nil
}

func (r *appointmentRepo) GetByTenant(tenantID uuid.UUID, limit int) ([]models.Appointment, error) {
	var appts []models.Appointment
	query := r.db.Where("tenant_id = ?", tenantID).Order("start_time ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&appts).Error
	return appts, err
}

func (r *appointmentRepo) UpdateStatus(id uuid.UUID, status string) error {
	return r.db.Model(&models.Appointment{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	// SQLite (tests against a file store) reports the same condition as
	// a constraint message rather than a SQLSTATE.
	return strings.Contains(err.Error(), "duplicate key") ||
		strings.Contains(err.Error(), "UNIQUE constraint failed")
}

type ServiceRepo interface {
	GetByTenant(tenantID uuid.UUID) ([]models.Service, error)
	FindByName(tenantID uuid.UUID, name string) (*models.Service, error)
	Create(service *models.Service) error
}

type serviceRepo struct {
	db *gorm.DB
}

func NewServiceRepo(db *gorm.DB) ServiceRepo {
	return &serviceRepo{db: db}
}

func (r *serviceRepo) GetByTenant(tenantID uuid.UUID) ([]models.Service, error) {
	var services []models.Service
	err := r.db.Where("tenant_id = ?", tenantID).Order("name ASC").Find(&services).Error
	return services, err
}

func (r *serviceRepo) FindByName(tenantID uuid.UUID, name string) (*models.Service, error) {
	var service models.Service
	err := r.db.Where("tenant_id = ? AND LOWER(name) = LOWER(?)", tenantID, strings.TrimSpace(name)).
		First(&service).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &service, nil
}

func (r *serviceRepo) Create(service *models.Service) error {
	return r.db.Create(service).Error
}
