package homevisit

import (
	"context"

	"curequeue-server/internal/models"

	"gorm.io/gorm"
)

// Filter narrows a visit listing. Empty fields match everything.
type Filter struct {
	DoctorID  string
	PatientID string
}

// Store persists home visits.
type Store interface {
	FindUser(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, visit *models.HomeVisit) error
	Get(ctx context.Context, id string) (*models.HomeVisit, error)
	// UpdateIfStatus applies updates while the visit is in one of the from
	// statuses and reports whether a row changed.
	UpdateIfStatus(ctx context.Context, id string, from []models.HomeVisitStatus, updates map[string]interface{}) (bool, error)
	List(ctx context.Context, filter Filter) ([]models.HomeVisit, error)
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) FindUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *GormStore) Create(ctx context.Context, visit *models.HomeVisit) error {
	return s.db.WithContext(ctx).Create(visit).Error
}

func (s *GormStore) Get(ctx context.Context, id string) (*models.HomeVisit, error) {
	var visit models.HomeVisit
	err := s.db.WithContext(ctx).
		Preload("Patient").
		Preload("Doctor").
		Where("id = ?", id).
		First(&visit).Error
	if err != nil {
		return nil, err
	}
	return &visit, nil
}

func (s *GormStore) UpdateIfStatus(ctx context.Context, id string, from []models.HomeVisitStatus, updates map[string]interface{}) (bool, error) {
	result := s.db.WithContext(ctx).Model(&models.HomeVisit{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *GormStore) List(ctx context.Context, filter Filter) ([]models.HomeVisit, error) {
	query := s.db.WithContext(ctx).Preload("Patient").Preload("Doctor")
	if filter.DoctorID != "" {
		query = query.Where("doctor_id = ?", filter.DoctorID)
	}
	if filter.PatientID != "" {
		query = query.Where("patient_id = ?", filter.PatientID)
	}

	var visits []models.HomeVisit
	err := query.Order("created_at DESC").Find(&visits).Error
	return visits, err
}
