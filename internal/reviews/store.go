package reviews

import (
	"context"

	"curequeue-server/internal/models"

	"gorm.io/gorm"
)

// Aggregate holds one doctor's review totals.
type Aggregate struct {
	DoctorID  string
	Total     int64
	RatingSum int64
}

// Store persists reviews and reads the data behind doctor ratings.
type Store interface {
	GetAppointment(ctx context.Context, id string) (*models.Appointment, error)
	HasReview(ctx context.Context, appointmentID, userID string) (bool, error)
	Create(ctx context.Context, review *models.Review) error
	ListByDoctor(ctx context.Context, doctorID string) ([]models.Review, error)
	ListDoctors(ctx context.Context) ([]models.User, error)
	Aggregates(ctx context.Context) ([]Aggregate, error)
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	var appt models.Appointment
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&appt).Error; err != nil {
		return nil, err
	}
	return &appt, nil
}

func (s *GormStore) HasReview(ctx context.Context, appointmentID, userID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Review{}).
		Where("appointment_id = ? AND user_id = ?", appointmentID, userID).
		Count(&count).Error
	return count > 0, err
}

func (s *GormStore) Create(ctx context.Context, review *models.Review) error {
	return s.db.WithContext(ctx).Create(review).Error
}

func (s *GormStore) ListByDoctor(ctx context.Context, doctorID string) ([]models.Review, error) {
	var reviews []models.Review
	err := s.db.WithContext(ctx).
		Preload("Patient").
		Where("doctor_id = ?", doctorID).
		Order("created_at DESC").
		Find(&reviews).Error
	return reviews, err
}

func (s *GormStore) ListDoctors(ctx context.Context) ([]models.User, error) {
	var doctors []models.User
	err := s.db.WithContext(ctx).
		Where("role = ?", models.RoleDoctor).
		Order("first_name ASC, last_name ASC").
		Find(&doctors).Error
	return doctors, err
}

func (s *GormStore) Aggregates(ctx context.Context) ([]Aggregate, error) {
	var aggs []Aggregate
	err := s.db.WithContext(ctx).Model(&models.Review{}).
		Select("doctor_id, COUNT(*) AS total, SUM(rating) AS rating_sum").
		Where("doctor_id <> ''").
		Group("doctor_id").
		Scan(&aggs).Error
	return aggs, err
}
