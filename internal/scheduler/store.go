package scheduler

import (
	"context"

	"curequeue-server/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store persists appointments and queue sequences.
type Store interface {
	// Transaction runs fn against a store bound to a single transaction.
	Transaction(ctx context.Context, fn func(tx Store) error) error
	FindUser(ctx context.Context, id string) (*models.User, error)
	// NextToken advances and locks the sequence for one doctor's day.
	NextToken(ctx context.Context, doctorID, date string) (int, error)
	CountActive(ctx context.Context, doctorID, date string) (int, error)
	CreateAppointment(ctx context.Context, appt *models.Appointment) error
	GetAppointment(ctx context.Context, id string) (*models.Appointment, error)
	// UpdateIfStatus applies updates only while the appointment is in one of
	// the from statuses and reports whether a row changed.
	UpdateIfStatus(ctx context.Context, id string, from []models.AppointmentStatus, updates map[string]interface{}) (bool, error)
	ListQueue(ctx context.Context, doctorID, date string) ([]models.Appointment, error)
}

// GormStore is the MySQL-backed Store.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func (s *GormStore) FindUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *GormStore) NextToken(ctx context.Context, doctorID, date string) (int, error) {
	db := s.db.WithContext(ctx)

	seq := models.QueueSequence{DoctorID: doctorID, Date: date, LastToken: 1}
	err := db.Clauses(clause.OnConflict{
		DoUpdates: clause.Assignments(map[string]interface{}{"last_token": gorm.Expr("last_token + 1")}),
	}).Create(&seq).Error
	if err != nil {
		return 0, err
	}

	var current models.QueueSequence
	err = db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("doctor_id = ? AND `date` = ?", doctorID, date).
		Take(&current).Error
	if err != nil {
		return 0, err
	}
	return current.LastToken, nil
}

func (s *GormStore) CountActive(ctx context.Context, doctorID, date string) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Appointment{}).
		Where("doctor_id = ? AND `date` = ? AND status IN ?", doctorID, date, models.ActiveStatuses).
		Count(&count).Error
	return int(count), err
}

func (s *GormStore) CreateAppointment(ctx context.Context, appt *models.Appointment) error {
	return s.db.WithContext(ctx).Create(appt).Error
}

func (s *GormStore) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	var appt models.Appointment
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&appt).Error; err != nil {
		return nil, err
	}
	return &appt, nil
}

func (s *GormStore) UpdateIfStatus(ctx context.Context, id string, from []models.AppointmentStatus, updates map[string]interface{}) (bool, error) {
	result := s.db.WithContext(ctx).Model(&models.Appointment{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *GormStore) ListQueue(ctx context.Context, doctorID, date string) ([]models.Appointment, error) {
	var appts []models.Appointment
	err := s.db.WithContext(ctx).
		Preload("Patient").
		Where("doctor_id = ? AND `date` = ?", doctorID, date).
		Order("token ASC").
		Find(&appts).Error
	return appts, err
}
