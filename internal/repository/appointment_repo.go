package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"salonbook/internal/domain"
	"salonbook/internal/pkg/dberr"
)

// ErrDuplicateAttempt is returned when an appointment already exists for the
// booking attempt.
var ErrDuplicateAttempt = errors.New("appointment already exists for booking attempt")

type AppointmentRepository struct {
	db *gorm.DB
}

func NewAppointmentRepository(db *gorm.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

func (r *AppointmentRepository) WithTx(tx *gorm.DB) *AppointmentRepository {
	return &AppointmentRepository{db: tx}
}

func (r *AppointmentRepository) Create(ctx context.Context, a *domain.Appointment) error {
	if err := r.db.WithContext(ctx).Create(a).Error; err != nil {
		if dberr.IsUniqueViolation(err) {
			return ErrDuplicateAttempt
		}
		return err
	}
	return nil
}

func (r *AppointmentRepository) GetByID(ctx context.Context, id int64) (*domain.Appointment, error) {
	var a domain.Appointment
	if err := r.db.WithContext(ctx).First(&a, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: appointment %d", domain.ErrNotFound, id)
		}
		return nil, err
	}
	return &a, nil
}

// FindByAttempt returns nil without error when the attempt has no appointment.
func (r *AppointmentRepository) FindByAttempt(ctx context.Context, attemptID string) (*domain.Appointment, error) {
	var rows []domain.Appointment
	if err := r.db.WithContext(ctx).Where("booking_attempt_id = ?", attemptID).Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *AppointmentRepository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Appointment, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var rows []domain.Appointment
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
