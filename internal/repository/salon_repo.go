package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"salonbook/internal/domain"
)

// SalonRepository is a read-only view over catalog tables.
type SalonRepository struct {
	db *gorm.DB
}

func NewSalonRepository(db *gorm.DB) *SalonRepository {
	return &SalonRepository{db: db}
}

// GetSalon loads a salon with its services and every stylist's services
// and working hours.
func (r *SalonRepository) GetSalon(ctx context.Context, id int64) (*domain.Salon, error) {
	var s domain.Salon
	err := r.db.WithContext(ctx).
		Preload("Services").
		Preload("Stylists.Services").
		Preload("Stylists.WorkingHours").
		First(&s, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: salon %d", domain.ErrNotFound, id)
		}
		return nil, err
	}
	return &s, nil
}
