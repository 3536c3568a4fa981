package slots

import (
	"context"
	"time"

	"salonbook/internal/domain"
	"salonbook/internal/repository"
)

type SalonReader interface {
	GetSalon(ctx context.Context, id int64) (*domain.Salon, error)
}

type SlotStore interface {
	ListForStylist(ctx context.Context, stylistID int64, from, to time.Time) ([]domain.TimeSlot, error)
	CreateMissing(ctx context.Context, slots []domain.TimeSlot) (int64, error)
	ListAvailable(ctx context.Context, f repository.SlotFilter) ([]domain.TimeSlot, error)
	GetByIDs(ctx context.Context, ids []int64) ([]domain.TimeSlot, error)
	Cancel(ctx context.Context, ids []int64) ([]domain.TimeSlot, error)
}
