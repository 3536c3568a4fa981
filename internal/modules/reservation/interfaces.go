package reservation

import (
	"context"
	"time"

	"salonbook/internal/domain"
)

// SlotStore is the subset of the slot repository the hold lifecycle needs.
type SlotStore interface {
	GetByIDs(ctx context.Context, ids []int64) ([]domain.TimeSlot, error)
	ListByAttempt(ctx context.Context, attemptID string) ([]domain.TimeSlot, error)
	ListExpired(ctx context.Context, now time.Time, limit int) ([]domain.TimeSlot, error)
	Reserve(ctx context.Context, ids []int64, until time.Time, attemptID string, userID int64) ([]domain.TimeSlot, error)
	ApplyTransition(ctx context.Context, observed []domain.TimeSlot, t domain.SlotTransition) ([]domain.TimeSlot, error)
}

// ReleaseNotifier is told about holds that were given back, after the write
// committed. Implementations must not block.
type ReleaseNotifier interface {
	HoldReleased(ctx context.Context, attemptID string, slotIDs []int64, reason string)
}
