package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"salonbook/internal/domain"
	"salonbook/internal/pkg/metrics"
)

const (
	ReleaseReasonExpired    = "expired"
	ReleaseReasonCompensate = "compensate"
)

// Manager places, checks, renews and gives back time-boxed holds on slots.
// A hold is identified by its booking attempt id and the user that placed it.
type Manager struct {
	slots    SlotStore
	notifier ReleaseNotifier
	now      func() time.Time
}

func NewManager(slots SlotStore, notifier ReleaseNotifier) *Manager {
	return &Manager{slots: slots, notifier: notifier, now: time.Now}
}

// SetClock replaces the wall clock, for tests.
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

// Hold reserves every slot for attemptID until now+ttl, or none of them.
func (m *Manager) Hold(ctx context.Context, slotIDs []int64, ttl time.Duration, attemptID string, userID int64) (time.Time, error) {
	if ttl <= 0 {
		return time.Time{}, fmt.Errorf("%w: hold ttl must be positive", domain.ErrValidation)
	}
	if attemptID == "" {
		return time.Time{}, fmt.Errorf("%w: booking attempt id is required", domain.ErrValidation)
	}

	until := m.now().Add(ttl).UTC()
	if _, err := m.slots.Reserve(ctx, slotIDs, until, attemptID, userID); err != nil {
		if errors.Is(err, domain.ErrSlotConflict) {
			metrics.IncSlotConflict("hold")
		}
		return time.Time{}, err
	}
	return until, nil
}

// Verify returns the slots when all of them are still held by attemptID for
// userID and slotIDs name the whole hold. A hold past its deadline is
// ErrReservationExpired even if the reaper has not run yet.
func (m *Manager) Verify(ctx context.Context, slotIDs []int64, attemptID string, userID int64) ([]domain.TimeSlot, error) {
	if attemptID == "" {
		return nil, fmt.Errorf("%w: booking attempt id is required", domain.ErrValidation)
	}

	slots, err := m.slots.GetByIDs(ctx, slotIDs)
	if err != nil {
		return nil, err
	}

	now := m.now()
	for i := range slots {
		s := &slots[i]
		if !s.IsHeldBy(attemptID) || s.HolderUserID == nil || *s.HolderUserID != userID {
			return nil, fmt.Errorf("%w: slot %d is not held by this booking attempt", domain.ErrSlotConflict, s.ID)
		}
		if s.Expired(now) {
			return nil, fmt.Errorf("%w: slot %d hold ended at %s", domain.ErrReservationExpired, s.ID, s.ReservedUntil.Format(time.RFC3339))
		}
	}

	// A partial checkout would strand the rest of the hold behind an attempt
	// that already produced an appointment.
	stamped, err := m.slots.ListByAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	requested := make(map[int64]struct{}, len(slots))
	for _, s := range slots {
		requested[s.ID] = struct{}{}
	}
	for _, s := range stamped {
		if _, ok := requested[s.ID]; !ok && s.IsHeldBy(attemptID) {
			return nil, fmt.Errorf("%w: slot %d is also held by this booking attempt", domain.ErrValidation, s.ID)
		}
	}
	return slots, nil
}

// Extend renews an existing hold in place; it never creates a second one.
func (m *Manager) Extend(ctx context.Context, slotIDs []int64, attemptID string, userID int64, ttl time.Duration) (time.Time, error) {
	if ttl <= 0 {
		return time.Time{}, fmt.Errorf("%w: hold ttl must be positive", domain.ErrValidation)
	}

	held, err := m.Verify(ctx, slotIDs, attemptID, userID)
	if err != nil {
		return time.Time{}, err
	}

	until := m.now().Add(ttl).UTC()
	if _, err := m.slots.ApplyTransition(ctx, held, domain.ExtendTransition(until)); err != nil {
		if errors.Is(err, domain.ErrSlotConflict) {
			metrics.IncSlotConflict("extend")
		}
		return time.Time{}, err
	}
	return until, nil
}

// ReleaseAttempt gives back the slots still held by attemptID. Slots already
// booked, reaped or taken by another attempt are left alone. With no ids
// every slot stamped with the attempt is considered.
func (m *Manager) ReleaseAttempt(ctx context.Context, slotIDs []int64, attemptID string) (int, error) {
	if attemptID == "" {
		return 0, nil
	}

	var (
		candidates []domain.TimeSlot
		err        error
	)
	if len(slotIDs) == 0 {
		candidates, err = m.slots.ListByAttempt(ctx, attemptID)
	} else {
		candidates, err = m.slots.GetByIDs(ctx, slotIDs)
	}
	if err != nil {
		return 0, err
	}

	held := make([]domain.TimeSlot, 0, len(candidates))
	for _, s := range candidates {
		if s.IsHeldBy(attemptID) {
			held = append(held, s)
		}
	}
	if len(held) == 0 {
		return 0, nil
	}

	released, err := m.slots.ApplyTransition(ctx, held, domain.ReleaseTransition())
	if err != nil {
		if errors.Is(err, domain.ErrSlotConflict) {
			metrics.IncSlotConflict("release")
		}
		return 0, err
	}

	metrics.AddHoldsReleased(ReleaseReasonCompensate, len(released))
	m.notify(ctx, attemptID, released, ReleaseReasonCompensate)
	return len(released), nil
}

func (m *Manager) notify(ctx context.Context, attemptID string, slots []domain.TimeSlot, reason string) {
	if m.notifier == nil || len(slots) == 0 {
		return
	}
	ids := make([]int64, 0, len(slots))
	for _, s := range slots {
		ids = append(ids, s.ID)
	}
	m.notifier.HoldReleased(ctx, attemptID, ids, reason)
}
