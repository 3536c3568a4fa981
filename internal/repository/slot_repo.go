package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"salonbook/internal/domain"
)

// SlotRepository is the slot store. Every state change goes through
// ApplyTransition, which writes each row conditionally on the version the
// caller observed and rolls the whole set back on the first mismatch.
type SlotRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewSlotRepository(db *gorm.DB) *SlotRepository {
	return &SlotRepository{db: db, now: time.Now}
}

// WithTx binds the repository to an open transaction.
func (r *SlotRepository) WithTx(tx *gorm.DB) *SlotRepository {
	return &SlotRepository{db: tx, now: r.now}
}

type SlotFilter struct {
	SalonID    int64
	StylistIDs []int64
	From       time.Time
	To         time.Time
}

// CreateMissing inserts candidates, silently skipping any window that
// already exists for the same stylist and start time.
func (r *SlotRepository) CreateMissing(ctx context.Context, slots []domain.TimeSlot) (int64, error) {
	if len(slots) == 0 {
		return 0, nil
	}
	for i := range slots {
		slots[i].StartTime = slots[i].StartTime.UTC()
		slots[i].EndTime = slots[i].EndTime.UTC()
		if slots[i].Status == "" {
			slots[i].Status = domain.SlotAvailable
		}
		if slots[i].Version == 0 {
			slots[i].Version = 1
		}
	}

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "stylist_id"}, {Name: "start_time"}},
			DoNothing: true,
		}).
		Create(&slots)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// ListForStylist returns every persisted slot of a stylist, in any status,
// that intersects [from, to).
func (r *SlotRepository) ListForStylist(ctx context.Context, stylistID int64, from, to time.Time) ([]domain.TimeSlot, error) {
	var rows []domain.TimeSlot
	err := r.db.WithContext(ctx).
		Where("stylist_id = ?", stylistID).
		Where("start_time < ? AND end_time > ?", to.UTC(), from.UTC()).
		Order("start_time").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *SlotRepository) ListAvailable(ctx context.Context, f SlotFilter) ([]domain.TimeSlot, error) {
	q := r.db.WithContext(ctx).
		Where("salon_id = ?", f.SalonID).
		Where("status = ?", domain.SlotAvailable).
		Where("start_time >= ? AND start_time < ?", f.From.UTC(), f.To.UTC())
	if len(f.StylistIDs) > 0 {
		q = q.Where("stylist_id IN ?", f.StylistIDs)
	}

	var rows []domain.TimeSlot
	if err := q.Order("start_time, stylist_id").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// GetByIDs loads exactly the requested slots ordered by id. A missing id is
// reported as ErrNotFound.
func (r *SlotRepository) GetByIDs(ctx context.Context, ids []int64) ([]domain.TimeSlot, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no slot ids", domain.ErrValidation)
	}

	var rows []domain.TimeSlot
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) != len(ids) {
		return nil, fmt.Errorf("%w: %d of %d slots exist", domain.ErrNotFound, len(rows), len(ids))
	}
	return rows, nil
}

func (r *SlotRepository) ListByAttempt(ctx context.Context, attemptID string) ([]domain.TimeSlot, error) {
	var rows []domain.TimeSlot
	err := r.db.WithContext(ctx).
		Where("booking_attempt_id = ?", attemptID).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListExpired returns reserved slots whose hold ended at or before now.
func (r *SlotRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]domain.TimeSlot, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []domain.TimeSlot
	err := r.db.WithContext(ctx).
		Where("status = ? AND reserved_until <= ?", domain.SlotReserved, now.UTC()).
		Order("reserved_until").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ApplyTransition applies t to every observed slot and persists the result
// with a compare-and-swap on version. Either all rows change or none do.
func (r *SlotRepository) ApplyTransition(ctx context.Context, observed []domain.TimeSlot, t domain.SlotTransition) ([]domain.TimeSlot, error) {
	if len(observed) == 0 {
		return nil, fmt.Errorf("%w: no slots", domain.ErrValidation)
	}

	out := make([]domain.TimeSlot, 0, len(observed))
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := r.now().UTC()
		for _, cur := range observed {
			next := cur
			if err := t(&next); err != nil {
				return err
			}
			next.Version = cur.Version + 1
			next.UpdatedAt = now
			if next.ReservedUntil != nil {
				u := next.ReservedUntil.UTC()
				next.ReservedUntil = &u
			}

			res := tx.Model(&domain.TimeSlot{}).
				Where("id = ? AND version = ?", cur.ID, cur.Version).
				Updates(map[string]interface{}{
					"status":             next.Status,
					"version":            next.Version,
					"reserved_until":     next.ReservedUntil,
					"booking_attempt_id": next.BookingAttemptID,
					"holder_user_id":     next.HolderUserID,
					"updated_at":         next.UpdatedAt,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("%w: slot %d changed since version %d", domain.ErrSlotConflict, cur.ID, cur.Version)
			}
			out = append(out, next)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Reserve moves available slots to reserved for one booking attempt.
func (r *SlotRepository) Reserve(ctx context.Context, ids []int64, until time.Time, attemptID string, userID int64) ([]domain.TimeSlot, error) {
	return r.transitionByIDs(ctx, ids, domain.ReserveTransition(until, attemptID, userID))
}

// Commit books the slots. With a non-empty attemptID, reserved slots must be
// held by that attempt.
func (r *SlotRepository) Commit(ctx context.Context, ids []int64, attemptID string) ([]domain.TimeSlot, error) {
	return r.transitionByIDs(ctx, ids, domain.BookTransition(attemptID))
}

func (r *SlotRepository) Release(ctx context.Context, ids []int64) ([]domain.TimeSlot, error) {
	return r.transitionByIDs(ctx, ids, domain.ReleaseTransition())
}

func (r *SlotRepository) Extend(ctx context.Context, ids []int64, until time.Time) ([]domain.TimeSlot, error) {
	return r.transitionByIDs(ctx, ids, domain.ExtendTransition(until))
}

func (r *SlotRepository) Cancel(ctx context.Context, ids []int64) ([]domain.TimeSlot, error) {
	return r.transitionByIDs(ctx, ids, domain.CancelTransition())
}

func (r *SlotRepository) transitionByIDs(ctx context.Context, ids []int64, t domain.SlotTransition) ([]domain.TimeSlot, error) {
	var out []domain.TimeSlot
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := r.WithTx(tx)
		observed, err := repo.GetByIDs(ctx, ids)
		if err != nil {
			return err
		}
		out, err = repo.ApplyTransition(ctx, observed, t)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
