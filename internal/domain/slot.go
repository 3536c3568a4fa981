package domain

import (
	"fmt"
	"time"
)

type SlotStatus string

const (
	SlotAvailable SlotStatus = "available"
	SlotReserved  SlotStatus = "reserved"
	SlotBooked    SlotStatus = "booked"
	SlotCancelled SlotStatus = "cancelled"
)

// TimeSlot is one bookable window of a stylist. Rows are never deleted,
// only transitioned; Version grows by one on every accepted write.
type TimeSlot struct {
	ID               int64      `json:"id" gorm:"primaryKey"`
	SalonID          int64      `json:"salon_id" gorm:"not null;index:idx_slots_salon_start,priority:1"`
	StylistID        int64      `json:"stylist_id" gorm:"not null;uniqueIndex:idx_slots_stylist_start,priority:1"`
	StartTime        time.Time  `json:"start_time" gorm:"not null;uniqueIndex:idx_slots_stylist_start,priority:2;index:idx_slots_salon_start,priority:2"`
	EndTime          time.Time  `json:"end_time" gorm:"not null"`
	Status           SlotStatus `json:"status" gorm:"type:varchar(16);not null;default:'available';index:idx_slots_status_until,priority:1"`
	Version          int64      `json:"version" gorm:"not null;default:1"`
	ReservedUntil    *time.Time `json:"reserved_until,omitempty" gorm:"index:idx_slots_status_until,priority:2"`
	BookingAttemptID *string    `json:"booking_attempt_id,omitempty" gorm:"type:varchar(64);index"`
	HolderUserID     *int64     `json:"holder_user_id,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (TimeSlot) TableName() string { return "time_slots" }

// Duration is the slot width including the inter-appointment buffer.
func (s *TimeSlot) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}

// Overlaps uses half-open intervals: touching windows do not overlap.
func (s *TimeSlot) Overlaps(start, end time.Time) bool {
	return start.Before(s.EndTime) && end.After(s.StartTime)
}

func (s *TimeSlot) IsHeldBy(attemptID string) bool {
	return s.Status == SlotReserved && s.BookingAttemptID != nil && *s.BookingAttemptID == attemptID
}

func (s *TimeSlot) Expired(now time.Time) bool {
	return s.Status == SlotReserved && s.ReservedUntil != nil && !s.ReservedUntil.After(now)
}

// SlotTransition mutates a copy of an observed slot. It returns an error
// wrapping ErrSlotConflict when the slot is not in an accepted source state.
type SlotTransition func(s *TimeSlot) error

func ReserveTransition(until time.Time, attemptID string, userID int64) SlotTransition {
	return func(s *TimeSlot) error {
		if s.Status != SlotAvailable {
			return invalidTransition(s, SlotReserved)
		}
		u, a, h := until, attemptID, userID
		s.Status = SlotReserved
		s.ReservedUntil = &u
		s.BookingAttemptID = &a
		s.HolderUserID = &h
		return nil
	}
}

// ExtendTransition renews an existing hold without changing its owner.
func ExtendTransition(until time.Time) SlotTransition {
	return func(s *TimeSlot) error {
		if s.Status != SlotReserved {
			return invalidTransition(s, SlotReserved)
		}
		u := until
		s.ReservedUntil = &u
		return nil
	}
}

// BookTransition accepts slots reserved by attemptID and, for the wallet
// path, slots that are still available. The attempt stamp is kept for audit.
func BookTransition(attemptID string) SlotTransition {
	return func(s *TimeSlot) error {
		switch s.Status {
		case SlotReserved:
			if attemptID != "" && !s.IsHeldBy(attemptID) {
				return fmt.Errorf("%w: slot %d is held by another booking attempt", ErrSlotConflict, s.ID)
			}
		case SlotAvailable:
			if attemptID != "" {
				a := attemptID
				s.BookingAttemptID = &a
			}
		default:
			return invalidTransition(s, SlotBooked)
		}
		s.Status = SlotBooked
		s.ReservedUntil = nil
		return nil
	}
}

func ReleaseTransition() SlotTransition {
	return func(s *TimeSlot) error {
		if s.Status != SlotReserved {
			return invalidTransition(s, SlotAvailable)
		}
		s.Status = SlotAvailable
		s.ReservedUntil = nil
		s.BookingAttemptID = nil
		s.HolderUserID = nil
		return nil
	}
}

func CancelTransition() SlotTransition {
	return func(s *TimeSlot) error {
		if s.Status != SlotAvailable && s.Status != SlotReserved {
			return invalidTransition(s, SlotCancelled)
		}
		s.Status = SlotCancelled
		s.ReservedUntil = nil
		return nil
	}
}

func invalidTransition(s *TimeSlot, to SlotStatus) error {
	return fmt.Errorf("%w: slot %d cannot move from %s to %s", ErrSlotConflict, s.ID, s.Status, to)
}
