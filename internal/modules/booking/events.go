package booking

import (
	"context"
	"time"

	"salonbook/internal/domain"
)

const (
	RoutingBookingConfirmed    = "booking.confirmed"
	RoutingReservationReleased = "reservation.released"
)

type BookingConfirmed struct {
	AppointmentID    int64                `json:"appointment_id"`
	UserID           int64                `json:"user_id"`
	SalonID          int64                `json:"salon_id"`
	StylistID        int64                `json:"stylist_id"`
	SlotIDs          []int64              `json:"slot_ids"`
	TotalPrice       int64                `json:"total_price"`
	Currency         string               `json:"currency"`
	PaymentMethod    domain.PaymentMethod `json:"payment_method"`
	PaymentStatus    domain.PaymentStatus `json:"payment_status"`
	BookingAttemptID string               `json:"booking_attempt_id,omitempty"`
	OccurredAt       time.Time            `json:"occurred_at"`
}

type ReservationReleased struct {
	BookingAttemptID string    `json:"booking_attempt_id"`
	SlotIDs          []int64   `json:"slot_ids"`
	Reason           string    `json:"reason"`
	OccurredAt       time.Time `json:"occurred_at"`
}

// ReleaseNotifier forwards released holds to the event bus. It satisfies
// reservation.ReleaseNotifier.
type ReleaseNotifier struct {
	events  EventPublisher
	loggerf func(format string, args ...interface{})
}

func NewReleaseNotifier(events EventPublisher, loggerf func(format string, args ...interface{})) *ReleaseNotifier {
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	return &ReleaseNotifier{events: events, loggerf: loggerf}
}

func (n *ReleaseNotifier) HoldReleased(ctx context.Context, attemptID string, slotIDs []int64, reason string) {
	if n == nil || n.events == nil {
		return
	}
	err := n.events.PublishJSON(ctx, RoutingReservationReleased, ReservationReleased{
		BookingAttemptID: attemptID,
		SlotIDs:          slotIDs,
		Reason:           reason,
		OccurredAt:       time.Now().UTC(),
	})
	if err != nil {
		n.loggerf("level=warn msg=\"publish failed\" key=%s booking_attempt_id=%s err=%v", RoutingReservationReleased, attemptID, err)
	}
}

func confirmedEvent(a *domain.Appointment) BookingConfirmed {
	ev := BookingConfirmed{
		AppointmentID: a.ID,
		UserID:        a.UserID,
		SalonID:       a.SalonID,
		StylistID:     a.StylistID,
		SlotIDs:       a.SlotIDs,
		TotalPrice:    a.TotalPrice,
		Currency:      a.Currency,
		PaymentMethod: a.PaymentMethod,
		PaymentStatus: a.PaymentStatus,
		OccurredAt:    time.Now().UTC(),
	}
	if a.BookingAttemptID != nil {
		ev.BookingAttemptID = *a.BookingAttemptID
	}
	return ev
}
