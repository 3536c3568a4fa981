package booking

import (
	"time"

	"salonbook/internal/domain"
)

// Cart is what the client wants to book.
type Cart struct {
	SalonID       int64                `json:"salon_id" validate:"required,gt=0"`
	StylistID     int64                `json:"stylist_id" validate:"required,gt=0"`
	ServiceIDs    []int64              `json:"service_ids" validate:"required,min=1,dive,gt=0"`
	SlotIDs       []int64              `json:"slot_ids" validate:"required,min=1,dive,gt=0"`
	PaymentMethod domain.PaymentMethod `json:"payment_method" validate:"required,oneof=cash wallet online"`
	ServiceOption domain.ServiceOption `json:"service_option" validate:"required,oneof=home store"`
}

type CheckoutRequest struct {
	Cart
	BookingAttemptID string `json:"booking_attempt_id" validate:"required,uuid"`
}

// Reservation describes a hold the client must turn into a checkout before
// ReservedUntil.
type Reservation struct {
	BookingAttemptID string    `json:"booking_attempt_id"`
	SlotIDs          []int64   `json:"slot_ids"`
	ReservedUntil    time.Time `json:"reserved_until"`
	TotalPrice       int64     `json:"total_price"`
	Currency         string    `json:"currency"`
}

// BookingResult carries an Appointment for the wallet path and a
// Reservation for the cash and online paths.
type BookingResult struct {
	Appointment *domain.Appointment `json:"appointment,omitempty"`
	Reservation *Reservation        `json:"reservation,omitempty"`
}

type CheckoutSession struct {
	ID          string `json:"id"`
	RedirectURL string `json:"redirect_url"`
}

type CheckoutResult struct {
	Appointment *domain.Appointment `json:"appointment,omitempty"`
	Session     *CheckoutSession    `json:"session,omitempty"`
	Reservation *Reservation        `json:"reservation,omitempty"`
}

const EventChargeComplete = "charge.complete"

// PaymentEvent is a provider notification already verified with the
// provider.
type PaymentEvent struct {
	Type       string
	Paid       bool
	Metadata   map[string]string
	AmountPaid int64
	Currency   string
	Reference  string
}

type EventOutcome string

const (
	OutcomeIgnored   EventOutcome = "ignored"
	OutcomeDuplicate EventOutcome = "duplicate"
	OutcomeReleased  EventOutcome = "released"
	OutcomeBooked    EventOutcome = "booked"
)
