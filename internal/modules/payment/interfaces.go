package payment

import (
	"context"

	"github.com/omise/omise-go"
	"github.com/omise/omise-go/operations"

	"salonbook/internal/modules/booking"
)

// provider is the part of the Omise API the gateway calls.
type provider interface {
	CreateSource(op *operations.CreateSource) (*omise.Source, error)
	CreateCharge(op *operations.CreateCharge) (*omise.Charge, error)
	RetrieveEvent(eventID string) (*omise.Event, error)
}

type eventHandler interface {
	HandlePaymentEvent(ctx context.Context, ev booking.PaymentEvent) (booking.EventOutcome, error)
}
