package booking

import (
	"context"
	"time"

	"salonbook/internal/domain"
)

type SalonReader interface {
	GetSalon(ctx context.Context, id int64) (*domain.Salon, error)
}

// PaymentGateway opens a hosted payment for amount minor units. metadata
// must come back unchanged on the completion event.
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, amount int64, currency string, metadata map[string]string) (*CheckoutSession, error)
}

type EventPublisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

type AttemptLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}
