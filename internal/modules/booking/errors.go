package booking

import (
	"fmt"

	"salonbook/internal/domain"
)

var (
	ErrWalletCheckout = fmt.Errorf("%w: wallet bookings are paid at creation", domain.ErrValidation)
	ErrNoGateway      = fmt.Errorf("%w: online payments are not configured", domain.ErrGatewayFailure)
)
