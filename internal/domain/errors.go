package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrValidation          = errors.New("validation failed")
	ErrSlotConflict        = errors.New("slot conflict")
	ErrReservationExpired  = errors.New("reservation expired")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrPaymentMismatch     = errors.New("payment does not match reservation")
	ErrGatewayFailure      = errors.New("payment gateway failure")
)
