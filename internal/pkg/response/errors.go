package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"salonbook/internal/domain"
)

// FromError writes the error envelope for a domain error. Unknown errors are
// reported as INTERNAL_ERROR without leaking their text.
func FromError(c *gin.Context, err error) {
	status, code := Classify(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		Error(c, status, code, "internal error")
		return
	}
	Error(c, status, code, err.Error())
}

func Classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, "VALIDATION_ERROR"
	case errors.Is(err, domain.ErrSlotConflict):
		return http.StatusConflict, "SLOT_CONFLICT"
	case errors.Is(err, domain.ErrReservationExpired):
		return http.StatusGone, "RESERVATION_EXPIRED"
	case errors.Is(err, domain.ErrInsufficientBalance):
		return http.StatusPaymentRequired, "INSUFFICIENT_BALANCE"
	case errors.Is(err, domain.ErrPaymentMismatch):
		return http.StatusUnprocessableEntity, "PAYMENT_MISMATCH"
	case errors.Is(err, domain.ErrGatewayFailure):
		return http.StatusBadGateway, "GATEWAY_FAILURE"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}
