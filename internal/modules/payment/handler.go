package payment

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"salonbook/internal/domain"
	"salonbook/internal/pkg/response"
)

type Handler struct {
	service *Service
	loggerf func(format string, args ...interface{})
}

func NewHandler(service *Service, loggerf func(format string, args ...interface{})) *Handler {
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	return &Handler{service: service, loggerf: loggerf}
}

func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST("/payments/webhook", h.Webhook)
}

// Webhook godoc
// @Summary      Omise webhook
// @Description  Verifies the event with Omise and completes the matching booking (idempotent)
// @Tags         Payments
// @Accept       json
// @Produce      json
// @Param        body body WebhookRequest true "Omise event notification"
// @Success      200 {object} WebhookResponse
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /payments/webhook [post]
func (h *Handler) Webhook(c *gin.Context) {
	var req WebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid webhook body")
		return
	}

	outcome, err := h.service.HandleWebhook(c.Request.Context(), req.ID)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnverifiedEvent):
			h.loggerf("level=warn msg=\"webhook rejected\" event_id=%s err=%v", req.ID, err)
			response.Error(c, http.StatusUnauthorized, "UNVERIFIED_EVENT", "Event could not be verified")
		case errors.Is(err, domain.ErrPaymentMismatch), errors.Is(err, domain.ErrValidation):
			h.loggerf("level=error msg=\"webhook payment mismatch\" event_id=%s err=%v", req.ID, err)
			response.Error(c, http.StatusUnprocessableEntity, "PAYMENT_MISMATCH", err.Error())
		default:
			h.loggerf("level=error msg=\"webhook failed\" event_id=%s err=%v", req.ID, err)
			_ = c.Error(err)
			response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
		}
		return
	}

	h.loggerf("level=info msg=\"webhook handled\" event_id=%s outcome=%s", req.ID, outcome)
	response.Success(c, http.StatusOK, WebhookResponse{Outcome: string(outcome)})
}
