package slots

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"salonbook/internal/pkg/response"
	"salonbook/internal/pkg/validator"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/salons/:id/slots", h.ListSlots)
}

// RegisterProtectedRoutes mounts generation, which writes slots.
func (h *Handler) RegisterProtectedRoutes(rg *gin.RouterGroup) {
	rg.POST("/salons/:id/slots/generate", h.GenerateSlots)
	rg.POST("/salons/:id/slots/cancel", h.CancelSlots)
}

func (h *Handler) GenerateSlots(c *gin.Context) {
	salonID, ok := salonIDParam(c)
	if !ok {
		return
	}

	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid slot request", errs)
		return
	}
	req.SalonID = salonID

	slots, err := h.service.GenerateSlots(c.Request.Context(), req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"slots": slots})
}

func (h *Handler) CancelSlots(c *gin.Context) {
	salonID, ok := salonIDParam(c)
	if !ok {
		return
	}

	var req CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid cancel request", errs)
		return
	}

	slots, err := h.service.CancelSlots(c.Request.Context(), salonID, req.SlotIDs)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"slots": slots})
}

func (h *Handler) ListSlots(c *gin.Context) {
	salonID, ok := salonIDParam(c)
	if !ok {
		return
	}

	var stylistID int64
	if raw := c.Query("stylist_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id < 0 {
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid stylist_id")
			return
		}
		stylistID = id
	}

	slots, err := h.service.ListAvailable(c.Request.Context(), salonID, stylistID, c.Query("date"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"slots": slots})
}

func salonIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid salon ID")
		return 0, false
	}
	return id, true
}
