package slots

type GenerateRequest struct {
	SalonID    int64   `json:"-"`
	ServiceIDs []int64 `json:"service_ids" validate:"required,min=1,dive,gt=0"`
	Date       string  `json:"date" validate:"required,datetime=2006-01-02"`
	StylistID  int64   `json:"stylist_id" validate:"gte=0"`
}

type CancelRequest struct {
	SlotIDs []int64 `json:"slot_ids" validate:"required,min=1,dive,gt=0"`
}
