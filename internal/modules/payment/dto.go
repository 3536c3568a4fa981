package payment

// WebhookRequest is the notification body Omise posts. Only the event id is
// trusted; everything else is re-read from the provider.
type WebhookRequest struct {
	ID  string `json:"id" binding:"required"`
	Key string `json:"key"`
}

type WebhookResponse struct {
	Outcome string `json:"outcome"`
}

type ErrorResponse struct {
	Error string `json:"error" example:"invalid request"`
}
