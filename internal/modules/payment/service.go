package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/omise/omise-go"
	"github.com/omise/omise-go/operations"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"salonbook/internal/domain"
	"salonbook/internal/modules/booking"
)

// ErrUnverifiedEvent means the provider did not confirm the notified event.
var ErrUnverifiedEvent = errors.New("payment event could not be verified")

const (
	chargeSuccessful = "successful"
	chargePending    = "pending"
)

type Config struct {
	PublicKey  string
	SecretKey  string
	SourceType string
	ReturnURI  string
}

// Service creates Omise charges for checkouts and turns verified Omise
// events into booking payment events.
type Service struct {
	api     provider
	events  eventHandler
	cfg     Config
	loggerf func(format string, args ...interface{})
}

// NewOmiseService connects to Omise with the configured key pair.
func NewOmiseService(cfg Config, events eventHandler, loggerf func(format string, args ...interface{})) (*Service, error) {
	if cfg.PublicKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("omise credentials are not configured")
	}
	api, err := newOmiseClient(cfg.PublicKey, cfg.SecretKey)
	if err != nil {
		return nil, err
	}
	return newService(api, events, cfg, loggerf), nil
}

func newService(api provider, events eventHandler, cfg Config, loggerf func(format string, args ...interface{})) *Service {
	if cfg.SourceType == "" {
		cfg.SourceType = "promptpay"
	}
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	return &Service{api: api, events: events, cfg: cfg, loggerf: loggerf}
}

// SetEventHandler attaches the booking orchestrator once it is built; the
// orchestrator itself needs this service as its gateway.
func (s *Service) SetEventHandler(events eventHandler) {
	s.events = events
}

// CreateCheckoutSession implements booking.PaymentGateway.
func (s *Service) CreateCheckoutSession(ctx context.Context, amount int64, currency string, metadata map[string]string) (*booking.CheckoutSession, error) {
	_, span := otel.Tracer("salonbook/payment").Start(ctx, "CreateCheckoutSession")
	defer span.End()
	span.SetAttributes(attribute.Int64("payment.amount", amount), attribute.String("payment.source_type", s.cfg.SourceType))

	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", domain.ErrValidation)
	}
	currency = strings.ToLower(currency)

	src, err := s.api.CreateSource(&operations.CreateSource{
		Type:     s.cfg.SourceType,
		Amount:   amount,
		Currency: currency,
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("create source: %w", err)
	}

	md := make(map[string]interface{}, len(metadata))
	for k, v := range metadata {
		md[k] = v
	}
	ch, err := s.api.CreateCharge(&operations.CreateCharge{
		Amount:    amount,
		Currency:  currency,
		Source:    src.ID,
		ReturnURI: s.cfg.ReturnURI,
		Metadata:  md,
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("create charge: %w", err)
	}

	s.loggerf("level=info msg=\"omise charge created\" charge_id=%s source_id=%s status=%s amount=%d", ch.ID, src.ID, ch.Status, amount)
	return &booking.CheckoutSession{ID: ch.ID, RedirectURL: ch.AuthorizeURI}, nil
}

// HandleWebhook re-reads the event from Omise and hands charge completions
// to the booking orchestrator.
func (s *Service) HandleWebhook(ctx context.Context, eventID string) (booking.EventOutcome, error) {
	ctx, span := otel.Tracer("salonbook/payment").Start(ctx, "HandleWebhook")
	defer span.End()
	span.SetAttributes(attribute.String("payment.event_id", eventID))

	ev, err := s.api.RetrieveEvent(eventID)
	if err != nil {
		s.loggerf("level=warn msg=\"omise event retrieval failed\" event_id=%s err=%v", eventID, err)
		return "", fmt.Errorf("%w: %v", ErrUnverifiedEvent, err)
	}
	s.loggerf("level=info msg=\"omise event verified\" event_id=%s key=%s", eventID, ev.Key)

	if ev.Key != booking.EventChargeComplete {
		return booking.OutcomeIgnored, nil
	}

	ch, err := chargeOf(ev)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrPaymentMismatch, err)
	}
	if string(ch.Status) == chargePending {
		return booking.OutcomeIgnored, nil
	}
	if s.events == nil {
		return "", fmt.Errorf("payment events are not wired")
	}

	return s.events.HandlePaymentEvent(ctx, booking.PaymentEvent{
		Type:       ev.Key,
		Paid:       string(ch.Status) == chargeSuccessful,
		Metadata:   stringMetadata(ch.Metadata),
		AmountPaid: ch.Amount,
		Currency:   strings.ToUpper(ch.Currency),
		Reference:  ch.ID,
	})
}

// chargeOf decodes the event payload, which the SDK leaves untyped.
func chargeOf(ev *omise.Event) (*omise.Charge, error) {
	raw, err := json.Marshal(ev.Data)
	if err != nil {
		return nil, fmt.Errorf("marshal event data: %w", err)
	}
	var ch omise.Charge
	if err := json.Unmarshal(raw, &ch); err != nil {
		return nil, fmt.Errorf("decode charge: %w", err)
	}
	if ch.ID == "" {
		return nil, fmt.Errorf("event %s carries no charge", ev.ID)
	}
	return &ch, nil
}

func stringMetadata(in map[string]interface{}) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		switch t := v.(type) {
		case string:
			out[k] = t
		case float64:
			out[k] = strconv.FormatFloat(t, 'f', -1, 64)
		case nil:
		default:
			out[k] = fmt.Sprint(t)
		}
	}
	return out
}
