package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"salonbook/internal/domain"
	"salonbook/internal/domain/wallet"
	"salonbook/internal/modules/reservation"
	"salonbook/internal/pkg/metrics"
	"salonbook/internal/pkg/validator"
	"salonbook/internal/repository"
)

type Config struct {
	ReservationTTL time.Duration
	CheckoutTTL    time.Duration
	HomeSurcharge  int64
	Currency       string
	CashStatus     domain.AppointmentStatus
	LockTTL        time.Duration
}

func DefaultConfig() Config {
	return Config{
		ReservationTTL: 15 * time.Minute,
		CheckoutTTL:    30 * time.Minute,
		HomeSurcharge:  20000,
		Currency:       "THB",
		CashStatus:     domain.AppointmentPending,
		LockTTL:        2 * time.Minute,
	}
}

// Deps are the collaborators of the orchestrator. Gateway, Events and Locks
// may be nil.
type Deps struct {
	DB           *gorm.DB
	Salons       SalonReader
	Slots        *repository.SlotRepository
	Appointments *repository.AppointmentRepository
	Wallets      *wallet.Service
	Holds        *reservation.Manager
	Gateway      PaymentGateway
	Events       EventPublisher
	Locks        AttemptLocker
	Loggerf      func(format string, args ...interface{})
}

// Service drives a cart to a booked appointment. Slot and wallet writes of
// one attempt share a database transaction; nothing is published until it
// commits.
type Service struct {
	db           *gorm.DB
	salons       SalonReader
	slots        *repository.SlotRepository
	appointments *repository.AppointmentRepository
	wallets      *wallet.Service
	holds        *reservation.Manager
	gateway      PaymentGateway
	events       EventPublisher
	locks        AttemptLocker
	loggerf      func(format string, args ...interface{})
	cfg          Config
}

func NewService(d Deps, cfg Config) *Service {
	def := DefaultConfig()
	if cfg.ReservationTTL <= 0 {
		cfg.ReservationTTL = def.ReservationTTL
	}
	if cfg.CheckoutTTL <= 0 {
		cfg.CheckoutTTL = def.CheckoutTTL
	}
	if cfg.Currency == "" {
		cfg.Currency = def.Currency
	}
	if cfg.CashStatus == "" {
		cfg.CashStatus = def.CashStatus
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = def.LockTTL
	}
	loggerf := d.Loggerf
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	return &Service{
		db:           d.DB,
		salons:       d.Salons,
		slots:        d.Slots,
		appointments: d.Appointments,
		wallets:      d.Wallets,
		holds:        d.Holds,
		gateway:      d.Gateway,
		events:       d.Events,
		locks:        d.Locks,
		loggerf:      loggerf,
		cfg:          cfg,
	}
}

func tracer() trace.Tracer {
	return otel.Tracer("salonbook/booking")
}

// CreateBooking books a wallet cart outright, or places a hold for cash and
// online carts which CreateCheckoutSession completes.
func (s *Service) CreateBooking(ctx context.Context, userID int64, cart Cart) (*BookingResult, error) {
	ctx, span := tracer().Start(ctx, "CreateBooking")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("user.id", userID),
		attribute.Int64("salon.id", cart.SalonID),
		attribute.String("booking.payment_method", string(cart.PaymentMethod)),
	)

	res, err := s.createBooking(ctx, userID, cart)
	metrics.IncBooking(string(cart.PaymentMethod), outcomeLabel(err))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return res, nil
}

func (s *Service) createBooking(ctx context.Context, userID int64, cart Cart) (*BookingResult, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("%w: user is required", domain.ErrValidation)
	}
	q, err := s.quote(ctx, cart)
	if err != nil {
		return nil, err
	}

	if cart.PaymentMethod == domain.PaymentWallet {
		appt, err := s.bookWithWallet(ctx, userID, cart, q)
		if err != nil {
			return nil, err
		}
		return &BookingResult{Appointment: appt}, nil
	}

	attemptID := uuid.NewString()
	until, err := s.holds.Hold(ctx, q.slotIDs, s.cfg.ReservationTTL, attemptID, userID)
	if err != nil {
		return nil, err
	}
	s.loggerf("level=info msg=\"slots held\" user_id=%d booking_attempt_id=%s slots=%v until=%s", userID, attemptID, q.slotIDs, until.Format(time.RFC3339))

	return &BookingResult{Reservation: &Reservation{
		BookingAttemptID: attemptID,
		SlotIDs:          q.slotIDs,
		ReservedUntil:    until,
		TotalPrice:       q.price,
		Currency:         s.cfg.Currency,
	}}, nil
}

// bookWithWallet commits the slots, records the appointment and debits the
// wallet in one transaction.
func (s *Service) bookWithWallet(ctx context.Context, userID int64, cart Cart, q *quote) (*domain.Appointment, error) {
	balance, err := s.wallets.Balance(ctx, userID)
	if err != nil {
		return nil, err
	}
	if balance < q.price {
		return nil, fmt.Errorf("%w: balance %d, price %d", domain.ErrInsufficientBalance, balance, q.price)
	}

	attemptID := uuid.NewString()
	appt := s.newAppointment(userID, cart, q, attemptID)
	appt.PaymentStatus = domain.PaymentPaid
	appt.Status = domain.AppointmentConfirmed

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.slots.WithTx(tx).ApplyTransition(ctx, q.slots, domain.BookTransition(attemptID)); err != nil {
			return err
		}
		if err := s.appointments.WithTx(tx).Create(ctx, appt); err != nil {
			return err
		}
		if q.price == 0 {
			return nil
		}
		ref := appt.ID
		_, _, err := s.wallets.WithTx(tx).Debit(ctx, userID, q.price, &ref, fmt.Sprintf("appointment #%d", appt.ID))
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrSlotConflict) {
			metrics.IncSlotConflict("wallet_commit")
		}
		return nil, err
	}

	s.loggerf("level=info msg=\"wallet booking confirmed\" appointment_id=%d user_id=%d amount=%d", appt.ID, userID, q.price)
	s.publish(ctx, RoutingBookingConfirmed, confirmedEvent(appt))
	return appt, nil
}

// CreateCheckoutSession turns a held reservation into a payment. Cash carts
// are booked immediately with payment pending; online carts get a hosted
// payment session and stay held until the provider reports back.
func (s *Service) CreateCheckoutSession(ctx context.Context, userID int64, req CheckoutRequest) (*CheckoutResult, error) {
	ctx, span := tracer().Start(ctx, "CreateCheckoutSession")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("user.id", userID),
		attribute.String("booking.attempt_id", req.BookingAttemptID),
		attribute.String("booking.payment_method", string(req.PaymentMethod)),
	)

	res, err := s.createCheckoutSession(ctx, userID, req)
	metrics.IncBooking(string(req.PaymentMethod)+"_checkout", outcomeLabel(err))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return res, nil
}

func (s *Service) createCheckoutSession(ctx context.Context, userID int64, req CheckoutRequest) (*CheckoutResult, error) {
	if req.PaymentMethod == domain.PaymentWallet {
		return nil, ErrWalletCheckout
	}
	if errs := validator.Validate(req); errs != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrValidation, formatFieldErrors(errs))
	}

	q, err := s.quote(ctx, req.Cart)
	if err != nil {
		return nil, err
	}

	attemptID := req.BookingAttemptID
	until, err := s.holds.Extend(ctx, q.slotIDs, attemptID, userID, s.cfg.CheckoutTTL)
	if err != nil {
		// Verify checks the holder before the deadline, so an expired hold
		// belongs to this user and can be given back whole.
		if errors.Is(err, domain.ErrReservationExpired) {
			s.compensate(ctx, nil, attemptID)
		}
		return nil, err
	}
	held := &Reservation{
		BookingAttemptID: attemptID,
		SlotIDs:          q.slotIDs,
		ReservedUntil:    until,
		TotalPrice:       q.price,
		Currency:         s.cfg.Currency,
	}

	if req.PaymentMethod == domain.PaymentCash {
		appt, err := s.commitCash(ctx, userID, req.Cart, q, attemptID)
		if err != nil {
			s.compensate(ctx, nil, attemptID)
			return nil, err
		}
		return &CheckoutResult{Appointment: appt}, nil
	}

	if s.gateway == nil {
		s.compensate(ctx, q.slotIDs, attemptID)
		return nil, ErrNoGateway
	}

	md := CheckoutMetadata{
		UserID:        userID,
		SalonID:       q.salon.ID,
		StylistID:     q.stylist.ID,
		ServiceIDs:    q.serviceIDs,
		SlotIDs:       q.slotIDs,
		AttemptID:     attemptID,
		PaymentMethod: req.PaymentMethod,
		ServiceOption: req.ServiceOption,
		TotalPrice:    q.price,
	}
	session, err := s.gateway.CreateCheckoutSession(ctx, q.price, s.cfg.Currency, md.Encode())
	if err != nil {
		s.loggerf("level=error msg=\"checkout session failed\" booking_attempt_id=%s err=%v", attemptID, err)
		s.compensate(ctx, q.slotIDs, attemptID)
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayFailure, err)
	}

	s.loggerf("level=info msg=\"checkout session created\" booking_attempt_id=%s session_id=%s amount=%d", attemptID, session.ID, q.price)
	return &CheckoutResult{Session: session, Reservation: held}, nil
}

func (s *Service) commitCash(ctx context.Context, userID int64, cart Cart, q *quote, attemptID string) (*domain.Appointment, error) {
	appt := s.newAppointment(userID, cart, q, attemptID)
	appt.PaymentStatus = domain.PaymentPending
	appt.Status = s.cfg.CashStatus

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.slots.WithTx(tx).Commit(ctx, q.slotIDs, attemptID); err != nil {
			return err
		}
		return s.appointments.WithTx(tx).Create(ctx, appt)
	})
	if err != nil {
		if errors.Is(err, domain.ErrSlotConflict) {
			metrics.IncSlotConflict("cash_commit")
		}
		return nil, err
	}

	s.loggerf("level=info msg=\"cash booking created\" appointment_id=%d booking_attempt_id=%s", appt.ID, attemptID)
	s.publish(ctx, RoutingBookingConfirmed, confirmedEvent(appt))
	return appt, nil
}

// HandlePaymentEvent completes the online path. Replays of an event that
// already booked its slots are reported as OutcomeDuplicate without writes.
func (s *Service) HandlePaymentEvent(ctx context.Context, ev PaymentEvent) (EventOutcome, error) {
	ctx, span := tracer().Start(ctx, "HandlePaymentEvent")
	defer span.End()
	span.SetAttributes(
		attribute.String("payment.event_type", ev.Type),
		attribute.String("payment.reference", ev.Reference),
	)

	outcome, err := s.handlePaymentEvent(ctx, ev)
	if err != nil {
		span.RecordError(err)
		metrics.IncPaymentEvent(outcomeLabel(err))
		return outcome, err
	}
	metrics.IncPaymentEvent(string(outcome))
	return outcome, nil
}

func (s *Service) handlePaymentEvent(ctx context.Context, ev PaymentEvent) (EventOutcome, error) {
	if ev.Type != EventChargeComplete {
		return OutcomeIgnored, nil
	}

	md, err := ParseMetadata(ev.Metadata)
	if err != nil {
		return "", err
	}

	if !ev.Paid {
		n, err := s.holds.ReleaseAttempt(ctx, md.SlotIDs, md.AttemptID)
		if err != nil {
			return "", err
		}
		s.loggerf("level=info msg=\"payment not completed, hold released\" booking_attempt_id=%s released=%d reference=%s", md.AttemptID, n, ev.Reference)
		return OutcomeReleased, nil
	}

	if s.locks != nil {
		release, ok, err := s.locks.TryLock(ctx, "payment:"+md.AttemptID, s.cfg.LockTTL)
		if err != nil {
			return "", err
		}
		defer release()
		if !ok {
			s.loggerf("level=info msg=\"payment event already in flight\" booking_attempt_id=%s", md.AttemptID)
			return OutcomeDuplicate, nil
		}
	}

	existing, err := s.appointments.FindByAttempt(ctx, md.AttemptID)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return OutcomeDuplicate, nil
	}

	slots, err := s.slots.GetByIDs(ctx, md.SlotIDs)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", fmt.Errorf("%w: %v", domain.ErrPaymentMismatch, err)
		}
		return "", err
	}
	if allBookedBy(slots, md.AttemptID) {
		return OutcomeDuplicate, nil
	}
	for _, slot := range slots {
		if !slot.IsHeldBy(md.AttemptID) {
			return "", fmt.Errorf("%w: slot %d is %s and not held by attempt %s", domain.ErrPaymentMismatch, slot.ID, slot.Status, md.AttemptID)
		}
		if slot.HolderUserID == nil || *slot.HolderUserID != md.UserID {
			return "", fmt.Errorf("%w: slot %d is held by another user", domain.ErrPaymentMismatch, slot.ID)
		}
		if slot.SalonID != md.SalonID || slot.StylistID != md.StylistID {
			return "", fmt.Errorf("%w: slot %d does not belong to stylist %d", domain.ErrPaymentMismatch, slot.ID, md.StylistID)
		}
	}
	if ev.AmountPaid != md.TotalPrice {
		return "", fmt.Errorf("%w: paid %d, expected %d", domain.ErrPaymentMismatch, ev.AmountPaid, md.TotalPrice)
	}

	attemptID := md.AttemptID
	appt := &domain.Appointment{
		UserID:           md.UserID,
		SalonID:          md.SalonID,
		StylistID:        md.StylistID,
		ServiceIDs:       md.ServiceIDs,
		SlotIDs:          idsOf(slots),
		TotalPrice:       md.TotalPrice,
		Currency:         s.cfg.Currency,
		PaymentStatus:    domain.PaymentPaid,
		PaymentMethod:    md.PaymentMethod,
		ServiceOption:    md.ServiceOption,
		Status:           domain.AppointmentConfirmed,
		BookingAttemptID: &attemptID,
		PaymentReference: ev.Reference,
	}
	if ev.Currency != "" {
		appt.Currency = ev.Currency
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.slots.WithTx(tx).ApplyTransition(ctx, slots, domain.BookTransition(attemptID)); err != nil {
			return err
		}
		return s.appointments.WithTx(tx).Create(ctx, appt)
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateAttempt) {
			return OutcomeDuplicate, nil
		}
		if errors.Is(err, domain.ErrSlotConflict) {
			metrics.IncSlotConflict("payment_commit")
		}
		s.loggerf("level=error msg=\"paid booking commit failed\" booking_attempt_id=%s reference=%s err=%v", attemptID, ev.Reference, err)
		return "", err
	}

	s.loggerf("level=info msg=\"online booking confirmed\" appointment_id=%d booking_attempt_id=%s reference=%s", appt.ID, attemptID, ev.Reference)
	s.publish(ctx, RoutingBookingConfirmed, confirmedEvent(appt))
	return OutcomeBooked, nil
}

// ListAppointments returns the user's appointments, newest first.
func (s *Service) ListAppointments(ctx context.Context, userID int64, limit, offset int) ([]domain.Appointment, error) {
	return s.appointments.ListByUser(ctx, userID, limit, offset)
}

// GetAppointment reports another user's appointment as ErrNotFound.
func (s *Service) GetAppointment(ctx context.Context, userID, id int64) (*domain.Appointment, error) {
	appt, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.UserID != userID {
		return nil, fmt.Errorf("%w: appointment %d", domain.ErrNotFound, id)
	}
	return appt, nil
}

func (s *Service) newAppointment(userID int64, cart Cart, q *quote, attemptID string) *domain.Appointment {
	id := attemptID
	return &domain.Appointment{
		UserID:           userID,
		SalonID:          q.salon.ID,
		StylistID:        q.stylist.ID,
		ServiceIDs:       q.serviceIDs,
		SlotIDs:          q.slotIDs,
		TotalPrice:       q.price,
		Currency:         s.cfg.Currency,
		PaymentMethod:    cart.PaymentMethod,
		ServiceOption:    cart.ServiceOption,
		BookingAttemptID: &id,
	}
}

// compensate gives back a hold after a failed checkout. A failure here is
// logged only; the reaper reclaims the slots when the hold ends.
func (s *Service) compensate(ctx context.Context, slotIDs []int64, attemptID string) {
	if _, err := s.holds.ReleaseAttempt(ctx, slotIDs, attemptID); err != nil {
		s.loggerf("level=warn msg=\"compensating release failed\" booking_attempt_id=%s err=%v", attemptID, err)
	}
}

func (s *Service) publish(ctx context.Context, key string, v any) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishJSON(ctx, key, v); err != nil {
		s.loggerf("level=warn msg=\"publish failed\" key=%s err=%v", key, err)
	}
}

func allBookedBy(slots []domain.TimeSlot, attemptID string) bool {
	for _, slot := range slots {
		if slot.Status != domain.SlotBooked || slot.BookingAttemptID == nil || *slot.BookingAttemptID != attemptID {
			return false
		}
	}
	return len(slots) > 0
}

func idsOf(slots []domain.TimeSlot) []int64 {
	out := make([]int64, 0, len(slots))
	for _, slot := range slots {
		out = append(out, slot.ID)
	}
	return out
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrSlotConflict):
		return "conflict"
	case errors.Is(err, domain.ErrReservationExpired):
		return "expired"
	case errors.Is(err, domain.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, domain.ErrPaymentMismatch):
		return "mismatch"
	case errors.Is(err, domain.ErrGatewayFailure):
		return "gateway_failure"
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrNotFound):
		return "invalid"
	default:
		return "error"
	}
}
