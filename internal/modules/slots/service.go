package slots

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"salonbook/internal/domain"
	"salonbook/internal/pkg/metrics"
	"salonbook/internal/repository"
)

const DefaultBuffer = 10 * time.Minute

// Service turns salon and stylist working hours into persisted slots.
type Service struct {
	salons  SalonReader
	slots   SlotStore
	buffer  time.Duration
	loggerf func(format string, args ...interface{})
}

func NewService(salons SalonReader, slots SlotStore, buffer time.Duration, loggerf func(format string, args ...interface{})) *Service {
	if buffer < 0 {
		buffer = DefaultBuffer
	}
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	return &Service{salons: salons, slots: slots, buffer: buffer, loggerf: loggerf}
}

// GenerateSlots makes sure every window that fits the requested services
// exists for the day, then returns the day's available slots for the
// qualifying stylists. Running it twice creates nothing new.
func (s *Service) GenerateSlots(ctx context.Context, req GenerateRequest) ([]domain.TimeSlot, error) {
	ctx, span := otel.Tracer("salonbook/slots").Start(ctx, "GenerateSlots")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("salon.id", req.SalonID),
		attribute.String("slots.date", req.Date),
	)

	salon, day, loc, err := s.loadDay(ctx, req.SalonID, req.Date)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	total := 0
	seen := make(map[int64]struct{}, len(req.ServiceIDs))
	for _, id := range req.ServiceIDs {
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: service %d listed twice", domain.ErrValidation, id)
		}
		seen[id] = struct{}{}
		svc, ok := salon.Service(id)
		if !ok {
			return nil, fmt.Errorf("%w: service %d in salon %d", domain.ErrNotFound, id, salon.ID)
		}
		total += svc.DurationMinutes
	}
	if total <= 0 {
		return []domain.TimeSlot{}, nil
	}
	block := time.Duration(total)*time.Minute + s.buffer

	stylists, err := qualifyingStylists(salon, req.StylistID, req.ServiceIDs)
	if err != nil {
		return nil, err
	}
	if len(stylists) == 0 {
		return []domain.TimeSlot{}, nil
	}

	open, err := domain.ClockOn(day, salon.OpeningTime, loc)
	if err != nil {
		return nil, err
	}
	closing, err := domain.ClockOn(day, salon.ClosingTime, loc)
	if err != nil {
		return nil, err
	}
	dayEnd := day.AddDate(0, 0, 1)

	var candidates []domain.TimeSlot
	stylistIDs := make([]int64, 0, len(stylists))
	for _, st := range stylists {
		stylistIDs = append(stylistIDs, st.ID)

		hours, ok := st.HoursFor(domain.WeekdayKey(day.Weekday()))
		if !ok {
			continue
		}
		workStart, err := domain.ClockOn(day, hours.Start, loc)
		if err != nil {
			return nil, err
		}
		workEnd, err := domain.ClockOn(day, hours.End, loc)
		if err != nil {
			return nil, err
		}

		start := later(open, workStart)
		end := earlier(closing, workEnd)
		if !start.Before(end) {
			continue
		}

		existing, err := s.slots.ListForStylist(ctx, st.ID, day, dayEnd)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, layOut(salon.ID, st.ID, start, end, block, existing)...)
	}

	created, err := s.slots.CreateMissing(ctx, candidates)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	metrics.AddSlotsGenerated(int(created))
	if created > 0 {
		s.loggerf("level=info msg=\"slots generated\" salon_id=%d date=%s created=%d", salon.ID, req.Date, created)
	}
	span.SetAttributes(attribute.Int64("slots.created", created))

	return s.slots.ListAvailable(ctx, repository.SlotFilter{
		SalonID:    salon.ID,
		StylistIDs: stylistIDs,
		From:       day,
		To:         dayEnd,
	})
}

// ListAvailable is the read-only view of a salon day. stylistID 0 means
// every stylist.
func (s *Service) ListAvailable(ctx context.Context, salonID, stylistID int64, date string) ([]domain.TimeSlot, error) {
	salon, day, _, err := s.loadDay(ctx, salonID, date)
	if err != nil {
		return nil, err
	}

	f := repository.SlotFilter{SalonID: salon.ID, From: day, To: day.AddDate(0, 0, 1)}
	if stylistID != 0 {
		if _, ok := salon.Stylist(stylistID); !ok {
			return nil, fmt.Errorf("%w: stylist %d in salon %d", domain.ErrNotFound, stylistID, salon.ID)
		}
		f.StylistIDs = []int64{stylistID}
	}
	return s.slots.ListAvailable(ctx, f)
}

// CancelSlots withdraws available or reserved slots of a salon. Booked slots
// are refused with ErrSlotConflict and nothing changes.
func (s *Service) CancelSlots(ctx context.Context, salonID int64, slotIDs []int64) ([]domain.TimeSlot, error) {
	ctx, span := otel.Tracer("salonbook/slots").Start(ctx, "CancelSlots")
	defer span.End()
	span.SetAttributes(attribute.Int64("salon.id", salonID), attribute.Int("slots.count", len(slotIDs)))

	current, err := s.slots.GetByIDs(ctx, slotIDs)
	if err != nil {
		return nil, err
	}
	for _, slot := range current {
		if slot.SalonID != salonID {
			return nil, fmt.Errorf("%w: slot %d in salon %d", domain.ErrNotFound, slot.ID, salonID)
		}
	}

	cancelled, err := s.slots.Cancel(ctx, slotIDs)
	if err != nil {
		if errors.Is(err, domain.ErrSlotConflict) {
			metrics.IncSlotConflict("cancel")
		}
		span.RecordError(err)
		return nil, err
	}

	for _, slot := range cancelled {
		if slot.BookingAttemptID != nil {
			s.loggerf("level=warn msg=\"held slot cancelled\" slot_id=%d booking_attempt_id=%s", slot.ID, *slot.BookingAttemptID)
		}
	}
	s.loggerf("level=info msg=\"slots cancelled\" salon_id=%d count=%d", salonID, len(cancelled))
	return cancelled, nil
}

func (s *Service) loadDay(ctx context.Context, salonID int64, date string) (*domain.Salon, time.Time, *time.Location, error) {
	salon, err := s.salons.GetSalon(ctx, salonID)
	if err != nil {
		return nil, time.Time{}, nil, err
	}
	loc, err := salon.Location()
	if err != nil {
		return nil, time.Time{}, nil, err
	}
	day, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return nil, time.Time{}, nil, fmt.Errorf("%w: date must be YYYY-MM-DD", domain.ErrValidation)
	}
	return salon, day, loc, nil
}

func qualifyingStylists(salon *domain.Salon, stylistID int64, serviceIDs []int64) ([]domain.Stylist, error) {
	if stylistID != 0 {
		st, ok := salon.Stylist(stylistID)
		if !ok {
			return nil, fmt.Errorf("%w: stylist %d in salon %d", domain.ErrNotFound, stylistID, salon.ID)
		}
		if !st.Provides(serviceIDs) {
			return nil, nil
		}
		return []domain.Stylist{*st}, nil
	}

	var out []domain.Stylist
	for _, st := range salon.Stylists {
		if st.Provides(serviceIDs) {
			out = append(out, st)
		}
	}
	return out, nil
}

// layOut places back-to-back windows of width block in [start, end),
// dropping any that intersect an existing slot.
func layOut(salonID, stylistID int64, start, end time.Time, block time.Duration, existing []domain.TimeSlot) []domain.TimeSlot {
	var out []domain.TimeSlot
	for t := start; !t.Add(block).After(end); t = t.Add(block) {
		candEnd := t.Add(block)
		if overlapsAny(existing, t, candEnd) {
			continue
		}
		out = append(out, domain.TimeSlot{
			SalonID:   salonID,
			StylistID: stylistID,
			StartTime: t.UTC(),
			EndTime:   candEnd.UTC(),
			Status:    domain.SlotAvailable,
			Version:   1,
		})
	}
	return out
}

func overlapsAny(existing []domain.TimeSlot, start, end time.Time) bool {
	for i := range existing {
		if existing[i].Overlaps(start, end) {
			return true
		}
	}
	return false
}

func later(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earlier(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
