package booking

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"salonbook/internal/domain"
	"salonbook/internal/pkg/validator"
)

// quote is a cart checked against current salon configuration and slot
// rows. slots keep the versions observed here.
type quote struct {
	salon      *domain.Salon
	stylist    *domain.Stylist
	serviceIDs []int64
	slots      []domain.TimeSlot
	slotIDs    []int64
	price      int64
}

func (s *Service) quote(ctx context.Context, cart Cart) (*quote, error) {
	if errs := validator.Validate(cart); errs != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrValidation, formatFieldErrors(errs))
	}

	salon, err := s.salons.GetSalon(ctx, cart.SalonID)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]struct{}, len(cart.ServiceIDs))
	var minutes int
	var price int64
	for _, id := range cart.ServiceIDs {
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: service %d listed twice", domain.ErrValidation, id)
		}
		seen[id] = struct{}{}

		svc, ok := salon.Service(id)
		if !ok {
			return nil, fmt.Errorf("%w: service %d in salon %d", domain.ErrNotFound, id, salon.ID)
		}
		minutes += svc.DurationMinutes
		price += svc.Price
	}

	stylist, ok := salon.Stylist(cart.StylistID)
	if !ok {
		return nil, fmt.Errorf("%w: stylist %d in salon %d", domain.ErrNotFound, cart.StylistID, salon.ID)
	}
	if !stylist.Provides(cart.ServiceIDs) {
		return nil, fmt.Errorf("%w: stylist %d does not offer every requested service", domain.ErrValidation, stylist.ID)
	}

	slots, err := s.slots.GetByIDs(ctx, cart.SlotIDs)
	if err != nil {
		return nil, err
	}
	var capacity int
	slotIDs := make([]int64, 0, len(slots))
	for _, slot := range slots {
		if slot.SalonID != salon.ID || slot.StylistID != stylist.ID {
			return nil, fmt.Errorf("%w: slot %d does not belong to stylist %d", domain.ErrValidation, slot.ID, stylist.ID)
		}
		capacity += int(slot.Duration().Minutes())
		slotIDs = append(slotIDs, slot.ID)
	}
	if capacity < minutes {
		return nil, fmt.Errorf("%w: slots cover %d minutes, services need %d", domain.ErrValidation, capacity, minutes)
	}

	if !cart.ServiceOption.Valid() {
		return nil, fmt.Errorf("%w: unknown service option %q", domain.ErrValidation, cart.ServiceOption)
	}
	if cart.ServiceOption == domain.ServiceAtHome {
		price += s.cfg.HomeSurcharge
	}

	return &quote{
		salon:      salon,
		stylist:    stylist,
		serviceIDs: cart.ServiceIDs,
		slots:      slots,
		slotIDs:    slotIDs,
		price:      price,
	}, nil
}

func formatFieldErrors(errs map[string]string) string {
	parts := make([]string, 0, len(errs))
	for field, tag := range errs {
		parts = append(parts, field+" "+tag)
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}
