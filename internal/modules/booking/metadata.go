package booking

import (
	"fmt"
	"strconv"
	"strings"

	"salonbook/internal/domain"
)

const (
	metaUserID        = "userId"
	metaSalonID       = "salonId"
	metaStylistID     = "stylistId"
	metaServiceIDs    = "serviceIds"
	metaSlotIDs       = "slotIds"
	metaAttemptID     = "bookingAttemptId"
	metaPaymentMethod = "paymentMethod"
	metaServiceOption = "serviceOption"
	metaTotalPrice    = "totalPrice"
)

// CheckoutMetadata travels through the payment provider as flat strings.
type CheckoutMetadata struct {
	UserID        int64
	SalonID       int64
	StylistID     int64
	ServiceIDs    []int64
	SlotIDs       []int64
	AttemptID     string
	PaymentMethod domain.PaymentMethod
	ServiceOption domain.ServiceOption
	TotalPrice    int64
}

func (m CheckoutMetadata) Encode() map[string]string {
	return map[string]string{
		metaUserID:        strconv.FormatInt(m.UserID, 10),
		metaSalonID:       strconv.FormatInt(m.SalonID, 10),
		metaStylistID:     strconv.FormatInt(m.StylistID, 10),
		metaServiceIDs:    joinIDs(m.ServiceIDs),
		metaSlotIDs:       joinIDs(m.SlotIDs),
		metaAttemptID:     m.AttemptID,
		metaPaymentMethod: string(m.PaymentMethod),
		metaServiceOption: string(m.ServiceOption),
		metaTotalPrice:    strconv.FormatInt(m.TotalPrice, 10),
	}
}

// ParseMetadata rejects missing or malformed fields with ErrPaymentMismatch.
func ParseMetadata(raw map[string]string) (CheckoutMetadata, error) {
	var (
		m   CheckoutMetadata
		err error
	)
	for _, key := range []string{metaUserID, metaSalonID, metaStylistID, metaServiceIDs, metaSlotIDs, metaAttemptID, metaTotalPrice} {
		if strings.TrimSpace(raw[key]) == "" {
			return m, fmt.Errorf("%w: metadata %s is missing", domain.ErrPaymentMismatch, key)
		}
	}

	if m.UserID, err = positiveInt(raw, metaUserID); err != nil {
		return m, err
	}
	if m.SalonID, err = positiveInt(raw, metaSalonID); err != nil {
		return m, err
	}
	if m.StylistID, err = positiveInt(raw, metaStylistID); err != nil {
		return m, err
	}
	if m.ServiceIDs, err = splitIDs(raw, metaServiceIDs); err != nil {
		return m, err
	}
	if m.SlotIDs, err = splitIDs(raw, metaSlotIDs); err != nil {
		return m, err
	}
	if m.TotalPrice, err = strconv.ParseInt(strings.TrimSpace(raw[metaTotalPrice]), 10, 64); err != nil || m.TotalPrice < 0 {
		return m, fmt.Errorf("%w: metadata %s is not a valid amount", domain.ErrPaymentMismatch, metaTotalPrice)
	}

	m.AttemptID = strings.TrimSpace(raw[metaAttemptID])
	m.PaymentMethod = domain.PaymentMethod(raw[metaPaymentMethod])
	if m.PaymentMethod == "" {
		m.PaymentMethod = domain.PaymentOnline
	}
	m.ServiceOption = domain.ServiceOption(raw[metaServiceOption])
	if m.ServiceOption == "" {
		m.ServiceOption = domain.ServiceInStore
	}
	if !m.PaymentMethod.Valid() || !m.ServiceOption.Valid() {
		return m, fmt.Errorf("%w: metadata has unknown payment method or service option", domain.ErrPaymentMismatch)
	}
	return m, nil
}

func positiveInt(raw map[string]string, key string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(raw[key]), 10, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%w: metadata %s is not a positive integer", domain.ErrPaymentMismatch, key)
	}
	return v, nil
}

func splitIDs(raw map[string]string, key string) ([]int64, error) {
	parts := strings.Split(raw[key], ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil || v <= 0 {
			return nil, fmt.Errorf("%w: metadata %s has a bad id %q", domain.ErrPaymentMismatch, key, p)
		}
		out = append(out, v)
	}
	return out, nil
}

func joinIDs(ids []int64) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.FormatInt(id, 10))
	}
	return strings.Join(parts, ",")
}
