package domain

import "time"

type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "pending"
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentWallet PaymentMethod = "wallet"
	PaymentOnline PaymentMethod = "online"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentCash || m == PaymentWallet || m == PaymentOnline
}

type ServiceOption string

const (
	ServiceAtHome  ServiceOption = "home"
	ServiceInStore ServiceOption = "store"
)

func (o ServiceOption) Valid() bool {
	return o == ServiceAtHome || o == ServiceInStore
}

// Appointment is the committed outcome of a booking attempt. It only exists
// once its slots are booked.
type Appointment struct {
	ID               int64             `json:"id" gorm:"primaryKey"`
	UserID           int64             `json:"user_id" gorm:"not null;index"`
	SalonID          int64             `json:"salon_id" gorm:"not null;index"`
	StylistID        int64             `json:"stylist_id" gorm:"not null;index"`
	ServiceIDs       []int64           `json:"service_ids" gorm:"serializer:json;type:text"`
	SlotIDs          []int64           `json:"slot_ids" gorm:"serializer:json;type:text"`
	TotalPrice       int64             `json:"total_price" gorm:"not null"`
	Currency         string            `json:"currency" gorm:"type:varchar(8)"`
	PaymentStatus    PaymentStatus     `json:"payment_status" gorm:"type:varchar(16);not null"`
	PaymentMethod    PaymentMethod     `json:"payment_method" gorm:"type:varchar(16);not null"`
	ServiceOption    ServiceOption     `json:"service_option" gorm:"type:varchar(16);not null"`
	Status           AppointmentStatus `json:"status" gorm:"type:varchar(16);not null;index"`
	BookingAttemptID *string           `json:"booking_attempt_id,omitempty" gorm:"type:varchar(64);uniqueIndex"`
	PaymentReference string            `json:"payment_reference,omitempty" gorm:"type:varchar(128)"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

func (Appointment) TableName() string { return "appointments" }
