package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	slotsGenerated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "salonbook",
			Name:      "slots_generated_total",
			Help:      "Count of new time slots persisted by the generator.",
		},
	)

	slotConflicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "salonbook",
			Name:      "slot_conflicts_total",
			Help:      "Count of lost slot compare-and-swap writes by operation.",
		},
		[]string{"operation"},
	)

	holdsReleased = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "salonbook",
			Name:      "holds_released_total",
			Help:      "Count of reserved slots returned to available by reason.",
		},
		[]string{"reason"},
	)

	reaperErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "salonbook",
			Name:      "reaper_errors_total",
			Help:      "Count of failed expiry sweeps or slot releases.",
		},
	)

	bookings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "salonbook",
			Name:      "bookings_total",
			Help:      "Count of booking operations by payment method and outcome.",
		},
		[]string{"method", "outcome"},
	)

	webhookEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "salonbook",
			Name:      "payment_events_total",
			Help:      "Count of payment events by outcome.",
		},
		[]string{"outcome"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(slotsGenerated, slotConflicts, holdsReleased, reaperErrors, bookings, webhookEvents)
	})
}

func AddSlotsGenerated(n int) {
	if n > 0 {
		slotsGenerated.Add(float64(n))
	}
}

func IncSlotConflict(operation string) {
	slotConflicts.WithLabelValues(operation).Inc()
}

func AddHoldsReleased(reason string, n int) {
	if n > 0 {
		holdsReleased.WithLabelValues(reason).Add(float64(n))
	}
}

func IncReaperError() {
	reaperErrors.Inc()
}

func IncBooking(method, outcome string) {
	bookings.WithLabelValues(method, outcome).Inc()
}

func IncPaymentEvent(outcome string) {
	webhookEvents.WithLabelValues(outcome).Inc()
}
