package reservation

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"salonbook/internal/domain"
	"salonbook/internal/pkg/metrics"
)

// ReaperConfig holds configuration for the expiry sweep.
type ReaperConfig struct {
	Interval  time.Duration // How often to sweep (default: 1m)
	BatchSize int           // Max expired slots read per sweep (default: 200)
}

func DefaultReaperConfig() ReaperConfig {
	return ReaperConfig{
		Interval:  time.Minute,
		BatchSize: 200,
	}
}

// Reaper returns abandoned holds to the available pool. It shares no lock
// with request handlers: every release is a conditional write, so a slot
// committed or extended after it was listed is simply skipped.
type Reaper struct {
	slots    SlotStore
	notifier ReleaseNotifier
	config   ReaperConfig
	now      func() time.Time

	mu     sync.Mutex
	stopCh chan struct{}
	done   chan struct{}
}

func NewReaper(slots SlotStore, notifier ReleaseNotifier, config ReaperConfig) *Reaper {
	def := DefaultReaperConfig()
	if config.Interval <= 0 {
		config.Interval = def.Interval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = def.BatchSize
	}
	return &Reaper{slots: slots, notifier: notifier, config: config, now: time.Now}
}

// SetClock replaces the wall clock, for tests.
func (r *Reaper) SetClock(now func() time.Time) {
	r.now = now
}

// Sweep releases up to one batch of expired holds and reports how many slots
// went back to available. A failed release is logged and counted; the sweep
// carries on with the remaining slots.
func (r *Reaper) Sweep(ctx context.Context) (int, error) {
	now := r.now().UTC()
	expired, err := r.slots.ListExpired(ctx, now, r.config.BatchSize)
	if err != nil {
		metrics.IncReaperError()
		return 0, err
	}

	released := 0
	byAttempt := make(map[string][]domain.TimeSlot)
	for _, slot := range expired {
		if err := ctx.Err(); err != nil {
			return released, err
		}
		if !slot.Expired(now) {
			continue
		}

		if _, err := r.slots.ApplyTransition(ctx, []domain.TimeSlot{slot}, domain.ReleaseTransition()); err != nil {
			if errors.Is(err, domain.ErrSlotConflict) {
				metrics.IncSlotConflict("reap")
				continue
			}
			metrics.IncReaperError()
			log.Printf("level=error msg=\"slot release failed\" slot_id=%d err=%v", slot.ID, err)
			continue
		}

		released++
		if slot.BookingAttemptID != nil {
			byAttempt[*slot.BookingAttemptID] = append(byAttempt[*slot.BookingAttemptID], slot)
		}
	}

	metrics.AddHoldsReleased(ReleaseReasonExpired, released)
	if r.notifier != nil {
		for attemptID, slots := range byAttempt {
			ids := make([]int64, 0, len(slots))
			for _, s := range slots {
				ids = append(ids, s.ID)
			}
			r.notifier.HoldReleased(ctx, attemptID, ids, ReleaseReasonExpired)
		}
	}
	return released, nil
}

// Start runs Sweep on every tick until ctx is done or Stop is called.
// Calling Start on a running reaper is a no-op; once the loop has exited it
// can be started again.
func (r *Reaper) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopCh != nil {
		return
	}

	stopCh := make(chan struct{})
	done := make(chan struct{})
	r.stopCh, r.done = stopCh, done

	go func() {
		defer close(done)
		defer func() {
			// Let a later Start run again after ctx ended the loop.
			r.mu.Lock()
			if r.stopCh == stopCh {
				r.stopCh, r.done = nil, nil
			}
			r.mu.Unlock()
		}()
		ticker := time.NewTicker(r.config.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				start := time.Now()
				n, err := r.Sweep(ctx)
				if err != nil {
					log.Printf("level=error msg=\"expiry sweep failed\" err=%v", err)
					continue
				}
				if n > 0 {
					log.Printf("level=info msg=\"expiry sweep\" released=%d duration=%s", n, time.Since(start))
				}
			case <-stopCh:
				log.Println("Slot reaper stopped")
				return
			case <-ctx.Done():
				log.Println("Slot reaper stopped (context Done)")
				return
			}
		}
	}()

	log.Printf("Slot reaper started with interval %v", r.config.Interval)
}

// Stop halts the loop and waits for an in-flight sweep to finish.
func (r *Reaper) Stop() {
	r.mu.Lock()
	stopCh, done := r.stopCh, r.done
	r.stopCh, r.done = nil, nil
	r.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	<-done
}
