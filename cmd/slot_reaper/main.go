package main

import (
	"context"
	"log"
	"time"

	"salonbook/internal/config"
	"salonbook/internal/database"
	"salonbook/internal/modules/booking"
	"salonbook/internal/modules/reservation"
	"salonbook/internal/pkg/mq"
	"salonbook/internal/repository"
)

// slot_reaper runs one expiry sweep and exits, for cron-driven deployments
// that do not keep the in-process reaper.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}

	var events booking.EventPublisher
	if cfg.RabbitURL != "" {
		pub, err := mq.NewPublisher(cfg.RabbitURL, cfg.BookingExchange)
		if err != nil {
			log.Fatalf("rabbitmq: %v", err)
		}
		defer pub.Close()
		events = pub
	}

	reaper := reservation.NewReaper(
		repository.NewSlotRepository(db),
		booking.NewReleaseNotifier(events, log.Printf),
		reservation.ReaperConfig{Interval: cfg.ReaperInterval, BatchSize: cfg.ReaperBatchSize},
	)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	released, err := reaper.Sweep(ctx)
	if err != nil {
		log.Fatalf("slot sweep failed: %v", err)
	}
	log.Printf("slot reaper completed: released=%d", released)
}
