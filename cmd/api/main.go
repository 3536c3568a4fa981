package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"salonbook/internal/config"
	"salonbook/internal/database"
	"salonbook/internal/domain"
	"salonbook/internal/domain/wallet"
	"salonbook/internal/modules/booking"
	"salonbook/internal/modules/payment"
	"salonbook/internal/modules/reservation"
	"salonbook/internal/modules/slots"
	jwtsvc "salonbook/internal/pkg/jwt"
	"salonbook/internal/pkg/lock"
	"salonbook/internal/pkg/metrics"
	"salonbook/internal/pkg/mq"
	"salonbook/internal/pkg/obs"
	"salonbook/internal/repository"
	"salonbook/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := obs.InitTracer(ctx, cfg.ServiceName, cfg.AppEnv, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("tracer: %v", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(sctx); err != nil {
			log.Printf("level=warn msg=\"tracer shutdown\" err=%v", err)
		}
	}()
	metrics.Register()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
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

	var locks booking.AttemptLocker = lock.NewMemoryLocker()
	if cfg.RedisAddr != "" {
		rdb := lock.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := lock.Ping(ctx, rdb); err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer rdb.Close()
		locks = lock.NewRedisLocker(rdb, "salonbook:lock:")
	}

	salonRepo := repository.NewSalonRepository(db)
	slotRepo := repository.NewSlotRepository(db)
	appointmentRepo := repository.NewAppointmentRepository(db)
	walletService := wallet.NewService(db)

	notifier := booking.NewReleaseNotifier(events, log.Printf)
	holds := reservation.NewManager(slotRepo, notifier)
	reaper := reservation.NewReaper(slotRepo, notifier, reservation.ReaperConfig{
		Interval:  cfg.ReaperInterval,
		BatchSize: cfg.ReaperBatchSize,
	})

	var (
		paymentService *payment.Service
		gateway        booking.PaymentGateway
	)
	if cfg.PaymentsEnabled() {
		paymentService, err = payment.NewOmiseService(payment.Config{
			PublicKey:  cfg.OmisePublicKey,
			SecretKey:  cfg.OmiseSecretKey,
			SourceType: cfg.OmiseSourceType,
			ReturnURI:  cfg.OmiseReturnURI,
		}, nil, log.Printf)
		if err != nil {
			log.Fatalf("omise: %v", err)
		}
		gateway = paymentService
	}

	bookingService := booking.NewService(booking.Deps{
		DB:           db,
		Salons:       salonRepo,
		Slots:        slotRepo,
		Appointments: appointmentRepo,
		Wallets:      walletService,
		Holds:        holds,
		Gateway:      gateway,
		Events:       events,
		Locks:        locks,
		Loggerf:      log.Printf,
	}, booking.Config{
		ReservationTTL: cfg.ReservationTTL,
		CheckoutTTL:    cfg.CheckoutTTL,
		HomeSurcharge:  cfg.HomeSurcharge,
		Currency:       cfg.Currency,
		CashStatus:     domain.AppointmentStatus(cfg.CashBookingStatus),
		LockTTL:        cfg.WebhookLockTTL,
	})
	if paymentService != nil {
		paymentService.SetEventHandler(bookingService)
	}

	router := server.NewRouter(server.Deps{
		DB:          db,
		Tokens:      jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL),
		Slots:       slots.NewService(salonRepo, slotRepo, cfg.SlotBuffer(), log.Printf),
		Bookings:    bookingService,
		Wallets:     walletService,
		Payments:    paymentService,
		ServiceName: cfg.ServiceName,
		CORSOrigins: cfg.CORSOrigins,
		Loggerf:     log.Printf,
	})

	reaper.Start(ctx)
	defer reaper.Stop()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("level=info msg=\"http server listening\" addr=%s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("level=info msg=\"shutting down\"")

	sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Printf("level=error msg=\"http shutdown\" err=%v", err)
	}
}
