package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/m04kA/SMC-ParkingService/internal/api"
	"github.com/m04kA/SMC-ParkingService/internal/api/handlers"
	approveReservationHandler "github.com/m04kA/SMC-ParkingService/internal/api/handlers/approve_reservation"
	cancelGuestReservationHandler "github.com/m04kA/SMC-ParkingService/internal/api/handlers/cancel_guest_reservation"
	cancelReservationHandler "github.com/m04kA/SMC-ParkingService/internal/api/handlers/cancel_reservation"
	checkAvailabilityHandler "github.com/m04kA/SMC-ParkingService/internal/api/handlers/check_availability"
	createGuestReservationHandler "github.com/m04kA/SMC-ParkingService/internal/api/handlers/create_guest_reservation"
	createHoldHandler "github.com/m04kA/SMC-ParkingService/internal/api/handlers/create_hold"
	createReservationHandler "github.com/m04kA/SMC-ParkingService/internal/api/handlers/create_reservation"
	declineReservationHandler "github.com/m04kA/SMC-ParkingService/internal/api/handlers/decline_reservation"
	extendReservationHandler "github.com/m04kA/SMC-ParkingService/internal/api/handlers/extend_reservation"
	finalizePaymentHandler "github.com/m04kA/SMC-ParkingService/internal/api/handlers/finalize_payment"
	getReservationHandler "github.com/m04kA/SMC-ParkingService/internal/api/handlers/get_reservation"
	listSpotReservationsHandler "github.com/m04kA/SMC-ParkingService/internal/api/handlers/list_spot_reservations"
	reconcileGuestHandler "github.com/m04kA/SMC-ParkingService/internal/api/handlers/reconcile_guest"
	refundReservationHandler "github.com/m04kA/SMC-ParkingService/internal/api/handlers/refund_reservation"
	releaseHoldHandler "github.com/m04kA/SMC-ParkingService/internal/api/handlers/release_hold"
	"github.com/m04kA/SMC-ParkingService/internal/config"
	holdRepo "github.com/m04kA/SMC-ParkingService/internal/infra/storage/hold"
	notificationRepo "github.com/m04kA/SMC-ParkingService/internal/infra/storage/notification"
	paymentOpRepo "github.com/m04kA/SMC-ParkingService/internal/infra/storage/paymentop"
	rateLimitRepo "github.com/m04kA/SMC-ParkingService/internal/infra/storage/ratelimit"
	reservationRepo "github.com/m04kA/SMC-ParkingService/internal/infra/storage/reservation"
	spotRepo "github.com/m04kA/SMC-ParkingService/internal/infra/storage/spot"
	"github.com/m04kA/SMC-ParkingService/internal/integrations/identity"
	"github.com/m04kA/SMC-ParkingService/internal/integrations/notifier"
	paymentClient "github.com/m04kA/SMC-ParkingService/internal/integrations/payment"
	"github.com/m04kA/SMC-ParkingService/internal/service/availability"
	"github.com/m04kA/SMC-ParkingService/internal/service/notifications"
	"github.com/m04kA/SMC-ParkingService/internal/service/payments"
	"github.com/m04kA/SMC-ParkingService/internal/service/ratelimit"
	"github.com/m04kA/SMC-ParkingService/internal/service/reservations"
	approveReservationUC "github.com/m04kA/SMC-ParkingService/internal/usecase/approve_reservation"
	cancelReservationUC "github.com/m04kA/SMC-ParkingService/internal/usecase/cancel_reservation"
	checkAvailabilityUC "github.com/m04kA/SMC-ParkingService/internal/usecase/check_availability"
	createHoldUC "github.com/m04kA/SMC-ParkingService/internal/usecase/create_hold"
	createReservationUC "github.com/m04kA/SMC-ParkingService/internal/usecase/create_reservation"
	extendReservationUC "github.com/m04kA/SMC-ParkingService/internal/usecase/extend_reservation"
	finalizePaymentUC "github.com/m04kA/SMC-ParkingService/internal/usecase/finalize_payment"
	reconcileGuestUC "github.com/m04kA/SMC-ParkingService/internal/usecase/reconcile_guest"
	refundReservationUC "github.com/m04kA/SMC-ParkingService/internal/usecase/refund_reservation"
	releaseHoldUC "github.com/m04kA/SMC-ParkingService/internal/usecase/release_hold"
	sweepUC "github.com/m04kA/SMC-ParkingService/internal/usecase/sweep"
	"github.com/m04kA/SMC-ParkingService/pkg/dbmetrics"
	"github.com/m04kA/SMC-ParkingService/pkg/logger"
	"github.com/m04kA/SMC-ParkingService/pkg/metrics"
	"github.com/m04kA/SMC-ParkingService/pkg/txmanager"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to the TOML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewWithOptions(cfg.Logs.File, cfg.Logs.Level, logger.Options{
		MaxSizeMB:  cfg.Logs.MaxSizeMB,
		MaxBackups: cfg.Logs.MaxBackups,
		MaxAgeDays: cfg.Logs.MaxAgeDays,
	})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Info("Starting SMC-ParkingService...")
	log.Info("Configuration loaded from %s", *configPath)

	// nil collector turns every metric call into a no-op
	var metricsCollector *metrics.Metrics
	stopMetricsCh := make(chan struct{})
	if cfg.Metrics.Enabled {
		metricsCollector = metrics.New(cfg.Metrics.ServiceName)
		log.Info("Metrics enabled at %s", cfg.Metrics.Path)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to connect to database: %v", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)

	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database: %v", err)
	}
	log.Info("Successfully connected to database (host=%s, port=%d, db=%s)",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)

	wrappedDB := dbmetrics.WrapWithDefault(db, metricsCollector, cfg.Metrics.ServiceName, stopMetricsCh)
	txMgr := txmanager.NewTransactionManager(wrappedDB)

	// Repositories
	spotRepository := spotRepo.NewRepository(wrappedDB)
	holdRepository := holdRepo.NewRepository(wrappedDB)
	reservationRepository := reservationRepo.NewRepository(wrappedDB)
	paymentOpRepository := paymentOpRepo.NewRepository(wrappedDB)
	notificationRepository := notificationRepo.NewRepository(wrappedDB)
	counterRepository := rateLimitRepo.NewRepository(wrappedDB)

	// Integrations
	payClient := paymentClient.NewClient(cfg.Payment.URL, paymentClient.Options{
		APIKey:            cfg.Payment.APIKey,
		Currency:          cfg.Payment.Currency,
		Timeout:           time.Duration(cfg.Payment.Timeout) * time.Second,
		RequestsPerSecond: cfg.Payment.RequestsPerSecond,
		Burst:             cfg.Payment.Burst,
	}, log)
	log.Info("Payment client initialized (url=%s, timeout=%ds)", cfg.Payment.URL, cfg.Payment.Timeout)

	var publisher notifications.Publisher
	if cfg.Kafka.Enabled() {
		kafkaPublisher := notifier.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic,
			time.Duration(cfg.Kafka.WriteTimeout)*time.Second)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
		log.Info("Notifications published to kafka topic %s", cfg.Kafka.Topic)
	} else {
		log.Warn("Kafka brokers not configured, notifications are stored only")
	}

	authn := identity.NewProvider(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.Audience)

	// Services
	pricing := cfg.Pricing.Policy()
	checker := availability.NewChecker(reservationRepository, holdRepository, spotRepository)
	orchestrator := payments.NewOrchestrator(payClient, paymentOpRepository, metricsCollector, log)
	reservationSvc := reservations.NewService(reservationRepository, checker, orchestrator, txMgr, pricing,
		cfg.Booking.ReviewWindow(), metricsCollector, log)
	notificationSvc := notifications.NewService(notificationRepository, publisher, log)

	// Use cases
	checkAvailabilityUseCase := checkAvailabilityUC.NewUseCase(spotRepository, checker, pricing,
		checkAvailabilityUC.Options{MinDuration: cfg.Booking.MinDuration(), MaxDuration: cfg.Booking.MaxDuration()}, log)
	createHoldUseCase := createHoldUC.NewUseCase(holdRepository, spotRepository, checker, txMgr,
		createHoldUC.Options{
			TTL:         cfg.Booking.HoldTTL(),
			MinDuration: cfg.Booking.MinDuration(),
			MaxDuration: cfg.Booking.MaxDuration(),
		}, metricsCollector, log)
	releaseHoldUseCase := releaseHoldUC.NewUseCase(holdRepository, log)
	createReservationUseCase := createReservationUC.NewUseCase(
		reservationRepository,
		holdRepository,
		spotRepository,
		checker,
		reservationSvc,
		notificationSvc,
		txMgr,
		createReservationUC.Options{
			Pricing:             pricing,
			ReservationDeadline: cfg.Booking.ReservationDeadline(),
			ReviewWindow:        cfg.Booking.ReviewWindow(),
			MinDuration:         cfg.Booking.MinDuration(),
			MaxDuration:         cfg.Booking.MaxDuration(),
		},
		metricsCollector,
		log,
	)
	approveReservationUseCase := approveReservationUC.NewUseCase(reservationRepository, checker, reservationSvc,
		notificationSvc, txMgr, log)
	extendReservationUseCase := extendReservationUC.NewUseCase(reservationRepository, checker, orchestrator,
		reservationSvc, notificationSvc, cfg.Booking.MaxExtension(), log)
	cancelReservationUseCase := cancelReservationUC.NewUseCase(reservationRepository, holdRepository, reservationSvc,
		notificationSvc, cfg.Booking.RefundPolicy(), log)
	refundReservationUseCase := refundReservationUC.NewUseCase(reservationRepository, reservationSvc, notificationSvc, log)
	finalizePaymentUseCase := finalizePaymentUC.NewUseCase(reservationRepository, orchestrator, reservationSvc,
		notificationSvc, log)
	reconcileGuestUseCase := reconcileGuestUC.NewUseCase(reservationRepository, log)
	sweepUseCase := sweepUC.NewUseCase(holdRepository, reservationRepository, orchestrator, reservationSvc,
		notificationSvc, counterRepository, sweepUC.Options{
			BatchSize:        cfg.Sweeper.BatchSize,
			ReminderFraction: cfg.Booking.ReminderFraction,
			ReconcileGrace:   cfg.Sweeper.ReconcileGrace(),
		}, metricsCollector, log)

	// Handlers
	pending := handlers.NewReconciliation(reservationRepository)
	apiHandlers := api.Handlers{
		CheckAvailability:      checkAvailabilityHandler.NewHandler(checkAvailabilityUseCase, log),
		CreateHold:             createHoldHandler.NewHandler(createHoldUseCase, log),
		ReleaseHold:            releaseHoldHandler.NewHandler(releaseHoldUseCase, log),
		CreateReservation:      createReservationHandler.NewHandler(createReservationUseCase, pending, log),
		CreateGuestReservation: createGuestReservationHandler.NewHandler(createReservationUseCase, pending, log),
		GetReservation:         getReservationHandler.NewHandler(reservationSvc, log),
		ListSpotReservations:   listSpotReservationsHandler.NewHandler(reservationSvc, log),
		ApproveReservation:     approveReservationHandler.NewHandler(approveReservationUseCase, pending, log),
		DeclineReservation:     declineReservationHandler.NewHandler(approveReservationUseCase, pending, log),
		ExtendReservation:      extendReservationHandler.NewHandler(extendReservationUseCase, pending, log),
		CancelReservation:      cancelReservationHandler.NewHandler(cancelReservationUseCase, pending, log),
		CancelGuestReservation: cancelGuestReservationHandler.NewHandler(cancelReservationUseCase, pending, log),
		RefundReservation:      refundReservationHandler.NewHandler(refundReservationUseCase, pending, log),
		FinalizePayment:        finalizePaymentHandler.NewHandler(finalizePaymentUseCase, pending, log),
		ReconcileGuest:         reconcileGuestHandler.NewHandler(reconcileGuestUseCase, log),
	}

	routerOpts := api.Options{
		Authenticator: authn,
		Metrics:       metricsCollector,
		MetricsPath:   cfg.Metrics.Path,
	}
	if cfg.RateLimit.Enabled {
		policies := make(map[string]ratelimit.Policy, len(cfg.RateLimit.Operations))
		for op, limit := range cfg.RateLimit.Operations {
			policies[op] = ratelimit.NewPolicy(limit.PerMinute, limit.PerHour)
		}
		routerOpts.Limiter = ratelimit.NewLimiter(counterRepository, policies, metricsCollector, log)
		log.Info("Rate limiting enabled for %d operations", len(policies))
	}

	r := api.NewRouter(apiHandlers, routerOpts, log)

	addr := fmt.Sprintf(":%d", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	sweeperCtx, stopSweeper := context.WithCancel(context.Background())
	sweeperDone := make(chan struct{})
	if cfg.Sweeper.Enabled {
		go func() {
			defer close(sweeperDone)
			runSweeper(sweeperCtx, sweepUseCase, cfg.Sweeper.Interval(), log)
		}()
		log.Info("Sweeper scheduled every %s", cfg.Sweeper.Interval())
	} else {
		close(sweeperDone)
	}

	go func() {
		log.Info("Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown: %v", err)
	}

	// a pass in flight finishes its current item before returning
	stopSweeper()
	<-sweeperDone

	close(stopMetricsCh)
	log.Info("Server stopped gracefully")
}

// runSweeper runs every pass once per interval until ctx is canceled
func runSweeper(ctx context.Context, uc *sweepUC.UseCase, interval time.Duration, log *logger.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if report := uc.Run(ctx); report.Failed() {
				log.Warn("Sweeper run started at %s finished with failures", report.StartedAt.Format(time.RFC3339))
			}
		}
	}
}
