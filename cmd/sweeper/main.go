package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/m04kA/SMC-ParkingService/internal/config"
	holdRepo "github.com/m04kA/SMC-ParkingService/internal/infra/storage/hold"
	notificationRepo "github.com/m04kA/SMC-ParkingService/internal/infra/storage/notification"
	paymentOpRepo "github.com/m04kA/SMC-ParkingService/internal/infra/storage/paymentop"
	rateLimitRepo "github.com/m04kA/SMC-ParkingService/internal/infra/storage/ratelimit"
	reservationRepo "github.com/m04kA/SMC-ParkingService/internal/infra/storage/reservation"
	spotRepo "github.com/m04kA/SMC-ParkingService/internal/infra/storage/spot"
	"github.com/m04kA/SMC-ParkingService/internal/integrations/notifier"
	paymentClient "github.com/m04kA/SMC-ParkingService/internal/integrations/payment"
	"github.com/m04kA/SMC-ParkingService/internal/service/availability"
	"github.com/m04kA/SMC-ParkingService/internal/service/notifications"
	"github.com/m04kA/SMC-ParkingService/internal/service/payments"
	"github.com/m04kA/SMC-ParkingService/internal/service/reservations"
	sweepUC "github.com/m04kA/SMC-ParkingService/internal/usecase/sweep"
	"github.com/m04kA/SMC-ParkingService/pkg/dbmetrics"
	"github.com/m04kA/SMC-ParkingService/pkg/logger"
	"github.com/m04kA/SMC-ParkingService/pkg/metrics"
	"github.com/m04kA/SMC-ParkingService/pkg/txmanager"
)

// One sweeper run for an external scheduler. Exits 1 when any pass failed.
func main() {
	configPath := flag.String("config", "config.toml", "path to the TOML configuration file")
	timeout := flag.Duration("timeout", 5*time.Minute, "upper bound for the whole run")
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

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to connect to database: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)

	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database: %v", err)
	}

	// nothing scrapes a one-shot process, the nil collector makes metric calls no-ops
	var m *metrics.Metrics
	wrappedDB := dbmetrics.Wrap(db, m, cfg.Metrics.ServiceName)
	txMgr := txmanager.NewTransactionManager(wrappedDB)

	spotRepository := spotRepo.NewRepository(wrappedDB)
	holdRepository := holdRepo.NewRepository(wrappedDB)
	reservationRepository := reservationRepo.NewRepository(wrappedDB)

	payClient := paymentClient.NewClient(cfg.Payment.URL, paymentClient.Options{
		APIKey:            cfg.Payment.APIKey,
		Currency:          cfg.Payment.Currency,
		Timeout:           time.Duration(cfg.Payment.Timeout) * time.Second,
		RequestsPerSecond: cfg.Payment.RequestsPerSecond,
		Burst:             cfg.Payment.Burst,
	}, log)

	var publisher notifications.Publisher
	if cfg.Kafka.Enabled() {
		kafkaPublisher := notifier.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic,
			time.Duration(cfg.Kafka.WriteTimeout)*time.Second)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	}

	checker := availability.NewChecker(reservationRepository, holdRepository, spotRepository)
	orchestrator := payments.NewOrchestrator(payClient, paymentOpRepo.NewRepository(wrappedDB), m, log)
	reservationSvc := reservations.NewService(reservationRepository, checker, orchestrator, txMgr,
		cfg.Pricing.Policy(), cfg.Booking.ReviewWindow(), m, log)
	notificationSvc := notifications.NewService(notificationRepo.NewRepository(wrappedDB), publisher, log)

	uc := sweepUC.NewUseCase(holdRepository, reservationRepository, orchestrator, reservationSvc, notificationSvc,
		rateLimitRepo.NewRepository(wrappedDB), sweepUC.Options{
			BatchSize:        cfg.Sweeper.BatchSize,
			ReminderFraction: cfg.Booking.ReminderFraction,
			ReconcileGrace:   cfg.Sweeper.ReconcileGrace(),
		}, m, log)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report := uc.Run(ctx)

	passes := make([]string, 0, len(report.Passes))
	for name := range report.Passes {
		passes = append(passes, name)
	}
	sort.Strings(passes)
	for _, name := range passes {
		p := report.Passes[name]
		log.Info("Sweeper pass %s: processed=%d failed=%d err=%v", name, p.Processed, p.Failed, p.Err)
	}

	if report.Failed() {
		log.Close()
		os.Exit(1)
	}
}
