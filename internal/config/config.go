package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
)

// EnvPrefix environment overrides look like PARKING_DATABASE_PASSWORD
const EnvPrefix = "PARKING"

var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config service configuration
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Logs      LogsConfig      `toml:"logs"`
	Metrics   MetricsConfig   `toml:"metrics"`
	Auth      AuthConfig      `toml:"auth"`
	Payment   PaymentConfig   `toml:"payment"`
	Kafka     KafkaConfig     `toml:"kafka"`
	Booking   BookingConfig   `toml:"booking"`
	Pricing   PricingConfig   `toml:"pricing"`
	RateLimit RateLimitConfig `toml:"ratelimit"`
	Sweeper   SweeperConfig   `toml:"sweeper"`
}

// ServerConfig HTTP server, timeouts in seconds
type ServerConfig struct {
	HTTPPort        int `toml:"http_port" split_words:"true"`
	ReadTimeout     int `toml:"read_timeout" split_words:"true"`
	WriteTimeout    int `toml:"write_timeout" split_words:"true"`
	IdleTimeout     int `toml:"idle_timeout" split_words:"true"`
	ShutdownTimeout int `toml:"shutdown_timeout" split_words:"true"`
}

// DatabaseConfig Postgres connection
type DatabaseConfig struct {
	Host            string `toml:"host" split_words:"true"`
	Port            int    `toml:"port" split_words:"true"`
	User            string `toml:"user" split_words:"true"`
	Password        string `toml:"password" split_words:"true"`
	DBName          string `toml:"dbname" split_words:"true"`
	SSLMode         string `toml:"sslmode" split_words:"true"`
	MaxOpenConns    int    `toml:"max_open_conns" split_words:"true"`
	MaxIdleConns    int    `toml:"max_idle_conns" split_words:"true"`
	ConnMaxLifetime int    `toml:"conn_max_lifetime" split_words:"true"` // seconds
}

// DSN lib/pq connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// LogsConfig log level and optional rotating file
type LogsConfig struct {
	Level      string `toml:"level" split_words:"true"`
	File       string `toml:"file" split_words:"true"`
	MaxSizeMB  int    `toml:"max_size_mb" split_words:"true"`
	MaxBackups int    `toml:"max_backups" split_words:"true"`
	MaxAgeDays int    `toml:"max_age_days" split_words:"true"`
}

type MetricsConfig struct {
	Enabled     bool   `toml:"enabled" split_words:"true"`
	Path        string `toml:"path" split_words:"true"`
	ServiceName string `toml:"service_name" split_words:"true"`
}

// AuthConfig bearer token verification
type AuthConfig struct {
	JWTSecret string `toml:"jwt_secret" split_words:"true"`
	Issuer    string `toml:"issuer" split_words:"true"`
	Audience  string `toml:"audience" split_words:"true"`
}

// PaymentConfig payment authority client
type PaymentConfig struct {
	URL               string  `toml:"url" split_words:"true"`
	APIKey            string  `toml:"api_key" split_words:"true"`
	Timeout           int     `toml:"timeout" split_words:"true"` // seconds
	Currency          string  `toml:"currency" split_words:"true"`
	RequestsPerSecond float64 `toml:"requests_per_second" split_words:"true"`
	Burst             int     `toml:"burst" split_words:"true"`
}

// KafkaConfig notification sink, empty brokers disables publishing
type KafkaConfig struct {
	Brokers      []string `toml:"brokers" split_words:"true"`
	Topic        string   `toml:"topic" split_words:"true"`
	WriteTimeout int      `toml:"write_timeout" split_words:"true"` // seconds
}

// Enabled publishing configured
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// BookingConfig lifecycle timings
type BookingConfig struct {
	HoldTTLMinutes              int     `toml:"hold_ttl_minutes" split_words:"true"`
	ReservationDeadlineHours    int     `toml:"reservation_deadline_hours" split_words:"true"`
	ReminderFraction            float64 `toml:"reminder_fraction" split_words:"true"`
	CancellationLeadTimeMinutes int     `toml:"cancellation_lead_time_minutes" split_words:"true"`
	LateRefundPercent           float64 `toml:"late_refund_percent" split_words:"true"`
	MaxExtensionHours           int     `toml:"max_extension_hours" split_words:"true"`
	MinDurationMinutes          int     `toml:"min_duration_minutes" split_words:"true"`
	MaxDurationHours            int     `toml:"max_duration_hours" split_words:"true"`
	ReviewWindowDays            int     `toml:"review_window_days" split_words:"true"`
}

func (b BookingConfig) HoldTTL() time.Duration {
	return time.Duration(b.HoldTTLMinutes) * time.Minute
}

func (b BookingConfig) ReservationDeadline() time.Duration {
	return time.Duration(b.ReservationDeadlineHours) * time.Hour
}

func (b BookingConfig) CancellationLeadTime() time.Duration {
	return time.Duration(b.CancellationLeadTimeMinutes) * time.Minute
}

// RefundPolicy cancellation refund rules
func (b BookingConfig) RefundPolicy() domain.RefundPolicy {
	return domain.RefundPolicy{
		LeadTime:    b.CancellationLeadTime(),
		LatePercent: b.LateRefundPercent,
	}
}

func (b BookingConfig) MaxExtension() time.Duration {
	return time.Duration(b.MaxExtensionHours) * time.Hour
}

func (b BookingConfig) MinDuration() time.Duration {
	return time.Duration(b.MinDurationMinutes) * time.Minute
}

func (b BookingConfig) MaxDuration() time.Duration {
	return time.Duration(b.MaxDurationHours) * time.Hour
}

func (b BookingConfig) ReviewWindow() time.Duration {
	return time.Duration(b.ReviewWindowDays) * 24 * time.Hour
}

// PricingConfig fees, amounts in decimal currency units
type PricingConfig struct {
	PlatformFeePercent float64 `toml:"platform_fee_percent" split_words:"true"`
	PlatformFeeFloor   float64 `toml:"platform_fee_floor" split_words:"true"`
	ServiceFeePercent  float64 `toml:"service_fee_percent" split_words:"true"`
	ServiceFeeFloor    float64 `toml:"service_fee_floor" split_words:"true"`
	ClaimantMargin     float64 `toml:"claimant_margin" split_words:"true"` // per hour, 0 = no markup
}

// Policy converts to the domain pricing policy
func (p PricingConfig) Policy() domain.PricingPolicy {
	return domain.PricingPolicy{
		PlatformFeePercent: p.PlatformFeePercent,
		PlatformFeeFloor:   domain.MoneyFromDecimal(p.PlatformFeeFloor),
		ServiceFeePercent:  p.ServiceFeePercent,
		ServiceFeeFloor:    domain.MoneyFromDecimal(p.ServiceFeeFloor),
		ClaimantMargin:     domain.MoneyFromDecimal(p.ClaimantMargin),
	}
}

// LimitConfig per-operation limits, zero disables a window
type LimitConfig struct {
	PerMinute int `toml:"per_minute"`
	PerHour   int `toml:"per_hour"`
}

// RateLimitConfig limits keyed by operation name
type RateLimitConfig struct {
	Enabled    bool                   `toml:"enabled" split_words:"true"`
	Operations map[string]LimitConfig `toml:"operations" ignored:"true"`
}

// SweeperConfig background maintenance passes
type SweeperConfig struct {
	Enabled            bool `toml:"enabled" split_words:"true"`
	IntervalSeconds    int  `toml:"interval_seconds" split_words:"true"`
	BatchSize          int  `toml:"batch_size" split_words:"true"`
	ReconcileGraceSecs int  `toml:"reconcile_grace_seconds" split_words:"true"`
}

func (s SweeperConfig) Interval() time.Duration {
	return time.Duration(s.IntervalSeconds) * time.Second
}

func (s SweeperConfig) ReconcileGrace() time.Duration {
	return time.Duration(s.ReconcileGraceSecs) * time.Second
}

// Load reads the TOML file, fills defaults, applies PARKING_* environment overrides and validates
func Load(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat config file %s: %w", path, err)
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	cfg.fillRateLimitDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values a running service cannot work without
func (c *Config) Validate() error {
	switch {
	case c.Server.HTTPPort <= 0:
		return fmt.Errorf("%w: server.http_port must be positive", ErrInvalidConfig)
	case c.Database.Host == "" || c.Database.DBName == "":
		return fmt.Errorf("%w: database.host and database.dbname are required", ErrInvalidConfig)
	case c.Auth.JWTSecret == "":
		return fmt.Errorf("%w: auth.jwt_secret is required", ErrInvalidConfig)
	case c.Payment.URL == "":
		return fmt.Errorf("%w: payment.url is required", ErrInvalidConfig)
	case c.Booking.HoldTTLMinutes <= 0:
		return fmt.Errorf("%w: booking.hold_ttl_minutes must be positive", ErrInvalidConfig)
	case c.Booking.ReservationDeadlineHours <= 0:
		return fmt.Errorf("%w: booking.reservation_deadline_hours must be positive", ErrInvalidConfig)
	case c.Booking.ReminderFraction <= 0 || c.Booking.ReminderFraction >= 1:
		return fmt.Errorf("%w: booking.reminder_fraction must be in (0, 1)", ErrInvalidConfig)
	case c.Booking.LateRefundPercent < 0 || c.Booking.LateRefundPercent > 100:
		return fmt.Errorf("%w: booking.late_refund_percent must be in [0, 100]", ErrInvalidConfig)
	case c.Booking.MinDurationMinutes <= 0 || c.Booking.MaxDuration() < c.Booking.MinDuration():
		return fmt.Errorf("%w: booking duration bounds are inconsistent", ErrInvalidConfig)
	case c.Pricing.PlatformFeePercent < 0 || c.Pricing.ServiceFeePercent < 0:
		return fmt.Errorf("%w: fee percents must not be negative", ErrInvalidConfig)
	case c.Pricing.ClaimantMargin < 0:
		return fmt.Errorf("%w: pricing.claimant_margin must not be negative", ErrInvalidConfig)
	case c.Sweeper.Enabled && c.Sweeper.IntervalSeconds <= 0:
		return fmt.Errorf("%w: sweeper.interval_seconds must be positive", ErrInvalidConfig)
	}
	return nil
}

// Default configuration used for anything the file leaves out
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:        8080,
			ReadTimeout:     15,
			WriteTimeout:    15,
			IdleTimeout:     60,
			ShutdownTimeout: 30,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			User:            "postgres",
			DBName:          "parking",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 300,
		},
		Logs: LogsConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
		Metrics: MetricsConfig{
			Enabled:     true,
			Path:        "/metrics",
			ServiceName: "parking_service",
		},
		Payment: PaymentConfig{
			Timeout:           10,
			Currency:          "usd",
			RequestsPerSecond: 20,
			Burst:             40,
		},
		Kafka: KafkaConfig{
			Topic:        "parking.notifications",
			WriteTimeout: 5,
		},
		Booking: BookingConfig{
			HoldTTLMinutes:              int(domain.DefaultHoldTTL / time.Minute),
			ReservationDeadlineHours:    int(domain.DefaultReservationDeadline / time.Hour),
			ReminderFraction:            domain.DefaultReminderFraction,
			CancellationLeadTimeMinutes: int(domain.DefaultCancellationLeadTime / time.Minute),
			LateRefundPercent:           domain.DefaultLateRefundPercent,
			MaxExtensionHours:           int(domain.DefaultMaxExtension / time.Hour),
			MinDurationMinutes:          int(domain.DefaultMinBookingDuration / time.Minute),
			MaxDurationHours:            int(domain.DefaultMaxBookingDuration / time.Hour),
			ReviewWindowDays:            int(domain.DefaultReviewWindow / (24 * time.Hour)),
		},
		Pricing: PricingConfig{
			PlatformFeePercent: domain.DefaultPlatformFeePercent,
			PlatformFeeFloor:   domain.DefaultPlatformFeeFloor.Decimal(),
			ServiceFeePercent:  domain.DefaultServiceFeePercent,
			ServiceFeeFloor:    domain.DefaultServiceFeeFloor.Decimal(),
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
		},
		Sweeper: SweeperConfig{
			Enabled:            true,
			IntervalSeconds:    60,
			BatchSize:          100,
			ReconcileGraceSecs: int(domain.DefaultSagaReconcileGrace / time.Second),
		},
	}
}

// DefaultRateLimits built-in per-operation limits
func DefaultRateLimits() map[string]LimitConfig {
	return map[string]LimitConfig{
		"hold.create":              {PerMinute: 30, PerHour: 300},
		"reservation.guest_create": {PerMinute: 5, PerHour: 20},
		"reservation.create":       {PerMinute: 10, PerHour: 100},
		"search":                   {PerMinute: 60, PerHour: 600},
		"reservation.mutate":       {PerMinute: 20, PerHour: 200},
	}
}

// fillRateLimitDefaults operations missing from the file keep their built-in limits
func (c *Config) fillRateLimitDefaults() {
	if c.RateLimit.Operations == nil {
		c.RateLimit.Operations = make(map[string]LimitConfig)
	}
	for op, limit := range DefaultRateLimits() {
		if _, ok := c.RateLimit.Operations[op]; !ok {
			c.RateLimit.Operations[op] = limit
		}
	}
}
