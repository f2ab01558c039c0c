package domain

import "time"

// Default booking configuration values
const (
	DefaultHoldTTL              = 10 * time.Minute
	DefaultReservationDeadline  = 24 * time.Hour
	DefaultReminderFraction     = 2.0 / 3.0
	DefaultCancellationLeadTime = time.Hour
	DefaultLateRefundPercent    = 0
	DefaultReviewWindow         = 14 * 24 * time.Hour
	DefaultMinBookingDuration   = 30 * time.Minute
	DefaultMaxBookingDuration   = 30 * 24 * time.Hour
	DefaultMaxExtension         = 24 * time.Hour
	DefaultSagaReconcileGrace   = 2 * time.Minute
)

// Default fees: 10% with a $1 floor on both sides
const (
	DefaultPlatformFeePercent = 10.0
	DefaultServiceFeePercent  = 10.0

	DefaultPlatformFeeFloor Money = 100
	DefaultServiceFeeFloor  Money = 100
)

// Business validation constants
const (
	MaxGuestNameLength          = 120
	MaxGuestVehicleLength       = 200
	MaxCancellationReasonLength = 500
	PhoneMatchDigits            = 10
	MinPhoneDigits              = 7
)

// System generated cancellation reasons
const (
	ReasonConfirmationExpired = "Automatically canceled: not confirmed before the deadline"
	ReasonPaymentFailed       = "Payment authorization failed"
	ReasonDeclinedByOwner     = "Declined by the spot owner"
	ReasonPaymentReconciled   = "Canceled after payment reconciliation"
)

// Time format used in API payloads
const TimeFormat = time.RFC3339
