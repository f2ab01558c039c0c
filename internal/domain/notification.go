package domain

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType kind of message sent through the notification sink
type NotificationType string

const (
	NotificationReservationRequested NotificationType = "reservation_requested"
	NotificationReservationConfirmed NotificationType = "reservation_confirmed"
	NotificationReservationDeclined  NotificationType = "reservation_declined"
	NotificationReservationCanceled  NotificationType = "reservation_canceled"
	NotificationReservationExpired   NotificationType = "reservation_expired"
	NotificationReservationExtended  NotificationType = "reservation_extended"
	NotificationReservationRefunded  NotificationType = "reservation_refunded"
	NotificationApprovalReminder     NotificationType = "approval_reminder"
	NotificationPaymentReminder      NotificationType = "payment_reminder"
)

// IsReminder reminder types are deduplicated per reservation
func (t NotificationType) IsReminder() bool {
	return t == NotificationApprovalReminder || t == NotificationPaymentReminder
}

// Notification message for a user or a guest email
type Notification struct {
	ID             uuid.UUID
	UserID         *uuid.UUID
	RecipientEmail *string
	Type           NotificationType
	Title          string
	Message        string
	RelatedID      uuid.UUID
	CreatedAt      time.Time
}
