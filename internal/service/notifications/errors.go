package notifications

import "errors"

var (
	// ErrNoRecipient the reservation has neither a claimant account nor a guest email
	ErrNoRecipient = errors.New("notifications: no recipient")

	// ErrInternal storage errors
	ErrInternal = errors.New("notifications: internal error")
)
