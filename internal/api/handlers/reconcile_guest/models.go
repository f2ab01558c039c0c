package reconcile_guest

import "github.com/google/uuid"

// ReconcileRequest the verified email comes from the token, the phone from the client
type ReconcileRequest struct {
	Phone *string `json:"phone,omitempty"`
}

// ReconcileResponse ids of reservations now attached to the account
type ReconcileResponse struct {
	Linked []uuid.UUID `json:"linked"`
}
