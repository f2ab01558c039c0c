package reconcile_guest

import "github.com/google/uuid"

// Request Email comes from the verified identity token, Phone from the caller
type Request struct {
	UserID uuid.UUID
	Email  string
	Phone  *string
}

type Response struct {
	Linked []uuid.UUID
}
