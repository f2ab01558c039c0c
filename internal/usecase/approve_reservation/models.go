package approve_reservation

import "github.com/m04kA/SMC-ParkingService/internal/domain"

// Response ClientSecret is set when the claimant has to complete a payment challenge
type Response struct {
	Reservation   *domain.Reservation
	PaymentStatus domain.AuthorizationStatus
	PaymentRef    string
	ClientSecret  string
}
