package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
)

// PriceResponse breakdown in decimal currency units
type PriceResponse struct {
	HourlyRate   float64 `json:"hourlyRate"`
	ClaimantRate float64 `json:"claimantRate"`
	Hours        float64 `json:"hours"`
	OwnerGross   float64 `json:"ownerGross"`
	PlatformFee  float64 `json:"platformFee"`
	OwnerNet     float64 `json:"ownerNet"`
	Subtotal     float64 `json:"subtotal"`
	ServiceFee   float64 `json:"serviceFee"`
	AddOnFee     float64 `json:"addOnFee"`
	Total        float64 `json:"total"`
}

func FromPrice(p domain.PriceBreakdown) PriceResponse {
	return PriceResponse{
		HourlyRate:   p.HourlyRate.Decimal(),
		ClaimantRate: p.ClaimantRate.Decimal(),
		Hours:        p.Hours,
		OwnerGross:   p.OwnerGross.Decimal(),
		PlatformFee:  p.PlatformFee.Decimal(),
		OwnerNet:     p.OwnerNet.Decimal(),
		Subtotal:     p.Subtotal.Decimal(),
		ServiceFee:   p.ServiceFee.Decimal(),
		AddOnFee:     p.AddOnFee.Decimal(),
		Total:        p.Total.Decimal(),
	}
}

// GuestRequest guest contact data as sent by clients
type GuestRequest struct {
	FullName string  `json:"fullName"`
	Email    *string `json:"email,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Vehicle  string  `json:"vehicle"`
}

func (g GuestRequest) ToDomain() domain.GuestIdentity {
	return domain.GuestIdentity{
		FullName: g.FullName,
		Email:    g.Email,
		Phone:    g.Phone,
		Vehicle:  g.Vehicle,
	}
}

// ReservationResponse reservation as returned by every reservation endpoint.
// Status is the stored status, EffectiveStatus accounts for ended stays.
type ReservationResponse struct {
	ID                 uuid.UUID     `json:"id"`
	SpotID             uuid.UUID     `json:"spotId"`
	OwnerID            uuid.UUID     `json:"ownerId"`
	ClaimantID         *uuid.UUID    `json:"claimantId,omitempty"`
	GuestName          *string       `json:"guestName,omitempty"`
	Start              string        `json:"start"`
	End                string        `json:"end"`
	Status             string        `json:"status"`
	EffectiveStatus    string        `json:"effectiveStatus,omitempty"`
	EVCharging         bool          `json:"evCharging"`
	Price              PriceResponse `json:"price"`
	Captured           float64       `json:"captured"`
	Refunded           float64       `json:"refunded"`
	PaymentRef         *string       `json:"paymentRef,omitempty"`
	CancellationReason *string       `json:"cancellationReason,omitempty"`
	CanceledBy         *string       `json:"canceledBy,omitempty"`
	ExtensionCount     int           `json:"extensionCount"`
	ConfirmDeadline    string        `json:"confirmDeadline"`
	ReviewDeadline     string        `json:"reviewDeadline"`
	CreatedAt          string        `json:"createdAt"`
	UpdatedAt          string        `json:"updatedAt"`
}

func FromReservation(res *domain.Reservation) ReservationResponse {
	out := ReservationResponse{
		ID:                 res.ID,
		SpotID:             res.SpotID,
		OwnerID:            res.OwnerID,
		ClaimantID:         res.ClaimantID,
		Start:              FormatTime(res.Interval.Start),
		End:                FormatTime(res.Interval.End),
		Status:             string(res.Status),
		EVCharging:         res.EVCharging,
		Price:              FromPrice(res.Price),
		Captured:           res.Captured.Decimal(),
		Refunded:           res.Refunded.Decimal(),
		PaymentRef:         res.PaymentRef,
		CancellationReason: res.CancellationReason,
		ExtensionCount:     res.ExtensionCount,
		ConfirmDeadline:    FormatTime(res.ConfirmDeadline),
		ReviewDeadline:     FormatTime(res.ReviewDeadline),
		CreatedAt:          FormatTime(res.CreatedAt),
		UpdatedAt:          FormatTime(res.UpdatedAt),
	}
	if res.Guest != nil {
		name := res.Guest.FullName
		out.GuestName = &name
	}
	if res.CanceledBy != nil {
		by := string(*res.CanceledBy)
		out.CanceledBy = &by
	}
	return out
}

// PaymentResponse state of the payment step, ClientSecret is set when the payer must act
type PaymentResponse struct {
	Status       string  `json:"status"`
	PaymentRef   string  `json:"paymentRef,omitempty"`
	ClientSecret *string `json:"clientSecret,omitempty"`
}

func NewPaymentResponse(status domain.AuthorizationStatus, ref, clientSecret string) *PaymentResponse {
	if status == "" {
		return nil
	}
	out := &PaymentResponse{Status: string(status), PaymentRef: ref}
	if clientSecret != "" {
		out.ClientSecret = &clientSecret
	}
	return out
}

// PaymentHTTPStatus success unless the payer has to act (202) or the payment was declined (402)
func PaymentHTTPStatus(status domain.AuthorizationStatus, success int) int {
	switch status {
	case domain.AuthorizationRequiresAction:
		return http.StatusAccepted
	case domain.AuthorizationFailed:
		return http.StatusPaymentRequired
	default:
		return success
	}
}
