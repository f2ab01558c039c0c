package list_spot_reservations

import (
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/m04kA/SMC-ParkingService/internal/api/handlers"
	"github.com/m04kA/SMC-ParkingService/internal/domain"
	"github.com/m04kA/SMC-ParkingService/internal/service/reservations"
)

var errPartialRange = errors.New("from and to must be given together")

// ToServiceRequest builds the listing request from query params.
// status takes a comma separated list.
func ToServiceRequest(spotID, viewerID uuid.UUID, fromStr, toStr, statusStr string) (reservations.ListRequest, error) {
	req := reservations.ListRequest{
		SpotID:   spotID,
		ViewerID: viewerID,
	}

	if (fromStr == "") != (toStr == "") {
		return req, errPartialRange
	}
	if fromStr != "" {
		from, err := handlers.ParseTime(fromStr)
		if err != nil {
			return req, err
		}
		to, err := handlers.ParseTime(toStr)
		if err != nil {
			return req, err
		}
		interval, err := domain.NewInterval(from, to)
		if err != nil {
			return req, err
		}
		req.Interval = &interval
	}

	if statusStr != "" {
		for _, raw := range strings.Split(statusStr, ",") {
			status, err := domain.ParseReservationStatus(strings.TrimSpace(raw))
			if err != nil {
				return req, err
			}
			req.Statuses = append(req.Statuses, status)
		}
	}

	return req, nil
}

func FromDetails(list []*reservations.Details) []handlers.ReservationResponse {
	out := make([]handlers.ReservationResponse, 0, len(list))
	for _, d := range list {
		res := handlers.FromReservation(d.Reservation)
		res.EffectiveStatus = string(d.EffectiveStatus)
		out = append(out, res)
	}
	return out
}
