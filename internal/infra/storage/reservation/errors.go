package reservation

import "errors"

var (
	// ErrReservationNotFound returned when no reservation matches
	ErrReservationNotFound = errors.New("reservation.repository: reservation not found")

	// ErrOverlap returned when the exclusion constraint rejects an overlapping interval
	ErrOverlap = errors.New("reservation.repository: overlapping reservation exists")

	// ErrStatusChanged conditional write lost: status or version differ from what the caller read
	ErrStatusChanged = errors.New("reservation.repository: reservation changed concurrently")

	// ErrRefundExceedsCaptured refund would return more than was captured
	ErrRefundExceedsCaptured = errors.New("reservation.repository: refund exceeds captured amount")

	// ErrBuildQuery returned when the SQL builder fails
	ErrBuildQuery = errors.New("reservation.repository: failed to build query")

	// ErrExecQuery returned when the statement fails
	ErrExecQuery = errors.New("reservation.repository: failed to execute query")

	// ErrScanRow returned when a result row cannot be scanned
	ErrScanRow = errors.New("reservation.repository: failed to scan row")
)
