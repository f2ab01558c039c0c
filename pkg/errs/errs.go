// Package errs marks errors that need manual reconciliation: money moved at the
// payment authority but the matching local state write did not happen.
package errs

import (
	"fmt"
	"strings"

	cr "github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// ErrInconsistent mark carried by every saga inconsistency
var ErrInconsistent = cr.New("payment and reservation state diverged")

// MarkInconsistent wraps err with a stack, a detail line for operators and the ErrInconsistent mark
func MarkInconsistent(err error, detail string) error {
	if err == nil {
		err = cr.New("state write skipped")
	}
	wrapped := cr.WithDetail(cr.Wrap(err, "saga"), detail)
	return cr.Mark(wrapped, ErrInconsistent)
}

type reservationMark struct {
	cause         error
	reservationID uuid.UUID
}

func (e *reservationMark) Error() string { return e.cause.Error() }
func (e *reservationMark) Unwrap() error { return e.cause }

// MarkInconsistentReservation is MarkInconsistent for a divergence of one reservation,
// InconsistentReservation recovers its id
func MarkInconsistentReservation(err error, detail string, reservationID uuid.UUID) error {
	return &reservationMark{cause: MarkInconsistent(err, detail), reservationID: reservationID}
}

// InconsistentReservation reservation the divergence in err belongs to
func InconsistentReservation(err error) (uuid.UUID, bool) {
	var mark *reservationMark
	if cr.As(err, &mark) {
		return mark.reservationID, true
	}
	return uuid.Nil, false
}

// IsInconsistent reports whether err or anything it wraps was marked by MarkInconsistent
func IsInconsistent(err error) bool {
	return err != nil && cr.Is(err, ErrInconsistent)
}

// Details returns the operator detail lines attached to err
func Details(err error) []string {
	return cr.GetAllDetails(err)
}

// ExtractStackLines renders err with stack and returns up to maxLines lines
func ExtractStackLines(err error, maxLines int) []string {
	if err == nil {
		return nil
	}
	var mark *reservationMark
	if cr.As(err, &mark) {
		err = mark.cause
	}
	s := fmt.Sprintf("%+v", err)
	lines := strings.Split(s, "\n")
	if maxLines > 0 && len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	return lines
}
