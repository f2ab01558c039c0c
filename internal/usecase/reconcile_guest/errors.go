package reconcile_guest

import "errors"

var (
	ErrInvalidInput = errors.New("reconcile_guest: invalid input")
	ErrInternal     = errors.New("reconcile_guest: internal error")
)
