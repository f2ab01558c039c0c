package release_hold

import "errors"

var (
	ErrHoldNotFound = errors.New("release_hold: hold not found")
	ErrAccessDenied = errors.New("release_hold: hold belongs to another claimant")
	ErrInternal     = errors.New("release_hold: internal error")
)
