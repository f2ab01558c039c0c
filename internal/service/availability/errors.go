package availability

import "errors"

// ErrInternal storage failure while checking
var ErrInternal = errors.New("availability: internal error")
