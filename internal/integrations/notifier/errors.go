package notifier

import "errors"

var (
	// ErrEncode envelope could not be encoded
	ErrEncode = errors.New("notifier: failed to encode event")

	// ErrPublish broker write failed
	ErrPublish = errors.New("notifier: failed to publish event")
)
