package identity

import "errors"

var (
	// ErrInvalidToken signature, algorithm, issuer, audience or subject is wrong
	ErrInvalidToken = errors.New("identity: invalid token")

	// ErrExpiredToken token is past its exp claim
	ErrExpiredToken = errors.New("identity: token expired")
)
