// Package middleware HTTP middleware of the API: authentication, rate limiting and metrics
package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/m04kA/SMC-ParkingService/internal/integrations/identity"
)

type contextKey string

const subjectKey contextKey = "subject"

// WithSubject stores the authenticated caller in ctx
func WithSubject(ctx context.Context, subject *identity.Subject) context.Context {
	return context.WithValue(ctx, subjectKey, subject)
}

// GetSubject authenticated caller, false for anonymous requests
func GetSubject(ctx context.Context) (*identity.Subject, bool) {
	subject, ok := ctx.Value(subjectKey).(*identity.Subject)
	return subject, ok && subject != nil
}

// GetUserID id of the authenticated caller
func GetUserID(ctx context.Context) (uuid.UUID, bool) {
	subject, ok := GetSubject(ctx)
	if !ok {
		return uuid.Nil, false
	}
	return subject.ID, true
}

// OptionalUserID nil for anonymous requests
func OptionalUserID(ctx context.Context) *uuid.UUID {
	id, ok := GetUserID(ctx)
	if !ok {
		return nil
	}
	return &id
}
