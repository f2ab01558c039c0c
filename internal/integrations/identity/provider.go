package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Subject authenticated caller
type Subject struct {
	ID    uuid.UUID
	Email string
}

// Claims token payload issued by the identity service
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Provider verifies HS256 bearer tokens issued by the identity service
type Provider struct {
	secret   []byte
	issuer   string
	audience string
	leeway   time.Duration
}

// NewProvider creates a provider. Empty issuer or audience skips that check.
func NewProvider(secret, issuer, audience string) *Provider {
	return &Provider{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		leeway:   30 * time.Second,
	}
}

// Authenticate returns the subject carried by token
func (p *Provider) Authenticate(_ context.Context, token string) (*Subject, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(p.leeway),
		jwt.WithExpirationRequired(),
	}
	if p.issuer != "" {
		opts = append(opts, jwt.WithIssuer(p.issuer))
	}
	if p.audience != "" {
		opts = append(opts, jwt.WithAudience(p.audience))
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return p.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: subject is not a uuid", ErrInvalidToken)
	}

	return &Subject{ID: id, Email: claims.Email}, nil
}

// Issue signs a token for subject, used by tests and local tooling
func (p *Provider) Issue(subject Subject, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: subject.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject.ID.String(),
			Issuer:    p.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if p.audience != "" {
		claims.Audience = jwt.ClaimStrings{p.audience}
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
}
