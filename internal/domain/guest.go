package domain

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode"
)

// GuestIdentity contact data of a claimant without an account
type GuestIdentity struct {
	FullName string
	Email    *string
	Phone    *string
	Vehicle  string
}

// Validate requires a name, a vehicle and at least one contact channel
func (g *GuestIdentity) Validate() error {
	name := strings.TrimSpace(g.FullName)
	if name == "" {
		return fmt.Errorf("%w: guest name is required", ErrInvalidGuest)
	}
	if len(name) > MaxGuestNameLength {
		return fmt.Errorf("%w: guest name exceeds %d characters", ErrInvalidGuest, MaxGuestNameLength)
	}
	if strings.TrimSpace(g.Vehicle) == "" {
		return fmt.Errorf("%w: vehicle description is required", ErrInvalidGuest)
	}
	if len(g.Vehicle) > MaxGuestVehicleLength {
		return fmt.Errorf("%w: vehicle description exceeds %d characters", ErrInvalidGuest, MaxGuestVehicleLength)
	}

	hasEmail := g.Email != nil && strings.TrimSpace(*g.Email) != ""
	hasPhone := g.Phone != nil && strings.TrimSpace(*g.Phone) != ""
	if !hasEmail && !hasPhone {
		return fmt.Errorf("%w: email or phone is required", ErrInvalidGuest)
	}
	if hasEmail {
		if _, err := mail.ParseAddress(strings.TrimSpace(*g.Email)); err != nil {
			return fmt.Errorf("%w: invalid email: %v", ErrInvalidGuest, err)
		}
	}
	if hasPhone && len(PhoneDigits(*g.Phone)) < MinPhoneDigits {
		return fmt.Errorf("%w: phone must contain at least %d digits", ErrInvalidGuest, MinPhoneDigits)
	}
	return nil
}

// NormalizedEmail email key used for reconciliation, empty when absent
func (g *GuestIdentity) NormalizedEmail() string {
	if g.Email == nil {
		return ""
	}
	return NormalizeEmail(*g.Email)
}

// PhoneKey phone key used for reconciliation, empty when absent
func (g *GuestIdentity) PhoneKey() string {
	if g.Phone == nil {
		return ""
	}
	return PhoneSuffix(*g.Phone, PhoneMatchDigits)
}

// NormalizeEmail case-insensitive comparison key
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// PhoneDigits strips everything except digits
func PhoneDigits(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if unicode.IsDigit(r) && r < unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// PhoneSuffix last n digits of the phone, tolerant to country code prefixes.
// Numbers shorter than n digits are returned whole.
func PhoneSuffix(phone string, n int) string {
	digits := PhoneDigits(phone)
	if len(digits) <= n {
		return digits
	}
	return digits[len(digits)-n:]
}

// PhonesMatch compares two numbers by their trailing digits
func PhonesMatch(a, b string) bool {
	sa, sb := PhoneSuffix(a, PhoneMatchDigits), PhoneSuffix(b, PhoneMatchDigits)
	return sa != "" && sa == sb
}
