package domain

import (
	"fmt"
	"math"
)

// Money amount in cents. Every computation step rounds to a whole cent,
// so persisted components can be recomputed independently and still add up.
type Money int64

// MoneyFromDecimal converts 12.34 to 1234 cents
func MoneyFromDecimal(v float64) Money {
	return Money(math.Round(v * 100))
}

// Decimal converts cents to a two-decimal float for API payloads
func (m Money) Decimal() float64 {
	return float64(m) / 100
}

func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// mulHours rate (cents per hour) * hours rounded half away from zero
func mulHours(rate Money, hours float64) Money {
	return Money(math.Round(float64(rate) * hours))
}

// percentOf amount * pct / 100 rounded to a cent
func percentOf(amount Money, pct float64) Money {
	return Money(math.Round(float64(amount) * pct / 100))
}

// PricingPolicy fee configuration of the marketplace.
// ClaimantMargin is a fixed per-hour upcharge on the claimant side, zero means no markup.
type PricingPolicy struct {
	PlatformFeePercent float64
	PlatformFeeFloor   Money
	ServiceFeePercent  float64
	ServiceFeeFloor    Money
	ClaimantMargin     Money
}

// DefaultPricingPolicy 10% fees with a $1 floor on both sides, no markup
func DefaultPricingPolicy() PricingPolicy {
	return PricingPolicy{
		PlatformFeePercent: DefaultPlatformFeePercent,
		PlatformFeeFloor:   DefaultPlatformFeeFloor,
		ServiceFeePercent:  DefaultServiceFeePercent,
		ServiceFeeFloor:    DefaultServiceFeeFloor,
	}
}

// PriceInput inputs of a quote. Rate and Hours must be positive, callers validate.
type PriceInput struct {
	HourlyRate   Money
	Hours        float64
	AddOnPremium Money // per hour
	AddOn        bool
}

// PriceBreakdown amounts of a reservation as persisted
type PriceBreakdown struct {
	HourlyRate   Money
	ClaimantRate Money
	AddOnRate    Money
	Hours        float64

	OwnerGross  Money
	PlatformFee Money
	OwnerNet    Money

	Subtotal   Money
	ServiceFee Money
	AddOnFee   Money
	Total      Money
}

// OwnerPayout owner net plus the add-on fee, which carries no platform cut
func (b PriceBreakdown) OwnerPayout() Money {
	return b.OwnerNet + b.AddOnFee
}

// Calculate computes the breakdown. Pure, no error conditions.
func (p PricingPolicy) Calculate(in PriceInput) PriceBreakdown {
	gross := mulHours(in.HourlyRate, in.Hours)

	platformFee := percentOf(gross, p.PlatformFeePercent)
	if platformFee < p.PlatformFeeFloor {
		platformFee = p.PlatformFeeFloor
	}
	// owner net never goes negative on tiny bookings
	if platformFee > gross {
		platformFee = gross
	}

	claimantRate := in.HourlyRate + p.ClaimantMargin
	subtotal := mulHours(claimantRate, in.Hours)

	serviceFee := percentOf(subtotal, p.ServiceFeePercent)
	if serviceFee < p.ServiceFeeFloor {
		serviceFee = p.ServiceFeeFloor
	}

	var addOn, addOnRate Money
	if in.AddOn {
		addOnRate = in.AddOnPremium
		addOn = mulHours(addOnRate, in.Hours)
	}

	return PriceBreakdown{
		HourlyRate:   in.HourlyRate,
		ClaimantRate: claimantRate,
		AddOnRate:    addOnRate,
		Hours:        in.Hours,
		OwnerGross:   gross,
		PlatformFee:  platformFee,
		OwnerNet:     gross - platformFee,
		Subtotal:     subtotal,
		ServiceFee:   serviceFee,
		AddOnFee:     addOn,
		Total:        subtotal + serviceFee + addOn,
	}
}

// Add sums two breakdowns, used when an extension delta joins the committed totals
func (b PriceBreakdown) Add(delta PriceBreakdown) PriceBreakdown {
	return PriceBreakdown{
		HourlyRate:   b.HourlyRate,
		ClaimantRate: b.ClaimantRate,
		AddOnRate:    b.AddOnRate,
		Hours:        b.Hours + delta.Hours,
		OwnerGross:   b.OwnerGross + delta.OwnerGross,
		PlatformFee:  b.PlatformFee + delta.PlatformFee,
		OwnerNet:     b.OwnerNet + delta.OwnerNet,
		Subtotal:     b.Subtotal + delta.Subtotal,
		ServiceFee:   b.ServiceFee + delta.ServiceFee,
		AddOnFee:     b.AddOnFee + delta.AddOnFee,
		Total:        b.Total + delta.Total,
	}
}
