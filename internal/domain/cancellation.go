package domain

import "time"

// RefundPolicy how much of the captured amount goes back on cancellation
type RefundPolicy struct {
	LeadTime    time.Duration // claimant cancels at least this long before start -> full refund
	LatePercent float64       // share refunded on a later claimant cancellation
}

func DefaultRefundPolicy() RefundPolicy {
	return RefundPolicy{
		LeadTime:    DefaultCancellationLeadTime,
		LatePercent: DefaultLateRefundPercent,
	}
}

// IsFullRefund owner and system cancellations always refund in full
func (p RefundPolicy) IsFullRefund(res *Reservation, actor CancellationActor, now time.Time) bool {
	if actor == ActorOwner || actor == ActorSystem {
		return true
	}
	return res.Interval.Start.Sub(now) >= p.LeadTime
}

// RefundFor amount to return when actor cancels res at now.
// Derived from what was recorded as captured, never from current prices.
func (p RefundPolicy) RefundFor(res *Reservation, actor CancellationActor, now time.Time) Money {
	refundable := res.Refundable()
	if refundable <= 0 {
		return 0
	}
	if p.IsFullRefund(res, actor, now) {
		return refundable
	}
	return percentOf(refundable, p.LatePercent)
}
