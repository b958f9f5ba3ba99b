package schedule

import "math"

// EffectiveRate returns the negotiated rate when present, the base rate
// otherwise.
func (r RateInfo) EffectiveRate() int64 {
	if r.NegotiatedRate != nil {
		return *r.NegotiatedRate
	}
	return r.BaseRate
}

// BaseAmount computes (negotiatedRate ?? baseRate) * quantity, rounded
// half away from zero to whole won.
func (r RateInfo) BaseAmount() int64 {
	return roundWon(float64(r.EffectiveRate()) * r.Quantity)
}

// Surcharge computes the transport surcharge: distanceRate * distanceKm
// when both are present, plus the flat additional fee when present.
func (t *Transport) Surcharge() int64 {
	if t == nil {
		return 0
	}
	var total int64
	if t.DistanceRate != 0 && t.DistanceKm != 0 {
		total += roundWon(float64(t.DistanceRate) * t.DistanceKm)
	}
	total += t.AdditionalFee
	return total
}

// SettlementAmount is the authoritative per-schedule amount captured on
// completion: the base amount plus the job's transport surcharge when the
// completed category is a transport step.
func (a *Aggregate) SettlementAmount(transportCategory bool) int64 {
	amount := a.Rate.BaseAmount()
	if transportCategory {
		amount += a.Transport.Surcharge()
	}
	return amount
}

// TotalSettlement recomputes the job total from its live collections:
// the sum of captured schedule amounts plus the sum of extra settlements.
// It is derived on every call, never cached.
func (a *Aggregate) TotalSettlement() int64 {
	var total int64
	for i := range a.Schedules {
		if a.Schedules[i].Amount != nil {
			total += *a.Schedules[i].Amount
		}
	}
	for i := range a.Extras {
		total += a.Extras[i].Amount
	}
	return total
}

// roundWon rounds half away from zero to an integral won amount.
func roundWon(v float64) int64 {
	return int64(math.Round(v))
}
