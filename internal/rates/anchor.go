package rates

import (
	"github.com/holiman/uint256"

	"rateScope/internal/model"
)

// FullUtilizationRate relaxes the full utilization rate anchor for the time
// elapsed since the last update. Below the target band the anchor decays,
// above it the anchor grows, inside it stays put. The result is always
// clamped to the model's bounds, and any overflow saturates to the bound the
// anchor was moving towards.
//
// utilization must already be in the 5-decimal threshold domain.
func FullUtilizationRate(m model.InterestRateModel, timeDelta uint64, utilization, anchor *uint256.Int) *uint256.Int {
	lo, hi := &m.MinFullUtilizationRate, &m.MaxFullUtilizationRate
	halfLifeScale := new(uint256.Int).Mul(&m.RateHalfLife, scale)
	elapsed := uint256.NewInt(timeDelta)

	switch {
	case utilization.Lt(&m.MinTargetUtilization):
		delta := new(uint256.Int).Sub(&m.MinTargetUtilization, utilization)
		delta, _ = mulDiv(delta, scale, &m.MinTargetUtilization)
		decay, overflow := relaxation(halfLifeScale, delta, elapsed)
		if overflow {
			return new(uint256.Int).Set(lo)
		}
		return decayAnchor(anchor, halfLifeScale, decay, lo, hi)

	case utilization.Gt(&m.MaxTargetUtilization):
		delta := new(uint256.Int).Sub(utilization, &m.MaxTargetUtilization)
		delta, _ = mulDiv(delta, scale, new(uint256.Int).Sub(utilizationScale, &m.MaxTargetUtilization))
		growth, overflow := relaxation(halfLifeScale, delta, elapsed)
		if overflow {
			return new(uint256.Int).Set(hi)
		}
		return growAnchor(anchor, halfLifeScale, growth, lo, hi)

	default:
		return clamp(new(uint256.Int).Set(anchor), lo, hi)
	}
}

// relaxation returns halfLifeScale + delta*elapsed.
func relaxation(halfLifeScale, delta, elapsed *uint256.Int) (*uint256.Int, bool) {
	step, overflow := new(uint256.Int).MulOverflow(delta, elapsed)
	if overflow {
		return nil, true
	}
	return new(uint256.Int).AddOverflow(halfLifeScale, step)
}

// decayAnchor returns anchor*halfLifeScale/decay clamped to [lo, hi]. An
// overflowing quotient saturates at lo, the bound a decay moves toward.
func decayAnchor(anchor, halfLifeScale, decay, lo, hi *uint256.Int) *uint256.Int {
	next, overflow := mulDiv(anchor, halfLifeScale, decay)
	if overflow {
		return new(uint256.Int).Set(lo)
	}
	return clamp(next, lo, hi)
}

// growAnchor returns anchor*growth/halfLifeScale clamped to [lo, hi],
// saturating at hi on overflow.
func growAnchor(anchor, halfLifeScale, growth, lo, hi *uint256.Int) *uint256.Int {
	next, overflow := mulDiv(anchor, growth, halfLifeScale)
	if overflow {
		return new(uint256.Int).Set(hi)
	}
	return clamp(next, lo, hi)
}
