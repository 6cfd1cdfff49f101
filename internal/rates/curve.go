package rates

import (
	"fmt"

	"github.com/holiman/uint256"

	"rateScope/internal/model"
)

// TargetRate is the rate at the kink: zero_utilization_rate plus
// target_rate_percent of the distance to the full utilization rate.
func TargetRate(m model.InterestRateModel, fullUtilizationRate *uint256.Int) (*uint256.Int, error) {
	return interpolate(&m.ZeroUtilizationRate, fullUtilizationRate, &m.TargetRatePercent, scale)
}

// CurveRate evaluates the two-segment curve at a utilization in the 5-decimal
// domain, given an already adjusted full utilization rate.
func CurveRate(m model.InterestRateModel, utilization, fullUtilizationRate *uint256.Int) (*uint256.Int, error) {
	targetRate, err := TargetRate(m, fullUtilizationRate)
	if err != nil {
		return nil, fmt.Errorf("target rate: %w", err)
	}
	if utilization.Lt(&m.TargetUtilization) {
		return interpolate(&m.ZeroUtilizationRate, targetRate, utilization, &m.TargetUtilization)
	}
	excess := new(uint256.Int).Sub(utilization, &m.TargetUtilization)
	span := new(uint256.Int).Sub(utilizationScale, &m.TargetUtilization)
	return interpolate(targetRate, fullUtilizationRate, excess, span)
}

// InterestRate returns the per-second borrow rate for an 18-decimal
// utilization, along with the adjusted full utilization rate.
func InterestRate(m model.InterestRateModel, utilization *uint256.Int, timeDelta uint64, lastFullUtilizationRate *uint256.Int) (rate, fullUtilizationRate *uint256.Int, err error) {
	u := ToUtilizationScale(utilization)
	fullUtilizationRate = FullUtilizationRate(m, timeDelta, u, lastFullUtilizationRate)
	rate, err = CurveRate(m, u, fullUtilizationRate)
	if err != nil {
		return nil, nil, err
	}
	return rate, fullUtilizationRate, nil
}

// CurvePoint is one sample of the rate curve.
type CurvePoint struct {
	Utilization   uint64  `json:"utilization"`
	RatePerSecond string  `json:"rate_per_second"`
	BorrowAPR     float64 `json:"borrow_apr"`
}

// Curve samples the curve at steps+1 evenly spaced utilizations from 0 to
// full, holding the full utilization rate fixed at anchor.
func Curve(m model.InterestRateModel, anchor *uint256.Int, steps int) ([]CurvePoint, error) {
	if steps <= 0 {
		return nil, fmt.Errorf("steps must be positive")
	}
	full := clamp(new(uint256.Int).Set(anchor), &m.MinFullUtilizationRate, &m.MaxFullUtilizationRate)
	points := make([]CurvePoint, 0, steps+1)
	for i := 0; i <= steps; i++ {
		u := uint64(i) * model.UtilizationScale / uint64(steps)
		rate, err := CurveRate(m, uint256.NewInt(u), full)
		if err != nil {
			return nil, fmt.Errorf("utilization %d: %w", u, err)
		}
		points = append(points, CurvePoint{
			Utilization:   u,
			RatePerSecond: rate.Dec(),
			BorrowAPR:     BorrowAPR(rate),
		})
	}
	return points, nil
}
