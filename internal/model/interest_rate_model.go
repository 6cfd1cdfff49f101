package model

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

// UtilizationScale is the fixed-point scale of utilization thresholds (5 decimals).
const UtilizationScale = 100_000

// RateScale is the fixed-point scale of rates and fractions (18 decimals).
const RateScale = 1_000_000_000_000_000_000

// ErrInvalidModel is returned when a parameter set would make the rate arithmetic undefined.
var ErrInvalidModel = errors.New("invalid interest rate model")

// InterestRateModel holds the per-asset curve parameters.
//
// Utilization thresholds are in the 5-decimal domain, rates are per second in
// the 18-decimal domain and RateHalfLife is in seconds.
type InterestRateModel struct {
	MinTargetUtilization   uint256.Int
	MaxTargetUtilization   uint256.Int
	TargetUtilization      uint256.Int
	MinFullUtilizationRate uint256.Int
	MaxFullUtilizationRate uint256.Int
	ZeroUtilizationRate    uint256.Int
	RateHalfLife           uint256.Int
	TargetRatePercent      uint256.Int
}

// Validate rejects parameters that lead to a zero divisor or an empty clamp range.
// The ordering of the target thresholds is intentionally not checked.
func (m InterestRateModel) Validate() error {
	utilizationScale := uint256.NewInt(UtilizationScale)
	switch {
	case m.MinTargetUtilization.IsZero():
		return fmt.Errorf("%w: min target utilization must be positive", ErrInvalidModel)
	case !m.MaxTargetUtilization.Lt(utilizationScale):
		return fmt.Errorf("%w: max target utilization must be below %d", ErrInvalidModel, UtilizationScale)
	case m.TargetUtilization.IsZero() || !m.TargetUtilization.Lt(utilizationScale):
		return fmt.Errorf("%w: target utilization must be in (0, %d)", ErrInvalidModel, UtilizationScale)
	case m.MinFullUtilizationRate.Gt(&m.MaxFullUtilizationRate):
		return fmt.Errorf("%w: min full utilization rate exceeds max", ErrInvalidModel)
	case m.RateHalfLife.IsZero():
		return fmt.Errorf("%w: rate half life must be positive", ErrInvalidModel)
	case !m.RateHalfLife.IsUint64():
		return fmt.Errorf("%w: rate half life out of range", ErrInvalidModel)
	case m.TargetRatePercent.Gt(uint256.NewInt(RateScale)):
		return fmt.Errorf("%w: target rate percent exceeds 1e18", ErrInvalidModel)
	}
	return nil
}

// Equal reports whether two models carry identical parameters.
func (m InterestRateModel) Equal(other InterestRateModel) bool {
	return len(m.Diff(other)) == 0
}

// Diff lists the parameter names whose values differ.
func (m InterestRateModel) Diff(other InterestRateModel) []string {
	var fields []string
	check := func(name string, a, b *uint256.Int) {
		if !a.Eq(b) {
			fields = append(fields, name)
		}
	}
	check("min_target_utilization", &m.MinTargetUtilization, &other.MinTargetUtilization)
	check("max_target_utilization", &m.MaxTargetUtilization, &other.MaxTargetUtilization)
	check("target_utilization", &m.TargetUtilization, &other.TargetUtilization)
	check("min_full_utilization_rate", &m.MinFullUtilizationRate, &other.MinFullUtilizationRate)
	check("max_full_utilization_rate", &m.MaxFullUtilizationRate, &other.MaxFullUtilizationRate)
	check("zero_utilization_rate", &m.ZeroUtilizationRate, &other.ZeroUtilizationRate)
	check("rate_half_life", &m.RateHalfLife, &other.RateHalfLife)
	check("target_rate_percent", &m.TargetRatePercent, &other.TargetRatePercent)
	return fields
}
