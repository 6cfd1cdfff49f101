package model

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func validModel() InterestRateModel {
	return InterestRateModel{
		MinTargetUtilization:   *uint256.NewInt(75_000),
		MaxTargetUtilization:   *uint256.NewInt(85_000),
		TargetUtilization:      *uint256.NewInt(87_500),
		MinFullUtilizationRate: *uint256.NewInt(1_582_470_460),
		MaxFullUtilizationRate: *uint256.NewInt(32_150_205_761),
		ZeroUtilizationRate:    *uint256.NewInt(158_247_046),
		RateHalfLife:           *uint256.NewInt(172_800),
		TargetRatePercent:      *uint256.NewInt(200_000_000_000_000_000),
	}
}

func TestInterestRateModelValidate(t *testing.T) {
	require.NoError(t, validModel().Validate())

	tests := map[string]func(*InterestRateModel){
		"zero min target":     func(m *InterestRateModel) { m.MinTargetUtilization.Clear() },
		"max target at scale": func(m *InterestRateModel) { m.MaxTargetUtilization.SetUint64(UtilizationScale) },
		"zero target":         func(m *InterestRateModel) { m.TargetUtilization.Clear() },
		"target at scale":     func(m *InterestRateModel) { m.TargetUtilization.SetUint64(UtilizationScale) },
		"inverted bounds":     func(m *InterestRateModel) { m.MinFullUtilizationRate.SetUint64(40_000_000_000) },
		"zero half life":      func(m *InterestRateModel) { m.RateHalfLife.Clear() },
		"percent above one":   func(m *InterestRateModel) { m.TargetRatePercent.SetUint64(RateScale + 1) },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			m := validModel()
			mutate(&m)
			require.ErrorIs(t, m.Validate(), ErrInvalidModel)
		})
	}
}

func TestInterestRateModelDiff(t *testing.T) {
	a := validModel()
	b := validModel()
	require.True(t, a.Equal(b))

	b.RateHalfLife.SetUint64(86_400)
	b.ZeroUtilizationRate.SetUint64(1)
	require.Equal(t, []string{"zero_utilization_rate", "rate_half_life"}, a.Diff(b))
}
