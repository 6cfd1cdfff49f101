package rates

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"

	"rateScope/internal/model"
)

// TotalDebt converts nominal debt into the asset's native units. The two
// divisions are applied in sequence and each truncates.
func TotalDebt(nominalDebt, rateAccumulator, assetScale *uint256.Int) (*uint256.Int, error) {
	debt, overflow := mulDiv(nominalDebt, rateAccumulator, scale)
	if overflow {
		return nil, fmt.Errorf("total debt: %w", ErrOverflow)
	}
	debt, overflow = mulDiv(debt, assetScale, scale)
	if overflow {
		return nil, fmt.Errorf("total debt: %w", ErrOverflow)
	}
	return debt, nil
}

// Utilization returns debt / (reserve + debt) in the 18-decimal domain, or
// zero for an empty pool.
func Utilization(state model.AssetState) (*uint256.Int, error) {
	debt, err := TotalDebt(&state.TotalNominalDebt, &state.LastRateAccumulator, &state.Scale)
	if err != nil {
		return nil, err
	}
	total, overflow := new(uint256.Int).AddOverflow(&state.Reserve, debt)
	if overflow {
		return nil, fmt.Errorf("total assets: %w", ErrOverflow)
	}
	if total.IsZero() {
		return new(uint256.Int), nil
	}
	utilization, overflow := mulDiv(debt, scale, total)
	if overflow {
		return nil, fmt.Errorf("utilization: %w", ErrOverflow)
	}
	return utilization, nil
}

// ToUtilizationScale rescales an 18-decimal utilization to the 5-decimal threshold domain.
func ToUtilizationScale(utilization *uint256.Int) *uint256.Int {
	return new(uint256.Int).Div(utilization, utilizationToScale)
}

// UtilizationRatio converts an 18-decimal utilization to a fraction.
func UtilizationRatio(utilization *uint256.Int) float64 {
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(utilization.ToBig()), scaleFloat).Float64()
	return f
}
