package rates

import (
	"math"

	"github.com/holiman/uint256"

	"rateScope/internal/model"
)

// BorrowAPR annualizes a per-second rate linearly.
func BorrowAPR(ratePerSecond *uint256.Int) float64 {
	return toFloat(ratePerSecond) * SecondsPerYear / toFloat(scale)
}

// CompoundedAPY compounds a per-second rate over a year.
func CompoundedAPY(ratePerSecond *uint256.Int) float64 {
	return math.Pow(1+toFloat(ratePerSecond)/toFloat(scale), SecondsPerYear) - 1
}

// SupplyAPY weights the compounded rate by the borrowed share of the pool.
// An empty pool yields zero.
func SupplyAPY(ratePerSecond *uint256.Int, state model.AssetState) float64 {
	totalBorrowed := mulDivFloat(&state.TotalNominalDebt, &state.LastRateAccumulator, scale)
	reserve := mulDivFloat(&state.Reserve, scale, &state.Scale)
	total := reserve + totalBorrowed
	if total == 0 {
		return 0
	}
	return CompoundedAPY(ratePerSecond) * totalBorrowed / total
}

// ToAnnualRates converts a per-second rate into a RateQuote.
func ToAnnualRates(ratePerSecond *uint256.Int, state model.AssetState) model.RateQuote {
	return model.RateQuote{
		BorrowAPR: BorrowAPR(ratePerSecond),
		SupplyAPY: SupplyAPY(ratePerSecond, state),
	}
}
