package rates

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"

	"rateScope/internal/model"
)

// SecondsPerYear is the 360-day year used for annualization.
const SecondsPerYear = 360 * 24 * 60 * 60

// ErrOverflow is returned when a fixed-point result does not fit in 256 bits.
var ErrOverflow = errors.New("fixed-point overflow")

var (
	scale              = uint256.NewInt(model.RateScale)
	utilizationScale   = uint256.NewInt(model.UtilizationScale)
	utilizationToScale = uint256.NewInt(model.RateScale / model.UtilizationScale)
	scaleFloat         = new(big.Float).SetInt(scale.ToBig())
)

// mulDiv returns x*y/d truncated. Products that overflow 256 bits are
// recomputed with math/big, so only a quotient that does not fit overflows.
func mulDiv(x, y, d *uint256.Int) (*uint256.Int, bool) {
	if d.IsZero() {
		return new(uint256.Int), false
	}
	z, overflow := new(uint256.Int).MulOverflow(x, y)
	if !overflow {
		return z.Div(z, d), false
	}
	wide := new(big.Int).Mul(x.ToBig(), y.ToBig())
	wide.Quo(wide, d.ToBig())
	return uint256.FromBig(wide)
}

// mulDivFloat returns x*y/d (integer division) converted to the nearest float64.
func mulDivFloat(x, y, d *uint256.Int) float64 {
	if d.IsZero() {
		return 0
	}
	wide := new(big.Int).Mul(x.ToBig(), y.ToBig())
	wide.Quo(wide, d.ToBig())
	f, _ := new(big.Float).SetInt(wide).Float64()
	return f
}

func toFloat(x *uint256.Int) float64 {
	f, _ := new(big.Float).SetInt(x.ToBig()).Float64()
	return f
}

// interpolate returns from + (to-from)*num/den. The step is truncated toward
// zero, so a descending segment rounds up rather than down.
func interpolate(from, to, num, den *uint256.Int) (*uint256.Int, error) {
	if !to.Lt(from) {
		step, overflow := mulDiv(new(uint256.Int).Sub(to, from), num, den)
		if overflow {
			return nil, ErrOverflow
		}
		out, overflow := new(uint256.Int).AddOverflow(from, step)
		if overflow {
			return nil, ErrOverflow
		}
		return out, nil
	}
	step, overflow := mulDiv(new(uint256.Int).Sub(from, to), num, den)
	if overflow {
		return nil, ErrOverflow
	}
	out, underflow := new(uint256.Int).SubOverflow(from, step)
	if underflow {
		return nil, ErrOverflow
	}
	return out, nil
}

func clamp(x, lo, hi *uint256.Int) *uint256.Int {
	if x.Gt(hi) {
		return new(uint256.Int).Set(hi)
	}
	if x.Lt(lo) {
		return new(uint256.Int).Set(lo)
	}
	return x
}
