package rates

import (
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// FormatPercent renders a fraction as a percentage with two decimals,
// rounding ties away from zero on the exact binary value.
func FormatPercent(x float64) string {
	pct := x * 100
	switch {
	case math.IsNaN(pct):
		return "NaN%"
	case math.IsInf(pct, 1):
		return "Infinity%"
	case math.IsInf(pct, -1):
		return "-Infinity%"
	}
	d, err := decimal.NewFromString(strconv.FormatFloat(pct, 'f', 30, 64))
	if err != nil {
		d = decimal.NewFromFloat(pct)
	}
	return d.StringFixed(2) + "%"
}
