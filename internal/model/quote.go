package model

import (
	"time"

	"github.com/holiman/uint256"
)

// RateQuote is the annualized borrower and lender yield.
type RateQuote struct {
	BorrowAPR float64 `json:"borrow_apr"`
	SupplyAPY float64 `json:"supply_apy"`
}

// Quote is a RateQuote together with the intermediate values that produced it.
type Quote struct {
	Ref                     AssetRef
	Rates                   RateQuote
	Utilization             uint256.Int
	RatePerSecond           uint256.Int
	FullUtilizationRate     uint256.Int
	LastFullUtilizationRate uint256.Int
	LastUpdated             uint64
	TimeDelta               uint64
	ReferenceRate           *uint256.Int
	QuotedAt                time.Time
}

// Record converts the quote into its storage form.
func (q Quote) Record(name string, formatPercent func(float64) string) QuoteRecord {
	rec := QuoteRecord{
		Name:                    name,
		Pool:                    q.Ref.Pool,
		Asset:                   q.Ref.Asset,
		Utilization:             q.Utilization.Dec(),
		RatePerSecond:           q.RatePerSecond.Dec(),
		FullUtilizationRate:     q.FullUtilizationRate.Dec(),
		LastFullUtilizationRate: q.LastFullUtilizationRate.Dec(),
		LastUpdated:             q.LastUpdated,
		TimeDelta:               q.TimeDelta,
		BorrowAPR:               q.Rates.BorrowAPR,
		SupplyAPY:               q.Rates.SupplyAPY,
		QuotedAt:                q.QuotedAt.UTC(),
	}
	if formatPercent != nil {
		rec.BorrowAPRText = formatPercent(q.Rates.BorrowAPR)
		rec.SupplyAPYText = formatPercent(q.Rates.SupplyAPY)
	}
	if q.ReferenceRate != nil {
		ref := q.ReferenceRate.Dec()
		rec.ReferenceRate = &ref
	}
	return rec
}
