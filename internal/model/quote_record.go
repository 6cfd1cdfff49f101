package model

import "time"

// QuoteRecord is the persisted representation of a quote. Fixed-point values
// are kept as decimal strings.
type QuoteRecord struct {
	Name                    string    `json:"name,omitempty"`
	Pool                    string    `json:"pool"`
	Asset                   string    `json:"asset"`
	Utilization             string    `json:"utilization"`
	RatePerSecond           string    `json:"rate_per_second"`
	FullUtilizationRate     string    `json:"full_utilization_rate"`
	LastFullUtilizationRate string    `json:"last_full_utilization_rate"`
	ReferenceRate           *string   `json:"reference_rate,omitempty"`
	LastUpdated             uint64    `json:"last_updated"`
	TimeDelta               uint64    `json:"time_delta"`
	BorrowAPR               float64   `json:"borrow_apr"`
	SupplyAPY               float64   `json:"supply_apy"`
	BorrowAPRText           string    `json:"borrow_apr_text,omitempty"`
	SupplyAPYText           string    `json:"supply_apy_text,omitempty"`
	QuotedAt                time.Time `json:"quoted_at"`
}
