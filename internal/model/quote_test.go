package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestQuoteRecordKeepsFixedPointAsStrings(t *testing.T) {
	ref := *uint256.NewInt(2_067_743_167)
	quote := Quote{
		Ref:           AssetRef{Pool: "1", Asset: "0xabc"},
		Rates:         RateQuote{BorrowAPR: 0.0643, SupplyAPY: 0.0332},
		Utilization:   *uint256.NewInt(500_000_000_000_000_000),
		RatePerSecond: *uint256.NewInt(2_067_743_167),
		ReferenceRate: &ref,
		QuotedAt:      time.Unix(1_700_000_000, 0),
	}

	rec := quote.Record("USDC", func(float64) string { return "x%" })
	require.NotNil(t, rec.ReferenceRate)
	require.Equal(t, "2067743167", *rec.ReferenceRate)
	require.Equal(t, "x%", rec.BorrowAPRText)
	require.Equal(t, "USDC", rec.Name)

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	for _, key := range []string{"utilization", "rate_per_second", "full_utilization_rate", "reference_rate"} {
		require.IsType(t, "", decoded[key], key)
	}
}

func TestQuoteRecordWithoutReference(t *testing.T) {
	rec := Quote{Ref: AssetRef{Pool: "1", Asset: "0xabc"}}.Record("", nil)
	require.Nil(t, rec.ReferenceRate)
	require.Empty(t, rec.BorrowAPRText)
	require.Equal(t, "0", rec.RatePerSecond)
}
