package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"rateScope/internal/model"
)

var ref = model.AssetRef{Pool: "0x01", Asset: "0xabc"}

func TestObserveQuote(t *testing.T) {
	m := New()
	q := model.Quote{Ref: ref, Rates: model.RateQuote{BorrowAPR: 0.0643, SupplyAPY: 0.0332}}

	m.ObserveQuote(q, 0.5, 120*time.Millisecond)
	m.ObserveQuote(q, 0.5, 80*time.Millisecond)

	require.Equal(t, 2.0, testutil.ToFloat64(m.Quotes.WithLabelValues("0x01", "0xabc", ResultOK)))
	require.Equal(t, 0.5, testutil.ToFloat64(m.Utilization.WithLabelValues("0x01", "0xabc")))
	require.Equal(t, 0.0643, testutil.ToFloat64(m.BorrowAPR.WithLabelValues("0x01", "0xabc")))
	require.Equal(t, 0.0332, testutil.ToFloat64(m.SupplyAPY.WithLabelValues("0x01", "0xabc")))
	require.Equal(t, 1, testutil.CollectAndCount(m.QuoteLatency))
}

func TestObserveFailure(t *testing.T) {
	m := New()
	m.ObserveFailure(ref, false)
	m.ObserveFailure(ref, true)
	m.ObserveFailure(ref, true)

	require.Equal(t, 1.0, testutil.ToFloat64(m.Quotes.WithLabelValues("0x01", "0xabc", ResultError)))
	require.Equal(t, 2.0, testutil.ToFloat64(m.Quotes.WithLabelValues("0x01", "0xabc", ResultMismatch)))
	require.Equal(t, 2.0, testutil.ToFloat64(m.Mismatches.WithLabelValues("0x01", "0xabc")))
}

func TestHandlerServesRegistry(t *testing.T) {
	m := New()
	m.ObserveFailure(ref, true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "ratescope_consistency_mismatches_total"))
}

func TestRegistriesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.ObserveFailure(ref, false)
	require.Equal(t, 0.0, testutil.ToFloat64(b.Quotes.WithLabelValues("0x01", "0xabc", ResultError)))
}
