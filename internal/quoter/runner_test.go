package quoter

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"rateScope/internal/metrics"
	"rateScope/internal/model"
	"rateScope/internal/rates"
)

type fakeSource struct {
	mu       sync.Mutex
	calls    map[string]int
	failures map[string]int
	errs     map[string]error
}

func newFakeSource() *fakeSource {
	return &fakeSource{calls: map[string]int{}, failures: map[string]int{}, errs: map[string]error{}}
}

func (f *fakeSource) Quote(_ context.Context, ref model.AssetRef, _ model.InterestRateModel) (model.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[ref.Asset]++
	if err, ok := f.errs[ref.Asset]; ok {
		return model.Quote{}, err
	}
	if f.failures[ref.Asset] > 0 {
		f.failures[ref.Asset]--
		return model.Quote{}, errors.New("rpc unavailable")
	}
	return model.Quote{
		Ref:           ref,
		Rates:         model.RateQuote{BorrowAPR: 0.0643, SupplyAPY: 0.0332},
		Utilization:   *uint256.NewInt(500_000_000_000_000_000),
		RatePerSecond: *uint256.NewInt(2_067_743_167),
		QuotedAt:      time.Unix(1_700_000_000, 0),
	}, nil
}

type memoryStorage struct {
	mu      sync.Mutex
	batches [][]model.QuoteRecord
}

func (m *memoryStorage) PutQuoteBatch(_ context.Context, quotes []model.QuoteRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, append([]model.QuoteRecord(nil), quotes...))
	return nil
}

func targets(assets ...string) []Target {
	out := make([]Target, 0, len(assets))
	for _, a := range assets {
		out = append(out, Target{Name: a, Ref: model.AssetRef{Pool: "1", Asset: a}})
	}
	return out
}

func TestRunnerOnceStoresAllQuotes(t *testing.T) {
	source := newFakeSource()
	source.failures["usdc"] = 1
	sink := &memoryStorage{}
	m := metrics.New()

	runner := NewRunner(RunConfig{
		Targets:      targets("usdc", "eth", "strk"),
		Once:         true,
		Concurrency:  2,
		MaxRetries:   2,
		RetryBackoff: time.Millisecond,
	}, source, sink, m, nil)

	require.NoError(t, runner.Run(context.Background()))
	require.Len(t, sink.batches, 1)
	require.Len(t, sink.batches[0], 3)
	require.Equal(t, "usdc", sink.batches[0][0].Name)
	require.Equal(t, "6.43%", sink.batches[0][0].BorrowAPRText)
	require.Equal(t, 2, source.calls["usdc"], "one retry expected")
	require.Equal(t, 1.0, testutil.ToFloat64(m.Quotes.WithLabelValues("1", "eth", metrics.ResultOK)))
}

func TestRunnerOnceReportsFailuresButStoresRest(t *testing.T) {
	source := newFakeSource()
	source.errs["eth"] = errors.New("execution reverted")
	sink := &memoryStorage{}

	runner := NewRunner(RunConfig{
		Targets:      targets("usdc", "eth"),
		Once:         true,
		MaxRetries:   1,
		RetryBackoff: time.Millisecond,
	}, source, sink, nil, nil)

	err := runner.Run(context.Background())
	require.Error(t, err)
	require.NotErrorIs(t, err, rates.ErrConsistencyMismatch)
	require.Len(t, sink.batches, 1)
	require.Len(t, sink.batches[0], 1)
	require.Equal(t, "usdc", sink.batches[0][0].Asset)
	require.Equal(t, 2, source.calls["eth"])
}

func TestRunnerStopsOnMismatch(t *testing.T) {
	source := newFakeSource()
	source.errs["eth"] = &rates.ConsistencyMismatchError{Ref: model.AssetRef{Pool: "1", Asset: "eth"}, Mode: rates.CheckExact}
	sink := &memoryStorage{}
	m := metrics.New()

	runner := NewRunner(RunConfig{
		Targets:      targets("eth"),
		Interval:     time.Millisecond,
		MaxRetries:   3,
		RetryBackoff: time.Millisecond,
	}, source, sink, m, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.ErrorIs(t, runner.Run(ctx), rates.ErrConsistencyMismatch)
	require.Equal(t, 1, source.calls["eth"], "mismatch must not be retried")
	require.Equal(t, 1.0, testutil.ToFloat64(m.Mismatches.WithLabelValues("1", "eth")))
}

func TestRunnerLoopsUntilCanceled(t *testing.T) {
	source := newFakeSource()
	sink := &memoryStorage{}
	runner := NewRunner(RunConfig{
		Targets:  targets("usdc"),
		Interval: 5 * time.Millisecond,
	}, source, sink, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, runner.Run(ctx), context.DeadlineExceeded)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.GreaterOrEqual(t, len(sink.batches), 2)
}

func TestRunnerValidatesConfig(t *testing.T) {
	sink := &memoryStorage{}
	cases := []struct {
		name string
		cfg  RunConfig
	}{
		{"no targets", RunConfig{Once: true}},
		{"no interval", RunConfig{Targets: targets("usdc")}},
	}
	for _, tc := range cases {
		require.Error(t, NewRunner(tc.cfg, newFakeSource(), sink, nil, nil).Run(context.Background()), tc.name)
	}
	require.Error(t, NewRunner(RunConfig{Targets: targets("usdc"), Once: true}, nil, sink, nil, nil).Run(context.Background()))
}
