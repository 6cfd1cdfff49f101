package rates

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"rateScope/internal/model"
)

type fakeStateSource struct {
	state model.AssetState
	err   error
}

func (f *fakeStateSource) AssetState(context.Context, model.AssetRef) (model.AssetState, error) {
	return f.state, f.err
}

type fakeReference struct {
	rate  *uint256.Int
	err   error
	calls atomic.Int32
	seen  model.AssetRef
	at    time.Time
}

func (f *fakeReference) ReferenceRate(_ context.Context, ref model.AssetRef, _ *uint256.Int, _ uint64, _ *uint256.Int, at time.Time) (*uint256.Int, error) {
	f.calls.Add(1)
	f.seen = ref
	f.at = at
	return f.rate, f.err
}

func fixedClock(ts int64) Clock {
	return func(context.Context) (time.Time, error) {
		return time.Unix(ts, 0), nil
	}
}

var testRef = model.AssetRef{Pool: "1", Asset: "0x0000000000000000000000000000000000000abc"}

func TestCalculatorQuote(t *testing.T) {
	state := &fakeStateSource{state: halfBorrowedState(t, 1_700_000_000)}
	reference := &fakeReference{rate: uint256.NewInt(2_067_743_167)}
	calc := NewCalculator(state, reference, Checker{Mode: CheckExact}, fixedClock(1_700_000_000), zap.NewNop())

	quote, err := calc.Quote(context.Background(), testRef, testModel())
	require.NoError(t, err)
	require.Equal(t, testRef, quote.Ref)
	require.Equal(t, testRef, reference.seen)
	require.Equal(t, int64(1_700_000_000), reference.at.Unix())
	require.Equal(t, "6.43%", FormatPercent(quote.Rates.BorrowAPR))
	require.Equal(t, "3.32%", FormatPercent(quote.Rates.SupplyAPY))
	require.NotNil(t, quote.ReferenceRate)
	require.Equal(t, uint64(2_067_743_167), quote.ReferenceRate.Uint64())
}

func TestCalculatorDisplayModeToleratesSubDisplayDrift(t *testing.T) {
	state := &fakeStateSource{state: halfBorrowedState(t, 1_700_000_000)}
	reference := &fakeReference{rate: uint256.NewInt(2_067_743_100)}
	calc := NewCalculator(state, reference, Checker{Mode: CheckDisplay}, fixedClock(1_700_000_000), nil)

	_, err := calc.Quote(context.Background(), testRef, testModel())
	require.NoError(t, err)
}

func TestCalculatorMismatchIsFatal(t *testing.T) {
	state := &fakeStateSource{state: halfBorrowedState(t, 1_700_000_000)}
	reference := &fakeReference{rate: uint256.NewInt(2_067_743_168)}
	calc := NewCalculator(state, reference, Checker{Mode: CheckExact}, fixedClock(1_700_000_000), nil)

	_, err := calc.Quote(context.Background(), testRef, testModel())
	require.ErrorIs(t, err, ErrConsistencyMismatch)

	var mismatch *ConsistencyMismatchError
	require.True(t, errors.As(err, &mismatch))
	require.Equal(t, "2067743167", mismatch.Offchain)
	require.Equal(t, "2067743168", mismatch.Reference)
}

func TestCalculatorCheckOffSkipsReference(t *testing.T) {
	state := &fakeStateSource{state: halfBorrowedState(t, 1_700_000_000)}
	reference := &fakeReference{rate: uint256.NewInt(1)}
	calc := NewCalculator(state, reference, Checker{Mode: CheckOff}, fixedClock(1_700_000_000), nil)

	quote, err := calc.Quote(context.Background(), testRef, testModel())
	require.NoError(t, err)
	require.Nil(t, quote.ReferenceRate)
	require.Zero(t, reference.calls.Load())
}

func TestCalculatorPropagatesFetchErrors(t *testing.T) {
	boom := errors.New("boom")

	calc := NewCalculator(&fakeStateSource{err: boom}, &fakeReference{}, Checker{}, fixedClock(0), nil)
	_, err := calc.Quote(context.Background(), testRef, testModel())
	require.ErrorIs(t, err, boom)

	calc = NewCalculator(&fakeStateSource{state: halfBorrowedState(t, 0)}, &fakeReference{err: boom}, Checker{}, fixedClock(0), nil)
	_, err = calc.Quote(context.Background(), testRef, testModel())
	require.ErrorIs(t, err, boom)
	require.NotErrorIs(t, err, ErrConsistencyMismatch)
}

func TestCalculatorRequiresReferenceWhenChecking(t *testing.T) {
	calc := NewCalculator(&fakeStateSource{}, nil, Checker{Mode: CheckDisplay}, nil, nil)
	_, err := calc.Quote(context.Background(), testRef, testModel())
	require.Error(t, err)
}

func TestCheckerDisplayCompareFormattedRate(t *testing.T) {
	checker := Checker{Mode: CheckDisplay}
	// Per-second rates below 0.005% all render as 0.00%.
	require.NoError(t, checker.Check(testRef, uint256.NewInt(2_067_743_167), uint256.NewInt(1)))

	err := checker.Check(testRef, uint256.NewInt(1_000_000_000_000_000), uint256.NewInt(2_000_000_000_000_000))
	require.ErrorIs(t, err, ErrConsistencyMismatch)
	require.Contains(t, err.Error(), "0.10%")
	require.Contains(t, err.Error(), "0.20%")
}

func TestParseCheckMode(t *testing.T) {
	for input, want := range map[string]CheckMode{"": CheckDisplay, "Exact": CheckExact, " off ": CheckOff, "display": CheckDisplay} {
		got, err := ParseCheckMode(input)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := ParseCheckMode("loose")
	require.Error(t, err)
}
