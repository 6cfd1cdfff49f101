package rates

import (
	"context"
	"fmt"
	"time"

	"github.com/holiman/uint256"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"rateScope/internal/model"
)

// StateSource supplies asset state snapshots.
type StateSource interface {
	AssetState(ctx context.Context, ref model.AssetRef) (model.AssetState, error)
}

// Clock returns the current time used to compute the elapsed time since the last update.
type Clock func(ctx context.Context) (time.Time, error)

// SystemClock reads the local wall clock.
func SystemClock(context.Context) (time.Time, error) {
	return time.Now(), nil
}

// TimeDelta returns the whole seconds between lastUpdated and now, or zero if
// now is earlier.
func TimeDelta(now time.Time, lastUpdated uint64) uint64 {
	sec := now.Unix()
	if sec < 0 || uint64(sec) <= lastUpdated {
		return 0
	}
	return uint64(sec) - lastUpdated
}

// Compute derives a quote from a snapshot without any I/O.
func Compute(m model.InterestRateModel, state model.AssetState, now time.Time) (model.Quote, error) {
	utilization, err := Utilization(state)
	if err != nil {
		return model.Quote{}, err
	}
	timeDelta := TimeDelta(now, state.LastUpdated)
	rate, full, err := InterestRate(m, utilization, timeDelta, &state.LastFullUtilizationRate)
	if err != nil {
		return model.Quote{}, fmt.Errorf("interest rate: %w", err)
	}
	return model.Quote{
		Rates:                   ToAnnualRates(rate, state),
		Utilization:             *utilization,
		RatePerSecond:           *rate,
		FullUtilizationRate:     *full,
		LastFullUtilizationRate: state.LastFullUtilizationRate,
		LastUpdated:             state.LastUpdated,
		TimeDelta:               timeDelta,
		QuotedAt:                now,
	}, nil
}

// Calculator produces quotes from live state and cross-checks them against a
// reference source.
type Calculator struct {
	state     StateSource
	reference ReferenceSource
	checker   Checker
	clock     Clock
	logger    *zap.Logger
}

// NewCalculator builds a Calculator. reference may be nil when checker is CheckOff.
func NewCalculator(state StateSource, reference ReferenceSource, checker Checker, clock Clock, logger *zap.Logger) *Calculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = SystemClock
	}
	if checker.Mode == "" {
		checker.Mode = CheckDisplay
	}
	return &Calculator{
		state:     state,
		reference: reference,
		checker:   checker,
		clock:     clock,
		logger:    logger,
	}
}

// Quote fetches the asset state, evaluates the model and, unless disabled,
// verifies the result against the reference rate.
func (c *Calculator) Quote(ctx context.Context, ref model.AssetRef, m model.InterestRateModel) (model.Quote, error) {
	if c.state == nil {
		return model.Quote{}, fmt.Errorf("state source is nil")
	}
	if c.checker.Enabled() && c.reference == nil {
		return model.Quote{}, fmt.Errorf("reference source is nil")
	}

	state, err := c.state.AssetState(ctx, ref)
	if err != nil {
		return model.Quote{}, fmt.Errorf("asset state %s: %w", ref, err)
	}
	now, err := c.clock(ctx)
	if err != nil {
		return model.Quote{}, fmt.Errorf("clock: %w", err)
	}
	utilization, err := Utilization(state)
	if err != nil {
		return model.Quote{}, fmt.Errorf("utilization %s: %w", ref, err)
	}

	var (
		quote     model.Quote
		reference *uint256.Int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		quote, err = Compute(m, state, now)
		return err
	})
	if c.checker.Enabled() {
		g.Go(func() error {
			var err error
			reference, err = c.reference.ReferenceRate(gctx, ref, utilization, state.LastUpdated, &state.LastFullUtilizationRate, now)
			if err != nil {
				return fmt.Errorf("reference rate %s: %w", ref, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return model.Quote{}, err
	}

	quote.Ref = ref
	quote.ReferenceRate = reference
	if reference != nil {
		if err := c.checker.Check(ref, &quote.RatePerSecond, reference); err != nil {
			c.logger.Error("consistency check failed",
				zap.String("asset", ref.String()),
				zap.String("offchain", quote.RatePerSecond.Dec()),
				zap.String("reference", reference.Dec()),
			)
			return model.Quote{}, err
		}
	}

	c.logger.Debug("quote",
		zap.String("asset", ref.String()),
		zap.String("utilization", quote.Utilization.Dec()),
		zap.String("rate_per_second", quote.RatePerSecond.Dec()),
		zap.Uint64("time_delta", quote.TimeDelta),
		zap.Float64("borrow_apr", quote.Rates.BorrowAPR),
		zap.Float64("supply_apy", quote.Rates.SupplyAPY),
	)
	return quote, nil
}
