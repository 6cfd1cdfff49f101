package quoter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"rateScope/internal/metrics"
	"rateScope/internal/model"
	"rateScope/internal/rates"
	"rateScope/internal/storage"
)

// Target is one configured asset and the model it is quoted with.
type Target struct {
	Name  string
	Ref   model.AssetRef
	Model model.InterestRateModel
}

// QuoteSource produces a checked quote for one asset. *rates.Calculator satisfies it.
type QuoteSource interface {
	Quote(ctx context.Context, ref model.AssetRef, m model.InterestRateModel) (model.Quote, error)
}

// RunConfig holds runtime settings for the quoter.
type RunConfig struct {
	Targets      []Target
	Interval     time.Duration
	Once         bool
	Concurrency  int
	MaxRetries   int
	RetryBackoff time.Duration
}

// Runner quotes every target on an interval and writes the results to storage.
type Runner struct {
	cfg     RunConfig
	source  QuoteSource
	storage storage.Storage
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewRunner builds a Runner with its dependencies. metrics may be nil.
func NewRunner(cfg RunConfig, source QuoteSource, storageSink storage.Storage, m *metrics.Metrics, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:     cfg,
		source:  source,
		storage: storageSink,
		metrics: m,
		logger:  logger,
	}
}

// Run executes quoting rounds until ctx is done, or a single round when Once
// is set. A consistency mismatch stops the runner.
func (r *Runner) Run(ctx context.Context) error {
	if r.source == nil {
		return fmt.Errorf("quote source is nil")
	}
	if r.storage == nil {
		return fmt.Errorf("storage is nil")
	}
	if len(r.cfg.Targets) == 0 {
		return fmt.Errorf("at least one asset is required")
	}
	if !r.cfg.Once && r.cfg.Interval <= 0 {
		return fmt.Errorf("interval must be greater than zero")
	}

	for round := 1; ; round++ {
		err := r.Round(ctx)
		if r.cfg.Once {
			return err
		}
		if err != nil {
			if errors.Is(err, rates.ErrConsistencyMismatch) || ctx.Err() != nil {
				return err
			}
			r.logger.Warn("round incomplete", zap.Int("round", round), zap.Error(err))
		}

		timer := time.NewTimer(r.cfg.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Round quotes all targets once and stores the successful quotes. The
// returned error joins every failure of the round.
func (r *Runner) Round(ctx context.Context) error {
	records := make([]*model.QuoteRecord, len(r.cfg.Targets))
	failures := make([]error, len(r.cfg.Targets))

	g, gctx := errgroup.WithContext(ctx)
	if r.cfg.Concurrency > 0 {
		g.SetLimit(r.cfg.Concurrency)
	}
	for i, target := range r.cfg.Targets {
		i, target := i, target
		g.Go(func() error {
			rec, err := r.quoteWithRetry(gctx, target)
			if err != nil {
				failures[i] = fmt.Errorf("%s: %w", target.label(), err)
				if errors.Is(err, rates.ErrConsistencyMismatch) {
					return failures[i]
				}
				return nil
			}
			records[i] = &rec
			return nil
		})
	}
	mismatch := g.Wait()

	batch := make([]model.QuoteRecord, 0, len(records))
	for _, rec := range records {
		if rec != nil {
			batch = append(batch, *rec)
		}
	}
	if err := r.storage.PutQuoteBatch(ctx, batch); err != nil {
		return fmt.Errorf("store quotes: %w", err)
	}
	if mismatch != nil {
		return mismatch
	}

	r.logger.Info("round complete", zap.Int("quotes", len(batch)), zap.Int("assets", len(r.cfg.Targets)))
	return errors.Join(failures...)
}

func (r *Runner) quoteWithRetry(ctx context.Context, target Target) (model.QuoteRecord, error) {
	var quote model.Quote
	start := time.Now()
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		quote, err = r.source.Quote(ctx, target.Ref, target.Model)
		if err != nil && !permanent(err) {
			r.logger.Warn("quote failed", zap.String("asset", target.label()), zap.Error(err))
		}
		return err
	})
	if err != nil {
		if r.metrics != nil {
			r.metrics.ObserveFailure(target.Ref, errors.Is(err, rates.ErrConsistencyMismatch))
		}
		return model.QuoteRecord{}, err
	}
	if r.metrics != nil {
		r.metrics.ObserveQuote(quote, rates.UtilizationRatio(&quote.Utilization), time.Since(start))
	}
	return quote.Record(target.Name, rates.FormatPercent), nil
}

func (t Target) label() string {
	if t.Name != "" {
		return t.Name
	}
	return t.Ref.String()
}
