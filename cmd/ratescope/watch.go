package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"rateScope/internal/config"
	"rateScope/internal/metrics"
	"rateScope/internal/model"
	"rateScope/internal/quoter"
	"rateScope/internal/storage"
	"rateScope/internal/storage/postgres"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Quote configured assets on an interval and persist the results",
		RunE:  runWatch,
	}
	addChainFlags(cmd.Flags())
	cmd.Flags().Duration("interval", 30*time.Second, "time between quoting rounds")
	cmd.Flags().String("out", "./data/quotes.jsonl", "output JSONL path, used when pg-dsn is empty")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN")
	cmd.Flags().String("metrics-addr", "", "address for the /metrics endpoint, empty disables it")
	return cmd
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess, err := openSession(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer sess.Close()

	targets, err := sess.targets(ctx, cfg, logger)
	if err != nil {
		return err
	}

	sink, closeSink, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSink()

	logLatestQuotes(ctx, sink, targets, logger)

	chainID, err := sess.chain.GetChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}

	m := metrics.New()
	runner := quoter.NewRunner(quoter.RunConfig{
		Targets:      targets,
		Interval:     cfg.Interval,
		Concurrency:  cfg.Concurrency,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}, sess.calculator, sink, m, logger)

	logger.Info("watch start",
		zap.String("chain_id", chainID.String()),
		zap.Int("assets", len(targets)),
		zap.Duration("interval", cfg.Interval),
		zap.String("consistency", cfg.Consistency),
		zap.String("clock", cfg.Clock),
		zap.Bool("postgres", cfg.PGDSN != ""),
		zap.String("metrics_addr", cfg.MetricsAddr),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := runner.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		server := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}
	return g.Wait()
}

func openStorage(ctx context.Context, cfg config.Config) (storage.Storage, func(), error) {
	if cfg.PGDSN == "" {
		if cfg.Out == "" {
			return nil, nil, fmt.Errorf("output path is required")
		}
		return storage.NewJsonlStorage(cfg.Out), func() {}, nil
	}
	store, err := postgres.NewStore(ctx, cfg.PGDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, nil, err
	}
	return store, store.Close, nil
}

// quoteHistory is implemented by sinks that can read back what they stored.
type quoteHistory interface {
	LatestQuote(ctx context.Context, ref model.AssetRef) (model.QuoteRecord, bool, error)
}

// logLatestQuotes reports the last persisted quote of every target, so a
// restarted watcher shows where it resumes from.
func logLatestQuotes(ctx context.Context, sink storage.Storage, targets []quoter.Target, logger *zap.Logger) {
	history, ok := sink.(quoteHistory)
	if !ok {
		return
	}
	for _, target := range targets {
		rec, found, err := history.LatestQuote(ctx, target.Ref)
		switch {
		case err != nil:
			logger.Warn("read last quote failed", zap.String("asset", target.Ref.String()), zap.Error(err))
		case !found:
			logger.Info("no persisted quote", zap.String("asset", target.Ref.String()))
		default:
			logger.Info("last persisted quote",
				zap.String("asset", target.Ref.String()),
				zap.Time("quoted_at", rec.QuotedAt),
				zap.String("rate_per_second", rec.RatePerSecond),
				zap.String("borrow_apr", rec.BorrowAPRText),
				zap.String("supply_apy", rec.SupplyAPYText),
			)
		}
	}
}
