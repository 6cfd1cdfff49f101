package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rateScope/internal/quoter"
	"rateScope/internal/storage"
)

func newQuoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Quote every configured asset once and print JSON lines",
		RunE:  runQuote,
	}
	addChainFlags(cmd.Flags())
	return cmd
}

func runQuote(cmd *cobra.Command, _ []string) error {
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

	runner := quoter.NewRunner(quoter.RunConfig{
		Targets:      targets,
		Once:         true,
		Concurrency:  cfg.Concurrency,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}, sess.calculator, storage.NewJsonlWriter(cmd.OutOrStdout()), nil, logger)

	logger.Debug("quote start", zap.Int("assets", len(targets)), zap.String("consistency", cfg.Consistency), zap.String("clock", cfg.Clock))
	return runner.Run(ctx)
}
