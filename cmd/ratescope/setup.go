package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"rateScope/internal/chain"
	"rateScope/internal/config"
	"rateScope/internal/protocol"
	"rateScope/internal/quoter"
	"rateScope/internal/rates"
)

// addChainFlags registers the flags shared by commands that talk to the chain.
func addChainFlags(flags *pflag.FlagSet) {
	flags.String("rpc", "", "JSON-RPC URL")
	flags.String("pool", "", "default pool id (decimal or 0x hex)")
	flags.String("singleton", "", "lending singleton address")
	flags.String("extension", "", "rate extension address")
	flags.String("consistency", "display", "reference check (display, exact, off)")
	flags.String("clock", "system", "time source for elapsed time (system, chain)")
	flags.Int("max-retries", 5, "maximum retry attempts per asset")
	flags.Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	flags.Int("concurrency", 4, "assets quoted in parallel")
	flags.Float64("rpc-rate-limit", 10, "RPC calls per second, 0 disables throttling")
	flags.Int("rpc-burst", 5, "RPC burst size")
	flags.Int("reference-cache-size", 256, "memoized reference rates, 0 disables the cache")
}

func loadConfig(cmd *cobra.Command) (config.Config, *zap.Logger, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

// session bundles the live dependencies of an online command.
type session struct {
	chain      *chain.Client
	reader     *protocol.Reader
	calculator *rates.Calculator
}

func (s *session) Close() {
	if s.chain != nil {
		s.chain.Close()
	}
}

func openSession(ctx context.Context, cfg config.Config, logger *zap.Logger) (*session, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("rpc url is required")
	}
	singleton, extension, err := cfg.Contracts()
	if err != nil {
		return nil, err
	}
	mode, err := checkMode(cfg)
	if err != nil {
		return nil, err
	}

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("connect rpc: %w", err)
	}

	reader, err := protocol.NewReader(chainClient, protocol.ReaderConfig{
		Singleton:          singleton,
		Extension:          extension,
		RateLimit:          cfg.RPCRateLimit,
		Burst:              cfg.RPCBurst,
		ReferenceCacheSize: cfg.ReferenceCacheSize,
	}, logger)
	if err != nil {
		chainClient.Close()
		return nil, err
	}

	var clock rates.Clock
	if cfg.Clock == config.ClockChain {
		clock = chainClient.LatestBlockTime
	}

	return &session{
		chain:      chainClient,
		reader:     reader,
		calculator: rates.NewCalculator(reader, reader, rates.Checker{Mode: mode}, clock, logger),
	}, nil
}

// checkMode parses the consistency mode. Exact comparison only holds when the
// elapsed time is measured against the block timestamp, so it needs clock=chain.
func checkMode(cfg config.Config) (rates.CheckMode, error) {
	mode, err := rates.ParseCheckMode(cfg.Consistency)
	if err != nil {
		return "", err
	}
	if mode == rates.CheckExact && cfg.Clock != config.ClockChain {
		return "", fmt.Errorf("consistency %q requires clock %q, got %q", mode, config.ClockChain, cfg.Clock)
	}
	return mode, nil
}

// targets resolves the configured assets. Assets without a configured model
// are quoted with the model read from the extension.
func (s *session) targets(ctx context.Context, cfg config.Config, logger *zap.Logger) ([]quoter.Target, error) {
	if len(cfg.Assets) == 0 {
		return nil, fmt.Errorf("at least one asset is required")
	}
	out := make([]quoter.Target, 0, len(cfg.Assets))
	for _, asset := range cfg.Assets {
		ref, err := asset.Ref(cfg.Pool)
		if err != nil {
			return nil, err
		}
		target := quoter.Target{Name: asset.Name, Ref: ref}
		if asset.HasModel() {
			if target.Model, err = asset.InterestRateModel(); err != nil {
				return nil, err
			}
		} else {
			if target.Model, err = s.reader.InterestRateConfig(ctx, ref); err != nil {
				return nil, fmt.Errorf("read model for %s: %w", ref, err)
			}
			if err := target.Model.Validate(); err != nil {
				return nil, fmt.Errorf("on-chain model for %s: %w", ref, err)
			}
			logger.Info("using on-chain model", zap.String("asset", ref.String()))
		}
		out = append(out, target)
	}
	return out, nil
}
