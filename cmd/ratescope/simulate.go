package main

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/holiman/uint256"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"rateScope/internal/config"
	"rateScope/internal/model"
	"rateScope/internal/rates"
)

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Quote an asset offline from a supplied state snapshot",
		RunE:  runSimulate,
	}
	addModelFlags(cmd.Flags())
	cmd.Flags().String("nominal-debt", "", "total nominal debt (18 decimals)")
	cmd.Flags().String("rate-accumulator", "1000000000000000000", "last rate accumulator (18 decimals)")
	cmd.Flags().String("reserve", "", "reserve in asset units")
	cmd.Flags().String("scale", "", "asset scale, 10^decimals")
	cmd.Flags().String("last-full-utilization-rate", "", "stored full utilization rate")
	cmd.Flags().Uint64("last-updated", 0, "unix time of the last state update")
	cmd.Flags().Uint64("elapsed", 0, "seconds since last-updated, used when --now is not set")
	cmd.Flags().Int64("now", 0, "unix time to quote at")
	return cmd
}

// addModelFlags registers flags that select a configured asset model or supply one inline.
func addModelFlags(flags *pflag.FlagSet) {
	flags.String("asset", "", "configured asset name whose model is used")
	flags.String("min-target-utilization", "", "model min target utilization (5 decimals)")
	flags.String("max-target-utilization", "", "model max target utilization (5 decimals)")
	flags.String("target-utilization", "", "model target utilization (5 decimals)")
	flags.String("min-full-utilization-rate", "", "model min full utilization rate")
	flags.String("max-full-utilization-rate", "", "model max full utilization rate")
	flags.String("zero-utilization-rate", "", "model zero utilization rate")
	flags.String("rate-half-life", "", "model rate half life in seconds")
	flags.String("target-rate-percent", "", "model target rate percent (18 decimals)")
}

// modelFromFlags resolves the model named by --asset, or builds it from the
// inline model flags.
func modelFromFlags(cmd *cobra.Command, cfg config.Config) (model.InterestRateModel, error) {
	flags := cmd.Flags()
	if name, _ := flags.GetString("asset"); name != "" {
		for _, asset := range cfg.Assets {
			if strings.EqualFold(asset.Name, name) {
				return asset.InterestRateModel()
			}
		}
		return model.InterestRateModel{}, fmt.Errorf("asset %q not found in config", name)
	}
	get := func(name string) string {
		v, _ := flags.GetString(name)
		return v
	}
	inline := config.AssetConfig{
		Name:                   "inline",
		MinTargetUtilization:   get("min-target-utilization"),
		MaxTargetUtilization:   get("max-target-utilization"),
		TargetUtilization:      get("target-utilization"),
		MinFullUtilizationRate: get("min-full-utilization-rate"),
		MaxFullUtilizationRate: get("max-full-utilization-rate"),
		ZeroUtilizationRate:    get("zero-utilization-rate"),
		RateHalfLife:           get("rate-half-life"),
		TargetRatePercent:      get("target-rate-percent"),
	}
	return inline.InterestRateModel()
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	m, err := modelFromFlags(cmd, cfg)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	var state model.AssetState
	fields := []struct {
		flag string
		dst  *uint256.Int
	}{
		{"nominal-debt", &state.TotalNominalDebt},
		{"rate-accumulator", &state.LastRateAccumulator},
		{"reserve", &state.Reserve},
		{"scale", &state.Scale},
		{"last-full-utilization-rate", &state.LastFullUtilizationRate},
	}
	for _, f := range fields {
		raw, _ := flags.GetString(f.flag)
		v, err := parseFlagUint256(raw)
		if err != nil {
			return fmt.Errorf("--%s: %w", f.flag, err)
		}
		f.dst.Set(v)
	}
	if state.Scale.IsZero() {
		return fmt.Errorf("--scale must be positive")
	}
	state.LastUpdated, _ = flags.GetUint64("last-updated")

	now := time.Unix(int64(state.LastUpdated), 0)
	if unix, _ := flags.GetInt64("now"); unix != 0 {
		now = time.Unix(unix, 0)
	} else {
		elapsed, _ := flags.GetUint64("elapsed")
		now = now.Add(time.Duration(elapsed) * time.Second)
	}

	quote, err := rates.Compute(m, state, now)
	if err != nil {
		return err
	}
	name, _ := flags.GetString("asset")
	return json.NewEncoder(cmd.OutOrStdout()).Encode(quote.Record(name, rates.FormatPercent))
}

func parseFlagUint256(raw string) (*uint256.Int, error) {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), "_", "")
	if raw == "" {
		return nil, fmt.Errorf("value is required")
	}
	v, ok := new(big.Int).SetString(raw, 0)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid unsigned integer %q", raw)
	}
	out, overflow := uint256.FromBig(v)
	if overflow {
		return nil, fmt.Errorf("value overflows uint256: %q", raw)
	}
	return out, nil
}
