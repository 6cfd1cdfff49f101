package config

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"rateScope/internal/model"
)

// Clock sources.
const (
	ClockSystem = "system"
	ClockChain  = "chain"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL             string
	Pool               string
	Singleton          string
	Extension          string
	Assets             []AssetConfig
	Consistency        string
	Clock              string
	Out                string
	PGDSN              string
	Interval           time.Duration
	Concurrency        int
	MaxRetries         int
	RetryBackoff       time.Duration
	RPCRateLimit       float64
	RPCBurst           int
	ReferenceCacheSize int
	MetricsAddr        string
	LogLevel           string
}

// AssetConfig describes one quoted asset. Model parameters are integers in
// their on-chain units and may be written as decimal strings.
type AssetConfig struct {
	Name                   string `mapstructure:"name"`
	Pool                   string `mapstructure:"pool"`
	Address                string `mapstructure:"address"`
	MinTargetUtilization   string `mapstructure:"min_target_utilization"`
	MaxTargetUtilization   string `mapstructure:"max_target_utilization"`
	TargetUtilization      string `mapstructure:"target_utilization"`
	MinFullUtilizationRate string `mapstructure:"min_full_utilization_rate"`
	MaxFullUtilizationRate string `mapstructure:"max_full_utilization_rate"`
	ZeroUtilizationRate    string `mapstructure:"zero_utilization_rate"`
	RateHalfLife           string `mapstructure:"rate_half_life"`
	TargetRatePercent      string `mapstructure:"target_rate_percent"`
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RATESCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("consistency", "display")
	v.SetDefault("clock", ClockSystem)
	v.SetDefault("out", "./data/quotes.jsonl")
	v.SetDefault("interval", 30*time.Second)
	v.SetDefault("concurrency", 4)
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("rpc-rate-limit", 10.0)
	v.SetDefault("rpc-burst", 5)
	v.SetDefault("reference-cache-size", 256)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		RPCURL:             v.GetString("rpc"),
		Pool:               v.GetString("pool"),
		Singleton:          v.GetString("singleton"),
		Extension:          v.GetString("extension"),
		Consistency:        strings.ToLower(v.GetString("consistency")),
		Clock:              strings.ToLower(v.GetString("clock")),
		Out:                v.GetString("out"),
		PGDSN:              v.GetString("pg-dsn"),
		Interval:           v.GetDuration("interval"),
		Concurrency:        v.GetInt("concurrency"),
		MaxRetries:         v.GetInt("max-retries"),
		RetryBackoff:       v.GetDuration("retry-backoff"),
		RPCRateLimit:       v.GetFloat64("rpc-rate-limit"),
		RPCBurst:           v.GetInt("rpc-burst"),
		ReferenceCacheSize: v.GetInt("reference-cache-size"),
		MetricsAddr:        v.GetString("metrics-addr"),
		LogLevel:           v.GetString("log-level"),
	}
	if err := v.UnmarshalKey("assets", &cfg.Assets); err != nil {
		return Config{}, fmt.Errorf("decode assets: %w", err)
	}
	if cfg.Clock != ClockSystem && cfg.Clock != ClockChain {
		return Config{}, fmt.Errorf("unknown clock %q", cfg.Clock)
	}

	return cfg, nil
}

// Contracts parses the singleton and extension addresses.
func (c Config) Contracts() (singleton, extension common.Address, err error) {
	if singleton, err = parseAddress("singleton", c.Singleton); err != nil {
		return common.Address{}, common.Address{}, err
	}
	if extension, err = parseAddress("extension", c.Extension); err != nil {
		return common.Address{}, common.Address{}, err
	}
	return singleton, extension, nil
}

// Ref returns the asset reference, falling back to the default pool.
func (a AssetConfig) Ref(defaultPool string) (model.AssetRef, error) {
	pool := strings.TrimSpace(a.Pool)
	if pool == "" {
		pool = strings.TrimSpace(defaultPool)
	}
	if pool == "" {
		return model.AssetRef{}, fmt.Errorf("asset %s: pool is required", a.label())
	}
	address, err := parseAddress("asset "+a.label(), a.Address)
	if err != nil {
		return model.AssetRef{}, err
	}
	return model.AssetRef{Pool: pool, Asset: address.Hex()}, nil
}

// HasModel reports whether any model parameter is configured.
func (a AssetConfig) HasModel() bool {
	for _, f := range a.modelFields() {
		if strings.TrimSpace(f.value) != "" {
			return true
		}
	}
	return false
}

// InterestRateModel parses and validates the configured model.
func (a AssetConfig) InterestRateModel() (model.InterestRateModel, error) {
	var m model.InterestRateModel
	dst := []*uint256.Int{
		&m.MinTargetUtilization,
		&m.MaxTargetUtilization,
		&m.TargetUtilization,
		&m.MinFullUtilizationRate,
		&m.MaxFullUtilizationRate,
		&m.ZeroUtilizationRate,
		&m.RateHalfLife,
		&m.TargetRatePercent,
	}
	for i, f := range a.modelFields() {
		v, err := parseUint256(f.value)
		if err != nil {
			return model.InterestRateModel{}, fmt.Errorf("asset %s %s: %w", a.label(), f.name, err)
		}
		dst[i].Set(v)
	}
	if err := m.Validate(); err != nil {
		return model.InterestRateModel{}, fmt.Errorf("asset %s: %w", a.label(), err)
	}
	return m, nil
}

type modelField struct {
	name  string
	value string
}

func (a AssetConfig) modelFields() []modelField {
	return []modelField{
		{"min_target_utilization", a.MinTargetUtilization},
		{"max_target_utilization", a.MaxTargetUtilization},
		{"target_utilization", a.TargetUtilization},
		{"min_full_utilization_rate", a.MinFullUtilizationRate},
		{"max_full_utilization_rate", a.MaxFullUtilizationRate},
		{"zero_utilization_rate", a.ZeroUtilizationRate},
		{"rate_half_life", a.RateHalfLife},
		{"target_rate_percent", a.TargetRatePercent},
	}
}

func (a AssetConfig) label() string {
	if a.Name != "" {
		return a.Name
	}
	return a.Address
}

func parseAddress(name, input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("invalid %s address: %q", name, input)
	}
	return common.HexToAddress(input), nil
}

func parseUint256(input string) (*uint256.Int, error) {
	input = strings.ReplaceAll(strings.TrimSpace(input), "_", "")
	if input == "" {
		return nil, fmt.Errorf("value is required")
	}
	v, ok := new(big.Int).SetString(input, 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", input)
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("negative value %q", input)
	}
	out, overflow := uint256.FromBig(v)
	if overflow {
		return nil, fmt.Errorf("value overflows uint256: %q", input)
	}
	return out, nil
}
