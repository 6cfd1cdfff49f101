package protocol

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"
	"github.com/holiman/uint256"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"rateScope/internal/model"
)

// Caller executes read-only contract calls. *chain.Client satisfies it.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// ReaderConfig holds contract addresses and RPC budget settings.
type ReaderConfig struct {
	Singleton          common.Address
	Extension          common.Address
	RateLimit          float64
	Burst              int
	ReferenceCacheSize int
}

// Reader loads asset state and reference rates from the lending contracts.
type Reader struct {
	caller    Caller
	cfg       ReaderConfig
	limiter   *rate.Limiter
	reference *lru.Cache
	logger    *zap.Logger
}

// NewReader builds a Reader. A zero RateLimit disables throttling and a zero
// ReferenceCacheSize disables reference memoization.
func NewReader(caller Caller, cfg ReaderConfig, logger *zap.Logger) (*Reader, error) {
	if caller == nil {
		return nil, fmt.Errorf("caller is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Reader{caller: caller, cfg: cfg, logger: logger}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		r.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	if cfg.ReferenceCacheSize > 0 {
		cache, err := lru.New(cfg.ReferenceCacheSize)
		if err != nil {
			return nil, fmt.Errorf("reference cache: %w", err)
		}
		r.reference = cache
	}
	return r, nil
}

// ParseRef converts an AssetRef into a pool id and asset address. The pool id
// may be decimal or 0x-prefixed hex.
func ParseRef(ref model.AssetRef) (*big.Int, common.Address, error) {
	poolID, ok := new(big.Int).SetString(strings.TrimSpace(ref.Pool), 0)
	if !ok || poolID.Sign() < 0 {
		return nil, common.Address{}, fmt.Errorf("invalid pool id: %s", ref.Pool)
	}
	asset := strings.TrimSpace(ref.Asset)
	if !common.IsHexAddress(asset) {
		return nil, common.Address{}, fmt.Errorf("invalid asset address: %s", ref.Asset)
	}
	return poolID, common.HexToAddress(asset), nil
}

// AssetState reads the asset's accounting snapshot from the singleton.
func (r *Reader) AssetState(ctx context.Context, ref model.AssetRef) (model.AssetState, error) {
	poolID, asset, err := ParseRef(ref)
	if err != nil {
		return model.AssetState{}, err
	}
	parsed, err := SingletonABI()
	if err != nil {
		return model.AssetState{}, fmt.Errorf("parse singleton abi: %w", err)
	}

	values, err := r.call(ctx, r.cfg.Singleton, parsed, "assetConfigUnsafe", poolID, asset)
	if err != nil {
		return model.AssetState{}, err
	}
	if len(values) != 11 {
		return model.AssetState{}, fmt.Errorf("assetConfigUnsafe return size %d", len(values))
	}

	var state model.AssetState
	fields := []struct {
		name  string
		index int
		dst   *uint256.Int
	}{
		{"total nominal debt", 1, &state.TotalNominalDebt},
		{"reserve", 2, &state.Reserve},
		{"scale", 5, &state.Scale},
		{"last rate accumulator", 8, &state.LastRateAccumulator},
		{"last full utilization rate", 9, &state.LastFullUtilizationRate},
	}
	for _, f := range fields {
		v, err := asUint256(values[f.index])
		if err != nil {
			return model.AssetState{}, fmt.Errorf("%s: %w", f.name, err)
		}
		f.dst.Set(v)
	}
	lastUpdated, err := asUint64(values[7])
	if err != nil {
		return model.AssetState{}, fmt.Errorf("last updated: %w", err)
	}
	state.LastUpdated = lastUpdated

	if state.Scale.IsZero() {
		return model.AssetState{}, fmt.Errorf("asset %s has zero scale", ref)
	}
	return state, nil
}

// ReferenceRate asks the extension for the per-second rate of the given inputs.
// The extension measures elapsed time against the block timestamp, so results
// are memoized per quote time as well as per input tuple. at should be the
// block time of the state snapshot for the memo to be exact.
func (r *Reader) ReferenceRate(ctx context.Context, ref model.AssetRef, utilization *uint256.Int, lastUpdated uint64, lastFullUtilizationRate *uint256.Int, at time.Time) (*uint256.Int, error) {
	key := fmt.Sprintf("%s|%s|%s|%d|%s|%d", ref.Pool, strings.ToLower(ref.Asset), utilization.Dec(), lastUpdated, lastFullUtilizationRate.Dec(), at.Unix())
	if r.reference != nil {
		if cached, ok := r.reference.Get(key); ok {
			return new(uint256.Int).Set(cached.(*uint256.Int)), nil
		}
	}

	poolID, asset, err := ParseRef(ref)
	if err != nil {
		return nil, err
	}
	parsed, err := ExtensionABI()
	if err != nil {
		return nil, fmt.Errorf("parse extension abi: %w", err)
	}

	values, err := r.call(ctx, r.cfg.Extension, parsed, "interestRate", poolID, asset, utilization.ToBig(), lastUpdated, lastFullUtilizationRate.ToBig())
	if err != nil {
		return nil, err
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("interestRate return size %d", len(values))
	}
	rateValue, err := asUint256(values[0])
	if err != nil {
		return nil, fmt.Errorf("interest rate: %w", err)
	}

	if r.reference != nil {
		r.reference.Add(key, new(uint256.Int).Set(rateValue))
	}
	return rateValue, nil
}

// InterestRateConfig reads the model parameters configured on-chain for an asset.
func (r *Reader) InterestRateConfig(ctx context.Context, ref model.AssetRef) (model.InterestRateModel, error) {
	poolID, asset, err := ParseRef(ref)
	if err != nil {
		return model.InterestRateModel{}, err
	}
	parsed, err := ExtensionABI()
	if err != nil {
		return model.InterestRateModel{}, fmt.Errorf("parse extension abi: %w", err)
	}

	values, err := r.call(ctx, r.cfg.Extension, parsed, "interestRateConfig", poolID, asset)
	if err != nil {
		return model.InterestRateModel{}, err
	}
	if len(values) != 8 {
		return model.InterestRateModel{}, fmt.Errorf("interestRateConfig return size %d", len(values))
	}

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
	for i, d := range dst {
		v, err := asUint256(values[i])
		if err != nil {
			return model.InterestRateModel{}, fmt.Errorf("interestRateConfig[%d]: %w", i, err)
		}
		d.Set(v)
	}
	return m, nil
}

func (r *Reader) call(ctx context.Context, to common.Address, parsed abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}
	msg := ethereum.CallMsg{To: &to, Data: data}
	resp, err := r.caller.CallContract(ctx, msg, nil)
	if err != nil {
		r.logger.Debug("contract call failed", zap.String("method", method), zap.String("to", to.Hex()), zap.Error(err))
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}

func asUint256(value interface{}) (*uint256.Int, error) {
	v, err := asBigInt(value)
	if err != nil {
		return nil, err
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("negative value %s", v)
	}
	out, overflow := uint256.FromBig(v)
	if overflow {
		return nil, fmt.Errorf("value overflows uint256: %s", v)
	}
	return out, nil
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

func asUint64(value interface{}) (uint64, error) {
	switch v := value.(type) {
	case uint64:
		return v, nil
	case uint32:
		return uint64(v), nil
	case *big.Int:
		if !v.IsUint64() {
			return 0, fmt.Errorf("value does not fit uint64: %s", v)
		}
		return v.Uint64(), nil
	default:
		return 0, fmt.Errorf("unsupported uint64 type %T", value)
	}
}
