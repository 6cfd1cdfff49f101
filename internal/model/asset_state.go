package model

import "github.com/holiman/uint256"

// AssetRef identifies an asset within a lending pool.
type AssetRef struct {
	Pool  string `json:"pool"`
	Asset string `json:"asset"`
}

func (r AssetRef) String() string {
	return r.Pool + "/" + r.Asset
}

// AssetState is a point-in-time snapshot of the pool's accounting for one asset.
type AssetState struct {
	TotalNominalDebt        uint256.Int
	LastRateAccumulator     uint256.Int
	Reserve                 uint256.Int
	Scale                   uint256.Int
	LastUpdated             uint64
	LastFullUtilizationRate uint256.Int
}
