package protocol

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const singletonABIJSON = `[
  {
    "inputs": [
      {"internalType": "uint256", "name": "poolId", "type": "uint256"},
      {"internalType": "address", "name": "asset", "type": "address"}
    ],
    "name": "assetConfigUnsafe",
    "outputs": [
      {"internalType": "uint256", "name": "totalCollateralShares", "type": "uint256"},
      {"internalType": "uint256", "name": "totalNominalDebt", "type": "uint256"},
      {"internalType": "uint256", "name": "reserve", "type": "uint256"},
      {"internalType": "uint256", "name": "maxUtilization", "type": "uint256"},
      {"internalType": "uint256", "name": "floor", "type": "uint256"},
      {"internalType": "uint256", "name": "scale", "type": "uint256"},
      {"internalType": "bool", "name": "isLegacy", "type": "bool"},
      {"internalType": "uint64", "name": "lastUpdated", "type": "uint64"},
      {"internalType": "uint256", "name": "lastRateAccumulator", "type": "uint256"},
      {"internalType": "uint256", "name": "lastFullUtilizationRate", "type": "uint256"},
      {"internalType": "uint256", "name": "feeRate", "type": "uint256"}
    ],
    "stateMutability": "view",
    "type": "function"
  }
]`

const extensionABIJSON = `[
  {
    "inputs": [
      {"internalType": "uint256", "name": "poolId", "type": "uint256"},
      {"internalType": "address", "name": "asset", "type": "address"},
      {"internalType": "uint256", "name": "utilization", "type": "uint256"},
      {"internalType": "uint64", "name": "lastUpdated", "type": "uint64"},
      {"internalType": "uint256", "name": "lastFullUtilizationRate", "type": "uint256"}
    ],
    "name": "interestRate",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "uint256", "name": "poolId", "type": "uint256"},
      {"internalType": "address", "name": "asset", "type": "address"}
    ],
    "name": "interestRateConfig",
    "outputs": [
      {"internalType": "uint256", "name": "minTargetUtilization", "type": "uint256"},
      {"internalType": "uint256", "name": "maxTargetUtilization", "type": "uint256"},
      {"internalType": "uint256", "name": "targetUtilization", "type": "uint256"},
      {"internalType": "uint256", "name": "minFullUtilizationRate", "type": "uint256"},
      {"internalType": "uint256", "name": "maxFullUtilizationRate", "type": "uint256"},
      {"internalType": "uint256", "name": "zeroUtilizationRate", "type": "uint256"},
      {"internalType": "uint256", "name": "rateHalfLife", "type": "uint256"},
      {"internalType": "uint256", "name": "targetRatePercent", "type": "uint256"}
    ],
    "stateMutability": "view",
    "type": "function"
  }
]`

var (
	singletonABI     abi.ABI
	singletonABIOnce sync.Once
	singletonABIErr  error

	extensionABI     abi.ABI
	extensionABIOnce sync.Once
	extensionABIErr  error
)

// SingletonABI returns the parsed ABI of the pool singleton.
func SingletonABI() (abi.ABI, error) {
	singletonABIOnce.Do(func() {
		singletonABI, singletonABIErr = abi.JSON(strings.NewReader(singletonABIJSON))
	})
	return singletonABI, singletonABIErr
}

// ExtensionABI returns the parsed ABI of the rate extension.
func ExtensionABI() (abi.ABI, error) {
	extensionABIOnce.Do(func() {
		extensionABI, extensionABIErr = abi.JSON(strings.NewReader(extensionABIJSON))
	})
	return extensionABI, extensionABIErr
}
