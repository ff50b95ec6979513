// Package params holds the fork schedule and the gas-schedule constants
// that the VM and block executor read to decide which consensus rules
// apply to a given block.
package params

import (
	"math/big"

	"github.com/ethcore/execevm/common"
)

// ChainConfig is the chain-wide fork schedule: each field is the
// block number or (for post-Merge forks) timestamp at which a fork
// activates, following the teacher's activation-height struct pattern
// (params/config_arbitrum.go's ArbitrumChainParams embeds the same idea
// for L2-specific activation gates).
type ChainConfig struct {
	ChainID *big.Int

	HomesteadBlock      *big.Int
	EIP150Block         *big.Int
	EIP155Block         *big.Int
	ByzantiumBlock      *big.Int
	ConstantinopleBlock *big.Int
	PetersburgBlock     *big.Int
	IstanbulBlock       *big.Int
	BerlinBlock         *big.Int
	LondonBlock         *big.Int

	MergeNetsplitBlock *big.Int

	ShanghaiTime   *uint64
	CancunTime     *uint64
	PragueTime     *uint64
	OsakaTime      *uint64
	AmsterdamTime  *uint64

	DepositContractAddress common.Address

	// L2 fee configuration (§4.9). Nothing in this repository reads this
	// field: the block executor charges fees the same way whether or not
	// it is set, and no operator or L1 fee is deducted.
	L2 *L2FeeConfig
}

// L2FeeConfig augments standard EIP-1559 fee handling with an operator fee
// and an L1 data-availability fee, mirroring the teacher's ArbOS fee model
// (params/config_arbitrum.go) generalized away from Arbitrum specifics.
type L2FeeConfig struct {
	OperatorFeeScalar        uint64
	OperatorFeeConstant      uint64
	L1FeeRecipient           common.Address
	OperatorFeeRecipient     common.Address
	FeeTokenAddress          *common.Address // nil means pay fees in the native asset
}

func isActivated(block *big.Int, num *big.Int) bool {
	if block == nil {
		return false
	}
	return num != nil && block.Cmp(num) <= 0
}

func timeActivated(t *uint64, time uint64) bool {
	return t != nil && *t <= time
}

// Rules is the fully-resolved, immutable set of feature gates for one
// specific block; the VM and gas tables only ever consult Rules, never
// ChainConfig directly, so that fork logic reads as a flat boolean table.
type Rules struct {
	ChainID                                                 *big.Int
	IsHomestead, IsEIP150, IsEIP155                          bool
	IsByzantium, IsConstantinople, IsPetersburg, IsIstanbul  bool
	IsBerlin, IsLondon                                       bool
	IsMerge                                                  bool
	IsShanghai, IsCancun, IsPrague, IsOsaka, IsAmsterdam     bool
}

// Rules resolves the chain config against a specific block number and
// time, producing the flat gate table consumed everywhere else.
func (c *ChainConfig) Rules(num *big.Int, isMerge bool, time uint64) Rules {
	return Rules{
		ChainID:          c.ChainID,
		IsHomestead:      isActivated(c.HomesteadBlock, num),
		IsEIP150:         isActivated(c.EIP150Block, num),
		IsEIP155:         isActivated(c.EIP155Block, num),
		IsByzantium:      isActivated(c.ByzantiumBlock, num),
		IsConstantinople: isActivated(c.ConstantinopleBlock, num),
		IsPetersburg:     isActivated(c.PetersburgBlock, num),
		IsIstanbul:       isActivated(c.IstanbulBlock, num),
		IsBerlin:         isActivated(c.BerlinBlock, num),
		IsLondon:         isActivated(c.LondonBlock, num),
		IsMerge:          isMerge,
		IsShanghai:       timeActivated(c.ShanghaiTime, time),
		IsCancun:         timeActivated(c.CancunTime, time),
		IsPrague:         timeActivated(c.PragueTime, time),
		IsOsaka:          timeActivated(c.OsakaTime, time),
		IsAmsterdam:      timeActivated(c.AmsterdamTime, time),
	}
}

func u64(v uint64) *uint64 { return &v }

// MainnetChainConfig is a representative configuration with every fork
// through Prague active from genesis (Osaka and Amsterdam are not set).
var MainnetChainConfig = &ChainConfig{
	ChainID:             big.NewInt(1),
	HomesteadBlock:      big.NewInt(0),
	EIP150Block:         big.NewInt(0),
	EIP155Block:         big.NewInt(0),
	ByzantiumBlock:      big.NewInt(0),
	ConstantinopleBlock: big.NewInt(0),
	PetersburgBlock:     big.NewInt(0),
	IstanbulBlock:       big.NewInt(0),
	BerlinBlock:         big.NewInt(0),
	LondonBlock:         big.NewInt(0),
	ShanghaiTime:        u64(0),
	CancunTime:          u64(0),
	PragueTime:          u64(0),
}

// AllForksEnabledChainConfig additionally activates the speculative
// Osaka/Amsterdam forks this spec targets (EIP-7928 BAL, EIP-7708
// transfer logs, P256VERIFY); used by BAL-recording tests.
var AllForksEnabledChainConfig = &ChainConfig{
	ChainID:             big.NewInt(1337),
	HomesteadBlock:      big.NewInt(0),
	EIP150Block:         big.NewInt(0),
	EIP155Block:         big.NewInt(0),
	ByzantiumBlock:      big.NewInt(0),
	ConstantinopleBlock: big.NewInt(0),
	PetersburgBlock:     big.NewInt(0),
	IstanbulBlock:       big.NewInt(0),
	BerlinBlock:         big.NewInt(0),
	LondonBlock:         big.NewInt(0),
	ShanghaiTime:        u64(0),
	CancunTime:          u64(0),
	PragueTime:          u64(0),
	OsakaTime:           u64(0),
	AmsterdamTime:       u64(0),
}
