package main

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"github.com/ethcore/execevm/common"
	"github.com/ethcore/execevm/core/types"
	"github.com/ethcore/execevm/params"
	"github.com/holiman/uint256"
)

// jsonEnv is the --input.env file: the block-header fields the executor
// needs, named the way t8n's env.json names them.
type jsonEnv struct {
	CurrentCoinbase       string           `json:"currentCoinbase"`
	CurrentDifficulty     string           `json:"currentDifficulty"`
	CurrentRandom         string           `json:"currentRandom"`
	CurrentGasLimit       string           `json:"currentGasLimit"`
	CurrentNumber         string           `json:"currentNumber"`
	CurrentTimestamp      string           `json:"currentTimestamp"`
	CurrentBaseFee        string           `json:"currentBaseFee"`
	ParentHash            string           `json:"parentHash"`
	ParentBeaconBlockRoot string           `json:"parentBeaconBlockRoot"`
	CurrentExcessBlobGas  string           `json:"currentExcessBlobGas"`
	Withdrawals           []jsonWithdrawal `json:"withdrawals"`
}

type jsonWithdrawal struct {
	Index     string `json:"index"`
	Validator string `json:"validator"`
	Address   string `json:"address"`
	Amount    string `json:"amount"`
}

// loadEnv reads path into a *types.Header. Fields the file omits keep
// their zero value, matching an empty/absent fork feature.
func loadEnv(path string) (*types.Header, []*types.Withdrawal, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("evmrun: reading env file: %w", err)
	}
	var e jsonEnv
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, nil, fmt.Errorf("evmrun: parsing env file: %w", err)
	}

	header := &types.Header{
		Coinbase:   common.HexToAddress(e.CurrentCoinbase),
		Difficulty: mustUint256(e.CurrentDifficulty),
		Number:     mustUint256(e.CurrentNumber),
		GasLimit:   mustUint64(e.CurrentGasLimit),
		Time:       mustUint64(e.CurrentTimestamp),
	}
	if e.ParentHash != "" {
		header.ParentHash = common.HexToHash(e.ParentHash)
	}
	if e.CurrentRandom != "" {
		header.MixDigest = common.HexToHash(e.CurrentRandom)
	}
	if e.CurrentBaseFee != "" {
		header.BaseFee = mustUint256(e.CurrentBaseFee)
	} else {
		header.BaseFee = new(uint256.Int)
	}
	if e.ParentBeaconBlockRoot != "" {
		root := common.HexToHash(e.ParentBeaconBlockRoot)
		header.ParentBeaconBlockRoot = &root
	}
	if e.CurrentExcessBlobGas != "" {
		v := mustUint64(e.CurrentExcessBlobGas)
		header.ExcessBlobGas = &v
	}

	withdrawals := make([]*types.Withdrawal, len(e.Withdrawals))
	for i, w := range e.Withdrawals {
		withdrawals[i] = &types.Withdrawal{
			Index:     mustUint64(w.Index),
			Validator: mustUint64(w.Validator),
			Address:   common.HexToAddress(w.Address),
			Amount:    mustUint64(w.Amount),
		}
	}
	return header, withdrawals, nil
}

func mustUint256(s string) *uint256.Int {
	v, err := parseUint256(s)
	if err != nil {
		return new(uint256.Int)
	}
	return v
}

func mustUint64(s string) uint64 {
	v, err := parseUint64(s)
	if err != nil {
		return 0
	}
	return v
}

// forkOrder lists the named --state.fork values t8n accepts, oldest first;
// chainConfigForFork activates every fork up to and including the named
// one at block/time zero and leaves the rest disabled.
var forkOrder = []string{
	"Frontier", "Homestead", "EIP150", "EIP155", "Byzantium",
	"Constantinople", "Petersburg", "Istanbul", "Berlin", "London",
	"Merge", "Shanghai", "Cancun", "Prague", "Osaka", "Amsterdam",
}

// chainConfigForFork resolves name to a fully-specified ChainConfig.
func chainConfigForFork(name string, chainID uint64) (*params.ChainConfig, error) {
	idx := -1
	for i, n := range forkOrder {
		if n == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("evmrun: unknown fork %q", name)
	}
	activated := func(want string) bool {
		for i := 0; i <= idx; i++ {
			if forkOrder[i] == want {
				return true
			}
		}
		return false
	}
	blockZero := func(want string) *big.Int {
		if activated(want) {
			return big.NewInt(0)
		}
		return nil
	}
	timeZero := func(want string) *uint64 {
		if activated(want) {
			v := uint64(0)
			return &v
		}
		return nil
	}

	return &params.ChainConfig{
		ChainID:             new(big.Int).SetUint64(chainID),
		HomesteadBlock:      blockZero("Homestead"),
		EIP150Block:         blockZero("EIP150"),
		EIP155Block:         blockZero("EIP155"),
		ByzantiumBlock:      blockZero("Byzantium"),
		ConstantinopleBlock: blockZero("Constantinople"),
		PetersburgBlock:     blockZero("Petersburg"),
		IstanbulBlock:       blockZero("Istanbul"),
		BerlinBlock:         blockZero("Berlin"),
		LondonBlock:         blockZero("London"),
		ShanghaiTime:        timeZero("Shanghai"),
		CancunTime:          timeZero("Cancun"),
		PragueTime:          timeZero("Prague"),
		OsakaTime:           timeZero("Osaka"),
		AmsterdamTime:       timeZero("Amsterdam"),
	}, nil
}
