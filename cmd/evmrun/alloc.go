package main

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"github.com/ethcore/execevm/common"
	"github.com/ethcore/execevm/core/types"
	"github.com/holiman/uint256"
)

// jsonAccount is one entry of the --input.alloc genesis file, the same
// nonce/balance/code/storage shape go-ethereum's cmd/evm t8n tool reads.
type jsonAccount struct {
	Balance string            `json:"balance"`
	Nonce   string            `json:"nonce"`
	Code    string            `json:"code"`
	Storage map[string]string `json:"storage"`
}

// memStateView is an in-memory state.StateView backing the CLI's
// single-block run: every account/slot/code lookup is satisfied from a
// genesis allocation parsed once up front, never touched again.
type memStateView struct {
	accounts map[common.Address]*types.Account
	storage  map[common.Address]map[common.Hash]common.Hash
	code     map[common.Hash]types.Code
}

func (v *memStateView) GetAccount(addr common.Address) (*types.Account, error) {
	if a, ok := v.accounts[addr]; ok {
		return a, nil
	}
	return nil, nil
}

func (v *memStateView) GetStorage(addr common.Address, key common.Hash) (common.Hash, error) {
	if slots, ok := v.storage[addr]; ok {
		return slots[key], nil
	}
	return common.Hash{}, nil
}

func (v *memStateView) GetCode(hash common.Hash) (types.Code, error) {
	return v.code[hash], nil
}

// loadAlloc reads the genesis allocation file at path into a memStateView.
func loadAlloc(path string) (*memStateView, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("evmrun: reading alloc file: %w", err)
	}
	var parsed map[string]jsonAccount
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("evmrun: parsing alloc file: %w", err)
	}

	view := &memStateView{
		accounts: make(map[common.Address]*types.Account, len(parsed)),
		storage:  make(map[common.Address]map[common.Hash]common.Hash),
		code:     make(map[common.Hash]types.Code),
	}
	for addrHex, acc := range parsed {
		addr := common.HexToAddress(addrHex)
		account := types.NewEmptyAccount()
		if acc.Nonce != "" {
			n, err := parseUint256(acc.Nonce)
			if err != nil {
				return nil, fmt.Errorf("evmrun: invalid nonce for %s: %w", addrHex, err)
			}
			account.Nonce = n.Uint64()
		}
		if acc.Balance != "" {
			b, err := parseUint256(acc.Balance)
			if err != nil {
				return nil, fmt.Errorf("evmrun: invalid balance for %s: %w", addrHex, err)
			}
			account.Balance = b
		}
		if acc.Code != "" {
			code := types.Code(common.FromHex(acc.Code))
			h := code.Hash()
			account.CodeHash = h[:]
			view.code[common.BytesToHash(h[:])] = code
		}
		if len(acc.Storage) > 0 {
			slots := make(map[common.Hash]common.Hash, len(acc.Storage))
			for k, val := range acc.Storage {
				slots[common.HexToHash(k)] = common.HexToHash(val)
			}
			view.storage[addr] = slots
		}
		view.accounts[addr] = account
	}
	return view, nil
}

// parseUint256 accepts either a "0x"-prefixed hex literal or a bare
// decimal literal, the two numeric shapes genesis-alloc fields carry in
// practice, and converts through math/big to avoid relying on whichever
// literal form uint256's own parser expects.
func parseUint256(s string) (*uint256.Int, error) {
	b, ok := new(big.Int).SetString(s, 0)
	if !ok {
		return nil, fmt.Errorf("not a valid integer literal: %q", s)
	}
	if b.Sign() < 0 {
		return nil, fmt.Errorf("negative value not allowed: %q", s)
	}
	v, overflow := uint256.FromBig(b)
	if overflow {
		return nil, fmt.Errorf("value overflows 256 bits: %q", s)
	}
	return v, nil
}
