package vm

import (
	"math/big"
	"testing"

	"github.com/ethcore/execevm/common"
	"github.com/ethcore/execevm/core/state"
	"github.com/ethcore/execevm/core/substate"
	"github.com/ethcore/execevm/core/types"
	"github.com/ethcore/execevm/params"
	"github.com/holiman/uint256"
)

// memStateView is a minimal in-memory state.StateView for tests, in the
// same spirit as cmd/evmrun's alloc-file-backed memStateView: every
// lookup is satisfied from maps populated once up front.
type memStateView struct {
	accounts map[common.Address]*types.Account
	storage  map[common.Address]map[common.Hash]common.Hash
	code     map[common.Hash]types.Code
}

func newMemStateView() *memStateView {
	return &memStateView{
		accounts: make(map[common.Address]*types.Account),
		storage:  make(map[common.Address]map[common.Hash]common.Hash),
		code:     make(map[common.Hash]types.Code),
	}
}

func (v *memStateView) GetAccount(addr common.Address) (*types.Account, error) {
	return v.accounts[addr], nil
}

func (v *memStateView) GetStorage(addr common.Address, key common.Hash) (common.Hash, error) {
	return v.storage[addr][key], nil
}

func (v *memStateView) GetCode(hash common.Hash) (types.Code, error) {
	return v.code[hash], nil
}

// testChainConfig activates every fork from genesis, so Rules() reports
// the full post-Amsterdam feature set regardless of the block number a
// test picks.
func testChainConfig() *params.ChainConfig {
	amsterdam := uint64(0)
	return &params.ChainConfig{
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
		AmsterdamTime:       &amsterdam,
	}
}

func testCanTransfer(db *state.StateDB, addr common.Address, amount *uint256.Int) bool {
	return db.GetAccount(addr).Balance.Cmp(amount) >= 0
}

func testTransfer(db *state.StateDB, from, to common.Address, amount *uint256.Int) {
	if amount.IsZero() {
		return
	}
	fromAcc := db.GetAccount(from)
	db.SetBalance(from, new(uint256.Int).Sub(fromAcc.Balance, amount))
	toAcc := db.GetAccount(to)
	db.SetBalance(to, new(uint256.Int).Add(toAcc.Balance, amount))
}

// newTestEVM builds an EVM over a fresh journaled StateDB backed by view,
// with every fork active and no value-transfer restrictions beyond a
// plain balance check.
func newTestEVM(t *testing.T, view state.StateView) (*EVM, *state.StateDB) {
	t.Helper()
	sdb := state.New(view, common.Address{})
	blockCtx := BlockContext{
		CanTransfer: testCanTransfer,
		Transfer:    testTransfer,
		GetHash:     func(n uint64) common.Hash { return common.Hash{} },
		BlockNumber: uint256.NewInt(1),
		BaseFee:     uint256.NewInt(0),
	}
	evm := NewEVM(blockCtx, TxContext{}, sdb, substate.New(), testChainConfig(), Config{})
	return evm, sdb
}
