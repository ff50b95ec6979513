package core

import (
	"github.com/ethcore/execevm/common"
	"github.com/ethcore/execevm/core/state"
	"github.com/ethcore/execevm/core/types"
	"github.com/ethcore/execevm/core/vm"
	"github.com/holiman/uint256"
)

// ChainContext supplies the ancestor headers the BLOCKHASH opcode and
// EIP-2935 history-storage fallback need, without requiring the VM
// package to depend on a full blockchain implementation.
type ChainContext interface {
	GetHeader(hash common.Hash, number uint64) *types.Header
}

// NewEVMBlockContext builds the block-wide context for header, resolving
// BLOCKHASH lookups through chain (nil author falls back to header.Coinbase,
// mirroring the teacher's pattern for blocks assembled before sealing).
func NewEVMBlockContext(header *types.Header, chain ChainContext, author *common.Address) vm.BlockContext {
	var beneficiary common.Address
	if author != nil {
		beneficiary = *author
	} else {
		beneficiary = header.Coinbase
	}
	var random *common.Hash
	if header.IsMerge() {
		mix := header.MixDigest
		random = &mix
	}
	return vm.BlockContext{
		CanTransfer: CanTransfer,
		Transfer:    Transfer,
		GetHash:     GetHashFn(header, chain),
		Coinbase:    beneficiary,
		GasLimit:    header.GasLimit,
		BlockNumber: new(uint256.Int).Set(header.Number),
		Time:        header.Time,
		Random:      random,
		BaseFee:     header.BaseFee,
		BlobBaseFee: excessBlobGasToBaseFee(header),
	}
}

// NewEVMTxContext builds the transaction-scoped context from msg.
func NewEVMTxContext(msg *Message) vm.TxContext {
	ctx := vm.TxContext{
		Origin:     msg.From,
		GasPrice:   new(uint256.Int).Set(msg.GasPrice),
		BlobHashes: msg.BlobHashes,
	}
	if msg.BlobGasFeeCap != nil {
		ctx.BlobFeeCap = new(uint256.Int).Set(msg.BlobGasFeeCap)
	}
	return ctx
}

// GetHashFn returns a GetHashFunc that walks backward from ref through
// chain, caching nothing itself: each call is at most a 256-block walk,
// bounded by the BLOCKHASH opcode's own lookback window (§4.4).
func GetHashFn(ref *types.Header, chain ChainContext) vm.GetHashFunc {
	return func(n uint64) common.Hash {
		if chain == nil {
			return common.Hash{}
		}
		number := ref.Number.Uint64()
		if n >= number {
			return common.Hash{}
		}
		hash := ref.ParentHash
		for h := number - 1; h > n; h-- {
			header := chain.GetHeader(hash, h)
			if header == nil {
				return common.Hash{}
			}
			hash = header.ParentHash
		}
		return hash
	}
}

// CanTransfer reports whether addr's balance can cover amount.
func CanTransfer(db *state.StateDB, addr common.Address, amount *uint256.Int) bool {
	return db.GetAccount(addr).Balance.Cmp(amount) >= 0
}

// Transfer moves amount from sender to recipient. It never errors: the
// caller (vm.EVM.Call/Create) is responsible for checking CanTransfer
// first (§4.4 scenario: CALL with insufficient value reverts before
// transfer is ever invoked).
func Transfer(db *state.StateDB, sender, recipient common.Address, amount *uint256.Int) {
	senderBalance := db.GetAccount(sender).Balance
	db.SetBalance(sender, new(uint256.Int).Sub(senderBalance, amount))
	recipientBalance := db.GetAccount(recipient).Balance
	db.SetBalance(recipient, new(uint256.Int).Add(recipientBalance, amount))
}

func excessBlobGasToBaseFee(header *types.Header) *uint256.Int {
	if header.ExcessBlobGas == nil {
		return nil
	}
	return blobBaseFee(*header.ExcessBlobGas)
}
