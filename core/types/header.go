package types

import (
	"github.com/ethcore/execevm/common"
	"github.com/holiman/uint256"
)

// Header is the subset of block-header fields the execution core reads to
// build the Environment (§3 Environment) and the subset it must reproduce
// when comparing against the declared state/receipt/BAL hashes (§8).
type Header struct {
	ParentHash  common.Hash
	Coinbase    common.Address
	Root        common.Hash // state root
	TxHash      common.Hash
	ReceiptHash common.Hash
	Bloom       Bloom
	Difficulty  *uint256.Int
	Number      *uint256.Int
	GasLimit    uint64
	GasUsed     uint64
	Time        uint64
	Extra       []byte
	MixDigest   common.Hash // post-Merge: PREVRANDAO
	Nonce       [8]byte

	BaseFee *uint256.Int // EIP-1559

	WithdrawalsHash *common.Hash // EIP-4895

	BlobGasUsed   *uint64 // EIP-4844
	ExcessBlobGas *uint64 // EIP-4844

	ParentBeaconBlockRoot *common.Hash // EIP-4788

	RequestsHash *common.Hash // EIP-7685

	BlockAccessListHash *common.Hash // EIP-7928, Amsterdam+
}

// IsMerge reports whether this header is past the Paris transition; the
// core treats this as always true (PoW-era difficulty handling is a
// non-goal of this specification).
func (h *Header) IsMerge() bool { return true }
