package types

import (
	"github.com/ethcore/execevm/common"
	"github.com/ethcore/execevm/rlp"
	"github.com/holiman/uint256"
)

// Receipt statuses.
const (
	ReceiptStatusFailed     = uint64(0)
	ReceiptStatusSuccessful = uint64(1)
)

// Receipt is the post-execution record of one transaction: status,
// cumulative gas, logs and their bloom, per the type-prefixed envelope of
// its transaction (§6 RLP encodings: 0x01/0x02/0x03/0x04).
type Receipt struct {
	Type              byte
	PostState         []byte // pre-Byzantium only; nil afterward
	Status            uint64
	CumulativeGasUsed uint64
	Bloom             Bloom
	Logs              []*Log

	// Non-consensus bookkeeping, set by the block executor.
	TxHash            common.Hash
	ContractAddress   common.Address
	GasUsed           uint64
	EffectiveGasPrice *uint256.Int
	BlockHash         common.Hash
	BlockNumber       *uint256.Int
	TransactionIndex  uint
}

// statusEncoding returns the field RLP encodes in the "state root or
// status" slot: PostState pre-Byzantium, the status code afterward.
func (r *Receipt) statusEncoding() []byte {
	if len(r.PostState) > 0 {
		return r.PostState
	}
	if r.Status == ReceiptStatusSuccessful {
		return []byte{0x01}
	}
	return nil
}

// rlpData is the consensus payload common to every receipt type; callers
// prefix it with the type byte for typed envelopes per EIP-2718.
func (r *Receipt) rlpData() rlp.List {
	logs := make(rlp.List, len(r.Logs))
	for i, l := range r.Logs {
		logs[i] = l
	}
	return rlp.List{
		r.statusEncoding(),
		r.CumulativeGasUsed,
		r.Bloom.Bytes(),
		logs,
	}
}

// EncodeRLP writes the receipt in its type-prefixed envelope: the legacy
// (type 0) shape is a bare RLP list; typed receipts (0x01/0x02/0x03/0x04)
// prepend the type byte to the RLP-encoded list, per EIP-2718.
func (r *Receipt) EncodeRLP() ([]byte, error) {
	body, err := rlp.EncodeToBytes(r.rlpData())
	if err != nil {
		return nil, err
	}
	if r.Type == 0 {
		return body, nil
	}
	return append([]byte{r.Type}, body...), nil
}

// Receipts is a list of receipts, used to derive the block-level bloom and
// the receipts trie root.
type Receipts []*Receipt

// Bloom returns the OR of every receipt's individual bloom.
func (rs Receipts) Bloom() Bloom {
	var bl Bloom
	for _, r := range rs {
		for i := range bl {
			bl[i] |= r.Bloom[i]
		}
	}
	return bl
}
