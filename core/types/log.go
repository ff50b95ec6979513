package types

import (
	"github.com/ethcore/execevm/common"
	"github.com/ethcore/execevm/rlp"
	"github.com/holiman/uint256"
)

// Log is a single LOG0..LOG4 event, plus the EIP-7708 ETH-transfer variant
// synthesized by the VM (not emitted by contract code) when value moves.
type Log struct {
	Address common.Address
	Topics  []common.Hash
	Data    []byte

	// Indexing metadata, not part of the consensus encoding; filled in by
	// the block executor for receipt/eth_getLogs consumers.
	BlockNumber uint64
	TxHash      common.Hash
	TxIndex     uint
	Index       uint
	Removed     bool
}

// TransferLogTopic is the synthetic topic under which EIP-7708 native ETH
// transfer logs are emitted: Transfer(address indexed from, address indexed
// to, uint256 value), keccak256("Transfer(address,address,uint256)").
var TransferLogTopic = common.HexToHash("0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef")

// NewTransferLog builds the EIP-7708 synthetic transfer log for a value
// movement from `from` to `to` (§4.4 Calls, §4.4 Self-destruct, scenario 6).
func NewTransferLog(from, to common.Address, value *uint256.Int) *Log {
	return &Log{
		Address: from,
		Topics:  []common.Hash{TransferLogTopic, from.Hash(), to.Hash()},
		Data:    value.Bytes32()[:],
	}
}

// EncodeRLP writes the consensus subset of Log (no indexing metadata).
func (l *Log) EncodeRLP() ([]byte, error) {
	topics := make(rlp.List, len(l.Topics))
	for i, t := range l.Topics {
		topics[i] = t.Bytes()
	}
	return rlp.EncodeToBytes(rlp.List{
		l.Address.Bytes(),
		topics,
		l.Data,
	})
}
