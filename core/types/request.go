package types

import "github.com/ethcore/execevm/common"

// Request type prefixes for the EIP-7685 general-purpose requests
// mechanism, each produced by the block executor per §4.6 step 5.
const (
	DepositRequestType        byte = 0x00
	WithdrawalRequestType     byte = 0x01
	ConsolidationRequestType  byte = 0x02
)

// DepositRequest mirrors the deposit-contract log layout.
type DepositRequest struct {
	Pubkey                [48]byte
	WithdrawalCredentials common.Hash
	Amount                uint64
	Signature             [96]byte
	Index                 uint64
}

// WithdrawalRequest is produced by the withdrawal-request predeploy
// (§4.7 Withdrawal requests predeploy).
type WithdrawalRequest struct {
	SourceAddress   common.Address
	ValidatorPubkey [48]byte
	Amount          uint64
}

// ConsolidationRequest is produced by the consolidation predeploy.
type ConsolidationRequest struct {
	SourceAddress    common.Address
	SourcePubkey     [48]byte
	TargetPubkey     [48]byte
}

// EncodedRequests is a single EIP-7685 request: a type byte followed by the
// request's SSZ/ABI-defined payload, as emitted into the block's requests list.
type EncodedRequests struct {
	Type byte
	Data []byte
}
