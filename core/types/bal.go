package types

import (
	"github.com/ethcore/execevm/common"
	"github.com/ethcore/execevm/crypto"
	"github.com/ethcore/execevm/rlp"
	"github.com/holiman/uint256"
)

// StorageChange is one (transaction index, post-value) write to a single
// storage slot, as recorded by the BAL recorder (§4.8).
type StorageChange struct {
	TxIndex  uint16
	NewValue common.Hash
}

// StorageSlotChanges collects the writes observed for a single slot of one
// account across the block, sorted by TxIndex (§6 RLP encodings).
type StorageSlotChanges struct {
	Slot    common.Hash
	Changes []StorageChange
}

// BalanceChange is one (transaction index, post-balance) entry.
type BalanceChange struct {
	TxIndex     uint16
	PostBalance *uint256.Int
}

// NonceChange is one (transaction index, post-nonce) entry.
type NonceChange struct {
	TxIndex  uint16
	NewNonce uint64
}

// CodeChange is one (transaction index, new-code) entry — only ever
// produced by EIP-7702 delegation installs and CREATE/CREATE2 deploys.
type CodeChange struct {
	TxIndex uint16
	NewCode []byte
}

// AccountChanges is the per-address record inside a BlockAccessList:
// every storage/balance/nonce/code observation for one touched account.
type AccountChanges struct {
	Address        common.Address
	StorageChanges []StorageSlotChanges
	StorageReads   []common.Hash
	BalanceChanges []BalanceChange
	NonceChanges   []NonceChange
	CodeChanges    []CodeChange
}

// BlockAccessList is the EIP-7928 per-block access record, sorted by
// address in the outer list (§6, §4.8).
type BlockAccessList []AccountChanges

// EncodeRLP writes the BAL in the exact consensus shape of §6:
// outer list of RLP([address, storage_changes, storage_reads,
// balance_changes, nonce_changes, code_changes]).
func (bal BlockAccessList) EncodeRLP() ([]byte, error) {
	items := make(rlp.List, len(bal))
	for i, ac := range bal {
		storageChanges := make(rlp.List, len(ac.StorageChanges))
		for j, sc := range ac.StorageChanges {
			changes := make(rlp.List, len(sc.Changes))
			for k, c := range sc.Changes {
				changes[k] = rlp.List{uint64(c.TxIndex), c.NewValue.Bytes()}
			}
			storageChanges[j] = rlp.List{sc.Slot.Bytes(), changes}
		}
		reads := make(rlp.List, len(ac.StorageReads))
		for j, r := range ac.StorageReads {
			reads[j] = r.Bytes()
		}
		balChanges := make(rlp.List, len(ac.BalanceChanges))
		for j, b := range ac.BalanceChanges {
			balChanges[j] = rlp.List{uint64(b.TxIndex), b.PostBalance.ToBig()}
		}
		nonceChanges := make(rlp.List, len(ac.NonceChanges))
		for j, n := range ac.NonceChanges {
			nonceChanges[j] = rlp.List{uint64(n.TxIndex), n.NewNonce}
		}
		codeChanges := make(rlp.List, len(ac.CodeChanges))
		for j, c := range ac.CodeChanges {
			codeChanges[j] = rlp.List{uint64(c.TxIndex), []byte(c.NewCode)}
		}
		items[i] = rlp.List{
			ac.Address.Bytes(),
			storageChanges,
			reads,
			balChanges,
			nonceChanges,
			codeChanges,
		}
	}
	return rlp.EncodeToBytes(rlp.List(items))
}

// Hash returns keccak(RLP(BAL)), compared against the declared BAL hash in
// the block header on Amsterdam+ (§8 Testable properties).
func (bal BlockAccessList) Hash() (common.Hash, error) {
	enc, err := bal.EncodeRLP()
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(enc), nil
}

// EmptyBALHash is the sentinel hash of an empty BlockAccessList (§6: "the
// empty BAL hashes to a fixed sentinel constant").
var EmptyBALHash = func() common.Hash {
	h, _ := BlockAccessList{}.Hash()
	return h
}()
