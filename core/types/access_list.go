package types

import "github.com/ethcore/execevm/common"

// AccessTuple is one (address, storage keys) entry of an EIP-2930 access
// list, pre-warming the address and each key for gas-cost purposes (§6).
type AccessTuple struct {
	Address     common.Address
	StorageKeys []common.Hash
}

// AccessList is the transaction-carried or substate-derived warm set.
type AccessList []AccessTuple

// StorageKeys returns the number of storage keys across the whole list,
// used by intrinsic-gas accounting (EIP-2930).
func (al AccessList) StorageKeys() int {
	n := 0
	for _, t := range al {
		n += len(t.StorageKeys)
	}
	return n
}
