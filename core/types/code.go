package types

import (
	"github.com/ethcore/execevm/common"
	"github.com/ethcore/execevm/crypto"
)

// Code is an immutable contract bytecode blob addressed by its keccak hash.
type Code []byte

// Hash returns keccak256(code), the value stored as an account's code hash.
func (c Code) Hash() [32]byte {
	var h [32]byte
	copy(h[:], crypto.Keccak256(c))
	return h
}

// DelegationPrefix is the 3-byte marker an EIP-7702 delegation designator
// begins with: 0xEF0100 || address (§3 Code, §4.4 EXT* opcodes).
var DelegationPrefix = []byte{0xEF, 0x01, 0x00}

// DelegationLength is the total byte length of a delegation designator.
const DelegationLength = len(DelegationPrefix) + 20

// ParseDelegation reports whether code is an EIP-7702 delegation designator
// and, if so, returns the delegate address it points to.
func ParseDelegation(code []byte) (addr common.Address, ok bool) {
	if len(code) != DelegationLength {
		return addr, false
	}
	for i, b := range DelegationPrefix {
		if code[i] != b {
			return addr, false
		}
	}
	copy(addr[:], code[len(DelegationPrefix):])
	return addr, true
}

// AddressToDelegation builds the delegation designator code for addr.
func AddressToDelegation(addr common.Address) []byte {
	out := make([]byte, 0, DelegationLength)
	out = append(out, DelegationPrefix...)
	out = append(out, addr.Bytes()...)
	return out
}
