package crypto

import (
	"hash"

	"golang.org/x/crypto/sha3"
)

// KeccakState wraps sha3.state to allow Read to get a variable amount of
// data from the hash state. Read is faster than Sum because it doesn't copy
// the internal state, but also modifies the internal state.
type KeccakState interface {
	hash.Hash
	Read([]byte) (int, error)
}

// NewLegacyKeccak256 returns a new keccak256 hasher in its legacy (pre
// standardization) configuration, as used throughout Ethereum.
func NewLegacyKeccak256() KeccakState {
	return sha3.NewLegacyKeccak256().(KeccakState)
}
