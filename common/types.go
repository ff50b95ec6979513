// Package common holds the value types shared by every layer of the
// execution core: fixed-size addresses and hashes, and conversions
// between them and the 256-bit words used by the stack and storage.
package common

import (
	"encoding/hex"
	"fmt"

	"github.com/holiman/uint256"
)

const (
	// HashLength is the expected length of a keccak-256 hash.
	HashLength = 32
	// AddressLength is the expected length of an Ethereum account address.
	AddressLength = 20
)

// Hash represents a 32 byte keccak-256 hash.
type Hash [HashLength]byte

// BytesToHash sets b to hash, left-padding it if b is shorter than HashLength
// and cropping from the left if it is longer.
func BytesToHash(b []byte) Hash {
	var h Hash
	h.SetBytes(b)
	return h
}

// SetBytes sets the hash to the value of b, left-padding / truncating as needed.
func (h *Hash) SetBytes(b []byte) {
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
}

// Bytes returns the raw, unpadded bytes of the hash.
func (h Hash) Bytes() []byte { return h[:] }

// Big converts the hash to a uint256 word.
func (h Hash) Big() *uint256.Int {
	return new(uint256.Int).SetBytes(h[:])
}

func (h Hash) String() string { return "0x" + hex.EncodeToString(h[:]) }

// Cmp compares two hashes lexicographically.
func (h Hash) Cmp(other Hash) int {
	for i := range h {
		if h[i] != other[i] {
			if h[i] < other[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// IsZero reports whether the hash is the zero value.
func (h Hash) IsZero() bool { return h == Hash{} }

// Address represents the 20 byte address of an Ethereum account.
type Address [AddressLength]byte

// BytesToAddress sets b to address, left-padding it if b is shorter than
// AddressLength and cropping from the left if it is longer.
func BytesToAddress(b []byte) Address {
	var a Address
	a.SetBytes(b)
	return a
}

// SetBytes sets the address to the value of b, left-padding / truncating as needed.
func (a *Address) SetBytes(b []byte) {
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
}

// Bytes returns the raw 20 bytes of the address.
func (a Address) Bytes() []byte { return a[:] }

// Hash returns the address left-padded to 32 bytes, as used by CALLDATA/LOG topics.
func (a Address) Hash() Hash { return BytesToHash(a[:]) }

func (a Address) String() string { return "0x" + hex.EncodeToString(a[:]) }

// Cmp compares two addresses lexicographically.
func (a Address) Cmp(other Address) int {
	for i := range a {
		if a[i] != other[i] {
			if a[i] < other[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// IsZero reports whether the address is the zero value.
func (a Address) IsZero() bool { return a == Address{} }

// HexToAddress parses a hex string (with or without 0x prefix) into an Address.
func HexToAddress(s string) Address {
	return BytesToAddress(FromHex(s))
}

// HexToHash parses a hex string (with or without 0x prefix) into a Hash.
func HexToHash(s string) Hash {
	return BytesToHash(FromHex(s))
}

// FromHex decodes a hex string, tolerating an optional 0x/0X prefix and an
// odd number of digits (as zero-padded on the left).
func FromHex(s string) []byte {
	if len(s) >= 2 && (s[0:2] == "0x" || s[0:2] == "0X") {
		s = s[2:]
	}
	if len(s)%2 == 1 {
		s = "0" + s
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(fmt.Sprintf("common: invalid hex string %q: %v", s, err))
	}
	return b
}

// CopyBytes returns an exact copy of the provided byte slice.
func CopyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	return cp
}

// LeftPadBytes zero-pads b on the left up to length l.
func LeftPadBytes(b []byte, l int) []byte {
	if l <= len(b) {
		return b
	}
	out := make([]byte, l)
	copy(out[l-len(b):], b)
	return out
}

// RightPadBytes zero-pads b on the right up to length l.
func RightPadBytes(b []byte, l int) []byte {
	if l <= len(b) {
		return b
	}
	out := make([]byte, l)
	copy(out, b)
	return out
}
