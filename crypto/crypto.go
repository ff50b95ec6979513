// Package crypto provides the hashing and signature primitives the core
// needs: keccak-256 (account/code addressing, CREATE2, LOG topics) and
// secp256k1 recovery (transaction sender recovery, the ECRECOVER precompile).
package crypto

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"errors"
	"fmt"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/ethcore/execevm/common"
	"github.com/ethcore/execevm/rlp"
	"github.com/holiman/uint256"
)

const (
	DigestLength  = 32
	SignatureLength = 64 + 1 // r || s || v
	RecoveryIDOffset = 64
)

var (
	secp256k1N  = new(uint256.Int).SetBytes(common.FromHex("0xfffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141"))
	secp256k1HalfN = new(uint256.Int).Rsh(secp256k1N, 1)
)

// Keccak256 computes the keccak256 hash of the concatenated inputs.
func Keccak256(data ...[]byte) []byte {
	d := NewLegacyKeccak256()
	for _, b := range data {
		d.Write(b)
	}
	return d.Sum(nil)
}

// Keccak256Hash computes the keccak256 hash and wraps it as a common.Hash.
func Keccak256Hash(data ...[]byte) (h common.Hash) {
	d := NewLegacyKeccak256()
	for _, b := range data {
		d.Write(b)
	}
	d.Sum(h[:0])
	return h
}

// EmptyCodeHash is keccak256("") — the code hash of an account with no code.
var EmptyCodeHash = Keccak256Hash(nil)

// CreateAddress derives the contract address produced by CREATE: the
// low-order 20 bytes of keccak256(rlp([sender, nonce])).
func CreateAddress(b common.Address, nonce uint64) common.Address {
	data, err := rlp.EncodeToBytes(rlp.List{b.Bytes(), nonce})
	if err != nil {
		panic(err)
	}
	return common.BytesToAddress(Keccak256(data)[12:])
}

// CreateAddress2 derives the contract address produced by CREATE2: the
// low-order 20 bytes of keccak256(0xff || sender || salt || keccak256(initcode)).
func CreateAddress2(b common.Address, salt [32]byte, inithash []byte) common.Address {
	input := make([]byte, 0, 1+20+32+32)
	input = append(input, 0xff)
	input = append(input, b.Bytes()...)
	input = append(input, salt[:]...)
	input = append(input, Keccak256(inithash)...)
	return common.BytesToAddress(Keccak256(input)[12:])
}

// ValidateSignatureValues checks that r, s and (for pre-homestead callers,
// v) form a value accepted under EIP-2 (s must be in the lower half of the
// curve order) and EIP-155 v encoding is left to the caller.
func ValidateSignatureValues(v byte, r, s *uint256.Int, homestead bool) bool {
	if r.IsZero() || s.IsZero() {
		return false
	}
	if r.Gt(secp256k1N) || s.Gt(secp256k1N) {
		return false
	}
	if homestead && s.Gt(secp256k1HalfN) {
		return false
	}
	return v == 0 || v == 1
}

// Ecrecover returns the uncompressed public key (65 bytes, 0x04 prefix)
// that produced the given 65-byte [R || S || V] signature over hash.
func Ecrecover(hash, sig []byte) ([]byte, error) {
	pub, err := sigToPub(hash, sig)
	if err != nil {
		return nil, err
	}
	return elliptic.Marshal(secp256k1.S256(), pub.X, pub.Y), nil
}

// SigToPub returns the public key that created the given signature.
func SigToPub(hash, sig []byte) (*ecdsa.PublicKey, error) {
	return sigToPub(hash, sig)
}

func sigToPub(hash, sig []byte) (*ecdsa.PublicKey, error) {
	if len(sig) != SignatureLength {
		return nil, errors.New("invalid signature length")
	}
	// secp256k1.RecoverCompact expects [recid || r || s] ordering.
	btcsig := make([]byte, SignatureLength)
	btcsig[0] = sig[RecoveryIDOffset] + 27
	copy(btcsig[1:], sig)
	pub, _, err := secp256k1.RecoverCompact(btcsig, hash)
	if err != nil {
		return nil, fmt.Errorf("crypto: recover failed: %w", err)
	}
	return pub.ToECDSA(), nil
}

// PubkeyToAddress derives the 20-byte address from an uncompressed public key:
// the low-order 20 bytes of keccak256 of the 64-byte X||Y encoding.
func PubkeyToAddress(p ecdsa.PublicKey) common.Address {
	pubBytes := elliptic.Marshal(secp256k1.S256(), p.X, p.Y)
	return common.BytesToAddress(Keccak256(pubBytes[1:])[12:])
}

// Sign produces a 65-byte [R || S || V] signature over hash using prv.
func Sign(hash []byte, prv *ecdsa.PrivateKey) ([]byte, error) {
	if len(hash) != DigestLength {
		return nil, fmt.Errorf("hash is required to be exactly %d bytes (%d)", DigestLength, len(hash))
	}
	var priv secp256k1.PrivateKey
	d := new(big.Int).Set(prv.D)
	db := d.Bytes()
	var padded [32]byte
	copy(padded[32-len(db):], db)
	priv.Key.SetByteSlice(padded[:])
	sig := secp256k1.SignCompact(&priv, hash, false)
	// secp256k1.SignCompact returns [recid+27 || r || s]; re-pack to [r||s||v].
	out := make([]byte, SignatureLength)
	copy(out, sig[1:])
	out[RecoveryIDOffset] = sig[0] - 27
	return out, nil
}
