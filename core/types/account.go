package types

import (
	"github.com/ethcore/execevm/common"
	"github.com/ethcore/execevm/crypto"
	"github.com/ethcore/execevm/rlp"
	"github.com/holiman/uint256"
)

// EmptyRootHash is the keccak-256 hash of RLP-encoded nil, the storage root
// of an account with no storage.
var EmptyRootHash = common.HexToHash("0x56e81f171bcc55a6ff8345e692c0f86e5b48e01b996cadc001622fb5e363b421")

// EmptyCodeHash is keccak256(""), the code hash of an account with no code.
var EmptyCodeHash = crypto.EmptyCodeHash

// Account is the consensus representation of an Ethereum account:
// nonce, balance, storage root and code hash (§3 Account).
type Account struct {
	Nonce       uint64
	Balance     *uint256.Int
	StorageRoot common.Hash
	CodeHash    []byte
}

// NewEmptyAccount returns the account an address has before its first write:
// zero nonce and balance, the empty storage trie, and no code.
func NewEmptyAccount() *Account {
	return &Account{
		Balance:     new(uint256.Int),
		StorageRoot: EmptyRootHash,
		CodeHash:    EmptyCodeHash.Bytes(),
	}
}

// Empty reports whether the account satisfies EIP-161's definition of an
// empty account: zero nonce, zero balance, and no code.
func (a *Account) Empty() bool {
	return a.Nonce == 0 && (a.Balance == nil || a.Balance.IsZero()) && len(a.CodeHash) > 0 &&
		common.BytesToHash(a.CodeHash) == EmptyCodeHash
}

// Copy returns a deep copy suitable for storing in the original-value cache.
func (a *Account) Copy() *Account {
	cp := &Account{
		Nonce:       a.Nonce,
		StorageRoot: a.StorageRoot,
		CodeHash:    common.CopyBytes(a.CodeHash),
	}
	if a.Balance != nil {
		cp.Balance = new(uint256.Int).Set(a.Balance)
	} else {
		cp.Balance = new(uint256.Int)
	}
	return cp
}

// EncodeRLP writes the account in its consensus shape:
// RLP([nonce, balance, storage_root, code_hash]) (§6 RLP encodings).
func (a *Account) EncodeRLP() ([]byte, error) {
	return rlp.EncodeToBytes(rlp.List{
		a.Nonce,
		a.Balance.ToBig(),
		a.StorageRoot.Bytes(),
		a.CodeHash,
	})
}

// DecodeAccountRLP parses the consensus account encoding.
func DecodeAccountRLP(data []byte) (*Account, error) {
	s := rlp.NewStream(data)
	if _, err := s.List(); err != nil {
		return nil, err
	}
	nonce, err := s.Uint()
	if err != nil {
		return nil, err
	}
	balBytes, err := s.Bytes()
	if err != nil {
		return nil, err
	}
	root, err := s.Bytes()
	if err != nil {
		return nil, err
	}
	codeHash, err := s.Bytes()
	if err != nil {
		return nil, err
	}
	if err := s.ListEnd(); err != nil {
		return nil, err
	}
	return &Account{
		Nonce:       nonce,
		Balance:     new(uint256.Int).SetBytes(balBytes),
		StorageRoot: common.BytesToHash(root),
		CodeHash:    codeHash,
	}, nil
}
