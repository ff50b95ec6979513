package types

import (
	"errors"

	"github.com/ethcore/execevm/common"
	"github.com/ethcore/execevm/crypto"
	"github.com/ethcore/execevm/rlp"
	"github.com/holiman/uint256"
)

// Transaction type bytes, per EIP-2718's typed-envelope scheme (§6).
const (
	LegacyTxType     = 0x00
	AccessListTxType = 0x01 // EIP-2930
	DynamicFeeTxType = 0x02 // EIP-1559
	BlobTxType       = 0x03 // EIP-4844
	SetCodeTxType    = 0x04 // EIP-7702
)

var (
	ErrInvalidTxType  = errors.New("types: transaction type not supported")
	ErrTxTypeNotSigner = errors.New("types: transaction type does not match signer")
)

// Authorization is one EIP-7702 authorization-list entry: a signed
// statement that an EOA's code should delegate to `Address`.
type Authorization struct {
	ChainID uint64
	Address common.Address
	Nonce   uint64
	V       uint8
	R, S    *uint256.Int
}

// Authority recovers the EOA that signed this authorization tuple.
func (a *Authorization) Authority() (common.Address, error) {
	body, err := rlp.EncodeToBytes(rlp.List{a.ChainID, a.Address.Bytes(), a.Nonce})
	if err != nil {
		return common.Address{}, err
	}
	sighash := crypto.Keccak256Hash(append([]byte{SetCodeTxType}, body...))
	sig := make([]byte, 65)
	rb := a.R.Bytes32()
	sb := a.S.Bytes32()
	copy(sig[0:32], rb[:])
	copy(sig[32:64], sb[:])
	sig[64] = a.V
	pub, err := crypto.SigToPub(sighash[:], sig)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// TxData is the set of fields specific to one transaction type; Transaction
// wraps a TxData and adds the type byte and cached hash/signer.
type TxData interface {
	txType() byte
	copy() TxData

	chainID() uint64
	accessList() AccessList
	data() []byte
	gas() uint64
	gasPrice() *uint256.Int
	gasTipCap() *uint256.Int
	gasFeeCap() *uint256.Int
	value() *uint256.Int
	nonce() uint64
	to() *common.Address

	rawSignatureValues() (v, r, s *uint256.Int)
	setSignatureValues(chainID, v, r, s *uint256.Int)
}

// Transaction is the type-erased envelope around one of the TxData shapes.
type Transaction struct {
	inner TxData
	hash  *common.Hash
}

func NewTx(inner TxData) *Transaction { return &Transaction{inner: inner.copy()} }

func (tx *Transaction) Type() byte               { return tx.inner.txType() }
func (tx *Transaction) ChainId() uint64          { return tx.inner.chainID() }
func (tx *Transaction) Data() []byte             { return tx.inner.data() }
func (tx *Transaction) Gas() uint64              { return tx.inner.gas() }
func (tx *Transaction) GasPrice() *uint256.Int   { return tx.inner.gasPrice() }
func (tx *Transaction) GasTipCap() *uint256.Int  { return tx.inner.gasTipCap() }
func (tx *Transaction) GasFeeCap() *uint256.Int  { return tx.inner.gasFeeCap() }
func (tx *Transaction) Value() *uint256.Int      { return tx.inner.value() }
func (tx *Transaction) Nonce() uint64            { return tx.inner.nonce() }
func (tx *Transaction) To() *common.Address      { return tx.inner.to() }
func (tx *Transaction) AccessList() AccessList   { return tx.inner.accessList() }

// EffectiveGasTip returns min(gasTipCap, gasFeeCap - baseFee), the priority
// fee actually paid to the coinbase under EIP-1559.
func (tx *Transaction) EffectiveGasTip(baseFee *uint256.Int) *uint256.Int {
	if tx.Type() == LegacyTxType || tx.Type() == AccessListTxType {
		return tx.GasPrice()
	}
	if baseFee == nil {
		return tx.GasTipCap()
	}
	feeCapMinusBase := new(uint256.Int).Sub(tx.GasFeeCap(), baseFee)
	if tx.GasTipCap().Cmp(feeCapMinusBase) > 0 {
		return feeCapMinusBase
	}
	return tx.GasTipCap()
}

// EffectiveGasPrice is baseFee + EffectiveGasTip, capped by gasFeeCap.
func (tx *Transaction) EffectiveGasPrice(baseFee *uint256.Int) *uint256.Int {
	if tx.Type() == LegacyTxType || tx.Type() == AccessListTxType || baseFee == nil {
		return tx.GasPrice()
	}
	return new(uint256.Int).Add(baseFee, tx.EffectiveGasTip(baseFee))
}

// WithSignature returns a copy of tx with the given 65-byte [R || S || V]
// signature (as produced by crypto.Sign over tx.SigningHash(chainID))
// installed as its v/r/s fields, encoding v per the transaction type's
// own convention (EIP-155 replay protection for legacy, bare recovery id
// otherwise) — the inverse of Sender's decoding.
func (tx *Transaction) WithSignature(chainID uint64, sig []byte) (*Transaction, error) {
	if len(sig) != 65 {
		return nil, errors.New("types: signature must be 65 bytes long")
	}
	r := new(uint256.Int).SetBytes(sig[0:32])
	s := new(uint256.Int).SetBytes(sig[32:64])
	recoveryID := uint64(sig[64])

	var v *uint256.Int
	if tx.Type() == LegacyTxType {
		if chainID == 0 {
			v = new(uint256.Int).SetUint64(recoveryID + 27)
		} else {
			v = new(uint256.Int).SetUint64(recoveryID + chainID*2 + 35)
		}
	} else {
		v = new(uint256.Int).SetUint64(recoveryID)
	}

	cp := &Transaction{inner: tx.inner.copy()}
	cp.inner.setSignatureValues(chainID, v, r, s)
	return cp, nil
}

// BlobTxSidecar is carried alongside (not inside) a type-3 transaction's
// consensus envelope. It holds only the blob versioned hashes; blobs,
// commitments and proofs are not kept.
type BlobTxSidecar struct {
	BlobHashes []common.Hash
}

// LegacyTx is the pre-EIP-2718 transaction shape.
type LegacyTx struct {
	Nonce    uint64
	GasPrice *uint256.Int
	Gas      uint64
	To       *common.Address
	Value    *uint256.Int
	Data     []byte
	V, R, S  *uint256.Int
}

func (tx *LegacyTx) txType() byte             { return LegacyTxType }
func (tx *LegacyTx) chainID() uint64          { return 0 }
func (tx *LegacyTx) accessList() AccessList   { return nil }
func (tx *LegacyTx) data() []byte             { return tx.Data }
func (tx *LegacyTx) gas() uint64              { return tx.Gas }
func (tx *LegacyTx) gasPrice() *uint256.Int   { return tx.GasPrice }
func (tx *LegacyTx) gasTipCap() *uint256.Int  { return tx.GasPrice }
func (tx *LegacyTx) gasFeeCap() *uint256.Int  { return tx.GasPrice }
func (tx *LegacyTx) value() *uint256.Int      { return tx.Value }
func (tx *LegacyTx) nonce() uint64            { return tx.Nonce }
func (tx *LegacyTx) to() *common.Address      { return tx.To }
func (tx *LegacyTx) rawSignatureValues() (v, r, s *uint256.Int) { return tx.V, tx.R, tx.S }
func (tx *LegacyTx) setSignatureValues(chainID, v, r, s *uint256.Int) { tx.V, tx.R, tx.S = v, r, s }
func (tx *LegacyTx) copy() TxData {
	cp := *tx
	return &cp
}

// AccessListTx is the EIP-2930 transaction shape.
type AccessListTx struct {
	ChainID    uint64
	Nonce      uint64
	GasPrice   *uint256.Int
	Gas        uint64
	To         *common.Address
	Value      *uint256.Int
	Data       []byte
	AccessList AccessList
	V, R, S    *uint256.Int
}

func (tx *AccessListTx) txType() byte             { return AccessListTxType }
func (tx *AccessListTx) chainID() uint64          { return tx.ChainID }
func (tx *AccessListTx) accessList() AccessList   { return tx.AccessList }
func (tx *AccessListTx) data() []byte             { return tx.Data }
func (tx *AccessListTx) gas() uint64              { return tx.Gas }
func (tx *AccessListTx) gasPrice() *uint256.Int   { return tx.GasPrice }
func (tx *AccessListTx) gasTipCap() *uint256.Int  { return tx.GasPrice }
func (tx *AccessListTx) gasFeeCap() *uint256.Int  { return tx.GasPrice }
func (tx *AccessListTx) value() *uint256.Int      { return tx.Value }
func (tx *AccessListTx) nonce() uint64            { return tx.Nonce }
func (tx *AccessListTx) to() *common.Address      { return tx.To }
func (tx *AccessListTx) rawSignatureValues() (v, r, s *uint256.Int) { return tx.V, tx.R, tx.S }
func (tx *AccessListTx) setSignatureValues(chainID, v, r, s *uint256.Int) { tx.V, tx.R, tx.S = v, r, s }
func (tx *AccessListTx) copy() TxData {
	cp := *tx
	return &cp
}

// DynamicFeeTx is the EIP-1559 transaction shape.
type DynamicFeeTx struct {
	ChainID    uint64
	Nonce      uint64
	GasTipCap  *uint256.Int
	GasFeeCap  *uint256.Int
	Gas        uint64
	To         *common.Address
	Value      *uint256.Int
	Data       []byte
	AccessList AccessList
	V, R, S    *uint256.Int
}

func (tx *DynamicFeeTx) txType() byte             { return DynamicFeeTxType }
func (tx *DynamicFeeTx) chainID() uint64          { return tx.ChainID }
func (tx *DynamicFeeTx) accessList() AccessList   { return tx.AccessList }
func (tx *DynamicFeeTx) data() []byte             { return tx.Data }
func (tx *DynamicFeeTx) gas() uint64              { return tx.Gas }
func (tx *DynamicFeeTx) gasPrice() *uint256.Int   { return tx.GasFeeCap }
func (tx *DynamicFeeTx) gasTipCap() *uint256.Int  { return tx.GasTipCap }
func (tx *DynamicFeeTx) gasFeeCap() *uint256.Int  { return tx.GasFeeCap }
func (tx *DynamicFeeTx) value() *uint256.Int      { return tx.Value }
func (tx *DynamicFeeTx) nonce() uint64            { return tx.Nonce }
func (tx *DynamicFeeTx) to() *common.Address      { return tx.To }
func (tx *DynamicFeeTx) rawSignatureValues() (v, r, s *uint256.Int) { return tx.V, tx.R, tx.S }
func (tx *DynamicFeeTx) setSignatureValues(chainID, v, r, s *uint256.Int) { tx.V, tx.R, tx.S = v, r, s }
func (tx *DynamicFeeTx) copy() TxData {
	cp := *tx
	return &cp
}

// BlobTx is the EIP-4844 transaction shape; To is never nil (blob txs
// cannot be contract creations).
type BlobTx struct {
	ChainID    uint64
	Nonce      uint64
	GasTipCap  *uint256.Int
	GasFeeCap  *uint256.Int
	Gas        uint64
	To         common.Address
	Value      *uint256.Int
	Data       []byte
	AccessList AccessList
	BlobFeeCap *uint256.Int
	BlobHashes []common.Hash
	Sidecar    *BlobTxSidecar
	V, R, S    *uint256.Int
}

func (tx *BlobTx) txType() byte             { return BlobTxType }
func (tx *BlobTx) chainID() uint64          { return tx.ChainID }
func (tx *BlobTx) accessList() AccessList   { return tx.AccessList }
func (tx *BlobTx) data() []byte             { return tx.Data }
func (tx *BlobTx) gas() uint64              { return tx.Gas }
func (tx *BlobTx) gasPrice() *uint256.Int   { return tx.GasFeeCap }
func (tx *BlobTx) gasTipCap() *uint256.Int  { return tx.GasTipCap }
func (tx *BlobTx) gasFeeCap() *uint256.Int  { return tx.GasFeeCap }
func (tx *BlobTx) value() *uint256.Int      { return tx.Value }
func (tx *BlobTx) nonce() uint64            { return tx.Nonce }
func (tx *BlobTx) to() *common.Address      { addr := tx.To; return &addr }
func (tx *BlobTx) rawSignatureValues() (v, r, s *uint256.Int) { return tx.V, tx.R, tx.S }
func (tx *BlobTx) setSignatureValues(chainID, v, r, s *uint256.Int) { tx.V, tx.R, tx.S = v, r, s }
func (tx *BlobTx) copy() TxData {
	cp := *tx
	return &cp
}

// SetCodeTx is the EIP-7702 transaction shape; To is never nil.
type SetCodeTx struct {
	ChainID         uint64
	Nonce           uint64
	GasTipCap       *uint256.Int
	GasFeeCap       *uint256.Int
	Gas             uint64
	To              common.Address
	Value           *uint256.Int
	Data            []byte
	AccessList      AccessList
	AuthorizationList []Authorization
	V, R, S         *uint256.Int
}

func (tx *SetCodeTx) txType() byte             { return SetCodeTxType }
func (tx *SetCodeTx) chainID() uint64          { return tx.ChainID }
func (tx *SetCodeTx) accessList() AccessList   { return tx.AccessList }
func (tx *SetCodeTx) data() []byte             { return tx.Data }
func (tx *SetCodeTx) gas() uint64              { return tx.Gas }
func (tx *SetCodeTx) gasPrice() *uint256.Int   { return tx.GasFeeCap }
func (tx *SetCodeTx) gasTipCap() *uint256.Int  { return tx.GasTipCap }
func (tx *SetCodeTx) gasFeeCap() *uint256.Int  { return tx.GasFeeCap }
func (tx *SetCodeTx) value() *uint256.Int      { return tx.Value }
func (tx *SetCodeTx) nonce() uint64            { return tx.Nonce }
func (tx *SetCodeTx) to() *common.Address      { addr := tx.To; return &addr }
func (tx *SetCodeTx) rawSignatureValues() (v, r, s *uint256.Int) { return tx.V, tx.R, tx.S }
func (tx *SetCodeTx) setSignatureValues(chainID, v, r, s *uint256.Int) { tx.V, tx.R, tx.S = v, r, s }
func (tx *SetCodeTx) copy() TxData {
	cp := *tx
	return &cp
}

// Authorizations returns the EIP-7702 authorization list, empty for every
// other transaction type.
func (tx *Transaction) Authorizations() []Authorization {
	if sc, ok := tx.inner.(*SetCodeTx); ok {
		return sc.AuthorizationList
	}
	return nil
}

// BlobHashes returns the EIP-4844 blob versioned hashes, empty for every
// other transaction type.
func (tx *Transaction) BlobHashes() []common.Hash {
	if b, ok := tx.inner.(*BlobTx); ok {
		return b.BlobHashes
	}
	return nil
}

// IsContractCreation reports whether this transaction has no `to`.
func (tx *Transaction) IsContractCreation() bool { return tx.To() == nil }

// Sender recovers the transaction's signing address; legacy transactions
// signed with EIP-155 chain replay protection are handled via chainID != 0.
func (tx *Transaction) Sender(chainID uint64) (common.Address, error) {
	v, r, s := tx.inner.rawSignatureValues()
	if r == nil || s == nil {
		return common.Address{}, errors.New("types: transaction is unsigned")
	}
	sighash, err := tx.SigningHash(chainID)
	if err != nil {
		return common.Address{}, err
	}
	recoveryID := recoveryIDFromV(tx.Type(), v, chainID)
	sig := make([]byte, 65)
	rb := r.Bytes32()
	sb := s.Bytes32()
	copy(sig[0:32], rb[:])
	copy(sig[32:64], sb[:])
	sig[64] = recoveryID
	pub, err := crypto.SigToPub(sighash[:], sig)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pub), nil
}

func recoveryIDFromV(txType byte, v *uint256.Int, chainID uint64) byte {
	if txType != LegacyTxType {
		return byte(v.Uint64())
	}
	vv := v.Uint64()
	if vv == 27 || vv == 28 {
		return byte(vv - 27)
	}
	// EIP-155: v = recoveryID + chainID*2 + 35
	return byte(vv - chainID*2 - 35)
}

// EncodeRLP writes the transaction's full signed envelope: a bare RLP list
// for legacy transactions, a type-byte-prefixed RLP list otherwise (§6).
func (tx *Transaction) EncodeRLP() ([]byte, error) {
	v, r, s := tx.inner.rawSignatureValues()
	var fields rlp.List
	switch inner := tx.inner.(type) {
	case *LegacyTx:
		fields = rlp.List{inner.Nonce, inner.GasPrice, inner.Gas, toBytes(inner.To), inner.Value, inner.Data, v, r, s}
	case *AccessListTx:
		fields = rlp.List{inner.ChainID, inner.Nonce, inner.GasPrice, inner.Gas, toBytes(inner.To), inner.Value, inner.Data, accessListRLP(inner.AccessList), v, r, s}
	case *DynamicFeeTx:
		fields = rlp.List{inner.ChainID, inner.Nonce, inner.GasTipCap, inner.GasFeeCap, inner.Gas, toBytes(inner.To), inner.Value, inner.Data, accessListRLP(inner.AccessList), v, r, s}
	case *BlobTx:
		fields = rlp.List{inner.ChainID, inner.Nonce, inner.GasTipCap, inner.GasFeeCap, inner.Gas, inner.To.Bytes(), inner.Value, inner.Data, accessListRLP(inner.AccessList), inner.BlobFeeCap, blobHashesRLP(inner.BlobHashes), v, r, s}
	case *SetCodeTx:
		fields = rlp.List{inner.ChainID, inner.Nonce, inner.GasTipCap, inner.GasFeeCap, inner.Gas, inner.To.Bytes(), inner.Value, inner.Data, accessListRLP(inner.AccessList), authListRLP(inner.AuthorizationList), v, r, s}
	default:
		return nil, ErrInvalidTxType
	}
	body, err := rlp.EncodeToBytes(fields)
	if err != nil {
		return nil, err
	}
	if tx.Type() == LegacyTxType {
		return body, nil
	}
	return append([]byte{tx.Type()}, body...), nil
}

// Hash returns the keccak256 of the transaction's full signed envelope,
// the value used to index it in receipts and logs.
func (tx *Transaction) Hash() (common.Hash, error) {
	if tx.hash != nil {
		return *tx.hash, nil
	}
	enc, err := tx.EncodeRLP()
	if err != nil {
		return common.Hash{}, err
	}
	h := crypto.Keccak256Hash(enc)
	tx.hash = &h
	return h, nil
}

// SigningHash returns the hash that was (or must be) signed for this
// transaction, keccak256 of the type-appropriate unsigned RLP payload.
func (tx *Transaction) SigningHash(chainID uint64) (common.Hash, error) {
	switch inner := tx.inner.(type) {
	case *LegacyTx:
		var fields rlp.List
		if chainID == 0 {
			fields = rlp.List{inner.Nonce, inner.GasPrice, inner.Gas, toBytes(inner.To), inner.Value, inner.Data}
		} else {
			fields = rlp.List{inner.Nonce, inner.GasPrice, inner.Gas, toBytes(inner.To), inner.Value, inner.Data, chainID, uint64(0), uint64(0)}
		}
		body, err := rlp.EncodeToBytes(fields)
		if err != nil {
			return common.Hash{}, err
		}
		return crypto.Keccak256Hash(body), nil
	case *AccessListTx:
		return typedSigningHash(AccessListTxType, rlp.List{inner.ChainID, inner.Nonce, inner.GasPrice, inner.Gas, toBytes(inner.To), inner.Value, inner.Data, accessListRLP(inner.AccessList)})
	case *DynamicFeeTx:
		return typedSigningHash(DynamicFeeTxType, rlp.List{inner.ChainID, inner.Nonce, inner.GasTipCap, inner.GasFeeCap, inner.Gas, toBytes(inner.To), inner.Value, inner.Data, accessListRLP(inner.AccessList)})
	case *BlobTx:
		return typedSigningHash(BlobTxType, rlp.List{inner.ChainID, inner.Nonce, inner.GasTipCap, inner.GasFeeCap, inner.Gas, inner.To.Bytes(), inner.Value, inner.Data, accessListRLP(inner.AccessList), inner.BlobFeeCap, blobHashesRLP(inner.BlobHashes)})
	case *SetCodeTx:
		return typedSigningHash(SetCodeTxType, rlp.List{inner.ChainID, inner.Nonce, inner.GasTipCap, inner.GasFeeCap, inner.Gas, inner.To.Bytes(), inner.Value, inner.Data, accessListRLP(inner.AccessList), authListRLP(inner.AuthorizationList)})
	default:
		return common.Hash{}, ErrInvalidTxType
	}
}

func typedSigningHash(txType byte, fields rlp.List) (common.Hash, error) {
	body, err := rlp.EncodeToBytes(fields)
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(append([]byte{txType}, body...)), nil
}

func toBytes(a *common.Address) []byte {
	if a == nil {
		return nil
	}
	return a.Bytes()
}

func accessListRLP(al AccessList) rlp.List {
	out := make(rlp.List, len(al))
	for i, t := range al {
		keys := make(rlp.List, len(t.StorageKeys))
		for j, k := range t.StorageKeys {
			keys[j] = k.Bytes()
		}
		out[i] = rlp.List{t.Address.Bytes(), keys}
	}
	return out
}

func blobHashesRLP(hs []common.Hash) rlp.List {
	out := make(rlp.List, len(hs))
	for i, h := range hs {
		out[i] = h.Bytes()
	}
	return out
}

func authListRLP(auths []Authorization) rlp.List {
	out := make(rlp.List, len(auths))
	for i, a := range auths {
		out[i] = rlp.List{a.ChainID, a.Address.Bytes(), a.Nonce, uint64(a.V), a.R, a.S}
	}
	return out
}
