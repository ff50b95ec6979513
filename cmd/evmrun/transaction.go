package main

import (
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"github.com/ethcore/execevm/common"
	"github.com/ethcore/execevm/core/types"
	"github.com/ethcore/execevm/crypto"
	"github.com/holiman/uint256"
)

// jsonTx is one entry of the --input.txs file: an unsigned message plus an
// optional secretKey the CLI signs it with, mirroring t8n's txs.json shape
// (address/value/data fields as hex, "secretKey" in place of pre-baked
// v/r/s) so hand-written fixtures don't need an external signer.
type jsonTx struct {
	Type                 string   `json:"type"`
	ChainID              string   `json:"chainId"`
	Nonce                string   `json:"nonce"`
	To                   string   `json:"to"`
	Value                string   `json:"value"`
	GasLimit             string   `json:"gasLimit"`
	GasPrice             string   `json:"gasPrice"`
	MaxFeePerGas         string   `json:"maxFeePerGas"`
	MaxPriorityFeePerGas string   `json:"maxPriorityFeePerGas"`
	Data                 string   `json:"data"`
	SecretKey            string   `json:"secretKey"`
	AccessList           []jsonAL `json:"accessList"`
}

type jsonAL struct {
	Address     string   `json:"address"`
	StorageKeys []string `json:"storageKeys"`
}

func (al jsonAL) toAccessTuple() types.AccessTuple {
	keys := make([]common.Hash, len(al.StorageKeys))
	for i, k := range al.StorageKeys {
		keys[i] = common.HexToHash(k)
	}
	return types.AccessTuple{Address: common.HexToAddress(al.Address), StorageKeys: keys}
}

// loadTransactions reads path and returns each entry signed into a
// *types.Transaction ready for BlockProcessor.Process.
func loadTransactions(path string, chainID uint64) ([]*types.Transaction, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("evmrun: reading txs file: %w", err)
	}
	var parsed []jsonTx
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("evmrun: parsing txs file: %w", err)
	}

	txs := make([]*types.Transaction, 0, len(parsed))
	for i, jt := range parsed {
		tx, err := jt.build(chainID)
		if err != nil {
			return nil, fmt.Errorf("evmrun: transaction %d: %w", i, err)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func (jt jsonTx) build(chainID uint64) (*types.Transaction, error) {
	nonce, err := parseUint64(jt.Nonce)
	if err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	gasLimit, err := parseUint64(jt.GasLimit)
	if err != nil {
		return nil, fmt.Errorf("gasLimit: %w", err)
	}
	value, err := parseOptionalUint256(jt.Value)
	if err != nil {
		return nil, fmt.Errorf("value: %w", err)
	}
	var to *common.Address
	if jt.To != "" {
		addr := common.HexToAddress(jt.To)
		to = &addr
	}
	data := common.FromHex(jt.Data)

	var inner types.TxData
	switch jt.Type {
	case "", "0x0", "0x00":
		gasPrice, err := parseOptionalUint256(jt.GasPrice)
		if err != nil {
			return nil, fmt.Errorf("gasPrice: %w", err)
		}
		inner = &types.LegacyTx{Nonce: nonce, To: to, Value: value, Gas: gasLimit, GasPrice: gasPrice, Data: data}
	case "0x1", "0x01":
		gasPrice, err := parseOptionalUint256(jt.GasPrice)
		if err != nil {
			return nil, fmt.Errorf("gasPrice: %w", err)
		}
		inner = &types.AccessListTx{
			ChainID: chainID, Nonce: nonce, To: to, Value: value, Gas: gasLimit,
			GasPrice: gasPrice, Data: data, AccessList: toAccessList(jt.AccessList),
		}
	case "0x2", "0x02":
		tip, err := parseOptionalUint256(jt.MaxPriorityFeePerGas)
		if err != nil {
			return nil, fmt.Errorf("maxPriorityFeePerGas: %w", err)
		}
		feeCap, err := parseOptionalUint256(jt.MaxFeePerGas)
		if err != nil {
			return nil, fmt.Errorf("maxFeePerGas: %w", err)
		}
		inner = &types.DynamicFeeTx{
			ChainID: chainID, Nonce: nonce, To: to, Value: value, Gas: gasLimit,
			GasTipCap: tip, GasFeeCap: feeCap, Data: data, AccessList: toAccessList(jt.AccessList),
		}
	default:
		return nil, fmt.Errorf("unsupported transaction type %q", jt.Type)
	}

	tx := types.NewTx(inner)
	if jt.SecretKey == "" {
		return tx, nil
	}
	return signTx(tx, jt.SecretKey, chainID)
}

func toAccessList(al []jsonAL) types.AccessList {
	if len(al) == 0 {
		return nil
	}
	out := make(types.AccessList, len(al))
	for i, a := range al {
		out[i] = a.toAccessTuple()
	}
	return out
}

// signTx signs tx's consensus signing hash with the raw secp256k1 private
// key hexKey and installs the resulting v/r/s, the same secretKey-signing
// path t8n's txs.json format supports in place of pre-baked signatures.
func signTx(tx *types.Transaction, hexKey string, chainID uint64) (*types.Transaction, error) {
	keyBytes := common.FromHex(hexKey)
	priv := new(ecdsa.PrivateKey)
	priv.D = new(big.Int).SetBytes(keyBytes)

	sighash, err := tx.SigningHash(chainID)
	if err != nil {
		return nil, fmt.Errorf("computing signing hash: %w", err)
	}
	sig, err := crypto.Sign(sighash.Bytes(), priv)
	if err != nil {
		return nil, fmt.Errorf("signing: %w", err)
	}
	return tx.WithSignature(chainID, sig)
}

func parseUint64(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := parseUint256(s)
	if err != nil {
		return 0, err
	}
	return v.Uint64(), nil
}

func parseOptionalUint256(s string) (*uint256.Int, error) {
	if s == "" {
		return new(uint256.Int), nil
	}
	return parseUint256(s)
}
