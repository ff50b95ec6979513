package core

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethcore/execevm/common"
	"github.com/ethcore/execevm/core/types"
)

// depositEventFieldCount is the number of dynamic-bytes fields the deposit
// contract's DepositEvent ABI-encodes: pubkey, withdrawal_credentials,
// amount, signature, index (EIP-6110).
const depositEventFieldCount = 5

// ParseDepositLog decodes one DepositEvent log emitted by the chain's
// deposit contract into a DepositRequest, following the Solidity event's
// standard ABI layout: one 32-byte offset word per dynamic field,
// followed by each field's own 32-byte length prefix and padded data.
func ParseDepositLog(log *types.Log) (*types.DepositRequest, error) {
	data := log.Data
	if len(data) < depositEventFieldCount*32 {
		return nil, fmt.Errorf("core: deposit log too short: %d bytes", len(data))
	}
	fields := make([][]byte, depositEventFieldCount)
	for i := 0; i < depositEventFieldCount; i++ {
		offset := new(big.Int).SetBytes(data[i*32 : (i+1)*32]).Uint64()
		if offset+32 > uint64(len(data)) {
			return nil, errors.New("core: deposit log offset out of range")
		}
		length := new(big.Int).SetBytes(data[offset : offset+32]).Uint64()
		start := offset + 32
		if start+length > uint64(len(data)) {
			return nil, errors.New("core: deposit log length out of range")
		}
		fields[i] = data[start : start+length]
	}
	if len(fields[0]) != 48 || len(fields[3]) != 96 {
		return nil, errors.New("core: deposit log field length mismatch")
	}
	if len(fields[2]) != 8 || len(fields[4]) != 8 {
		return nil, errors.New("core: deposit log amount/index field wrong length")
	}
	req := &types.DepositRequest{
		WithdrawalCredentials: common.BytesToHash(fields[1]),
		Amount:                binary.LittleEndian.Uint64(fields[2]),
		Index:                 binary.LittleEndian.Uint64(fields[4]),
	}
	copy(req.Pubkey[:], fields[0])
	copy(req.Signature[:], fields[3])
	return req, nil
}

// EncodeDepositRequest serializes a DepositRequest into the flat EIP-7685
// request payload: pubkey || withdrawal_credentials || amount(LE) ||
// signature || index(LE).
func EncodeDepositRequest(req *types.DepositRequest) []byte {
	out := make([]byte, 0, 48+32+8+96+8)
	out = append(out, req.Pubkey[:]...)
	out = append(out, req.WithdrawalCredentials.Bytes()...)
	var amount [8]byte
	binary.LittleEndian.PutUint64(amount[:], req.Amount)
	out = append(out, amount[:]...)
	out = append(out, req.Signature[:]...)
	var index [8]byte
	binary.LittleEndian.PutUint64(index[:], req.Index)
	out = append(out, index[:]...)
	return out
}
