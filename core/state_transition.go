package core

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/ethcore/execevm/common"
	"github.com/ethcore/execevm/core/types"
	"github.com/ethcore/execevm/core/vm"
	"github.com/ethcore/execevm/params"
	"github.com/holiman/uint256"
)

var (
	ErrNonceTooHigh          = errors.New("nonce too high")
	ErrNonceTooLow           = errors.New("nonce too low")
	ErrNonceMax              = errors.New("nonce has max value")
	ErrGasLimitReached       = errors.New("gas limit reached")
	ErrInsufficientFundsForTransfer = errors.New("insufficient funds for transfer")
	ErrInsufficientFunds     = errors.New("insufficient funds for gas * price + value")
	ErrIntrinsicGas          = errors.New("intrinsic gas too low")
	ErrGasUintOverflow       = errors.New("gas uint64 overflow")
	ErrSenderNoEOA           = errors.New("sender not an eoa")
	ErrBlobFeeCapTooLow      = errors.New("max fee per blob gas too low")
)

// Message is the chain-agnostic, already-signature-resolved view of a
// transaction that the state transition actually needs (§4.6): a
// transaction's consensus fields, minus anything only the network
// envelope cares about.
type Message struct {
	To         *common.Address
	From       common.Address
	Nonce      uint64
	Value      *uint256.Int
	GasLimit   uint64
	GasPrice   *uint256.Int
	GasFeeCap  *uint256.Int
	GasTipCap  *uint256.Int
	Data       []byte
	AccessList types.AccessList

	AuthorizationList []types.Authorization

	BlobHashes    []common.Hash
	BlobGasFeeCap *uint256.Int

	// SkipAccountChecks disables nonce/EOA/balance preflight checks, used
	// for gas estimation and system calls (§4.7).
	SkipAccountChecks bool
}

// TransactionToMessage resolves tx's sender and its effective gas price
// against baseFee, producing the Message the state transition consumes.
func TransactionToMessage(tx *types.Transaction, chainID uint64, baseFee *uint256.Int) (*Message, error) {
	from, err := tx.Sender(chainID)
	if err != nil {
		return nil, fmt.Errorf("core: invalid transaction sender: %w", err)
	}
	msg := &Message{
		To:                tx.To(),
		From:              from,
		Nonce:             tx.Nonce(),
		Value:             tx.Value(),
		GasLimit:          tx.Gas(),
		GasPrice:          new(uint256.Int).Set(tx.GasPrice()),
		GasFeeCap:         new(uint256.Int).Set(tx.GasFeeCap()),
		GasTipCap:         new(uint256.Int).Set(tx.GasTipCap()),
		Data:              tx.Data(),
		AccessList:        tx.AccessList(),
		AuthorizationList: tx.Authorizations(),
		BlobHashes:        tx.BlobHashes(),
	}
	if baseFee != nil {
		msg.GasPrice = tx.EffectiveGasPrice(baseFee)
	}
	return msg, nil
}

// GasPool tracks the gas still available within a block, shared across
// every transaction's state transition (§4.6).
type GasPool uint64

// AddGas makes gas available for execution.
func (gp *GasPool) AddGas(amount uint64) *GasPool {
	if uint64(*gp) > math.MaxUint64-amount {
		panic("gas pool pushed above uint64")
	}
	*(*uint64)(gp) += amount
	return gp
}

// SubGas deducts amount from the pool, failing if the pool is exhausted.
func (gp *GasPool) SubGas(amount uint64) error {
	if uint64(*gp) < amount {
		return ErrGasLimitReached
	}
	*(*uint64)(gp) -= amount
	return nil
}

// Gas returns the amount of gas remaining in the pool.
func (gp *GasPool) Gas() uint64 { return uint64(*gp) }

func (gp *GasPool) SetGas(amount uint64) { *(*uint64)(gp) = amount }

// IntrinsicGas computes the gas charged before execution even begins:
// the flat per-transaction base, a per-byte calldata cost (EIP-2028
// lowers the cost of a non-zero byte from 68 to 16 post-Istanbul), the EIP-2930 access
// list surcharge, the EIP-7702 authorization-list surcharge, and the
// EIP-3860 init-code-word surcharge for contract creation (§4.6).
func IntrinsicGas(data []byte, accessList types.AccessList, authList []types.Authorization, isContractCreation, isHomestead, isEIP2028, isEIP3860 bool) (uint64, error) {
	gas := params.TxGas
	if isContractCreation && isHomestead {
		gas = params.TxGasContractCreation
	}
	if len(data) > 0 {
		var nz uint64
		for _, b := range data {
			if b != 0 {
				nz++
			}
		}
		nonZeroGas := params.TxDataNonZeroGasFrontier
		if isEIP2028 {
			nonZeroGas = params.TxDataNonZeroGasEIP2028
		}
		if (math.MaxUint64-gas)/nonZeroGas < nz {
			return 0, ErrGasUintOverflow
		}
		gas += nz * nonZeroGas

		z := uint64(len(data)) - nz
		if (math.MaxUint64-gas)/params.TxDataZeroGas < z {
			return 0, ErrGasUintOverflow
		}
		gas += z * params.TxDataZeroGas

		if isContractCreation && isEIP3860 {
			words := toWordSize(uint64(len(data)))
			if (math.MaxUint64-gas)/params.InitCodeWordGas < words {
				return 0, ErrGasUintOverflow
			}
			gas += words * params.InitCodeWordGas
		}
	}
	if n := len(accessList); n > 0 {
		gas += uint64(n) * params.TxAccessListAddressGas
		gas += uint64(accessList.StorageKeys()) * params.TxAccessListStorageKeyGas
	}
	if n := len(authList); n > 0 {
		gas += uint64(n) * params.PerEmptyAccountCost
	}
	return gas, nil
}

// FloorDataGas computes the EIP-7623 calldata floor: the base tx cost
// plus a per-token cost derived purely from the calldata's token count,
// independent of whatever gas execution itself consumes.
func FloorDataGas(data []byte) (uint64, error) {
	var tokens uint64
	for _, b := range data {
		if b == 0 {
			tokens++
		} else {
			tokens += 4
		}
	}
	if (math.MaxUint64-params.TxGas)/params.TxTotalCostFloorPerTokenEIP7623 < tokens {
		return 0, ErrGasUintOverflow
	}
	return params.TxGas + tokens*params.TxTotalCostFloorPerTokenEIP7623, nil
}

func toWordSize(size uint64) uint64 {
	if size > math.MaxUint64-31 {
		return math.MaxUint64/32 + 1
	}
	return (size + 31) / 32
}

// ExecutionResult is everything the block executor needs to build a
// receipt from one applied message (§4.6).
type ExecutionResult struct {
	UsedGas     uint64
	RefundedGas uint64
	Err         error
	ReturnData  []byte
}

func (r *ExecutionResult) Unwrap() error { return r.Err }
func (r *ExecutionResult) Failed() bool  { return r.Err != nil }
func (r *ExecutionResult) Return() []byte {
	if r.Failed() {
		return nil
	}
	return common.CopyBytes(r.ReturnData)
}
func (r *ExecutionResult) Revert() []byte {
	if r.Err != vm.ErrExecutionReverted {
		return nil
	}
	return common.CopyBytes(r.ReturnData)
}

// stateTransition carries the per-message working state through preCheck,
// buyGas, execution, and refund/fee settlement (§4.6), mirroring the
// teacher's StateTransition struct.
type stateTransition struct {
	gp         *GasPool
	msg        *Message
	gasRemaining uint64
	initialGas uint64
	evm        *vm.EVM
}

// ApplyMessage runs msg against evm, charging/refunding gp as it goes,
// and returns the outcome the block executor turns into a receipt. Any
// consensus-level failure (bad nonce, insufficient funds, gas pool
// exhaustion) returns a non-nil error and a nil result: the transaction
// never entered execution and does not belong in the block. A revert or
// an exceptional VM halt is NOT such a failure — those produce a result
// with a non-nil Err field but execution still consumed gas and the
// transaction still belongs in the block (§4.6, §7).
func ApplyMessage(evm *vm.EVM, msg *Message, gp *GasPool) (*ExecutionResult, error) {
	st := &stateTransition{gp: gp, msg: msg, evm: evm}
	return st.execute()
}

func (st *stateTransition) execute() (*ExecutionResult, error) {
	if err := st.preCheck(); err != nil {
		return nil, err
	}
	msg := st.msg
	rules := st.evm.ChainRules()

	isContractCreation := msg.To == nil
	intrinsicGas, err := IntrinsicGas(msg.Data, msg.AccessList, msg.AuthorizationList, isContractCreation, rules.IsHomestead, rules.IsIstanbul, rules.IsShanghai)
	if err != nil {
		return nil, err
	}
	floorGas, err := FloorDataGas(msg.Data)
	if err != nil {
		return nil, err
	}
	if rules.IsPrague && intrinsicGas < floorGas {
		intrinsicGas = floorGas
	}
	if st.gasRemaining < intrinsicGas {
		return nil, fmt.Errorf("%w: have %d, want %d", ErrIntrinsicGas, st.gasRemaining, intrinsicGas)
	}
	st.gasRemaining -= intrinsicGas

	if !msg.SkipAccountChecks {
		if err := st.applyEIP7702AuthorizationList(); err != nil {
			return nil, err
		}
	}

	var (
		ret   []byte
		vmerr error
	)
	senderRef := vm.AccountRef(msg.From)
	if isContractCreation {
		ret, _, st.gasRemaining, vmerr = st.evm.Create(senderRef, msg.Data, st.gasRemaining, msg.Value)
	} else {
		st.evm.StateDB.SetNonce(msg.From, st.evm.StateDB.GetAccount(msg.From).Nonce+1)
		ret, st.gasRemaining, vmerr = st.evm.Call(senderRef, *msg.To, msg.Data, st.gasRemaining, msg.Value)
	}

	gasUsed, refund := st.settleGas(rules.IsLondon)
	result := &ExecutionResult{
		UsedGas:     gasUsed,
		RefundedGas: refund,
		Err:         vmerr,
		ReturnData:  ret,
	}
	return result, nil
}

// preCheck validates the message against the sender account before
// consuming any gas: correct nonce, sufficient balance for gas*price+
// value, no overflow on the nonce, EIP-4844 blob fee cap (§4.6 edge
// cases).
func (st *stateTransition) preCheck() error {
	msg := st.msg
	if !msg.SkipAccountChecks {
		sender := st.evm.StateDB.GetAccount(msg.From)
		if sender.Nonce < msg.Nonce {
			return fmt.Errorf("%w: address %v, tx: %d state: %d", ErrNonceTooHigh, msg.From, msg.Nonce, sender.Nonce)
		}
		if sender.Nonce > msg.Nonce {
			return fmt.Errorf("%w: address %v, tx: %d state: %d", ErrNonceTooLow, msg.From, msg.Nonce, sender.Nonce)
		}
		if sender.Nonce+1 < sender.Nonce {
			return fmt.Errorf("%w: address %v, nonce: %d", ErrNonceMax, msg.From, sender.Nonce)
		}
	}
	if len(msg.BlobHashes) > 0 {
		if st.evm.BlobBaseFee == nil {
			return errors.New("core: blob transaction before Cancun")
		}
		if msg.BlobGasFeeCap == nil || msg.BlobGasFeeCap.Cmp(st.evm.BlobBaseFee) < 0 {
			return fmt.Errorf("%w: address %v", ErrBlobFeeCapTooLow, msg.From)
		}
	}
	return st.buyGas()
}

// buyGas deducts the up-front gas*gasFeeCap (plus blob gas fee, if any)
// from the sender's balance and reserves msg.GasLimit from the block's
// pool, refunded down to the gas actually used once execution finishes.
func (st *stateTransition) buyGas() error {
	msg := st.msg
	balanceCheck := new(uint256.Int).SetUint64(msg.GasLimit)
	balanceCheck.Mul(balanceCheck, msg.GasFeeCap)
	balanceCheck.Add(balanceCheck, msg.Value)

	if len(msg.BlobHashes) > 0 {
		blobGas := new(uint256.Int).SetUint64(uint64(len(msg.BlobHashes)) * params.BlobTxBlobGasPerBlob)
		balanceCheck.Add(balanceCheck, new(uint256.Int).Mul(blobGas, msg.BlobGasFeeCap))
	}

	if !msg.SkipAccountChecks {
		if have := st.evm.StateDB.GetAccount(msg.From).Balance; have.Cmp(balanceCheck) < 0 {
			return fmt.Errorf("%w: address %v have %v want %v", ErrInsufficientFunds, msg.From, have, balanceCheck)
		}
	}
	if err := st.gp.SubGas(msg.GasLimit); err != nil {
		return err
	}
	st.gasRemaining += msg.GasLimit
	st.initialGas = msg.GasLimit

	cost := new(uint256.Int).SetUint64(msg.GasLimit)
	cost.Mul(cost, msg.GasPrice)
	prevBalance := st.evm.StateDB.GetAccount(msg.From).Balance
	st.evm.StateDB.SetBalance(msg.From, new(uint256.Int).Sub(prevBalance, cost))
	return nil
}

// settleGas applies the EIP-3529 refund cap, credits unused gas back to
// the sender, and returns the pool's gas to the block-level pool.
func (st *stateTransition) settleGas(isLondon bool) (usedGas, refund uint64) {
	refundQuotient := params.RefundQuotient
	if isLondon {
		refundQuotient = params.RefundQuotientEIP3529
	}
	usedGas = st.initialGas - st.gasRemaining
	refund = st.evm.Substate.RefundGas()
	maxRefund := usedGas / refundQuotient
	if refund > maxRefund {
		refund = maxRefund
	}
	st.gasRemaining += refund

	remaining := new(uint256.Int).SetUint64(st.gasRemaining)
	remaining.Mul(remaining, st.msg.GasPrice)
	prevBalance := st.evm.StateDB.GetAccount(st.msg.From).Balance
	st.evm.StateDB.SetBalance(st.msg.From, new(uint256.Int).Add(prevBalance, remaining))

	st.gp.AddGas(st.gasRemaining)
	return st.initialGas - st.gasRemaining, refund
}

// applyEIP7702AuthorizationList installs a delegation designator for
// every validly-signed, validly-nonced authorization tuple (§4.6
// scenario: SetCodeTx authorization processing). Invalid tuples (wrong
// chain, bad signature, nonce mismatch) are skipped rather than failing
// the whole transaction, per EIP-7702.
func (st *stateTransition) applyEIP7702AuthorizationList() error {
	chainID := st.evm.ChainConfig().ChainID.Uint64()
	for _, auth := range st.msg.AuthorizationList {
		if auth.ChainID != 0 && auth.ChainID != chainID {
			continue
		}
		if auth.Nonce+1 < auth.Nonce {
			continue
		}
		authority, err := auth.Authority()
		if err != nil {
			continue
		}
		acc := st.evm.StateDB.GetAccount(authority)
		if acc.Nonce != auth.Nonce {
			continue
		}
		if len(acc.CodeHash) != 0 && !isEmptyOrDelegatedCodeHash(acc.CodeHash) {
			continue
		}
		st.evm.StateDB.SetNonce(authority, auth.Nonce+1)
		if auth.Address == (common.Address{}) {
			st.evm.StateDB.AddAccountCode(authority, nil)
		} else {
			st.evm.StateDB.AddAccountCode(authority, types.Code(types.AddressToDelegation(auth.Address)))
		}
	}
	return nil
}

func isEmptyOrDelegatedCodeHash(codeHash []byte) bool {
	h := common.BytesToHash(codeHash)
	if h == types.EmptyCodeHash || h == (common.Hash{}) {
		return true
	}
	return false
}

// blobBaseFee implements the fake-exponential formula of EIP-4844,
// translating a header's excess blob gas into the per-blob-gas-unit fee
// charged against BLOBHASH-bearing transactions (§4.3 BLOBBASEFEE).
func blobBaseFee(excessBlobGas uint64) *uint256.Int {
	return fakeExponential(params.BlobTxMinBlobGasprice, excessBlobGas, params.BlobBaseFeeUpdateFraction)
}

func fakeExponential(factor, numerator, denominator uint64) *uint256.Int {
	i := big.NewInt(1)
	output := new(big.Int)
	numeratorBig := big.NewInt(0).SetUint64(numerator)
	denominatorBig := big.NewInt(0).SetUint64(denominator)
	factorBig := big.NewInt(0).SetUint64(factor)

	accum := new(big.Int).Mul(factorBig, denominatorBig)
	for accum.Sign() > 0 {
		output.Add(output, accum)
		accum.Mul(accum, numeratorBig)
		accum.Div(accum, denominatorBig)
		accum.Div(accum, i)
		i.Add(i, big.NewInt(1))
	}
	result := new(big.Int).Div(output, denominatorBig)
	out, overflow := uint256.FromBig(result)
	if overflow {
		return new(uint256.Int).SetAllOne()
	}
	return out
}
