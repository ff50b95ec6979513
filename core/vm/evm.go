package vm

import (
	"github.com/ethcore/execevm/common"
	"github.com/ethcore/execevm/core/bal"
	"github.com/ethcore/execevm/core/state"
	"github.com/ethcore/execevm/core/substate"
	"github.com/ethcore/execevm/core/types"
	"github.com/ethcore/execevm/crypto"
	"github.com/ethcore/execevm/log"
	"github.com/ethcore/execevm/metrics"
	"github.com/ethcore/execevm/params"
	"github.com/holiman/uint256"
)

var (
	callDepthExceededMeter = metrics.NewRegisteredMeter("vm/call/depthexceeded", nil)
	callRevertMeter        = metrics.NewRegisteredMeter("vm/call/revert", nil)
	createRevertMeter      = metrics.NewRegisteredMeter("vm/create/revert", nil)
)

// CanTransferFunc reports whether addr's balance covers amount.
type CanTransferFunc func(*state.StateDB, common.Address, *uint256.Int) bool

// TransferFunc moves amount from sender to recipient; value-moving call
// sites are also where EIP-7708 Transfer logs get emitted (§4.4 scenario 6).
type TransferFunc func(*state.StateDB, common.Address, common.Address, *uint256.Int)

// GetHashFunc returns the n'th most recent block's hash, backing the
// BLOCKHASH opcode.
type GetHashFunc func(n uint64) common.Hash

// BlockContext carries block-wide, call-invariant information into the
// EVM (§4.1 Header, §4.4 block info opcodes). Built once per block.
type BlockContext struct {
	CanTransfer CanTransferFunc
	Transfer    TransferFunc
	GetHash     GetHashFunc

	Coinbase    common.Address
	GasLimit    uint64
	BlockNumber *uint256.Int
	Time        uint64
	Random      *common.Hash // post-Merge PREVRANDAO value; nil pre-Merge
	BaseFee     *uint256.Int
	BlobBaseFee *uint256.Int
}

// TxContext carries transaction-scoped information (§4.1 Transaction).
type TxContext struct {
	Origin     common.Address
	GasPrice   *uint256.Int
	BlobHashes []common.Hash
	BlobFeeCap *uint256.Int
}

// Config bundles the interpreter's optional execution knobs.
type Config struct {
	NoRecursion bool // disables child calls, for gas-estimation-only runs
}

// EVM is the per-execution virtual machine: the auxiliary block/tx
// context, the state and substate it reads and mutates, and the single
// interpreter driving every call frame (§4.4). One EVM is built per
// transaction (or per synthetic system call, §4.7) and never reused.
type EVM struct {
	BlockContext
	TxContext

	StateDB  *state.StateDB
	Substate *substate.Substate

	depth int

	chainConfig *params.ChainConfig
	chainRules  params.Rules
	vmConfig    Config

	interpreter *EVMInterpreter

	abort bool

	// callGasTemp holds the gas computed for the child call by the active
	// CALL-family dynamicGas function (the EIP-150 63/64ths amount),
	// consumed by the matching opCall*/opDelegateCall/opStaticCall
	// handler immediately afterward (§4.3 Calls).
	callGasTemp uint64
}

// NewEVM returns an EVM ready to execute against statedb/substate under
// chainConfig, with chainRules resolved for blockCtx's number/time.
func NewEVM(blockCtx BlockContext, txCtx TxContext, statedb *state.StateDB, sub *substate.Substate, chainConfig *params.ChainConfig, vmConfig Config) *EVM {
	evm := &EVM{
		BlockContext: blockCtx,
		TxContext:    txCtx,
		StateDB:      statedb,
		Substate:     sub,
		chainConfig:  chainConfig,
		chainRules:   chainConfig.Rules(blockCtx.BlockNumber.ToBig(), blockCtx.Random != nil, blockCtx.Time),
		vmConfig:     vmConfig,
	}
	evm.interpreter = NewEVMInterpreter(evm)
	return evm
}

// Cancel aborts any in-flight Call/Create on this EVM; safe to call
// concurrently and more than once.
func (evm *EVM) Cancel() { evm.abort = true }

// Cancelled reports whether Cancel has been called.
func (evm *EVM) Cancelled() bool { return evm.abort }

// ChainConfig returns the chain configuration this EVM was built with.
func (evm *EVM) ChainConfig() *params.ChainConfig { return evm.chainConfig }

// ChainRules returns the fork rules resolved for this execution.
func (evm *EVM) ChainRules() params.Rules { return evm.chainRules }

// resolveCode returns the code the interpreter should actually run for
// addr: addr's own code, or — if it carries an EIP-7702 delegation
// designator — the delegate's code, following exactly one indirection
// (designators never chain, §4.4 EIP-7702).
func (evm *EVM) resolveCode(addr common.Address) (common.Address, types.Code) {
	code := evm.StateDB.GetCode(addr)
	if target, ok := types.ParseDelegation(code); ok {
		return target, evm.StateDB.GetCode(target)
	}
	return addr, code
}

// run dispatches to a precompile if codeAddr names one, otherwise to the
// interpreter (§4.4 Call frame and opcode dispatch).
func (evm *EVM) run(contract *Contract, input []byte, readOnly bool) ([]byte, error) {
	if contract.CodeAddr != nil {
		if p, ok := lookupPrecompile(evm.chainRules, *contract.CodeAddr); ok {
			return RunPrecompiledContract(p, input, contract)
		}
	}
	return evm.interpreter.Run(contract, input, readOnly)
}

// transfer moves value from caller to callee, recording the frame's
// EIP-7708 synthetic Transfer log when Amsterdam rules are active and the
// amount actually moved is non-zero (§4.4 scenario 6: every value-bearing
// CALL, CREATE, CREATE2, and SELFDESTRUCT logs a transfer, not just the
// ones contract code initiates via LOG opcodes).
func (evm *EVM) transfer(from, to common.Address, value *uint256.Int) {
	evm.Transfer(evm.StateDB, from, to, value)
	if evm.chainRules.IsAmsterdam && !value.IsZero() {
		evm.Substate.AddLog(types.NewTransferLog(from, to, value))
	}
}

// enterFrame opens one call frame's revert scope: a StateDB journal
// snapshot, a substate delta, and a BAL checkpoint, reconciled together
// on the frame's exit (§4.2, §4.4, §4.8).
func (evm *EVM) enterFrame() (stateSnap int, balSnap bal.Checkpoint) {
	evm.Substate.PushBackup()
	return evm.StateDB.Snapshot(), evm.StateDB.BALRecorderMut().Checkpoint()
}

// commitFrame closes a call frame successfully, folding its substate
// delta into its parent.
func (evm *EVM) commitFrame() { evm.Substate.CommitBackup() }

// revertFrame undoes every mutation a call frame made: state, substate,
// and the BAL's recorded vectors (§4.2, §4.8). Refunds accumulated in the
// frame are discarded along with everything else.
func (evm *EVM) revertFrame(stateSnap int, balSnap bal.Checkpoint) {
	evm.StateDB.RevertToSnapshot(stateSnap)
	evm.StateDB.BALRecorderMut().Restore(balSnap)
	evm.Substate.RevertBackup()
}

// logDepthExceeded records the call-depth-limit rejection of §4.4's
// 1024-frame bound (op's caller already returns ErrDepth; this just makes
// the rejection observable without walking the call stack after the fact).
func (evm *EVM) logDepthExceeded(op string, addr common.Address) {
	callDepthExceededMeter.Mark(1)
	log.Warn("call depth exceeded", "op", op, "depth", evm.depth, "addr", addr)
}

// logFrameRevert is the hot-path trace+metric for a call or create frame
// that failed and rolled back; ErrExecutionReverted (an explicit REVERT)
// is logged at Trace since it is ordinary control flow, anything else at
// Debug since it consumed the frame's remaining gas. meter is the
// op-family's revert counter (callRevertMeter or createRevertMeter).
func (evm *EVM) logFrameRevert(meter *metrics.Meter, op string, addr common.Address, err error) {
	meter.Mark(1)
	if err == ErrExecutionReverted {
		log.Trace("call reverted", "op", op, "depth", evm.depth, "addr", addr)
		return
	}
	log.Debug("call frame failed", "op", op, "depth", evm.depth, "addr", addr, "err", err)
}

// Call executes addr's code with input as calldata, transferring value
// from caller first. Any error halts the frame, reverting state/substate/
// BAL to the frame's entry checkpoint and consuming all remaining gas
// except on ErrExecutionReverted (§4.4 CALL).
func (evm *EVM) Call(caller ContractRef, addr common.Address, input []byte, gas uint64, value *uint256.Int) (ret []byte, leftOverGas uint64, err error) {
	if evm.vmConfig.NoRecursion && evm.depth > 0 {
		return nil, gas, nil
	}
	if evm.depth > params.MaxCallDepth {
		evm.logDepthExceeded("CALL", addr)
		return nil, gas, ErrDepth
	}
	if !evm.CanTransfer(evm.StateDB, caller.Address(), value) {
		return nil, gas, ErrInsufficientBalance
	}

	stateSnap, balSnap := evm.enterFrame()

	if !evm.StateDB.Exists(addr) {
		if _, ok := lookupPrecompile(evm.chainRules, addr); !ok && value.IsZero() {
			evm.Substate.RevertBackup()
			return nil, gas, nil
		}
	}
	evm.transfer(caller.Address(), addr, value)

	codeAddr, code := evm.resolveCode(addr)
	contract := NewContract(caller, AccountRef(addr), value, gas)
	contract.SetCallCode(&codeAddr, common.Hash(code.Hash()), code)

	ret, err = evm.run(contract, input, false)
	if err != nil {
		evm.logFrameRevert(callRevertMeter, "CALL", addr, err)
		evm.revertFrame(stateSnap, balSnap)
		if err != ErrExecutionReverted {
			contract.UseGas(contract.Gas)
		}
	} else {
		evm.commitFrame()
	}
	return ret, contract.Gas, err
}

// CallCode executes addr's code in the caller's own storage/balance
// context (the callee's code, the caller's account) — §4.4 CALLCODE.
func (evm *EVM) CallCode(caller ContractRef, addr common.Address, input []byte, gas uint64, value *uint256.Int) (ret []byte, leftOverGas uint64, err error) {
	if evm.vmConfig.NoRecursion && evm.depth > 0 {
		return nil, gas, nil
	}
	if evm.depth > params.MaxCallDepth {
		evm.logDepthExceeded("CALLCODE", addr)
		return nil, gas, ErrDepth
	}
	if !evm.CanTransfer(evm.StateDB, caller.Address(), value) {
		return nil, gas, ErrInsufficientBalance
	}

	stateSnap, balSnap := evm.enterFrame()

	codeAddr, code := evm.resolveCode(addr)
	contract := NewContract(caller, AccountRef(caller.Address()), value, gas)
	contract.SetCallCode(&codeAddr, common.Hash(code.Hash()), code)

	ret, err = evm.run(contract, input, false)
	if err != nil {
		evm.logFrameRevert(callRevertMeter, "CALLCODE", addr, err)
		evm.revertFrame(stateSnap, balSnap)
		if err != ErrExecutionReverted {
			contract.UseGas(contract.Gas)
		}
	} else {
		evm.commitFrame()
	}
	return ret, contract.Gas, err
}

// DelegateCall executes addr's code in the parent frame's storage,
// balance, caller, and value, unchanged (§4.4 DELEGATECALL).
func (evm *EVM) DelegateCall(caller ContractRef, addr common.Address, input []byte, gas uint64) (ret []byte, leftOverGas uint64, err error) {
	if evm.vmConfig.NoRecursion && evm.depth > 0 {
		return nil, gas, nil
	}
	if evm.depth > params.MaxCallDepth {
		evm.logDepthExceeded("DELEGATECALL", addr)
		return nil, gas, ErrDepth
	}

	stateSnap, balSnap := evm.enterFrame()

	codeAddr, code := evm.resolveCode(addr)
	contract := NewContract(caller, AccountRef(caller.Address()), nil, gas).AsDelegate()
	contract.SetCallCode(&codeAddr, common.Hash(code.Hash()), code)

	ret, err = evm.run(contract, input, false)
	if err != nil {
		evm.logFrameRevert(callRevertMeter, "DELEGATECALL", addr, err)
		evm.revertFrame(stateSnap, balSnap)
		if err != ErrExecutionReverted {
			contract.UseGas(contract.Gas)
		}
	} else {
		evm.commitFrame()
	}
	return ret, contract.Gas, err
}

// StaticCall executes addr's code with all state-modifying opcodes
// disallowed (§4.4 STATICCALL).
func (evm *EVM) StaticCall(caller ContractRef, addr common.Address, input []byte, gas uint64) (ret []byte, leftOverGas uint64, err error) {
	if evm.vmConfig.NoRecursion && evm.depth > 0 {
		return nil, gas, nil
	}
	if evm.depth > params.MaxCallDepth {
		evm.logDepthExceeded("STATICCALL", addr)
		return nil, gas, ErrDepth
	}

	stateSnap, balSnap := evm.enterFrame()

	codeAddr, code := evm.resolveCode(addr)
	contract := NewContract(caller, AccountRef(addr), new(uint256.Int), gas)
	contract.SetCallCode(&codeAddr, common.Hash(code.Hash()), code)

	// Touch the account even though no value moves, so an empty account
	// observed only through a STATICCALL still shows up as accessed.
	evm.StateDB.GetAccount(addr)

	ret, err = evm.run(contract, input, true)
	if err != nil {
		evm.logFrameRevert(callRevertMeter, "STATICCALL", addr, err)
		evm.revertFrame(stateSnap, balSnap)
		if err != ErrExecutionReverted {
			contract.UseGas(contract.Gas)
		}
	} else {
		evm.commitFrame()
	}
	return ret, contract.Gas, err
}

type codeAndHash struct {
	code []byte
	hash common.Hash
}

func (c *codeAndHash) Hash() common.Hash {
	if c.hash == (common.Hash{}) {
		c.hash = crypto.Keccak256Hash(c.code)
	}
	return c.hash
}

// create runs deployment code and installs its output as addr's code on
// success (§4.4 CREATE/CREATE2).
func (evm *EVM) create(caller ContractRef, ch *codeAndHash, gas uint64, value *uint256.Int, addr common.Address) ([]byte, common.Address, uint64, error) {
	if evm.depth > params.MaxCallDepth {
		evm.logDepthExceeded("CREATE", addr)
		return nil, common.Address{}, gas, ErrDepth
	}
	if !evm.CanTransfer(evm.StateDB, caller.Address(), value) {
		return nil, common.Address{}, gas, ErrInsufficientBalance
	}

	nonce := evm.StateDB.GetAccount(caller.Address()).Nonce
	if nonce+1 == 0 {
		return nil, common.Address{}, gas, ErrNonceUintOverflow
	}
	evm.StateDB.SetNonce(caller.Address(), nonce+1)

	existing := evm.StateDB.GetAccount(addr)
	existingCodeHash := common.BytesToHash(existing.CodeHash)
	if existing.Nonce != 0 || (existingCodeHash != common.Hash{} && existingCodeHash != types.EmptyCodeHash) {
		log.Warn("create address collision", "addr", addr, "depth", evm.depth)
		return nil, common.Address{}, 0, ErrContractAddressCollision
	}

	stateSnap, balSnap := evm.enterFrame()
	evm.StateDB.SetNonce(addr, 1)
	evm.Substate.MarkCreated(addr)
	evm.transfer(caller.Address(), addr, value)

	contract := NewContract(caller, AccountRef(addr), value, gas)
	contract.SetCode(ch.code)

	if evm.vmConfig.NoRecursion && evm.depth > 0 {
		evm.Substate.RevertBackup()
		return nil, addr, gas, nil
	}

	ret, err := evm.run(contract, nil, false)

	maxCodeSizeExceeded := len(ret) > params.MaxCodeSize
	if err == nil && !maxCodeSizeExceeded {
		if len(ret) > 0 && ret[0] == 0xEF {
			err = ErrInvalidCodeEntry
		}
	}
	if err == nil && !maxCodeSizeExceeded {
		createDataGas := uint64(len(ret)) * params.CreateDataGas
		if contract.UseGas(createDataGas) {
			evm.StateDB.AddAccountCode(addr, ret)
		} else {
			err = ErrCodeStoreOutOfGas
		}
	}

	if maxCodeSizeExceeded && err == nil {
		err = ErrMaxCodeSizeExceeded
	}
	if maxCodeSizeExceeded || err != nil {
		evm.logFrameRevert(createRevertMeter, "CREATE", addr, err)
		evm.revertFrame(stateSnap, balSnap)
		if err != ErrExecutionReverted {
			contract.UseGas(contract.Gas)
		}
	} else {
		evm.commitFrame()
	}
	return ret, addr, contract.Gas, err
}

// Create deploys code under the sender's next CREATE address (§4.4 CREATE).
func (evm *EVM) Create(caller ContractRef, code []byte, gas uint64, value *uint256.Int) (ret []byte, contractAddr common.Address, leftOverGas uint64, err error) {
	contractAddr = crypto.CreateAddress(caller.Address(), evm.StateDB.GetAccount(caller.Address()).Nonce)
	return evm.create(caller, &codeAndHash{code: code}, gas, value, contractAddr)
}

// Create2 deploys code under the CREATE2 deterministic address, derived
// from salt and the init code's hash rather than the sender's nonce
// (§4.4 CREATE2).
func (evm *EVM) Create2(caller ContractRef, code []byte, gas uint64, endowment *uint256.Int, salt *uint256.Int) (ret []byte, contractAddr common.Address, leftOverGas uint64, err error) {
	ch := &codeAndHash{code: code}
	contractAddr = crypto.CreateAddress2(caller.Address(), salt.Bytes32(), ch.Hash().Bytes())
	return evm.create(caller, ch, gas, endowment, contractAddr)
}
