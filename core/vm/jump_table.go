package vm

import "github.com/ethcore/execevm/params"

// executionFunc is one opcode's handler: it mutates the stack/memory/
// contract in scope and returns output bytes (non-nil only for RETURN and
// REVERT, and for CREATE/CREATE2 when the init code reverted, where they
// become the frame's return data) or an error that halts the frame.
type executionFunc func(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error)

// gasFunc computes an opcode's dynamic gas component (beyond its fixed
// constantGas), given the stack and the already-resolved memory size in
// bytes the opcode will touch (§4.3 Environment and gas model).
type gasFunc func(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error)

// memorySizeFunc returns the highest memory offset (bytes) an opcode's
// operands require, and whether computing it overflowed uint64.
type memorySizeFunc func(stack *Stack) (size uint64, overflow bool)

type operation struct {
	execute     executionFunc
	constantGas uint64
	dynamicGas  gasFunc
	minStack    int
	maxStack    int
	memorySize  memorySizeFunc
	// halts reports whether this opcode terminates the frame unconditionally
	// after executing (STOP/RETURN/REVERT/SELFDESTRUCT), as opposed to ones
	// that only sometimes do (none in this set — JUMP/CALL family continue).
	halts bool
	// writes reports whether this opcode unconditionally mutates state
	// (SSTORE/LOG*/CREATE*/SELFDESTRUCT), the set the interpreter rejects
	// inside a STATICCALL frame (§4.4 STATICCALL). CALL's conditional
	// value-transfer write is checked separately by the interpreter.
	writes bool
	// jumps reports whether the handler sets *pc itself (JUMP/JUMPI), so
	// the interpreter's fetch-execute loop must skip its own pc++ (§4.5).
	jumps bool
}

// JumpTable is the fork-specific dispatch table: 256 slots, nil for
// opcodes undefined at the active fork (dispatch treats nil as
// ErrInvalidOpcode).
type JumpTable [256]*operation

func minSwapStack(n int) int { return n }
func maxSwapStack(n int) int { return n }
func minDupStack(n int) int  { return n }
func maxDupStack(n int) int  { return n + 1 }

// newInstructionSet builds the dispatch table active for rules, gating
// PUSH0 (Shanghai), TLOAD/TSTORE/MCOPY (Cancun), and SLOTNUMBER
// (Amsterdam) on the resolved fork rules rather than cascading
// per-fork copies the way the teacher's upstream go-ethereum does —
// acceptable here because this spec targets one always-current rule set
// per execution rather than archiving every historical fork's table.
func newInstructionSet(rules params.Rules) *JumpTable {
	jt := newBaseInstructionSet()
	if rules.IsShanghai {
		jt[PUSH0] = &operation{execute: opPush0, constantGas: GasQuickStep, minStack: 0, maxStack: 1}
	}
	if rules.IsCancun {
		jt[TLOAD] = &operation{execute: opTload, constantGas: params.WarmStorageReadCostEIP2929, minStack: 1, maxStack: 1}
		jt[TSTORE] = &operation{execute: opTstore, constantGas: params.WarmStorageReadCostEIP2929, minStack: 2, maxStack: 0}
		jt[MCOPY] = &operation{execute: opMcopy, constantGas: GasFastestStep, dynamicGas: gasMcopy, minStack: 3, maxStack: 0, memorySize: memoryMcopy}
		jt[BLOBHASH] = &operation{execute: opBlobHash, constantGas: GasFastestStep, minStack: 1, maxStack: 1}
		jt[BLOBBASEFEE] = &operation{execute: opBlobBaseFee, constantGas: GasQuickStep, minStack: 0, maxStack: 1}
	}
	if rules.IsAmsterdam {
		jt[SLOTNUMBER] = &operation{execute: opSlotNumber, constantGas: GasQuickStep, minStack: 0, maxStack: 1}
	}
	if rules.IsPrague {
		// EIP-7702: calling into an address carrying a delegation
		// designator charges an extra cold/warm access for the eventual
		// code owner, on top of the plain EIP-2929 call cost.
		jt[CALL].dynamicGas = gasCallEIP7702
		jt[CALLCODE].dynamicGas = gasCallCodeEIP7702
		jt[DELEGATECALL].dynamicGas = gasDelegateCallEIP7702
		jt[STATICCALL].dynamicGas = gasStaticCallEIP7702
	}
	return jt
}

func newBaseInstructionSet() *JumpTable {
	var jt JumpTable

	jt[STOP] = &operation{execute: opStop, constantGas: 0, minStack: 0, maxStack: 0, halts: true}
	jt[ADD] = &operation{execute: opAdd, constantGas: GasFastestStep, minStack: 2, maxStack: 1}
	jt[MUL] = &operation{execute: opMul, constantGas: GasFastStep, minStack: 2, maxStack: 1}
	jt[SUB] = &operation{execute: opSub, constantGas: GasFastestStep, minStack: 2, maxStack: 1}
	jt[DIV] = &operation{execute: opDiv, constantGas: GasFastStep, minStack: 2, maxStack: 1}
	jt[SDIV] = &operation{execute: opSdiv, constantGas: GasFastStep, minStack: 2, maxStack: 1}
	jt[MOD] = &operation{execute: opMod, constantGas: GasFastStep, minStack: 2, maxStack: 1}
	jt[SMOD] = &operation{execute: opSmod, constantGas: GasFastStep, minStack: 2, maxStack: 1}
	jt[ADDMOD] = &operation{execute: opAddmod, constantGas: GasMidStep, minStack: 3, maxStack: 1}
	jt[MULMOD] = &operation{execute: opMulmod, constantGas: GasMidStep, minStack: 3, maxStack: 1}
	jt[EXP] = &operation{execute: opExp, constantGas: GasSlowStep, dynamicGas: gasExp, minStack: 2, maxStack: 1}
	jt[SIGNEXTEND] = &operation{execute: opSignExtend, constantGas: GasFastStep, minStack: 2, maxStack: 1}

	jt[LT] = &operation{execute: opLt, constantGas: GasFastestStep, minStack: 2, maxStack: 1}
	jt[GT] = &operation{execute: opGt, constantGas: GasFastestStep, minStack: 2, maxStack: 1}
	jt[SLT] = &operation{execute: opSlt, constantGas: GasFastestStep, minStack: 2, maxStack: 1}
	jt[SGT] = &operation{execute: opSgt, constantGas: GasFastestStep, minStack: 2, maxStack: 1}
	jt[EQ] = &operation{execute: opEq, constantGas: GasFastestStep, minStack: 2, maxStack: 1}
	jt[ISZERO] = &operation{execute: opIszero, constantGas: GasFastestStep, minStack: 1, maxStack: 1}
	jt[AND] = &operation{execute: opAnd, constantGas: GasFastestStep, minStack: 2, maxStack: 1}
	jt[OR] = &operation{execute: opOr, constantGas: GasFastestStep, minStack: 2, maxStack: 1}
	jt[XOR] = &operation{execute: opXor, constantGas: GasFastestStep, minStack: 2, maxStack: 1}
	jt[NOT] = &operation{execute: opNot, constantGas: GasFastestStep, minStack: 1, maxStack: 1}
	jt[BYTE] = &operation{execute: opByte, constantGas: GasFastestStep, minStack: 2, maxStack: 1}
	jt[SHL] = &operation{execute: opShl, constantGas: GasFastestStep, minStack: 2, maxStack: 1}
	jt[SHR] = &operation{execute: opShr, constantGas: GasFastestStep, minStack: 2, maxStack: 1}
	jt[SAR] = &operation{execute: opSar, constantGas: GasFastestStep, minStack: 2, maxStack: 1}

	jt[KECCAK256] = &operation{execute: opKeccak256, constantGas: params.Keccak256Gas, dynamicGas: gasKeccak256, minStack: 2, maxStack: 1, memorySize: memoryKeccak256}

	jt[ADDRESS] = &operation{execute: opAddress, constantGas: GasQuickStep, minStack: 0, maxStack: 1}
	jt[BALANCE] = &operation{execute: opBalance, constantGas: params.WarmStorageReadCostEIP2929, dynamicGas: gasBalanceEIP2929, minStack: 1, maxStack: 1}
	jt[ORIGIN] = &operation{execute: opOrigin, constantGas: GasQuickStep, minStack: 0, maxStack: 1}
	jt[CALLER] = &operation{execute: opCaller, constantGas: GasQuickStep, minStack: 0, maxStack: 1}
	jt[CALLVALUE] = &operation{execute: opCallValue, constantGas: GasQuickStep, minStack: 0, maxStack: 1}
	jt[CALLDATALOAD] = &operation{execute: opCallDataLoad, constantGas: GasFastestStep, minStack: 1, maxStack: 1}
	jt[CALLDATASIZE] = &operation{execute: opCallDataSize, constantGas: GasQuickStep, minStack: 0, maxStack: 1}
	jt[CALLDATACOPY] = &operation{execute: opCallDataCopy, constantGas: GasFastestStep, dynamicGas: gasCallDataCopy, minStack: 3, maxStack: 0, memorySize: memoryCallDataCopy}
	jt[CODESIZE] = &operation{execute: opCodeSize, constantGas: GasQuickStep, minStack: 0, maxStack: 1}
	jt[CODECOPY] = &operation{execute: opCodeCopy, constantGas: GasFastestStep, dynamicGas: gasCodeCopy, minStack: 3, maxStack: 0, memorySize: memoryCodeCopy}
	jt[GASPRICE] = &operation{execute: opGasprice, constantGas: GasQuickStep, minStack: 0, maxStack: 1}
	jt[EXTCODESIZE] = &operation{execute: opExtCodeSize, constantGas: params.WarmStorageReadCostEIP2929, dynamicGas: gasExtCodeSizeEIP2929, minStack: 1, maxStack: 1}
	jt[EXTCODECOPY] = &operation{execute: opExtCodeCopy, constantGas: params.WarmStorageReadCostEIP2929, dynamicGas: gasExtCodeCopyEIP2929, minStack: 4, maxStack: 0, memorySize: memoryExtCodeCopy}
	jt[RETURNDATASIZE] = &operation{execute: opReturnDataSize, constantGas: GasQuickStep, minStack: 0, maxStack: 1}
	jt[RETURNDATACOPY] = &operation{execute: opReturnDataCopy, constantGas: GasFastestStep, dynamicGas: gasReturnDataCopy, minStack: 3, maxStack: 0, memorySize: memoryReturnDataCopy}
	jt[EXTCODEHASH] = &operation{execute: opExtCodeHash, constantGas: params.WarmStorageReadCostEIP2929, dynamicGas: gasExtCodeHashEIP2929, minStack: 1, maxStack: 1}

	jt[BLOCKHASH] = &operation{execute: opBlockhash, constantGas: GasExtStep, minStack: 1, maxStack: 1}
	jt[COINBASE] = &operation{execute: opCoinbase, constantGas: GasQuickStep, minStack: 0, maxStack: 1}
	jt[TIMESTAMP] = &operation{execute: opTimestamp, constantGas: GasQuickStep, minStack: 0, maxStack: 1}
	jt[NUMBER] = &operation{execute: opNumber, constantGas: GasQuickStep, minStack: 0, maxStack: 1}
	jt[PREVRANDAO] = &operation{execute: opRandom, constantGas: GasQuickStep, minStack: 0, maxStack: 1}
	jt[GASLIMIT] = &operation{execute: opGasLimit, constantGas: GasQuickStep, minStack: 0, maxStack: 1}
	jt[CHAINID] = &operation{execute: opChainID, constantGas: GasQuickStep, minStack: 0, maxStack: 1}
	jt[SELFBALANCE] = &operation{execute: opSelfBalance, constantGas: params.WarmStorageReadCostEIP2929, minStack: 0, maxStack: 1}
	jt[BASEFEE] = &operation{execute: opBaseFee, constantGas: GasQuickStep, minStack: 0, maxStack: 1}

	jt[POP] = &operation{execute: opPop, constantGas: GasQuickStep, minStack: 1, maxStack: 0}
	jt[MLOAD] = &operation{execute: opMload, constantGas: GasFastestStep, dynamicGas: gasMLoad, minStack: 1, maxStack: 1, memorySize: memoryMLoad}
	jt[MSTORE] = &operation{execute: opMstore, constantGas: GasFastestStep, dynamicGas: gasMStore, minStack: 2, maxStack: 0, memorySize: memoryMStore}
	jt[MSTORE8] = &operation{execute: opMstore8, constantGas: GasFastestStep, dynamicGas: gasMStore8, minStack: 2, maxStack: 0, memorySize: memoryMStore8}
	jt[SLOAD] = &operation{execute: opSload, constantGas: params.WarmStorageReadCostEIP2929, dynamicGas: gasSLoadEIP2929, minStack: 1, maxStack: 1}
	jt[SSTORE] = &operation{execute: opSstore, dynamicGas: gasSStoreEIP3529, minStack: 2, maxStack: 0, writes: true}
	jt[JUMP] = &operation{execute: opJump, constantGas: GasMidStep, minStack: 1, maxStack: 0, jumps: true}
	jt[JUMPI] = &operation{execute: opJumpi, constantGas: GasSlowStep, minStack: 2, maxStack: 0, jumps: true}
	jt[PC] = &operation{execute: opPc, constantGas: GasQuickStep, minStack: 0, maxStack: 1}
	jt[MSIZE] = &operation{execute: opMsize, constantGas: GasQuickStep, minStack: 0, maxStack: 1}
	jt[GAS] = &operation{execute: opGas, constantGas: GasQuickStep, minStack: 0, maxStack: 1}
	jt[JUMPDEST] = &operation{execute: opJumpdest, constantGas: params.JumpdestGas, minStack: 0, maxStack: 0}

	for i := 1; i <= 32; i++ {
		jt[int(PUSH1)+i-1] = &operation{execute: makePush(uint64(i)), constantGas: GasFastestStep, minStack: 0, maxStack: 1}
	}
	for i := 0; i < 16; i++ {
		jt[int(DUP1)+i] = &operation{execute: makeDup(i + 1), constantGas: GasFastestStep, minStack: minDupStack(i + 1), maxStack: maxDupStack(i + 1)}
	}
	for i := 0; i < 16; i++ {
		jt[int(SWAP1)+i] = &operation{execute: makeSwap(i + 1), constantGas: GasFastestStep, minStack: minSwapStack(i + 2), maxStack: maxSwapStack(i + 2)}
	}
	for i := 0; i < 5; i++ {
		jt[int(LOG0)+i] = &operation{execute: makeLog(i), constantGas: params.LogGas, dynamicGas: makeGasLog(uint64(i)), minStack: i + 2, maxStack: 0, memorySize: memoryLog, writes: true}
	}

	jt[CREATE] = &operation{execute: opCreate, constantGas: params.CreateGas, dynamicGas: gasCreate, minStack: 3, maxStack: 1, memorySize: memoryCreate, writes: true}
	jt[CALL] = &operation{execute: opCall, constantGas: params.WarmStorageReadCostEIP2929, dynamicGas: gasCallEIP2929, minStack: 7, maxStack: 1, memorySize: memoryCall}
	jt[CALLCODE] = &operation{execute: opCallCode, constantGas: params.WarmStorageReadCostEIP2929, dynamicGas: gasCallCodeEIP2929, minStack: 7, maxStack: 1, memorySize: memoryCall}
	jt[RETURN] = &operation{execute: opReturn, dynamicGas: gasReturn, minStack: 2, maxStack: 0, memorySize: memoryReturn, halts: true}
	jt[DELEGATECALL] = &operation{execute: opDelegateCall, constantGas: params.WarmStorageReadCostEIP2929, dynamicGas: gasDelegateCallEIP2929, minStack: 6, maxStack: 1, memorySize: memoryDelegateCall}
	jt[CREATE2] = &operation{execute: opCreate2, constantGas: params.Create2Gas, dynamicGas: gasCreate2, minStack: 4, maxStack: 1, memorySize: memoryCreate2, writes: true}
	jt[STATICCALL] = &operation{execute: opStaticCall, constantGas: params.WarmStorageReadCostEIP2929, dynamicGas: gasStaticCallEIP2929, minStack: 6, maxStack: 1, memorySize: memoryStaticCall}
	jt[REVERT] = &operation{execute: opRevert, dynamicGas: gasRevert, minStack: 2, maxStack: 0, memorySize: memoryRevert, halts: true}
	jt[INVALID] = &operation{execute: opInvalid, minStack: 0, maxStack: 0, halts: true}
	jt[SELFDESTRUCT] = &operation{execute: opSelfdestruct, dynamicGas: gasSelfdestructEIP3529, minStack: 1, maxStack: 0, halts: true, writes: true}

	return &jt
}
