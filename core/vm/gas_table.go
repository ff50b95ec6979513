package vm

import (
	"github.com/ethcore/execevm/common"
	"github.com/ethcore/execevm/core/types"
	"github.com/ethcore/execevm/params"
	"github.com/holiman/uint256"
)

// Fixed per-step gas costs (§4.3): the Yellow Paper's named tiers, used by
// the base instruction set's constantGas fields.
const (
	GasQuickStep   uint64 = 2
	GasFastestStep uint64 = 3
	GasFastStep    uint64 = 5
	GasMidStep     uint64 = 8
	GasSlowStep    uint64 = 10
	GasExtStep     uint64 = 20
)

// memoryGasCost is the quadratic-plus-linear cost of expanding memory up to
// newMemSize bytes (§4.3): only the marginal cost of growth beyond the
// frame's already-paid-for size is charged.
//
// Ground truth for this formula is the teacher's own memoryGasCost, minus
// its multigas.MultiGas wrapping: this spec's gas model (§4.3) has no
// storage-growth/storage-access/computation split, so every gas function
// in this file returns a single uint64 instead of a resource-tagged
// struct.
func memoryGasCost(mem *Memory, newMemSize uint64) (uint64, error) {
	if newMemSize == 0 {
		return 0, nil
	}
	if newMemSize > 0x1FFFFFFFE0 {
		return 0, ErrGasUintOverflow
	}
	newMemSizeWords := toWordSize(newMemSize)
	newMemSize = newMemSizeWords * 32

	if newMemSize > uint64(mem.Len()) {
		square := newMemSizeWords * newMemSizeWords
		linCoef := newMemSizeWords * params.MemoryGas
		quadCoef := square / params.QuadCoeffDiv
		newTotalFee := linCoef + quadCoef

		fee := newTotalFee - mem.lastGasCost
		mem.lastGasCost = newTotalFee
		return fee, nil
	}
	return 0, nil
}

func calcMemSize64(off, size uint64) (uint64, bool) {
	sum := off + size
	return sum, sum < off
}

// memSizeForOffsetLen is the common memorySizeFunc shape for opcodes whose
// memory touch is an (offset, length) stack pair; a zero length never
// grows memory regardless of offset (§4.4).
func memSizeForOffsetLen(off, length *uint256.Int) (uint64, bool) {
	if length.IsZero() {
		return 0, false
	}
	o, overflow := off.Uint64WithOverflow()
	if overflow {
		return 0, true
	}
	l, overflow := length.Uint64WithOverflow()
	if overflow {
		return 0, true
	}
	return calcMemSize64(o, l)
}

func mustU64(v *uint256.Int) uint64 {
	n, overflow := v.Uint64WithOverflow()
	if overflow {
		return ^uint64(0)
	}
	return n
}

func safeAdd(a, b uint64) (uint64, bool) {
	sum := a + b
	return sum, sum < a
}

func safeAddOrErr(a, b uint64) (uint64, error) {
	sum, overflow := safeAdd(a, b)
	if overflow {
		return 0, ErrGasUintOverflow
	}
	return sum, nil
}

func safeMul(a, b uint64) (uint64, bool) {
	if a == 0 || b == 0 {
		return 0, false
	}
	c := a * b
	return c, c/b != a
}

// --- memory size functions (§4.4), one per opcode family touching memory ---

func memoryKeccak256(stack *Stack) (uint64, bool) {
	return memSizeForOffsetLen(stack.Back(0), stack.Back(1))
}

func memoryCallDataCopy(stack *Stack) (uint64, bool) {
	return memSizeForOffsetLen(stack.Back(0), stack.Back(2))
}

func memoryCodeCopy(stack *Stack) (uint64, bool) {
	return memSizeForOffsetLen(stack.Back(0), stack.Back(2))
}

func memoryExtCodeCopy(stack *Stack) (uint64, bool) {
	return memSizeForOffsetLen(stack.Back(1), stack.Back(3))
}

func memoryReturnDataCopy(stack *Stack) (uint64, bool) {
	return memSizeForOffsetLen(stack.Back(0), stack.Back(2))
}

func memoryMLoad(stack *Stack) (uint64, bool) { return calcMemSize64(mustU64(stack.Back(0)), 32) }

func memoryMStore(stack *Stack) (uint64, bool) { return calcMemSize64(mustU64(stack.Back(0)), 32) }

func memoryMStore8(stack *Stack) (uint64, bool) { return calcMemSize64(mustU64(stack.Back(0)), 1) }

func memoryMcopy(stack *Stack) (uint64, bool) {
	dst, src := mustU64(stack.Back(0)), mustU64(stack.Back(1))
	size := mustU64(stack.Back(2))
	d, o1 := calcMemSize64(dst, size)
	s, o2 := calcMemSize64(src, size)
	if o1 || o2 {
		return 0, true
	}
	if d > s {
		return d, false
	}
	return s, false
}

func memoryLog(stack *Stack) (uint64, bool) {
	return memSizeForOffsetLen(stack.Back(0), stack.Back(1))
}

func memoryCreate(stack *Stack) (uint64, bool) {
	return memSizeForOffsetLen(stack.Back(1), stack.Back(2))
}

func memoryCreate2(stack *Stack) (uint64, bool) {
	return memSizeForOffsetLen(stack.Back(1), stack.Back(2))
}

func memoryCall(stack *Stack) (uint64, bool) {
	a, o1 := memSizeForOffsetLen(stack.Back(3), stack.Back(4))
	b, o2 := memSizeForOffsetLen(stack.Back(5), stack.Back(6))
	if o1 || o2 {
		return 0, true
	}
	if a > b {
		return a, false
	}
	return b, false
}

func memoryDelegateCall(stack *Stack) (uint64, bool) {
	a, o1 := memSizeForOffsetLen(stack.Back(2), stack.Back(3))
	b, o2 := memSizeForOffsetLen(stack.Back(4), stack.Back(5))
	if o1 || o2 {
		return 0, true
	}
	if a > b {
		return a, false
	}
	return b, false
}

func memoryStaticCall(stack *Stack) (uint64, bool) { return memoryDelegateCall(stack) }

func memoryReturn(stack *Stack) (uint64, bool) {
	return memSizeForOffsetLen(stack.Back(0), stack.Back(1))
}

func memoryRevert(stack *Stack) (uint64, bool) { return memoryReturn(stack) }

// --- dynamic gas functions (§4.3/§4.4) ---

func gasKeccak256(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	gas, err := memoryGasCost(mem, memorySize)
	if err != nil {
		return 0, err
	}
	words := toWordSize(mustU64(stack.Back(1)))
	wordGas, overflow := safeMul(words, params.Keccak256WordGas)
	if overflow {
		return 0, ErrGasUintOverflow
	}
	return safeAddOrErr(gas, wordGas)
}

func copyGas(mem *Memory, memorySize, size uint64) (uint64, error) {
	gas, err := memoryGasCost(mem, memorySize)
	if err != nil {
		return 0, err
	}
	wordGas, overflow := safeMul(toWordSize(size), params.CopyGas)
	if overflow {
		return 0, ErrGasUintOverflow
	}
	return safeAddOrErr(gas, wordGas)
}

func gasCallDataCopy(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	return copyGas(mem, memorySize, mustU64(stack.Back(2)))
}

func gasCodeCopy(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	return copyGas(mem, memorySize, mustU64(stack.Back(2)))
}

func gasReturnDataCopy(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	return copyGas(mem, memorySize, mustU64(stack.Back(2)))
}

func gasMcopy(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	return copyGas(mem, memorySize, mustU64(stack.Back(2)))
}

// gasExtCodeCopyEIP2929 charges the copy cost plus the EIP-2929 cold/warm
// access surcharge for the external address being copied from.
func gasExtCodeCopyEIP2929(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	gas, err := copyGas(mem, memorySize, mustU64(stack.Back(3)))
	if err != nil {
		return 0, err
	}
	addr := common.Address(stack.Back(0).Bytes20())
	accessGas, err := gasEip2929AccountCheck(evm, addr)
	if err != nil {
		return 0, err
	}
	return safeAddOrErr(gas, accessGas)
}

// gasEip2929AccountCheck charges ColdAccountAccessCostEIP2929 minus the
// warm cost already folded into the opcode's constantGas, the first time
// addr is touched in a transaction; 0 on every later access (EIP-2929).
func gasEip2929AccountCheck(evm *EVM, addr common.Address) (uint64, error) {
	if evm.Substate.AddAccessedAddress(addr) {
		return 0, nil
	}
	return params.ColdAccountAccessCostEIP2929 - params.WarmStorageReadCostEIP2929, nil
}

func gasBalanceEIP2929(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	return gasEip2929AccountCheck(evm, common.Address(stack.Back(0).Bytes20()))
}

func gasExtCodeSizeEIP2929(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	return gasEip2929AccountCheck(evm, common.Address(stack.Back(0).Bytes20()))
}

func gasExtCodeHashEIP2929(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	return gasEip2929AccountCheck(evm, common.Address(stack.Back(0).Bytes20()))
}

// gasSLoadEIP2929 charges the cold-slot premium the first time (addr, key)
// is touched in a transaction, otherwise only the warm cost already in
// the opcode's constantGas.
func gasSLoadEIP2929(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	key := common.Hash(stack.Back(0).Bytes32())
	if evm.Substate.AddAccessedSlot(contract.Address(), key) {
		return 0, nil
	}
	return params.ColdSloadCostEIP2929 - params.WarmStorageReadCostEIP2929, nil
}

// makeGasSStoreFunc builds the EIP-2200/EIP-2929/EIP-3529 SSTORE gas and
// refund calculation, parameterised on the slot-clearing refund (4800
// post EIP-3529). Grounded on the teacher's gasSStoreEIP2200, adapted to
// return a scalar uint64 per this package's gas-model simplification,
// and folded into the warm/cold EIP-2929 access cost instead of a flat
// SloadGasEIP2200.
func makeGasSStoreFunc(clearingRefund uint64) gasFunc {
	return func(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
		if contract.Gas <= params.SstoreSentryGasEIP2200 {
			return 0, ErrOutOfGas
		}
		var (
			addr    = contract.Address()
			key     = common.Hash(stack.Back(0).Bytes32())
			newVal  = common.Hash(stack.Back(1).Bytes32())
			current = evm.StateDB.GetStorage(addr, key)
			cold    uint64
		)
		if !evm.Substate.AddAccessedSlot(addr, key) {
			cold = params.ColdSloadCostEIP2929
		}
		if current == newVal {
			return safeAddOrErr(cold, params.WarmStorageReadCostEIP2929)
		}
		original := evm.StateDB.GetCommittedStorage(addr, key)
		if original == current {
			if original == (common.Hash{}) {
				return safeAddOrErr(cold, params.SstoreSetGasEIP2200)
			}
			if newVal == (common.Hash{}) {
				evm.Substate.AddRefund(clearingRefund)
			}
			return safeAddOrErr(cold, params.SstoreResetGasEIP2200-params.ColdSloadCostEIP2929)
		}
		if original != (common.Hash{}) {
			if current == (common.Hash{}) {
				evm.Substate.SubRefund(clearingRefund)
			} else if newVal == (common.Hash{}) {
				evm.Substate.AddRefund(clearingRefund)
			}
		}
		if original == newVal {
			if original == (common.Hash{}) {
				evm.Substate.AddRefund(params.SstoreSetGasEIP2200 - params.WarmStorageReadCostEIP2929)
			} else {
				evm.Substate.AddRefund(params.SstoreResetGasEIP2200 - params.ColdSloadCostEIP2929 - params.WarmStorageReadCostEIP2929)
			}
		}
		return safeAddOrErr(cold, params.WarmStorageReadCostEIP2929)
	}
}

var gasSStoreEIP3529 = makeGasSStoreFunc(params.SstoreClearsScheduleRefundEIP3529)

func gasMLoad(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	return memoryGasCost(mem, memorySize)
}

func gasMStore(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	return memoryGasCost(mem, memorySize)
}

func gasMStore8(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	return memoryGasCost(mem, memorySize)
}

func gasExp(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	byteLen := uint64((stack.Back(1).BitLen() + 7) / 8)
	gas, overflow := safeMul(byteLen, params.ExpByteEIP158)
	if overflow {
		return 0, ErrGasUintOverflow
	}
	return safeAddOrErr(gas, params.ExpGas)
}

func makeGasLog(n uint64) gasFunc {
	return func(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
		gas, err := memoryGasCost(mem, memorySize)
		if err != nil {
			return 0, err
		}
		topicGas, overflow := safeMul(params.LogTopicGas, n)
		if overflow {
			return 0, ErrGasUintOverflow
		}
		if gas, overflow = safeAdd(gas, topicGas); overflow {
			return 0, ErrGasUintOverflow
		}
		byteGas, overflow := safeMul(mustU64(stack.Back(1)), params.LogDataGas)
		if overflow {
			return 0, ErrGasUintOverflow
		}
		return safeAddOrErr(gas, byteGas)
	}
}

// gasCreate charges the EIP-3860 init-code-word cost in addition to
// memory expansion; CREATE has no address-precompute hashing cost, unlike
// CREATE2.
func gasCreate(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	gas, err := memoryGasCost(mem, memorySize)
	if err != nil {
		return 0, err
	}
	size := mustU64(stack.Back(2))
	if size > params.MaxInitCodeSize {
		return 0, ErrMaxInitCodeSizeExceeded
	}
	initGas, overflow := safeMul(toWordSize(size), params.InitCodeWordGas)
	if overflow {
		return 0, ErrGasUintOverflow
	}
	return safeAddOrErr(gas, initGas)
}

func gasCreate2(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	gas, err := gasCreate(evm, contract, stack, mem, memorySize)
	if err != nil {
		return 0, err
	}
	hashGas, overflow := safeMul(toWordSize(mustU64(stack.Back(2))), params.Keccak256WordGas)
	if overflow {
		return 0, ErrGasUintOverflow
	}
	return safeAddOrErr(gas, hashGas)
}

func gasReturn(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	return memoryGasCost(mem, memorySize)
}

func gasRevert(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	return memoryGasCost(mem, memorySize)
}

// callGas applies EIP-150: the gas forwarded to a child call is at most
// floor(available * 63/64) after the parent pays the call's own base
// cost, capped at the amount the caller actually requested.
func callGas(availableGas, base, requested uint64) (uint64, error) {
	if availableGas < base {
		return 0, ErrOutOfGas
	}
	availableGas -= base
	gas := availableGas - availableGas/params.CallGas63Over64thDivisor
	if gas > requested {
		return requested, nil
	}
	return gas, nil
}

func gasCallEIP2929(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	addr := common.Address(stack.Back(1).Bytes20())
	transfersValue := !stack.Back(2).IsZero()

	gas, err := gasEip2929AccountCheck(evm, addr)
	if err != nil {
		return 0, err
	}
	var overflow bool
	if transfersValue && evm.StateDB.Empty(addr) {
		if gas, overflow = safeAdd(gas, params.CallNewAccountGas); overflow {
			return 0, ErrGasUintOverflow
		}
	}
	if transfersValue {
		if gas, overflow = safeAdd(gas, params.CallValueTransferGas); overflow {
			return 0, ErrGasUintOverflow
		}
	}
	memGas, err := memoryGasCost(mem, memorySize)
	if err != nil {
		return 0, err
	}
	if gas, overflow = safeAdd(gas, memGas); overflow {
		return 0, ErrGasUintOverflow
	}
	evm.callGasTemp, err = callGas(contract.Gas, gas, mustU64(stack.Back(0)))
	if err != nil {
		return 0, err
	}
	if gas, overflow = safeAdd(gas, evm.callGasTemp); overflow {
		return 0, ErrGasUintOverflow
	}
	return gas, nil
}

func gasCallCodeEIP2929(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	addr := common.Address(stack.Back(1).Bytes20())
	gas, err := gasEip2929AccountCheck(evm, addr)
	if err != nil {
		return 0, err
	}
	var overflow bool
	if !stack.Back(2).IsZero() {
		if gas, overflow = safeAdd(gas, params.CallValueTransferGas); overflow {
			return 0, ErrGasUintOverflow
		}
	}
	memGas, err := memoryGasCost(mem, memorySize)
	if err != nil {
		return 0, err
	}
	if gas, overflow = safeAdd(gas, memGas); overflow {
		return 0, ErrGasUintOverflow
	}
	evm.callGasTemp, err = callGas(contract.Gas, gas, mustU64(stack.Back(0)))
	if err != nil {
		return 0, err
	}
	if gas, overflow = safeAdd(gas, evm.callGasTemp); overflow {
		return 0, ErrGasUintOverflow
	}
	return gas, nil
}

func gasDelegateCallEIP2929(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	addr := common.Address(stack.Back(1).Bytes20())
	gas, err := gasEip2929AccountCheck(evm, addr)
	if err != nil {
		return 0, err
	}
	memGas, err := memoryGasCost(mem, memorySize)
	if err != nil {
		return 0, err
	}
	var overflow bool
	if gas, overflow = safeAdd(gas, memGas); overflow {
		return 0, ErrGasUintOverflow
	}
	evm.callGasTemp, err = callGas(contract.Gas, gas, mustU64(stack.Back(0)))
	if err != nil {
		return 0, err
	}
	if gas, overflow = safeAdd(gas, evm.callGasTemp); overflow {
		return 0, ErrGasUintOverflow
	}
	return gas, nil
}

func gasStaticCallEIP2929(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	return gasDelegateCallEIP2929(evm, contract, stack, mem, memorySize)
}

// makeSelfdestructGasFn charges the EIP-2929 cold-address surcharge for
// the beneficiary and, if the beneficiary is empty and the contract still
// carries a balance, the new-account creation cost (§4.4 SELFDESTRUCT).
func makeSelfdestructGasFn() gasFunc {
	return func(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
		var gas uint64
		beneficiary := common.Address(stack.Back(0).Bytes20())
		if !evm.Substate.AddressInAccessList(beneficiary) {
			evm.Substate.AddAccessedAddress(beneficiary)
			gas = params.ColdAccountAccessCostEIP2929
		}
		if evm.StateDB.Empty(beneficiary) && !evm.StateDB.GetAccount(contract.Address()).Balance.IsZero() {
			var overflow bool
			if gas, overflow = safeAdd(gas, params.CallNewAccountGas); overflow {
				return 0, ErrGasUintOverflow
			}
		}
		return gas, nil
	}
}

var gasSelfdestructEIP3529 = makeSelfdestructGasFn()

// makeCallVariantGasCallEIP7702 wraps a CALL-family gas function with the
// EIP-7702 delegation-resolution charge: when the callee address carries
// a delegation designator, resolving the eventual code owner costs an
// extra cold/warm account-access charge on top of the usual call cost
// (§4.4 EIP-7702).
func makeCallVariantGasCallEIP7702(oldCalculator gasFunc) gasFunc {
	return func(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
		addr := common.Address(stack.Back(1).Bytes20())
		if target, ok := types.ParseDelegation(evm.StateDB.GetCode(addr)); ok {
			var cost uint64
			if evm.Substate.AddAccessedAddress(target) {
				cost = params.WarmStorageReadCostEIP2929
			} else {
				cost = params.ColdAccountAccessCostEIP2929
			}
			if !contract.UseGas(cost) {
				return 0, ErrOutOfGas
			}
			gas, err := oldCalculator(evm, contract, stack, mem, memorySize)
			if err != nil {
				return 0, err
			}
			contract.Gas += cost
			return safeAddOrErr(gas, cost)
		}
		return oldCalculator(evm, contract, stack, mem, memorySize)
	}
}

var (
	gasCallEIP7702         = makeCallVariantGasCallEIP7702(gasCallEIP2929)
	gasDelegateCallEIP7702 = makeCallVariantGasCallEIP7702(gasDelegateCallEIP2929)
	gasStaticCallEIP7702   = makeCallVariantGasCallEIP7702(gasStaticCallEIP2929)
	gasCallCodeEIP7702     = makeCallVariantGasCallEIP7702(gasCallCodeEIP2929)
)
