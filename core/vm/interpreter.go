package vm

// ScopeContext groups the three pieces of mutable state one call frame's
// handlers operate on (§4.4 Call frame and opcode dispatch).
type ScopeContext struct {
	Memory   *Memory
	Stack    *Stack
	Contract *Contract
}

// EVMInterpreter drives one call frame's fetch-charge-execute loop. One
// is built per EVM (NewEVM) and shared by every frame of that EVM; Run
// clears returnData on entry, so a frame never sees return data left by
// its caller.
type EVMInterpreter struct {
	evm   *EVM
	table *JumpTable

	// returnData is the last call's return data, the value RETURNDATASIZE/
	// RETURNDATACOPY read from within this frame (§4.4).
	returnData []byte
}

// NewEVMInterpreter returns an interpreter bound to evm, with the
// instruction set resolved for evm's active fork rules.
func NewEVMInterpreter(evm *EVM) *EVMInterpreter {
	return &EVMInterpreter{evm: evm, table: newInstructionSet(evm.chainRules)}
}

// Run executes contract's code against input and returns its output. A
// non-nil err means the frame halted exceptionally (the caller consumes
// all remaining gas) except for ErrExecutionReverted, which preserves
// both the frame's remaining gas and its returned output (§4.4, §7).
func (in *EVMInterpreter) Run(contract *Contract, input []byte, readOnly bool) (ret []byte, err error) {
	in.evm.depth++
	defer func() { in.evm.depth-- }()
	in.returnData = nil

	var (
		op    OpCode
		mem   = NewMemory()
		stack = newStack()
		pc    = uint64(0)
		scope = &ScopeContext{Memory: mem, Stack: stack, Contract: contract}
	)
	defer returnStack(stack)

	contract.Input = input

	for {
		if in.evm.Cancelled() {
			return nil, ErrExecutionCancelled
		}

		op = contract.GetOp(pc)
		operation := in.table[op]
		if operation == nil {
			return nil, ErrInvalidOpcode
		}
		if err := stackValidationFunc(operation.minStack, operation.maxStack)(stack); err != nil {
			return nil, err
		}
		if readOnly && (operation.writes || (op == CALL && !stack.Back(2).IsZero())) {
			return nil, ErrWriteProtection
		}

		if !contract.UseGas(operation.constantGas) {
			return nil, ErrOutOfGas
		}

		var memorySize uint64
		if operation.memorySize != nil {
			size, overflow := operation.memorySize(stack)
			if overflow {
				return nil, ErrGasUintOverflow
			}
			memorySize = toWordSize(size) * 32
		}

		if operation.dynamicGas != nil {
			dynCost, err := operation.dynamicGas(in.evm, contract, stack, mem, memorySize)
			if err != nil {
				return nil, err
			}
			if !contract.UseGas(dynCost) {
				return nil, ErrOutOfGas
			}
		}
		if memorySize > 0 {
			mem.Resize(memorySize)
		}

		res, err := operation.execute(&pc, in, scope)
		if err == ErrExecutionReverted {
			return res, err
		}
		if err != nil {
			return nil, err
		}
		if res != nil {
			in.returnData = res
		} else if op == STOP {
			in.returnData = nil
		}

		if operation.halts {
			return res, nil
		}
		if !operation.jumps {
			pc++
		}
	}
}

// ReturnData is the current frame's most recent child-call (or own halt)
// output, the value RETURNDATASIZE/RETURNDATACOPY read from (§4.4).
func (in *EVMInterpreter) ReturnData() []byte { return in.returnData }
