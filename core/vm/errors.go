package vm

import "errors"

// Exceptional-halt errors (§4.4, §7): any of these consumes all remaining
// gas in the current frame and reverts DB/substate/BAL to the frame's
// checkpoint. ErrExecutionReverted is the one exception — it preserves
// remaining gas and the frame's output (the REVERT opcode's reason data).
var (
	ErrOutOfGas                 = errors.New("out of gas")
	ErrGasUintOverflow          = errors.New("gas uint64 overflow")
	ErrStackUnderflow           = errors.New("stack underflow")
	ErrStackOverflow            = errors.New("stack overflow")
	ErrInvalidJump              = errors.New("invalid jump destination")
	ErrInvalidOpcode            = errors.New("invalid opcode")
	ErrWriteProtection          = errors.New("write protection")
	ErrReturnDataOutOfBounds    = errors.New("return data out of bounds")
	ErrExecutionReverted        = errors.New("execution reverted")
	ErrDepth                    = errors.New("max call depth exceeded")
	ErrInsufficientBalance      = errors.New("insufficient balance for transfer")
	ErrContractAddressCollision = errors.New("contract address collision")
	ErrMaxCodeSizeExceeded      = errors.New("max code size exceeded")
	ErrMaxInitCodeSizeExceeded  = errors.New("max initcode size exceeded")
	ErrInvalidCodeEntry         = errors.New("invalid code: must not begin with 0xef")
	ErrNonceUintOverflow        = errors.New("nonce uint64 overflow")
	ErrCodeStoreOutOfGas        = errors.New("contract creation code storage out of gas")
	ErrExecutionCancelled       = errors.New("execution cancelled")
	ErrNoCompatibleInterpreter  = errors.New("no compatible interpreter")
)
