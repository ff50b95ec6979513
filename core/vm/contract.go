package vm

import (
	"github.com/ethcore/execevm/common"
	"github.com/ethcore/execevm/core/types"
	"github.com/holiman/uint256"
)

// ContractRef is anything that can be addressed as the target or source of
// a call (an account, or another in-flight Contract for nested calls).
type ContractRef interface {
	Address() common.Address
}

// AccountRef is the ContractRef wrapper for a plain address with no
// associated call frame (the initial caller of a top-level transaction).
type AccountRef common.Address

func (ar AccountRef) Address() common.Address { return common.Address(ar) }

// Contract is one call frame's scoped execution environment: the running
// account's code, the caller, the value attached, and the gas meter. One
// Contract exists per CALL/CALLCODE/DELEGATECALL/STATICCALL/CREATE/CREATE2
// (§4.4 Call frame and opcode dispatch).
type Contract struct {
	CallerAddress common.Address
	caller        ContractRef
	self          ContractRef

	jumpdests map[common.Hash]bitvec // shared analysis cache across delegate calls of the same code

	Code     types.Code
	CodeHash common.Hash
	CodeAddr *common.Address
	Input    []byte

	Gas   uint64
	value *uint256.Int

	IsDelegate bool
}

// NewContract returns a Contract ready to run, with a fresh jumpdest cache.
func NewContract(caller ContractRef, object ContractRef, value *uint256.Int, gas uint64) *Contract {
	c := &Contract{CallerAddress: caller.Address(), caller: caller, self: object}
	c.jumpdests = make(map[common.Hash]bitvec)
	if value == nil {
		value = new(uint256.Int)
	}
	c.value = value
	c.Gas = gas
	return c
}

func (c *Contract) AsDelegate() *Contract {
	c.IsDelegate = true
	// The delegate executes with the parent's value and the grandparent
	// as CallerAddress — DELEGATECALL forwards both unchanged.
	if parent, ok := c.caller.(*Contract); ok {
		c.CallerAddress = parent.CallerAddress
		c.value = parent.value
	}
	return c
}

// SetCallCode sets the code addr points to, for CALL/CALLCODE/DELEGATECALL
// targets (code belongs to addr, execution context belongs to self).
func (c *Contract) SetCallCode(addr *common.Address, hash common.Hash, code types.Code) {
	c.Code = code
	c.CodeHash = hash
	c.CodeAddr = addr
}

// SetCode sets deployment-time init code for CREATE/CREATE2 (no separate
// code address; the code being run is the frame's own init code).
func (c *Contract) SetCode(code types.Code) {
	c.Code = code
	c.CodeHash = common.Hash(code.Hash())
}

func (c *Contract) Address() common.Address { return c.self.Address() }

// GetOp returns the opcode at n, or STOP past the end of code (§4.4 Flow
// control: execution falls off the end of code as an implicit STOP).
func (c *Contract) GetOp(n uint64) OpCode {
	if n < uint64(len(c.Code)) {
		return OpCode(c.Code[n])
	}
	return STOP
}

func (c *Contract) Value() *uint256.Int { return c.value }

// UseGas deducts amount from the frame's remaining gas, reporting whether
// there was enough.
func (c *Contract) UseGas(amount uint64) bool {
	if c.Gas < amount {
		return false
	}
	c.Gas -= amount
	return true
}

// RefundGas returns gas to the frame (used when a child call returns
// leftover gas to its parent).
func (c *Contract) RefundGas(gas uint64) { c.Gas += gas }

// validJumpdest reports whether dest is a JUMPDEST not embedded in PUSH
// data, caching the per-code analysis since it's reused across JUMP/JUMPI
// within the same frame and across sibling DELEGATECALLs to the same code.
func (c *Contract) validJumpdest(dest *uint256.Int) bool {
	udest, overflow := dest.Uint64WithOverflow()
	if overflow || udest >= uint64(len(c.Code)) {
		return false
	}
	analysis, exist := c.jumpdests[c.CodeHash]
	if !exist {
		analysis = codeBitmapCached(c.CodeHash, c.Code)
		c.jumpdests[c.CodeHash] = analysis
	}
	return OpCode(c.Code[udest]) == JUMPDEST && analysis.codeSegment(udest)
}
