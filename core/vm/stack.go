package vm

import (
	"sync"

	"github.com/ethcore/execevm/params"
	"github.com/holiman/uint256"
)

// Stack is the 1024-deep operand stack of 256-bit words every opcode
// handler reads and writes (§4.4 Stack/memory), grounded on the teacher's
// go-ethereum-style stack.go shape: a flat slice with a pool to avoid
// reallocating on every call frame.
type Stack struct {
	data []uint256.Int
}

var stackPool = sync.Pool{
	New: func() any {
		return &Stack{data: make([]uint256.Int, 0, 16)}
	},
}

func newStack() *Stack {
	return stackPool.Get().(*Stack)
}

func returnStack(s *Stack) {
	s.data = s.data[:0]
	stackPool.Put(s)
}

func (st *Stack) push(d *uint256.Int) {
	st.data = append(st.data, *d)
}

func (st *Stack) pop() (ret uint256.Int) {
	ret = st.data[len(st.data)-1]
	st.data = st.data[:len(st.data)-1]
	return
}

func (st *Stack) len() int { return len(st.data) }

func (st *Stack) swap(n int) {
	top := len(st.data) - 1
	st.data[top], st.data[top-n] = st.data[top-n], st.data[top]
}

func (st *Stack) dup(n int) {
	st.push(&st.data[len(st.data)-n])
}

func (st *Stack) peek() *uint256.Int {
	return &st.data[len(st.data)-1]
}

// Back returns the n'th item from the top, 0-indexed.
func (st *Stack) Back(n int) *uint256.Int {
	return &st.data[len(st.data)-n-1]
}

func (st *Stack) Data() []uint256.Int { return st.data }

// stackValidationFunc checks that a call to an operation with the given
// stack height neither underflows nor overflows the 1024-item bound.
func stackValidationFunc(pop, push int) func(*Stack) error {
	return func(s *Stack) error {
		if s.len() < pop {
			return ErrStackUnderflow
		}
		if s.len()+push-pop > params.MaxStackSize {
			return ErrStackOverflow
		}
		return nil
	}
}
