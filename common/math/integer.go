// Package math provides overflow-checked integer arithmetic used by the
// gas-costing paths, where a silent wraparound would misprice an opcode.
package math

import "math/bits"

const (
	MaxUint64 = 1<<64 - 1
)

// SafeAdd returns a+b and whether the addition overflowed 64 bits.
func SafeAdd(a, b uint64) (uint64, bool) {
	sum, carry := bits.Add64(a, b, 0)
	return sum, carry != 0
}

// SafeSub returns a-b and whether the subtraction underflowed.
func SafeSub(a, b uint64) (uint64, bool) {
	diff, borrow := bits.Sub64(a, b, 0)
	return diff, borrow != 0
}

// SafeMul returns a*b and whether the multiplication overflowed 64 bits.
func SafeMul(a, b uint64) (uint64, bool) {
	if a == 0 || b == 0 {
		return 0, false
	}
	hi, lo := bits.Mul64(a, b)
	return lo, hi != 0
}
