package vm

import "github.com/ethcore/execevm/common"

// Memory is the byte-addressable, word-expanding scratch space of one call
// frame (§3 Memory). Expansion is always to a whole number of 32-byte
// words and is paid for once per frame via the quadratic memory-gas
// formula in gas_table.go.
type Memory struct {
	store       []byte
	lastGasCost uint64
}

func NewMemory() *Memory {
	return &Memory{}
}

// Resize grows the backing store to size bytes if it is currently smaller.
// Callers must have already charged memory-expansion gas for this size via
// memoryGasCost before calling Resize.
func (m *Memory) Resize(size uint64) {
	if uint64(len(m.store)) < size {
		m.store = append(m.store, make([]byte, size-uint64(len(m.store)))...)
	}
}

// Set copies value into memory starting at offset, which must already fit
// (the caller resized via the opcode's dynamic gas cost).
func (m *Memory) Set(offset, size uint64, value []byte) {
	if size == 0 {
		return
	}
	if offset+size > uint64(len(m.store)) {
		return
	}
	copy(m.store[offset:offset+size], value)
}

// Set32 writes val as a left-padded 32-byte word at offset (MSTORE).
func (m *Memory) Set32(offset uint64, val *[32]byte) {
	if offset+32 > uint64(len(m.store)) {
		return
	}
	copy(m.store[offset:offset+32], val[:])
}

// GetCopy returns an independent copy of size bytes starting at offset.
func (m *Memory) GetCopy(offset, size int64) []byte {
	if size == 0 {
		return nil
	}
	if len(m.store) > int(offset) {
		cp := make([]byte, size)
		copy(cp, m.store[offset:])
		return cp
	}
	return make([]byte, size)
}

// GetPtr returns a slice into the backing store (no copy) for reads the
// handler consumes immediately (e.g. as CREATE init code or CALL input).
func (m *Memory) GetPtr(offset, size int64) []byte {
	if size == 0 {
		return nil
	}
	if len(m.store) > int(offset) {
		return m.store[offset : offset+size]
	}
	return make([]byte, size)
}

func (m *Memory) Len() int { return len(m.store) }

func (m *Memory) Data() []byte { return m.store }

// GetHash returns a copy of the 32-byte word at offset, used by handlers
// that need a common.Hash view (e.g. LOG topics prepared off-stack).
func (m *Memory) GetHash(offset int64) common.Hash {
	return common.BytesToHash(m.GetPtr(offset, 32))
}

// toWordSize rounds size up to the nearest multiple of 32 and reports it in
// 32-byte words, saturating instead of overflowing on pathological input.
func toWordSize(size uint64) uint64 {
	if size >= (1<<64-31)/1 {
		return (1<<64 - 1) / 32
	}
	return (size + 31) / 32
}

