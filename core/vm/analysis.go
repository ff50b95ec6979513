package vm

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ethcore/execevm/common"
)

// jumpdestCache is a process-wide cache of codeBitmap results keyed by
// code hash: the analysis is pure given the code, so every contract
// instance deployed under the same bytecode (cloned token
// implementations, factory-minted proxies) shares one entry instead of
// re-walking its code on every fresh call frame.
var jumpdestCache, _ = lru.New[common.Hash, bitvec](4096)

// codeBitmapCached returns codeBitmap(code), served from jumpdestCache on
// a hit and populating it on a miss.
func codeBitmapCached(hash common.Hash, code []byte) bitvec {
	if bits, ok := jumpdestCache.Get(hash); ok {
		return bits
	}
	bits := codeBitmap(code)
	jumpdestCache.Add(hash, bits)
	return bits
}

// bitvec is a bit vector marking, for each byte offset in a contract's
// code, whether that byte is itself executable (as opposed to being the
// operand data of a preceding PUSHn). JUMP/JUMPI validate their
// destination against this so a JUMPDEST byte hidden inside PUSH data is
// not a valid jump target (§4.4 Flow control).
type bitvec []byte

const (
	set2BitsMask = uint16(0b11)
	set3BitsMask = uint16(0b111)
	set4BitsMask = uint16(0b1111)
	set5BitsMask = uint16(0b1_1111)
	set6BitsMask = uint16(0b11_1111)
	set7BitsMask = uint16(0b111_1111)
)

func (bits bitvec) set(pos uint64) {
	bits[pos/8] |= 0x80 >> (pos % 8)
}

func (bits bitvec) set8(pos uint64) {
	bits[pos/8] |= 0xFF >> (pos % 8)
	bits[pos/8+1] |= ^(0xFF >> (pos % 8))
}

func (bits bitvec) setN(flag uint16, pos uint64) {
	a := flag << (pos % 8)
	bits[pos/8] |= byte(a)
	if b := byte(a >> 8); b != 0 {
		bits[pos/8+1] = b
	}
}

// codeSegment reports whether pos is executable code, not PUSH data.
func (bits bitvec) codeSegment(pos uint64) bool {
	return (bits[pos/8] & (0x80 >> (pos % 8))) == 0
}

// codeBitmap collects the positions of PUSH-data bytes so JUMPDEST
// validation can reject jumps into the middle of a PUSH operand, exactly
// mirroring go-ethereum's analysis.go byte-by-byte PUSH-width walk.
func codeBitmap(code []byte) bitvec {
	bits := make(bitvec, len(code)/8+1+4)
	for pc := uint64(0); pc < uint64(len(code)); {
		op := OpCode(code[pc])
		pc++
		if op < PUSH1 || op > PUSH32 {
			continue
		}
		numbits := uint16(op - PUSH1 + 1)
		if numbits >= 8 {
			for ; numbits >= 16; numbits -= 16 {
				bits.set8(pc)
				pc += 8
			}
			for ; numbits >= 8; numbits -= 8 {
				bits.set8(pc)
				pc += 8
			}
		}
		switch numbits {
		case 1:
			bits.set(pc)
			pc += 1
		case 2:
			bits.setN(set2BitsMask, pc)
			pc += 2
		case 3:
			bits.setN(set3BitsMask, pc)
			pc += 3
		case 4:
			bits.setN(set4BitsMask, pc)
			pc += 4
		case 5:
			bits.setN(set5BitsMask, pc)
			pc += 5
		case 6:
			bits.setN(set6BitsMask, pc)
			pc += 6
		case 7:
			bits.setN(set7BitsMask, pc)
			pc += 7
		}
	}
	return bits
}
