package types

import (
	"github.com/ethcore/execevm/crypto"
)

// BloomByteLength is the number of bytes in a receipt log bloom filter.
const BloomByteLength = 256

// BloomBitLength is the number of bits in a receipt log bloom filter.
const BloomBitLength = 8 * BloomByteLength

// Bloom is the 2048-bit, 3-hash Ethereum log bloom filter. This is one of
// the rare spots where the core follows go-ethereum's own choice to hand-roll
// rather than reach for a library: the 2048-bit/3-of-keccak layout is
// consensus-critical and not what a general-purpose bloom filter package
// implements (see DESIGN.md).
type Bloom [BloomByteLength]byte

// BytesToBloom sets b to bloom, left-padding / truncating as needed.
func BytesToBloom(b []byte) Bloom {
	var bl Bloom
	bl.SetBytes(b)
	return bl
}

func (b *Bloom) SetBytes(d []byte) {
	if len(d) > BloomByteLength {
		d = d[len(d)-BloomByteLength:]
	}
	copy(b[BloomByteLength-len(d):], d)
}

func (b Bloom) Bytes() []byte { return b[:] }

// Add adds data's bit positions to the bloom filter.
func (b *Bloom) Add(data []byte) {
	h := crypto.Keccak256(data)
	for i := 0; i < 3; i++ {
		bit := (uint(h[2*i+1]) + (uint(h[2*i]) << 8)) & 2047
		b[BloomByteLength-1-bit/8] |= 1 << (bit % 8)
	}
}

// Test reports whether the bloom filter might contain data (false
// positives possible, false negatives impossible).
func (b Bloom) Test(data []byte) bool {
	h := crypto.Keccak256(data)
	for i := 0; i < 3; i++ {
		bit := (uint(h[2*i+1]) + (uint(h[2*i]) << 8)) & 2047
		if b[BloomByteLength-1-bit/8]&(1<<(bit%8)) == 0 {
			return false
		}
	}
	return true
}

// CreateBloom derives the bloom filter covering every given log: each
// log's address and topics are added.
func CreateBloom(logs []*Log) Bloom {
	var bl Bloom
	for _, l := range logs {
		bl.Add(l.Address.Bytes())
		for _, t := range l.Topics {
			bl.Add(t.Bytes())
		}
	}
	return bl
}
