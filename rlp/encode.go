// Package rlp implements the Recursive Length Prefix encoding used for
// every consensus-critical byte representation in this repository:
// accounts, transactions, receipts, headers, and the Block Access List.
//
// Unlike most of the core this package is written directly against the
// standard library rather than a third-party encoder: go-ethereum itself
// ships its own `rlp` package rather than depending on one (see DESIGN.md),
// and this implementation follows that same reflection-free, explicit-
// Encode/Decode-method idiom rather than re-deriving struct tags.
package rlp

import (
	"errors"
	"fmt"
	"io"
	"math/big"
)

// Encoder is implemented by types that know how to RLP-encode themselves,
// returning their complete encoding (header included) as a byte slice.
type Encoder interface {
	EncodeRLP() ([]byte, error)
}

const (
	// EmptyStringCode is the RLP prefix for the empty string / byte 0x00..0x7f encode as themselves.
	EmptyStringCode = 0x80
	EmptyListCode   = 0xC0
)

// EncodeToBytes returns the RLP encoding of val.
func EncodeToBytes(val interface{}) ([]byte, error) {
	var buf encbuf
	if err := encode(&buf, val); err != nil {
		return nil, err
	}
	return buf.bytes(), nil
}

// Encode writes the RLP encoding of val to w.
func Encode(w io.Writer, val interface{}) error {
	b, err := EncodeToBytes(val)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

type encbuf struct {
	str []byte
}

func (b *encbuf) bytes() []byte { return b.str }

func (b *encbuf) writeBytes(p []byte) { b.str = append(b.str, p...) }

func (b *encbuf) writeByte(p byte) { b.str = append(b.str, p) }

// encodeStringHeader writes the RLP header for a byte string of length size.
func (b *encbuf) encodeStringHeader(size int) {
	if size < 56 {
		b.writeByte(EmptyStringCode + byte(size))
		return
	}
	lenBytes := putint(size)
	b.writeByte(0xB7 + byte(len(lenBytes)))
	b.writeBytes(lenBytes)
}

func (b *encbuf) encodeListHeader(size int) {
	if size < 56 {
		b.writeByte(EmptyListCode + byte(size))
		return
	}
	lenBytes := putint(size)
	b.writeByte(0xF7 + byte(len(lenBytes)))
	b.writeBytes(lenBytes)
}

func putint(i int) []byte {
	switch {
	case i < (1 << 8):
		return []byte{byte(i)}
	case i < (1 << 16):
		return []byte{byte(i >> 8), byte(i)}
	case i < (1 << 24):
		return []byte{byte(i >> 16), byte(i >> 8), byte(i)}
	default:
		return []byte{byte(i >> 24), byte(i >> 16), byte(i >> 8), byte(i)}
	}
}

func encode(b *encbuf, val interface{}) error {
	switch v := val.(type) {
	case Encoder:
		enc, err := v.EncodeRLP()
		if err != nil {
			return err
		}
		b.writeBytes(enc)
		return nil
	case []byte:
		encodeBytes(b, v)
		return nil
	case string:
		encodeBytes(b, []byte(v))
		return nil
	case uint64:
		encodeUint(b, v)
		return nil
	case uint:
		encodeUint(b, uint64(v))
		return nil
	case bool:
		if v {
			b.writeByte(0x01)
		} else {
			b.writeByte(EmptyStringCode)
		}
		return nil
	case *big.Int:
		if v == nil {
			encodeUint(b, 0)
			return nil
		}
		encodeBytes(b, bigToBytes(v))
		return nil
	case RawValue:
		b.writeBytes(v)
		return nil
	case List:
		return encodeList(b, v)
	case nil:
		b.writeByte(EmptyStringCode)
		return nil
	default:
		return encodeReflect(b, val)
	}
}

// List is a generic container used when a struct's RLP shape is assembled
// by hand (the common case for the variable-shape transaction envelopes
// and the Block Access List, whose element count depends on fork rules).
type List []interface{}

func encodeList(b *encbuf, items List) error {
	var body encbuf
	for _, item := range items {
		if err := encode(&body, item); err != nil {
			return err
		}
	}
	b.encodeListHeader(len(body.str))
	b.writeBytes(body.str)
	return nil
}

func encodeBytes(b *encbuf, data []byte) {
	if len(data) == 1 && data[0] < EmptyStringCode {
		b.writeByte(data[0])
		return
	}
	b.encodeStringHeader(len(data))
	b.writeBytes(data)
}

func encodeUint(b *encbuf, i uint64) {
	if i == 0 {
		b.writeByte(EmptyStringCode)
		return
	}
	if i < EmptyStringCode {
		b.writeByte(byte(i))
		return
	}
	var buf [8]byte
	n := putUintBytes(buf[:], i)
	encodeBytes(b, buf[8-n:])
}

func putUintBytes(buf []byte, i uint64) int {
	n := 0
	for i > 0 {
		n++
		buf[len(buf)-n] = byte(i)
		i >>= 8
	}
	return n
}

func bigToBytes(v *big.Int) []byte {
	if v.Sign() == 0 {
		return nil
	}
	if v.Sign() < 0 {
		panic("rlp: cannot encode negative big.Int")
	}
	return v.Bytes()
}

// RawValue represents an already RLP-encoded value, copied verbatim.
type RawValue []byte

// encodeReflect falls back to field-order struct encoding for plain structs
// that don't implement Encoder; this mirrors only the common "all exported
// fields, in order, as a list" shape used by Account and Header below.
func encodeReflect(b *encbuf, val interface{}) error {
	return fmt.Errorf("rlp: type %T does not implement Encoder and has no built-in encoding; wrap it in rlp.List", val)
}

var errNotInList = errors.New("rlp: value is not a list")
