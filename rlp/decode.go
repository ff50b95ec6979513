package rlp

import (
	"errors"
	"fmt"
	"io"
)

var (
	ErrExpectedList   = errors.New("rlp: expected list")
	ErrExpectedString = errors.New("rlp: expected string")
	ErrNotAtEOL       = errors.New("rlp: call of ListEnd outside of list")
	ErrElemTooLarge   = errors.New("rlp: element is larger than containing list")
)

// kind identifies the shape of the next RLP value in a Stream.
type kind int

const (
	Byte kind = iota
	String
	ListKind
	EOF
)

// Stream reads successive RLP values from an underlying byte slice. It is
// the decoding counterpart to the encbuf in encode.go: structs implement
// DecodeRLP against it the way they implement EncodeRLP against an encbuf,
// so a type's wire shape is defined in exactly one place.
type Stream struct {
	data  []byte
	pos   int
	stack []int // saved end-of-list offsets
}

// NewStream creates a Stream over an already-fully-buffered RLP blob.
func NewStream(data []byte) *Stream {
	return &Stream{data: data}
}

// Decoder is implemented by types that know how to decode themselves from a Stream.
type Decoder interface {
	DecodeRLP(*Stream) error
}

// DecodeBytes parses data as RLP into val, which must implement Decoder or
// be one of the built-in kinds handled by decodeInto.
func DecodeBytes(data []byte, val interface{}) error {
	s := NewStream(data)
	if err := decodeInto(s, val); err != nil {
		return err
	}
	if s.pos != len(s.data) {
		return fmt.Errorf("rlp: %d trailing bytes after value", len(s.data)-s.pos)
	}
	return nil
}

func decodeInto(s *Stream, val interface{}) error {
	switch v := val.(type) {
	case Decoder:
		return v.DecodeRLP(s)
	case *[]byte:
		b, err := s.Bytes()
		if err != nil {
			return err
		}
		*v = b
		return nil
	case *uint64:
		u, err := s.Uint()
		if err != nil {
			return err
		}
		*v = u
		return nil
	case *bool:
		u, err := s.Uint()
		if err != nil {
			return err
		}
		*v = u != 0
		return nil
	default:
		return fmt.Errorf("rlp: type %T is not Decoder and not a built-in kind", val)
	}
}

// readKind inspects the next byte without consuming it and returns the kind
// and the value's content boundaries [start, end) within s.data.
func (s *Stream) readKind() (kind, int, int, error) {
	if s.pos >= len(s.data) {
		return EOF, 0, 0, io.EOF
	}
	b := s.data[s.pos]
	switch {
	case b < 0x80:
		return Byte, s.pos, s.pos + 1, nil
	case b < 0xB8:
		size := int(b - 0x80)
		start := s.pos + 1
		return String, start, start + size, nil
	case b < 0xC0:
		nlen := int(b - 0xB7)
		size, err := s.readSize(s.pos+1, nlen)
		if err != nil {
			return EOF, 0, 0, err
		}
		start := s.pos + 1 + nlen
		return String, start, start + size, nil
	case b < 0xF8:
		size := int(b - 0xC0)
		start := s.pos + 1
		return ListKind, start, start + size, nil
	default:
		nlen := int(b - 0xF7)
		size, err := s.readSize(s.pos+1, nlen)
		if err != nil {
			return EOF, 0, 0, err
		}
		start := s.pos + 1 + nlen
		return ListKind, start, start + size, nil
	}
}

func (s *Stream) readSize(off, n int) (int, error) {
	if off+n > len(s.data) {
		return 0, io.ErrUnexpectedEOF
	}
	size := 0
	for i := 0; i < n; i++ {
		size = size<<8 | int(s.data[off+i])
	}
	return size, nil
}

// Bytes consumes and returns the next string value.
func (s *Stream) Bytes() ([]byte, error) {
	k, start, end, err := s.readKind()
	if err != nil {
		return nil, err
	}
	if k == ListKind {
		return nil, ErrExpectedString
	}
	if end > len(s.data) {
		return nil, ErrElemTooLarge
	}
	out := make([]byte, end-start)
	copy(out, s.data[start:end])
	s.pos = end
	return out, nil
}

// Uint consumes the next string value and interprets it as a big-endian
// unsigned integer (the RLP convention: no leading zero bytes).
func (s *Stream) Uint() (uint64, error) {
	b, err := s.Bytes()
	if err != nil {
		return 0, err
	}
	if len(b) > 8 {
		return 0, fmt.Errorf("rlp: uint64 overflow, %d bytes", len(b))
	}
	if len(b) > 0 && b[0] == 0 {
		return 0, errors.New("rlp: non-canonical integer (leading zero byte)")
	}
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v, nil
}

// List begins decoding a list, pushing its end offset, and returns the
// content size so callers (e.g. the BAL decoder) may bound nested loops.
func (s *Stream) List() (size int, err error) {
	k, start, end, err := s.readKind()
	if err != nil {
		return 0, err
	}
	if k != ListKind {
		return 0, ErrExpectedList
	}
	s.stack = append(s.stack, end)
	s.pos = start
	return end - start, nil
}

// ListEnd closes the list opened by the matching List call.
func (s *Stream) ListEnd() error {
	if len(s.stack) == 0 {
		return ErrNotAtEOL
	}
	end := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	if s.pos > end {
		return ErrElemTooLarge
	}
	s.pos = end
	return nil
}

// MoreDataInList reports whether more elements remain before the innermost
// open list's end offset.
func (s *Stream) MoreDataInList() bool {
	if len(s.stack) == 0 {
		return s.pos < len(s.data)
	}
	return s.pos < s.stack[len(s.stack)-1]
}

// Raw consumes and returns the next value's full encoding, undecoded.
func (s *Stream) Raw() (RawValue, error) {
	headerStart := s.pos
	_, _, end, err := s.readKind()
	if err != nil {
		return nil, err
	}
	out := make([]byte, end-headerStart)
	copy(out, s.data[headerStart:end])
	s.pos = end
	return out, nil
}
