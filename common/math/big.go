package math

import (
	"bytes"
	"fmt"
	"strconv"
)

// HexOrDecimal64 marshals uint64 as hex JSON strings and accepts both hex
// (0x-prefixed) and decimal strings when unmarshalling. Chain-config JSON
// fixtures (fork activation block numbers) use this convention.
type HexOrDecimal64 uint64

// MarshalJSON implements json.Marshaler.
func (i HexOrDecimal64) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", fmt.Sprintf("%#x", uint64(i)))), nil
}

// UnmarshalJSON implements json.Unmarshaler. It is defined directly (rather
// than via UnmarshalText) so that a bare `null` literal is rejected instead
// of silently leaving the field unchanged.
func (i *HexOrDecimal64) UnmarshalJSON(input []byte) error {
	return i.UnmarshalText(bytes.Trim(input, `"`))
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *HexOrDecimal64) UnmarshalText(input []byte) error {
	v, err := ParseUint64(string(input))
	if err != nil {
		return err
	}
	*i = HexOrDecimal64(v)
	return nil
}

// ParseUint64 parses s as a decimal or 0x-prefixed hex uint64. An empty
// string parses as zero.
func ParseUint64(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	if len(s) >= 2 && (s[0:2] == "0x" || s[0:2] == "0X") {
		v, err := strconv.ParseUint(s[2:], 16, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid hex uint64 %q: %w", s, err)
		}
		return v, nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid decimal uint64 %q: %w", s, err)
	}
	return v, nil
}

// MustParseUint64 is ParseUint64 but panics on error; used for constants
// derived from literal strings at package init time.
func MustParseUint64(s string) uint64 {
	v, err := ParseUint64(s)
	if err != nil {
		panic(err)
	}
	return v
}
