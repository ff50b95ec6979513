package rlp

import (
	"bytes"
	"math/big"
	"testing"
)

func TestEncodeBytes(t *testing.T) {
	cases := []struct {
		in  []byte
		out []byte
	}{
		{[]byte{}, []byte{0x80}},
		{[]byte{0x00}, []byte{0x00}},
		{[]byte{0x7f}, []byte{0x7f}},
		{[]byte{0x80}, []byte{0x81, 0x80}},
		{bytes.Repeat([]byte{0xaa}, 56), append([]byte{0xb8, 56}, bytes.Repeat([]byte{0xaa}, 56)...)},
	}
	for i, c := range cases {
		got, err := EncodeToBytes(c.in)
		if err != nil {
			t.Fatalf("case %d: %v", i, err)
		}
		if !bytes.Equal(got, c.out) {
			t.Errorf("case %d: got %x want %x", i, got, c.out)
		}
	}
}

func TestEncodeUint(t *testing.T) {
	cases := []struct {
		in  uint64
		out []byte
	}{
		{0, []byte{0x80}},
		{1, []byte{0x01}},
		{127, []byte{0x7f}},
		{128, []byte{0x81, 0x80}},
		{256, []byte{0x82, 0x01, 0x00}},
	}
	for i, c := range cases {
		got, err := EncodeToBytes(c.in)
		if err != nil {
			t.Fatalf("case %d: %v", i, err)
		}
		if !bytes.Equal(got, c.out) {
			t.Errorf("case %d: got %x want %x", i, got, c.out)
		}
	}
}

func TestEncodeList(t *testing.T) {
	got, err := EncodeToBytes(List{uint64(1), uint64(2), []byte("abc")})
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0xc6, 0x01, 0x02, 0x83, 'a', 'b', 'c'}
	if !bytes.Equal(got, want) {
		t.Errorf("got %x want %x", got, want)
	}
}

func TestEncodeDecodeBigInt(t *testing.T) {
	for _, v := range []int64{0, 1, 127, 128, 1 << 20} {
		b, err := EncodeToBytes(big.NewInt(v))
		if err != nil {
			t.Fatal(err)
		}
		var out []byte
		if err := DecodeBytes(b, &out); err != nil {
			t.Fatal(err)
		}
	}
}

func TestStreamRoundTripList(t *testing.T) {
	enc, err := EncodeToBytes(List{uint64(7), []byte("hi"), List{uint64(1), uint64(2)}})
	if err != nil {
		t.Fatal(err)
	}
	s := NewStream(enc)
	if _, err := s.List(); err != nil {
		t.Fatal(err)
	}
	n, err := s.Uint()
	if err != nil || n != 7 {
		t.Fatalf("n=%d err=%v", n, err)
	}
	b, err := s.Bytes()
	if err != nil || string(b) != "hi" {
		t.Fatalf("b=%q err=%v", b, err)
	}
	if _, err := s.List(); err != nil {
		t.Fatal(err)
	}
	for s.MoreDataInList() {
		if _, err := s.Uint(); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.ListEnd(); err != nil {
		t.Fatal(err)
	}
	if err := s.ListEnd(); err != nil {
		t.Fatal(err)
	}
	if s.MoreDataInList() {
		t.Fatal("expected no more data")
	}
}
