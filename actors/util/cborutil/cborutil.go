// Package cborutil is the minimal, self-contained CBOR (RFC 8949) tuple
// encoding every composite actor-state type (Locker, BurnRequest) hand-
// writes its MarshalCBOR/UnmarshalCBOR against, the same way the
// teacher's generated `_cbor_gen.go` files encode a struct as a CBOR
// array of its fields in declaration order. This package exists instead
// of calling into whyrusleeping/cbor-gen's runtime helpers directly: the
// generator itself is wired declaratively in gen/gen.go, but the exact
// low-level helper surface of a pinned cbor-gen commit is not something
// to guess at freely, so the actual field encoding here is hand-rolled
// against the RFC directly — deliberately at the same level of
// abstraction as actors/abi/big.Int's own hand-written CBOR methods.
package cborutil

import (
	"fmt"
	"io"
)

const (
	majUnsignedInt = 0 << 5
	majByteString  = 2 << 5
	majArray       = 4 << 5
	majSimple      = 7 << 5
)

func writeHeader(w io.Writer, major byte, length uint64) error {
	switch {
	case length < 24:
		_, err := w.Write([]byte{major | byte(length)})
		return err
	case length < 1<<8:
		_, err := w.Write([]byte{major | 24, byte(length)})
		return err
	case length < 1<<16:
		_, err := w.Write([]byte{major | 25, byte(length >> 8), byte(length)})
		return err
	case length < 1<<32:
		_, err := w.Write([]byte{
			major | 26,
			byte(length >> 24), byte(length >> 16), byte(length >> 8), byte(length),
		})
		return err
	default:
		_, err := w.Write([]byte{
			major | 27,
			byte(length >> 56), byte(length >> 48), byte(length >> 40), byte(length >> 32),
			byte(length >> 24), byte(length >> 16), byte(length >> 8), byte(length),
		})
		return err
	}
}

func readHeader(r io.Reader, wantMajor byte) (uint64, error) {
	var hdr [1]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return 0, err
	}
	major := hdr[0] &^ 0x1f
	if major != wantMajor {
		return 0, fmt.Errorf("cborutil: expected major type %d, got %d", wantMajor>>5, major>>5)
	}
	info := hdr[0] & 0x1f
	switch {
	case info < 24:
		return uint64(info), nil
	case info == 24:
		var b [1]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return 0, err
		}
		return uint64(b[0]), nil
	case info == 25:
		var b [2]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return 0, err
		}
		return uint64(b[0])<<8 | uint64(b[1]), nil
	case info == 26:
		var b [4]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return 0, err
		}
		return uint64(b[0])<<24 | uint64(b[1])<<16 | uint64(b[2])<<8 | uint64(b[3]), nil
	case info == 27:
		var b [8]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return 0, err
		}
		var v uint64
		for _, x := range b {
			v = v<<8 | uint64(x)
		}
		return v, nil
	default:
		return 0, fmt.Errorf("cborutil: unsupported length encoding %d", info)
	}
}

// WriteUint encodes v as a CBOR unsigned integer (major type 0).
func WriteUint(w io.Writer, v uint64) error {
	return writeHeader(w, majUnsignedInt, v)
}

// ReadUint decodes a CBOR unsigned integer.
func ReadUint(r io.Reader) (uint64, error) {
	return readHeader(r, majUnsignedInt)
}

// WriteInt64 encodes a signed value whose domain is known to be
// non-negative in practice (chain epochs, timestamps) as an unsigned
// CBOR integer; actors/abi.ChainEpoch is never negative in this bridge.
func WriteInt64(w io.Writer, v int64) error {
	if v < 0 {
		return fmt.Errorf("cborutil: cannot encode negative value %d as unsigned", v)
	}
	return WriteUint(w, uint64(v))
}

func ReadInt64(r io.Reader) (int64, error) {
	v, err := ReadUint(r)
	return int64(v), err
}

// WriteBool encodes v as a CBOR simple value (major type 7): false (0xf4)
// or true (0xf5).
func WriteBool(w io.Writer, v bool) error {
	b := byte(majSimple | 20)
	if v {
		b = majSimple | 21
	}
	_, err := w.Write([]byte{b})
	return err
}

func ReadBool(r io.Reader) (bool, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return false, err
	}
	switch b[0] {
	case majSimple | 20:
		return false, nil
	case majSimple | 21:
		return true, nil
	default:
		return false, fmt.Errorf("cborutil: expected CBOR bool simple value, got %#x", b[0])
	}
}

// WriteBytes encodes a CBOR byte string (major type 2).
func WriteBytes(w io.Writer, b []byte) error {
	if err := writeHeader(w, majByteString, uint64(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func ReadBytes(r io.Reader) ([]byte, error) {
	n, err := readHeader(r, majByteString)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// WriteArrayHeader opens a CBOR array (major type 4) of n elements —
// the tuple-encoding convention cbor-gen uses for every struct.
func WriteArrayHeader(w io.Writer, n int) error {
	return writeHeader(w, majArray, uint64(n))
}

// ReadArrayHeader reads an array header and checks it has exactly
// wantLen elements, the same fixed-arity check generated tuple decoders
// perform.
func ReadArrayHeader(r io.Reader, wantLen int) error {
	n, err := readHeader(r, majArray)
	if err != nil {
		return err
	}
	if int(n) != wantLen {
		return fmt.Errorf("cborutil: expected array of %d elements, got %d", wantLen, n)
	}
	return nil
}
