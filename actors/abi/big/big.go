// Package big is the unsigned(-by-convention), checked money-math wrapper
// used throughout the bridge, grounded on the teacher's actors/abi/big
// used pervasively in monies.go (big.Mul/big.Div/big.Max/big.Add...). Every
// division here is floor division, matching spec §9 ("division is floor").
package big

import (
	"fmt"
	"io"
	"math/big"
)

// Int wraps math/big.Int so every arithmetic call site in the actors is
// explicit about overflow-free (arbitrary precision) money math, per spec
// §9 ("all monetary math is unsigned 256-bit ... checked arithmetic").
type Int struct {
	*big.Int
}

func NewInt(n int64) Int {
	return Int{big.NewInt(n)}
}

func NewIntFromString(s string) (Int, bool) {
	i, ok := new(big.Int).SetString(s, 10)
	return Int{i}, ok
}

func Zero() Int {
	return NewInt(0)
}

func (i Int) Nil() bool {
	return i.Int == nil
}

func (i Int) IsZero() bool {
	return i.Nil() || i.Sign() == 0
}

func Add(a, b Int) Int {
	return Int{new(big.Int).Add(a.Int, b.Int)}
}

func Sub(a, b Int) Int {
	return Int{new(big.Int).Sub(a.Int, b.Int)}
}

func Mul(a, b Int) Int {
	return Int{new(big.Int).Mul(a.Int, b.Int)}
}

// Div is floor division; spec §9 mandates floor division on every
// monetary division point.
func Div(a, b Int) Int {
	if b.Sign() == 0 {
		panic("big: division by zero")
	}
	q := new(big.Int)
	m := new(big.Int)
	q.DivMod(a.Int, b.Int, m) // Euclidean division; for positive operands this is floor division.
	return Int{q}
}

func (i Int) Neg() Int {
	return Int{new(big.Int).Neg(i.Int)}
}

func Max(a, b Int) Int {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

func Min(a, b Int) Int {
	if a.LessThan(b) {
		return a
	}
	return b
}

func (i Int) GreaterThan(o Int) bool      { return i.Cmp(o.Int) > 0 }
func (i Int) GreaterThanEqual(o Int) bool { return i.Cmp(o.Int) >= 0 }
func (i Int) LessThan(o Int) bool         { return i.Cmp(o.Int) < 0 }
func (i Int) LessThanEqual(o Int) bool    { return i.Cmp(o.Int) <= 0 }
func (i Int) Equals(o Int) bool           { return i.Cmp(o.Int) == 0 }

// MarshalCBOR hand-writes a CBOR byte-string encoding of the sign-prefixed
// big-endian magnitude. big.Int carries no exported fields for cbor-gen's
// reflective tuple encoder to walk, so — exactly as the teacher's own
// abi/big.Int does — this type gets explicit (de)serialization instead of
// a generated one. The structs that embed it and are stored (Locker,
// BurnRequest) encode their other fields with hand-written tuple encoders
// in their packages' state.go.
func (i Int) MarshalCBOR(w io.Writer) error {
	if i.Nil() {
		_, err := w.Write([]byte{0x40}) // empty byte string
		return err
	}
	sign := byte(0)
	if i.Sign() < 0 {
		sign = 1
	}
	mag := new(big.Int).Abs(i.Int).Bytes()
	payload := append([]byte{sign}, mag...)
	if err := writeCborByteStringHeader(w, uint64(len(payload))); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

func (i *Int) UnmarshalCBOR(r io.Reader) error {
	payload, err := readCborByteString(r)
	if err != nil {
		return err
	}
	if len(payload) == 0 {
		i.Int = big.NewInt(0)
		return nil
	}
	sign, mag := payload[0], payload[1:]
	v := new(big.Int).SetBytes(mag)
	if sign == 1 {
		v.Neg(v)
	}
	i.Int = v
	return nil
}

// writeCborByteStringHeader/readCborByteString implement the minimal subset
// of RFC 8949 major type 2 (byte string) needed by Int, independent of the
// cbor-gen runtime helpers used by the generated tuple encoders.
func writeCborByteStringHeader(w io.Writer, length uint64) error {
	const majByteString = 2 << 5
	switch {
	case length < 24:
		_, err := w.Write([]byte{majByteString | byte(length)})
		return err
	case length < 1<<8:
		_, err := w.Write([]byte{majByteString | 24, byte(length)})
		return err
	case length < 1<<16:
		_, err := w.Write([]byte{majByteString | 25, byte(length >> 8), byte(length)})
		return err
	default:
		_, err := w.Write([]byte{
			majByteString | 26,
			byte(length >> 24), byte(length >> 16), byte(length >> 8), byte(length),
		})
		return err
	}
}

func readCborByteString(r io.Reader) ([]byte, error) {
	var hdr [1]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	major := hdr[0] >> 5
	if major != 2 {
		return nil, fmt.Errorf("big: expected CBOR byte string (major 2), got major %d", major)
	}
	info := hdr[0] & 0x1f
	var length uint64
	switch {
	case info < 24:
		length = uint64(info)
	case info == 24:
		var b [1]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return nil, err
		}
		length = uint64(b[0])
	case info == 25:
		var b [2]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return nil, err
		}
		length = uint64(b[0])<<8 | uint64(b[1])
	case info == 26:
		var b [4]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return nil, err
		}
		length = uint64(b[0])<<24 | uint64(b[1])<<16 | uint64(b[2])<<8 | uint64(b[3])
	default:
		return nil, fmt.Errorf("big: unsupported CBOR length encoding %d", info)
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}
