package adt

import (
	"encoding/binary"
	"io"
)

// Marshaler/Unmarshaler mirror cbor-gen's CBORMarshaler/CBORUnmarshaler
// interfaces (the contract every generated _cbor_gen.go type satisfies),
// kept local so adt doesn't need to import the generator package itself.
type Marshaler interface {
	MarshalCBOR(w io.Writer) error
}

type Unmarshaler interface {
	UnmarshalCBOR(r io.Reader) error
}

// Keyer produces the raw HAMT key for a value. Grounded on the teacher's
// adt.Keyer / StringKey / IntKey helpers referenced wherever miner_actor.go
// indexes sectors or deadlines by number.
type Keyer interface {
	Key() string
}

type StringKey string

func (k StringKey) Key() string { return string(k) }

// BytesKey keys a Map entry by raw bytes — used for locking scripts and
// txIds, which have no natural string form.
type BytesKey []byte

func (k BytesKey) Key() string { return string(k) }

// IntKey keys a Map entry by an integer index, big-endian encoded. No
// table in this module uses it; BurnRequests are indexed by an Array.
type IntKey uint64

func (k IntKey) Key() string {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(k))
	return string(buf)
}
