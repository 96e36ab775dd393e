// Package testing (imported as tutil) holds small fixture generators shared
// by every actor's test suite, grounded on the teacher's support/testing
// (tutil.NewIDAddr / tutil.NewBLSAddr) — reduced here to what a 20-byte
// EVM-style address and a Bitcoin script fixture need.
package testing

import (
	"encoding/binary"
	"testing"

	"github.com/btcpeg/bridge-core/actors/abi"
)

// NewAddr builds a deterministic, distinct, non-zero address from a small
// integer, the way tutil.NewIDAddr builds an ID address from an actor ID.
func NewAddr(t testing.TB, seed uint64) abi.Address {
	t.Helper()
	var a abi.Address
	binary.BigEndian.PutUint64(a[12:], seed)
	if a.Empty() {
		t.Fatalf("seed %d produced the zero address", seed)
	}
	return a
}

// NewHash builds a deterministic 32-byte digest fixture (a stand-in Bitcoin
// txId) from a small integer.
func NewHash(t testing.TB, seed uint64) abi.Hash256 {
	t.Helper()
	var h abi.Hash256
	binary.BigEndian.PutUint64(h[24:], seed)
	return h
}

// NewScriptPayload builds a deterministic script payload of the given
// width (20 or 32 bytes), non-zero so it is distinguishable from the
// zeroed fixtures used in the bitcoin package's own template tests.
func NewScriptPayload(t testing.TB, width int, seed byte) []byte {
	t.Helper()
	p := make([]byte, width)
	for i := range p {
		p[i] = seed
	}
	return p
}
