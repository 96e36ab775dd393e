// Package abi holds the value types shared by every actor: chain-epoch
// timestamps, the fixed-width target-chain address, and the Bitcoin script
// classification enumerated in spec §6.
package abi

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/btcpeg/bridge-core/actors/util/cborutil"
)

// ChainEpoch is a block height. Locker inactivation timers count
// target-chain heights (Runtime.CurrEpoch); burn-request deadlines and the
// transfer deadline count Bitcoin heights as reported by the relay.
type ChainEpoch int64

// Address is a fixed-width 20-byte target-chain (EVM) address.
type Address [20]byte

// UndefAddress is the zero address. Some operations (IsBlacklisted) treat it
// as a normal, non-aborting input; most reject it (spec §9 Open Question 2).
var UndefAddress = Address{}

func (a Address) Empty() bool {
	return a == UndefAddress
}

func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

func AddressFromBytes(b []byte) (Address, error) {
	var a Address
	if len(b) != len(a) {
		return a, fmt.Errorf("address must be %d bytes, got %d", len(a), len(b))
	}
	copy(a[:], b)
	return a, nil
}

// MarshalCBOR/UnmarshalCBOR let an Address be stored directly as a HAMT
// map value (the lockerTargetAddress inverse index, spec §3 invariant I5).
func (a Address) MarshalCBOR(w io.Writer) error {
	return cborutil.WriteBytes(w, a[:])
}

func (a *Address) UnmarshalCBOR(r io.Reader) error {
	b, err := cborutil.ReadBytes(r)
	if err != nil {
		return err
	}
	addr, err := AddressFromBytes(b)
	if err != nil {
		return err
	}
	*a = addr
	return nil
}

// EmptyValue is the params/return type for methods that take no arguments
// or return nothing, mirroring the teacher's adt.EmptyValue.
type EmptyValue struct{}

// Hash256 is a 32-byte digest: a Bitcoin txId, a locking-script hash, or a
// merkle root, depending on context.
type Hash256 [32]byte

func (h Hash256) String() string {
	return hex.EncodeToString(h[:])
}

// ScriptType enumerates the Bitcoin output script templates recognized by
// the bridge (spec §3, §6). Values are stable across the wire and storage.
type ScriptType uint8

const (
	ScriptTypeP2PK ScriptType = iota
	ScriptTypeP2PKH
	ScriptTypeP2SH
	ScriptTypeP2WPKH
	ScriptTypeP2WSH
	ScriptTypeP2TR
)

func (t ScriptType) String() string {
	switch t {
	case ScriptTypeP2PK:
		return "P2PK"
	case ScriptTypeP2PKH:
		return "P2PKH"
	case ScriptTypeP2SH:
		return "P2SH"
	case ScriptTypeP2WPKH:
		return "P2WPKH"
	case ScriptTypeP2WSH:
		return "P2WSH"
	case ScriptTypeP2TR:
		return "P2TR"
	default:
		return fmt.Sprintf("ScriptType(%d)", uint8(t))
	}
}

// PayloadSize returns the canonical script-payload width for the type, per
// the table in spec §3: 20 bytes for hash160-based scripts, 32 bytes for
// pubkey/hash256/x-only-pubkey based scripts.
func (t ScriptType) PayloadSize() (int, error) {
	switch t {
	case ScriptTypeP2PKH, ScriptTypeP2SH, ScriptTypeP2WPKH:
		return 20, nil
	case ScriptTypeP2PK, ScriptTypeP2WSH, ScriptTypeP2TR:
		return 32, nil
	default:
		return 0, fmt.Errorf("unrecognized script type %d", uint8(t))
	}
}
