// Package ledger is the wrapped-BTC fungible token: role-gated mint/burn,
// a per-epoch sliding-window mint cap, and a blacklist gate on transfer
// (spec §3 LedgerAccount/EpochState, §4.1). Grounded on the teacher's
// Actor/Exports/State.Transaction skeleton (miner_actor.go's Constructor
// and owner-gated setters); the epoch-window mint cap itself has no
// teacher analogue and is built directly from spec §4.1's description.
package ledger

import (
	cid "github.com/ipfs/go-cid"

	"github.com/btcpeg/bridge-core/actors/abi"
	"github.com/btcpeg/bridge-core/actors/abi/big"
	"github.com/btcpeg/bridge-core/actors/util/adt"
)

// State is the Ledger actor's persistent state. Every table is held as a
// HAMT root CID, not a live structure: each method call loads the tables
// it needs from the store, mutates them, and writes the roots back before
// returning, matching the teacher's State.Transaction convention of
// holding only flushed roots between calls. Decimals are fixed at 8
// (spec §3/§4.1) and never represented in state — callers are expected to
// already deal in the 10^8 wrapped-BTC unit.
type State struct {
	Owner abi.Address

	Balances     cid.Cid // HAMT: Address bytes -> big.Int
	Minters      cid.Cid // HAMT: Address bytes -> marker
	Burners      cid.Cid // HAMT: Address bytes -> marker
	Blacklisters cid.Cid // HAMT: Address bytes -> marker
	Blacklisted  cid.Cid // HAMT: Address bytes -> marker
	TotalSupply  big.Int

	Epoch EpochState
}

// EpochState implements the sliding-window (not token-bucket) per-epoch
// mint cap of spec §4.1: an epoch roll-over discards any unused budget,
// it does not carry it forward or smooth it out.
type EpochState struct {
	MaxMintLimit  big.Int
	EpochLength   abi.ChainEpoch
	LastEpoch     abi.ChainEpoch
	LastMintLimit big.Int
}

func ConstructState(store adt.Store, owner abi.Address, maxMintLimit big.Int, epochLength abi.ChainEpoch) (*State, error) {
	emptyMap, err := emptyMapRoot(store)
	if err != nil {
		return nil, err
	}
	return &State{
		Owner:        owner,
		Balances:     emptyMap,
		Minters:      emptyMap,
		Burners:      emptyMap,
		Blacklisters: emptyMap,
		Blacklisted:  emptyMap,
		TotalSupply:  big.Zero(),
		Epoch: EpochState{
			MaxMintLimit:  maxMintLimit,
			EpochLength:   epochLength,
			LastEpoch:     0,
			LastMintLimit: maxMintLimit,
		},
	}, nil
}

func emptyMapRoot(store adt.Store) (cid.Cid, error) {
	m, err := adt.MakeEmptyMap(store)
	if err != nil {
		return cid.Undef, err
	}
	return m.Root()
}

func addrKey(a abi.Address) adt.BytesKey {
	return adt.BytesKey(a[:])
}

// marker is the sentinel value stored in every role/blacklist set; only
// key presence carries meaning.
var marker = big.NewInt(1)

func balanceOf(store adt.Store, root cid.Cid, addr abi.Address) (big.Int, error) {
	m, err := adt.AsMap(store, root)
	if err != nil {
		return big.Int{}, err
	}
	var bal big.Int
	found, err := m.Get(addrKey(addr), &bal)
	if err != nil {
		return big.Int{}, err
	}
	if !found {
		return big.Zero(), nil
	}
	return bal, nil
}

// setBalance writes addr's balance and returns the new map root. A zero
// balance is still stored explicitly rather than deleted, mirroring ERC-20
// semantics where a zeroed account keeps its entry.
func setBalance(store adt.Store, root cid.Cid, addr abi.Address, amount big.Int) (cid.Cid, error) {
	m, err := adt.AsMap(store, root)
	if err != nil {
		return cid.Undef, err
	}
	if err := m.Put(addrKey(addr), amount); err != nil {
		return cid.Undef, err
	}
	return m.Root()
}

func flagHas(store adt.Store, root cid.Cid, addr abi.Address) (bool, error) {
	m, err := adt.AsMap(store, root)
	if err != nil {
		return false, err
	}
	return m.Has(addrKey(addr))
}

func flagSet(store adt.Store, root cid.Cid, addr abi.Address) (cid.Cid, error) {
	m, err := adt.AsMap(store, root)
	if err != nil {
		return cid.Undef, err
	}
	if err := m.Put(addrKey(addr), marker); err != nil {
		return cid.Undef, err
	}
	return m.Root()
}

func flagUnset(store adt.Store, root cid.Cid, addr abi.Address) (cid.Cid, error) {
	m, err := adt.AsMap(store, root)
	if err != nil {
		return cid.Undef, err
	}
	if err := m.Delete(addrKey(addr)); err != nil {
		return cid.Undef, err
	}
	return m.Root()
}
