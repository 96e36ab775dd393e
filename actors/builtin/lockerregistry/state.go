// Package lockerregistry implements the Bitcoin-custody locker lifecycle:
// candidacy, activation, collateral bookkeeping, the capacity/health-factor
// pricing model, idle/thief slashing, and slashed-collateral sale (spec
// §3 Locker, §4.2). Grounded on the teacher's Actor/Exports/
// State.Transaction skeleton and the Candidate→Active→Inactive→Removed
// state machine borrowed in shape from the teacher's
// PreCommit→Prove→Fault→Terminate sector lifecycle.
package lockerregistry

import (
	"io"

	cid "github.com/ipfs/go-cid"

	"github.com/btcpeg/bridge-core/actors/abi"
	"github.com/btcpeg/bridge-core/actors/abi/big"
	"github.com/btcpeg/bridge-core/actors/util/adt"
	"github.com/btcpeg/bridge-core/actors/util/cborutil"
)

// Locker is a single Bitcoin-custody operator record (spec §3). Stored as
// a HAMT value keyed by its target (hot) address.
type Locker struct {
	LockerLockingScript []byte
	LockerScriptType    abi.ScriptType
	LockerRescueScript  []byte
	LockerRescueType    abi.ScriptType

	NativeTokenLockedAmount big.Int
	NetMinted               big.Int
	SlashingCoreBTCAmount   big.Int

	IsCandidate bool
	IsLocker    bool

	// InactivationTimestamp is 0 while active; otherwise the epoch at
	// which the locker becomes inactive (spec §3).
	InactivationTimestamp abi.ChainEpoch
}

// MarshalCBOR/UnmarshalCBOR hand-encode Locker as a 10-element CBOR tuple,
// the shape gen/gen.go's cbor-gen invocation would otherwise generate;
// written by hand here since the generator itself is never run.
func (l *Locker) MarshalCBOR(w io.Writer) error {
	if err := cborutil.WriteArrayHeader(w, 10); err != nil {
		return err
	}
	if err := cborutil.WriteBytes(w, l.LockerLockingScript); err != nil {
		return err
	}
	if err := cborutil.WriteUint(w, uint64(l.LockerScriptType)); err != nil {
		return err
	}
	if err := cborutil.WriteBytes(w, l.LockerRescueScript); err != nil {
		return err
	}
	if err := cborutil.WriteUint(w, uint64(l.LockerRescueType)); err != nil {
		return err
	}
	if err := l.NativeTokenLockedAmount.MarshalCBOR(w); err != nil {
		return err
	}
	if err := l.NetMinted.MarshalCBOR(w); err != nil {
		return err
	}
	if err := l.SlashingCoreBTCAmount.MarshalCBOR(w); err != nil {
		return err
	}
	if err := cborutil.WriteBool(w, l.IsCandidate); err != nil {
		return err
	}
	if err := cborutil.WriteBool(w, l.IsLocker); err != nil {
		return err
	}
	return cborutil.WriteInt64(w, int64(l.InactivationTimestamp))
}

func (l *Locker) UnmarshalCBOR(r io.Reader) error {
	if err := cborutil.ReadArrayHeader(r, 10); err != nil {
		return err
	}
	var err error
	if l.LockerLockingScript, err = cborutil.ReadBytes(r); err != nil {
		return err
	}
	st, err := cborutil.ReadUint(r)
	if err != nil {
		return err
	}
	l.LockerScriptType = abi.ScriptType(st)
	if l.LockerRescueScript, err = cborutil.ReadBytes(r); err != nil {
		return err
	}
	rt, err := cborutil.ReadUint(r)
	if err != nil {
		return err
	}
	l.LockerRescueType = abi.ScriptType(rt)
	if err := l.NativeTokenLockedAmount.UnmarshalCBOR(r); err != nil {
		return err
	}
	if err := l.NetMinted.UnmarshalCBOR(r); err != nil {
		return err
	}
	if err := l.SlashingCoreBTCAmount.UnmarshalCBOR(r); err != nil {
		return err
	}
	if l.IsCandidate, err = cborutil.ReadBool(r); err != nil {
		return err
	}
	if l.IsLocker, err = cborutil.ReadBool(r); err != nil {
		return err
	}
	ts, err := cborutil.ReadInt64(r)
	if err != nil {
		return err
	}
	l.InactivationTimestamp = abi.ChainEpoch(ts)
	return nil
}

// State is the LockerRegistry actor's persistent state. Every table is a
// flushed HAMT root CID, loaded and rewritten by the helpers below — the
// same convention established in actors/builtin/ledger/state.go.
type State struct {
	Owner           abi.Address
	LedgerActor     abi.Address
	BurnRouterActor abi.Address
	OracleActor     abi.Address
	MinterActor     abi.Address // out-of-scope transfer-in router authorized to call Mint

	CollateralRatio            uint64 // basis points, I6: > LiquidationRatio
	LiquidationRatio           uint64 // basis points, I6: > PriceWithDiscountRatio
	PriceWithDiscountRatio     uint64 // basis points, I6: <= 10_000
	LockerPercentageFee        uint64 // basis points, <= MaxLockerFee
	MinRequiredTNTLockedAmount big.Int
	InactivationDelay          abi.ChainEpoch

	Lockers             cid.Cid // HAMT: target address bytes -> Locker
	LockerTargetAddress cid.Cid // HAMT: locking script bytes -> target address (I5)
}

func ConstructState(
	store adt.Store,
	owner, ledgerActor, burnRouterActor, oracleActor abi.Address,
	collateralRatio, liquidationRatio, priceWithDiscountRatio, lockerPercentageFee uint64,
	minRequiredTNTLockedAmount big.Int,
	inactivationDelay abi.ChainEpoch,
) (*State, error) {
	emptyMap, err := emptyMapRoot(store)
	if err != nil {
		return nil, err
	}
	return &State{
		Owner:                      owner,
		LedgerActor:                ledgerActor,
		BurnRouterActor:            burnRouterActor,
		OracleActor:                oracleActor,
		CollateralRatio:            collateralRatio,
		LiquidationRatio:           liquidationRatio,
		PriceWithDiscountRatio:     priceWithDiscountRatio,
		LockerPercentageFee:        lockerPercentageFee,
		MinRequiredTNTLockedAmount: minRequiredTNTLockedAmount,
		InactivationDelay:          inactivationDelay,
		Lockers:                    emptyMap,
		LockerTargetAddress:        emptyMap,
	}, nil
}

func emptyMapRoot(store adt.Store) (cid.Cid, error) {
	m, err := adt.MakeEmptyMap(store)
	if err != nil {
		return cid.Undef, err
	}
	return m.Root()
}

func targetKey(a abi.Address) adt.BytesKey { return adt.BytesKey(a[:]) }
func scriptKey(script []byte) adt.BytesKey { return adt.BytesKey(script) }

func getLocker(store adt.Store, root cid.Cid, target abi.Address) (*Locker, bool, error) {
	m, err := adt.AsMap(store, root)
	if err != nil {
		return nil, false, err
	}
	var l Locker
	found, err := m.Get(targetKey(target), &l)
	if err != nil || !found {
		return nil, found, err
	}
	return &l, true, nil
}

func putLocker(store adt.Store, root cid.Cid, target abi.Address, l *Locker) (cid.Cid, error) {
	m, err := adt.AsMap(store, root)
	if err != nil {
		return cid.Undef, err
	}
	if err := m.Put(targetKey(target), l); err != nil {
		return cid.Undef, err
	}
	return m.Root()
}

func deleteLocker(store adt.Store, root cid.Cid, target abi.Address) (cid.Cid, error) {
	m, err := adt.AsMap(store, root)
	if err != nil {
		return cid.Undef, err
	}
	if err := m.Delete(targetKey(target)); err != nil {
		return cid.Undef, err
	}
	return m.Root()
}

func getTargetForScript(store adt.Store, root cid.Cid, script []byte) (abi.Address, bool, error) {
	m, err := adt.AsMap(store, root)
	if err != nil {
		return abi.Address{}, false, err
	}
	var addr abi.Address
	found, err := m.Get(scriptKey(script), &addr)
	if err != nil || !found {
		return abi.Address{}, found, err
	}
	return addr, true, nil
}

func putScriptIndex(store adt.Store, root cid.Cid, script []byte, target abi.Address) (cid.Cid, error) {
	m, err := adt.AsMap(store, root)
	if err != nil {
		return cid.Undef, err
	}
	if err := m.Put(scriptKey(script), target); err != nil {
		return cid.Undef, err
	}
	return m.Root()
}

func deleteScriptIndex(store adt.Store, root cid.Cid, script []byte) (cid.Cid, error) {
	m, err := adt.AsMap(store, root)
	if err != nil {
		return cid.Undef, err
	}
	if err := m.Delete(scriptKey(script)); err != nil {
		return cid.Undef, err
	}
	return m.Root()
}

// listTargets returns every locker target address currently stored, in a
// deterministic (sorted) order — the Lockers HAMT itself has no meaningful
// iteration order, so getLockersTargetAddressList sorts before paginating.
func listTargets(store adt.Store, root cid.Cid) ([]abi.Address, error) {
	m, err := adt.AsMap(store, root)
	if err != nil {
		return nil, err
	}
	var addrs []abi.Address
	err = m.ForEach(func(key string) error {
		a, err := abi.AddressFromBytes([]byte(key))
		if err != nil {
			return err
		}
		addrs = append(addrs, a)
		return nil
	})
	if err != nil {
		return nil, err
	}
	for i := 1; i < len(addrs); i++ {
		for j := i; j > 0 && lessAddr(addrs[j], addrs[j-1]); j-- {
			addrs[j], addrs[j-1] = addrs[j-1], addrs[j]
		}
	}
	return addrs, nil
}

func lessAddr(a, b abi.Address) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
