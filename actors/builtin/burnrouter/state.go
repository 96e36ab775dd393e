// Package burnrouter implements the user-facing redemption path: accepting
// burn requests against a locker, verifying Bitcoin-side payment proofs
// through the Relay, and disputing lockers that miss a deadline or spend a
// UTXO outside a legitimate burn payment (spec §4.3). Grounded on the
// teacher's Actor/Exports/State.Transaction skeleton and the per-miner
// AMT-backed sequence idiom (Deadlines, partition-expiration queues)
// adapted here to a per-locker BurnRequest sequence.
package burnrouter

import (
	"io"

	cid "github.com/ipfs/go-cid"

	"github.com/btcpeg/bridge-core/actors/abi"
	"github.com/btcpeg/bridge-core/actors/abi/big"
	"github.com/btcpeg/bridge-core/actors/util/adt"
	"github.com/btcpeg/bridge-core/actors/util/cborutil"
)

// BurnRequest is a single user redemption obligation owed by a specific
// locker (spec §3). Stored in an append-only sequence keyed by locker
// target address.
type BurnRequest struct {
	Amount            big.Int
	BurntAmount       big.Int
	Sender            abi.Address
	UserScript        []byte
	ScriptType        abi.ScriptType
	Deadline          abi.ChainEpoch
	IsTransferred     bool
	RequestIdOfLocker uint64
}

// MarshalCBOR/UnmarshalCBOR hand-encode BurnRequest as an 8-element CBOR
// tuple, the shape gen/gen.go's cbor-gen invocation would otherwise
// generate; written by hand here since the generator itself is never run.
func (b *BurnRequest) MarshalCBOR(w io.Writer) error {
	if err := cborutil.WriteArrayHeader(w, 8); err != nil {
		return err
	}
	if err := b.Amount.MarshalCBOR(w); err != nil {
		return err
	}
	if err := b.BurntAmount.MarshalCBOR(w); err != nil {
		return err
	}
	if err := cborutil.WriteBytes(w, b.Sender[:]); err != nil {
		return err
	}
	if err := cborutil.WriteBytes(w, b.UserScript); err != nil {
		return err
	}
	if err := cborutil.WriteUint(w, uint64(b.ScriptType)); err != nil {
		return err
	}
	if err := cborutil.WriteInt64(w, int64(b.Deadline)); err != nil {
		return err
	}
	if err := cborutil.WriteBool(w, b.IsTransferred); err != nil {
		return err
	}
	return cborutil.WriteUint(w, b.RequestIdOfLocker)
}

func (b *BurnRequest) UnmarshalCBOR(r io.Reader) error {
	if err := cborutil.ReadArrayHeader(r, 8); err != nil {
		return err
	}
	if err := b.Amount.UnmarshalCBOR(r); err != nil {
		return err
	}
	if err := b.BurntAmount.UnmarshalCBOR(r); err != nil {
		return err
	}
	senderBytes, err := cborutil.ReadBytes(r)
	if err != nil {
		return err
	}
	sender, err := abi.AddressFromBytes(senderBytes)
	if err != nil {
		return err
	}
	b.Sender = sender
	if b.UserScript, err = cborutil.ReadBytes(r); err != nil {
		return err
	}
	st, err := cborutil.ReadUint(r)
	if err != nil {
		return err
	}
	b.ScriptType = abi.ScriptType(st)
	deadline, err := cborutil.ReadInt64(r)
	if err != nil {
		return err
	}
	b.Deadline = abi.ChainEpoch(deadline)
	if b.IsTransferred, err = cborutil.ReadBool(r); err != nil {
		return err
	}
	b.RequestIdOfLocker, err = cborutil.ReadUint(r)
	return err
}

// lockerRequests is the per-locker bookkeeping record stored in the
// BurnRequests HAMT: the flushed AMT root of that locker's BurnRequest
// sequence plus its length, since adt.Array has no Append and the next
// free index must be tracked alongside the array itself.
type lockerRequests struct {
	Root   cid.Cid
	Length uint64
}

func (l *lockerRequests) MarshalCBOR(w io.Writer) error {
	if err := cborutil.WriteArrayHeader(w, 2); err != nil {
		return err
	}
	if err := cborutil.WriteBytes(w, l.Root.Bytes()); err != nil {
		return err
	}
	return cborutil.WriteUint(w, l.Length)
}

func (l *lockerRequests) UnmarshalCBOR(r io.Reader) error {
	if err := cborutil.ReadArrayHeader(r, 2); err != nil {
		return err
	}
	rootBytes, err := cborutil.ReadBytes(r)
	if err != nil {
		return err
	}
	root, err := cid.Cast(rootBytes)
	if err != nil {
		return err
	}
	l.Root = root
	l.Length, err = cborutil.ReadUint(r)
	return err
}

// State is the BurnRouter actor's persistent state.
type State struct {
	Owner               abi.Address
	RelayActor          abi.Address
	LockerRegistryActor abi.Address
	LedgerActor         abi.Address
	Treasury            abi.Address
	BitcoinFeeOracle    abi.Address

	TransferDeadline        abi.ChainEpoch
	ProtocolPercentageFee   uint64 // basis points, spec §3
	SlasherPercentageReward uint64 // basis points, spec §3
	BitcoinFee              uint64 // flat sat amount, set by BitcoinFeeOracle
	StartingBlockNumber     uint64 // strictly increasing, spec §6

	BurnRequests      cid.Cid // HAMT: locker target address bytes -> lockerRequests
	IsUsedAsBurnProof cid.Cid // HAMT: 32-byte txId -> bool (presence is the flag)
}

func ConstructState(
	store adt.Store,
	owner, relayActor, lockerRegistryActor, ledgerActor, treasury, bitcoinFeeOracle abi.Address,
	transferDeadline abi.ChainEpoch,
	protocolPercentageFee, slasherPercentageReward, bitcoinFee, startingBlockNumber uint64,
) (*State, error) {
	emptyMap, err := emptyMapRoot(store)
	if err != nil {
		return nil, err
	}
	return &State{
		Owner:                   owner,
		RelayActor:              relayActor,
		LockerRegistryActor:     lockerRegistryActor,
		LedgerActor:             ledgerActor,
		Treasury:                treasury,
		BitcoinFeeOracle:        bitcoinFeeOracle,
		TransferDeadline:        transferDeadline,
		ProtocolPercentageFee:   protocolPercentageFee,
		SlasherPercentageReward: slasherPercentageReward,
		BitcoinFee:              bitcoinFee,
		StartingBlockNumber:     startingBlockNumber,
		BurnRequests:            emptyMap,
		IsUsedAsBurnProof:       emptyMap,
	}, nil
}

func emptyMapRoot(store adt.Store) (cid.Cid, error) {
	m, err := adt.MakeEmptyMap(store)
	if err != nil {
		return cid.Undef, err
	}
	return m.Root()
}

func emptyArrayRoot(store adt.Store) (cid.Cid, error) {
	a, err := adt.MakeEmptyArray(store)
	if err != nil {
		return cid.Undef, err
	}
	return a.Root()
}

func lockerKey(a abi.Address) adt.BytesKey { return adt.BytesKey(a[:]) }
func txIDKey(id abi.Hash256) adt.BytesKey  { return adt.BytesKey(id[:]) }

// getLockerRequests loads a locker's bookkeeping record, returning a fresh
// zero-length one over an empty array if the locker has never had a
// BurnRequest recorded against it.
func getLockerRequests(store adt.Store, root cid.Cid, locker abi.Address) (*lockerRequests, error) {
	m, err := adt.AsMap(store, root)
	if err != nil {
		return nil, err
	}
	var lr lockerRequests
	found, err := m.Get(lockerKey(locker), &lr)
	if err != nil {
		return nil, err
	}
	if !found {
		arrRoot, err := emptyArrayRoot(store)
		if err != nil {
			return nil, err
		}
		return &lockerRequests{Root: arrRoot, Length: 0}, nil
	}
	return &lr, nil
}

func putLockerRequests(store adt.Store, root cid.Cid, locker abi.Address, lr *lockerRequests) (cid.Cid, error) {
	m, err := adt.AsMap(store, root)
	if err != nil {
		return cid.Undef, err
	}
	if err := m.Put(lockerKey(locker), lr); err != nil {
		return cid.Undef, err
	}
	return m.Root()
}

// appendBurnRequest stores req at the next free index of locker's
// sequence, returning the assigned index and the new BurnRequests root.
func appendBurnRequest(store adt.Store, burnRequestsRoot cid.Cid, locker abi.Address, req *BurnRequest) (uint64, cid.Cid, error) {
	lr, err := getLockerRequests(store, burnRequestsRoot, locker)
	if err != nil {
		return 0, cid.Undef, err
	}
	arr, err := adt.AsArray(store, lr.Root)
	if err != nil {
		return 0, cid.Undef, err
	}
	idx := lr.Length
	req.RequestIdOfLocker = idx
	if err := arr.Set(idx, req); err != nil {
		return 0, cid.Undef, err
	}
	arrRoot, err := arr.Root()
	if err != nil {
		return 0, cid.Undef, err
	}
	lr.Root = arrRoot
	lr.Length = idx + 1
	newRoot, err := putLockerRequests(store, burnRequestsRoot, locker, lr)
	if err != nil {
		return 0, cid.Undef, err
	}
	return idx, newRoot, nil
}

func getBurnRequest(store adt.Store, burnRequestsRoot cid.Cid, locker abi.Address, index uint64) (*BurnRequest, bool, error) {
	lr, err := getLockerRequests(store, burnRequestsRoot, locker)
	if err != nil {
		return nil, false, err
	}
	if index >= lr.Length {
		return nil, false, nil
	}
	arr, err := adt.AsArray(store, lr.Root)
	if err != nil {
		return nil, false, err
	}
	var req BurnRequest
	found, err := arr.Get(index, &req)
	if err != nil || !found {
		return nil, found, err
	}
	return &req, true, nil
}

func putBurnRequest(store adt.Store, burnRequestsRoot cid.Cid, locker abi.Address, index uint64, req *BurnRequest) (cid.Cid, error) {
	lr, err := getLockerRequests(store, burnRequestsRoot, locker)
	if err != nil {
		return cid.Undef, err
	}
	arr, err := adt.AsArray(store, lr.Root)
	if err != nil {
		return cid.Undef, err
	}
	if err := arr.Set(index, req); err != nil {
		return cid.Undef, err
	}
	arrRoot, err := arr.Root()
	if err != nil {
		return cid.Undef, err
	}
	lr.Root = arrRoot
	return putLockerRequests(store, burnRequestsRoot, locker, lr)
}

func getBurnRequestsLength(store adt.Store, burnRequestsRoot cid.Cid, locker abi.Address) (uint64, error) {
	lr, err := getLockerRequests(store, burnRequestsRoot, locker)
	if err != nil {
		return 0, err
	}
	return lr.Length, nil
}

// usedAsBurnProofFlag is the HAMT value stored for every claimed txId; its
// presence as a key is the flag (I4), the value itself unused.
type usedAsBurnProofFlag struct{}

func (usedAsBurnProofFlag) MarshalCBOR(w io.Writer) error { return cborutil.WriteBool(w, true) }
func (f *usedAsBurnProofFlag) UnmarshalCBOR(r io.Reader) error {
	_, err := cborutil.ReadBool(r)
	return err
}

func isUsedAsBurnProof(store adt.Store, root cid.Cid, txID abi.Hash256) (bool, error) {
	m, err := adt.AsMap(store, root)
	if err != nil {
		return false, err
	}
	var f usedAsBurnProofFlag
	found, err := m.Get(txIDKey(txID), &f)
	return found, err
}

func markUsedAsBurnProof(store adt.Store, root cid.Cid, txID abi.Hash256) (cid.Cid, error) {
	m, err := adt.AsMap(store, root)
	if err != nil {
		return cid.Undef, err
	}
	if err := m.Put(txIDKey(txID), usedAsBurnProofFlag{}); err != nil {
		return cid.Undef, err
	}
	return m.Root()
}
