package adt

import (
	"io"

	"github.com/filecoin-project/go-hamt-ipld"
	cid "github.com/ipfs/go-cid"
	"github.com/pkg/errors"
)

// Map is a HAMT-backed key/value table, grounded on the teacher's
// adt.MakeEmptyMap(store) / adt.AsMap(store, root) call sites in
// miner_actor.go (the miner's sector and pre-commit tables). Backs
// LockerRegistry's `lockers` table, its `lockerTargetAddress` inverse
// index, and BurnRouter's `isUsedAsBurnProof` set.
type Map struct {
	root  *hamt.Node
	store Store
}

func MakeEmptyMap(s Store) (*Map, error) {
	return &Map{root: hamt.NewNode(s), store: s}, nil
}

func AsMap(s Store, root cid.Cid) (*Map, error) {
	nd, err := hamt.LoadNode(s.Context(), s, root)
	if err != nil {
		return nil, errors.Wrapf(err, "adt: failed to load map at %s", root)
	}
	return &Map{root: nd, store: s}, nil
}

// Root flushes pending writes and returns the CID to persist in the
// owning actor's state.
func (m *Map) Root() (cid.Cid, error) {
	if err := m.root.Flush(m.store.Context()); err != nil {
		return cid.Undef, errors.Wrap(err, "adt: failed to flush map")
	}
	return m.store.Put(m.store.Context(), m.root)
}

func (m *Map) Put(k Keyer, v Marshaler) error {
	if err := m.root.Set(m.store.Context(), k.Key(), v); err != nil {
		return errors.Wrapf(err, "adt: failed to set key %q", k.Key())
	}
	return nil
}

// Get loads the value for k into out, returning false if absent.
func (m *Map) Get(k Keyer, out Unmarshaler) (bool, error) {
	err := m.root.Find(m.store.Context(), k.Key(), out)
	if err == hamt.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "adt: failed to get key %q", k.Key())
	}
	return true, nil
}

func (m *Map) Has(k Keyer) (bool, error) {
	found, err := m.Get(k, &discardValue{})
	return found, err
}

func (m *Map) Delete(k Keyer) error {
	if err := m.root.Delete(m.store.Context(), k.Key()); err != nil {
		return errors.Wrapf(err, "adt: failed to delete key %q", k.Key())
	}
	return nil
}

// ForEach visits every key in the map. Values aren't auto-decoded — most
// callers (locker pagination, script-index iteration) only need the key;
// those that need the value call Get(key, ...) explicitly.
func (m *Map) ForEach(fn func(key string) error) error {
	return m.root.ForEach(m.store.Context(), func(k string, _ interface{}) error {
		return fn(k)
	})
}

// discardValue satisfies Unmarshaler for Has's membership-only lookup.
type discardValue struct{}

func (d *discardValue) UnmarshalCBOR(_ io.Reader) error {
	return nil
}
