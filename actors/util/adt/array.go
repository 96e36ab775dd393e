package adt

import (
	"context"

	amt "github.com/filecoin-project/go-amt-ipld/v2"
	cid "github.com/ipfs/go-cid"
	"github.com/pkg/errors"
)

// Array is an AMT-backed, append-friendly sequence indexed by a dense
// uint64 key, grounded on the teacher's adt.MakeEmptyArray(store) call
// sites (miner_actor.go's deadlines/sectors arrays). Backs each locker's
// append-only BurnRequest sequence, indexed by requestIdOfLocker.
type Array struct {
	root *amt.Root
}

func MakeEmptyArray(s Store) (*Array, error) {
	return &Array{root: amt.NewAMT(s)}, nil
}

func AsArray(s Store, root cid.Cid) (*Array, error) {
	r, err := amt.LoadAMT(s, root)
	if err != nil {
		return nil, errors.Wrapf(err, "adt: failed to load array at %s", root)
	}
	return &Array{root: r}, nil
}

func (a *Array) Root() (cid.Cid, error) {
	c, err := a.root.Flush(context.Background())
	if err != nil {
		return cid.Undef, errors.Wrap(err, "adt: failed to flush array")
	}
	return c, nil
}

func (a *Array) Set(i uint64, v Marshaler) error {
	if err := a.root.Set(context.Background(), i, v); err != nil {
		return errors.Wrapf(err, "adt: failed to set index %d", i)
	}
	return nil
}

func (a *Array) Get(i uint64, out Unmarshaler) (bool, error) {
	err := a.root.Get(context.Background(), i, out)
	if err != nil {
		if err == amt.ErrNotFound {
			return false, nil
		}
		return false, errors.Wrapf(err, "adt: failed to get index %d", i)
	}
	return true, nil
}

// Length is the logical length of the sequence — for a BurnRequest array
// this equals the locker's next requestIdOfLocker.
func (a *Array) Length() uint64 {
	return a.root.Count
}

func (a *Array) ForEach(fn func(i uint64) error) error {
	return a.root.ForEach(context.Background(), func(i uint64, _ interface{}) error {
		return fn(i)
	})
}
