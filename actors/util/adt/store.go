// Package adt provides the two state-table shapes every actor builds on:
// Map (locker table, script⇄target index, isUsedAsBurnProof set) and Array
// (per-locker BurnRequest sequence). Grounded on the teacher's adt.AsStore /
// adt.MakeEmptyMap / adt.MakeEmptyArray call sites throughout
// miner_actor.go; the package itself isn't in the retrieved fragment, so
// it's rebuilt here to that usage contract over go-hamt-ipld and
// go-amt-ipld/v2.
package adt

import (
	"github.com/btcpeg/bridge-core/actors/util/ipldstore"
)

// Store is a type alias so call sites read exactly like the teacher's
// `adt.Store` parameter, while the content-addressing concern lives in
// ipldstore.
type Store = ipldstore.Store

func AsStore(s Store) Store {
	return s
}
