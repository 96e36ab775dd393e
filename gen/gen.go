// +build ignore

// Command gen writes the cbor-gen tuple encoders for every actor state and
// parameter type that crosses the wire or gets stored in an HAMT/AMT. It is
// never invoked by the build and no *_cbor_gen.go output is checked in; the
// stored types (Locker, BurnRequest) carry hand-written tuple encoders in
// their packages' state.go instead.
package main

import (
	"fmt"
	"os"

	gen "github.com/whyrusleeping/cbor-gen"

	"github.com/btcpeg/bridge-core/actors/builtin/burnrouter"
	"github.com/btcpeg/bridge-core/actors/builtin/ledger"
	"github.com/btcpeg/bridge-core/actors/builtin/lockerregistry"
)

func main() {
	if err := gen.WriteTupleEncodersToFile(
		"./actors/builtin/ledger/cbor_gen.go",
		"ledger",
		ledger.State{},
		ledger.EpochState{},
		ledger.ConstructorParams{},
		ledger.MintParams{},
		ledger.BurnParams{},
		ledger.OwnerBurnParams{},
		ledger.TransferParams{},
		ledger.TransferFromParams{},
		ledger.AddressParams{},
		ledger.BoolValue{},
	); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := gen.WriteTupleEncodersToFile(
		"./actors/builtin/lockerregistry/cbor_gen.go",
		"lockerregistry",
		lockerregistry.State{},
		lockerregistry.Locker{},
		lockerregistry.ConstructorParams{},
		lockerregistry.RequestToBecomeLockerParams{},
		lockerregistry.AddressParams{},
		lockerregistry.AddCollateralParams{},
		lockerregistry.AmountParams{},
		lockerregistry.RegistryMintParams{},
		lockerregistry.RegistryBurnParams{},
		lockerregistry.AfterLockerFeeReturn{},
		lockerregistry.SlashIdleLockerParams{},
		lockerregistry.SlashThiefLockerParams{},
		lockerregistry.CollateralAmountParams{},
		lockerregistry.Uint64Value{},
		lockerregistry.BoolValue{},
		lockerregistry.ListRangeParams{},
		lockerregistry.AddressListReturn{},
		lockerregistry.ScriptParams{},
	); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := gen.WriteTupleEncodersToFile(
		"./actors/builtin/burnrouter/cbor_gen.go",
		"burnrouter",
		burnrouter.State{},
		burnrouter.BurnRequest{},
		burnrouter.ConstructorParams{},
		burnrouter.CcBurnParams{},
		burnrouter.BurnProofParams{},
		burnrouter.DisputeBurnParams{},
		burnrouter.DisputeLockerParams{},
		burnrouter.AddressParams{},
		burnrouter.Uint64Params{},
		burnrouter.ChainEpochParams{},
		burnrouter.BurnRequestQueryParams{},
		burnrouter.Uint64Value{},
	); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
