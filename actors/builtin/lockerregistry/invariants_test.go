package lockerregistry_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/btcpeg/bridge-core/actors/abi"
	"github.com/btcpeg/bridge-core/actors/abi/big"
	"github.com/btcpeg/bridge-core/actors/builtin"
	"github.com/btcpeg/bridge-core/actors/builtin/lockerregistry"
	"github.com/btcpeg/bridge-core/actors/runtime"
	"github.com/btcpeg/bridge-core/actors/runtime/exitcode"
	"github.com/btcpeg/bridge-core/support/mock"
	tutil "github.com/btcpeg/bridge-core/support/testing"
)

// TestInvariants runs the testable properties from spec.md §8 that are
// scoped to a single LockerRegistry instance: aggregate capacity-gated
// minting (P2), the script⇄target index being a true inverse (P6), and the
// inactive-locker withdrawal capacity guard (P7). P3's fee arithmetic and
// P4's isTransferred flag are exercised in the BurnRouter tests; P1 and P5
// have no test in this module.
func TestInvariants(t *testing.T) {
	Convey("Given a registry with two lockers", t, func() {
		e, rt := newEnv(t)
		price := priceFixture()

		targetA := tutil.NewAddr(t, 10)
		scriptA := tutil.NewScriptPayload(t, 20, 0x01)
		becomeLocker(t, e, rt, targetA, scriptA, nativeLockedFixture())

		targetB := tutil.NewAddr(t, 11)
		scriptB := tutil.NewScriptPayload(t, 20, 0x02)
		becomeLocker(t, e, rt, targetB, scriptB, nativeLockedFixture())

		Convey("P6: the script index resolves back to the target that registered it", func() {
			got := rt.Call(e.actor.GetLockerForScript, &lockerregistry.ScriptParams{Script: scriptA}).(*lockerregistry.AddressParams)
			So(got.Target, ShouldEqual, targetA)
			got = rt.Call(e.actor.GetLockerForScript, &lockerregistry.ScriptParams{Script: scriptB}).(*lockerregistry.AddressParams)
			So(got.Target, ShouldEqual, targetB)
		})

		Convey("P2: aggregate netMinted across lockers never exceeds aggregate capacity at creation", func() {
			collateralValueBTC := big.Div(big.Mul(nativeLockedFixture(), price), big.NewInt(1_000_000_000_000_000_000))
			capacityAtCreation := big.Div(big.Mul(collateralValueBTC, big.NewInt(builtin.MaxProtocolFee)), big.NewInt(int64(e.collateralR)))
			aggregateCapacity := big.Add(capacityAtCreation, capacityAtCreation)

			receiver := tutil.NewAddr(t, 20)
			rt.WithCaller(e.minter)
			expectPrice(rt, e.oracle, price)
			rt.ExpectSend(e.ledger, builtin.MethodLedgerMint, big.Zero(), nil, exitcode.Ok)
			rt.ExpectSend(e.ledger, builtin.MethodLedgerMint, big.Zero(), nil, exitcode.Ok)
			rt.Call(e.actor.Mint, &lockerregistry.RegistryMintParams{
				LockerLockingScript: scriptA, Receiver: receiver, Amount: capacityAtCreation,
			})
			rt.Verify()

			lockerA := rt.Call(e.actor.GetLocker, &lockerregistry.AddressParams{Target: targetA}).(*lockerregistry.Locker)
			lockerB := rt.Call(e.actor.GetLocker, &lockerregistry.AddressParams{Target: targetB}).(*lockerregistry.Locker)
			aggregateNetMinted := big.Add(lockerA.NetMinted, lockerB.NetMinted)
			So(aggregateNetMinted.LessThanEqual(aggregateCapacity), ShouldBeTrue)

			Convey("and minting one more unit against the same locker is rejected", func() {
				expectPrice(rt, e.oracle, price)
				mock.ExpectAbort(t, exitcode.ErrInsufficientFunds, func() {
					rt.Call(e.actor.Mint, &lockerregistry.RegistryMintParams{
						LockerLockingScript: scriptA, Receiver: receiver, Amount: big.NewInt(1),
					})
				})
				So(true, ShouldBeTrue)
			})
		})

		Convey("P7: an inactive locker may only remove collateral that still covers its netMinted", func() {
			receiver := tutil.NewAddr(t, 20)
			rt.WithCaller(e.minter)
			expectPrice(rt, e.oracle, price)
			mintAmount := big.NewInt(50_000_000)
			rt.ExpectSend(e.ledger, builtin.MethodLedgerMint, big.Zero(), nil, exitcode.Ok)
			rt.ExpectSend(e.ledger, builtin.MethodLedgerMint, big.Zero(), nil, exitcode.Ok)
			rt.Call(e.actor.Mint, &lockerregistry.RegistryMintParams{
				LockerLockingScript: scriptA, Receiver: receiver, Amount: mintAmount,
			})
			rt.Verify()

			rt.WithCaller(targetA)
			rt.WithEpoch(0)
			rt.Call(e.actor.RequestInactivation, &abi.EmptyValue{})
			rt.WithEpoch(100)

			expectPrice(rt, e.oracle, price)
			mock.ExpectAbort(t, exitcode.ErrInsufficientFunds, func() {
				rt.Call(e.actor.RemoveCollateral, &lockerregistry.AmountParams{
					Amount: big.Sub(nativeLockedFixture(), big.NewInt(1)),
				})
			})

			expectPrice(rt, e.oracle, price)
			rt.ExpectSend(targetA, runtime.MethodSend, big.NewInt(1_000), nil, exitcode.Ok)
			rt.Call(e.actor.RemoveCollateral, &lockerregistry.AmountParams{Amount: big.NewInt(1_000)})
			rt.Verify()
		})
	})
}
