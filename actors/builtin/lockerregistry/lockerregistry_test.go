package lockerregistry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/btcpeg/bridge-core/actors/abi"
	"github.com/btcpeg/bridge-core/actors/abi/big"
	"github.com/btcpeg/bridge-core/actors/builtin"
	"github.com/btcpeg/bridge-core/actors/builtin/lockerregistry"
	"github.com/btcpeg/bridge-core/actors/runtime"
	"github.com/btcpeg/bridge-core/actors/runtime/exitcode"
	"github.com/btcpeg/bridge-core/support/mock"
	tutil "github.com/btcpeg/bridge-core/support/testing"
)

func TestExports(t *testing.T) {
	mock.CheckActorExports(t, lockerregistry.Actor{})
}

// env bundles the fixed collaborator addresses and actor handle shared by
// every test in this file.
type env struct {
	actor       lockerregistry.Actor
	owner       abi.Address
	ledger      abi.Address
	burnRouter  abi.Address
	oracle      abi.Address
	minter      abi.Address
	collateralR uint64
	liquidR     uint64
	discountR   uint64
	lockerFee   uint64
}

func newEnv(t *testing.T) (*env, *mock.Runtime) {
	e := &env{
		actor:       lockerregistry.Actor{},
		owner:       tutil.NewAddr(t, 1),
		ledger:      tutil.NewAddr(t, 2),
		burnRouter:  tutil.NewAddr(t, 3),
		oracle:      tutil.NewAddr(t, 4),
		minter:      tutil.NewAddr(t, 5),
		collateralR: 15_000, // 150%
		liquidR:     13_000, // 130%
		discountR:   9_000,  // 90%
		lockerFee:   20,     // 0.2%
	}
	receiver := tutil.NewAddr(t, 99)
	rt := mock.NewBuilder(context.Background(), receiver).WithCaller(e.owner).Build(t)
	rt.Call(e.actor.Constructor, &lockerregistry.ConstructorParams{
		Owner:                      e.owner,
		LedgerActor:                e.ledger,
		BurnRouterActor:            e.burnRouter,
		OracleActor:                e.oracle,
		MinterActor:                e.minter,
		CollateralRatio:            e.collateralR,
		LiquidationRatio:           e.liquidR,
		PriceWithDiscountRatio:     e.discountR,
		LockerPercentageFee:        e.lockerFee,
		MinRequiredTNTLockedAmount: big.NewInt(1_000),
		InactivationDelay:          100,
	})
	return e, rt
}

// expectPrice scripts the oracle Send every capacity/health-factor
// computation makes.
func expectPrice(rt *mock.Runtime, oracle abi.Address, price big.Int) {
	rt.ExpectSend(oracle, builtin.MethodOracleGetPrice, big.Zero(), &price, exitcode.Ok)
}

// nativeLockedFixture and priceFixture keep collateralValueBTC = nativeLocked
// * price / 10^NATIVE_DECIMALS away from flooring to zero: 1e18 native at a
// price of 1e8 native-per-wrapped-BTC values the collateral at 1e8 units.
func nativeLockedFixture() big.Int { return big.NewInt(1_000_000_000_000_000_000) }
func priceFixture() big.Int        { return big.NewInt(100_000_000) }

func becomeLocker(t *testing.T, e *env, rt *mock.Runtime, target abi.Address, script []byte, amount big.Int) {
	rt.WithCaller(target)
	rt.Call(e.actor.RequestToBecomeLocker, &lockerregistry.RequestToBecomeLockerParams{
		LockerLockingScript: script,
		LockerScriptType:    abi.ScriptTypeP2WPKH,
		LockerRescueScript:  tutil.NewScriptPayload(t, 20, 0xEE),
		LockerRescueType:    abi.ScriptTypeP2WPKH,
		NativeTokenAmount:   amount,
		Value:               amount,
	})
	rt.WithCaller(e.owner)
	rt.Call(e.actor.AddLocker, &lockerregistry.AddressParams{Target: target})
}

func TestConstructorValidatesRatioOrdering(t *testing.T) {
	actor := lockerregistry.Actor{}
	owner := tutil.NewAddr(t, 1)
	ledger := tutil.NewAddr(t, 2)
	oracle := tutil.NewAddr(t, 4)
	receiver := tutil.NewAddr(t, 99)
	rt := mock.NewBuilder(context.Background(), receiver).WithCaller(owner).Build(t)

	mock.ExpectAbort(t, exitcode.ErrIllegalArgument, func() {
		rt.Call(actor.Constructor, &lockerregistry.ConstructorParams{
			Owner: owner, LedgerActor: ledger, OracleActor: oracle,
			CollateralRatio: 10_000, LiquidationRatio: 13_000, PriceWithDiscountRatio: 9_000,
			MinRequiredTNTLockedAmount: big.NewInt(1), InactivationDelay: 10,
		})
	})
}

func TestRequestToBecomeLockerAndRevoke(t *testing.T) {
	e, rt := newEnv(t)
	target := tutil.NewAddr(t, 10)
	script := tutil.NewScriptPayload(t, 20, 0x01)

	rt.WithCaller(target)
	rt.Call(e.actor.RequestToBecomeLocker, &lockerregistry.RequestToBecomeLockerParams{
		LockerLockingScript: script,
		LockerScriptType:    abi.ScriptTypeP2WPKH,
		LockerRescueScript:  tutil.NewScriptPayload(t, 20, 0xEE),
		LockerRescueType:    abi.ScriptTypeP2WPKH,
		NativeTokenAmount:   big.NewInt(2_000),
		Value:               big.NewInt(2_000),
	})

	isLocker := rt.Call(e.actor.IsLocker, &lockerregistry.AddressParams{Target: target}).(*lockerregistry.BoolValue)
	assert.False(t, isLocker.Value)

	rt.ExpectSend(target, runtime.MethodSend, big.NewInt(2_000), nil, exitcode.Ok)
	rt.Call(e.actor.RevokeRequest, &abi.EmptyValue{})
	rt.Verify()

	mock.ExpectAbort(t, exitcode.ErrIllegalState, func() {
		rt.Call(e.actor.RevokeRequest, &abi.EmptyValue{})
	})
}

func TestRequestToBecomeLockerRejectsBelowMinimum(t *testing.T) {
	e, rt := newEnv(t)
	target := tutil.NewAddr(t, 10)
	rt.WithCaller(target)
	mock.ExpectAbort(t, exitcode.ErrInsufficientFunds, func() {
		rt.Call(e.actor.RequestToBecomeLocker, &lockerregistry.RequestToBecomeLockerParams{
			LockerLockingScript: tutil.NewScriptPayload(t, 20, 0x01),
			LockerScriptType:    abi.ScriptTypeP2WPKH,
			LockerRescueScript:  tutil.NewScriptPayload(t, 20, 0xEE),
			LockerRescueType:    abi.ScriptTypeP2WPKH,
			NativeTokenAmount:   big.NewInt(1),
			Value:               big.NewInt(1),
		})
	})
}

func TestAddLockerEstablishesScriptIndex(t *testing.T) {
	e, rt := newEnv(t)
	target := tutil.NewAddr(t, 10)
	script := tutil.NewScriptPayload(t, 20, 0x01)
	becomeLocker(t, e, rt, target, script, big.NewInt(10_000))

	isLocker := rt.Call(e.actor.IsLocker, &lockerregistry.AddressParams{Target: target}).(*lockerregistry.BoolValue)
	assert.True(t, isLocker.Value)
	isActive := rt.Call(e.actor.IsLockerActive, &lockerregistry.AddressParams{Target: target}).(*lockerregistry.BoolValue)
	assert.True(t, isActive.Value)

	count := rt.Call(e.actor.GetLockerCount, &abi.EmptyValue{}).(*lockerregistry.Uint64Value)
	assert.Equal(t, uint64(1), count.Value)
}

// TestMintSplitsLockerFee checks that a mint is split between the
// receiver's net amount and the locker's own fee share, both credited
// through Ledger.Mint.
func TestMintSplitsLockerFee(t *testing.T) {
	e, rt := newEnv(t)
	target := tutil.NewAddr(t, 10)
	script := tutil.NewScriptPayload(t, 20, 0x01)
	becomeLocker(t, e, rt, target, script, nativeLockedFixture())

	receiver := tutil.NewAddr(t, 20)
	price := priceFixture()
	rt.WithCaller(e.minter)
	expectPrice(rt, e.oracle, price)
	amount := big.NewInt(1_000)
	lockerFee := big.Div(big.Mul(amount, big.NewInt(int64(e.lockerFee))), big.NewInt(builtin.MaxLockerFee))
	net := big.Sub(amount, lockerFee)
	rt.ExpectSend(e.ledger, builtin.MethodLedgerMint, big.Zero(), nil, exitcode.Ok)
	rt.ExpectSend(e.ledger, builtin.MethodLedgerMint, big.Zero(), nil, exitcode.Ok)
	rt.Call(e.actor.Mint, &lockerregistry.RegistryMintParams{
		LockerLockingScript: script,
		Receiver:            receiver,
		Amount:              amount,
	})
	rt.Verify()
	assert.True(t, net.GreaterThan(big.Zero()))
	assert.True(t, lockerFee.GreaterThanEqual(big.Zero()))
}

func TestMintRejectsOverCapacity(t *testing.T) {
	e, rt := newEnv(t)
	target := tutil.NewAddr(t, 10)
	script := tutil.NewScriptPayload(t, 20, 0x01)
	becomeLocker(t, e, rt, target, script, big.NewInt(1_000)) // tiny collateral: the registry minimum

	rt.WithCaller(e.minter)
	expectPrice(rt, e.oracle, big.NewInt(1))
	mock.ExpectAbort(t, exitcode.ErrInsufficientFunds, func() {
		rt.Call(e.actor.Mint, &lockerregistry.RegistryMintParams{
			LockerLockingScript: script,
			Receiver:            tutil.NewAddr(t, 20),
			Amount:              big.NewInt(1_000_000),
		})
	})
}

func TestMintRejectsNonMinterCaller(t *testing.T) {
	e, rt := newEnv(t)
	target := tutil.NewAddr(t, 10)
	script := tutil.NewScriptPayload(t, 20, 0x01)
	becomeLocker(t, e, rt, target, script, nativeLockedFixture())

	rt.WithCaller(tutil.NewAddr(t, 123))
	mock.ExpectAbort(t, exitcode.ErrForbidden, func() {
		rt.Call(e.actor.Mint, &lockerregistry.RegistryMintParams{
			LockerLockingScript: script,
			Receiver:            tutil.NewAddr(t, 20),
			Amount:              big.NewInt(10),
		})
	})
}

func TestBurnPullsFeeAndBurnsRemainder(t *testing.T) {
	e, rt := newEnv(t)
	target := tutil.NewAddr(t, 10)
	script := tutil.NewScriptPayload(t, 20, 0x01)
	becomeLocker(t, e, rt, target, script, nativeLockedFixture())

	rt.WithCaller(e.minter)
	expectPrice(rt, e.oracle, priceFixture())
	rt.ExpectSend(e.ledger, builtin.MethodLedgerMint, big.Zero(), nil, exitcode.Ok)
	rt.ExpectSend(e.ledger, builtin.MethodLedgerMint, big.Zero(), nil, exitcode.Ok)
	rt.Call(e.actor.Mint, &lockerregistry.RegistryMintParams{
		LockerLockingScript: script,
		Receiver:            tutil.NewAddr(t, 20),
		Amount:              big.NewInt(1_000),
	})
	rt.Verify()

	amount := big.NewInt(500)
	lockerFee := big.Div(big.Mul(amount, big.NewInt(int64(e.lockerFee))), big.NewInt(builtin.MaxLockerFee))
	afterFee := big.Sub(amount, lockerFee)

	rt.WithCaller(e.burnRouter)
	rt.ExpectSend(e.ledger, builtin.MethodLedgerTransferFrom, big.Zero(), nil, exitcode.Ok)
	if lockerFee.GreaterThan(big.Zero()) {
		rt.ExpectSend(e.ledger, builtin.MethodLedgerTransferFrom, big.Zero(), nil, exitcode.Ok)
	}
	rt.ExpectSend(e.ledger, builtin.MethodLedgerBurn, big.Zero(), nil, exitcode.Ok)
	ret := rt.Call(e.actor.Burn, &lockerregistry.RegistryBurnParams{
		LockerLockingScript: script,
		Amount:              amount,
	}).(*lockerregistry.AfterLockerFeeReturn)
	rt.Verify()
	assert.True(t, ret.AfterLockerFee.Equals(afterFee))
}

func TestRequestInactivationAndSelfRemove(t *testing.T) {
	e, rt := newEnv(t)
	target := tutil.NewAddr(t, 10)
	script := tutil.NewScriptPayload(t, 20, 0x01)
	becomeLocker(t, e, rt, target, script, big.NewInt(5_000))

	rt.WithCaller(target)
	rt.WithEpoch(0)
	rt.Call(e.actor.RequestInactivation, &abi.EmptyValue{})

	isActive := rt.Call(e.actor.IsLockerActive, &lockerregistry.AddressParams{Target: target}).(*lockerregistry.BoolValue)
	assert.False(t, isActive.Value)

	// SelfRemoveLocker before the delay elapses still fails.
	mock.ExpectAbort(t, exitcode.ErrIllegalState, func() {
		rt.Call(e.actor.SelfRemoveLocker, &abi.EmptyValue{})
	})

	rt.WithEpoch(100)
	rt.ExpectSend(target, runtime.MethodSend, big.NewInt(5_000), nil, exitcode.Ok)
	rt.Call(e.actor.SelfRemoveLocker, &abi.EmptyValue{})
	rt.Verify()

	isLocker := rt.Call(e.actor.IsLocker, &lockerregistry.AddressParams{Target: target}).(*lockerregistry.BoolValue)
	assert.False(t, isLocker.Value)
}

func TestRequestActivationReversesInactivation(t *testing.T) {
	e, rt := newEnv(t)
	target := tutil.NewAddr(t, 10)
	script := tutil.NewScriptPayload(t, 20, 0x01)
	becomeLocker(t, e, rt, target, script, big.NewInt(5_000))

	rt.WithCaller(target)
	rt.Call(e.actor.RequestInactivation, &abi.EmptyValue{})
	rt.Call(e.actor.RequestActivation, &abi.EmptyValue{})

	isActive := rt.Call(e.actor.IsLockerActive, &lockerregistry.AddressParams{Target: target}).(*lockerregistry.BoolValue)
	assert.True(t, isActive.Value)
}

// TestRemoveCollateralRejectsWhenCapacityWouldGoNegative exercises the
// Inactive-locker collateral withdrawal guard: a locker holding netMinted
// against its locked collateral may not withdraw past the point where its
// remaining collateral still covers that netMinted at collateralRatio.
func TestRemoveCollateralRejectsWhenCapacityWouldGoNegative(t *testing.T) {
	e, rt := newEnv(t)
	target := tutil.NewAddr(t, 10)
	script := tutil.NewScriptPayload(t, 20, 0x01)
	nativeLocked := nativeLockedFixture()
	becomeLocker(t, e, rt, target, script, nativeLocked)

	receiver := tutil.NewAddr(t, 20)
	price := priceFixture()
	rt.WithCaller(e.minter)
	expectPrice(rt, e.oracle, price)
	mintAmount := big.NewInt(50_000_000) // half the collateral's wrapped-BTC value
	rt.ExpectSend(e.ledger, builtin.MethodLedgerMint, big.Zero(), nil, exitcode.Ok)
	rt.ExpectSend(e.ledger, builtin.MethodLedgerMint, big.Zero(), nil, exitcode.Ok)
	rt.Call(e.actor.Mint, &lockerregistry.RegistryMintParams{
		LockerLockingScript: script,
		Receiver:            receiver,
		Amount:              mintAmount,
	})
	rt.Verify()

	rt.WithCaller(target)
	rt.WithEpoch(0)
	rt.Call(e.actor.RequestInactivation, &abi.EmptyValue{})
	rt.WithEpoch(100)

	// Withdrawing nearly all collateral would leave capacity negative
	// against the outstanding netMinted.
	expectPrice(rt, e.oracle, price)
	mock.ExpectAbort(t, exitcode.ErrInsufficientFunds, func() {
		rt.Call(e.actor.RemoveCollateral, &lockerregistry.AmountParams{
			Amount: big.Sub(nativeLocked, big.NewInt(1)),
		})
	})

	// A modest withdrawal that keeps capacity non-negative succeeds.
	expectPrice(rt, e.oracle, price)
	rt.ExpectSend(target, runtime.MethodSend, big.NewInt(1_000), nil, exitcode.Ok)
	rt.Call(e.actor.RemoveCollateral, &lockerregistry.AmountParams{
		Amount: big.NewInt(1_000),
	})
	rt.Verify()
}

// TestLiquidateLockerScenario4 exercises spec §8 Scenario 4: an
// under-collateralized locker becomes liquidatable and a buyer may
// purchase collateral at a discount, paying with wrapped-BTC that is
// burnt and subtracted from the locker's netMinted.
func TestLiquidateLockerScenario4(t *testing.T) {
	e, rt := newEnv(t)
	target := tutil.NewAddr(t, 10)
	script := tutil.NewScriptPayload(t, 20, 0x01)
	nativeLocked := nativeLockedFixture()
	becomeLocker(t, e, rt, target, script, nativeLocked)

	// nativeLocked is exactly 1e18, so collateralValueBTC = nativeLocked *
	// price / 1e18 collapses to price itself — keeps the rest of this test's
	// arithmetic in small, legible numbers. Mint 10,000 against a capacity
	// of price(1e8)*10_000/15_000 = 66,666,666, with a nonzero locker fee
	// (10,000*20/10_000 = 20) so both Ledger.Mint sends actually fire.
	mintPrice := priceFixture()
	rt.WithCaller(e.minter)
	expectPrice(rt, e.oracle, mintPrice)
	rt.ExpectSend(e.ledger, builtin.MethodLedgerMint, big.Zero(), nil, exitcode.Ok)
	rt.ExpectSend(e.ledger, builtin.MethodLedgerMint, big.Zero(), nil, exitcode.Ok)
	rt.Call(e.actor.Mint, &lockerregistry.RegistryMintParams{
		LockerLockingScript: script,
		Receiver:            tutil.NewAddr(t, 20),
		Amount:              big.NewInt(10_000),
	})
	rt.Verify()

	// Price crashes to 6,000: collateralValueBTC falls to 6,000, below the
	// 130%-ratio requirement for netMinted=10,000 (needs collateralValueBTC
	// * 10_000 >= netMinted * 13_000, i.e. >= 13,000), so the locker is
	// liquidatable.
	buyer := tutil.NewAddr(t, 40)
	rt.WithCaller(buyer)
	price := big.NewInt(6_000)
	expectPrice(rt, e.oracle, price)
	maxBuyable := rt.Call(e.actor.GetMaximumBuyableCollateral, &lockerregistry.AddressParams{Target: target}).(*big.Int)
	rt.Verify()
	require.True(t, maxBuyable.GreaterThan(big.Zero()))

	// The closed-form solution overshoots nativeLocked here (the discount
	// alone isn't steep enough relative to liquidationRatio to self-correct
	// health at this netMinted), so the whole locker is clamped as sellable.
	// A partial buy of 2e14 stays comfortably inside that bound and burns a
	// non-zero amount of wrapped-BTC (2e14 * discountedPrice(5,400) / 1e18
	// = 1 unit).
	expectPrice(rt, e.oracle, price)
	collateralAmount := big.NewInt(200_000_000_000_000)
	rt.ExpectSend(e.ledger, builtin.MethodLedgerTransferFrom, big.Zero(), nil, exitcode.Ok)
	rt.ExpectSend(e.ledger, builtin.MethodLedgerBurn, big.Zero(), nil, exitcode.Ok)
	rt.ExpectSend(buyer, runtime.MethodSend, collateralAmount, nil, exitcode.Ok)
	rt.Call(e.actor.LiquidateLocker, &lockerregistry.CollateralAmountParams{
		Target:           target,
		CollateralAmount: collateralAmount,
	})
	rt.Verify()
}

func TestSlashIdleLockerRetiresNetMinted(t *testing.T) {
	e, rt := newEnv(t)
	target := tutil.NewAddr(t, 10)
	script := tutil.NewScriptPayload(t, 20, 0x01)
	becomeLocker(t, e, rt, target, script, nativeLockedFixture())

	rt.WithCaller(e.minter)
	expectPrice(rt, e.oracle, priceFixture())
	rt.ExpectSend(e.ledger, builtin.MethodLedgerMint, big.Zero(), nil, exitcode.Ok)
	rt.ExpectSend(e.ledger, builtin.MethodLedgerMint, big.Zero(), nil, exitcode.Ok)
	rt.Call(e.actor.Mint, &lockerregistry.RegistryMintParams{
		LockerLockingScript: script,
		Receiver:            tutil.NewAddr(t, 20),
		Amount:              big.NewInt(1_000),
	})
	rt.Verify()

	user := tutil.NewAddr(t, 50)
	slasher := tutil.NewAddr(t, 51)
	// nativeNeeded = (rewardBTC+amountBTC)*1e18/price = 210*1e18/1e8 =
	// 2.1e12, comfortably inside the locker's 1e18 locked native, so
	// nativePaid is the full 2.1e12, split proportionally 200:10.
	nativePaid := big.NewInt(2_100_000_000_000)
	userNative := big.Div(big.Mul(nativePaid, big.NewInt(200)), big.NewInt(210))
	rewardNative := big.Sub(nativePaid, userNative)
	rt.WithCaller(e.burnRouter)
	expectPrice(rt, e.oracle, priceFixture())
	rt.ExpectSend(user, runtime.MethodSend, userNative, nil, exitcode.Ok)
	rt.ExpectSend(slasher, runtime.MethodSend, rewardNative, nil, exitcode.Ok)
	rt.Call(e.actor.SlashIdleLocker, &lockerregistry.SlashIdleLockerParams{
		Target:          target,
		RewardAmountBTC: big.NewInt(10),
		RewardRecipient: slasher,
		AmountBTC:       big.NewInt(200),
		UserRecipient:   user,
	})
	rt.Verify()

	locker := rt.Call(e.actor.GetLocker, &lockerregistry.AddressParams{Target: target}).(*lockerregistry.Locker)
	assert.True(t, locker.NetMinted.Equals(big.NewInt(800)))
}
