package lockerregistry

import (
	"github.com/btcpeg/bridge-core/actors/abi"
	"github.com/btcpeg/bridge-core/actors/abi/big"
	"github.com/btcpeg/bridge-core/actors/builtin"
	"github.com/btcpeg/bridge-core/actors/runtime"
	"github.com/btcpeg/bridge-core/actors/runtime/exitcode"
)

// Actor implements the Candidate→Active→Inactive→Removed locker lifecycle
// and the mint/burn capacity gate that makes LockerRegistry the only
// caller authorized to move the Ledger's supply (spec §2, §4.2).
type Actor struct{}

func (a Actor) Exports() []interface{} {
	return []interface{}{
		1:  a.Constructor,
		2:  a.RequestToBecomeLocker,
		3:  a.RevokeRequest,
		4:  a.AddLocker,
		5:  a.RequestInactivation,
		6:  a.RequestActivation,
		7:  a.AddCollateral,
		8:  a.RemoveCollateral,
		9:  a.SelfRemoveLocker,
		10: a.Mint,
		11: a.Burn,
		12: a.SlashIdleLocker,
		13: a.SlashThiefLocker,
		14: a.LiquidateLocker,
		15: a.BuySlashedCollateralOfLocker,
		16: a.SetPriceOracle,
		17: a.SetMinter,
		18: a.GetLockerCount,
		19: a.GetLocker,
		20: a.GetLockersTargetAddressList,
		21: a.IsLocker,
		22: a.IsLockerActive,
		23: a.GetMaximumBuyableCollateral,
		24: a.GetLockerForScript,
	}
}

// --- construction ------------------------------------------------------

type ConstructorParams struct {
	Owner           abi.Address
	LedgerActor     abi.Address
	BurnRouterActor abi.Address
	OracleActor     abi.Address
	MinterActor     abi.Address

	CollateralRatio            uint64
	LiquidationRatio           uint64
	PriceWithDiscountRatio     uint64
	LockerPercentageFee        uint64
	MinRequiredTNTLockedAmount big.Int
	InactivationDelay          abi.ChainEpoch
}

func (a Actor) Constructor(rt runtime.Runtime, params *ConstructorParams) *abi.EmptyValue {
	rt.ValidateImmediateCallerAcceptAny()
	for _, addr := range []abi.Address{params.Owner, params.LedgerActor, params.OracleActor} {
		if addr.Empty() {
			rt.Abortf(exitcode.ErrIllegalArgument, "owner, ledger, and oracle addresses must not be the zero address")
		}
	}
	// I6: collateralRatio > liquidationRatio > priceWithDiscountRatio, the
	// last bounded at 100%.
	if params.CollateralRatio <= params.LiquidationRatio {
		rt.Abortf(exitcode.ErrIllegalArgument, "collateralRatio must exceed liquidationRatio")
	}
	if params.LiquidationRatio <= params.PriceWithDiscountRatio {
		rt.Abortf(exitcode.ErrIllegalArgument, "liquidationRatio must exceed priceWithDiscountRatio")
	}
	if params.PriceWithDiscountRatio > builtin.MaxDiscountRatio {
		rt.Abortf(exitcode.ErrIllegalArgument, "priceWithDiscountRatio exceeds 100%%")
	}
	if params.LockerPercentageFee > builtin.MaxLockerFee {
		rt.Abortf(exitcode.ErrIllegalArgument, "lockerPercentageFee exceeds MaxLockerFee")
	}
	if params.MinRequiredTNTLockedAmount.LessThanEqual(big.Zero()) {
		rt.Abortf(exitcode.ErrIllegalArgument, "minRequiredTNTLockedAmount must be positive")
	}
	if params.InactivationDelay <= 0 {
		rt.Abortf(exitcode.ErrIllegalArgument, "inactivationDelay must be positive")
	}

	st, err := ConstructState(rt.Store(), params.Owner, params.LedgerActor, params.BurnRouterActor, params.OracleActor,
		params.CollateralRatio, params.LiquidationRatio, params.PriceWithDiscountRatio, params.LockerPercentageFee,
		params.MinRequiredTNTLockedAmount, params.InactivationDelay)
	runtime.RequireNoErr(rt, err, exitcode.ErrIllegalState, "failed to construct state")
	st.MinterActor = params.MinterActor
	rt.State().Create(st)
	return nil
}

// --- candidacy & lifecycle ----------------------------------------------

type RequestToBecomeLockerParams struct {
	LockerLockingScript []byte
	LockerScriptType    abi.ScriptType
	LockerRescueScript  []byte
	LockerRescueType    abi.ScriptType
	NativeTokenAmount   big.Int
	// Value is the native token amount attached to this call, modeling
	// msg.value since Runtime carries no implicit attached-value channel.
	Value big.Int
}

// RequestToBecomeLocker creates a Candidate (spec §4.2): the caller is the
// prospective locker's own target address.
func (a Actor) RequestToBecomeLocker(rt runtime.Runtime, params *RequestToBecomeLockerParams) *abi.EmptyValue {
	rt.ValidateImmediateCallerAcceptAny()
	caller := rt.Caller()
	validateScript(rt, params.LockerLockingScript, params.LockerScriptType)
	validateScript(rt, params.LockerRescueScript, params.LockerRescueType)
	if !params.Value.Equals(params.NativeTokenAmount) {
		rt.Abortf(exitcode.ErrIllegalArgument, "attached value does not match nativeTokenAmount")
	}

	var st State
	rt.State().Transaction(&st, func() {
		if params.NativeTokenAmount.LessThan(st.MinRequiredTNTLockedAmount) {
			rt.Abortf(exitcode.ErrInsufficientFunds, "nativeTokenAmount below minRequiredTNTLockedAmount")
		}
		_, found, err := getTargetForScript(rt.Store(), st.LockerTargetAddress, params.LockerLockingScript)
		runtime.RequireNoErr(rt, err, exitcode.ErrIllegalState, "failed to load script index")
		if found {
			rt.Abortf(exitcode.ErrIllegalState, "locking script already registered to a locker")
		}
		existing, found, err := getLocker(rt.Store(), st.Lockers, caller)
		runtime.RequireNoErr(rt, err, exitcode.ErrIllegalState, "failed to load locker")
		if found && (existing.IsCandidate || existing.IsLocker) {
			rt.Abortf(exitcode.ErrIllegalState, "caller is already a candidate or locker")
		}

		l := &Locker{
			LockerLockingScript:     params.LockerLockingScript,
			LockerScriptType:        params.LockerScriptType,
			LockerRescueScript:      params.LockerRescueScript,
			LockerRescueType:        params.LockerRescueType,
			NativeTokenLockedAmount: params.NativeTokenAmount,
			NetMinted:               big.Zero(),
			SlashingCoreBTCAmount:   big.Zero(),
			IsCandidate:             true,
		}
		root, err := putLocker(rt.Store(), st.Lockers, caller, l)
		runtime.RequireNoErr(rt, err, exitcode.ErrIllegalState, "failed to store locker")
		st.Lockers = root
	})
	rt.Emit("RequestAddLocker", map[string]interface{}{"target": caller.String()})
	return nil
}

func validateScript(rt runtime.Runtime, script []byte, scriptType abi.ScriptType) {
	size, err := scriptType.PayloadSize()
	runtime.RequireNoErr(rt, err, exitcode.ErrIllegalArgument, "unrecognized script type")
	if len(script) != size {
		rt.Abortf(exitcode.ErrIllegalArgument, "script length %d does not match %s payload size %d", len(script), scriptType, size)
	}
}

// RevokeRequest lets a Candidate withdraw before being admitted, refunding
// the attached collateral in full (spec §4.2).
func (a Actor) RevokeRequest(rt runtime.Runtime, _ *abi.EmptyValue) *abi.EmptyValue {
	rt.ValidateImmediateCallerAcceptAny()
	caller := rt.Caller()
	var refund big.Int
	var st State
	rt.State().Transaction(&st, func() {
		l := mustCandidate(rt, &st, caller)
		refund = l.NativeTokenLockedAmount
		root, err := deleteLocker(rt.Store(), st.Lockers, caller)
		runtime.RequireNoErr(rt, err, exitcode.ErrIllegalState, "failed to delete locker")
		st.Lockers = root
	})
	if refund.GreaterThan(big.Zero()) {
		rt.Send(caller, runtime.MethodSend, nil, refund)
	}
	rt.Emit("RevokeAddLockerRequest", map[string]interface{}{"target": caller.String()})
	return nil
}

func mustCandidate(rt runtime.Runtime, st *State, target abi.Address) *Locker {
	l, found, err := getLocker(rt.Store(), st.Lockers, target)
	runtime.RequireNoErr(rt, err, exitcode.ErrIllegalState, "failed to load locker")
	if !found || !l.IsCandidate {
		rt.Abortf(exitcode.ErrIllegalState, "caller %s is not a candidate", target)
	}
	return l
}

func mustLocker(rt runtime.Runtime, st *State, target abi.Address) *Locker {
	l, found, err := getLocker(rt.Store(), st.Lockers, target)
	runtime.RequireNoErr(rt, err, exitcode.ErrIllegalState, "failed to load locker")
	if !found || !l.IsLocker {
		rt.Abortf(exitcode.ErrNotFound, "%s is not a locker", target)
	}
	return l
}

type AddressParams struct {
	Target abi.Address
}

// AddLocker admits a Candidate to Active (owner-only), establishing the
// lockerTargetAddress ⇄ lockerLockingScript inverse index (spec §3
// invariant I5).
func (a Actor) AddLocker(rt runtime.Runtime, params *AddressParams) *abi.EmptyValue {
	var st State
	rt.State().Transaction(&st, func() {
		rt.ValidateImmediateCallerIs(st.Owner)
		l := mustCandidate(rt, &st, params.Target)
		l.IsCandidate = false
		l.IsLocker = true
		root, err := putScriptIndex(rt.Store(), st.LockerTargetAddress, l.LockerLockingScript, params.Target)
		runtime.RequireNoErr(rt, err, exitcode.ErrIllegalState, "failed to index locking script")
		st.LockerTargetAddress = root
		root, err = putLocker(rt.Store(), st.Lockers, params.Target, l)
		runtime.RequireNoErr(rt, err, exitcode.ErrIllegalState, "failed to store locker")
		st.Lockers = root
	})
	rt.Emit("LockerAdded", map[string]interface{}{"target": params.Target.String()})
	rt.Emit("ActivateLocker", map[string]interface{}{"target": params.Target.String()})
	return nil
}

// RequestInactivation starts the inactivation timer on an Active locker
// (spec §4.2's state-machine diagram): the locker becomes Inactive once
// CurrEpoch reaches now + inactivationDelay.
func (a Actor) RequestInactivation(rt runtime.Runtime, _ *abi.EmptyValue) *abi.EmptyValue {
	rt.ValidateImmediateCallerAcceptAny()
	caller := rt.Caller()
	var st State
	rt.State().Transaction(&st, func() {
		l := mustLocker(rt, &st, caller)
		if l.InactivationTimestamp != 0 {
			rt.Abortf(exitcode.ErrIllegalState, "locker already has a pending inactivation")
		}
		l.InactivationTimestamp = rt.CurrEpoch() + st.InactivationDelay
		root, err := putLocker(rt.Store(), st.Lockers, caller, l)
		runtime.RequireNoErr(rt, err, exitcode.ErrIllegalState, "failed to store locker")
		st.Lockers = root
	})
	rt.Emit("RequestInactivateLocker", map[string]interface{}{"target": caller.String()})
	return nil
}

// RequestActivation reverses a pending or completed inactivation, bringing
// the locker back to Active.
func (a Actor) RequestActivation(rt runtime.Runtime, _ *abi.EmptyValue) *abi.EmptyValue {
	rt.ValidateImmediateCallerAcceptAny()
	caller := rt.Caller()
	var st State
	rt.State().Transaction(&st, func() {
		l := mustLocker(rt, &st, caller)
		if l.InactivationTimestamp == 0 {
			rt.Abortf(exitcode.ErrIllegalState, "locker is already active")
		}
		l.InactivationTimestamp = 0
		root, err := putLocker(rt.Store(), st.Lockers, caller, l)
		runtime.RequireNoErr(rt, err, exitcode.ErrIllegalState, "failed to store locker")
		st.Lockers = root
	})
	rt.Emit("ActivateLocker", map[string]interface{}{"target": caller.String()})
	return nil
}

type AddCollateralParams struct {
	Target abi.Address
	Amount big.Int
	Value  big.Int
}

// AddCollateral lets anyone top up any candidate's or locker's collateral
// (spec §4.2).
func (a Actor) AddCollateral(rt runtime.Runtime, params *AddCollateralParams) *abi.EmptyValue {
	rt.ValidateImmediateCallerAcceptAny()
	if !params.Value.Equals(params.Amount) {
		rt.Abortf(exitcode.ErrIllegalArgument, "attached value does not match amount")
	}
	var st State
	rt.State().Transaction(&st, func() {
		l, found, err := getLocker(rt.Store(), st.Lockers, params.Target)
		runtime.RequireNoErr(rt, err, exitcode.ErrIllegalState, "failed to load locker")
		if !found {
			rt.Abortf(exitcode.ErrNotFound, "no candidate or locker at %s", params.Target)
		}
		l.NativeTokenLockedAmount = big.Add(l.NativeTokenLockedAmount, params.Amount)
		root, err := putLocker(rt.Store(), st.Lockers, params.Target, l)
		runtime.RequireNoErr(rt, err, exitcode.ErrIllegalState, "failed to store locker")
		st.Lockers = root
	})
	rt.Emit("CollateralAdded", map[string]interface{}{"target": params.Target.String(), "amount": params.Amount.String()})
	return nil
}

type AmountParams struct {
	Amount big.Int
}

// RemoveCollateral lets an Inactive locker withdraw surplus collateral
// (spec §4.2), so long as the remainder still satisfies capacity ≥ 0 for
// its existing netMinted.
func (a Actor) RemoveCollateral(rt runtime.Runtime, params *AmountParams) *abi.EmptyValue {
	rt.ValidateImmediateCallerAcceptAny()
	caller := rt.Caller()
	var st State
	var price big.Int
	rt.State().Transaction(&st, func() {
		l := mustLocker(rt, &st, caller)
		if !isInactive(l, rt.CurrEpoch()) {
			rt.Abortf(exitcode.ErrIllegalState, "locker must be Inactive to remove collateral")
		}
		if params.Amount.GreaterThan(l.NativeTokenLockedAmount) {
			rt.Abortf(exitcode.ErrInsufficientFunds, "amount exceeds locked collateral")
		}
		price = getPrice(rt, &st)
		remaining := big.Sub(l.NativeTokenLockedAmount, params.Amount)
		capacity := Capacity(CollateralValueBTC(remaining, price), l.NetMinted, st.CollateralRatio)
		if capacity.LessThan(big.Zero()) {
			rt.Abortf(exitcode.ErrInsufficientFunds, "withdrawal would leave capacity negative")
		}
		l.NativeTokenLockedAmount = remaining
		root, err := putLocker(rt.Store(), st.Lockers, caller, l)
		runtime.RequireNoErr(rt, err, exitcode.ErrIllegalState, "failed to store locker")
		st.Lockers = root
	})
	rt.Send(caller, runtime.MethodSend, nil, params.Amount)
	rt.Emit("CollateralRemoved", map[string]interface{}{"target": caller.String(), "amount": params.Amount.String()})
	return nil
}

// SelfRemoveLocker fully exits an Inactive locker with no outstanding
// obligations (spec §4.2's diagram: removeCollateral/selfRemoveLocker →
// Removed, requiring netMinted == 0 and slashingCoreBTCAmount == 0),
// refunding all remaining collateral and erasing the script index.
func (a Actor) SelfRemoveLocker(rt runtime.Runtime, _ *abi.EmptyValue) *abi.EmptyValue {
	rt.ValidateImmediateCallerAcceptAny()
	caller := rt.Caller()
	var refund big.Int
	var script []byte
	var st State
	rt.State().Transaction(&st, func() {
		l := mustLocker(rt, &st, caller)
		if !isInactive(l, rt.CurrEpoch()) {
			rt.Abortf(exitcode.ErrIllegalState, "locker must be Inactive to self-remove")
		}
		if !l.NetMinted.IsZero() || l.SlashingCoreBTCAmount.GreaterThan(big.Zero()) {
			rt.Abortf(exitcode.ErrIllegalState, "locker still has outstanding netMinted or slashing debt")
		}
		refund = l.NativeTokenLockedAmount
		script = l.LockerLockingScript
		root, err := deleteLocker(rt.Store(), st.Lockers, caller)
		runtime.RequireNoErr(rt, err, exitcode.ErrIllegalState, "failed to delete locker")
		st.Lockers = root
		root, err = deleteScriptIndex(rt.Store(), st.LockerTargetAddress, script)
		runtime.RequireNoErr(rt, err, exitcode.ErrIllegalState, "failed to remove script index")
		st.LockerTargetAddress = root
	})
	if refund.GreaterThan(big.Zero()) {
		rt.Send(caller, runtime.MethodSend, nil, refund)
	}
	rt.Emit("LockerRemoved", map[string]interface{}{"target": caller.String()})
	return nil
}

func isInactive(l *Locker, currEpoch abi.ChainEpoch) bool {
	return l.InactivationTimestamp != 0 && currEpoch >= l.InactivationTimestamp
}

// --- mint / burn (the only Ledger-authorized caller) --------------------

type RegistryMintParams struct {
	LockerLockingScript []byte
	Receiver            abi.Address
	TxId                abi.Hash256
	Amount              big.Int
}

// Mint implements spec §4.2's mint: minter-only (the out-of-scope
// transfer-in router), capacity-gated, splitting the minted amount
// between the receiver (net) and the locker's own target address
// (lockerPercentageFee share).
func (a Actor) Mint(rt runtime.Runtime, params *RegistryMintParams) *abi.EmptyValue {
	var st State
	var target abi.Address
	var netAmount, lockerFee big.Int
	rt.State().Transaction(&st, func() {
		rt.ValidateImmediateCallerIs(st.MinterActor)
		var found bool
		var err error
		target, found, err = getTargetForScript(rt.Store(), st.LockerTargetAddress, params.LockerLockingScript)
		runtime.RequireNoErr(rt, err, exitcode.ErrIllegalState, "failed to load script index")
		if !found {
			rt.Abortf(exitcode.ErrNotFound, "no locker registered for locking script")
		}
		l := mustLocker(rt, &st, target)
		if l.InactivationTimestamp != 0 {
			rt.Abortf(exitcode.ErrForbidden, "locker %s is not Active", target)
		}
		price := getPrice(rt, &st)
		collateralValueBTC := CollateralValueBTC(l.NativeTokenLockedAmount, price)
		capacity := Capacity(collateralValueBTC, l.NetMinted, st.CollateralRatio)
		if params.Amount.GreaterThan(capacity) {
			rt.Abortf(exitcode.ErrInsufficientFunds, "mint amount exceeds locker capacity")
		}
		lockerFee = big.Div(big.Mul(params.Amount, big.NewInt(int64(st.LockerPercentageFee))), big.NewInt(builtin.MaxLockerFee))
		netAmount = big.Sub(params.Amount, lockerFee)
		l.NetMinted = big.Add(l.NetMinted, params.Amount)
		root, err := putLocker(rt.Store(), st.Lockers, target, l)
		runtime.RequireNoErr(rt, err, exitcode.ErrIllegalState, "failed to store locker")
		st.Lockers = root
	})
	ledgerMint(rt, &st, params.Receiver, netAmount)
	if lockerFee.GreaterThan(big.Zero()) {
		ledgerMint(rt, &st, target, lockerFee)
	}
	rt.Emit("Mint", map[string]interface{}{"target": target.String(), "amount": params.Amount.String(), "txId": params.TxId.String()})
	return nil
}

type RegistryBurnParams struct {
	LockerLockingScript []byte
	Amount              big.Int
}

// AfterLockerFeeReturn carries the post-locker-fee amount back to
// BurnRouter.ccBurn (spec §4.3 step 5).
type AfterLockerFeeReturn struct {
	AfterLockerFee big.Int
}

// Burn implements spec §4.2's burn: burner-only (BurnRouter), pulls amount
// wrapped-BTC from the caller's own balance, forwards the locker fee, and
// burns the remainder.
func (a Actor) Burn(rt runtime.Runtime, params *RegistryBurnParams) *AfterLockerFeeReturn {
	var st State
	var target abi.Address
	var afterLockerFee, lockerFee big.Int
	rt.State().Transaction(&st, func() {
		rt.ValidateImmediateCallerIs(st.BurnRouterActor)
		var found bool
		var err error
		target, found, err = getTargetForScript(rt.Store(), st.LockerTargetAddress, params.LockerLockingScript)
		runtime.RequireNoErr(rt, err, exitcode.ErrIllegalState, "failed to load script index")
		if !found {
			rt.Abortf(exitcode.ErrNotFound, "no locker registered for locking script")
		}
		l := mustLocker(rt, &st, target)
		lockerFee = big.Div(big.Mul(params.Amount, big.NewInt(int64(st.LockerPercentageFee))), big.NewInt(builtin.MaxLockerFee))
		afterLockerFee = big.Sub(params.Amount, lockerFee)
		if l.NetMinted.LessThan(afterLockerFee) {
			rt.Abortf(exitcode.ErrInsufficientFunds, "netMinted below amount owed")
		}
		l.NetMinted = big.Sub(l.NetMinted, afterLockerFee)
		root, err := putLocker(rt.Store(), st.Lockers, target, l)
		runtime.RequireNoErr(rt, err, exitcode.ErrIllegalState, "failed to store locker")
		st.Lockers = root
	})
	pullToSelf(rt, &st, rt.Caller(), params.Amount)
	if lockerFee.GreaterThan(big.Zero()) {
		ledgerTransferFrom(rt, &st, rt.Receiver(), target, lockerFee)
	}
	ledgerBurn(rt, &st, afterLockerFee)
	rt.Emit("Burn", map[string]interface{}{"target": target.String(), "amount": params.Amount.String()})
	return &AfterLockerFeeReturn{AfterLockerFee: afterLockerFee}
}

// --- slashing -------------------------------------------------------------

type SlashIdleLockerParams struct {
	Target          abi.Address
	RewardAmountBTC big.Int
	RewardRecipient abi.Address
	AmountBTC       big.Int
	UserRecipient   abi.Address
}

// SlashIdleLocker converts the user's shortfall and the slasher's reward
// to native token at the un-discounted oracle price, clamps to available
// collateral, and decrements netMinted (spec §4.2, §9 Open Question 3:
// idle-slash retires the user's obligation).
func (a Actor) SlashIdleLocker(rt runtime.Runtime, params *SlashIdleLockerParams) *abi.EmptyValue {
	var st State
	var userNative, rewardNative big.Int
	rt.State().Transaction(&st, func() {
		rt.ValidateImmediateCallerIs(st.BurnRouterActor)
		l := mustLocker(rt, &st, params.Target)
		price := getPrice(rt, &st)
		totalBTC := big.Add(params.RewardAmountBTC, params.AmountBTC)
		nativeNeeded := big.Div(big.Mul(totalBTC, pow10NativeDecimals), price)
		nativePaid := big.Min(nativeNeeded, l.NativeTokenLockedAmount)
		if !totalBTC.IsZero() {
			userNative = big.Div(big.Mul(nativePaid, params.AmountBTC), totalBTC)
		}
		rewardNative = big.Sub(nativePaid, userNative)
		if nativeNeeded.GreaterThan(nativePaid) {
			shortfallNative := big.Sub(nativeNeeded, nativePaid)
			shortfallBTC := big.Div(big.Mul(shortfallNative, price), pow10NativeDecimals)
			l.SlashingCoreBTCAmount = big.Add(l.SlashingCoreBTCAmount, shortfallBTC)
			rt.Log(runtime.WARN, "locker %s collateral insufficient for idle slash, %s wrapped-BTC left outstanding", params.Target, shortfallBTC)
		}
		l.NativeTokenLockedAmount = big.Sub(l.NativeTokenLockedAmount, nativePaid)
		l.NetMinted = big.Sub(l.NetMinted, big.Min(l.NetMinted, params.AmountBTC))
		root, err := putLocker(rt.Store(), st.Lockers, params.Target, l)
		runtime.RequireNoErr(rt, err, exitcode.ErrIllegalState, "failed to store locker")
		st.Lockers = root
	})
	if userNative.GreaterThan(big.Zero()) {
		rt.Send(params.UserRecipient, runtime.MethodSend, nil, userNative)
	}
	if rewardNative.GreaterThan(big.Zero()) {
		rt.Send(params.RewardRecipient, runtime.MethodSend, nil, rewardNative)
	}
	rt.Emit("LockerSlashed", map[string]interface{}{"target": params.Target.String(), "kind": "idle"})
	return nil
}

type SlashThiefLockerParams struct {
	Target          abi.Address
	RewardAmountBTC big.Int
	RewardRecipient abi.Address
	AmountBTC       big.Int
}

// SlashThiefLocker pays only the slasher reward, at the discounted price
// (anticipating the discounted resale), and records amountBTC as
// outstanding slashing debt without touching netMinted (spec §4.2, §9
// Open Question 3: the stolen BTC's wrapped representation stays
// outstanding until bought back via BuySlashedCollateralOfLocker).
func (a Actor) SlashThiefLocker(rt runtime.Runtime, params *SlashThiefLockerParams) *abi.EmptyValue {
	var st State
	var nativePaid big.Int
	rt.State().Transaction(&st, func() {
		rt.ValidateImmediateCallerIs(st.BurnRouterActor)
		l := mustLocker(rt, &st, params.Target)
		discounted := DiscountedPrice(getPrice(rt, &st), st.PriceWithDiscountRatio)
		nativeNeeded := big.Div(big.Mul(params.RewardAmountBTC, pow10NativeDecimals), discounted)
		nativePaid = big.Min(nativeNeeded, l.NativeTokenLockedAmount)
		if nativeNeeded.GreaterThan(nativePaid) {
			rt.Log(runtime.WARN, "locker %s collateral insufficient to pay full thief-slash reward", params.Target)
		}
		l.NativeTokenLockedAmount = big.Sub(l.NativeTokenLockedAmount, nativePaid)
		l.SlashingCoreBTCAmount = big.Add(l.SlashingCoreBTCAmount, params.AmountBTC)
		root, err := putLocker(rt.Store(), st.Lockers, params.Target, l)
		runtime.RequireNoErr(rt, err, exitcode.ErrIllegalState, "failed to store locker")
		st.Lockers = root
	})
	if nativePaid.GreaterThan(big.Zero()) {
		rt.Send(params.RewardRecipient, runtime.MethodSend, nil, nativePaid)
	}
	rt.Emit("LockerSlashed", map[string]interface{}{"target": params.Target.String(), "kind": "thief"})
	return nil
}

// --- liquidation & slashed-collateral sale --------------------------------

type CollateralAmountParams struct {
	Target           abi.Address
	CollateralAmount big.Int
}

// LiquidateLocker lets anyone buy down an unhealthy locker's collateral at
// a discount, paying in wrapped-BTC that is burnt to reduce netMinted
// (spec §4.2). The spec describes this burn as "routed through the
// BurnRouter," but since BurnRouter.ccBurn's only observable effect on
// this actor is the same netMinted reduction Burn already implements,
// that reduction is applied directly here rather than adding a same-value
// round trip through a second actor.
func (a Actor) LiquidateLocker(rt runtime.Runtime, params *CollateralAmountParams) *abi.EmptyValue {
	caller := rt.Caller()
	var st State
	var neededCoreBTC big.Int
	rt.State().Transaction(&st, func() {
		rt.ValidateImmediateCallerAcceptAny()
		l := mustLocker(rt, &st, params.Target)
		price := getPrice(rt, &st)
		healthFactor := HealthFactor(CollateralValueBTC(l.NativeTokenLockedAmount, price), l.NetMinted, st.LiquidationRatio)
		if !Liquidatable(healthFactor) {
			rt.Abortf(exitcode.ErrForbidden, "locker %s is not liquidatable", params.Target)
		}
		maxBuyable := GetMaximumBuyableCollateral(l.NativeTokenLockedAmount, l.NetMinted, price, st.LiquidationRatio, st.PriceWithDiscountRatio)
		if params.CollateralAmount.GreaterThan(maxBuyable) {
			rt.Abortf(exitcode.ErrIllegalArgument, "collateralAmount exceeds maximum buyable collateral")
		}
		discounted := DiscountedPrice(price, st.PriceWithDiscountRatio)
		neededCoreBTC = big.Div(big.Mul(params.CollateralAmount, discounted), pow10NativeDecimals)
		l.NetMinted = big.Sub(l.NetMinted, big.Min(l.NetMinted, neededCoreBTC))
		l.NativeTokenLockedAmount = big.Sub(l.NativeTokenLockedAmount, params.CollateralAmount)
		root, err := putLocker(rt.Store(), st.Lockers, params.Target, l)
		runtime.RequireNoErr(rt, err, exitcode.ErrIllegalState, "failed to store locker")
		st.Lockers = root
	})
	pullToSelf(rt, &st, caller, neededCoreBTC)
	ledgerBurn(rt, &st, neededCoreBTC)
	rt.Send(caller, runtime.MethodSend, nil, params.CollateralAmount)
	rt.Emit("LockerLiquidated", map[string]interface{}{"target": params.Target.String(), "collateralAmount": params.CollateralAmount.String()})
	return nil
}

// BuySlashedCollateralOfLocker lets anyone drain a locker's
// slashingCoreBTCAmount debt, burning wrapped-BTC directly (not routed
// through netMinted bookkeeping, spec §4.2) in exchange for native
// collateral at the discounted price.
func (a Actor) BuySlashedCollateralOfLocker(rt runtime.Runtime, params *CollateralAmountParams) *abi.EmptyValue {
	caller := rt.Caller()
	var st State
	var neededCoreBTC big.Int
	rt.State().Transaction(&st, func() {
		rt.ValidateImmediateCallerAcceptAny()
		l := mustLocker(rt, &st, params.Target)
		if !l.SlashingCoreBTCAmount.GreaterThan(big.Zero()) {
			rt.Abortf(exitcode.ErrForbidden, "locker %s has no outstanding slashing debt", params.Target)
		}
		if params.CollateralAmount.GreaterThan(l.NativeTokenLockedAmount) {
			rt.Abortf(exitcode.ErrInsufficientFunds, "collateralAmount exceeds locked collateral")
		}
		discounted := DiscountedPrice(getPrice(rt, &st), st.PriceWithDiscountRatio)
		neededCoreBTC = big.Div(big.Mul(params.CollateralAmount, discounted), pow10NativeDecimals)
		if neededCoreBTC.GreaterThan(l.SlashingCoreBTCAmount) {
			rt.Abortf(exitcode.ErrIllegalArgument, "collateralAmount exceeds outstanding slashing debt")
		}
		l.SlashingCoreBTCAmount = big.Sub(l.SlashingCoreBTCAmount, neededCoreBTC)
		l.NativeTokenLockedAmount = big.Sub(l.NativeTokenLockedAmount, params.CollateralAmount)
		root, err := putLocker(rt.Store(), st.Lockers, params.Target, l)
		runtime.RequireNoErr(rt, err, exitcode.ErrIllegalState, "failed to store locker")
		st.Lockers = root
	})
	pullToSelf(rt, &st, caller, neededCoreBTC)
	ledgerBurn(rt, &st, neededCoreBTC)
	rt.Send(caller, runtime.MethodSend, nil, params.CollateralAmount)
	rt.Emit("LockerSlashedCollateralSold", map[string]interface{}{"target": params.Target.String(), "collateralAmount": params.CollateralAmount.String()})
	return nil
}

// --- admin setters ---------------------------------------------------------

// SetPriceOracle replaces the price oracle address, owner-only and never
// zero (spec §6's "injected, owner-replaceable" collaborators).
func (a Actor) SetPriceOracle(rt runtime.Runtime, params *AddressParams) *abi.EmptyValue {
	if params.Target.Empty() {
		rt.Abortf(exitcode.ErrIllegalArgument, "oracle address must not be the zero address")
	}
	var st State
	rt.State().Transaction(&st, func() {
		rt.ValidateImmediateCallerIs(st.Owner)
		st.OracleActor = params.Target
	})
	return nil
}

// SetMinter replaces the transfer-in router address authorized to call
// Mint, owner-only and never zero.
func (a Actor) SetMinter(rt runtime.Runtime, params *AddressParams) *abi.EmptyValue {
	if params.Target.Empty() {
		rt.Abortf(exitcode.ErrIllegalArgument, "minter address must not be the zero address")
	}
	var st State
	rt.State().Transaction(&st, func() {
		rt.ValidateImmediateCallerIs(st.Owner)
		st.MinterActor = params.Target
	})
	return nil
}

// --- read-only accessors ---------------------------------------------------

// Uint64Value is the return type for size/count accessors.
type Uint64Value struct{ Value uint64 }

// BoolValue is the return type for predicate accessors.
type BoolValue struct{ Value bool }

func (a Actor) GetLockerCount(rt runtime.Runtime, _ *abi.EmptyValue) *Uint64Value {
	rt.ValidateImmediateCallerAcceptAny()
	var st State
	rt.State().Readonly(&st)
	targets, err := listTargets(rt.Store(), st.Lockers)
	runtime.RequireNoErr(rt, err, exitcode.ErrIllegalState, "failed to list lockers")
	return &Uint64Value{Value: uint64(len(targets))}
}

func (a Actor) GetLocker(rt runtime.Runtime, params *AddressParams) *Locker {
	rt.ValidateImmediateCallerAcceptAny()
	var st State
	rt.State().Readonly(&st)
	l, found, err := getLocker(rt.Store(), st.Lockers, params.Target)
	runtime.RequireNoErr(rt, err, exitcode.ErrIllegalState, "failed to load locker")
	if !found {
		rt.Abortf(exitcode.ErrNotFound, "no locker at %s", params.Target)
	}
	return l
}

type ListRangeParams struct {
	Start uint64
	Count uint64
}

type AddressListReturn struct {
	Targets []abi.Address
}

// GetLockersTargetAddressList paginates the full locker-target list in a
// deterministic (sorted) order, mirroring the teacher's deadline/partition
// pagination idiom.
func (a Actor) GetLockersTargetAddressList(rt runtime.Runtime, params *ListRangeParams) *AddressListReturn {
	rt.ValidateImmediateCallerAcceptAny()
	var st State
	rt.State().Readonly(&st)
	all, err := listTargets(rt.Store(), st.Lockers)
	runtime.RequireNoErr(rt, err, exitcode.ErrIllegalState, "failed to list lockers")
	start := params.Start
	if start > uint64(len(all)) {
		start = uint64(len(all))
	}
	end := start + params.Count
	if end > uint64(len(all)) {
		end = uint64(len(all))
	}
	return &AddressListReturn{Targets: all[start:end]}
}

func (a Actor) IsLocker(rt runtime.Runtime, params *AddressParams) *BoolValue {
	rt.ValidateImmediateCallerAcceptAny()
	var st State
	rt.State().Readonly(&st)
	l, found, err := getLocker(rt.Store(), st.Lockers, params.Target)
	runtime.RequireNoErr(rt, err, exitcode.ErrIllegalState, "failed to load locker")
	return &BoolValue{Value: found && l.IsLocker}
}

func (a Actor) IsLockerActive(rt runtime.Runtime, params *AddressParams) *BoolValue {
	rt.ValidateImmediateCallerAcceptAny()
	var st State
	rt.State().Readonly(&st)
	l, found, err := getLocker(rt.Store(), st.Lockers, params.Target)
	runtime.RequireNoErr(rt, err, exitcode.ErrIllegalState, "failed to load locker")
	return &BoolValue{Value: found && l.IsLocker && l.InactivationTimestamp == 0}
}

// GetMaximumBuyableCollateral exposes the liquidateLocker bound as a
// read-only accessor (SPEC_FULL.md §4.2.x), querying the oracle for the
// current price.
func (a Actor) GetMaximumBuyableCollateral(rt runtime.Runtime, params *AddressParams) *big.Int {
	rt.ValidateImmediateCallerAcceptAny()
	var st State
	rt.State().Readonly(&st)
	l := mustLocker(rt, &st, params.Target)
	price := getPrice(rt, &st)
	v := GetMaximumBuyableCollateral(l.NativeTokenLockedAmount, l.NetMinted, price, st.LiquidationRatio, st.PriceWithDiscountRatio)
	return &v
}

// ScriptParams carries a raw Bitcoin locking script, the BurnRouter-facing
// counterpart to AddressParams.
type ScriptParams struct {
	Script []byte
}

// GetLockerForScript resolves a registered locker's target address from its
// locking script, the reverse direction of the Lockers table's own key.
// BurnRouter uses this to key its own per-locker BurnRequest storage
// without duplicating the LockerTargetAddress index.
func (a Actor) GetLockerForScript(rt runtime.Runtime, params *ScriptParams) *AddressParams {
	rt.ValidateImmediateCallerAcceptAny()
	var st State
	rt.State().Readonly(&st)
	target, found, err := getTargetForScript(rt.Store(), st.LockerTargetAddress, params.Script)
	runtime.RequireNoErr(rt, err, exitcode.ErrIllegalState, "failed to load script index")
	if !found {
		rt.Abortf(exitcode.ErrNotFound, "no locker registered for locking script")
	}
	return &AddressParams{Target: target}
}

// --- collaborator helpers ---------------------------------------------------

func getPrice(rt runtime.Runtime, st *State) big.Int {
	ret, code := rt.Send(st.OracleActor, builtin.MethodOracleGetPrice, &abi.EmptyValue{}, big.Zero())
	runtime.RequireSuccess(rt, code, "oracle price query failed")
	var price big.Int
	if err := ret.Into(&price); err != nil {
		rt.Abortf(exitcode.ErrSerialization, "failed to decode oracle price: %v", err)
	}
	return price
}

type ledgerMintParams struct {
	To     abi.Address
	Amount big.Int
}

func ledgerMint(rt runtime.Runtime, st *State, to abi.Address, amount big.Int) {
	_, code := rt.Send(st.LedgerActor, builtin.MethodLedgerMint, &ledgerMintParams{To: to, Amount: amount}, big.Zero())
	runtime.RequireSuccess(rt, code, "ledger mint failed")
}

type ledgerBurnParams struct {
	Amount big.Int
}

func ledgerBurn(rt runtime.Runtime, st *State, amount big.Int) {
	if amount.IsZero() {
		return
	}
	_, code := rt.Send(st.LedgerActor, builtin.MethodLedgerBurn, &ledgerBurnParams{Amount: amount}, big.Zero())
	runtime.RequireSuccess(rt, code, "ledger burn failed")
}

type ledgerTransferFromParams struct {
	From   abi.Address
	To     abi.Address
	Amount big.Int
}

func ledgerTransferFrom(rt runtime.Runtime, st *State, from, to abi.Address, amount big.Int) {
	if amount.IsZero() {
		return
	}
	_, code := rt.Send(st.LedgerActor, builtin.MethodLedgerTransferFrom, &ledgerTransferFromParams{From: from, To: to, Amount: amount}, big.Zero())
	runtime.RequireSuccess(rt, code, "ledger transferFrom failed")
}

// pullToSelf moves amount of wrapped-BTC from from into this actor's own
// balance, the common first step before burning or forwarding it.
func pullToSelf(rt runtime.Runtime, st *State, from abi.Address, amount big.Int) {
	if amount.IsZero() {
		return
	}
	ledgerTransferFrom(rt, st, from, rt.Receiver(), amount)
}
