package burnrouter

import (
	"github.com/filecoin-project/go-bitfield"

	"github.com/btcpeg/bridge-core/actors/abi"
	"github.com/btcpeg/bridge-core/actors/abi/big"
	"github.com/btcpeg/bridge-core/actors/builtin"
	"github.com/btcpeg/bridge-core/actors/builtin/bitcoin"
	"github.com/btcpeg/bridge-core/actors/builtin/lockerregistry"
	"github.com/btcpeg/bridge-core/actors/runtime"
	"github.com/btcpeg/bridge-core/actors/runtime/exitcode"
)

// Actor implements the user-facing redemption path sitting downstream of
// Ledger and LockerRegistry (spec §2, §4.3): accepts burn requests, verifies
// Bitcoin-side payment proofs through the Relay, and disputes lockers that
// miss their deadline or spend a UTXO outside a legitimate burn payment.
type Actor struct{}

func (a Actor) Exports() []interface{} {
	return []interface{}{
		1:  a.Constructor,
		2:  a.CcBurn,
		3:  a.BurnProof,
		4:  a.DisputeBurn,
		5:  a.DisputeLocker,
		6:  a.SetRelay,
		7:  a.SetTreasury,
		8:  a.SetLockerRegistry,
		9:  a.SetLedger,
		10: a.SetTransferDeadline,
		11: a.SetProtocolPercentageFee,
		12: a.SetSlasherPercentageReward,
		13: a.SetBitcoinFeeOracle,
		14: a.SetBitcoinFee,
		15: a.SetStartingBlockNumber,
		16: a.GetBurnRequest,
		17: a.GetBurnRequestsLength,
	}
}

// --- construction -----------------------------------------------------

type ConstructorParams struct {
	Owner               abi.Address
	RelayActor          abi.Address
	LockerRegistryActor abi.Address
	LedgerActor         abi.Address
	Treasury            abi.Address
	BitcoinFeeOracle    abi.Address

	TransferDeadline        abi.ChainEpoch
	ProtocolPercentageFee   uint64
	SlasherPercentageReward uint64
	BitcoinFee              uint64
	StartingBlockNumber     uint64
}

func (a Actor) Constructor(rt runtime.Runtime, params *ConstructorParams) *abi.EmptyValue {
	rt.ValidateImmediateCallerAcceptAny()
	for _, addr := range []abi.Address{
		params.Owner, params.RelayActor, params.LockerRegistryActor,
		params.LedgerActor, params.Treasury, params.BitcoinFeeOracle,
	} {
		if addr.Empty() {
			rt.Abortf(exitcode.ErrIllegalArgument, "owner, relay, registry, ledger, treasury, and bitcoinFeeOracle must not be the zero address")
		}
	}
	if params.TransferDeadline <= 0 {
		rt.Abortf(exitcode.ErrIllegalArgument, "transferDeadline must be positive")
	}
	if params.ProtocolPercentageFee > builtin.MaxProtocolFee {
		rt.Abortf(exitcode.ErrIllegalArgument, "protocolPercentageFee exceeds MaxProtocolFee")
	}
	if params.SlasherPercentageReward > builtin.MaxSlasherReward {
		rt.Abortf(exitcode.ErrIllegalArgument, "slasherPercentageReward exceeds MaxSlasherReward")
	}

	st, err := ConstructState(rt.Store(), params.Owner, params.RelayActor, params.LockerRegistryActor,
		params.LedgerActor, params.Treasury, params.BitcoinFeeOracle, params.TransferDeadline,
		params.ProtocolPercentageFee, params.SlasherPercentageReward, params.BitcoinFee, params.StartingBlockNumber)
	runtime.RequireNoErr(rt, err, exitcode.ErrIllegalState, "failed to construct state")
	rt.State().Create(st)
	return nil
}

// --- burn lifecycle -----------------------------------------------------

type CcBurnParams struct {
	Amount       big.Int
	UserScript   []byte
	ScriptType   abi.ScriptType
	LockerScript []byte
}

// CcBurn implements spec §4.3 step 1-7: validates the destination script,
// pulls amount wrapped-BTC from the caller, peels off the protocol fee and
// the locker fee, and records a BurnRequest the locker must discharge by
// depositing burntAmount sats to userScript before deadline.
func (a Actor) CcBurn(rt runtime.Runtime, params *CcBurnParams) *big.Int {
	rt.ValidateImmediateCallerAcceptAny()
	caller := rt.Caller()
	validateUserScript(rt, params.UserScript, params.ScriptType)

	var st State
	rt.State().Readonly(&st)
	target := registryGetLockerForScript(rt, &st, params.LockerScript)

	protocolFee := big.Div(big.Mul(params.Amount, big.NewInt(int64(st.ProtocolPercentageFee))), big.NewInt(builtin.MaxProtocolFee))
	dustFloor := big.Add(protocolFee, big.NewInt(int64(2*st.BitcoinFee)))
	if !params.Amount.GreaterThan(dustFloor) {
		rt.Abortf(exitcode.ErrInsufficientFunds, "amount does not exceed protocolFee + 2*bitcoinFee dust floor")
	}

	ledgerTransferFrom(rt, &st, caller, rt.Receiver(), params.Amount)
	if protocolFee.GreaterThan(big.Zero()) {
		ledgerTransferFrom(rt, &st, rt.Receiver(), st.Treasury, protocolFee)
	}

	remaining := big.Sub(params.Amount, protocolFee)
	afterLockerFee := registryBurn(rt, &st, params.LockerScript, remaining)
	burntAmount := big.Div(big.Mul(afterLockerFee, big.Sub(remaining, big.NewInt(int64(st.BitcoinFee)))), remaining)

	lastHeight := relayLastSubmittedHeight(rt, &st)
	req := &BurnRequest{
		Amount:      params.Amount,
		BurntAmount: burntAmount,
		Sender:      caller,
		UserScript:  params.UserScript,
		ScriptType:  params.ScriptType,
		Deadline:    abi.ChainEpoch(lastHeight) + st.TransferDeadline,
	}

	var reqIdx uint64
	rt.State().Transaction(&st, func() {
		idx, root, err := appendBurnRequest(rt.Store(), st.BurnRequests, target, req)
		runtime.RequireNoErr(rt, err, exitcode.ErrIllegalState, "failed to store burn request")
		reqIdx = idx
		st.BurnRequests = root
	})

	rt.Emit("CCBurn", map[string]interface{}{
		"target":            target.String(),
		"requestIdOfLocker": reqIdx,
		"burntAmount":       burntAmount.String(),
		"deadline":          int64(req.Deadline),
	})
	return &burntAmount
}

func validateUserScript(rt runtime.Runtime, script []byte, scriptType abi.ScriptType) {
	size, err := scriptType.PayloadSize()
	runtime.RequireNoErr(rt, err, exitcode.ErrIllegalArgument, "unrecognized script type")
	if len(script) != size {
		rt.Abortf(exitcode.ErrIllegalArgument, "script length %d does not match %s payload size %d", len(script), scriptType, size)
	}
}

type BurnProofParams struct {
	Tx             []byte
	BlockNumber    uint64
	MerkleProof    []byte
	TxIndex        uint64
	LockerScript   []byte
	BurnReqIndexes []uint64
	VoutIndexes    []uint64
}

// BurnProof implements spec §4.3's proof-of-payment check: a watcher submits
// a finalized Bitcoin transaction and a mapping of (burnReqIndex, voutIndex)
// pairs; each pair whose output value matches the request's burntAmount
// exactly is marked discharged. voutIndexes must be strictly increasing (one
// output cannot discharge two requests) and burnReqIndexes are deduplicated
// within the batch so a coincidentally repeated index credits only once.
func (a Actor) BurnProof(rt runtime.Runtime, params *BurnProofParams) *abi.EmptyValue {
	rt.ValidateImmediateCallerAcceptAny()
	var st State
	rt.State().Readonly(&st)

	if params.BlockNumber < st.StartingBlockNumber {
		rt.Abortf(exitcode.ErrProof, "blockNumber %d precedes startingBlockNumber %d", params.BlockNumber, st.StartingBlockNumber)
	}
	if len(params.BurnReqIndexes) != len(params.VoutIndexes) {
		rt.Abortf(exitcode.ErrIllegalArgument, "burnReqIndexes and voutIndexes must be the same length")
	}

	tx, err := bitcoin.ParseTx(params.Tx)
	runtime.RequireNoErr(rt, err, exitcode.ErrProof, "failed to parse transaction")
	if tx.LockTime != 0 {
		rt.Abortf(exitcode.ErrProof, "locktime must be zero")
	}

	seen := bitfield.New()
	var prev uint64
	for i, idx := range params.VoutIndexes {
		if i > 0 && idx <= prev {
			rt.Abortf(exitcode.ErrIllegalArgument, "voutIndexes must be strictly increasing")
		}
		isSet, err := seen.IsSet(idx)
		runtime.RequireNoErr(rt, err, exitcode.ErrIllegalState, "bitfield lookup failed")
		if isSet {
			rt.Abortf(exitcode.ErrIllegalArgument, "voutIndexes contains a duplicate")
		}
		seen.Set(idx)
		prev = idx
	}

	txID := bitcoin.TxID(tx)
	target := registryGetLockerForScript(rt, &st, params.LockerScript)
	if !relayCheckTxProof(rt, &st, txID, params.BlockNumber, params.MerkleProof, params.TxIndex) {
		rt.Abortf(exitcode.ErrProof, "relay rejected merkle inclusion proof")
	}

	credited := bitfield.New()
	var paidOutputCounter uint64
	rt.State().Transaction(&st, func() {
		for i, reqIdx := range params.BurnReqIndexes {
			alreadyCredited, err := credited.IsSet(reqIdx)
			runtime.RequireNoErr(rt, err, exitcode.ErrIllegalState, "bitfield lookup failed")
			if alreadyCredited {
				rt.Log(runtime.INFO, "burnReqIndex %d repeated in batch, skipping", reqIdx)
				continue
			}
			req, found, err := getBurnRequest(rt.Store(), st.BurnRequests, target, reqIdx)
			runtime.RequireNoErr(rt, err, exitcode.ErrIllegalState, "failed to load burn request")
			if !found || req.IsTransferred || req.Deadline < abi.ChainEpoch(params.BlockNumber) {
				rt.Log(runtime.WARN, "burnReqIndex %d not eligible for discharge, skipping", reqIdx)
				continue
			}
			value, matched, err := bitcoin.ValueFromScript(tx, int(params.VoutIndexes[i]), req.UserScript, req.ScriptType)
			runtime.RequireNoErr(rt, err, exitcode.ErrProof, "failed to read output script")
			if !matched || !big.NewInt(int64(value)).Equals(req.BurntAmount) {
				rt.Log(runtime.WARN, "vout %d does not match burnReqIndex %d, skipping", params.VoutIndexes[i], reqIdx)
				continue
			}
			req.IsTransferred = true
			root, err := putBurnRequest(rt.Store(), st.BurnRequests, target, reqIdx, req)
			runtime.RequireNoErr(rt, err, exitcode.ErrIllegalState, "failed to store burn request")
			st.BurnRequests = root
			credited.Set(reqIdx)
			paidOutputCounter++
		}
		numOutputs := uint64(len(tx.Outputs))
		if paidOutputCounter > 0 && paidOutputCounter+1 >= numOutputs {
			root, err := markUsedAsBurnProof(rt.Store(), st.IsUsedAsBurnProof, txID)
			runtime.RequireNoErr(rt, err, exitcode.ErrIllegalState, "failed to mark tx as burn proof")
			st.IsUsedAsBurnProof = root
		}
	})

	rt.Emit("PaidCCBurn", map[string]interface{}{
		"target":      target.String(),
		"txId":        txID.String(),
		"paidOutputs": paidOutputCounter,
	})
	return nil
}

// --- disputes -----------------------------------------------------------

type DisputeBurnParams struct {
	LockerScript []byte
	Indexes      []uint64
}

// DisputeBurn slashes a locker for every request whose deadline has elapsed
// on the Bitcoin side without a matching proof (spec §4.3), paying the
// slasher a share of the request's amount and retiring the user's
// obligation via LockerRegistry.SlashIdleLocker.
func (a Actor) DisputeBurn(rt runtime.Runtime, params *DisputeBurnParams) *abi.EmptyValue {
	var st State
	rt.State().Readonly(&st)
	rt.ValidateImmediateCallerIs(st.Owner)
	caller := rt.Caller()
	target := registryGetLockerForScript(rt, &st, params.LockerScript)
	lastHeight := relayLastSubmittedHeight(rt, &st)

	for _, idx := range params.Indexes {
		var req *BurnRequest
		var found bool
		var err error
		rt.State().Transaction(&st, func() {
			req, found, err = getBurnRequest(rt.Store(), st.BurnRequests, target, idx)
			runtime.RequireNoErr(rt, err, exitcode.ErrIllegalState, "failed to load burn request")
			if !found {
				rt.Abortf(exitcode.ErrNotFound, "no burn request at index %d", idx)
			}
			if req.Deadline < abi.ChainEpoch(st.StartingBlockNumber) {
				rt.Abortf(exitcode.ErrIllegalState, "request predates startingBlockNumber")
			}
			if req.IsTransferred {
				rt.Abortf(exitcode.ErrIllegalState, "request already transferred")
			}
			if req.Deadline >= abi.ChainEpoch(lastHeight) {
				rt.Abortf(exitcode.ErrIllegalState, "deadline has not elapsed")
			}
			req.IsTransferred = true
			root, err := putBurnRequest(rt.Store(), st.BurnRequests, target, idx, req)
			runtime.RequireNoErr(rt, err, exitcode.ErrIllegalState, "failed to store burn request")
			st.BurnRequests = root
		})
		reward := big.Div(big.Mul(req.Amount, big.NewInt(int64(st.SlasherPercentageReward))), big.NewInt(builtin.MaxSlasherReward))
		registrySlashIdleLocker(rt, &st, target, reward, caller, req.Amount, req.Sender)
		rt.Emit("BurnDispute", map[string]interface{}{"target": target.String(), "index": idx})
	}
	return nil
}

type DisputeLockerParams struct {
	LockerScript     []byte
	InputTx          []byte
	OutputTx         []byte
	InputMerkleProof []byte
	InputIndex       uint64
	InputTxIndex     uint64
	InputBlockNumber uint64
}

// DisputeLocker proves a locker spent a UTXO outside a legitimate burn
// payment (spec §4.3): the disputed input must trace back to an output
// locked to lockerScript, and the spending transaction must not already be
// immunized as a burn proof (I4).
func (a Actor) DisputeLocker(rt runtime.Runtime, params *DisputeLockerParams) *abi.EmptyValue {
	var st State
	rt.State().Readonly(&st)
	rt.ValidateImmediateCallerIs(st.Owner)
	caller := rt.Caller()

	if params.InputBlockNumber < st.StartingBlockNumber {
		rt.Abortf(exitcode.ErrProof, "inputBlockNumber precedes startingBlockNumber")
	}
	inputTx, err := bitcoin.ParseTx(params.InputTx)
	runtime.RequireNoErr(rt, err, exitcode.ErrProof, "failed to parse inputTx")
	inputTxID := bitcoin.TxID(inputTx)

	used, err := isUsedAsBurnProof(rt.Store(), st.IsUsedAsBurnProof, inputTxID)
	runtime.RequireNoErr(rt, err, exitcode.ErrIllegalState, "failed to check burn-proof index")
	if used {
		rt.Abortf(exitcode.ErrProof, "inputTx was already used as a burn proof")
	}
	if !relayCheckTxProof(rt, &st, inputTxID, params.InputBlockNumber, params.InputMerkleProof, params.InputTxIndex) {
		rt.Abortf(exitcode.ErrProof, "relay rejected merkle inclusion proof for inputTx")
	}

	lastHeight := relayLastSubmittedHeight(rt, &st)
	if abi.ChainEpoch(lastHeight)-abi.ChainEpoch(params.InputBlockNumber) <= st.TransferDeadline {
		rt.Abortf(exitcode.ErrProof, "inputTx is not yet stale enough to dispute")
	}

	outpointTxID, outpointIndex, err := bitcoin.ExtractOutpoint(inputTx, int(params.InputIndex))
	runtime.RequireNoErr(rt, err, exitcode.ErrProof, "failed to extract outpoint")

	outputTx, err := bitcoin.ParseTx(params.OutputTx)
	runtime.RequireNoErr(rt, err, exitcode.ErrProof, "failed to parse outputTx")
	if bitcoin.TxID(outputTx) != outpointTxID {
		rt.Abortf(exitcode.ErrProof, "outputTx does not match the input's outpoint txId")
	}
	lockingScript, err := bitcoin.LockingScript(outputTx, int(outpointIndex))
	runtime.RequireNoErr(rt, err, exitcode.ErrProof, "failed to read outpoint locking script")
	if !bytesEqual(lockingScript, params.LockerScript) {
		rt.Abortf(exitcode.ErrProof, "outpoint script does not belong to lockerScript")
	}

	target := registryGetLockerForScript(rt, &st, params.LockerScript)
	totalValue := bitcoin.OutputsTotalValue(inputTx)
	totalValueBig := big.NewInt(int64(totalValue))
	reward := big.Div(big.Mul(totalValueBig, big.NewInt(int64(st.SlasherPercentageReward))), big.NewInt(builtin.MaxSlasherReward))
	registrySlashThiefLocker(rt, &st, target, reward, caller, totalValueBig)

	rt.Emit("LockerDispute", map[string]interface{}{"target": target.String(), "txId": inputTxID.String()})
	return nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// --- admin setters -------------------------------------------------------

type AddressParams struct {
	Target abi.Address
}

type Uint64Params struct {
	Value uint64
}

type ChainEpochParams struct {
	Value abi.ChainEpoch
}

func (a Actor) SetRelay(rt runtime.Runtime, params *AddressParams) *abi.EmptyValue {
	if params.Target.Empty() {
		rt.Abortf(exitcode.ErrIllegalArgument, "relay must not be the zero address")
	}
	var st State
	rt.State().Transaction(&st, func() {
		rt.ValidateImmediateCallerIs(st.Owner)
		st.RelayActor = params.Target
	})
	return nil
}

func (a Actor) SetTreasury(rt runtime.Runtime, params *AddressParams) *abi.EmptyValue {
	if params.Target.Empty() {
		rt.Abortf(exitcode.ErrIllegalArgument, "treasury must not be the zero address")
	}
	var st State
	rt.State().Transaction(&st, func() {
		rt.ValidateImmediateCallerIs(st.Owner)
		st.Treasury = params.Target
	})
	return nil
}

func (a Actor) SetLockerRegistry(rt runtime.Runtime, params *AddressParams) *abi.EmptyValue {
	if params.Target.Empty() {
		rt.Abortf(exitcode.ErrIllegalArgument, "lockerRegistry must not be the zero address")
	}
	var st State
	rt.State().Transaction(&st, func() {
		rt.ValidateImmediateCallerIs(st.Owner)
		st.LockerRegistryActor = params.Target
	})
	return nil
}

func (a Actor) SetLedger(rt runtime.Runtime, params *AddressParams) *abi.EmptyValue {
	if params.Target.Empty() {
		rt.Abortf(exitcode.ErrIllegalArgument, "ledger must not be the zero address")
	}
	var st State
	rt.State().Transaction(&st, func() {
		rt.ValidateImmediateCallerIs(st.Owner)
		st.LedgerActor = params.Target
	})
	return nil
}

// SetTransferDeadline preserves spec §9's Open Question 1 literally: when
// the proposed deadline is still below the relay's finalization parameter,
// any caller may set it (a bootstrapping allowance); a deadline at or above
// that bound may only be set by the owner.
func (a Actor) SetTransferDeadline(rt runtime.Runtime, params *ChainEpochParams) *abi.EmptyValue {
	if params.Value <= 0 {
		rt.Abortf(exitcode.ErrIllegalArgument, "transferDeadline must be positive")
	}
	var st State
	rt.State().Transaction(&st, func() {
		finalization := relayFinalizationParameter(rt, &st)
		if params.Value >= abi.ChainEpoch(finalization) {
			rt.ValidateImmediateCallerIs(st.Owner)
		} else {
			rt.ValidateImmediateCallerAcceptAny()
		}
		st.TransferDeadline = params.Value
	})
	return nil
}

func (a Actor) SetProtocolPercentageFee(rt runtime.Runtime, params *Uint64Params) *abi.EmptyValue {
	if params.Value > builtin.MaxProtocolFee {
		rt.Abortf(exitcode.ErrIllegalArgument, "protocolPercentageFee exceeds MaxProtocolFee")
	}
	var st State
	rt.State().Transaction(&st, func() {
		rt.ValidateImmediateCallerIs(st.Owner)
		st.ProtocolPercentageFee = params.Value
	})
	return nil
}

func (a Actor) SetSlasherPercentageReward(rt runtime.Runtime, params *Uint64Params) *abi.EmptyValue {
	if params.Value > builtin.MaxSlasherReward {
		rt.Abortf(exitcode.ErrIllegalArgument, "slasherPercentageReward exceeds MaxSlasherReward")
	}
	var st State
	rt.State().Transaction(&st, func() {
		rt.ValidateImmediateCallerIs(st.Owner)
		st.SlasherPercentageReward = params.Value
	})
	return nil
}

// SetBitcoinFeeOracle replaces the distinct principal authorized to call
// SetBitcoinFee (spec §6: "distinct from owner"), owner-gated.
func (a Actor) SetBitcoinFeeOracle(rt runtime.Runtime, params *AddressParams) *abi.EmptyValue {
	if params.Target.Empty() {
		rt.Abortf(exitcode.ErrIllegalArgument, "bitcoinFeeOracle must not be the zero address")
	}
	var st State
	rt.State().Transaction(&st, func() {
		rt.ValidateImmediateCallerIs(st.Owner)
		st.BitcoinFeeOracle = params.Target
	})
	return nil
}

func (a Actor) SetBitcoinFee(rt runtime.Runtime, params *Uint64Params) *abi.EmptyValue {
	var st State
	rt.State().Transaction(&st, func() {
		rt.ValidateImmediateCallerIs(st.BitcoinFeeOracle)
		st.BitcoinFee = params.Value
	})
	return nil
}

func (a Actor) SetStartingBlockNumber(rt runtime.Runtime, params *Uint64Params) *abi.EmptyValue {
	var st State
	rt.State().Transaction(&st, func() {
		rt.ValidateImmediateCallerIs(st.Owner)
		if params.Value <= st.StartingBlockNumber {
			rt.Abortf(exitcode.ErrIllegalArgument, "startingBlockNumber must strictly increase")
		}
		st.StartingBlockNumber = params.Value
	})
	return nil
}

// --- read-only accessors -------------------------------------------------

type BurnRequestQueryParams struct {
	Locker abi.Address
	Index  uint64
}

type Uint64Value struct{ Value uint64 }

func (a Actor) GetBurnRequest(rt runtime.Runtime, params *BurnRequestQueryParams) *BurnRequest {
	rt.ValidateImmediateCallerAcceptAny()
	var st State
	rt.State().Readonly(&st)
	req, found, err := getBurnRequest(rt.Store(), st.BurnRequests, params.Locker, params.Index)
	runtime.RequireNoErr(rt, err, exitcode.ErrIllegalState, "failed to load burn request")
	if !found {
		rt.Abortf(exitcode.ErrNotFound, "no burn request at index %d for locker %s", params.Index, params.Locker)
	}
	return req
}

func (a Actor) GetBurnRequestsLength(rt runtime.Runtime, params *AddressParams) *Uint64Value {
	rt.ValidateImmediateCallerAcceptAny()
	var st State
	rt.State().Readonly(&st)
	length, err := getBurnRequestsLength(rt.Store(), st.BurnRequests, params.Target)
	runtime.RequireNoErr(rt, err, exitcode.ErrIllegalState, "failed to load burn request sequence")
	return &Uint64Value{Value: length}
}

// --- collaborator helpers -------------------------------------------------

func registryGetLockerForScript(rt runtime.Runtime, st *State, script []byte) abi.Address {
	ret, code := rt.Send(st.LockerRegistryActor, builtin.MethodRegistryGetLockerForScript, &lockerregistry.ScriptParams{Script: script}, big.Zero())
	runtime.RequireSuccess(rt, code, "locker registry script lookup failed")
	var out lockerregistry.AddressParams
	if err := ret.Into(&out); err != nil {
		rt.Abortf(exitcode.ErrSerialization, "failed to decode locker registry response: %v", err)
	}
	return out.Target
}

func registryBurn(rt runtime.Runtime, st *State, lockerScript []byte, amount big.Int) big.Int {
	ret, code := rt.Send(st.LockerRegistryActor, builtin.MethodRegistryBurn, &lockerregistry.RegistryBurnParams{LockerLockingScript: lockerScript, Amount: amount}, big.Zero())
	runtime.RequireSuccess(rt, code, "locker registry burn failed")
	var out lockerregistry.AfterLockerFeeReturn
	if err := ret.Into(&out); err != nil {
		rt.Abortf(exitcode.ErrSerialization, "failed to decode locker registry burn response: %v", err)
	}
	return out.AfterLockerFee
}

func registrySlashIdleLocker(rt runtime.Runtime, st *State, target abi.Address, reward big.Int, rewardRecipient abi.Address, amount big.Int, userRecipient abi.Address) {
	_, code := rt.Send(st.LockerRegistryActor, builtin.MethodRegistrySlashIdleLocker, &lockerregistry.SlashIdleLockerParams{
		Target:          target,
		RewardAmountBTC: reward,
		RewardRecipient: rewardRecipient,
		AmountBTC:       amount,
		UserRecipient:   userRecipient,
	}, big.Zero())
	runtime.RequireSuccess(rt, code, "locker registry idle-slash failed")
}

func registrySlashThiefLocker(rt runtime.Runtime, st *State, target abi.Address, reward big.Int, rewardRecipient abi.Address, amount big.Int) {
	_, code := rt.Send(st.LockerRegistryActor, builtin.MethodRegistrySlashThiefLocker, &lockerregistry.SlashThiefLockerParams{
		Target:          target,
		RewardAmountBTC: reward,
		RewardRecipient: rewardRecipient,
		AmountBTC:       amount,
	}, big.Zero())
	runtime.RequireSuccess(rt, code, "locker registry thief-slash failed")
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

type relayLastSubmittedHeightParams struct{}

func relayLastSubmittedHeight(rt runtime.Runtime, st *State) uint64 {
	ret, code := rt.Send(st.RelayActor, builtin.MethodRelayLastSubmittedHeight, &relayLastSubmittedHeightParams{}, big.Zero())
	runtime.RequireSuccess(rt, code, "relay lastSubmittedHeight query failed")
	var height uint64
	if err := ret.Into(&height); err != nil {
		rt.Abortf(exitcode.ErrSerialization, "failed to decode relay response: %v", err)
	}
	return height
}

type relayFinalizationParameterParams struct{}

func relayFinalizationParameter(rt runtime.Runtime, st *State) uint64 {
	ret, code := rt.Send(st.RelayActor, builtin.MethodRelayFinalizationParameter, &relayFinalizationParameterParams{}, big.Zero())
	runtime.RequireSuccess(rt, code, "relay finalizationParameter query failed")
	var param uint64
	if err := ret.Into(&param); err != nil {
		rt.Abortf(exitcode.ErrSerialization, "failed to decode relay response: %v", err)
	}
	return param
}

type relayCheckTxProofParams struct {
	TxID        abi.Hash256
	BlockNumber uint64
	MerkleProof []byte
	TxIndex     uint64
}

func relayCheckTxProof(rt runtime.Runtime, st *State, txID abi.Hash256, blockNumber uint64, merkleProof []byte, txIndex uint64) bool {
	ret, code := rt.Send(st.RelayActor, builtin.MethodRelayCheckTxProof, &relayCheckTxProofParams{
		TxID: txID, BlockNumber: blockNumber, MerkleProof: merkleProof, TxIndex: txIndex,
	}, big.Zero())
	runtime.RequireSuccess(rt, code, "relay checkTxProof query failed")
	var verified bool
	if err := ret.Into(&verified); err != nil {
		rt.Abortf(exitcode.ErrSerialization, "failed to decode relay response: %v", err)
	}
	return verified
}
