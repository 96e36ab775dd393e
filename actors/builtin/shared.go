// Package builtin holds the protocol-wide constants shared by all three
// actors, grounded on the teacher's actors/builtin package (EpochsInDay,
// MethodSend, and friends, referenced throughout miner_actor.go as
// builtin.X).
package builtin

import "github.com/btcpeg/bridge-core/actors/runtime"

// Basis-points-like denominators, spec §3.
const (
	MaxProtocolFee    = 10_000
	MaxLockerFee      = 10_000
	MaxSlasherReward  = 10_000
	MaxDiscountRatio  = 10_000
	WrappedBTCDecimal = 8  // fixed, spec §3 and Non-goals.
	NativeDecimals    = 18 // target-chain native unit, spec §3.
)

// Health-factor scaling constants, spec §4.2. HealthFactor is the
// liquidation threshold expressed in the same fixed-point base as
// collateralRatio/liquidationRatio; UpperHealthFactor is the numerator
// scale applied before dividing by liquidationRatio so that a
// fully-collateralized locker reports a healthFactor well above the
// threshold.
const (
	HealthFactor      = 10_000
	UpperHealthFactor = 10_000
)

// MethodSend is a pure value transfer with no method dispatch — mirrors
// the teacher's builtin.MethodSend used in burnFunds/notifyPledgeChanged.
const MethodSend runtime.Method = 0

// Ledger methods reachable via Runtime.Send, called by LockerRegistry and
// BurnRouter (the only two components authorized to mint/burn). Numbered
// to match ledger.Actor.Exports() exactly, since Send dispatches by this
// number against the receiving actor's own export table.
const (
	MethodLedgerMint         runtime.Method = 2
	MethodLedgerBurn         runtime.Method = 3
	MethodLedgerOwnerBurn    runtime.Method = 4
	MethodLedgerTransferFrom runtime.Method = 6
)

// LockerRegistry methods reachable via Runtime.Send, called by BurnRouter
// to apply slashing and to pull locker-fee burns. Numbered to match
// lockerregistry.Actor.Exports() exactly.
const (
	MethodRegistryBurn               runtime.Method = 11
	MethodRegistrySlashIdleLocker    runtime.Method = 12
	MethodRegistrySlashThiefLocker   runtime.Method = 13
	MethodRegistryGetLockerForScript runtime.Method = 24
)

// Oracle methods reachable via Runtime.Send, called by LockerRegistry to
// price collateral (spec §6's injected, owner-replaceable price oracle).
const (
	MethodOracleGetPrice runtime.Method = iota + 1
)

// Relay methods reachable via Runtime.Send, called by BurnRouter to
// verify SPV proofs and track Bitcoin finality (spec §6's injected,
// owner-replaceable relay).
const (
	MethodRelayLastSubmittedHeight runtime.Method = iota + 1
	MethodRelayFinalizationParameter
	MethodRelayCheckTxProof
)
