// Package runtime defines the Runtime contract every actor method is driven
// through, grounded on the teacher's vmr.Runtime (aliased `type Runtime =
// vmr.Runtime` at the top of miner_actor.go and consumed as rt.* throughout).
// This is the systems-language replacement spec §9 calls for: "model
// ownership/pausing/reentrancy as structured guards around each operation,"
// not a contract-inheritance mixin.
package runtime

import (
	"golang.org/x/xerrors"

	"github.com/btcpeg/bridge-core/actors/abi"
	"github.com/btcpeg/bridge-core/actors/abi/big"
	"github.com/btcpeg/bridge-core/actors/runtime/exitcode"
	"github.com/btcpeg/bridge-core/actors/util/adt"
)

// LogLevel mirrors the teacher's vmr.LogLevel (rt.Log(vmr.ERROR, ...)).
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

// Method identifies an entry point on a collaborator actor reached via
// Send — the in-process analogue of an inter-contract call. Method 0 is
// always a pure value transfer (MethodSend), matching the teacher's
// builtin.MethodSend convention.
type Method uint64

const MethodSend Method = 0

// SendReturn carries a collaborator's response, deferred-decoded via Into,
// mirroring the teacher's rt.Send return value (`ret.Into(&out)`).
type SendReturn interface {
	Into(out interface{}) error
}

// StateHandle is the all-or-nothing state-transaction envelope of spec §5:
// "all state writes of an operation are observable at next-transaction
// boundary; partial state is never observable." Transaction's callback
// panics (via Abortf) to unwind; StateHandle's caller is responsible for
// persisting st only if the callback returns normally.
type StateHandle interface {
	// Readonly loads the current state into out without granting write
	// access; used by pure accessors (ValidateImmediateCallerAcceptAny
	// call sites in the teacher).
	Readonly(out interface{})
	// Transaction loads the current state into out, runs fn (which may
	// mutate out and may call rt.Abortf to unwind the whole operation),
	// and persists the result.
	Transaction(out interface{}, fn func())
	// Create commits the actor's initial state; valid only from a
	// constructor.
	Create(initial interface{})
}

// Runtime is implemented once per concrete deployment (support/mock.Runtime
// for tests) and passed explicitly into every actor method — "global
// registry addresses are configuration, not globals" (spec §9).
type Runtime interface {
	// Caller is the immediate caller of the current operation.
	Caller() abi.Address
	// Receiver is this actor instance's own address — used whenever an
	// actor must name itself as a Send party (LockerRegistry routing
	// pulled wrapped-BTC through itself before burning or forwarding it).
	Receiver() abi.Address
	// CurrEpoch is the current target-chain block height.
	CurrEpoch() abi.ChainEpoch
	// CurrentBalance is the native-token balance held by this actor
	// instance.
	CurrentBalance() big.Int

	// ValidateImmediateCallerIs aborts (ErrForbidden) unless Caller() is
	// one of the given addresses. Every mutating entry point must call
	// this, or ValidateImmediateCallerAcceptAny, exactly once — mirrors
	// the teacher's rt.ValidateImmediateCallerIs(info.Owner) idiom.
	ValidateImmediateCallerIs(addrs ...abi.Address)
	// ValidateImmediateCallerAcceptAny documents that an operation is
	// intentionally open to any caller (top-ups, liquidation, slashed
	// sale, per spec §5's "anyone" writers).
	ValidateImmediateCallerAcceptAny()

	// Store returns the content-addressed block store backing this
	// actor's state tables (adt.Map/adt.Array).
	Store() adt.Store

	// State is the transaction envelope for this actor's own state.
	State() StateHandle

	// Send invokes a method on a collaborator actor — Ledger or
	// LockerRegistry — passing along `value` of native token. This is the
	// in-process stand-in for an inter-contract call. No reentrancy guard
	// is implemented: neither this interface nor support/mock.Runtime
	// rejects a nested call back into the same actor instance.
	Send(to abi.Address, method Method, params interface{}, value big.Int) (SendReturn, exitcode.ExitCode)

	// Abortf unwinds the entire operation with a stable exit code and
	// message (spec §7: "stable tag," "nothing is retried internally").
	Abortf(code exitcode.ExitCode, msg string, args ...interface{})

	// Log emits a leveled diagnostic; never observable by other actors,
	// purely operational (backed by testing.T.Logf in support/mock).
	Log(level LogLevel, msg string, args ...interface{})

	// Emit records a semantic event for off-chain watchers (spec §6's
	// event log: CCBurn, PaidCCBurn, LockerSlashed, ...), the
	// systems-language analogue of an EVM log.
	Emit(event string, fields map[string]interface{})
}

// RequireNoErr aborts with code if err != nil, exactly mirroring the
// teacher's builtin.RequireNoErr(rt, err, exitcode.ErrIllegalState, "...").
// err is wrapped with xerrors.Errorf's %w (the teacher's own idiom for
// propagating a cause up the call stack, e.g. miner_actor.go's "failed to
// check sectors: %w") before the abort, so the resulting *RuntimeError's
// Cause still unwraps to the original error.
func RequireNoErr(rt Runtime, err error, code exitcode.ExitCode, msg string, args ...interface{}) {
	if err != nil {
		wrapped := xerrors.Errorf(msg+": %w", append(append([]interface{}{}, args...), err)...)
		rt.Abortf(code, "%s", wrapped)
	}
}

// RequireSuccess aborts with ErrExternal if a Send's exit code is not Ok,
// mirroring the teacher's builtin.RequireSuccess(rt, code, "...").
func RequireSuccess(rt Runtime, code exitcode.ExitCode, msg string, args ...interface{}) {
	if !code.IsSuccess() {
		full := append(append([]interface{}{}, args...), code)
		rt.Abortf(exitcode.ErrExternal, msg+": %v", full...)
	}
}

// Assert panics (a programming-error bug, never a user-triggerable abort)
// if cond is false, mirroring the teacher's util.Assert calls guarding
// internal invariants like periodStart > currEpoch.
func Assert(cond bool) {
	if !cond {
		panic("runtime: assertion failed")
	}
}
