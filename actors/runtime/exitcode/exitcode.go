// Package exitcode assigns a stable, enumerable tag to every abort, mirroring
// the teacher's actors/runtime/exitcode package (ErrIllegalArgument,
// ErrIllegalState, ErrForbidden, ErrInsufficientFunds as used throughout
// miner_actor.go). Extended with ErrProof and ErrExternal to cover the
// "proof" and "external" error kinds spec §7 names but the teacher, having
// no SPV concept, never needed.
package exitcode

import "fmt"

type ExitCode int64

const (
	Ok ExitCode = 0

	// ErrIllegalArgument: validation failures — malformed script length,
	// out-of-range ratio, unsorted indexes, array length mismatch.
	ErrIllegalArgument ExitCode = 16

	// ErrForbidden: authorization failures — wrong caller role, owner
	// gate.
	ErrForbidden ExitCode = 17

	// ErrIllegalState: state failures — duplicate role grant, still-active
	// locker attempting withdrawal, already-transferred request, Ledger
	// mint over the static cap or the epoch window's limit.
	ErrIllegalState ExitCode = 18

	// ErrInsufficientFunds: economic failures — below dust, insufficient
	// capacity, insufficient netMinted.
	ErrInsufficientFunds ExitCode = 19

	// ErrProof: SPV / Merkle-inclusion failures — tx not finalized, txId
	// mismatch, outpoint/script mismatch, txId already claimed as burn
	// proof, pre-starting-block.
	ErrProof ExitCode = 20

	// ErrExternal: a collaborator call (Ledger, Relay, Oracle) returned a
	// non-success exit code.
	ErrExternal ExitCode = 21

	// ErrSerialization: a stored value failed to (de)serialize.
	ErrSerialization ExitCode = 22

	// ErrNotFound: a lookup (locker, burn request) found nothing.
	ErrNotFound ExitCode = 23
)

func (x ExitCode) IsSuccess() bool {
	return x == Ok
}

func (x ExitCode) IsError() bool {
	return !x.IsSuccess()
}

func (x ExitCode) String() string {
	switch x {
	case Ok:
		return "Ok"
	case ErrIllegalArgument:
		return "ErrIllegalArgument"
	case ErrForbidden:
		return "ErrForbidden"
	case ErrIllegalState:
		return "ErrIllegalState"
	case ErrInsufficientFunds:
		return "ErrInsufficientFunds"
	case ErrProof:
		return "ErrProof"
	case ErrExternal:
		return "ErrExternal"
	case ErrSerialization:
		return "ErrSerialization"
	case ErrNotFound:
		return "ErrNotFound"
	default:
		return fmt.Sprintf("ExitCode(%d)", int64(x))
	}
}

// RuntimeError is the panic value carried by Runtime.Abortf; the top-level
// operation dispatcher recovers it and returns (ExitCode, error) to the
// caller, implementing spec §5 and §7's "abort the whole operation, full
// state rollback" contract without the host VM this was originally written
// against.
type RuntimeError struct {
	Code    ExitCode
	Message string
	// Cause is the %w-wrapped error that produced this abort, if any
	// (set when Abortf's last argument is an error — see RequireNoErr).
	// Unwrap exposes it so callers above the mock harness can still
	// errors.Is/As past the abort into the original cause.
	Cause error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *RuntimeError) Unwrap() error {
	return e.Cause
}
