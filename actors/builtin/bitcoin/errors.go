package bitcoin

import "fmt"

// ErrMalformed is returned by every parsing function in this package on any
// out-of-bounds read, truncated varint, or length mismatch — spec §9's
// "fail closed on malformed input (no silent truncation, no out-of-bounds
// reads)".
type ErrMalformed struct {
	Reason string
}

func (e *ErrMalformed) Error() string {
	return fmt.Sprintf("bitcoin: malformed transaction: %s", e.Reason)
}
