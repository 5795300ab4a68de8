package asmjit

import (
	"errors"
	"fmt"
)

// Sentinel error kinds returned by the allocator (spec §7). Callers should
// compare with errors.Is, since every returned error wraps one of these via
// *AllocError.
var (
	// ErrNotInitialized is returned by New when construction itself fails
	// — e.g. the initial page-size query errored. New then returns no
	// Allocator; no other operation returns this error.
	ErrNotInitialized = errors.New("asmjit: allocator not initialized")

	// ErrInvalidArgument covers a nil pointer, a zero size where
	// disallowed, or a pointer not owned by any block.
	ErrInvalidArgument = errors.New("asmjit: invalid argument")

	// ErrInvalidState covers a pointer that is owned by a block but does not
	// fall inside a live allocation (double-free or stale pointer), or a
	// shrink target larger than the current size.
	ErrInvalidState = errors.New("asmjit: invalid state")

	// ErrTooLarge is returned when a request exceeds uint32_max/2.
	ErrTooLarge = errors.New("asmjit: request too large")

	// ErrOutOfMemory covers VM mapping failure, block-record allocation
	// failure, or size-arithmetic overflow while sizing a new block.
	ErrOutOfMemory = errors.New("asmjit: out of memory")
)

// AllocError names the failing operation alongside one of the sentinel
// errors above. Grounded on the teacher's sentinel-plus-wrapper pattern
// (internal/wasm/errors.go), extended with Op so callers and logs can tell
// which entry point failed without parsing the message.
type AllocError struct {
	Op  string
	Err error
}

func (e *AllocError) Error() string {
	return fmt.Sprintf("asmjit: %s: %v", e.Op, e.Err)
}

func (e *AllocError) Unwrap() error { return e.Err }

func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &AllocError{Op: op, Err: err}
}
