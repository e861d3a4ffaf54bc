package forkchoice

import (
	"errors"

	"github.com/lthib/forkchoice/protoarray"
)

// Façade-level sentinel errors, the remaining spec §6 error kinds not
// already owned by protoarray (MissingBlock, MissingState,
// UnknownJustifiedBlock). protoarray's own sentinels are classified by
// Category below rather than redeclared here. These two are raised
// by a HostChain implementation and surfaced to the core wrapped in a
// BackendError, rather than originating inside this package.
var (
	ErrMissingBlock          = errors.New("forkchoice: missing block")
	ErrMissingState          = errors.New("forkchoice: missing state")
	errUnknownJustifiedBlock = errors.New("forkchoice: unknown justified block")
)

// BackendError wraps an opaque failure from a HostChain collaborator
// (balance lookup, attesting-indices resolution), matching spec §6's
// `BackendError(string)` kind.
type BackendError struct {
	Cause error
}

func (e *BackendError) Error() string {
	return "forkchoice: backend error: " + e.Cause.Error()
}

func (e *BackendError) Unwrap() error {
	return e.Cause
}

// ErrorCategory is the three-way taxonomy from spec §7.
type ErrorCategory int

const (
	// CategoryUnknown is returned for errors this package does not
	// recognize as one of its own sentinel kinds.
	CategoryUnknown ErrorCategory = iota
	// CategoryCorruption covers programmer errors / invariant breaches:
	// the engine's state afterward is considered poisoned.
	CategoryCorruption
	// CategoryContractViolation covers caller contract violations: the
	// engine's state is unchanged, but the call itself was invalid.
	CategoryContractViolation
	// CategoryLookupMiss covers expected lookup misses during normal
	// operation (races against peers); callers recover by waiting or
	// re-requesting.
	CategoryLookupMiss
)

// Category classifies err per spec §7's three-category taxonomy, grounded
// in the teacher's pattern of exhaustive Error enums consumed via a single
// switch at the call site.
func Category(err error) ErrorCategory {
	switch {
	case errors.Is(err, protoarray.ErrInvalidDeltaLength),
		errors.Is(err, protoarray.ErrInvalidNodeIndex),
		errors.Is(err, protoarray.ErrInvalidNodeDelta),
		errors.Is(err, protoarray.ErrInvalidParentIndex),
		errors.Is(err, protoarray.ErrInvalidParentDelta),
		errors.Is(err, protoarray.ErrInvalidBestChildIndex),
		errors.Is(err, protoarray.ErrInvalidBestDescendant),
		errors.Is(err, protoarray.ErrInvalidJustifiedIndex),
		errors.Is(err, protoarray.ErrDeltaOverflow),
		errors.Is(err, protoarray.ErrIndexOverflow):
		return CategoryCorruption
	case errors.Is(err, protoarray.ErrUnknownParent),
		errors.Is(err, protoarray.ErrInvalidFindHeadStartRoot),
		errors.Is(err, protoarray.ErrInvalidFinalizedRootChange),
		errors.Is(err, protoarray.ErrRevertedFinalizedEpoch):
		return CategoryContractViolation
	case errors.Is(err, ErrMissingBlock),
		errors.Is(err, ErrMissingState),
		errors.Is(err, errUnknownJustifiedBlock),
		errors.Is(err, protoarray.ErrUnknownFinalizedRoot),
		errors.Is(err, protoarray.ErrUnknownJustifiedRoot):
		return CategoryLookupMiss
	default:
		return CategoryUnknown
	}
}
