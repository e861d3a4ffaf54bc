package protoarray

import "errors"

// Sentinel errors for the proto-array engine and vote tracker, one per
// error kind named in spec §6. Wrapped with github.com/pkg/errors' Wrapf at
// call sites that need to carry an offending index or root.
var (
	errUnknownParent            = errors.New("protoarray: unknown parent")
	errInvalidDeltaLength        = errors.New("protoarray: invalid delta length")
	errInvalidNodeIndex          = errors.New("protoarray: invalid node index")
	errInvalidNodeDelta          = errors.New("protoarray: invalid node delta")
	errInvalidParentIndex        = errors.New("protoarray: invalid parent index")
	errInvalidParentDelta        = errors.New("protoarray: invalid parent delta")
	errInvalidBestChildIndex     = errors.New("protoarray: invalid best child index")
	errInvalidBestDescendant     = errors.New("protoarray: invalid best descendant")
	errDeltaOverflow             = errors.New("protoarray: delta overflow")
	errIndexOverflow             = errors.New("protoarray: index overflow")
	errInvalidFinalizedRootChange = errors.New("protoarray: invalid finalized root change")
	errRevertedFinalizedEpoch    = errors.New("protoarray: reverted finalized epoch")
	errUnknownJustifiedRoot      = errors.New("protoarray: unknown justified root")
	errInvalidJustifiedIndex     = errors.New("protoarray: invalid justified index")
	errInvalidFindHeadStartRoot  = errors.New("protoarray: invalid find-head start root")
	errUnknownFinalizedRoot      = errors.New("protoarray: unknown finalized root")
)

// Exported aliases so callers outside this package (the forkchoice façade's
// Category helper, in particular) can classify errors with errors.Is without
// this package needing to export its sentinels under different names
// internally.
var (
	ErrUnknownParent             = errUnknownParent
	ErrInvalidDeltaLength        = errInvalidDeltaLength
	ErrInvalidNodeIndex          = errInvalidNodeIndex
	ErrInvalidNodeDelta          = errInvalidNodeDelta
	ErrInvalidParentIndex        = errInvalidParentIndex
	ErrInvalidParentDelta        = errInvalidParentDelta
	ErrInvalidBestChildIndex     = errInvalidBestChildIndex
	ErrInvalidBestDescendant     = errInvalidBestDescendant
	ErrDeltaOverflow             = errDeltaOverflow
	ErrIndexOverflow             = errIndexOverflow
	ErrInvalidFinalizedRootChange = errInvalidFinalizedRootChange
	ErrRevertedFinalizedEpoch    = errRevertedFinalizedEpoch
	ErrUnknownJustifiedRoot      = errUnknownJustifiedRoot
	ErrInvalidJustifiedIndex     = errInvalidJustifiedIndex
	ErrInvalidFindHeadStartRoot  = errInvalidFindHeadStartRoot
	ErrUnknownFinalizedRoot      = errUnknownFinalizedRoot
)
