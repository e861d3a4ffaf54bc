package protoarray

import (
	"context"
	"sync"

	"github.com/lthib/forkchoice/primitives"
)

// Vote is a single validator's "latest message" bookkeeping entry. nextRoot
// is the latest message observed by ProcessAttestation; currentRoot is the
// root last folded into a delta by computeDeltas (the "previous applied
// vote" from spec §4.2). currentRoot is advanced to nextRoot as a side
// effect of computeDeltas, never by ProcessAttestation.
type Vote struct {
	currentRoot [32]byte
	nextRoot    [32]byte
	nextEpoch   primitives.Epoch
}

// VoteTracker is the per-validator latest-message table described in spec
// §4.2. It has no notion of the engine's tree shape beyond the indices map
// handed to ComputeDeltas; it never reaches into a Store directly.
type VoteTracker struct {
	mu    sync.RWMutex
	votes []Vote
}

// NewVoteTracker returns an empty tracker.
func NewVoteTracker() *VoteTracker {
	return &VoteTracker{votes: make([]Vote, 0)}
}

// ProcessAttestation records validatorIndex's latest message, discarding it
// if targetEpoch does not strictly exceed the epoch of the vote already on
// file, and ignoring votes to the zero-root alias (spec §4.4: these are
// never useful and would otherwise disturb post-finalization tree state).
func (vt *VoteTracker) ProcessAttestation(ctx context.Context, validatorIndex uint64, blockRoot [32]byte, targetEpoch primitives.Epoch) {
	if isZeroRoot(blockRoot) {
		return
	}

	vt.mu.Lock()
	defer vt.mu.Unlock()

	for uint64(len(vt.votes)) <= validatorIndex {
		vt.votes = append(vt.votes, Vote{})
	}

	if targetEpoch <= vt.votes[validatorIndex].nextEpoch && !isZeroRoot(vt.votes[validatorIndex].nextRoot) {
		return
	}
	vt.votes[validatorIndex].nextRoot = blockRoot
	vt.votes[validatorIndex].nextEpoch = targetEpoch
}

// LatestMessage returns validatorIndex's latest message, if any has ever
// been recorded.
func (vt *VoteTracker) LatestMessage(validatorIndex uint64) (root [32]byte, epoch primitives.Epoch, ok bool) {
	vt.mu.RLock()
	defer vt.mu.RUnlock()

	if validatorIndex >= uint64(len(vt.votes)) {
		return [32]byte{}, 0, false
	}
	v := vt.votes[validatorIndex]
	if isZeroRoot(v.nextRoot) {
		return [32]byte{}, 0, false
	}
	return v.nextRoot, v.nextEpoch, true
}

// ComputeDeltas is compute_deltas from spec §4.2: diff each validator's
// latest message against the vote last folded in, weighted by the
// supplied balance vectors, and return one signed delta per engine node
// index (sized to len(indices)).
func (vt *VoteTracker) ComputeDeltas(ctx context.Context, indices map[[32]byte]uint64, oldBalances, newBalances []uint64) ([]int, error) {
	vt.mu.Lock()
	defer vt.mu.Unlock()

	return computeDeltas(ctx, indices, vt.votes, oldBalances, newBalances)
}

// computeDeltas is the free-function core of ComputeDeltas, split out so it
// can be exercised directly with hand-built indices/votes in tests,
// matching the teacher's own decomposition (helpers_test.go calls
// computeDeltas directly rather than through a tracker).
func computeDeltas(ctx context.Context, indices map[[32]byte]uint64, votes []Vote, oldBalances, newBalances []uint64) ([]int, error) {
	deltas := make([]int, len(indices))

	for i := range votes {
		vote := &votes[i]
		oldBalance := balanceAt(oldBalances, i)
		newBalance := balanceAt(newBalances, i)

		if !isZeroRoot(vote.currentRoot) {
			if idx, ok := indices[vote.currentRoot]; ok && int(idx) < len(deltas) {
				deltas[idx] -= int(oldBalance)
			}
		}
		if !isZeroRoot(vote.nextRoot) {
			if idx, ok := indices[vote.nextRoot]; ok && int(idx) < len(deltas) {
				deltas[idx] += int(newBalance)
			}
		}
		vote.currentRoot = vote.nextRoot
	}

	return deltas, nil
}

// Snapshot returns a copy of the tracker's internal vote table, used by the
// checkpoint manager to make promotion all-or-nothing (spec §4.3: a failed
// promotion must leave the vote tracker's previous-applied-vote table
// unchanged, even though computeDeltas has already advanced currentRoot by
// the time the engine call that might fail runs).
func (vt *VoteTracker) Snapshot() []Vote {
	vt.mu.RLock()
	defer vt.mu.RUnlock()
	return append([]Vote(nil), vt.votes...)
}

// Restore replaces the tracker's vote table with a prior Snapshot.
func (vt *VoteTracker) Restore(snapshot []Vote) {
	vt.mu.Lock()
	defer vt.mu.Unlock()
	vt.votes = snapshot
}

func balanceAt(balances []uint64, i int) uint64 {
	if i < 0 || i >= len(balances) {
		return 0
	}
	return balances[i]
}
