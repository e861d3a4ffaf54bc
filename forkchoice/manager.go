package forkchoice

import (
	"context"

	"github.com/lthib/forkchoice/primitives"
	"github.com/lthib/forkchoice/protoarray"
	"github.com/pkg/errors"
)

// checkpointManager is the Checkpoint Manager from spec §4.3: tracks the
// current (justified, finalized) pair driving the engine and a
// best-observed pair awaiting promotion. Grounded in the teacher's later
// forkchoicetypes.Checkpoint-based API (JustifiedCheckpoint,
// BestJustifiedCheckpoint, UpdateJustifiedCheckpoint, NewSlot).
type checkpointManager struct {
	current checkpointPair
	best    checkpointPair
}

func newCheckpointManager(justified CheckpointWithBalances, finalized Checkpoint) *checkpointManager {
	pair := checkpointPair{Justified: justified, Finalized: finalized}
	return &checkpointManager{current: pair, best: pair}
}

// processState is process_state from spec §4.3: a newly processed block's
// post-state may beat the best-observed checkpoints. A candidate beats the
// stored one on strictly greater epoch, or on equal epoch when its root is
// already on the engine's canonical chain extending from the stored root --
// a same-epoch competing fork never displaces the running best.
func (cm *checkpointManager) processState(ctx context.Context, engine *protoarray.Engine, justified CheckpointWithBalances, finalized Checkpoint) {
	if beats(engine, justified.Checkpoint, cm.best.Justified.Checkpoint) {
		cm.best.Justified = justified
	}
	if beats(engine, finalized, cm.best.Finalized) {
		cm.best.Finalized = finalized
	}
}

func beats(engine *protoarray.Engine, candidate, stored Checkpoint) bool {
	if candidate.Epoch > stored.Epoch {
		return true
	}
	if candidate.Epoch == stored.Epoch {
		return engine.IsDescendant(candidate.Root, stored.Root)
	}
	return false
}

// maybeUpdate is maybe_update from spec §4.3: promotes best into current
// once currentSlot's epoch strictly exceeds the best-observed justified
// checkpoint's epoch. Promotion is all-or-nothing: a failure from
// ApplyScoreChanges leaves current and the vote tracker's vote table
// unchanged.
func (cm *checkpointManager) maybeUpdate(ctx context.Context, engine *protoarray.Engine, votes *protoarray.VoteTracker, currentSlot primitives.Slot) (bool, error) {
	if currentSlot.ToEpoch() <= cm.best.Justified.Epoch {
		return false, nil
	}

	snapshot := votes.Snapshot()
	deltas, err := votes.ComputeDeltas(ctx, engine.Indices(), cm.current.Justified.Balances, cm.best.Justified.Balances)
	if err != nil {
		votes.Restore(snapshot)
		return false, errors.Wrap(err, "computing promotion deltas")
	}

	if err := engine.ApplyScoreChanges(ctx, cm.best.Justified.Epoch, deltas); err != nil {
		votes.Restore(snapshot)
		return false, errors.Wrap(err, "applying promotion score changes")
	}

	cm.current = cm.best
	return true, nil
}
