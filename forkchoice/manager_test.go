package forkchoice

import (
	"context"
	"testing"

	"github.com/lthib/forkchoice/protoarray"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *protoarray.Engine {
	e, err := protoarray.New(0, 0, rootAt(1), 0, 0)
	require.NoError(t, err)
	return e
}

func TestCheckpointManager_ProcessState_StrictlyGreaterEpochWins(t *testing.T) {
	engine := newTestEngine(t)
	cm := newCheckpointManager(
		CheckpointWithBalances{Checkpoint: Checkpoint{Epoch: 0, Root: rootAt(1)}},
		Checkpoint{Epoch: 0, Root: rootAt(1)},
	)

	cm.processState(context.Background(), engine,
		CheckpointWithBalances{Checkpoint: Checkpoint{Epoch: 5, Root: rootAt(1)}, Balances: []uint64{10}},
		Checkpoint{Epoch: 0, Root: rootAt(1)},
	)

	assert.EqualValues(t, 5, cm.best.Justified.Epoch)
}

func TestCheckpointManager_ProcessState_EqualEpochRejectsCompetingFork(t *testing.T) {
	engine := newTestEngine(t)
	require.NoError(t, engine.OnNewBlock(context.Background(), 0, rootAt(2), rootAt(1), 0, 0))
	require.NoError(t, engine.OnNewBlock(context.Background(), 0, rootAt(3), rootAt(1), 0, 0))

	cm := newCheckpointManager(
		CheckpointWithBalances{Checkpoint: Checkpoint{Epoch: 1, Root: rootAt(2)}},
		Checkpoint{Epoch: 0, Root: rootAt(1)},
	)

	cm.processState(context.Background(), engine,
		CheckpointWithBalances{Checkpoint: Checkpoint{Epoch: 1, Root: rootAt(3)}, Balances: []uint64{99}},
		Checkpoint{Epoch: 0, Root: rootAt(1)},
	)

	assert.Equal(t, rootAt(2), cm.best.Justified.Root)
}

func TestCheckpointManager_ProcessState_EqualEpochAcceptsCanonicalDescendant(t *testing.T) {
	engine := newTestEngine(t)
	require.NoError(t, engine.OnNewBlock(context.Background(), 0, rootAt(2), rootAt(1), 0, 0))
	require.NoError(t, engine.OnNewBlock(context.Background(), 0, rootAt(3), rootAt(2), 0, 0))

	cm := newCheckpointManager(
		CheckpointWithBalances{Checkpoint: Checkpoint{Epoch: 1, Root: rootAt(2)}},
		Checkpoint{Epoch: 0, Root: rootAt(1)},
	)

	cm.processState(context.Background(), engine,
		CheckpointWithBalances{Checkpoint: Checkpoint{Epoch: 1, Root: rootAt(3)}, Balances: []uint64{99}},
		Checkpoint{Epoch: 0, Root: rootAt(1)},
	)

	assert.Equal(t, rootAt(3), cm.best.Justified.Root)
}

func TestCheckpointManager_MaybeUpdate_NotYetUsable(t *testing.T) {
	engine := newTestEngine(t)
	votes := protoarray.NewVoteTracker()
	cm := newCheckpointManager(
		CheckpointWithBalances{Checkpoint: Checkpoint{Epoch: 2, Root: rootAt(1)}},
		Checkpoint{Epoch: 0, Root: rootAt(1)},
	)

	promoted, err := cm.maybeUpdate(context.Background(), engine, votes, 64) // epoch 2, not > best.Justified.Epoch(2)
	require.NoError(t, err)
	assert.False(t, promoted)
}

func TestCheckpointManager_MaybeUpdate_PromotesWhenUsable(t *testing.T) {
	engine := newTestEngine(t)
	votes := protoarray.NewVoteTracker()
	cm := newCheckpointManager(
		CheckpointWithBalances{Checkpoint: Checkpoint{Epoch: 0, Root: rootAt(1)}},
		Checkpoint{Epoch: 0, Root: rootAt(1)},
	)
	cm.best.Justified.Balances = []uint64{32}

	promoted, err := cm.maybeUpdate(context.Background(), engine, votes, 64) // epoch 2 > best.Justified.Epoch(0)
	require.NoError(t, err)
	assert.True(t, promoted)
	assert.Equal(t, cm.best, cm.current)
}

func TestCheckpointManager_MaybeUpdate_FailureLeavesCurrentAndVotesUnchanged(t *testing.T) {
	engine := newTestEngine(t)
	votes := protoarray.NewVoteTracker()
	votes.ProcessAttestation(context.Background(), 0, rootAt(1), 1)

	cm := newCheckpointManager(
		CheckpointWithBalances{Checkpoint: Checkpoint{Epoch: 0, Root: rootAt(1)}},
		Checkpoint{Epoch: 0, Root: rootAt(1)},
	)
	cm.best.Justified.Balances = []uint64{1000}

	promoted, err := cm.maybeUpdate(context.Background(), engine, votes, 64)
	require.NoError(t, err)
	require.True(t, promoted) // node0 weight is now 1000, vote.currentRoot advanced to rootAt(1)

	// Engineer a failing second promotion: current.Justified.Balances claims
	// a larger old balance than the node actually carries, so applying the
	// resulting delta underflows node0's weight.
	snapshotBefore := votes.Snapshot()

	cm.current.Justified.Balances = []uint64{5000}
	cm.best.Justified.Epoch = 10
	cm.best.Justified.Balances = []uint64{}
	currentBefore := cm.current

	promoted, err = cm.maybeUpdate(context.Background(), engine, votes, 640)
	require.Error(t, err)
	assert.False(t, promoted)
	assert.Equal(t, currentBefore, cm.current)
	assert.Equal(t, snapshotBefore, votes.Snapshot())
}
