package protoarray

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_New_SeedsAnchor(t *testing.T) {
	e, err := New(0, 0, rootAt(1), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, e.NodeCount())
	assert.True(t, e.ContainsBlock(rootAt(1)))
}

func TestEngine_OnNewBlock_AndFindHead(t *testing.T) {
	e, err := New(0, 0, rootAt(1), 0, 0)
	require.NoError(t, err)
	require.NoError(t, e.OnNewBlock(context.Background(), 0, rootAt(2), rootAt(1), 0, 0))

	head, err := e.FindHead(context.Background(), rootAt(1))
	require.NoError(t, err)
	assert.Equal(t, rootAt(2), head)
}

func TestEngine_ApplyScoreChanges_ChangesHead(t *testing.T) {
	e, err := New(0, 0, rootAt(1), 0, 0)
	require.NoError(t, err)
	require.NoError(t, e.OnNewBlock(context.Background(), 0, rootAt(2), rootAt(1), 0, 0))
	require.NoError(t, e.OnNewBlock(context.Background(), 0, rootAt(3), rootAt(1), 0, 0))

	require.NoError(t, e.ApplyScoreChanges(context.Background(), 0, []int{0, 5, 9}))

	head, err := e.FindHead(context.Background(), rootAt(1))
	require.NoError(t, err)
	assert.Equal(t, rootAt(3), head)
}

func TestEngine_MaybePrune_RejectsRevertedEpoch(t *testing.T) {
	e, err := New(0, 0, rootAt(1), 0, 0)
	require.NoError(t, err)
	require.NoError(t, e.OnNewBlock(context.Background(), 0, rootAt(2), rootAt(1), 0, 0))
	require.NoError(t, e.MaybePrune(context.Background(), 1, rootAt(2)))

	err = e.MaybePrune(context.Background(), 0, rootAt(1))
	assert.ErrorIs(t, err, errRevertedFinalizedEpoch)
}

func TestEngine_MaybePrune_RejectsRootChangeAtSameEpoch(t *testing.T) {
	e, err := New(0, 0, rootAt(1), 0, 0)
	require.NoError(t, err)
	require.NoError(t, e.OnNewBlock(context.Background(), 0, rootAt(2), rootAt(1), 0, 0))

	err = e.MaybePrune(context.Background(), 0, rootAt(2))
	assert.ErrorIs(t, err, errInvalidFinalizedRootChange)
}

func TestEngine_MaybePrune_CompactsAtOrAboveThreshold(t *testing.T) {
	e, err := New(0, 0, rootAt(1), 0, 0)
	require.NoError(t, err)
	require.NoError(t, e.OnNewBlock(context.Background(), 0, rootAt(2), rootAt(1), 0, 0))

	require.NoError(t, e.MaybePrune(context.Background(), 1, rootAt(2)))
	assert.Equal(t, 1, e.NodeCount())
	assert.True(t, e.ContainsBlock(rootAt(2)))
	assert.False(t, e.ContainsBlock(rootAt(1)))
}

func TestEngine_Indices_IsDefensiveCopy(t *testing.T) {
	e, err := New(0, 0, rootAt(1), 0, 0)
	require.NoError(t, err)
	idx := e.Indices()
	idx[rootAt(99)] = 42
	assert.False(t, e.ContainsBlock(rootAt(99)))
}
