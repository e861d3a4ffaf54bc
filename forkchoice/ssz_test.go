package forkchoice

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForkChoice_ToBytesFromBytes_RoundTrip(t *testing.T) {
	host := &fakeHost{indices: []uint64{0}}
	fc := newTestForkChoice(t, host)
	ctx := context.Background()

	j := Checkpoint{Epoch: 0, Root: rootAt(1)}
	f := Checkpoint{Epoch: 0, Root: rootAt(1)}
	jb := CheckpointWithBalances{Checkpoint: j, Balances: []uint64{32, 64}}
	require.NoError(t, fc.ProcessBlock(ctx, 1, rootAt(2), rootAt(1), jb, f, nil))

	data := fc.ToBytes()

	restored, err := FromBytes(data, host, nil)
	require.NoError(t, err)

	assert.Equal(t, fc.anchorRoot, restored.anchorRoot)
	assert.Equal(t, fc.checkpoints.current, restored.checkpoints.current)
	assert.Equal(t, fc.checkpoints.best, restored.checkpoints.best)
	assert.True(t, restored.ContainsBlock(rootAt(2)))

	wantHead, err := fc.FindHead(ctx, 64)
	require.NoError(t, err)
	gotHead, err := restored.FindHead(ctx, 64)
	require.NoError(t, err)
	assert.Equal(t, wantHead, gotHead)
}

func TestFromBytes_RejectsTruncatedAnchorRoot(t *testing.T) {
	_, err := FromBytes([]byte{1, 2, 3}, &fakeHost{}, nil)
	require.Error(t, err)
}

func TestFromBytes_RejectsLengthMismatch(t *testing.T) {
	host := &fakeHost{}
	fc := newTestForkChoice(t, host)
	data := fc.ToBytes()

	truncated := data[:len(data)-4]
	_, err := FromBytes(truncated, host, nil)
	require.Error(t, err)
}
