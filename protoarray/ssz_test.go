package protoarray

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_ToBytesFromBytes_RoundTrip(t *testing.T) {
	e, err := New(5, 0, rootAt(1), 2, 1)
	require.NoError(t, err)
	require.NoError(t, e.OnNewBlock(context.Background(), 0, rootAt(2), rootAt(1), 2, 1))
	require.NoError(t, e.OnNewBlock(context.Background(), 0, rootAt(3), rootAt(2), 2, 1))
	require.NoError(t, e.ApplyScoreChanges(context.Background(), 2, []int{1, 2, 3}))

	data := e.ToBytes()
	restored, err := FromBytes(data)
	require.NoError(t, err)

	assert.Equal(t, data, restored.ToBytes())
	assert.Equal(t, e.NodeCount(), restored.NodeCount())
	assert.Equal(t, e.JustifiedEpoch(), restored.JustifiedEpoch())
	assert.Equal(t, e.FinalizedEpoch(), restored.FinalizedEpoch())
	assert.Equal(t, e.FinalizedRoot(), restored.FinalizedRoot())
	assert.True(t, restored.ContainsBlock(rootAt(3)))

	head, err := restored.FindHead(context.Background(), rootAt(1))
	require.NoError(t, err)
	wantHead, err := e.FindHead(context.Background(), rootAt(1))
	require.NoError(t, err)
	assert.Equal(t, wantHead, head)
}

func TestFromBytes_RejectsTruncatedHeader(t *testing.T) {
	_, err := FromBytes([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestFromBytes_RejectsLengthMismatch(t *testing.T) {
	e, err := New(0, 0, rootAt(1), 0, 0)
	require.NoError(t, err)
	data := e.ToBytes()
	_, err = FromBytes(data[:len(data)-1])
	assert.Error(t, err)
}
