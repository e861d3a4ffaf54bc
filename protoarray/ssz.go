package protoarray

import (
	"encoding/binary"

	"github.com/lthib/forkchoice/primitives"
	"github.com/pkg/errors"
)

// Wire layout, fixed-width little-endian throughout (spec §4.1
// Serialization): prune_threshold, justified_epoch, finalized_epoch,
// finalized_root, node count, then one fixed-size record per node. The
// indices map is never written directly -- spec invariant #2 guarantees it
// is exactly {node.Root: i for i, node in enumerate(nodes)}, so writing it
// would be redundant and would reopen exactly the "map iteration order
// leakage" hazard spec §8's round-trip law warns against. ToBytes is
// therefore a pure function of (PruneThreshold, JustifiedEpoch,
// FinalizedEpoch, FinalizedRoot, Nodes) and FromBytes rebuilds NodeIndices
// deterministically.
const nodeRecordSize = 8 + 32 + 8 + 8 + 8 + 8 + 8 + 8 // slot, root, parent, justified, finalized, weight, bestChild, bestDescendant

// ToBytes serializes the engine's full state (to_bytes from spec §6).
func (e *Engine) ToBytes() []byte {
	e.store.nodesLock.RLock()
	defer e.store.nodesLock.RUnlock()

	buf := make([]byte, 0, 8+8+8+32+8+len(e.store.Nodes)*nodeRecordSize)
	buf = appendUint64(buf, e.store.PruneThreshold)
	buf = appendUint64(buf, uint64(e.store.JustifiedEpoch))
	buf = appendUint64(buf, uint64(e.store.FinalizedEpoch))
	buf = append(buf, e.store.FinalizedRoot[:]...)
	buf = appendUint64(buf, uint64(len(e.store.Nodes)))
	for _, n := range e.store.Nodes {
		buf = appendUint64(buf, uint64(n.Slot))
		buf = append(buf, n.Root[:]...)
		buf = appendUint64(buf, n.Parent)
		buf = appendUint64(buf, uint64(n.JustifiedEpoch))
		buf = appendUint64(buf, uint64(n.FinalizedEpoch))
		buf = appendUint64(buf, n.Weight)
		buf = appendUint64(buf, n.BestChild)
		buf = appendUint64(buf, n.BestDescendant)
	}
	return buf
}

// FromBytes deserializes an engine previously written by ToBytes
// (from_bytes from spec §6). Round-trip is bit-exact structurally: calling
// ToBytes again on the result reproduces the input byte-for-byte.
func FromBytes(data []byte) (*Engine, error) {
	const headerSize = 8 + 8 + 8 + 32 + 8
	if len(data) < headerSize {
		return nil, errors.New("protoarray: truncated header")
	}

	pruneThreshold := readUint64(data[0:8])
	justifiedEpoch := primitives.Epoch(readUint64(data[8:16]))
	finalizedEpoch := primitives.Epoch(readUint64(data[16:24]))
	var finalizedRoot [32]byte
	copy(finalizedRoot[:], data[24:56])
	nodeCount := readUint64(data[56:64])

	want := headerSize + int(nodeCount)*nodeRecordSize
	if len(data) != want {
		return nil, errors.Errorf("protoarray: expected %d bytes, got %d", want, len(data))
	}

	store := NewStore(pruneThreshold, justifiedEpoch, finalizedEpoch, finalizedRoot)
	store.Nodes = make([]*Node, nodeCount)
	offset := headerSize
	for i := uint64(0); i < nodeCount; i++ {
		rec := data[offset : offset+nodeRecordSize]
		n := &Node{}
		n.Slot = primitives.Slot(readUint64(rec[0:8]))
		copy(n.Root[:], rec[8:40])
		n.Parent = readUint64(rec[40:48])
		n.JustifiedEpoch = primitives.Epoch(readUint64(rec[48:56]))
		n.FinalizedEpoch = primitives.Epoch(readUint64(rec[56:64]))
		n.Weight = readUint64(rec[64:72])
		n.BestChild = readUint64(rec[72:80])
		n.BestDescendant = readUint64(rec[80:88])
		store.Nodes[i] = n
		store.NodeIndices[n.Root] = i
		offset += nodeRecordSize
	}

	return &Engine{store: store}, nil
}

func appendUint64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

func readUint64(b []byte) uint64 {
	return binary.LittleEndian.Uint64(b)
}
