package protoarray

import "github.com/lthib/forkchoice/primitives"

// NonExistentNode is the sentinel used in place of Option<usize>::None for
// Parent/BestChild/BestDescendant, grounded in the teacher's own
// protoarray.NonExistentNode constant.
const NonExistentNode = ^uint64(0)

// Node is a single block in the proto-array tree. Identity is the node's
// index in Store.Nodes; every cross-reference (Parent, BestChild,
// BestDescendant) is an index into that same slice, never a pointer.
type Node struct {
	Slot           primitives.Slot
	Root           [32]byte
	Parent         uint64
	JustifiedEpoch primitives.Epoch
	FinalizedEpoch primitives.Epoch
	Weight         uint64
	BestChild      uint64
	BestDescendant uint64
}

// isBetterThan implements the tiebreak rule: higher weight wins, ties break
// on the lexicographically larger root, and a node is considered >= itself.
func (n *Node) isBetterThan(other *Node) bool {
	if n.Weight == other.Weight {
		return bytesGreaterOrEqual(n.Root, other.Root)
	}
	return n.Weight >= other.Weight
}

func bytesGreaterOrEqual(a, b [32]byte) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] > b[i]
		}
	}
	return true
}
