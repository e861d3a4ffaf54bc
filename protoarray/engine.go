package protoarray

import (
	"context"

	"github.com/lthib/forkchoice/primitives"
	"github.com/pkg/errors"
)

// Engine is the proto-array engine façade from spec §4.1: on_new_block,
// apply_score_changes, find_head, maybe_prune, plus serialization. It owns
// a Store and nothing else -- no knowledge of votes or checkpoints lives
// here, matching spec §2's component boundary.
type Engine struct {
	store *Store
}

// New seeds an engine with a single anchor node at index 0, per spec §6's
// `new(anchor_root, anchor_state)`, with the engine's justified/finalized
// epochs set to the anchor's and its finalized root set to anchorRoot.
func New(pruneThreshold uint64, anchorSlot primitives.Slot, anchorRoot [32]byte, justifiedEpoch, finalizedEpoch primitives.Epoch) (*Engine, error) {
	store := NewStore(pruneThreshold, justifiedEpoch, finalizedEpoch, anchorRoot)
	if err := store.insert(context.Background(), anchorSlot, anchorRoot, [32]byte{}, justifiedEpoch, finalizedEpoch); err != nil {
		return nil, errors.Wrap(err, "seeding anchor node")
	}
	return &Engine{store: store}, nil
}

// OnNewBlock is on_new_block from spec §4.1.
func (e *Engine) OnNewBlock(ctx context.Context, slot primitives.Slot, root, parentRoot [32]byte, justifiedEpoch, finalizedEpoch primitives.Epoch) error {
	return e.store.insert(ctx, slot, root, parentRoot, justifiedEpoch, finalizedEpoch)
}

// ApplyScoreChanges is apply_score_changes from spec §4.1. deltas is
// consumed: the reverse pass mutates it to back-propagate weight, and
// callers must not read it again afterward.
func (e *Engine) ApplyScoreChanges(ctx context.Context, justifiedEpoch primitives.Epoch, deltas []int) error {
	return e.store.applyWeightChanges(ctx, justifiedEpoch, deltas)
}

// FindHead is find_head from spec §4.1.
func (e *Engine) FindHead(ctx context.Context, justifiedRoot [32]byte) ([32]byte, error) {
	return e.store.head(ctx, justifiedRoot)
}

// MaybePrune is maybe_prune from spec §4.1: validates the finalized
// checkpoint's monotonicity, then delegates the mechanical compaction to
// Store.compact.
func (e *Engine) MaybePrune(ctx context.Context, finalizedEpoch primitives.Epoch, finalizedRoot [32]byte) error {
	e.store.nodesLock.Lock()
	if finalizedEpoch == e.store.FinalizedEpoch && e.store.FinalizedRoot != finalizedRoot {
		e.store.nodesLock.Unlock()
		return errInvalidFinalizedRootChange
	}
	if finalizedEpoch < e.store.FinalizedEpoch {
		e.store.nodesLock.Unlock()
		return errRevertedFinalizedEpoch
	}
	advanced := finalizedEpoch != e.store.FinalizedEpoch
	if advanced {
		e.store.FinalizedEpoch = finalizedEpoch
		e.store.FinalizedRoot = finalizedRoot
		e.store.ffgUpdateRequired = true
	}
	finalizedIndex, ok := e.store.NodeIndices[finalizedRoot]
	e.store.nodesLock.Unlock()
	if !ok {
		return errors.Wrapf(errUnknownFinalizedRoot, "%x", finalizedRoot)
	}

	return e.store.compact(ctx, finalizedIndex)
}

// IsDescendant reports whether ancestorRoot is reached from root by repeated
// Parent links (true when the two roots are equal) -- a bounded walk up the
// tree, used by the
// checkpoint manager's "already on the canonical chain" promotion rule
// (spec §4.3) without exposing Nodes/Parent directly.
func (e *Engine) IsDescendant(root, ancestorRoot [32]byte) bool {
	e.store.nodesLock.RLock()
	defer e.store.nodesLock.RUnlock()

	idx, ok := e.store.NodeIndices[root]
	if !ok {
		return false
	}
	ancestorIdx, ok := e.store.NodeIndices[ancestorRoot]
	if !ok {
		return false
	}
	for {
		if idx == ancestorIdx {
			return true
		}
		node := e.store.Nodes[idx]
		if node.Parent == NonExistentNode {
			return false
		}
		idx = node.Parent
	}
}

// ContainsBlock is an index-map lookup (spec §6).
func (e *Engine) ContainsBlock(root [32]byte) bool {
	e.store.nodesLock.RLock()
	defer e.store.nodesLock.RUnlock()
	_, ok := e.store.NodeIndices[root]
	return ok
}

// NodeCount reports the live node count, used to size delta vectors.
func (e *Engine) NodeCount() int {
	e.store.nodesLock.RLock()
	defer e.store.nodesLock.RUnlock()
	return len(e.store.Nodes)
}

// Indices returns a snapshot of the root->index map, consumed by the vote
// tracker's ComputeDeltas. The returned map is a defensive copy so the
// caller cannot observe in-progress mutation.
func (e *Engine) Indices() map[[32]byte]uint64 {
	e.store.nodesLock.RLock()
	defer e.store.nodesLock.RUnlock()
	out := make(map[[32]byte]uint64, len(e.store.NodeIndices))
	for k, v := range e.store.NodeIndices {
		out[k] = v
	}
	return out
}

// JustifiedEpoch and FinalizedEpoch report the engine's current checkpoint
// pair, read under the engine-only lock.
func (e *Engine) JustifiedEpoch() primitives.Epoch {
	e.store.nodesLock.RLock()
	defer e.store.nodesLock.RUnlock()
	return e.store.JustifiedEpoch
}

func (e *Engine) FinalizedEpoch() primitives.Epoch {
	e.store.nodesLock.RLock()
	defer e.store.nodesLock.RUnlock()
	return e.store.FinalizedEpoch
}

func (e *Engine) FinalizedRoot() [32]byte {
	e.store.nodesLock.RLock()
	defer e.store.nodesLock.RUnlock()
	return e.store.FinalizedRoot
}
