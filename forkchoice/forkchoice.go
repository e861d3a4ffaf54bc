package forkchoice

import (
	"context"
	"sync"

	"github.com/lthib/forkchoice/params"
	"github.com/lthib/forkchoice/primitives"
	"github.com/lthib/forkchoice/protoarray"
	"github.com/pkg/errors"
	"github.com/prysmaticlabs/go-bitfield"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "forkchoice")

// ForkChoice is the single façade over the Proto-Array Engine, Vote
// Tracker, and Checkpoint Manager described in spec §2 and §5: one
// readers-writer discipline guards the whole triple, and no component
// aliases another's internal references -- every cross-component contact
// here is a value argument.
type ForkChoice struct {
	mu sync.RWMutex

	engine      *protoarray.Engine
	votes       *protoarray.VoteTracker
	checkpoints *checkpointManager

	anchorRoot [32]byte
	host       HostChain
	sink       ErrorSink
}

// New creates an engine seeded with a single anchor node at index 0;
// best == current == (anchor_epoch, anchor_root) (spec §6's `new`).
func New(cfg Config, host HostChain, sink ErrorSink) (*ForkChoice, error) {
	engine, err := protoarray.New(cfg.PruneThreshold, cfg.AnchorSlot, cfg.AnchorRoot, cfg.AnchorJustifiedEpoch, cfg.AnchorFinalizedEpoch)
	if err != nil {
		return nil, errors.Wrap(err, "seeding engine")
	}
	if sink == nil {
		sink = NoopSink{}
	}

	anchorCheckpoint := Checkpoint{Epoch: cfg.AnchorJustifiedEpoch, Root: cfg.AnchorRoot}
	finalizedCheckpoint := Checkpoint{Epoch: cfg.AnchorFinalizedEpoch, Root: cfg.AnchorRoot}
	justified := CheckpointWithBalances{Checkpoint: anchorCheckpoint, Balances: cfg.AnchorBalances}

	return &ForkChoice{
		engine:      engine,
		votes:       protoarray.NewVoteTracker(),
		checkpoints: newCheckpointManager(justified, finalizedCheckpoint),
		anchorRoot:  cfg.AnchorRoot,
		host:        host,
		sink:        sink,
	}, nil
}

// removeAlias centralizes the zero-root-to-anchor remapping (spec §4.4):
// every public entry that takes a root passes through here before any
// index lookup.
func (fc *ForkChoice) removeAlias(root [32]byte) [32]byte {
	if isZeroRoot(root) {
		return fc.anchorRoot
	}
	return root
}

// ProcessBlock ingests a validated block (spec §6's `process_block`): it
// updates the checkpoint manager (process_state then maybe_update), folds
// in every attestation whose referenced block is known, then calls
// on_new_block. The whole sequence runs under one exclusive section so the
// two-step checkpoint mutation is atomic (spec §9 Open Question, resolved
// in DESIGN.md).
func (fc *ForkChoice) ProcessBlock(ctx context.Context, slot primitives.Slot, root, parentRoot [32]byte, justified CheckpointWithBalances, finalized Checkpoint, attestations []*Attestation) error {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	root = fc.removeAlias(root)
	parentRoot = fc.removeAlias(parentRoot)

	fc.checkpoints.processState(ctx, fc.engine, justified, finalized)
	if _, err := fc.checkpoints.maybeUpdate(ctx, fc.engine, fc.votes, slot); err != nil {
		return errors.Wrap(err, "promoting checkpoints")
	}

	for _, att := range attestations {
		if !fc.engine.ContainsBlock(fc.removeAlias(att.Data.BeaconBlockRoot)) {
			continue
		}
		indices, err := fc.host.AttestingIndices(ctx, att.Data, att.AggregationBits)
		if err != nil {
			return &BackendError{Cause: err}
		}
		target := fc.removeAlias(att.Data.BeaconBlockRoot)
		for _, validatorIndex := range indices {
			fc.votes.ProcessAttestation(ctx, validatorIndex, target, att.Data.TargetEpoch)
		}
	}

	if err := fc.engine.OnNewBlock(ctx, slot, root, parentRoot, justified.Epoch, finalized.Epoch); err != nil {
		return errors.Wrap(err, "on new block")
	}
	return nil
}

// ProcessAttestation resolves participating validator indices from the
// aggregation bitfield via the host-supplied resolver, then records each
// validator's latest message (spec §6's `process_attestation`).
func (fc *ForkChoice) ProcessAttestation(ctx context.Context, data *AttestationData, bits bitfield.Bitlist) error {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	indices, err := fc.host.AttestingIndices(ctx, data, bits)
	if err != nil {
		return &BackendError{Cause: err}
	}
	target := fc.removeAlias(data.BeaconBlockRoot)
	for _, validatorIndex := range indices {
		fc.votes.ProcessAttestation(ctx, validatorIndex, target, data.TargetEpoch)
	}
	return nil
}

// FindHead calls maybe_update(current_slot) then resolves the head from
// the (possibly just-promoted) current justified checkpoint (spec §6's
// `find_head`). A failure triggers a best-effort diagnostic dump and
// propagates -- this core does not fall back to a stale head (spec §9 Open
// Question, resolved in DESIGN.md).
func (fc *ForkChoice) FindHead(ctx context.Context, currentSlot primitives.Slot) ([32]byte, error) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	if _, err := fc.checkpoints.maybeUpdate(ctx, fc.engine, fc.votes, currentSlot); err != nil {
		fc.dump(ctx, err)
		return [32]byte{}, errors.Wrap(err, "promoting checkpoints")
	}

	head, err := fc.engine.FindHead(ctx, fc.removeAlias(fc.checkpoints.current.Justified.Root))
	if err != nil {
		fc.dump(ctx, err)
		return [32]byte{}, err
	}
	return head, nil
}

// OnSlot is the host's per-slot tick (spec §4.3's `NewSlot` cadence): it
// only attempts promotion at epoch boundaries. On any other slot it returns
// false without calling maybeUpdate, even where maybeUpdate would promote.
func (fc *ForkChoice) OnSlot(ctx context.Context, slot primitives.Slot) (bool, error) {
	if !slot.IsEpochStart() {
		return false, nil
	}

	fc.mu.Lock()
	defer fc.mu.Unlock()

	promoted, err := fc.checkpoints.maybeUpdate(ctx, fc.engine, fc.votes, slot)
	if err != nil {
		fc.dump(ctx, err)
		return false, errors.Wrap(err, "promoting checkpoints")
	}
	return promoted, nil
}

func (fc *ForkChoice) dump(ctx context.Context, cause error) {
	snapshot := fc.engine.ToBytes()
	fc.sink.Dump(ctx, cause, snapshot)
}

// ContainsBlock is an index-map lookup (spec §6).
func (fc *ForkChoice) ContainsBlock(root [32]byte) bool {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	return fc.engine.ContainsBlock(fc.removeAlias(root))
}

// LatestMessage is a vote-tracker lookup (spec §6).
func (fc *ForkChoice) LatestMessage(validatorIndex uint64) (root [32]byte, epoch primitives.Epoch, ok bool) {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	return fc.votes.LatestMessage(validatorIndex)
}

// Prune calls maybe_prune against the current finalized checkpoint (spec
// §6's `prune`).
func (fc *ForkChoice) Prune(ctx context.Context) error {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.engine.MaybePrune(ctx, fc.checkpoints.current.Finalized.Epoch, fc.removeAlias(fc.checkpoints.current.Finalized.Root))
}

// JustifiedCheckpoint returns the current justified checkpoint, without its
// balance vector (callers needing balances use the HostChain directly).
func (fc *ForkChoice) JustifiedCheckpoint() Checkpoint {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	return fc.checkpoints.current.Justified.Checkpoint
}

// FinalizedCheckpoint returns the current finalized checkpoint.
func (fc *ForkChoice) FinalizedCheckpoint() Checkpoint {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	return fc.checkpoints.current.Finalized
}

func isZeroRoot(root [32]byte) bool {
	return root == params.BeaconConfig().ZeroHash
}
