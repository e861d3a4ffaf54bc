package forkchoice

import "github.com/lthib/forkchoice/primitives"

// Checkpoint is an (epoch, root) pair naming a distinguished block, grounded
// in the teacher's later forkchoicetypes.Checkpoint{Epoch, Root}.
type Checkpoint struct {
	Epoch primitives.Epoch
	Root  [32]byte
}

// CheckpointWithBalances is the justified-side record from spec §3's
// Checkpoint Manager state: an (epoch, root) pair plus the validator
// effective-balance vector observed at that block. The teacher's later API
// fetches balances from a separate state cache instead of carrying them on
// the checkpoint record; our spec requires balances travel with the
// checkpoint itself, so this type is the exact structure named there.
type CheckpointWithBalances struct {
	Checkpoint
	Balances []uint64
}

// checkpointPair is the Checkpoint Manager's one record shape, used for both
// the current and best-observed pairs.
type checkpointPair struct {
	Justified CheckpointWithBalances
	Finalized Checkpoint
}
