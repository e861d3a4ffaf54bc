package forkchoice

import "github.com/lthib/forkchoice/primitives"

// Config seeds a new ForkChoice, matching the teacher's convention of a
// small typed config struct passed at construction rather than global
// state (config/params' BeaconConfig() pattern, scaled down: this core has
// no CLI or file-based configuration per spec §1 Non-goals).
type Config struct {
	PruneThreshold       uint64
	AnchorSlot           primitives.Slot
	AnchorRoot           [32]byte
	AnchorJustifiedEpoch primitives.Epoch
	AnchorFinalizedEpoch primitives.Epoch
	AnchorBalances       []uint64
}
