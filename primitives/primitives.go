// Package primitives holds the small typed wrappers shared across the
// fork-choice packages, grounded in the teacher's own
// github.com/prysmaticlabs/eth2-types convention of never passing a bare
// uint64 where a Slot or Epoch is meant.
package primitives

// Slot is a consensus time unit, the finer-grained sibling of Epoch.
type Slot uint64

// Epoch is a consensus time unit containing a fixed number of slots.
type Epoch uint64

// SlotsPerEpoch is the only piece of "configuration" the core needs: the
// cadence at which a justified checkpoint becomes usable for promotion.
const SlotsPerEpoch Slot = 32

// ToEpoch converts a slot to the epoch that contains it.
func (s Slot) ToEpoch() Epoch {
	return Epoch(uint64(s) / uint64(SlotsPerEpoch))
}

// IsEpochStart returns true if the given slot is the first slot of an epoch.
func (s Slot) IsEpochStart() bool {
	return uint64(s)%uint64(SlotsPerEpoch) == 0
}
