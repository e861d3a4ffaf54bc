// Package params holds the handful of constants the fork-choice core treats
// as trusted configuration, mirroring the teacher's config/params package
// (BeaconConfig().ZeroHash, SlotsPerEpoch) without pulling in a config
// loader: this core has no CLI or file-based configuration (spec Non-goal).
package params

import "github.com/lthib/forkchoice/primitives"

// BeaconConfigStruct is the subset of chain configuration the fork-choice
// core consults. Real deployments would source this from the host chain's
// own config package; we keep a single package-level instance the way the
// teacher's config/params does for its BeaconConfig().
type BeaconConfigStruct struct {
	ZeroHash      [32]byte
	SlotsPerEpoch primitives.Slot
}

var beaconConfig = &BeaconConfigStruct{
	ZeroHash:      [32]byte{},
	SlotsPerEpoch: primitives.SlotsPerEpoch,
}

// BeaconConfig returns the active chain configuration.
func BeaconConfig() *BeaconConfigStruct {
	return beaconConfig
}
