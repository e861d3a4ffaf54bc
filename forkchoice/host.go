package forkchoice

import (
	"context"

	"github.com/lthib/forkchoice/primitives"
	"github.com/prysmaticlabs/go-bitfield"
)

// AttestationData is the minimal subset of a beacon attestation's data the
// core needs: which block it targets and for which epoch, grounded in the
// teacher's ethpb.AttestationData (Slot, BeaconBlockRoot, Target.Epoch).
type AttestationData struct {
	Slot            primitives.Slot
	BeaconBlockRoot [32]byte
	TargetEpoch     primitives.Epoch
}

// Attestation pairs an attestation's data with its aggregation bitfield,
// the unit ProcessBlock folds in from a block body, grounded in the
// teacher's ethpb.Attestation{Data, AggregationBits}.
type Attestation struct {
	Data            *AttestationData
	AggregationBits bitfield.Bitlist
}

// HostChain is the external collaborator supplying everything the core
// treats as trusted input: the current slot, attesting-validator
// resolution, and balance snapshots (spec §6, "Collaborator-provided
// interfaces").
type HostChain interface {
	CurrentSlot() primitives.Slot
	AttestingIndices(ctx context.Context, data *AttestationData, bits bitfield.Bitlist) ([]uint64, error)
	BalancesAtRoot(ctx context.Context, root [32]byte) ([]uint64, error)
}
