package forkchoice

import (
	"context"

	"github.com/lthib/forkchoice/primitives"
	"github.com/prysmaticlabs/go-bitfield"
)

// fakeHost is a minimal HostChain stand-in for tests: AttestingIndices
// returns one fixed validator set regardless of the bitfield passed in,
// and balances are served from a map keyed by root.
type fakeHost struct {
	slot       primitives.Slot
	indices    []uint64
	balances   map[[32]byte][]uint64
	indexErr   error
	balanceErr error
}

func (h *fakeHost) CurrentSlot() primitives.Slot {
	return h.slot
}

func (h *fakeHost) AttestingIndices(ctx context.Context, data *AttestationData, bits bitfield.Bitlist) ([]uint64, error) {
	if h.indexErr != nil {
		return nil, h.indexErr
	}
	return h.indices, nil
}

func (h *fakeHost) BalancesAtRoot(ctx context.Context, root [32]byte) ([]uint64, error) {
	if h.balanceErr != nil {
		return nil, h.balanceErr
	}
	return h.balances[root], nil
}
