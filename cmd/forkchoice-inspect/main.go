// Command forkchoice-inspect loads a serialized fork-choice core from disk
// and prints its justified and finalized checkpoints and its head, grounded in the
// original Rust implementation's bin.rs (a standalone binary driving the
// core outside of a running node, there for fixture generation rather than
// inspection).
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/lthib/forkchoice/forkchoice"
	"github.com/lthib/forkchoice/primitives"
	"github.com/prysmaticlabs/go-bitfield"
	"github.com/urfave/cli/v2"
)

// nullHost satisfies forkchoice.HostChain for read-only inspection: the
// inspect command never issues attestations or balance lookups, only
// FindHead, which does not consult the host.
type nullHost struct{}

func (nullHost) CurrentSlot() primitives.Slot { return 0 }

func (nullHost) AttestingIndices(ctx context.Context, data *forkchoice.AttestationData, bits bitfield.Bitlist) ([]uint64, error) {
	return nil, fmt.Errorf("forkchoice-inspect: read-only, attesting indices unavailable")
}

func (nullHost) BalancesAtRoot(ctx context.Context, root [32]byte) ([]uint64, error) {
	return nil, fmt.Errorf("forkchoice-inspect: read-only, balances unavailable")
}

func main() {
	app := &cli.App{
		Name:  "forkchoice-inspect",
		Usage: "print the state of a serialized fork-choice core",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Usage:    "path to a file written by ForkChoice.ToBytes",
				Required: true,
			},
			&cli.Uint64Flag{
				Name:  "slot",
				Usage: "current slot to evaluate the head at",
				Value: 0,
			},
		},
		Action: inspect,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func inspect(c *cli.Context) error {
	data, err := os.ReadFile(c.String("file"))
	if err != nil {
		return fmt.Errorf("reading %s: %w", c.String("file"), err)
	}

	fc, err := forkchoice.FromBytes(data, nullHost{}, nil)
	if err != nil {
		return fmt.Errorf("decoding fork-choice core: %w", err)
	}

	ctx := context.Background()
	justified := fc.JustifiedCheckpoint()
	finalized := fc.FinalizedCheckpoint()
	fmt.Printf("justified: epoch=%d root=%x\n", justified.Epoch, justified.Root)
	fmt.Printf("finalized: epoch=%d root=%x\n", finalized.Epoch, finalized.Root)

	slot := primitives.Slot(c.Uint64("slot"))
	head, err := fc.FindHead(ctx, slot)
	if err != nil {
		return fmt.Errorf("finding head at slot %d: %w", slot, err)
	}
	fmt.Printf("head at slot %d: %x\n", slot, head)
	return nil
}
