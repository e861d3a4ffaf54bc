package forkchoice

import (
	"encoding/binary"

	"github.com/lthib/forkchoice/primitives"
	"github.com/lthib/forkchoice/protoarray"
	"github.com/pkg/errors"
)

// ToBytes serializes the full core (spec §6's `to_bytes`): anchor root,
// checkpoint manager snapshot, and engine bytes. Fixed-width little-endian
// throughout, same discipline as protoarray's own wire form.
func (fc *ForkChoice) ToBytes() []byte {
	fc.mu.RLock()
	defer fc.mu.RUnlock()

	buf := make([]byte, 0, 32+256+len(fc.engine.ToBytes()))
	buf = append(buf, fc.anchorRoot[:]...)
	buf = appendCheckpointPair(buf, fc.checkpoints.current)
	buf = appendCheckpointPair(buf, fc.checkpoints.best)

	engineBytes := fc.engine.ToBytes()
	buf = appendUint64(buf, uint64(len(engineBytes)))
	buf = append(buf, engineBytes...)
	return buf
}

// FromBytes deserializes a core previously written by ToBytes (spec §6's
// `from_bytes`). The vote tracker starts empty: votes are not part of the
// persisted wire form (spec §3 lists vote-tracker entries as living "for
// the life of the process", outside the serializable triple named in §4.1
// and §6).
func FromBytes(data []byte, host HostChain, sink ErrorSink) (*ForkChoice, error) {
	if len(data) < 32 {
		return nil, errors.New("forkchoice: truncated anchor root")
	}
	var anchorRoot [32]byte
	copy(anchorRoot[:], data[0:32])
	offset := 32

	current, n, err := readCheckpointPair(data[offset:])
	if err != nil {
		return nil, errors.Wrap(err, "reading current checkpoint pair")
	}
	offset += n

	best, n, err := readCheckpointPair(data[offset:])
	if err != nil {
		return nil, errors.Wrap(err, "reading best checkpoint pair")
	}
	offset += n

	if len(data) < offset+8 {
		return nil, errors.New("forkchoice: truncated engine length")
	}
	engineLen := int(readUint64(data[offset : offset+8]))
	offset += 8
	if len(data) != offset+engineLen {
		return nil, errors.Errorf("forkchoice: expected %d engine bytes, got %d", engineLen, len(data)-offset)
	}

	engine, err := protoarray.FromBytes(data[offset : offset+engineLen])
	if err != nil {
		return nil, errors.Wrap(err, "decoding engine")
	}

	if sink == nil {
		sink = NoopSink{}
	}

	return &ForkChoice{
		engine:      engine,
		votes:       protoarray.NewVoteTracker(),
		checkpoints: &checkpointManager{current: current, best: best},
		anchorRoot:  anchorRoot,
		host:        host,
		sink:        sink,
	}, nil
}

func appendCheckpointPair(buf []byte, pair checkpointPair) []byte {
	buf = appendUint64(buf, uint64(pair.Justified.Epoch))
	buf = append(buf, pair.Justified.Root[:]...)
	buf = appendUint64(buf, uint64(len(pair.Justified.Balances)))
	for _, b := range pair.Justified.Balances {
		buf = appendUint64(buf, b)
	}
	buf = appendUint64(buf, uint64(pair.Finalized.Epoch))
	buf = append(buf, pair.Finalized.Root[:]...)
	return buf
}

func readCheckpointPair(data []byte) (checkpointPair, int, error) {
	const fixedHeader = 8 + 32 + 8
	if len(data) < fixedHeader {
		return checkpointPair{}, 0, errors.New("truncated justified checkpoint header")
	}
	justifiedEpoch := primitives.Epoch(readUint64(data[0:8]))
	var justifiedRoot [32]byte
	copy(justifiedRoot[:], data[8:40])
	balanceCount := int(readUint64(data[40:48]))

	offset := fixedHeader
	if len(data) < offset+balanceCount*8 {
		return checkpointPair{}, 0, errors.New("truncated balances")
	}
	balances := make([]uint64, balanceCount)
	for i := 0; i < balanceCount; i++ {
		balances[i] = readUint64(data[offset : offset+8])
		offset += 8
	}

	if len(data) < offset+8+32 {
		return checkpointPair{}, 0, errors.New("truncated finalized checkpoint")
	}
	finalizedEpoch := primitives.Epoch(readUint64(data[offset : offset+8]))
	offset += 8
	var finalizedRoot [32]byte
	copy(finalizedRoot[:], data[offset:offset+32])
	offset += 32

	pair := checkpointPair{
		Justified: CheckpointWithBalances{
			Checkpoint: Checkpoint{Epoch: justifiedEpoch, Root: justifiedRoot},
			Balances:   balances,
		},
		Finalized: Checkpoint{Epoch: finalizedEpoch, Root: finalizedRoot},
	}
	return pair, offset, nil
}

func appendUint64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

func readUint64(b []byte) uint64 {
	return binary.LittleEndian.Uint64(b)
}
