package forkchoice

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"os"
)

// ErrorSink is the optional diagnostic collaborator from spec §6: on a
// find_head failure the core may write a JSON description of the engine
// state and the error for post-mortem. A debug aid, not functional --
// implementations must never raise from Dump (spec §7 propagation policy).
type ErrorSink interface {
	Dump(ctx context.Context, err error, snapshot []byte)
}

// NoopSink discards every dump, used when the host does not configure one.
type NoopSink struct{}

func (NoopSink) Dump(ctx context.Context, err error, snapshot []byte) {}

// JSONFileSink writes each dump to a fresh temp file under Dir, grounded in
// the Rust original's debug dump (File::create(format!("/tmp/fork-choice-{}",
// time)) + self.backend.as_json()). Sink failures are logged, never raised.
type JSONFileSink struct {
	Dir string
}

type dumpRecord struct {
	Error    string `json:"error"`
	Snapshot string `json:"snapshot_hex"`
}

func (s JSONFileSink) Dump(ctx context.Context, err error, snapshot []byte) {
	f, createErr := os.CreateTemp(s.Dir, "fork-choice-*.json")
	if createErr != nil {
		log.WithError(createErr).Warn("error sink: could not create dump file")
		return
	}
	defer f.Close()

	record := dumpRecord{Error: err.Error(), Snapshot: hex.EncodeToString(snapshot)}
	if encodeErr := json.NewEncoder(f).Encode(record); encodeErr != nil {
		log.WithError(encodeErr).Warn("error sink: could not encode dump")
	}
}
