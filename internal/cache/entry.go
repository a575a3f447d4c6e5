package cache

import (
	"time"

	"fortio.org/safecast"

	"github.com/Norgate-AV/featprobe/internal/probe"
)

// SchemaVersion identifies the Record layout. Bumping it drops every stored result.
const SchemaVersion uint16 = 1

// Record is a persisted probe verdict.
type Record struct {
	// Schema is checked on every read; a mismatch discards the record
	Schema uint16 `msgpack:"schema"`

	// ContentHash is the probe content hash the verdict was produced for
	ContentHash string `msgpack:"content_hash"`

	Status     probe.Status `msgpack:"status"`
	Reason     probe.Reason `msgpack:"reason"`
	ExitCode   int32        `msgpack:"exit_code"`
	Diagnostic string       `msgpack:"diagnostic"`

	// ElapsedMicros is the wall time of the invocation that produced the verdict
	ElapsedMicros int64 `msgpack:"elapsed_us"`

	// Timestamp when the verdict was recorded
	Timestamp time.Time `msgpack:"timestamp"`
}

func newRecord(contentHash string, res probe.Result) (Record, error) {
	code, err := safecast.Conv[int32](res.Evidence.ExitCode)
	if err != nil {
		return Record{}, err
	}

	return Record{
		Schema:        SchemaVersion,
		ContentHash:   contentHash,
		Status:        res.Status,
		Reason:        res.Reason,
		ExitCode:      code,
		Diagnostic:    res.Evidence.Diagnostic,
		ElapsedMicros: res.Evidence.Elapsed.Microseconds(),
		Timestamp:     time.Now().UTC(),
	}, nil
}

// Result rebuilds the verdict for the named probe, marked as cached.
func (r Record) Result(name string) probe.Result {
	return probe.Result{
		Probe:  name,
		Status: r.Status,
		Reason: r.Reason,
		Evidence: probe.Evidence{
			ExitCode:   int(r.ExitCode),
			Diagnostic: r.Diagnostic,
			Elapsed:    time.Duration(r.ElapsedMicros) * time.Microsecond,
		},
		Cached: true,
	}
}
