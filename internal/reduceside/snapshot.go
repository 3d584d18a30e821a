package reduceside

import (
	"sort"

	"github.com/scusemua/priter/internal/codec"
)

// snapshotEntry pairs a key with its cState, used for top-K ranking by Numeric value.
type snapshotEntry struct {
	key    Key
	cState []byte
}

// Snapshot writes a StaticRec stream of the topK entries ranked by the codec's Numeric
// projection of cState, paired with the next monotonically increasing snapshot id. The
// caller is responsible for durably flushing sink (e.g. a blobstore.Provider write)
// before treating the snapshot as complete; the prior snapshot id is only advanced here
// once the write succeeds (spec.md §4.3: "the prior snapshot is overwritten only after
// the new one is durably flushed").
//
// Snapshot holds the engine's exclusive latch against SelectActivation for its duration
// (spec.md §4.5).
func (e *PriorityStateEngine) Snapshot(topK int, writer *codec.Writer) (snapshotId int64, sampled map[Key]float64, err error) {
	e.snapshotMu.Lock()
	defer e.snapshotMu.Unlock()

	var entries []snapshotEntry
	e.store.RangeSafe(func(key Key, v *entry) bool {
		if v.hasStatic {
			entries = append(entries, snapshotEntry{key: key, cState: v.cState})
		}
		return true
	})

	sort.Slice(entries, func(i, j int) bool {
		return e.codec.Numeric(entries[i].cState) > e.codec.Numeric(entries[j].cState)
	})

	if topK < len(entries) {
		entries = entries[:topK]
	}

	sampled = make(map[Key]float64, len(entries))
	for _, se := range entries {
		numeric := e.codec.Numeric(se.cState)
		sampled[se.key] = numeric

		if err := writer.AppendStaticRec([]byte(se.key), se.cState); err != nil {
			return 0, nil, err
		}
	}

	e.priorNumeric = e.lastNumeric
	e.lastNumeric = sampled
	e.snapshotId++

	return e.snapshotId, sampled, nil
}

// SnapshotId returns the id of the most recently completed snapshot, for callers
// (internal/job's Provider-backed flush step) that need it after Snapshot returns but
// outside the CoordinatorConfig.Snapshot callback's own arguments.
func (e *PriorityStateEngine) SnapshotId() int64 {
	e.snapshotMu.RLock()
	defer e.snapshotMu.RUnlock()
	return e.snapshotId
}
