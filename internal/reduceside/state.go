package reduceside

import (
	"sync"

	"github.com/scusemua/priter/common/utils/hashmap"
)

// SelectionPolicy configures selectActivation's bound: exactly one of Portion or
// FixedLength is used, mirroring spec.md §4.3's "mutually exclusive per job" policies.
type SelectionPolicy struct {
	// Portion, if non-zero, selects Portion * |keys| entries, rounded down but at least
	// one (see boundedCount for which key count is used).
	Portion float64
	// FixedLength, used when Portion == 0, selects exactly this many entries (or
	// fewer, if the store holds fewer keys).
	FixedLength int
}

// boundedCount returns the selection bound for one SelectActivation call. graphNodes is
// the full keyspace size (priter.graph.nodes): per spec.md §3 invariant 3, portion
// selection draws top α·|K| from the FULL keyspace, not from availableCandidates (the
// dynamically-filtered count of keys currently holding non-empty iState), which shrinks
// and grows across iterations independently of |K|.
func (p SelectionPolicy) boundedCount(graphNodes, availableCandidates int) int {
	if p.Portion > 0 {
		total := graphNodes
		if total <= 0 {
			total = availableCandidates
		}
		n := int(p.Portion * float64(total))
		if n < 1 && total > 0 {
			n = 1
		}
		return n
	}
	return p.FixedLength
}

// PriorityStateEngine is the reduce-side per-task state store: mergeDelta integrates
// incoming deltas, selectActivation draws a bounded top-priority subset, update folds a
// selected key's iState into cState, and snapshot/checkDone support durability and
// convergence.
type PriorityStateEngine struct {
	codec  StateCodec
	policy SelectionPolicy

	// graphNodes is the full keyspace size (priter.graph.nodes), used as the "total"
	// in portion-based selection sizing. It is fixed at construction, unlike the
	// dynamically-filtered count of keys currently holding non-empty iState.
	graphNodes int

	store *hashmap.CornelkMap[Key, *entry]

	pendingMu sync.Mutex
	pending   map[Key][][]byte // deltas buffered for keys with no staticData yet

	snapshotMu   sync.RWMutex // exclusive during Snapshot, shared during SelectActivation
	snapshotId   int64
	lastNumeric  map[Key]float64
	priorNumeric map[Key]float64
}

// NewPriorityStateEngine constructs an empty engine. size is both a hint for the
// underlying concurrent map's initial bucket count and the full keyspace size
// (priter.graph.nodes) used to size portion-based activation selection.
func NewPriorityStateEngine(codec StateCodec, policy SelectionPolicy, size int) *PriorityStateEngine {
	return &PriorityStateEngine{
		codec:        codec,
		policy:       policy,
		graphNodes:   size,
		store:        hashmap.NewCornelkMap[Key, *entry](size),
		pending:      make(map[Key][][]byte),
		lastNumeric:  make(map[Key]float64),
		priorNumeric: make(map[Key]float64),
	}
}

// MergeDelta integrates delta into key's iState via the codec's Combine. If key has no
// staticData loaded yet, the delta is buffered and replayed once LoadStaticData is
// called for that key (spec.md §4.3 edge case), rather than dropped.
func (e *PriorityStateEngine) MergeDelta(key Key, delta []byte) {
	for {
		existing, loaded := e.store.Load(key)
		if !loaded {
			fresh := &entry{}
			actual, alreadyPresent := e.store.LoadOrStore(key, fresh)
			if alreadyPresent {
				existing = actual
			} else {
				existing = fresh
			}
		}

		if !existing.hasStatic {
			e.bufferPending(key, delta)
			return
		}

		updated := &entry{
			iState:     e.codec.Combine(existing.iState, delta),
			cState:     existing.cState,
			staticData: existing.staticData,
			hasStatic:  true,
		}

		if _, swapped := e.store.CompareAndSwap(key, existing, updated); swapped {
			return
		}
		// lost the race with a concurrent merge/update; retry
	}
}

func (e *PriorityStateEngine) bufferPending(key Key, delta []byte) {
	e.pendingMu.Lock()
	defer e.pendingMu.Unlock()
	e.pending[key] = append(e.pending[key], delta)
}

// LoadStaticData attaches staticData to key and replays any deltas that arrived before
// it was available.
func (e *PriorityStateEngine) LoadStaticData(key Key, staticData []byte) {
	for {
		existing, loaded := e.store.Load(key)
		if !loaded {
			existing = &entry{}
		}

		updated := &entry{
			iState:     existing.iState,
			cState:     existing.cState,
			staticData: staticData,
			hasStatic:  true,
		}
		e.store.Store(key, updated)
		break
	}

	e.pendingMu.Lock()
	buffered := e.pending[key]
	delete(e.pending, key)
	e.pendingMu.Unlock()

	for _, delta := range buffered {
		e.MergeDelta(key, delta)
	}
}

// SelectActivation returns a bounded set of the highest-priority (key, iState) pairs
// per e.policy, then atomically resets each returned key's iState to nil (spec.md
// §4.3: "the selector atomically resets iState(k) <- ε for each returned k"). Held
// under a read lock against concurrent Snapshot (spec.md §4.5's exclusive latch).
func (e *PriorityStateEngine) SelectActivation() []Activation {
	e.snapshotMu.RLock()
	defer e.snapshotMu.RUnlock()

	var candidates []*priorityElement
	e.store.RangeSafe(func(key Key, v *entry) bool {
		if len(v.iState) == 0 {
			return true
		}
		candidates = append(candidates, &priorityElement{
			key:      key,
			iState:   v.iState,
			priority: e.codec.Priority(v.iState),
		})
		return true
	})

	n := e.policy.boundedCount(e.graphNodes, len(candidates))
	top := selectTopN(candidates, n)

	out := make([]Activation, 0, len(top))
	for _, c := range top {
		out = append(out, Activation{Key: c.key, IState: c.iState, Priority: c.priority})
		e.resetIState(c.key)
	}
	return out
}

func (e *PriorityStateEngine) resetIState(key Key) {
	for {
		existing, loaded := e.store.Load(key)
		if !loaded {
			return
		}
		updated := &entry{
			iState:     nil,
			cState:     existing.cState,
			staticData: existing.staticData,
			hasStatic:  existing.hasStatic,
		}
		if _, swapped := e.store.CompareAndSwap(key, existing, updated); swapped {
			return
		}
	}
}

// Update runs the user's update callback for a selected key, folding iState into the
// stored cState, and returns the delta to emit downstream.
func (e *PriorityStateEngine) Update(key Key, iState []byte) (delta []byte) {
	for {
		existing, loaded := e.store.Load(key)
		if !loaded {
			existing = &entry{}
		}

		newCState, emittedDelta := e.codec.Update(key, iState, existing.cState)

		updated := &entry{
			iState:     existing.iState,
			cState:     newCState,
			staticData: existing.staticData,
			hasStatic:  existing.hasStatic,
		}

		if loaded {
			if _, swapped := e.store.CompareAndSwap(key, existing, updated); !swapped {
				continue
			}
		} else {
			e.store.Store(key, updated)
		}

		return emittedDelta
	}
}
