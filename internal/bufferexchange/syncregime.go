package bufferexchange

import (
	"sync"
	"time"
)

// SyncMode selects which of the three STREAM synchronization regimes a streamSyncRegime
// runs.
type SyncMode int

const (
	// SyncStrict fires only once every expected input has been received this iteration.
	SyncStrict SyncMode = iota
	// SyncAsyncByTime fires on an idle-threshold ticker, or immediately once every
	// input has been received.
	SyncAsyncByTime
	// SyncAsyncBySelf fires once the input sharing this reducer's own partition id
	// arrives, or once on the initial round's full set.
	SyncAsyncBySelf
)

// streamSyncRegime tracks per-iteration STREAM arrivals for one reduce task and decides
// when enough inputs have accumulated to fire the reducer. It is shared across every
// STREAM Handler belonging to the same reduce task, one per source partition.
type streamSyncRegime struct {
	mode SyncMode

	mu          sync.Mutex
	numInputs   int
	selfId      int
	successful  map[int]struct{}
	lastReceive time.Time
	initialized bool

	threshold time.Duration
	fire      chan struct{}

	stopOnce sync.Once
	stopCh   chan struct{}
}

// newStreamSyncRegime constructs a streamSyncRegime for a reduce task expecting
// numInputs STREAM sources. selfId is this reduce task's own partition id, consulted
// only in SyncAsyncBySelf mode. fire is closed-and-replaced is never done; instead each
// firing sends a value, so callers should range over it or receive once per iteration.
func newStreamSyncRegime(mode SyncMode, numInputs int, selfId int, threshold time.Duration) *streamSyncRegime {
	r := &streamSyncRegime{
		mode:       mode,
		numInputs:  numInputs,
		selfId:     selfId,
		successful: make(map[int]struct{}, numInputs),
		threshold:  threshold,
		fire:       make(chan struct{}, 1),
		stopCh:     make(chan struct{}),
	}

	if mode == SyncAsyncByTime {
		go r.tick()
	}

	return r
}

// Arrived records that partitionId's STREAM input has been accepted for the current
// iteration, and signals fire if this regime's firing condition is now satisfied.
func (r *streamSyncRegime) Arrived(partitionId int) {
	r.mu.Lock()
	r.successful[partitionId] = struct{}{}
	r.lastReceive = time.Now()
	complete := len(r.successful) >= r.numInputs
	initialRound := !r.initialized
	isSelf := partitionId == r.selfId
	r.mu.Unlock()

	switch r.mode {
	case SyncStrict:
		if complete {
			r.signal()
		}
	case SyncAsyncByTime:
		if complete {
			r.signal()
		}
	case SyncAsyncBySelf:
		if isSelf || (initialRound && complete) {
			r.signal()
		}
	}

	if complete {
		r.mu.Lock()
		r.initialized = true
		r.mu.Unlock()
	}
}

// ResetIteration clears the accumulated successful set at an iteration boundary. Strict
// mode relies on this being called once per iteration by the coordinator.
func (r *streamSyncRegime) ResetIteration() {
	r.mu.Lock()
	r.successful = make(map[int]struct{}, r.numInputs)
	r.mu.Unlock()
}

// Fire returns the channel the coordinator should receive from to learn when this
// regime's firing condition has been met.
func (r *streamSyncRegime) Fire() <-chan struct{} {
	return r.fire
}

// Stop terminates the async-by-time ticker goroutine, if running.
func (r *streamSyncRegime) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
}

// StreamSyncRegime is the exported handle a job-wiring layer uses to construct a
// reduce task's STREAM synchronization regime and pass it to every STREAM Handler
// belonging to that task (one Handler per source map partition, all sharing one
// StreamSyncRegime), and to observe its Fire channel and drive ResetIteration at
// iteration boundaries. streamSyncRegime itself stays unexported so its internal
// locking and per-mode firing logic cannot be poked at directly from outside the
// package.
type StreamSyncRegime struct {
	inner *streamSyncRegime
}

// NewStreamSyncRegime constructs a StreamSyncRegime for a reduce task expecting
// numInputs STREAM sources (one per map partition). selfId is this reduce task's own
// partition id, consulted only in SyncAsyncBySelf mode.
func NewStreamSyncRegime(mode SyncMode, numInputs int, selfId int, threshold time.Duration) *StreamSyncRegime {
	return &StreamSyncRegime{inner: newStreamSyncRegime(mode, numInputs, selfId, threshold)}
}

// Fire returns the channel that receives a value each time this regime's firing
// condition is met.
func (r *StreamSyncRegime) Fire() <-chan struct{} {
	return r.inner.Fire()
}

// ResetIteration clears the accumulated arrival set; the coordinator must call this
// once per iteration boundary so strict mode's next iteration starts from empty.
func (r *StreamSyncRegime) ResetIteration() {
	r.inner.ResetIteration()
}

// Stop terminates the async-by-time ticker goroutine, if running.
func (r *StreamSyncRegime) Stop() {
	r.inner.Stop()
}

func (r *streamSyncRegime) signal() {
	select {
	case r.fire <- struct{}{}:
	default:
	}
}

func (r *streamSyncRegime) tick() {
	ticker := time.NewTicker(r.threshold / 4)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.mu.Lock()
			idle := time.Since(r.lastReceive) > r.threshold
			buffered := len(r.successful) > 0
			r.mu.Unlock()

			if idle && buffered {
				r.signal()
			}
		}
	}
}
