// Package mapside implements the ActivationEngine: the map-side half of a priority
// iterative job. Each map task loads a static partition of keys into memory once, then
// repeatedly drains an InputPKVBuffer of (key, iState) activation records pushed by the
// reducer, invoking the job's activate callback for each and fanning its emitted deltas
// out to downstream reduce partitions.
package mapside

import (
	"sync"

	"github.com/scusemua/priter/common/queue"
	"github.com/scusemua/priter/common/utils"
	"github.com/scusemua/priter/internal/bufferexchange"
)

// Key identifies a map-side entry; kept as a type alias so reduceside.Key and
// mapside.Key are interchangeable across the wire.
type Key = string

// PKVPair is one activation record: a key and the iState the reducer selected it with.
type PKVPair struct {
	Key    Key
	IState []byte
}

// InputPKVBuffer is the map task's single input channel: a FIFO of PKVPairs paired with
// a monotonic iteration counter (spec.md §4.4). The queue itself is a generic
// queue.Fifo guarded by a mutex; a buffered wake channel lets a blocking consumer (not
// used by Next, which is non-blocking, but available to callers that want to wait for
// the next batch) learn when new records have landed.
type InputPKVBuffer struct {
	mu        sync.Mutex
	fifo      *queue.Fifo[PKVPair]
	iteration int64

	// wake is the "a batch landed" signal, not the record queue itself: the fifo stays
	// a mutex-guarded queue.Fifo so Next()'s emptiness check remains synchronous with
	// Read/Free (see internal/mapside's design notes on why the fifo itself isn't a
	// ChanPeekable). ChanPeekable is still the right fit here, since this channel only
	// ever needs to coalesce repeated "something is ready" pokes into one pending wake.
	wake *utils.ChanPeekable[struct{}]
}

// NewInputPKVBuffer constructs an InputPKVBuffer with the given initial queue capacity.
func NewInputPKVBuffer(initialCapacity int) *InputPKVBuffer {
	return &InputPKVBuffer{
		fifo: queue.NewFifo[PKVPair](initialCapacity),
		wake: utils.NewChanPeekable[struct{}](2),
	}
}

// Init seeds the buffer once during setup, before any PKVBUF batches have arrived.
func (b *InputPKVBuffer) Init(key Key, iState []byte) {
	b.mu.Lock()
	b.fifo.Enqueue(PKVPair{Key: key, IState: iState})
	b.mu.Unlock()
	b.notifyWaiter()
}

// Read is called by the PKVBUF handler's OnBatch callback. It accepts the batch iff
// header.Iteration is not behind the buffer's current iteration, advances the buffer's
// iteration to header.Iteration, enqueues every record, and wakes any blocked waiter.
// The accept check is inclusive (>=, not >) because a reduce job with more than one
// partition fans activation batches for the same iteration into this buffer from
// multiple independent PKVBUF sources; each such batch carries the same
// header.Iteration and must be accepted, not rejected as stale.
func (b *InputPKVBuffer) Read(header *bufferexchange.PKVBufferHeader, records []PKVPair) bool {
	b.mu.Lock()
	if header.Iteration < b.iteration {
		b.mu.Unlock()
		return false
	}
	b.iteration = header.Iteration
	for _, r := range records {
		b.fifo.Enqueue(r)
	}
	b.mu.Unlock()

	b.notifyWaiter()
	return true
}

func (b *InputPKVBuffer) notifyWaiter() {
	select {
	case b.wake.In() <- struct{}{}:
	default:
	}
}

// Wake returns a channel that receives a value whenever new records may be available,
// for callers that want to block between Next polls rather than spin.
func (b *InputPKVBuffer) Wake() <-chan struct{} {
	return b.wake.Out()
}

// Next pops one record. ok is false when the buffer is currently empty, signaling the
// map engine's current pass over the buffer is complete.
func (b *InputPKVBuffer) Next() (pair PKVPair, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fifo.Dequeue()
}

// Free drains the buffer without closing it, so a later Init/Read can reuse it.
func (b *InputPKVBuffer) Free() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for {
		if _, ok := b.fifo.Dequeue(); !ok {
			return
		}
	}
}

// Iteration returns the last iteration number this buffer accepted a batch for.
func (b *InputPKVBuffer) Iteration() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.iteration
}
