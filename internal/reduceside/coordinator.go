package reduceside

import (
	"time"

	"github.com/Scusemua/go-utils/config"
	"github.com/Scusemua/go-utils/logger"

	"github.com/scusemua/priter/internal/codec"
)

// SinkEventKind discriminates the events the coordinator reacts to. A channel of
// SinkEvents replaces a back-pointer into the Sink (Design Notes §9: "replace the
// Sink<->Task back-pointer with an explicit event channel").
type SinkEventKind int

const (
	// BatchReceived signals that a STREAM or PKVBUF handler accepted a batch.
	BatchReceived SinkEventKind = iota
	// SpillIter signals that the STREAM synchronization regime's firing condition
	// has been met for the current iteration (spec.md's spillIter flag).
	SpillIter
	// Rollback signals a requested rollback to a prior checkpoint.
	Rollback
)

// SinkEvent is sent by a Handler (via its OnBatch callback) or a streamSyncRegime onto
// the coordinator's event channel.
type SinkEvent struct {
	Kind       SinkEventKind
	Checkpoint int64
}

// EmitPKVBUF sends one activation's update delta to every downstream map task. Supplied
// by the job wiring layer (internal/job), which owns the per-map-task Source set.
type EmitPKVBUF func(iteration int64, key Key, delta []byte) error

// EmitStreamMarker sends the StreamHeader{sequence: iteration} marker so downstream map
// sinks can advance their cursors (spec.md §4.5 step 4).
type EmitStreamMarker func(iteration int64) error

// SnapshotCommit notifies the driver that a snapshot completed (the umbilical's
// snapshotCommit RPC).
type SnapshotCommit func(snapshotId int64, iteration int64)

// AfterIterCommit notifies the driver that the task has converged and is exiting (the
// umbilical's afterIterCommit RPC).
type AfterIterCommit func(iteration int64, checkpoint int64, snapshotCheckpoint int64)

// CoordinatorConfig bundles the callbacks and timing parameters the iteration
// coordinator needs beyond the PriorityStateEngine itself.
type CoordinatorConfig struct {
	TaskId   string
	JobId    string
	TopK     int
	Snapshot func(writer *codec.Writer) error // durably flushes a snapshot frame

	EmitPKVBUF       EmitPKVBUF
	EmitStreamMarker EmitStreamMarker
	SnapshotCommit   SnapshotCommit
	AfterIterCommit  AfterIterCommit

	SnapshotInterval time.Duration
	StopDifference   float64
	StopMaxTime      time.Duration
}

// Coordinator drives one reducer task's iteration loop per spec.md §4.5, draining a
// SinkEvent channel rather than polling shared state directly.
type Coordinator struct {
	engine *PriorityStateEngine
	cfg    CoordinatorConfig
	events chan SinkEvent

	jobStart     time.Time
	lastSnapshot time.Time
	iteration    int64

	log logger.Logger
}

// NewCoordinator constructs a Coordinator. eventBuffer sizes the SinkEvent channel;
// callers typically size it to maxConnections so handler goroutines never block
// delivering events.
func NewCoordinator(engine *PriorityStateEngine, cfg CoordinatorConfig, eventBuffer int) *Coordinator {
	c := &Coordinator{
		engine: engine,
		cfg:    cfg,
		events: make(chan SinkEvent, eventBuffer),
	}
	config.InitLogger(&c.log, c)
	return c
}

func (c *Coordinator) String() string {
	return "Coordinator[" + c.cfg.TaskId + "]"
}

// Events returns the channel Handlers and the streamSyncRegime should send SinkEvents
// on.
func (c *Coordinator) Events() chan<- SinkEvent {
	return c.events
}

// Run drives the coordinator's main loop until convergence, stopMaxTime elapses, or ctx
// is canceled via the done channel. It returns the final iteration number reached.
func (c *Coordinator) Run(done <-chan struct{}) (int64, error) {
	c.jobStart = time.Now()
	c.lastSnapshot = time.Now()

	for {
		select {
		case <-done:
			return c.iteration, nil
		case ev := <-c.events:
			switch ev.Kind {
			case SpillIter:
				if err := c.runIteration(); err != nil {
					return c.iteration, err
				}
				if c.engine.CheckDone(c.cfg.StopDifference, c.cfg.StopMaxTime, c.jobStart) {
					checkpoint := c.iteration
					c.cfg.AfterIterCommit(c.iteration, checkpoint, c.engine.snapshotId)
					return c.iteration, nil
				}
			case BatchReceived:
				// no coordinator action: MergeDelta already ran inline in the
				// handler's OnBatch callback.
			case Rollback:
				c.rollback(ev.Checkpoint)
			}
		}
	}
}

// runIteration executes spec.md §4.5 steps 2-5 for one iteration: select activations,
// run update + emit PKVBUF for each, emit the StreamHeader cursor-advance marker, and
// snapshot if the interval has elapsed.
func (c *Coordinator) runIteration() error {
	c.iteration++

	activations := c.engine.SelectActivation()
	for _, a := range activations {
		delta := c.engine.Update(a.Key, a.IState)
		if delta == nil {
			continue
		}
		if err := c.cfg.EmitPKVBUF(c.iteration, a.Key, delta); err != nil {
			return err
		}
	}

	if err := c.cfg.EmitStreamMarker(c.iteration); err != nil {
		return err
	}

	if time.Since(c.lastSnapshot) >= c.cfg.SnapshotInterval {
		writer := codec.NewWriter(codec.StaticRec, true)
		snapshotId, _, err := c.engine.Snapshot(c.cfg.TopK, writer)
		if err != nil {
			return err
		}
		if err := c.cfg.Snapshot(writer); err != nil {
			return err
		}
		c.lastSnapshot = time.Now()
		c.cfg.SnapshotCommit(snapshotId, c.iteration)
	}

	return nil
}

// rollback reloads iState/cState from the snapshot at or before checkpoint; resetting
// downstream source cursors is the job wiring layer's responsibility once this returns
// (spec.md §4.3: "cursors on all downstream sources are reset to c").
func (c *Coordinator) rollback(checkpoint int64) {
	c.log.Warn("%s rolling back to checkpoint %d; snapshot reload is driven by the job wiring layer", c, checkpoint)
}

// streamSyncRegimeToEvents bridges a bufferexchange streamSyncRegime's Fire channel
// onto the coordinator's SinkEvent channel, so the coordinator never imports
// bufferexchange's internal firing mechanics directly.
func streamSyncRegimeToEvents(fire <-chan struct{}, events chan<- SinkEvent, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-fire:
			events <- SinkEvent{Kind: SpillIter}
		}
	}
}
