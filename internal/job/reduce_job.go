package job

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/Scusemua/go-utils/config"
	"github.com/Scusemua/go-utils/logger"

	"github.com/scusemua/priter/common/consul"
	"github.com/scusemua/priter/internal/blobstore"
	"github.com/scusemua/priter/internal/bufferexchange"
	"github.com/scusemua/priter/internal/codec"
	"github.com/scusemua/priter/internal/reduceside"
	"github.com/scusemua/priter/internal/umbilical"
)

// MapDestination is one map task's pair of buffer endpoints, as discovered out of band
// (registry lookup or static configuration). PKVAddr and StreamAddr are distinct
// listeners: each BufferType gets its own Sink and therefore its own ephemeral port.
type MapDestination struct {
	TaskId      string
	PKVAddr     string
	StreamAddr  string
	PartitionId int
}

// ReduceTask is one reducer's IterativeJob: it owns a PriorityStateEngine, a
// Coordinator driving it through iterations, a PKVBUF Sink receiving deltas pushed
// back from map tasks, one dedicated STREAM Sink per map source (the sync regime's
// per-partition arrival tracking needs to know which map partition a given
// connection belongs to, and bufferexchange only binds a Handler's sourcePartition
// once, at Sink construction — so each source gets its own Sink rather than sharing
// one), and per-map-destination PKVBUF+STREAM Sources for pushing activation batches
// and iteration markers downstream.
type ReduceTask struct {
	TaskId      string
	PartitionId int
	InputDir    string
	Codec       reduceside.StateCodec
	Provider    blobstore.Provider
	MapDests    []MapDestination

	cfg *Config

	engine      *reduceside.PriorityStateEngine
	coordinator *reduceside.Coordinator
	syncRegime  *bufferexchange.StreamSyncRegime
	registry    *consul.Client
	pkvSink     *bufferexchange.Sink
	streamSinks map[int]*bufferexchange.Sink

	pkvSources    map[int]*bufferexchange.Source
	streamSources map[int]*bufferexchange.Source

	umbilicalClient *umbilical.Client
	log             logger.Logger
}

// NewReduceTask constructs a ReduceTask for taskId using stateCodec to interpret
// per-key state.
func NewReduceTask(taskId string, stateCodec reduceside.StateCodec) *ReduceTask {
	t := &ReduceTask{TaskId: taskId, Codec: stateCodec}
	config.InitLogger(&t.log, t)
	return t
}

func (t *ReduceTask) String() string {
	return fmt.Sprintf("ReduceTask[%s]", t.TaskId)
}

// Init builds the PriorityStateEngine, Coordinator, both Sinks, and the per-destination
// Sources from cfg.
func (t *ReduceTask) Init(cfg *Config) error {
	t.cfg = cfg

	if t.Provider == nil {
		provider, err := newProvider(cfg)
		if err != nil {
			return err
		}
		t.Provider = provider
	}

	policy := reduceside.SelectionPolicy{Portion: cfg.QueuePortion, FixedLength: cfg.QueueUniqLength}
	size := cfg.GraphNodes
	if size <= 0 {
		size = 1024
	}
	t.engine = reduceside.NewPriorityStateEngine(t.Codec, policy, size)

	if err := t.loadStaticData(cfg); err != nil {
		return err
	}

	registry, err := newRegistry(cfg)
	if err != nil {
		return err
	}
	t.registry = registry

	asyncThreshold := time.Duration(cfg.AsyncTimeThresholdMs) * time.Millisecond
	mode := bufferexchange.SyncStrict
	switch {
	case cfg.AsyncTimeEnabled:
		mode = bufferexchange.SyncAsyncByTime
	case cfg.AsyncSelfEnabled:
		mode = bufferexchange.SyncAsyncBySelf
	}
	t.syncRegime = bufferexchange.NewStreamSyncRegime(mode, len(t.MapDests), t.PartitionId, asyncThreshold)

	t.pkvSink, err = bufferexchange.NewSink(bufferexchange.PKVBUF, t.TaskId, registry, cfg.MaxConnections, func() *bufferexchange.Handler {
		return bufferexchange.NewHandler(bufferexchange.PKVBUF, t.onDeltaBatch, nil, 0, t.log)
	})
	if err != nil {
		return err
	}

	t.streamSinks = make(map[int]*bufferexchange.Sink, len(t.MapDests))
	t.pkvSources = make(map[int]*bufferexchange.Source, len(t.MapDests))
	t.streamSources = make(map[int]*bufferexchange.Source, len(t.MapDests))
	for _, dest := range t.MapDests {
		if err := t.addMapDestination(dest); err != nil {
			return err
		}
	}

	if cfg.UmbilicalAddr != "" {
		t.umbilicalClient, err = umbilical.Dial(cfg.UmbilicalAddr)
		if err != nil {
			return err
		}
	}

	coordCfg := reduceside.CoordinatorConfig{
		TaskId:           t.TaskId,
		JobId:            cfg.JobId,
		TopK:             cfg.SnapshotTopK,
		Snapshot:         t.flushSnapshot,
		EmitPKVBUF:       t.emitActivation,
		EmitStreamMarker: t.emitStreamMarker,
		SnapshotCommit:   t.notifySnapshotCommit,
		AfterIterCommit:  t.notifyAfterIterCommit,
		SnapshotInterval: time.Duration(cfg.SnapshotIntervalMillis) * time.Millisecond,
		StopDifference:   cfg.StopDifference,
		StopMaxTime:      time.Duration(cfg.StopMaxTimeMs) * time.Millisecond,
	}
	t.coordinator = reduceside.NewCoordinator(t.engine, coordCfg, cfg.MaxConnections)

	return nil
}

// PKVAddr returns the address this task's PKVBUF Sink is listening on, valid after
// Init. Map tasks dial this to push deltas.
func (t *ReduceTask) PKVAddr() string { return t.pkvSink.Addr().String() }

// StreamAddr returns the address of the dedicated STREAM Sink bound for mapPartitionId,
// valid once that source has been wired via MapDests or AddMapDestination. The map
// task owning mapPartitionId dials this address to push its completion markers.
func (t *ReduceTask) StreamAddr(mapPartitionId int) string {
	return t.streamSinks[mapPartitionId].Addr().String()
}

// AddMapDestination wires a Source pair plus a dedicated inbound STREAM Sink for
// dest, for callers that discover a map task's addresses only after both tasks' Init
// has already bound their listeners (e.g. a test or a registry-backed driver),
// rather than supplying every destination up front via MapDests.
func (t *ReduceTask) AddMapDestination(dest MapDestination) error {
	return t.addMapDestination(dest)
}

func (t *ReduceTask) addMapDestination(dest MapDestination) error {
	streamSink, err := bufferexchange.NewSink(bufferexchange.STREAM, fmt.Sprintf("%s-from-%d", t.TaskId, dest.PartitionId), t.registry, t.cfg.MaxConnections, func() *bufferexchange.Handler {
		return bufferexchange.NewHandler(bufferexchange.STREAM, nil, t.syncRegime, dest.PartitionId, t.log)
	})
	if err != nil {
		return err
	}
	t.streamSinks[dest.PartitionId] = streamSink

	pkvRequest := bufferexchange.BufferRequest{DestTaskId: dest.TaskId, DestAddr: dest.PKVAddr, PartitionId: dest.PartitionId, BufferType: bufferexchange.PKVBUF}
	t.pkvSources[dest.PartitionId] = bufferexchange.NewSource(pkvRequest, 5)

	streamRequest := bufferexchange.BufferRequest{DestTaskId: dest.TaskId, DestAddr: dest.StreamAddr, PartitionId: dest.PartitionId, BufferType: bufferexchange.STREAM}
	t.streamSources[dest.PartitionId] = bufferexchange.NewSource(streamRequest, 5)
	return nil
}

// loadStaticData reads "<inDir>/subgraph/part<PartitionId>" (the same PQRec blob the
// corresponding map task loads, spec.md §6) and attaches each key's staticData to the
// engine, so mergeDelta stops buffering deltas for that key once this returns
// (spec.md §4.3's INIT --load static data--> READY transition).
func (t *ReduceTask) loadStaticData(cfg *Config) error {
	inDir := t.InputDir
	if inDir == "" {
		inDir = cfg.JobId
	}

	path := fmt.Sprintf("%s/subgraph/part%d", inDir, t.PartitionId)
	rc, err := t.Provider.Open(context.Background(), path)
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()

	reader := codec.NewReader(codec.PQRec, true, 0)
	if err := reader.Load(rc); err != nil {
		return err
	}

	for {
		key, _, staticData, eof, err := reader.ReadPQRec()
		if err != nil {
			return err
		}
		if eof {
			break
		}
		t.engine.LoadStaticData(string(key), staticData)
	}

	return nil
}

// onDeltaBatch decodes a PKVBUF payload from a map task as a stream of KV records
// (key, delta) and merges each into the state engine.
func (t *ReduceTask) onDeltaBatch(header interface{}, payload []byte) {
	reader := codec.NewReader(codec.KV, true, 0)
	if err := reader.Load(bytes.NewReader(payload)); err != nil {
		t.log.Error("%s failed to decode delta batch: %v", t, err)
		return
	}

	for {
		key, delta, eof, err := reader.ReadKV()
		if err != nil {
			t.log.Error("%s error reading delta record: %v", t, err)
			return
		}
		if eof {
			return
		}
		t.engine.MergeDelta(string(key), delta)
	}
}

// emitActivation encodes one selected activation as a KV record (key, delta) and
// pushes it to every map destination. The Coordinator calls this once per selected
// key; batching multiple keys per wire send is left as a possible future refinement,
// noted but not required by spec.md §4.5.
func (t *ReduceTask) emitActivation(iteration int64, key reduceside.Key, delta []byte) error {
	for partitionId, source := range t.pkvSources {
		writer := codec.NewWriter(codec.KV, true)
		if err := writer.AppendKV([]byte(key), delta); err != nil {
			return err
		}

		var buf bytes.Buffer
		if err := writer.Close(&buf); err != nil {
			return err
		}

		header := &bufferexchange.PKVBufferHeader{Owner: t.TaskId, Iteration: iteration, Bytes: int64(buf.Len())}
		if err := source.SendBatch(header, buf.Bytes()); err != nil {
			t.log.Error("%s failed to push activation to partition %d: %v", t, partitionId, err)
			return err
		}
	}
	return nil
}

// emitStreamMarker pushes a STREAM marker to every map destination so its sinks can
// advance their cursors (spec.md §4.5 step 4), then resets this task's own sync
// regime for the next iteration's arrivals.
func (t *ReduceTask) emitStreamMarker(iteration int64) error {
	defer t.syncRegime.ResetIteration()

	for partitionId, source := range t.streamSources {
		header := &bufferexchange.StreamHeader{Owner: t.TaskId, Sequence: iteration}
		if err := source.SendBatch(header, nil); err != nil {
			t.log.Error("%s failed to push stream marker to partition %d: %v", t, partitionId, err)
			return err
		}
	}
	return nil
}

// flushSnapshot durably writes a just-taken snapshot frame to t.Provider at the path
// layout spec.md §6 specifies. The Coordinator has already populated writer via
// engine.Snapshot by the time this is called.
func (t *ReduceTask) flushSnapshot(writer *codec.Writer) error {
	path := fmt.Sprintf("snapshot-%d/part-%s", t.engine.SnapshotId(), t.TaskId)
	wc, err := t.Provider.Create(context.Background(), path)
	if err != nil {
		return err
	}
	defer func() { _ = wc.Close() }()

	return writer.Close(wc)
}

func (t *ReduceTask) notifySnapshotCommit(snapshotId, iteration int64) {
	if t.umbilicalClient == nil {
		return
	}
	_, err := t.umbilicalClient.SnapshotCommit(context.Background(), &umbilical.SnapshotCommitRequest{
		TaskId: t.TaskId, SnapshotId: snapshotId, Iteration: iteration,
	})
	if err != nil {
		t.log.Error("%s failed to notify SnapshotCommit: %v", t, err)
	}
}

func (t *ReduceTask) notifyAfterIterCommit(iteration, checkpoint, snapshotCheckpoint int64) {
	if t.umbilicalClient == nil {
		return
	}
	_, err := t.umbilicalClient.AfterIterCommit(context.Background(), &umbilical.AfterIterCommitRequest{
		TaskId: t.TaskId, Iteration: iteration, Checkpoint: checkpoint, SnapshotCheckpoint: snapshotCheckpoint,
	})
	if err != nil {
		t.log.Error("%s failed to notify AfterIterCommit: %v", t, err)
	}
}

// Kickoff injects the SpillIter event that starts this task's first iteration. A
// reduce task's own sync regime can only fire once every expected map source has sent
// a STREAM marker, but no map task sends one until it receives this task's own marker
// from a completed iteration — so the very first iteration has no sink event to wait
// on and must be triggered externally, once every task in the job has finished Init
// and is ready to receive. Submit must have already been called.
func (t *ReduceTask) Kickoff() {
	t.coordinator.Events() <- reduceside.SinkEvent{Kind: reduceside.SpillIter}
}

// Submit starts every Sink's accept loop, bridges the STREAM sync regime's firing
// into the Coordinator's event channel, and starts the Coordinator's iteration loop —
// all in background goroutines — and returns a Handle for the caller to Wait/Cancel.
func (t *ReduceTask) Submit(ctx context.Context) (Handle, error) {
	if err := t.pkvSink.Register(); err != nil {
		t.log.Error("%s failed to register PKVBUF sink with discovery: %v", t, err)
	}
	for partitionId, sink := range t.streamSinks {
		if err := sink.Register(); err != nil {
			t.log.Error("%s failed to register STREAM sink for source %d with discovery: %v", t, partitionId, err)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	handle := newTaskHandle(cancel)
	done := make(chan struct{})

	go func() {
		if err := t.pkvSink.Serve(); err != nil {
			t.log.Error("%s PKVBUF sink exited: %v", t, err)
		}
	}()
	for partitionId, sink := range t.streamSinks {
		partitionId, sink := partitionId, sink
		go func() {
			if err := sink.Serve(); err != nil {
				t.log.Error("%s STREAM sink for source %d exited: %v", t, partitionId, err)
			}
		}()
	}

	events := t.coordinator.Events()
	go func() {
		for {
			select {
			case <-done:
				return
			case <-t.syncRegime.Fire():
				events <- reduceside.SinkEvent{Kind: reduceside.SpillIter}
			}
		}
	}()

	go func() {
		<-ctx.Done()
		close(done)
		t.syncRegime.Stop()
		_ = t.pkvSink.Close()
		for _, sink := range t.streamSinks {
			_ = sink.Close()
		}
	}()

	go func() {
		_, err := t.coordinator.Run(done)
		handle.finish(err)
	}()

	return handle, nil
}
