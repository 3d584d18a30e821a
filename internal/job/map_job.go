package job

import (
	"bytes"
	"context"
	"fmt"

	"github.com/Scusemua/go-utils/config"
	"github.com/Scusemua/go-utils/logger"

	"github.com/scusemua/priter/internal/blobstore"
	"github.com/scusemua/priter/internal/bufferexchange"
	"github.com/scusemua/priter/internal/codec"
	"github.com/scusemua/priter/internal/mapside"
	"github.com/scusemua/priter/internal/partition"
)

// ReduceDestination is one reduce task's pair of buffer endpoints a map task pushes
// deltas and completion markers to. PKVAddr and StreamAddr are distinct listeners:
// each BufferType gets its own Sink and therefore its own ephemeral port.
type ReduceDestination struct {
	TaskId      string
	PKVAddr     string
	StreamAddr  string
	PartitionId int
}

// MapTask is one map-side IterativeJob: it owns an ActivationEngine loading a static
// subgraph partition, a PKVBUF Sink receiving activation batches, a STREAM Sink
// receiving the per-iteration completion marker that triggers a pass over the
// buffer, and Sources for pushing emitted deltas and its own completion marker back
// to every reduce destination.
type MapTask struct {
	TaskId              string
	SubgraphPartitionId int
	InputDir            string
	Provider            blobstore.Provider
	Activator           mapside.Activator
	Partitioner         partition.Partitioner
	ReduceDests         []ReduceDestination

	cfg *Config

	buffer *mapside.InputPKVBuffer
	engine *mapside.ActivationEngine

	pkvSink    *bufferexchange.Sink
	streamSink *bufferexchange.Sink

	pkvSources    map[int]*bufferexchange.Source
	streamSources map[int]*bufferexchange.Source

	log logger.Logger
}

// NewMapTask constructs a MapTask for taskId, owning subgraphPartitionId's static
// partition.
func NewMapTask(taskId string, subgraphPartitionId int, activator mapside.Activator, partitioner partition.Partitioner) *MapTask {
	t := &MapTask{
		TaskId:              taskId,
		SubgraphPartitionId: subgraphPartitionId,
		Activator:           activator,
		Partitioner:         partitioner,
		buffer:              mapside.NewInputPKVBuffer(256),
	}
	config.InitLogger(&t.log, t)
	return t
}

func (t *MapTask) String() string {
	return fmt.Sprintf("MapTask[%s,partition=%d]", t.TaskId, t.SubgraphPartitionId)
}

// Init loads the static subgraph partition and builds both Sinks and the
// per-destination Sources from cfg.
func (t *MapTask) Init(cfg *Config) error {
	t.cfg = cfg

	if t.Provider == nil {
		provider, err := newProvider(cfg)
		if err != nil {
			return err
		}
		t.Provider = provider
	}

	inDir := t.InputDir
	if inDir == "" {
		inDir = cfg.JobId
	}

	engine, err := mapside.NewActivationEngine(context.Background(), t.Provider, inDir, t.SubgraphPartitionId, t.Partitioner.NumPartitions(), partition.Func(t.Partitioner), t.buffer)
	if err != nil {
		return err
	}
	t.engine = engine

	registry, err := newRegistry(cfg)
	if err != nil {
		return err
	}

	t.pkvSink, err = bufferexchange.NewSink(bufferexchange.PKVBUF, t.TaskId, registry, cfg.MaxConnections, func() *bufferexchange.Handler {
		return bufferexchange.NewHandler(bufferexchange.PKVBUF, t.onActivationBatch, nil, 0, t.log)
	})
	if err != nil {
		return err
	}

	t.streamSink, err = bufferexchange.NewSink(bufferexchange.STREAM, t.TaskId, registry, cfg.MaxConnections, func() *bufferexchange.Handler {
		return bufferexchange.NewHandler(bufferexchange.STREAM, t.onStreamMarker, nil, 0, t.log)
	})
	if err != nil {
		return err
	}

	t.pkvSources = make(map[int]*bufferexchange.Source, len(t.ReduceDests))
	t.streamSources = make(map[int]*bufferexchange.Source, len(t.ReduceDests))
	for _, dest := range t.ReduceDests {
		t.addReduceDestination(dest)
	}

	return nil
}

// Seed enqueues an initial (key, iState) pair into this task's InputPKVBuffer before
// the job starts, for jobs that begin from a known initial iState rather than waiting
// on the first activation batch pushed by a reduce task (spec.md §3's "init(k, v) —
// called once by user code during setup to seed the buffer").
func (t *MapTask) Seed(key mapside.Key, iState []byte) {
	t.buffer.Init(key, iState)
}

// PKVAddr returns the address this task's PKVBUF Sink is listening on, valid after
// Init. Reduce tasks dial this to push activation batches.
func (t *MapTask) PKVAddr() string { return t.pkvSink.Addr().String() }

// StreamAddr returns the address this task's STREAM Sink is listening on, valid after
// Init. Reduce tasks dial this to push iteration markers.
func (t *MapTask) StreamAddr() string { return t.streamSink.Addr().String() }

// AddReduceDestination wires a Source pair for dest, for callers that discover a
// reduce task's addresses only after both tasks' Init has already bound their
// listeners (e.g. a test or a registry-backed driver), rather than supplying every
// destination up front via ReduceDests.
func (t *MapTask) AddReduceDestination(dest ReduceDestination) {
	t.addReduceDestination(dest)
}

func (t *MapTask) addReduceDestination(dest ReduceDestination) {
	pkvRequest := bufferexchange.BufferRequest{DestTaskId: dest.TaskId, DestAddr: dest.PKVAddr, PartitionId: dest.PartitionId, BufferType: bufferexchange.PKVBUF}
	t.pkvSources[dest.PartitionId] = bufferexchange.NewSource(pkvRequest, 5)

	streamRequest := bufferexchange.BufferRequest{DestTaskId: dest.TaskId, DestAddr: dest.StreamAddr, PartitionId: dest.PartitionId, BufferType: bufferexchange.STREAM}
	t.streamSources[dest.PartitionId] = bufferexchange.NewSource(streamRequest, 5)
}

// onActivationBatch decodes a PKVBUF payload from a reduce task as a stream of KV
// records (key, iState) and enqueues them into the InputPKVBuffer.
func (t *MapTask) onActivationBatch(header interface{}, payload []byte) {
	ph, ok := header.(*bufferexchange.PKVBufferHeader)
	if !ok {
		t.log.Error("%s received a PKVBUF batch with an unexpected header type", t)
		return
	}

	reader := codec.NewReader(codec.KV, true, 0)
	if err := reader.Load(bytes.NewReader(payload)); err != nil {
		t.log.Error("%s failed to decode activation batch: %v", t, err)
		return
	}

	var records []mapside.PKVPair
	for {
		key, iState, eof, err := reader.ReadKV()
		if err != nil {
			t.log.Error("%s error reading activation record: %v", t, err)
			return
		}
		if eof {
			break
		}
		records = append(records, mapside.PKVPair{Key: string(key), IState: iState})
	}

	if !t.buffer.Read(ph, records) {
		t.log.Debug("%s ignored a stale activation batch for iteration %d", t, ph.Iteration)
	}
}

// onStreamMarker reacts to a reduce task's per-iteration completion marker by running
// one activation pass over everything currently buffered and fanning the results
// downstream, then echoing its own completion marker back to every reduce
// destination so their sync regime can advance (spec.md §4.5 step 4's counterpart on
// the map side).
func (t *MapTask) onStreamMarker(header interface{}, _ []byte) {
	sh, ok := header.(*bufferexchange.StreamHeader)
	if !ok {
		t.log.Error("%s received a STREAM batch with an unexpected header type", t)
		return
	}

	outputs := t.engine.Activate(t.Activator)

	byPartition := make(map[int][]mapside.OutputRecord)
	for _, out := range outputs {
		byPartition[out.Partition] = append(byPartition[out.Partition], out)
	}

	for partitionId, recs := range byPartition {
		source, ok := t.pkvSources[partitionId]
		if !ok {
			t.log.Error("%s has no Source for reduce partition %d", t, partitionId)
			continue
		}

		writer := codec.NewWriter(codec.KV, true)
		for _, rec := range recs {
			if err := writer.AppendKV([]byte(rec.Key), rec.Delta); err != nil {
				t.log.Error("%s failed to encode output record for partition %d: %v", t, partitionId, err)
				continue
			}
		}

		var buf bytes.Buffer
		if err := writer.Close(&buf); err != nil {
			t.log.Error("%s failed to flush output batch for partition %d: %v", t, partitionId, err)
			continue
		}

		pkvHeader := &bufferexchange.PKVBufferHeader{Owner: t.TaskId, Iteration: sh.Sequence, Bytes: int64(buf.Len())}
		if err := source.SendBatch(pkvHeader, buf.Bytes()); err != nil {
			t.log.Error("%s failed to push deltas to reduce partition %d: %v", t, partitionId, err)
		}
	}

	for partitionId, source := range t.streamSources {
		streamHeader := &bufferexchange.StreamHeader{Owner: t.TaskId, Sequence: sh.Sequence}
		if err := source.SendBatch(streamHeader, nil); err != nil {
			t.log.Error("%s failed to push completion marker to reduce partition %d: %v", t, partitionId, err)
		}
	}
}

// Submit starts both Sinks' accept loops in background goroutines and returns a
// Handle for the caller to Wait/Cancel.
func (t *MapTask) Submit(ctx context.Context) (Handle, error) {
	if err := t.pkvSink.Register(); err != nil {
		t.log.Error("%s failed to register PKVBUF sink with discovery: %v", t, err)
	}
	if err := t.streamSink.Register(); err != nil {
		t.log.Error("%s failed to register STREAM sink with discovery: %v", t, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	handle := newTaskHandle(cancel)

	go func() {
		if err := t.pkvSink.Serve(); err != nil {
			t.log.Error("%s PKVBUF sink exited: %v", t, err)
		}
	}()
	go func() {
		if err := t.streamSink.Serve(); err != nil {
			t.log.Error("%s STREAM sink exited: %v", t, err)
		}
	}()

	go func() {
		<-ctx.Done()
		_ = t.pkvSink.Close()
		_ = t.streamSink.Close()
		handle.finish(nil)
	}()

	return handle, nil
}
