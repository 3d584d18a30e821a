package mapside

import (
	"context"
	"fmt"

	"github.com/Scusemua/go-utils/config"
	"github.com/Scusemua/go-utils/logger"

	"github.com/scusemua/priter/internal/blobstore"
)

// Emit is passed to the user's Activator; calling it queues a (key, delta) pair to be
// partitioned and fanned out to the appropriate reduce partition.
type Emit func(key Key, delta []byte)

// Activator is the user-supplied per-record callback: given a popped (key, iState), it
// emits zero or more (key', delta') pairs via emit.
type Activator func(key Key, iState []byte, emit Emit)

// Partitioner maps an emitted key to a destination partition in [0, numPartitions).
type Partitioner func(key Key) int

// OutputRecord is one emitted (key, delta) pair destined for a specific partition.
type OutputRecord struct {
	Partition int
	Key       Key
	Delta     []byte
}

// ActivationEngine is the map task's per-partition runtime: it loads a static subgraph
// once, then repeatedly drains an InputPKVBuffer and invokes Activate for every popped
// record.
type ActivationEngine struct {
	subgraphPartitionId int
	numPartitions       int
	static              map[Key][]byte
	buffer              *InputPKVBuffer
	partitioner         Partitioner

	log logger.Logger
}

// NewActivationEngine loads subgraphPartitionId's static partition from provider and
// constructs an ActivationEngine ready to drain buffer.
func NewActivationEngine(ctx context.Context, provider blobstore.Provider, inDir string, subgraphPartitionId, numPartitions int, partitioner Partitioner, buffer *InputPKVBuffer) (*ActivationEngine, error) {
	static, err := loadSubgraph(ctx, provider, inDir, subgraphPartitionId)
	if err != nil {
		return nil, err
	}

	e := &ActivationEngine{
		subgraphPartitionId: subgraphPartitionId,
		numPartitions:       numPartitions,
		static:              static,
		buffer:              buffer,
		partitioner:         partitioner,
	}
	config.InitLogger(&e.log, e)

	return e, nil
}

func (e *ActivationEngine) String() string {
	return fmt.Sprintf("ActivationEngine[partition=%d]", e.subgraphPartitionId)
}

// Activate drains every currently-available record in the buffer and runs activate on
// each, collecting every emitted (key, delta) pair partitioned by e.partitioner. A
// popped key with no entry in the loaded subgraph is never passed to activate; instead
// it is fanned out as a zero-delta record to every partition, preserving global
// progress accounting without erroring (spec.md §4.4 failure semantics).
func (e *ActivationEngine) Activate(activate Activator) []OutputRecord {
	var out []OutputRecord

	emit := func(key Key, delta []byte) {
		out = append(out, OutputRecord{
			Partition: e.partitioner(key),
			Key:       key,
			Delta:     delta,
		})
	}

	for {
		pair, ok := e.buffer.Next()
		if !ok {
			break
		}

		if _, loaded := e.static[pair.Key]; !loaded {
			for p := 0; p < e.numPartitions; p++ {
				out = append(out, OutputRecord{Partition: p, Key: pair.Key, Delta: nil})
			}
			continue
		}

		activate(pair.Key, pair.IState, emit)
	}

	return out
}
