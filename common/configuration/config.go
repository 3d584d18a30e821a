// Package configuration defines the job-wide configuration surface recognized by the
// priority-iteration engine. Loading the values (flags, env, a config file) is left to
// the operator; this package only defines the keys, their defaults, and a couple of
// derived conveniences (PortionBased, String/PrettyString).
package configuration

import (
	"strings"

	"github.com/goccy/go-json"
)

// StorageBackend selects the blobstore.Provider implementation a job uses for snapshots,
// the exequeue spill path, and subgraph loading.
type StorageBackend string

const (
	StorageLocal StorageBackend = "local"
	StorageHDFS  StorageBackend = "hdfs"
	StorageS3    StorageBackend = "s3"
	StorageRedis StorageBackend = "redis"
)

// JobConfig holds every configuration key recognized by the engine, named after the
// "priter.*" keys from the specification, plus the handful of ambient keys (logging,
// registry address, storage backend selection) an operator needs to stand up a real job.
type JobConfig struct {
	// JobId identifies a run shared by every reduce and map task participating in it.
	JobId string `name:"priter.job" json:"priter.job" yaml:"priter.job" description:"Enables priority iteration for this job."`

	// GraphPartitions is the partition count shared by both the map and reduce sides.
	GraphPartitions int `name:"priter.graph.partitions" json:"priter.graph.partitions" yaml:"priter.graph.partitions" description:"Partition count for both sides."`

	// GraphNodes is the global key count, used to size portion-based selection.
	GraphNodes int `name:"priter.graph.nodes" json:"priter.graph.nodes" yaml:"priter.graph.nodes" description:"Global key count; used for portion-based selection sizing."`

	SnapshotIntervalMillis int64 `name:"priter.snapshot.interval" json:"priter.snapshot.interval" yaml:"priter.snapshot.interval" description:"Milliseconds between snapshots."`
	SnapshotTopK           int   `name:"priter.snapshot.topk" json:"priter.snapshot.topk" yaml:"priter.snapshot.topk" description:"Snapshot row count."`

	// QueuePortion is alpha; when greater than zero, portion-based selection is used.
	QueuePortion float64 `name:"priter.queue.portion" json:"priter.queue.portion" yaml:"priter.queue.portion" description:"Fraction of keys activated per round; selects the portion regime when > 0."`

	// QueueUniqLength is execQueueLen, used when QueuePortion is unset (<= 0).
	QueueUniqLength int `name:"priter.queue.uniqlength" json:"priter.queue.uniqlength" yaml:"priter.queue.uniqlength" description:"Fixed activation set size; used when alpha is absent."`

	StopDifference float64 `name:"priter.stop.difference" json:"priter.stop.difference" yaml:"priter.stop.difference" description:"Convergence threshold."`
	StopMaxTimeMs  int64   `name:"priter.stop.maxtime" json:"priter.stop.maxtime" yaml:"priter.stop.maxtime" description:"Hard time cap, in milliseconds."`

	MapSyncEnabled       bool  `name:"priter.job.mapsync" json:"priter.job.mapsync" yaml:"priter.job.mapsync" description:"Enables strict map<->reduce synchronization."`
	AsyncTimeEnabled     bool  `name:"priter.job.async.time" json:"priter.job.async.time" yaml:"priter.job.async.time" description:"Enables the time-triggered asynchronous regime."`
	AsyncTimeThresholdMs int64 `name:"priter.job.async.time.thresh" json:"priter.job.async.time.thresh" yaml:"priter.job.async.time.thresh" description:"Milliseconds idle before firing in the async-by-time regime."`
	AsyncSelfEnabled     bool  `name:"priter.job.async.self" json:"priter.job.async.self" yaml:"priter.job.async.self" description:"Enables the self-triggered asynchronous regime."`

	InMemory   bool `name:"priter.job.inmem" json:"priter.job.inmem" yaml:"priter.job.inmem" description:"Stores state in memory only."`
	SyncUpdate bool `name:"priter.job.syncupdate" json:"priter.job.syncupdate" yaml:"priter.job.syncupdate" description:"Lock-step iteration updates."`

	TransferMem bool `name:"priter.transfer.mem" json:"priter.transfer.mem" yaml:"priter.transfer.mem" description:"Avoids spill-to-disk on the PKVBUF path."`

	MaxConnections    int `name:"mapred.reduce.parallel.copies" json:"mapred.reduce.parallel.copies" yaml:"mapred.reduce.parallel.copies" description:"Upper bound on concurrent BufferExchange connections."`
	ReaderBufferBytes int `name:"io.file.buffer.size" json:"io.file.buffer.size" yaml:"io.file.buffer.size" description:"Reader window size, in bytes."`

	LogLevel     string `name:"priter.log.level" json:"priter.log.level" yaml:"priter.log.level" description:"Verbosity passed to the injected logger."`
	RegistryAddr string `name:"priter.registry.addr" json:"priter.registry.addr" yaml:"priter.registry.addr" description:"Consul agent address used for Sink registration."`

	// StorageBackend is plain string rather than the StorageBackend named type so that
	// go-utils/config's reflection-based flag registration (which type-asserts string
	// kind fields straight to *string) can bind it; compare against the StorageLocal etc.
	// constants via StorageBackend(cfg.StorageBackend).
	StorageBackend string `name:"priter.storage.backend" json:"priter.storage.backend" yaml:"priter.storage.backend" description:"Blobstore provider: local, hdfs, s3, or redis."`
	UmbilicalAddr  string `name:"priter.umbilical.addr" json:"priter.umbilical.addr" yaml:"priter.umbilical.addr" description:"Host-runtime gRPC umbilical address."`

	// PrettyPrintOptions instructs the driver scripts to pretty-print this struct on startup.
	PrettyPrintOptions bool `name:"pretty_print_options" json:"pretty_print_options" yaml:"pretty_print_options"`
}

// Default returns a JobConfig populated with the defaults called out in the specification:
// maxConnections=20000 and a 128 KiB reader window.
func Default() *JobConfig {
	return &JobConfig{
		GraphPartitions:   1,
		SnapshotTopK:      100,
		QueueUniqLength:   100,
		StopDifference:    0.001,
		MaxConnections:    20000,
		ReaderBufferBytes: 128 * 1024,
		LogLevel:          "info",
		StorageBackend:    string(StorageLocal),
	}
}

// PortionBased reports whether the portion regime (alpha) is configured rather than
// the fixed execQueueLen regime; QueuePortion > 0 takes precedence per the specification.
func (c *JobConfig) PortionBased() bool {
	return c.QueuePortion > 0
}

// PrettyString is the same as String, except that PrettyString calls json.MarshalIndent instead of json.Marshal.
func (c *JobConfig) PrettyString(indentSize int) string {
	indentBuilder := strings.Builder{}
	for i := 0; i < indentSize; i++ {
		indentBuilder.WriteString(" ")
	}

	m, err := json.MarshalIndent(c, "", indentBuilder.String())
	if err != nil {
		panic(err)
	}

	return string(m)
}

func (c *JobConfig) Clone() *JobConfig {
	clone := *c
	return &clone
}

func (c *JobConfig) String() string {
	m, err := json.Marshal(c)
	if err != nil {
		panic(err)
	}

	return string(m)
}
