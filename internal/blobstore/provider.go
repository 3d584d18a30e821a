// Package blobstore provides an opaque, byte-addressable storage abstraction used for
// snapshot persistence, the exequeue spill path, and subgraph loading. A job selects a
// concrete Provider (local filesystem, HDFS, S3, or Redis) via
// configuration.JobConfig.StorageBackend; callers elsewhere in the engine never depend
// on a specific backing.
package blobstore

import (
	"context"
	"io"

	"go.uber.org/zap"
)

// ConnectionStatus indicates the status of the connection to the remote storage medium.
type ConnectionStatus string

const (
	Connected    ConnectionStatus = "CONNECTED"
	Connecting   ConnectionStatus = "CONNECTING"
	Disconnected ConnectionStatus = "DISCONNECTED"
)

// Provider is the storage API a reduce task uses to persist and retrieve snapshots,
// spilled exequeue segments, and map-side subgraph partitions. Implementations are free
// to lay paths out however suits the medium; the paths themselves
// (`snapshot-<id>/part-<reduceId>`, `subgraph/part<partId>`) are built by callers in
// internal/job and internal/mapside, not by Provider itself.
type Provider interface {
	// Connect establishes the connection to the backing medium. For the local
	// filesystem it creates the root directory.
	Connect(ctx context.Context) error

	// Close releases any resources held by the Provider.
	Close() error

	// ConnectionStatus returns the current ConnectionStatus of the Provider.
	ConnectionStatus() ConnectionStatus

	// Open returns a reader positioned at the start of the object stored at path.
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// Create returns a writer that (over)writes the object at path. The object is not
	// guaranteed visible to Open/List calls until the writer is closed.
	Create(ctx context.Context, path string) (io.WriteCloser, error)

	// List returns every object path sharing the given prefix, in implementation-defined
	// order.
	List(ctx context.Context, prefix string) ([]string, error)

	// Replication reports the replication factor the backing applies to writes, or 1
	// for backings (local, Redis) with no notion of replication. No caller outside this
	// package reads it, and no snapshot pruning depends on it.
	Replication() int
}

// baseProvider carries the fields and logger shared by every Provider implementation,
// mirroring the embedding pattern used throughout the map/reduce engine for per-type
// specialization over a common struct.
type baseProvider struct {
	logger        *zap.Logger
	sugaredLogger *zap.SugaredLogger

	status ConnectionStatus

	hostname string
	nodeId   int
}

func newBaseProvider(hostname string, nodeId int) *baseProvider {
	logger, err := zap.NewProduction()
	if err != nil {
		logger = zap.NewNop()
	}

	return &baseProvider{
		hostname:      hostname,
		nodeId:        nodeId,
		status:        Disconnected,
		logger:        logger,
		sugaredLogger: logger.Sugar(),
	}
}

// ConnectionStatus returns the current ConnectionStatus of the Provider.
func (p *baseProvider) ConnectionStatus() ConnectionStatus {
	return p.status
}
