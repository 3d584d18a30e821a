// Package job wires together internal/codec, internal/bufferexchange,
// internal/reduceside, internal/mapside, internal/partition, internal/blobstore, and
// internal/umbilical into the two runnable task shapes a priority iteration job
// consists of: a reduce task (ReduceTask) and a map task (MapTask). Both expose the
// same IterativeJob{ Init(Config) error; Submit(ctx) (Handle, error) } shape from
// Design Notes §9.
package job

import (
	"context"
	"fmt"

	"github.com/scusemua/priter/common/configuration"
	"github.com/scusemua/priter/common/consul"
	"github.com/scusemua/priter/internal/blobstore"
)

// Config is the job-wide configuration surface; see common/configuration for the full
// "priter.*" key table.
type Config = configuration.JobConfig

// IterativeJob is implemented by both ReduceTask and MapTask.
type IterativeJob interface {
	Init(cfg *Config) error
	Submit(ctx context.Context) (Handle, error)
}

// Handle is returned by Submit; it represents one running task's lifetime.
type Handle interface {
	// Wait blocks until the task terminates (convergence, stopMaxTime, or Cancel) and
	// returns the reason, if any, it stopped abnormally.
	Wait() error
	// Cancel requests the task stop as soon as its current phase allows.
	Cancel()
}

type taskHandle struct {
	cancel context.CancelFunc
	done   chan error
}

func newTaskHandle(cancel context.CancelFunc) *taskHandle {
	return &taskHandle{cancel: cancel, done: make(chan error, 1)}
}

func (h *taskHandle) Wait() error {
	return <-h.done
}

func (h *taskHandle) Cancel() {
	h.cancel()
}

func (h *taskHandle) finish(err error) {
	h.done <- err
}

// newProvider constructs the blobstore.Provider named by cfg.StorageBackend. Only the
// local backing can be constructed from JobConfig alone (it needs nothing but a root
// directory); hdfs/s3/redis backings require connection details (namenode host,
// bucket, address/credentials) that are operator-supplied and not modeled as
// JobConfig keys, so callers needing one of those backings construct it themselves
// (blobstore.NewHdfsProvider/NewS3Provider/NewRedisProvider) and inject it via
// ReduceTask.Provider / MapTask.Provider before calling Init.
func newProvider(cfg *Config) (blobstore.Provider, error) {
	switch configuration.StorageBackend(cfg.StorageBackend) {
	case configuration.StorageLocal, "":
		return blobstore.NewLocalProvider(fmt.Sprintf("./priter-data/%s", cfg.JobId)), nil
	default:
		return nil, fmt.Errorf("job: storage backend %q requires a Provider to be set explicitly before Init", cfg.StorageBackend)
	}
}

// newRegistry constructs a Consul client for Sink advertisement, or nil if
// cfg.RegistryAddr is unset (tasks can still be wired directly by address in tests).
func newRegistry(cfg *Config) (*consul.Client, error) {
	if cfg.RegistryAddr == "" {
		return nil, nil
	}
	return consul.NewClient(cfg.RegistryAddr)
}
