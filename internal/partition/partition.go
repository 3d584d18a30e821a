// Package partition assigns keys to one of a job's N reduce/map partitions. The
// engines in internal/reduceside and internal/mapside only need an opaque
// key -> [0, N) function; this package supplies the default hash-based one and lets a
// job substitute its own.
package partition

import "github.com/scusemua/priter/common/types"

// Partitioner maps a key to a destination partition in [0, NumPartitions).
type Partitioner interface {
	Partition(key string) int
	NumPartitions() int
}

// hashPartitioner is the default Partitioner: 32-bit FNV-1 of the key, modulo the
// partition count.
type hashPartitioner struct {
	numPartitions int
}

// NewHashPartitioner returns the default Fnv32-based Partitioner. numPartitions must
// be positive.
func NewHashPartitioner(numPartitions int) Partitioner {
	if numPartitions <= 0 {
		numPartitions = 1
	}
	return &hashPartitioner{numPartitions: numPartitions}
}

func (p *hashPartitioner) Partition(key string) int {
	return int(types.Fnv32(key) % uint32(p.numPartitions))
}

func (p *hashPartitioner) NumPartitions() int {
	return p.numPartitions
}

// Func adapts a Partitioner into the plain key->int function shape that
// mapside.Partitioner expects.
func Func(p Partitioner) func(key string) int {
	return p.Partition
}
