package utils

import (
	"fmt"
)

// ErrInsufficientPortsAvailable is returned by RequestPorts when fewer than AllocationSize
// ports remain available in the pool.
var ErrInsufficientPortsAvailable = fmt.Errorf("insufficient ports available")

// AvailablePorts is a fixed-size pool of contiguous TCP ports, handed out in fixed-size
// batches. A Sink uses one of these to allocate the listening ports for its FILE,
// SNAPSHOT, STREAM, and PKVBUF endpoints without colliding with previously issued ports.
type AvailablePorts struct {
	startingPort   int
	totalNumPorts  int
	allocationSize int

	available []int
}

// NewAvailablePorts creates an AvailablePorts pool of numPorts contiguous ports starting
// at startingPort, to be handed out allocationSize ports at a time. It panics if any
// argument is out of range: startingPort must be a valid, non-reserved TCP port
// (1024-65534), numPorts and allocationSize must be positive, and the range
// [startingPort, startingPort+numPorts) must not overflow the valid port space.
func NewAvailablePorts(startingPort int, numPorts int, allocationSize int) *AvailablePorts {
	if startingPort <= 1023 || startingPort >= 65535 {
		panic(fmt.Sprintf("invalid starting port: %d", startingPort))
	}
	if numPorts <= 0 {
		panic(fmt.Sprintf("invalid number of ports: %d", numPorts))
	}
	if allocationSize <= 0 {
		panic(fmt.Sprintf("invalid allocation size: %d", allocationSize))
	}
	if startingPort+numPorts > 65535 {
		panic(fmt.Sprintf("port range [%d, %d) exceeds the valid port space", startingPort, startingPort+numPorts))
	}

	available := make([]int, numPorts)
	for i := 0; i < numPorts; i++ {
		available[i] = startingPort + i
	}

	return &AvailablePorts{
		startingPort:   startingPort,
		totalNumPorts:  numPorts,
		allocationSize: allocationSize,
		available:      available,
	}
}

// TotalNumPorts returns the size of the port range managed by this pool.
func (a *AvailablePorts) TotalNumPorts() int {
	return a.totalNumPorts
}

// NumPortsAvailable returns the number of ports currently unallocated.
func (a *AvailablePorts) NumPortsAvailable() int {
	return len(a.available)
}

// AllocationSize returns the batch size handed out by each call to RequestPorts.
func (a *AvailablePorts) AllocationSize() int {
	return a.allocationSize
}

// RequestPorts removes and returns the next AllocationSize ports from the front of the
// pool, in ascending order. It returns ErrInsufficientPortsAvailable if fewer than
// AllocationSize ports remain.
func (a *AvailablePorts) RequestPorts() ([]int, error) {
	if len(a.available) < a.allocationSize {
		return nil, ErrInsufficientPortsAvailable
	}

	alloc := make([]int, a.allocationSize)
	copy(alloc, a.available[:a.allocationSize])
	a.available = a.available[a.allocationSize:]

	return alloc, nil
}

// ReturnPorts returns a previously allocated batch of ports to the back of the pool, in
// ascending sorted order, so that subsequent allocations remain contiguous over time.
// It panics if any returned port is already present in the pool, since that indicates a
// caller double-returned a port or returned one it never received.
func (a *AvailablePorts) ReturnPorts(ports []int) error {
	for _, p := range ports {
		for _, existing := range a.available {
			if existing == p {
				panic(fmt.Sprintf("port %d is already available", p))
			}
		}
	}

	sorted := make([]int, len(ports))
	copy(sorted, ports)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1] > sorted[j]; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}

	a.available = append(a.available, sorted...)
	return nil
}
