package bufferexchange

// FileHeader accompanies a FILE batch: an ordered, resumable run of spilled records
// identified by an inclusive spill-id range.
type FileHeader struct {
	Owner        string
	RunId        string
	FirstId      int64
	LastId       int64
	Compressed   int64
	Decompressed int64
	Progress     float64
	Eof          bool
}

// SnapshotHeader accompanies a SNAPSHOT batch: idempotent by Progress, so replays of an
// already-applied progress value are safe to ignore.
type SnapshotHeader struct {
	Owner    string
	Progress float64
	Eof      bool
	Bytes    int64
}

// StreamHeader accompanies a STREAM batch: strictly sequenced by Sequence.
type StreamHeader struct {
	Owner    string
	Sequence int64
	Bytes    int64
}

// PKVBufferHeader accompanies a PKVBUF batch: one per iteration per source.
type PKVBufferHeader struct {
	Owner     string
	Iteration int64
	Bytes     int64
}

// BufferRequest constructs a Source: the destination task and partition to pull from,
// and which BufferType to request.
type BufferRequest struct {
	DestTaskId  string
	DestAddr    string
	PartitionId int
	BufferType  BufferType
}
