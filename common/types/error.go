package types

import (
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	ErrStopPropagation = fmt.Errorf("stop propagation")
	ErrRequestTimedOut = status.Error(codes.Unavailable, "request timed out")

	// ErrCursorRegression describes a resumed cursor that points earlier than the
	// position a STREAM reader has already consumed. No code in this module returns it.
	ErrCursorRegression = status.Error(codes.FailedPrecondition, "resumed cursor precedes the already-consumed offset")

	// ErrNegativeLength is returned by the record codec when a decoded VInt length prefix
	// is negative, which can only mean the stream is corrupt or desynchronized.
	ErrNegativeLength = status.Error(codes.DataLoss, "decoded a negative length prefix")

	// ErrChecksumMismatch is returned when a frame's trailing CRC-32 does not match the
	// checksum computed over the frame body.
	ErrChecksumMismatch = status.Error(codes.DataLoss, "frame checksum mismatch")

	// ErrBufferComplete is returned by Source.SendBatch when the Sink answers a batch
	// with TERMINATE.
	ErrBufferComplete = status.Error(codes.OutOfRange, "buffer already reported complete")

	// ErrConnectionsFull is returned when a Sink refuses a new connection because
	// maxConnections has been reached.
	ErrConnectionsFull = status.Error(codes.ResourceExhausted, "sink has reached its maximum connection count")

	// ErrUnknownBufferType is returned when a handshake names a BufferType the receiving
	// end does not recognize.
	ErrUnknownBufferType = status.Error(codes.InvalidArgument, "unrecognized buffer type")

	// ErrPartitionOutOfRange describes a non-positive partition count. No code in this
	// module returns it: partition.NewHashPartitioner clamps such a count to 1.
	ErrPartitionOutOfRange = status.Error(codes.InvalidArgument, "partition count must be positive")
)
