package codec

import (
	"bytes"
	"io"
)

// RecordShape identifies which of the five record kinds a Writer/Reader pair is framing.
// A single Writer or Reader is dedicated to one shape for its lifetime, matching how each
// BufferType exchanges exactly one record kind per stream (FILE ships KV, PKVBUF ships
// PKV, the STREAM handler ships StateRec or PQRec, and snapshot/subgraph files ship
// StaticRec).
type RecordShape int

const (
	KV RecordShape = iota
	PKV
	StateRec
	PQRec
	StaticRec
)

// FieldCount returns the number of length-prefixed fields a record of this shape carries,
// which is also the number of EOF sentinels a closing record writes.
func (s RecordShape) FieldCount() int {
	switch s {
	case KV, StaticRec:
		return 2
	case PKV, StateRec, PQRec:
		return 3
	default:
		return 0
	}
}

func (s RecordShape) String() string {
	switch s {
	case KV:
		return "KV"
	case PKV:
		return "PKV"
	case StateRec:
		return "StateRec"
	case PQRec:
		return "PQRec"
	case StaticRec:
		return "StaticRec"
	default:
		return "UNKNOWN"
	}
}

// writeFields appends one record to buf: a VInt length for each field, then the raw
// bytes of every field in the same order (the layout readFields expects).
func writeFields(buf *bytes.Buffer, fields ...[]byte) error {
	for _, f := range fields {
		if err := WriteVInt(buf, int64(len(f))); err != nil {
			return err
		}
	}
	for _, f := range fields {
		if _, err := buf.Write(f); err != nil {
			return err
		}
	}
	return nil
}

// writeEOF appends one EOF sentinel per field slot for shape.
func writeEOF(buf *bytes.Buffer, shape RecordShape) error {
	for i := 0; i < shape.FieldCount(); i++ {
		if err := WriteVInt(buf, EOF); err != nil {
			return err
		}
	}
	return nil
}

// readFields reads one record of n fields (n VInt lengths, then the fields' raw bytes)
// starting at decoded[pos:]. If every one of the
// n lengths equals EOF, it reports eof=true and consumes nothing further. If any length
// is negative but not EOF, it returns types.ErrNegativeLength. Otherwise it returns
// freshly-copied field slices and the new cursor position.
func readFields(decoded []byte, pos int, n int) (fields [][]byte, newPos int, eof bool, err error) {
	r := bytes.NewReader(decoded[pos:])

	lengths := make([]int64, n)
	for i := 0; i < n; i++ {
		l, readErr := ReadVInt(r)
		if readErr != nil {
			return nil, pos, false, readErr
		}
		lengths[i] = l
	}

	allEOF := true
	for _, l := range lengths {
		if l != EOF {
			allEOF = false
			break
		}
	}
	if allEOF {
		consumed := len(decoded[pos:]) - r.Len()
		return nil, pos + consumed, true, nil
	}

	for _, l := range lengths {
		if vErr := validateLength(l); vErr != nil {
			return nil, pos, false, vErr
		}
	}

	fields = make([][]byte, n)
	for i, l := range lengths {
		field := make([]byte, l)
		if _, copyErr := io.ReadFull(r, field); copyErr != nil {
			return nil, pos, false, copyErr
		}
		fields[i] = field
	}

	consumed := len(decoded[pos:]) - r.Len()
	return fields, pos + consumed, false, nil
}
