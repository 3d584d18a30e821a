package codec

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"io"

	"github.com/pkg/errors"

	"github.com/scusemua/priter/common/types"
)

const defaultWindowBytes = 128 * 1024

// Writer accumulates one shape's worth of records in memory and, on Close, emits them as
// a single framed block: a VInt frame length, the (optionally compressed) record bytes,
// and a trailing CRC-32 over those bytes. Every Append* call records a VInt length per
// field followed by the raw bytes, exactly as spec.md describes; Close additionally
// writes the EOF sentinel record matching the configured RecordShape.
type Writer struct {
	shape      RecordShape
	compressed bool

	buf         bytes.Buffer
	recordCount int64

	decompressedBytes int64
	compressedBytes   int64
}

// NewWriter returns a Writer that frames records of the given shape, optionally
// compressing the frame body with block s2 compression before it is written out.
func NewWriter(shape RecordShape, compressed bool) *Writer {
	return &Writer{shape: shape, compressed: compressed}
}

func (w *Writer) AppendKV(key, value []byte) error {
	if w.shape != KV {
		return errors.Errorf("codec: AppendKV called on a %s writer", w.shape)
	}
	return w.append(key, value)
}

func (w *Writer) AppendPKV(priority, key, value []byte) error {
	if w.shape != PKV {
		return errors.Errorf("codec: AppendPKV called on a %s writer", w.shape)
	}
	return w.append(priority, key, value)
}

func (w *Writer) AppendStateRec(key, iState, cState []byte) error {
	if w.shape != StateRec {
		return errors.Errorf("codec: AppendStateRec called on a %s writer", w.shape)
	}
	return w.append(key, iState, cState)
}

func (w *Writer) AppendPQRec(key, iState, staticData []byte) error {
	if w.shape != PQRec {
		return errors.Errorf("codec: AppendPQRec called on a %s writer", w.shape)
	}
	return w.append(key, iState, staticData)
}

func (w *Writer) AppendStaticRec(key, staticData []byte) error {
	if w.shape != StaticRec {
		return errors.Errorf("codec: AppendStaticRec called on a %s writer", w.shape)
	}
	return w.append(key, staticData)
}

func (w *Writer) append(fields ...[]byte) error {
	if len(fields) != w.shape.FieldCount() {
		return errors.Errorf("codec: %s record expects %d fields, got %d", w.shape, w.shape.FieldCount(), len(fields))
	}
	if err := writeFields(&w.buf, fields...); err != nil {
		return err
	}
	w.recordCount++
	return nil
}

// Close writes the EOF sentinel record, compresses the accumulated bytes if configured
// to, and emits the finished frame (length prefix, body, trailing CRC-32) to sink.
func (w *Writer) Close(sink io.Writer) error {
	if err := writeEOF(&w.buf, w.shape); err != nil {
		return err
	}

	raw := w.buf.Bytes()
	w.decompressedBytes = int64(len(raw))

	payload := raw
	if w.compressed {
		payload = compressBlock(raw)
	}
	w.compressedBytes = int64(len(payload))

	if err := WriteVInt(sink, int64(len(payload))); err != nil {
		return err
	}
	if _, err := sink.Write(payload); err != nil {
		return err
	}

	checksum := crc32.ChecksumIEEE(payload)
	var trailer [4]byte
	binary.BigEndian.PutUint32(trailer[:], checksum)
	_, err := sink.Write(trailer[:])
	return err
}

// RecordCount returns the number of records appended so far (excluding the EOF sentinel).
func (w *Writer) RecordCount() int64 { return w.recordCount }

// DecompressedBytes returns the logical (pre-compression) byte count written by Close.
// It is zero until Close has run.
func (w *Writer) DecompressedBytes() int64 { return w.decompressedBytes }

// CompressedBytes returns the on-wire byte count written by Close, excluding the frame
// length prefix and trailing checksum. It is zero until Close has run.
func (w *Writer) CompressedBytes() int64 { return w.compressedBytes }

// Reader reads one framed block written by Writer.Close and replays its records.
type Reader struct {
	shape      RecordShape
	compressed bool

	window []byte

	decoded []byte
	pos     int

	recordCount int64

	// OnCorruption, if set, is invoked with the frame's raw (possibly still compressed)
	// bytes immediately before a checksum-mismatch or malformed-length error is
	// returned, so a caller can spill the bytes to a task-scoped file for post-mortem
	// before the error propagates.
	OnCorruption func(frame []byte)
}

// NewReader returns a Reader for frames of the given shape and compression setting.
// initialWindowBytes seeds the lazily-grown staging buffer; 0 selects the default of
// 128 KiB.
func NewReader(shape RecordShape, compressed bool, initialWindowBytes int) *Reader {
	if initialWindowBytes <= 0 {
		initialWindowBytes = defaultWindowBytes
	}
	return &Reader{
		shape:      shape,
		compressed: compressed,
		window:     make([]byte, 0, nextPow2(initialWindowBytes)),
	}
}

// Load reads exactly one frame from source and prepares it for record-by-record
// consumption via ReadKV/ReadPKV/etc. Call Load once per frame before reading its
// records; a subsequent Load reuses (and grows, if needed) the staging window.
func (r *Reader) Load(source io.Reader) error {
	frameLen, err := ReadVInt(source)
	if err != nil {
		return err
	}
	if frameLen < 0 {
		return types.ErrNegativeLength
	}

	needed := int(frameLen)
	if cap(r.window) < needed {
		r.window = make([]byte, 0, nextPow2(needed))
	}
	frame := r.window[:needed]
	if _, err := io.ReadFull(source, frame); err != nil {
		return err
	}

	var trailer [4]byte
	if _, err := io.ReadFull(source, trailer[:]); err != nil {
		return err
	}

	expected := binary.BigEndian.Uint32(trailer[:])
	actual := crc32.ChecksumIEEE(frame)
	if expected != actual {
		if r.OnCorruption != nil {
			r.OnCorruption(frame)
		}
		return types.ErrChecksumMismatch
	}

	decoded := frame
	if r.compressed {
		decoded, err = decompressBlock(frame)
		if err != nil {
			if r.OnCorruption != nil {
				r.OnCorruption(frame)
			}
			return err
		}
	}

	r.decoded = decoded
	r.pos = 0
	r.recordCount = 0
	return nil
}

func (r *Reader) read(n int) (fields [][]byte, eof bool, err error) {
	fields, newPos, eof, err := readFields(r.decoded, r.pos, n)
	if err != nil {
		if r.OnCorruption != nil {
			r.OnCorruption(r.decoded)
		}
		return nil, false, err
	}
	r.pos = newPos
	if !eof {
		r.recordCount++
	}
	return fields, eof, nil
}

func (r *Reader) ReadKV() (key, value []byte, eof bool, err error) {
	fields, eof, err := r.read(KV.FieldCount())
	if err != nil || eof {
		return nil, nil, eof, err
	}
	return fields[0], fields[1], false, nil
}

func (r *Reader) ReadPKV() (priority, key, value []byte, eof bool, err error) {
	fields, eof, err := r.read(PKV.FieldCount())
	if err != nil || eof {
		return nil, nil, nil, eof, err
	}
	return fields[0], fields[1], fields[2], false, nil
}

func (r *Reader) ReadStateRec() (key, iState, cState []byte, eof bool, err error) {
	fields, eof, err := r.read(StateRec.FieldCount())
	if err != nil || eof {
		return nil, nil, nil, eof, err
	}
	return fields[0], fields[1], fields[2], false, nil
}

func (r *Reader) ReadPQRec() (key, iState, staticData []byte, eof bool, err error) {
	fields, eof, err := r.read(PQRec.FieldCount())
	if err != nil || eof {
		return nil, nil, nil, eof, err
	}
	return fields[0], fields[1], fields[2], false, nil
}

func (r *Reader) ReadStaticRec() (key, staticData []byte, eof bool, err error) {
	fields, eof, err := r.read(StaticRec.FieldCount())
	if err != nil || eof {
		return nil, nil, eof, err
	}
	return fields[0], fields[1], false, nil
}

// RecordCount returns the number of records consumed from the current frame so far
// (excluding the EOF sentinel).
func (r *Reader) RecordCount() int64 { return r.recordCount }

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
