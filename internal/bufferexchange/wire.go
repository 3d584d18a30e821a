package bufferexchange

import (
	"encoding/binary"
	"io"

	"github.com/goccy/go-json"

	"github.com/scusemua/priter/internal/codec"
)

func writeInt32(w io.Writer, v int32) error {
	return binary.Write(w, binary.BigEndian, v)
}

func readInt32(r io.Reader) (int32, error) {
	var v int32
	err := binary.Read(r, binary.BigEndian, &v)
	return v, err
}

// writeHeader VInt-length-prefixes the JSON encoding of header and writes it to w.
func writeHeader(w io.Writer, header interface{}) error {
	data, err := json.Marshal(header)
	if err != nil {
		return err
	}
	if err := codec.WriteVInt(w, int64(len(data))); err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// readHeader reads a header written by writeHeader into out, which must be a pointer.
func readHeader(r io.Reader, out interface{}) error {
	n, err := codec.ReadVInt(r)
	if err != nil {
		return err
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return err
	}

	return json.Unmarshal(buf, out)
}

func writePayload(w io.Writer, payload []byte) error {
	if err := codec.WriteVInt(w, int64(len(payload))); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

func readPayload(r io.Reader) ([]byte, error) {
	n, err := codec.ReadVInt(r)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
