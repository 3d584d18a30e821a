// Package codec implements the record wire format shared by every BufferType: five
// record shapes (KV, PKV, StateRec, PQRec, StaticRec), VInt length-prefixed fields, an
// EOF sentinel record closing each stream, optional block compression, and a trailing
// checksum.
package codec

import (
	"io"

	"github.com/pkg/errors"

	"github.com/scusemua/priter/common/types"
)

// EOF is the VInt length value written in place of every field of a closing record.
// A reader has reached end-of-stream once it decodes a record whose every length field
// equals EOF. Any other negative length is a corrupt-stream error.
const EOF int64 = -1

// WriteVInt writes v to w using Hadoop's WritableUtils VInt encoding: a value in
// [-112, 127] is written as a single literal byte. Any other value is written as a
// header byte followed by its magnitude in big-endian byte order. The header encodes
// both the sign and the magnitude's byte count (1..8): negative values take the one's
// complement of their magnitude first and count down from -120, positive values count
// down from -112, so the header alone tells a reader how many magnitude bytes follow
// and whether to complement the result back on the way out.
func WriteVInt(w io.Writer, v int64) error {
	if v >= -112 && v <= 127 {
		_, err := w.Write([]byte{byte(v)})
		return err
	}

	headerBase := int64(-112)
	mag := v
	if v < 0 {
		mag = ^v
		headerBase = -120
	}

	n := 0
	for tmp := mag; tmp != 0; tmp >>= 8 {
		n++
	}

	buf := make([]byte, 1+n)
	buf[0] = byte(headerBase - int64(n))
	for i := 0; i < n; i++ {
		shift := uint(n-1-i) * 8
		buf[1+i] = byte(mag >> shift)
	}

	_, err := w.Write(buf)
	return err
}

// ReadVInt decodes a value written by WriteVInt from r.
func ReadVInt(r io.Reader) (int64, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	header := int64(int8(b[0]))

	if header >= -112 {
		return header, nil
	}

	negative := header < -120
	var n int64
	if negative {
		n = -120 - header
	} else {
		n = -112 - header
	}
	if n < 1 || n > 8 {
		return 0, errors.New("codec: VInt header byte out of range")
	}

	magBuf := make([]byte, n)
	if _, err := io.ReadFull(r, magBuf); err != nil {
		return 0, err
	}

	var mag int64
	for _, mb := range magBuf {
		mag = (mag << 8) | int64(mb)
	}
	if negative {
		mag = ^mag
	}

	return mag, nil
}

// validateLength returns types.ErrNegativeLength if n is negative and is not the EOF
// sentinel; callers use this to distinguish a legitimate end-of-stream marker from
// stream corruption.
func validateLength(n int64) error {
	if n < 0 && n != EOF {
		return types.ErrNegativeLength
	}
	return nil
}
