package codec

import "github.com/klauspost/compress/s2"

// compressBlock compresses an entire frame body in one shot using s2, klauspost/compress's
// snappy-compatible block format. Block (rather than streaming) compression keeps the
// trailing-checksum framing simple: one length-prefixed blob, one CRC-32 over that blob.
func compressBlock(data []byte) []byte {
	return s2.Encode(nil, data)
}

// decompressBlock reverses compressBlock.
func decompressBlock(data []byte) ([]byte, error) {
	return s2.Decode(nil, data)
}
