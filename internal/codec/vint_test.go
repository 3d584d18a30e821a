package codec_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/scusemua/priter/internal/codec"
)

var _ = Describe("VInt", func() {
	It("round-trips positive, negative, and zero values", func() {
		values := []int64{0, 1, -1, 127, 128, -128, 300, codec.EOF, 1 << 40, -(1 << 40)}

		for _, v := range values {
			buf := &bytes.Buffer{}
			Expect(codec.WriteVInt(buf, v)).To(Succeed())

			decoded, err := codec.ReadVInt(buf)
			Expect(err).ToNot(HaveOccurred())
			Expect(decoded).To(Equal(v))
		}
	})

	It("encodes small magnitudes in a single byte", func() {
		buf := &bytes.Buffer{}
		Expect(codec.WriteVInt(buf, 5)).To(Succeed())
		Expect(buf.Len()).To(Equal(1))
	})

	// These byte sequences pin down the Hadoop WritableUtils VInt layout: a literal
	// byte for [-112, 127], else a header byte (sign + magnitude byte-count) followed
	// by the magnitude in big-endian order.
	It("matches the WritableUtils VInt byte layout exactly", func() {
		cases := []struct {
			value    int64
			expected []byte
		}{
			{codec.EOF, []byte{0xFF}},
			{0, []byte{0x00}},
			{127, []byte{0x7F}},
			{-112, []byte{0x90}},
			{128, []byte{0x8F, 0x80}},
			{-113, []byte{0x87, 0x70}},
		}

		for _, c := range cases {
			buf := &bytes.Buffer{}
			Expect(codec.WriteVInt(buf, c.value)).To(Succeed())
			Expect(buf.Bytes()).To(Equal(c.expected), "value=%d", c.value)

			decoded, err := codec.ReadVInt(bytes.NewReader(c.expected))
			Expect(err).ToNot(HaveOccurred())
			Expect(decoded).To(Equal(c.value))
		}
	})
})
