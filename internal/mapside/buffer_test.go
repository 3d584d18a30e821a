package mapside_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/scusemua/priter/internal/bufferexchange"
	"github.com/scusemua/priter/internal/mapside"
)

var _ = Describe("InputPKVBuffer", func() {
	It("accepts a batch that is not behind the current iteration and enqueues its records", func() {
		buf := mapside.NewInputPKVBuffer(8)

		accepted := buf.Read(&bufferexchange.PKVBufferHeader{Iteration: 0}, []mapside.PKVPair{
			{Key: "a", IState: []byte("1")},
			{Key: "b", IState: []byte("2")},
		})
		Expect(accepted).To(BeTrue())
		Expect(buf.Iteration()).To(Equal(int64(0)))

		pair, ok := buf.Next()
		Expect(ok).To(BeTrue())
		Expect(pair.Key).To(Equal("a"))

		pair, ok = buf.Next()
		Expect(ok).To(BeTrue())
		Expect(pair.Key).To(Equal("b"))

		_, ok = buf.Next()
		Expect(ok).To(BeFalse())
	})

	It("rejects a batch behind the current iteration", func() {
		buf := mapside.NewInputPKVBuffer(8)
		Expect(buf.Read(&bufferexchange.PKVBufferHeader{Iteration: 2}, []mapside.PKVPair{{Key: "a"}})).To(BeTrue())
		Expect(buf.Read(&bufferexchange.PKVBufferHeader{Iteration: 1}, []mapside.PKVPair{{Key: "stale"}})).To(BeFalse())

		pair, ok := buf.Next()
		Expect(ok).To(BeTrue())
		Expect(pair.Key).To(Equal("a"))
	})

	It("accepts two same-iteration batches from different reduce partitions", func() {
		// A job with more than one reduce partition fans activation batches for the
		// same iteration into one map task's buffer from multiple PKVBUF sources; the
		// second source's batch must not be rejected as stale just because an earlier
		// source already delivered that iteration's records.
		buf := mapside.NewInputPKVBuffer(8)

		Expect(buf.Read(&bufferexchange.PKVBufferHeader{Iteration: 3}, []mapside.PKVPair{
			{Key: "from-partition-0"},
		})).To(BeTrue())
		Expect(buf.Iteration()).To(Equal(int64(3)))

		Expect(buf.Read(&bufferexchange.PKVBufferHeader{Iteration: 3}, []mapside.PKVPair{
			{Key: "from-partition-1"},
		})).To(BeTrue())
		Expect(buf.Iteration()).To(Equal(int64(3)))

		pair, ok := buf.Next()
		Expect(ok).To(BeTrue())
		Expect(pair.Key).To(Equal("from-partition-0"))

		pair, ok = buf.Next()
		Expect(ok).To(BeTrue())
		Expect(pair.Key).To(Equal("from-partition-1"))
	})

	It("clears buffered records on Free without closing the buffer", func() {
		buf := mapside.NewInputPKVBuffer(8)
		Expect(buf.Read(&bufferexchange.PKVBufferHeader{Iteration: 0}, []mapside.PKVPair{
			{Key: "a"}, {Key: "b"},
		})).To(BeTrue())

		buf.Free()
		_, ok := buf.Next()
		Expect(ok).To(BeFalse())

		Expect(buf.Read(&bufferexchange.PKVBufferHeader{Iteration: 1}, []mapside.PKVPair{{Key: "c"}})).To(BeTrue())
		pair, ok := buf.Next()
		Expect(ok).To(BeTrue())
		Expect(pair.Key).To(Equal("c"))
	})
})
