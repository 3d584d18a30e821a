package bufferexchange_test

import (
	"fmt"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/scusemua/priter/internal/bufferexchange"
)

type collectedBatch struct {
	header  interface{}
	payload []byte
}

func collectingOnBatch(mu *sync.Mutex, out *[]collectedBatch) bufferexchange.OnBatch {
	return func(header interface{}, payload []byte) {
		mu.Lock()
		defer mu.Unlock()
		*out = append(*out, collectedBatch{header: header, payload: payload})
	}
}

var _ = Describe("Sink and Source", func() {
	var (
		mu      sync.Mutex
		batches []collectedBatch
	)

	BeforeEach(func() {
		mu = sync.Mutex{}
		batches = nil
	})

	newSink := func(bufferType bufferexchange.BufferType) *bufferexchange.Sink {
		sink, err := bufferexchange.NewSink(bufferType, "task-0", nil, 20000, func() *bufferexchange.Handler {
			return bufferexchange.NewHandler(bufferType, collectingOnBatch(&mu, &batches), nil, 0, nil)
		})
		Expect(err).ToNot(HaveOccurred())
		go func() { _ = sink.Serve() }()
		return sink
	}

	It("transfers a FILE batch and ignores a replayed one", func() {
		sink := newSink(bufferexchange.FILE)
		defer func() { _ = sink.Close() }()

		source := bufferexchange.NewSource(bufferexchange.BufferRequest{
			DestAddr:   sink.Addr().String(),
			BufferType: bufferexchange.FILE,
		}, 3)
		defer func() { _ = source.Close() }()

		header := &bufferexchange.FileHeader{Owner: "m0", FirstId: 0, LastId: 0}
		Expect(source.SendBatch(header, []byte("payload-0"))).To(Succeed())

		Eventually(func() int {
			mu.Lock()
			defer mu.Unlock()
			return len(batches)
		}, time.Second).Should(Equal(1))

		// A replay of the same run should be accepted as IGNORE, not an error, and
		// must not invoke onBatch again.
		Expect(source.SendBatch(header, []byte("payload-0"))).To(Succeed())

		Consistently(func() int {
			mu.Lock()
			defer mu.Unlock()
			return len(batches)
		}, 200*time.Millisecond).Should(Equal(1))
	})

	It("treats a SNAPSHOT replay at the same progress as idempotent", func() {
		sink := newSink(bufferexchange.SNAPSHOT)
		defer func() { _ = sink.Close() }()

		source := bufferexchange.NewSource(bufferexchange.BufferRequest{
			DestAddr:   sink.Addr().String(),
			BufferType: bufferexchange.SNAPSHOT,
		}, 3)
		defer func() { _ = source.Close() }()

		header := &bufferexchange.SnapshotHeader{Owner: "r0", Progress: 0.5}
		Expect(source.SendBatch(header, []byte("dump-1"))).To(Succeed())

		Eventually(func() int {
			mu.Lock()
			defer mu.Unlock()
			return len(batches)
		}, time.Second).Should(Equal(1))

		Expect(source.SendBatch(header, []byte("dump-1-replay"))).To(Succeed())

		Consistently(func() int {
			mu.Lock()
			defer mu.Unlock()
			return len(batches)
		}, 200*time.Millisecond).Should(Equal(1))

		advanced := &bufferexchange.SnapshotHeader{Owner: "r0", Progress: 0.75}
		Expect(source.SendBatch(advanced, []byte("dump-2"))).To(Succeed())

		Eventually(func() int {
			mu.Lock()
			defer mu.Unlock()
			return len(batches)
		}, time.Second).Should(Equal(2))
	})

	It("rejects connections beyond maxConnections with CONNECTIONS_FULL", func() {
		sink, err := bufferexchange.NewSink(bufferexchange.PKVBUF, "task-1", nil, 1, func() *bufferexchange.Handler {
			return bufferexchange.NewHandler(bufferexchange.PKVBUF, collectingOnBatch(&mu, &batches), nil, 0, nil)
		})
		Expect(err).ToNot(HaveOccurred())
		go func() { _ = sink.Serve() }()
		defer func() { _ = sink.Close() }()

		blocking := bufferexchange.NewSource(bufferexchange.BufferRequest{
			DestAddr:   sink.Addr().String(),
			BufferType: bufferexchange.PKVBUF,
		}, 0)
		defer func() { _ = blocking.Close() }()
		Expect(blocking.SendBatch(&bufferexchange.PKVBufferHeader{Iteration: 0}, []byte("a"))).To(Succeed())

		// The first connection is held open by the Source not calling Close, so a
		// second Source dialing in should be refused once the Sink has accepted and
		// is servicing the first connection's handler goroutine.
		overflow := bufferexchange.NewSource(bufferexchange.BufferRequest{
			DestAddr:   sink.Addr().String(),
			BufferType: bufferexchange.PKVBUF,
		}, 0)
		defer func() { _ = overflow.Close() }()

		err = overflow.SendBatch(&bufferexchange.PKVBufferHeader{Iteration: 0}, []byte("b"))
		Expect(err).To(HaveOccurred())
		Expect(fmt.Sprintf("%v", err)).To(ContainSubstring("maximum connection count"))
	})
})
