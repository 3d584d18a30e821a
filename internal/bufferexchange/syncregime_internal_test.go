package bufferexchange

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("streamSyncRegime", func() {
	It("fires in strict mode only once every input has arrived", func() {
		r := newStreamSyncRegime(SyncStrict, 3, 0, time.Second)
		defer r.Stop()

		r.Arrived(0)
		r.Arrived(1)

		Consistently(r.Fire(), 50*time.Millisecond).ShouldNot(Receive())

		r.Arrived(2)
		Eventually(r.Fire(), time.Second).Should(Receive())
	})

	It("fires in async-by-self mode as soon as the reducer's own partition arrives", func() {
		r := newStreamSyncRegime(SyncAsyncBySelf, 3, 2, time.Second)
		defer r.Stop()

		r.Arrived(0)
		Consistently(r.Fire(), 50*time.Millisecond).ShouldNot(Receive())

		r.Arrived(2)
		Eventually(r.Fire(), time.Second).Should(Receive())
	})

	It("fires in async-by-time mode once the idle threshold elapses with buffered input", func() {
		r := newStreamSyncRegime(SyncAsyncByTime, 3, 0, 100*time.Millisecond)
		defer r.Stop()

		r.Arrived(0)
		Eventually(r.Fire(), time.Second).Should(Receive())
	})

	It("resets the successful set at iteration boundaries", func() {
		r := newStreamSyncRegime(SyncStrict, 2, 0, time.Second)
		defer r.Stop()

		r.Arrived(0)
		r.Arrived(1)
		Eventually(r.Fire(), time.Second).Should(Receive())

		r.ResetIteration()
		r.Arrived(0)
		Consistently(r.Fire(), 50*time.Millisecond).ShouldNot(Receive())
	})
})
