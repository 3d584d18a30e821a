package reduceside_test

import (
	"bytes"
	"strconv"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/scusemua/priter/internal/codec"
	"github.com/scusemua/priter/internal/reduceside"
)

// scalarCodec treats iState/cState as decimal-encoded float64 strings: Combine sums,
// Update adds iState into cState and self-loops the same delta, Priority/Numeric parse
// the float directly.
type scalarCodec struct{}

func encodeF(f float64) []byte { return []byte(strconv.FormatFloat(f, 'f', -1, 64)) }

func decodeF(b []byte) float64 {
	if len(b) == 0 {
		return 0
	}
	f, _ := strconv.ParseFloat(string(b), 64)
	return f
}

func (scalarCodec) Combine(existing, delta []byte) []byte {
	return encodeF(decodeF(existing) + decodeF(delta))
}

func (scalarCodec) Update(_ reduceside.Key, iState, cState []byte) ([]byte, []byte) {
	newCState := encodeF(decodeF(cState) + decodeF(iState))
	return newCState, iState
}

func (scalarCodec) Priority(iState []byte) float64 { return decodeF(iState) }
func (scalarCodec) Numeric(cState []byte) float64  { return decodeF(cState) }

var _ = Describe("PriorityStateEngine", func() {
	var engine *reduceside.PriorityStateEngine

	BeforeEach(func() {
		engine = reduceside.NewPriorityStateEngine(scalarCodec{}, reduceside.SelectionPolicy{FixedLength: 2}, 16)
	})

	It("buffers a delta for a key with no static data and replays it once loaded", func() {
		engine.MergeDelta("k1", encodeF(5))

		activations := engine.SelectActivation()
		Expect(activations).To(BeEmpty())

		engine.LoadStaticData("k1", []byte("static"))

		activations = engine.SelectActivation()
		Expect(activations).To(HaveLen(1))
		Expect(decodeF(activations[0].IState)).To(Equal(5.0))
	})

	It("selects a fixed-length top-priority subset and resets iState on selected keys", func() {
		engine.LoadStaticData("a", []byte("s"))
		engine.LoadStaticData("b", []byte("s"))
		engine.LoadStaticData("c", []byte("s"))

		engine.MergeDelta("a", encodeF(1))
		engine.MergeDelta("b", encodeF(3))
		engine.MergeDelta("c", encodeF(2))

		activations := engine.SelectActivation()
		Expect(activations).To(HaveLen(2))
		Expect(activations[0].Key).To(Equal("b"))
		Expect(activations[1].Key).To(Equal("c"))

		// a reselection should now omit b and c's reset iState, leaving only "a"
		second := engine.SelectActivation()
		Expect(second).To(HaveLen(1))
		Expect(second[0].Key).To(Equal("a"))
	})

	It("breaks priority ties by ascending key", func() {
		engine.LoadStaticData("z", []byte("s"))
		engine.LoadStaticData("y", []byte("s"))

		engine.MergeDelta("z", encodeF(5))
		engine.MergeDelta("y", encodeF(5))

		activations := engine.SelectActivation()
		Expect(activations).To(HaveLen(2))
		Expect(activations[0].Key).To(Equal("y"))
		Expect(activations[1].Key).To(Equal("z"))
	})

	It("folds iState into cState via Update and returns the self-loop delta", func() {
		engine.LoadStaticData("k", []byte("s"))
		engine.MergeDelta("k", encodeF(4))

		activations := engine.SelectActivation()
		Expect(activations).To(HaveLen(1))

		delta := engine.Update(activations[0].Key, activations[0].IState)
		Expect(decodeF(delta)).To(Equal(4.0))

		writer := codec.NewWriter(codec.StaticRec, false)
		_, sampled, err := engine.Snapshot(10, writer)
		Expect(err).ToNot(HaveOccurred())
		Expect(sampled["k"]).To(Equal(4.0))

		sink := &bytes.Buffer{}
		Expect(writer.Close(sink)).To(Succeed())
	})

	It("reports convergence once consecutive snapshots fall within stopDifference", func() {
		engine.LoadStaticData("k", []byte("s"))
		engine.MergeDelta("k", encodeF(1))
		engine.Update("k", encodeF(1))

		w1 := codec.NewWriter(codec.StaticRec, false)
		_, _, err := engine.Snapshot(10, w1)
		Expect(err).ToNot(HaveOccurred())
		Expect(engine.CheckDone(0.5, time.Hour, time.Now())).To(BeFalse())

		w2 := codec.NewWriter(codec.StaticRec, false)
		_, _, err = engine.Snapshot(10, w2)
		Expect(err).ToNot(HaveOccurred())
		Expect(engine.CheckDone(0.001, time.Hour, time.Now())).To(BeTrue())
	})

	It("reports convergence once stopMaxTime has elapsed regardless of state", func() {
		Expect(engine.CheckDone(0.0, time.Millisecond, time.Now().Add(-time.Second))).To(BeTrue())
	})

	It("treats a zero or negative stopMaxTime as no hard cap", func() {
		engine.LoadStaticData("k", []byte("s"))
		engine.MergeDelta("k", encodeF(1))
		engine.Update("k", encodeF(1))

		w1 := codec.NewWriter(codec.StaticRec, false)
		_, _, err := engine.Snapshot(10, w1)
		Expect(err).ToNot(HaveOccurred())

		longAgo := time.Now().Add(-24 * time.Hour)
		Expect(engine.CheckDone(0.5, 0, longAgo)).To(BeFalse())
		Expect(engine.CheckDone(0.5, -time.Second, longAgo)).To(BeFalse())
	})

	It("sizes portion-based selection off the full keyspace, not the active-candidate count", func() {
		// graphNodes=20, Portion=0.5 => bound of 10, but only 4 keys are currently
		// active. A bound computed off the 4 active candidates (0.5*4=2) would select
		// only half of them; sizing off the full 20-key graph selects all 4.
		portionEngine := reduceside.NewPriorityStateEngine(
			scalarCodec{}, reduceside.SelectionPolicy{Portion: 0.5}, 20)

		for _, k := range []string{"a", "b", "c", "d"} {
			portionEngine.LoadStaticData(k, []byte("s"))
		}
		portionEngine.MergeDelta("a", encodeF(1))
		portionEngine.MergeDelta("b", encodeF(2))
		portionEngine.MergeDelta("c", encodeF(3))
		portionEngine.MergeDelta("d", encodeF(4))

		activations := portionEngine.SelectActivation()
		Expect(activations).To(HaveLen(4))
	})
})
