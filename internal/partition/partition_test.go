package partition_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/scusemua/priter/internal/partition"
)

var _ = Describe("HashPartitioner", func() {
	It("is deterministic for a given key", func() {
		p := partition.NewHashPartitioner(7)
		first := p.Partition("vertex-42")
		for i := 0; i < 10; i++ {
			Expect(p.Partition("vertex-42")).To(Equal(first))
		}
	})

	It("always returns a value in [0, numPartitions)", func() {
		p := partition.NewHashPartitioner(5)
		Expect(p.NumPartitions()).To(Equal(5))
		for _, key := range []string{"a", "b", "c", "d", "vertex-1", "vertex-2", ""} {
			part := p.Partition(key)
			Expect(part).To(BeNumerically(">=", 0))
			Expect(part).To(BeNumerically("<", 5))
		}
	})

	It("clamps a non-positive partition count to 1", func() {
		p := partition.NewHashPartitioner(0)
		Expect(p.NumPartitions()).To(Equal(1))
		Expect(p.Partition("anything")).To(Equal(0))
	})

	It("spreads distinct keys across more than one partition", func() {
		p := partition.NewHashPartitioner(4)
		seen := map[int]bool{}
		for i := 0; i < 100; i++ {
			seen[p.Partition(string(rune('a'+i%26))+string(rune(i)))] = true
		}
		Expect(len(seen)).To(BeNumerically(">", 1))
	})
})
