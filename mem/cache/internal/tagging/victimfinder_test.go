package tagging

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/ndpsim/mem/mem"
)

var _ = Describe("VictimFinder", func() {
	var set []Block

	BeforeEach(func() {
		set = []Block{NewLineBlock(128), NewLineBlock(128), NewLineBlock(128)}

		set[0].Allocate(0x000, 0x000, 1, mem.SectorMaskOf(0))
		set[0].Fill(2, 0)
		set[0].SetLastAccessTime(10, 0)

		set[1].Allocate(0x080, 0x080, 3, mem.SectorMaskOf(0))
		set[1].Fill(4, 0)
		set[1].SetLastAccessTime(5, 0)
	})

	It("should prefer an invalid block", func() {
		way, ok := NewLRUVictimFinder().FindVictim(set)

		Expect(ok).To(BeTrue())
		Expect(way).To(Equal(2))
	})

	It("should pick the least recently used block", func() {
		set[2].Allocate(0x100, 0x100, 6, 0)
		set[2].Fill(7, 0)

		way, _ := NewLRUVictimFinder().FindVictim(set)

		Expect(way).To(Equal(1))
	})

	It("should pick the first allocated block", func() {
		set[2].Allocate(0x100, 0x100, 6, 0)
		set[2].Fill(7, 0)

		way, _ := NewFIFOVictimFinder().FindVictim(set)

		Expect(way).To(Equal(0))
	})

	It("should skip reserved blocks", func() {
		set[2].Allocate(0x100, 0x100, 6, 0)

		way, _ := NewFIFOVictimFinder().FindVictim(set)

		Expect(way).To(Equal(0))
	})

	It("should fail when every block is reserved", func() {
		for _, b := range set {
			b.Allocate(0x200, 0x200, 8, 0)
		}

		_, ok := NewLRUVictimFinder().FindVictim(set)

		Expect(ok).To(BeFalse())
	})
})
