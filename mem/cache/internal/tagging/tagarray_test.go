package tagging

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/ndpsim/mem/mem"
)

var _ = Describe("TagArray", func() {
	var (
		decoder linearDecoder
		tags    *TagArray
	)

	newTags := func(numSets, numWays int, sectored bool) *TagArray {
		decoder = linearDecoder{lineSize: 128, numSets: numSets}

		return NewTagArray(Config{
			NumSets:        numSets,
			NumWays:        numWays,
			Sectored:       sectored,
			AllocateOnMiss: true,
			LineSize:       128,
			SectorSize:     32,
			Decoder:        decoder,
			VictimFinder:   NewLRUVictimFinder(),
		})
	}

	sectorOf := func(addr uint64) mem.SectorMask {
		return mem.SectorMaskOf(int(addr % 128 / 32))
	}

	install := func(addr, time uint64) int {
		status, idx, _ := tags.Access(addr, time, sectorOf(addr))
		Expect(status).To(Equal(Miss))
		tags.FillIndex(idx, time, sectorOf(addr))

		return idx
	}

	Context("line blocks", func() {
		BeforeEach(func() {
			tags = newTags(4, 2, false)
		})

		It("should place blocks by set", func() {
			Expect(tags.Size()).To(Equal(8))

			_, idx := tags.Probe(0x80, sectorOf(0x80))
			Expect(idx / 2).To(Equal(1))
		})

		It("should report a miss and then a pending hit", func() {
			status, idx, eviction := tags.Access(0x100, 1, sectorOf(0x100))
			Expect(status).To(Equal(Miss))
			Expect(eviction).To(BeNil())

			status, idx2, _ := tags.Access(0x104, 2, sectorOf(0x104))
			Expect(status).To(Equal(HitReserved))
			Expect(idx2).To(Equal(idx))

			tags.FillIndex(idx, 3, sectorOf(0x100))

			status, _, _ = tags.Access(0x108, 4, sectorOf(0x108))
			Expect(status).To(Equal(Hit))
			Expect(tags.Block(idx).LastAccessTime()).To(Equal(uint64(4)))

			c := tags.Counters()
			Expect(c.Access).To(Equal(uint64(3)))
			Expect(c.Miss).To(Equal(uint64(1)))
			Expect(c.PendingHit).To(Equal(uint64(1)))
		})

		It("should not change anything on probe", func() {
			status, idx := tags.Probe(0x100, sectorOf(0x100))
			Expect(status).To(Equal(Miss))
			Expect(tags.Block(idx).IsInvalidLine()).To(BeTrue())
			Expect(tags.Counters().Access).To(BeZero())
		})

		It("should fail reservation when every way is reserved", func() {
			tags.Access(0x000, 1, 1)
			tags.Access(0x200, 2, 1)

			status, idx, _ := tags.Access(0x400, 3, 1)

			Expect(status).To(Equal(ReservationFail))
			Expect(idx).To(Equal(-1))
			Expect(tags.Counters().ReservationFail).To(Equal(uint64(1)))
		})

		It("should report the modified victim", func() {
			idx := install(0x000, 1)
			tags.Block(idx).SetStatus(Modified, 1)
			install(0x200, 2)

			status, _, eviction := tags.Access(0x400, 3, 1)

			Expect(status).To(Equal(Miss))
			Expect(eviction).NotTo(BeNil())
			Expect(eviction.BlockAddr).To(Equal(uint64(0x000)))
			Expect(eviction.ModifiedSize).To(Equal(uint64(128)))
			Expect(eviction.DirtyMask).To(Equal(mem.FullSectorMask))
		})

		It("should keep tags unique within a set", func() {
			addrs := []uint64{0x000, 0x200, 0x000, 0x400, 0x200, 0x000}
			for i, a := range addrs {
				status, idx, _ := tags.Access(a, uint64(i), 1)
				if status == Miss {
					tags.FillIndex(idx, uint64(i), 1)
				}
			}

			seen := map[uint64]bool{}
			for way := 0; way < 2; way++ {
				b := tags.Block(way)
				if b.IsInvalidLine() {
					continue
				}
				Expect(seen[b.Tag()]).To(BeFalse())
				seen[b.Tag()] = true
			}
		})

		It("should allocate on fill by address", func() {
			idx := tags.Fill(0x180, 5, 1)

			Expect(tags.Block(idx).IsValidLine()).To(BeTrue())

			status, _ := tags.Probe(0x180, 1)
			Expect(status).To(Equal(Hit))
		})

		It("should invalidate every block", func() {
			install(0x000, 1)

			tags.Invalidate()

			status, _ := tags.Probe(0x000, 1)
			Expect(status).To(Equal(Miss))
		})
	})

	Context("eviction order", func() {
		It("should evict the least recently used block", func() {
			tags = newTags(1, 3, false)

			a := install(0x000, 1)
			b := install(0x080, 2)
			install(0x100, 3)

			status, _, _ := tags.Access(0x000, 4, 1)
			Expect(status).To(Equal(Hit))

			status, idx, _ := tags.Access(0x180, 5, 1)
			Expect(status).To(Equal(Miss))
			Expect(idx).To(Equal(b))
			Expect(idx).NotTo(Equal(a))
		})
	})

	Context("sector blocks", func() {
		BeforeEach(func() {
			tags = newTags(4, 2, true)
		})

		It("should report a sector miss on a partially present line", func() {
			install(0x000, 1)

			status, _, _ := tags.Access(0x020, 2, sectorOf(0x020))

			Expect(status).To(Equal(SectorMiss))
			Expect(tags.Counters().SectorMiss).To(Equal(uint64(1)))
		})

		It("should report a sector miss on an unreadable modified sector", func() {
			idx := install(0x000, 1)
			tags.Block(idx).SetStatus(Modified, sectorOf(0x000))
			tags.Block(idx).SetReadable(false, sectorOf(0x000))

			status, _ := tags.Probe(0x000, sectorOf(0x000))

			Expect(status).To(Equal(SectorMiss))
		})

		It("should only write back the modified sectors", func() {
			idx := install(0x000, 1)
			tags.Block(idx).SetStatus(Modified, sectorOf(0x000))
			install(0x200, 2)

			_, _, eviction := tags.Access(0x400, 3, 1)

			Expect(eviction.ModifiedSize).To(Equal(uint64(32)))
			Expect(eviction.DirtyMask).To(Equal(mem.SectorMaskOf(0)))
		})
	})

	It("should panic if every way is reserved under allocate on fill", func() {
		decoder = linearDecoder{lineSize: 128, numSets: 1}
		tags = NewTagArray(Config{
			NumSets: 1, NumWays: 1, LineSize: 128, Decoder: decoder,
		})
		tags.Block(0).Allocate(0, 0, 1, 1)

		Expect(func() { tags.Probe(0x80, 1) }).To(Panic())
	})
})
