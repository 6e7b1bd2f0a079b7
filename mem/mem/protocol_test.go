package mem

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("SectorMask", func() {
	It("should count and test sectors", func() {
		m := SectorMaskOf(0) | SectorMaskOf(2)

		Expect(m.Count()).To(Equal(2))
		Expect(m.Test(2)).To(BeTrue())
		Expect(m.Test(1)).To(BeFalse())
		Expect(FullSectorMask.Count()).To(Equal(SectorChunkSize))
	})

	It("should find the only sector", func() {
		Expect(SectorMaskOf(3).Index()).To(Equal(3))
	})

	It("should panic when the mask has more than one sector", func() {
		Expect(func() { FullSectorMask.Index() }).To(Panic())
		Expect(func() { SectorMask(0).Index() }).To(Panic())
	})
})

var _ = Describe("Fetch", func() {
	It("should derive the sector from the address", func() {
		f := FetchBuilder{}.
			WithAddress(0x1040).
			WithByteSize(32).
			WithType(ReadRequest).
			Build()

		Expect(f.SectorMask).To(Equal(SectorMaskOf(2)))
		Expect(f.IsWrite()).To(BeFalse())
		Expect(f.IsRequest()).To(BeTrue())
	})

	It("should use the configured access size", func() {
		f := FetchBuilder{}.
			WithAddress(0x40).
			WithMemAccessSize(64).
			Build()

		Expect(f.SectorMask).To(Equal(SectorMaskOf(1)))
	})

	It("should give fetches unique ids", func() {
		a := FetchBuilder{}.Build()
		b := FetchBuilder{}.Build()

		Expect(a.ID).NotTo(Equal(b.ID))
	})

	It("should fill the byte mask of a write", func() {
		f := FetchBuilder{}.
			WithAddress(0x104).
			WithByteSize(4).
			WithType(WriteRequest).
			Build()

		Expect(f.ByteMask).To(HaveLen(128))
		Expect(f.ByteMaskCount()).To(Equal(uint64(4)))
		Expect(f.ByteMask[4]).To(BeTrue())
		Expect(f.ByteMask[8]).To(BeFalse())
	})

	It("should turn into a reply", func() {
		f := FetchBuilder{}.WithType(WriteRequest).WithByteSize(8).Build()

		f.SetReply()

		Expect(f.Type).To(Equal(WriteAck))
		Expect(f.IsWrite()).To(BeTrue())
		Expect(func() { f.SetReply() }).To(Panic())
	})

	It("should count data on the link only when carried", func() {
		f := FetchBuilder{}.
			WithType(ReadRequest).
			WithByteSize(32).
			WithCtrlSize(8).
			Build()

		Expect(f.Size()).To(Equal(uint64(8)))

		f.SetReply()

		Expect(f.Size()).To(Equal(uint64(40)))
	})

	It("should split into sectors", func() {
		f := FetchBuilder{}.
			WithAddress(0x100).
			WithByteSize(128).
			WithType(ReadRequest).
			Build()
		f.Data = make([]byte, 128)
		f.Data[32] = 7

		subs := f.SplitSectors(32)

		Expect(subs).To(HaveLen(4))
		for i, s := range subs {
			Expect(s.OriginalID).To(Equal(f.ID))
			Expect(s.ID).NotTo(Equal(f.ID))
			Expect(s.Address).To(Equal(uint64(0x100 + 32*i)))
			Expect(s.DataSize).To(Equal(uint64(32)))
			Expect(s.SectorMask).To(Equal(SectorMaskOf(i)))
		}
		Expect(subs[1].Data[0]).To(Equal(byte(7)))
	})
})
