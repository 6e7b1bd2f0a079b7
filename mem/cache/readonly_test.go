package cache

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/ndpsim/mem/cache/internal/tagging"
	"github.com/sarchlab/ndpsim/mem/mem"
)

var _ = Describe("ReadOnlyCache", func() {
	var (
		mockCtrl *gomock.Controller
		toMem    *MockMemQueue
		c        *ReadOnlyCache
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		toMem = NewMockMemQueue(mockCtrl)

		var err error
		c, err = MakeBuilder().
			WithName("L1I").
			WithDescriptor("N:4:64:2,L:R:m:N:L,A:8:2,4:0,64").
			WithMemQueue(toMem).
			BuildReadOnly()
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should panic on writes", func() {
		Expect(func() {
			c.Access(0x100, 1, writeFetch(0x100, []byte{1}))
		}).To(Panic())
	})

	It("should panic on reads larger than a line", func() {
		Expect(func() {
			c.Access(0x100, 1, readFetch(0x100, 128))
		}).To(Panic())
	})

	It("should send a miss below", func() {
		req := readFetch(0x1004, 4)

		status, events := c.Access(0x1004, 1, req)

		Expect(status).To(Equal(Miss))
		Expect(WasReadSent(events)).To(BeTrue())
		Expect(c.WaitingForFill(req)).To(BeTrue())

		sent := drainMissQueue(c.Cache)
		Expect(sent).To(ConsistOf(req))
		Expect(req.Address).To(Equal(uint64(0x1000)))
		Expect(req.DataSize).To(Equal(uint64(64)))

		state, found := c.BlockState(0x1000, req.SectorMask)
		Expect(found).To(BeTrue())
		Expect(state).To(Equal(tagging.Reserved))
	})

	It("should hit after the fill", func() {
		req := readFetch(0x1004, 4)
		c.Access(0x1004, 1, req)
		drainMissQueue(c.Cache)

		c.Fill(replyTo(req, pattern(0, 64)), 10)

		Expect(c.WaitingForFill(req)).To(BeFalse())
		Expect(c.AccessReady()).To(BeTrue())
		Expect(c.TopNextAccess()).To(BeIdenticalTo(req))
		Expect(c.PopNextAccess()).To(BeIdenticalTo(req))
		Expect(c.AccessReady()).To(BeFalse())
		Expect(req.Address).To(Equal(uint64(0x1004)))
		Expect(req.DataSize).To(Equal(uint64(4)))
		Expect(req.Data).To(Equal([]byte{4, 5, 6, 7}))

		hit := readFetch(0x1010, 8)
		status, events := c.Access(0x1010, 11, hit)

		Expect(status).To(Equal(Hit))
		Expect(events).To(BeEmpty())
		Expect(hit.Data).To(Equal(pattern(16, 8)))
		Expect(c.Stats().Get(mem.GlobalAccR, Hit)).To(Equal(uint64(1)))
		Expect(c.Stats().Get(mem.GlobalAccR, Miss)).To(Equal(uint64(1)))
	})

	It("should merge misses to a pending line", func() {
		first := readFetch(0x1000, 4)
		second := readFetch(0x1020, 4)

		c.Access(0x1000, 1, first)
		status, events := c.Access(0x1020, 2, second)

		Expect(status).To(Equal(Miss))
		Expect(events).To(BeEmpty())
		Expect(c.MissQueueLen()).To(Equal(1))
		Expect(c.Stats().Get(mem.GlobalAccR, HitReserved)).
			To(Equal(uint64(1)))
		Expect(c.Stats().Get(mem.GlobalAccR, MSHRHit)).To(Equal(uint64(1)))

		c.Fill(replyTo(first, pattern(0x40, 64)), 5)

		Expect(c.PopNextAccess()).To(BeIdenticalTo(first))
		Expect(c.PopNextAccess()).To(BeIdenticalTo(second))
		Expect(second.Data).To(Equal(pattern(0x60, 4)))
	})

	It("should fail when the MSHR entry cannot merge more", func() {
		c.Access(0x1000, 1, readFetch(0x1000, 4))
		c.Access(0x1004, 2, readFetch(0x1004, 4))

		req := readFetch(0x1008, 4)
		status, _ := c.Access(0x1008, 3, req)

		Expect(status).To(Equal(ReservationFail))
		Expect(req.CurrentState).To(Equal("MSHR_MERGE_ENTRY_FAIL"))
		Expect(c.Stats().GetFail(mem.GlobalAccR, MSHRMergeEntryFail)).
			To(Equal(uint64(1)))
	})

	It("should fail when every way of the set is reserved", func() {
		c.Access(0x000, 1, readFetch(0x000, 4))
		c.Access(0x100, 2, readFetch(0x100, 4))

		req := readFetch(0x200, 4)
		status, _ := c.Access(0x200, 3, req)

		Expect(status).To(Equal(ReservationFail))
		Expect(c.Stats().GetFail(mem.GlobalAccR, LineAllocFail)).
			To(Equal(uint64(1)))
	})

	It("should fail when the miss queue is full", func() {
		for i := uint64(0); i < 5; i++ {
			status, _ := c.Access(i*0x40, i, readFetch(i*0x40, 4))
			Expect(status).To(Equal(Miss))
		}

		req := readFetch(0x140, 4)
		status, _ := c.Access(0x140, 6, req)

		Expect(status).To(Equal(ReservationFail))
		Expect(req.CurrentState).To(Equal("MISS_QUEUE_FULL"))
		Expect(c.Stats().GetFail(mem.GlobalAccR, MissQueueFull)).
			To(Equal(uint64(1)))
	})

	It("should send one queued request per cycle", func() {
		first := readFetch(0x000, 4)
		second := readFetch(0x040, 4)
		c.Access(0x000, 1, first)
		c.Access(0x040, 1, second)

		toMem.EXPECT().Full().Return(true)
		c.Cycle()
		Expect(c.MissQueueLen()).To(Equal(2))

		toMem.EXPECT().Full().Return(false)
		toMem.EXPECT().Push(first)
		c.Cycle()
		Expect(c.MissQueueLen()).To(Equal(1))

		toMem.EXPECT().Full().Return(false)
		toMem.EXPECT().Push(second)
		c.Cycle()
		Expect(c.MissQueueLen()).To(Equal(0))

		c.Cycle()
	})

	It("should invalidate every line", func() {
		req := readFetch(0x1000, 4)
		c.Access(0x1000, 1, req)
		c.Fill(replyTo(req, pattern(0, 64)), 2)
		c.PopNextAccess()

		c.Invalidate()

		_, found := c.BlockState(0x1000, req.SectorMask)
		Expect(found).To(BeFalse())

		status, _ := c.Access(0x1000, 3, readFetch(0x1000, 4))
		Expect(status).To(Equal(Miss))
	})

	It("should install lines without a fetch", func() {
		req := readFetch(0x2000, 4)

		c.ForceTagAccess(0x2000, 1, req.SectorMask)

		status, _ := c.Access(0x2000, 2, req)
		Expect(status).To(Equal(Hit))
		Expect(c.MissQueueLen()).To(Equal(0))
	})

	It("should panic on a fill nobody waits for", func() {
		Expect(func() {
			c.Fill(replyTo(readFetch(0x1000, 4), nil), 1)
		}).To(Panic())
	})
})
