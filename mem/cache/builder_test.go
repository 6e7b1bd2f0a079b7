package cache

import (
	"bytes"
	"log"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/ndpsim/mem/mem"
)

var _ = Describe("Builder", func() {
	var (
		mockCtrl *gomock.Controller
		toMem    *MockMemQueue
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		toMem = NewMockMemQueue(mockCtrl)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should log the geometry", func() {
		var buf bytes.Buffer

		c, err := MakeBuilder().
			WithName("L2").
			WithDescriptor("N:64:128:16,L:B:m:W:L,A:32:8,8:0,32").
			WithMemQueue(toMem).
			WithLogger(log.New(&buf, "", 0)).
			BuildDataCache()

		Expect(err).NotTo(HaveOccurred())
		Expect(c.Name()).To(Equal("L2"))
		Expect(buf.String()).To(Equal(
			"L2: cache set: 64, line_size: 128, assoc: 16, " +
				"total size: 128KB\n"))
	})

	It("should size the miss queue for one access worth of requests", func() {
		c, err := MakeBuilder().
			WithDescriptor("N:2:256:1,L:B:m:L:L,A:4:2,8:0,256").
			WithPacketSize(64).
			WithMemQueue(toMem).
			BuildDataCache()

		Expect(err).NotTo(HaveOccurred())
		Expect(c.MissQueue().Capacity()).To(Equal(8 + 4 + 2))
	})

	It("should take a parsed configuration", func() {
		config := MustParseConfig("S:16:64:2,L:B:m:L:L,A:4:2").
			WithMemAccessSize(16)

		c, err := MakeBuilder().
			WithConfig(config).
			WithMemQueue(toMem).
			BuildDataCache()

		Expect(err).NotTo(HaveOccurred())
		Expect(c.Config().AtomSize()).To(Equal(uint64(16)))
		Expect(c.Config().MissQueueSize).To(Equal(4))
	})

	It("should override the sector size of a descriptor", func() {
		c, err := MakeBuilder().
			WithDescriptor("S:16:64:2,L:B:m:L:L,A:4:2").
			WithMemAccessSize(16).
			WithMemQueue(toMem).
			BuildReadOnly()

		Expect(err).NotTo(HaveOccurred())
		Expect(c.Config().MemAccessSize).To(Equal(uint64(16)))
	})

	It("should share statistics between caches", func() {
		stats := NewStats()
		builder := MakeBuilder().
			WithDescriptor("N:4:64:2,L:R:m:N:L,A:4:2").
			WithMemQueue(toMem).
			WithStats(stats)

		a, _ := builder.WithName("A").BuildReadOnly()
		b, _ := builder.WithName("B").WithCoreID(1).BuildReadOnly()

		a.Access(0x0, 1, readFetch(0x0, 4))
		b.Access(0x0, 1, readFetch(0x0, 4))

		Expect(stats.Get(mem.GlobalAccR, Miss)).To(Equal(uint64(2)))
	})

	DescribeTable("should refuse to build",
		func(b Builder) {
			_, err := b.BuildReadOnly()
			Expect(err).To(HaveOccurred())
		},
		Entry("a malformed descriptor", MakeBuilder().
			WithDescriptor("N:4").
			WithMemQueue(NewMockMemQueue(nil))),
		Entry("without a memory queue", MakeBuilder().
			WithDescriptor("N:4:64:2,L:R:m:N:L,A:4:2")),
		Entry("a sector cache of the wrong line size", MakeBuilder().
			WithDescriptor("S:4:64:2,L:R:m:N:L,A:4:2").
			WithMemQueue(NewMockMemQueue(nil))),
		Entry("a custom set function that is missing", MakeBuilder().
			WithDescriptor("N:4:64:2,L:R:m:N:C,A:4:2").
			WithMemQueue(NewMockMemQueue(nil))),
	)
})
