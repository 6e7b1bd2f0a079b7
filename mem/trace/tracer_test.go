package trace

import (
	"bytes"
	"context"
	"log"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/ndpsim/datarecording"
	"github.com/sarchlab/ndpsim/mem/cache"
	"github.com/sarchlab/ndpsim/mem/idealmemory"
	"github.com/sarchlab/ndpsim/mem/mem"
)

func read(addr, size uint64) *mem.Fetch {
	return mem.FetchBuilder{}.
		WithAddress(addr).
		WithAccessType(mem.GlobalAccR).
		WithType(mem.ReadRequest).
		WithByteSize(size).
		Build()
}

var _ = Describe("Tracers", func() {
	var (
		memory *idealmemory.Comp
		c      *cache.DataCache
		now    uint64
	)

	run := func() {
		for c.MissQueueLen() > 0 || memory.InflightCount() > 0 {
			now++
			c.Cycle()
			memory.Tick(now)
		}
	}

	BeforeEach(func() {
		var err error

		now = 5
		memory = idealmemory.MakeBuilder().
			WithLatency(2).
			WithNewStorage(1 * mem.MB).
			Build("Mem")
		c, err = cache.MakeBuilder().
			WithDescriptor("N:4:64:2,L:B:m:L:L,A:4:4,4:0,64").
			WithMemQueue(memory).
			BuildDataCache()
		Expect(err).NotTo(HaveOccurred())

		memory.SetFillReceiver(c)
	})

	It("should log accesses and fills", func() {
		buf := new(bytes.Buffer)
		c.AcceptHook(NewTracer(log.New(buf, "", 0)))

		miss := read(0x44, 4)
		c.Access(miss.Address, now, miss)
		run()
		hit := read(0x48, 4)
		c.Access(hit.Address, now, hit)

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		Expect(lines).To(HaveLen(3))
		Expect(lines[0]).To(HavePrefix("access, 5, Cache, " + miss.ID))
		Expect(lines[0]).To(HaveSuffix("GLOBAL_ACC_R, 0x40, 64, MISS"))
		Expect(lines[1]).To(HavePrefix("fill, "))
		Expect(lines[1]).To(HaveSuffix("Cache, " + miss.ID))
		Expect(lines[2]).To(HaveSuffix("GLOBAL_ACC_R, 0x48, 4, HIT"))
	})

	It("should record accesses into a database", func() {
		path := filepath.Join(GinkgoT().TempDir(), "trace")
		recorder := datarecording.New(path)
		c.AcceptHook(NewDBTracer(recorder))

		miss := read(0x44, 4)
		c.Access(miss.Address, now, miss)
		run()
		fillTime := now
		hit := read(0x48, 4)
		c.Access(hit.Address, now, hit)
		recorder.Flush()

		reader, err := datarecording.NewReader(path + ".sqlite3")
		Expect(err).NotTo(HaveOccurred())
		defer reader.Close()

		reader.MapTable(AccessTable, AccessEntry{})
		results, total, err := reader.Query(context.Background(), AccessTable,
			datarecording.QueryParams{OrderBy: "StartTime, Address"})
		Expect(err).NotTo(HaveOccurred())
		Expect(total).To(Equal(2))

		first := results[0].(*AccessEntry)
		Expect(first.ID).To(Equal(miss.ID))
		Expect(first.Cache).To(Equal("Cache"))
		Expect(first.Status).To(Equal("MISS"))
		Expect(first.Address).To(Equal(uint64(0x44)))
		Expect(first.ByteSize).To(Equal(uint64(4)))
		Expect(first.StartTime).To(Equal(uint64(5)))
		Expect(first.EndTime).To(Equal(fillTime))

		second := results[1].(*AccessEntry)
		Expect(second.Status).To(Equal("HIT"))
		Expect(second.EndTime).To(Equal(second.StartTime))
	})

	It("should share the table between caches", func() {
		path := filepath.Join(GinkgoT().TempDir(), "shared")
		recorder := datarecording.New(path)

		NewDBTracer(recorder)
		NewDBTracer(recorder)

		Expect(recorder.ListTables()).To(ConsistOf(AccessTable))
	})
})
