package cache

import (
	"fmt"
	"log"

	"github.com/sarchlab/ndpsim/mem/cache/internal/mshr"
	"github.com/sarchlab/ndpsim/mem/cache/internal/tagging"
	"github.com/sarchlab/ndpsim/mem/mem"
	"github.com/sarchlab/ndpsim/sim/queueing"
)

// Builder can build caches.
type Builder struct {
	name          string
	coreID        int
	config        Config
	descriptor    string
	isL1          bool
	toMem         MemQueue
	channelMapper mem.AddressToChannelMapper
	stats         *Stats
	logger        *log.Logger

	memAccessSize    uint64
	packetSize       uint64
	bandwidthLimited bool
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{
		name: "Cache",
	}
}

// WithName sets the name of the cache.
func (b Builder) WithName(name string) Builder {
	b.name = name
	return b
}

// WithCoreID sets the ID of the core that owns the cache.
func (b Builder) WithCoreID(coreID int) Builder {
	b.coreID = coreID
	return b
}

// WithConfig sets the configuration of the cache.
func (b Builder) WithConfig(config Config) Builder {
	b.config = config
	b.descriptor = ""

	return b
}

// WithDescriptor sets the configuration of the cache from a descriptor.
// The descriptor is parsed when the cache is built.
func (b Builder) WithDescriptor(descriptor string) Builder {
	b.descriptor = descriptor
	return b
}

// WithMemAccessSize sets the sector size, which is also the size of a
// memory access.
func (b Builder) WithMemAccessSize(size uint64) Builder {
	b.memAccessSize = size
	return b
}

// WithPacketSize sets the size of a write back packet.
func (b Builder) WithPacketSize(size uint64) Builder {
	b.packetSize = size
	return b
}

// WithBandwidthLimited makes the ports of the cache report busy while they
// are occupied.
func (b Builder) WithBandwidthLimited(limited bool) Builder {
	b.bandwidthLimited = limited
	return b
}

// WithL1 tells if the cache is a first level cache. L1 caches label their
// write allocate and write back requests as L1 traffic.
func (b Builder) WithL1(isL1 bool) Builder {
	b.isL1 = isL1
	return b
}

// WithMemQueue sets the queue that takes the requests to the memory below.
func (b Builder) WithMemQueue(q MemQueue) Builder {
	b.toMem = q
	return b
}

// WithAddressToChannelMapper sets how write backs find their channel.
func (b Builder) WithAddressToChannelMapper(
	m mem.AddressToChannelMapper,
) Builder {
	b.channelMapper = m
	return b
}

// WithStats lets several caches count into the same statistics.
func (b Builder) WithStats(stats *Stats) Builder {
	b.stats = stats
	return b
}

// WithLogger sets the logger that reports the geometry of built caches.
func (b Builder) WithLogger(logger *log.Logger) Builder {
	b.logger = logger
	return b
}

// BuildReadOnly builds a read-only cache.
func (b Builder) BuildReadOnly() (*ReadOnlyCache, error) {
	c, err := b.build()
	if err != nil {
		return nil, err
	}

	return &ReadOnlyCache{Cache: c}, nil
}

// BuildDataCache builds a cache that can be written.
func (b Builder) BuildDataCache() (*DataCache, error) {
	c, err := b.build()
	if err != nil {
		return nil, err
	}

	if c.config.WritePolicy == ReadOnly {
		return nil, fmt.Errorf("data cache %s cannot be read-only", b.name)
	}

	dc := &DataCache{
		Cache:          c,
		writeAllocType: mem.L2CacheWA,
		writeBackType:  mem.L2CacheWB,
		channelMapper:  b.channelMapper,
	}

	if b.isL1 {
		dc.writeAllocType = mem.L1CacheWA
		dc.writeBackType = mem.L1CacheWB
	}

	return dc, nil
}

func (b Builder) resolveConfig() (Config, error) {
	c := b.config

	if b.descriptor != "" {
		parsed, err := ParseConfig(b.descriptor)
		if err != nil {
			return Config{}, err
		}

		parsed.CustomSetIndex = c.CustomSetIndex
		c = parsed
	}

	if b.memAccessSize != 0 {
		c.MemAccessSize = b.memAccessSize
	}

	if b.packetSize != 0 {
		c.PacketSize = b.packetSize
	}

	if b.bandwidthLimited {
		c.BandwidthLimited = true
	}

	return c, nil
}

func (b Builder) build() (*Cache, error) {
	config, err := b.resolveConfig()
	if err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	if b.toMem == nil {
		return nil, fmt.Errorf("cache %s has no memory queue", b.name)
	}

	c := &Cache{
		name:    b.name,
		coreID:  b.coreID,
		toMem:   b.toMem,
		pending: make(map[string]*pendingTransaction),
		stats:   b.stats,
	}
	c.config = config
	c.bandwidth.config = &c.config

	if c.stats == nil {
		c.stats = NewStats()
	}

	c.tags = tagging.NewTagArray(tagging.Config{
		NumSets:        config.NumSets,
		NumWays:        config.Assoc,
		Sectored:       config.Type == Sector,
		AllocateOnMiss: config.AllocPolicy == OnMiss,
		LineSize:       config.LineSize,
		SectorSize:     config.MemAccessSize,
		Decoder:        config,
		VictimFinder:   b.victimFinder(config),
	})
	c.mshrs = mshr.NewTable(config.MSHREntries, config.MSHRMaxMerge)
	c.missQueue = queueing.NewBuffer(b.name+".MissQueue",
		b.missQueueCapacity(config))
	c.data = newDataArray(config.NumLines(), config.LineSize)

	if b.logger != nil {
		b.logger.Printf("%s: cache set: %d, line_size: %d, assoc: %d, "+
			"total size: %dKB",
			b.name, config.NumSets, config.LineSize, config.Assoc,
			config.TotalSize()/mem.KB)
	}

	return c, nil
}

func (b Builder) victimFinder(config Config) tagging.VictimFinder {
	if config.EvictPolicy == FIFO {
		return tagging.NewFIFOVictimFinder()
	}

	return tagging.NewLRUVictimFinder()
}

// missQueueCapacity leaves room above the admission limit for the requests
// one access can push after passing the check. That is a write, a read and
// the packets of one write back.
func (b Builder) missQueueCapacity(config Config) int {
	packets := ceilDiv(config.LineSize, config.PacketSize)
	return config.MissQueueSize + int(packets) + 2
}
