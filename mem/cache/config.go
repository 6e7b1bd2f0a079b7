package cache

import (
	"fmt"
	"log"
	"math/bits"

	"github.com/sarchlab/ndpsim/mem/mem"
)

// CacheType tells if lines are tracked as a whole or by sector.
type CacheType int

// The cache types.
const (
	Normal CacheType = iota
	Sector
)

// EvictPolicy selects the victim of a miss.
type EvictPolicy int

// The eviction policies.
const (
	LRU EvictPolicy = iota
	FIFO
)

// WritePolicy decides what a write hit does.
type WritePolicy int

// The write policies.
const (
	ReadOnly WritePolicy = iota
	WriteBack
	WriteThrough
	WriteEvict
	LocalWBGlobalWT
)

// AllocationPolicy decides when a line is reserved.
type AllocationPolicy int

// The allocation policies.
const (
	OnMiss AllocationPolicy = iota
	OnFill
	Streaming
)

// WriteAllocatePolicy decides what a write miss does.
type WriteAllocatePolicy int

// The write allocate policies.
const (
	NoWriteAllocate WriteAllocatePolicy = iota
	WriteAllocate
	FetchOnWrite
	LazyFetchOnRead
)

// SetIndexFunction maps an address to a set.
type SetIndexFunction int

// The set index functions.
const (
	LinearSetFunction SetIndexFunction = iota
	BitwiseXORFunction
	IPolyFunction
	CustomSetFunction
)

// MSHRType decides how backing store replies reach the MSHR.
type MSHRType int

// The MSHR types. A SectorAssoc MSHR expects a reply in sector sized parts.
const (
	Assoc MSHRType = iota
	SectorAssoc
)

const (
	cacheTypeCodes     = "NS"
	evictPolicyCodes   = "LF"
	writePolicyCodes   = "RBTEL"
	allocPolicyCodes   = "mfs"
	writeAllocCodes    = "NWFL"
	setIndexCodes      = "LXPC"
	mshrTypeCodes      = "AS"
	minDescriptorField = 12
)

// DefaultPacketSize is the size of a write-back packet.
const DefaultPacketSize uint64 = 32

// Config is the geometry and the policies of a cache.
type Config struct {
	Type             CacheType
	NumSets          int
	LineSize         uint64
	Assoc            int
	EvictPolicy      EvictPolicy
	WritePolicy      WritePolicy
	AllocPolicy      AllocationPolicy
	WriteAllocPolicy WriteAllocatePolicy
	SetIndexFunction SetIndexFunction
	MSHRType         MSHRType
	MSHREntries      int
	MSHRMaxMerge     int
	MissQueueSize    int
	ResultFIFOSize   int
	DataPortWidth    uint64

	// MemAccessSize is the sector size.
	MemAccessSize uint64
	PacketSize    uint64

	// BandwidthLimited makes the ports report busy while they are occupied.
	BandwidthLimited bool

	// CustomSetIndex is used by CustomSetFunction.
	CustomSetIndex func(addr uint64) int
}

func decodeCode(field string, codes string, c rune) (int, error) {
	for i, code := range codes {
		if code == c {
			return i, nil
		}
	}

	return 0, fmt.Errorf("unknown %s code %q", field, c)
}

// ParseConfig parses a descriptor of the form
//
//	type:sets:line:assoc,evict:write:alloc:write_alloc:set_index,mshr:entries:max_merge,miss_queue:result_fifo,data_port_width
//
// At least the first 12 fields are required. An omitted miss queue size
// defaults to the number of MSHR entries and an omitted data port width to
// the line size.
func ParseConfig(descriptor string) (Config, error) {
	var (
		ct, ev, wr, al, wa, si, mt rune
		c                          Config
	)

	n, err := fmt.Sscanf(descriptor, "%c:%d:%d:%d,%c:%c:%c:%c:%c,%c:%d:%d,%d:%d,%d",
		&ct, &c.NumSets, &c.LineSize, &c.Assoc,
		&ev, &wr, &al, &wa, &si,
		&mt, &c.MSHREntries, &c.MSHRMaxMerge,
		&c.MissQueueSize, &c.ResultFIFOSize, &c.DataPortWidth)
	if n < minDescriptorField {
		return Config{}, fmt.Errorf(
			"cache descriptor %q has %d fields, need at least %d: %w",
			descriptor, n, minDescriptorField, err)
	}

	codes := []struct {
		field string
		codes string
		c     rune
		dst   *int
	}{
		{"cache type", cacheTypeCodes, ct, (*int)(&c.Type)},
		{"evict policy", evictPolicyCodes, ev, (*int)(&c.EvictPolicy)},
		{"write policy", writePolicyCodes, wr, (*int)(&c.WritePolicy)},
		{"allocation policy", allocPolicyCodes, al, (*int)(&c.AllocPolicy)},
		{"write allocate policy", writeAllocCodes, wa,
			(*int)(&c.WriteAllocPolicy)},
		{"set index function", setIndexCodes, si,
			(*int)(&c.SetIndexFunction)},
		{"MSHR type", mshrTypeCodes, mt, (*int)(&c.MSHRType)},
	}

	for _, code := range codes {
		v, err := decodeCode(code.field, code.codes, code.c)
		if err != nil {
			return Config{}, err
		}

		*code.dst = v
	}

	if n <= minDescriptorField {
		c.MissQueueSize = c.MSHREntries
	}

	if c.DataPortWidth == 0 {
		c.DataPortWidth = c.LineSize
	}

	c.MemAccessSize = mem.DefaultMemAccessSize
	c.PacketSize = DefaultPacketSize

	if err := c.checkGeometry(); err != nil {
		return Config{}, err
	}

	return c, nil
}

// MustParseConfig is ParseConfig that panics on a malformed descriptor.
func MustParseConfig(descriptor string) Config {
	c, err := ParseConfig(descriptor)
	if err != nil {
		log.Panic(err)
	}

	return c
}

func isPowerOfTwo(v uint64) bool {
	return v != 0 && v&(v-1) == 0
}

func (c Config) checkGeometry() error {
	switch {
	case c.NumSets <= 0 || !isPowerOfTwo(uint64(c.NumSets)):
		return fmt.Errorf("number of sets %d is not a power of two",
			c.NumSets)
	case !isPowerOfTwo(c.LineSize):
		return fmt.Errorf("line size %d is not a power of two", c.LineSize)
	case c.Assoc <= 0:
		return fmt.Errorf("associativity %d must be positive", c.Assoc)
	case c.MSHREntries <= 0 || c.MSHRMaxMerge <= 0:
		return fmt.Errorf("MSHR needs entries and merges, got %d:%d",
			c.MSHREntries, c.MSHRMaxMerge)
	case c.SetIndexFunction == IPolyFunction &&
		log2(uint64(c.NumSets)) >= uint(len(primitivePolynomials)):
		return fmt.Errorf("IPOLY hashing supports up to %d sets, got %d",
			1<<(len(primitivePolynomials)-1), c.NumSets)
	}

	return nil
}

// Validate checks that the configuration describes a cache that can be
// built.
func (c Config) Validate() error {
	if err := c.checkGeometry(); err != nil {
		return err
	}

	switch {
	case !isPowerOfTwo(c.MemAccessSize):
		return fmt.Errorf("memory access size %d is not a power of two",
			c.MemAccessSize)
	case c.PacketSize == 0:
		return fmt.Errorf("packet size must be positive")
	case c.DataPortWidth == 0:
		return fmt.Errorf("data port width must be positive")
	case c.Type == Sector &&
		c.LineSize != mem.SectorChunkSize*c.MemAccessSize:
		return fmt.Errorf("sector cache line size %d must be %d sectors of %d",
			c.LineSize, mem.SectorChunkSize, c.MemAccessSize)
	case c.SetIndexFunction == CustomSetFunction && c.CustomSetIndex == nil:
		return fmt.Errorf("custom set index function is not provided")
	}

	return nil
}

// WithMemAccessSize returns a copy of the configuration with another sector
// size.
func (c Config) WithMemAccessSize(size uint64) Config {
	c.MemAccessSize = size
	return c
}

// WithPacketSize returns a copy of the configuration with another
// write-back packet size.
func (c Config) WithPacketSize(size uint64) Config {
	c.PacketSize = size
	return c
}

// WithBandwidthLimited returns a copy of the configuration that limits, or
// does not limit, port bandwidth.
func (c Config) WithBandwidthLimited(limited bool) Config {
	c.BandwidthLimited = limited
	return c
}

// WithCustomSetIndex returns a copy of the configuration that uses f to
// find sets.
func (c Config) WithCustomSetIndex(f func(addr uint64) int) Config {
	c.SetIndexFunction = CustomSetFunction
	c.CustomSetIndex = f

	return c
}

func log2(v uint64) uint {
	return uint(bits.Len64(v) - 1)
}

// SetIndex returns the set that holds addr.
func (c Config) SetIndex(addr uint64) int {
	lineLog2 := log2(c.LineSize)
	nsetLog2 := log2(uint64(c.NumSets))
	index := (addr >> lineLog2) & uint64(c.NumSets-1)

	switch c.SetIndexFunction {
	case LinearSetFunction:
		return int(index)
	case BitwiseXORFunction:
		return bitwiseHash(addr>>(lineLog2+nsetLog2), index, c.NumSets)
	case IPolyFunction:
		return ipolyHash(addr>>lineLog2, c.NumSets)
	case CustomSetFunction:
		return c.CustomSetIndex(addr)
	default:
		log.Panicf("unknown set index function %d", c.SetIndexFunction)
	}

	return 0
}

// Tag returns the tag of addr.
func (c Config) Tag(addr uint64) uint64 {
	return addr &^ (c.LineSize - 1)
}

// BlockAddr returns the address of the line that holds addr.
func (c Config) BlockAddr(addr uint64) uint64 {
	return addr &^ (c.LineSize - 1)
}

// AtomSize is the size of a fetch from the backing store: a sector for
// sector caches and a line otherwise.
func (c Config) AtomSize() uint64 {
	if c.Type == Sector {
		return c.MemAccessSize
	}

	return c.LineSize
}

// MSHRAddr returns the address misses to addr are merged by.
func (c Config) MSHRAddr(addr uint64) uint64 {
	return addr &^ (c.AtomSize() - 1)
}

// NumLines returns the number of lines.
func (c Config) NumLines() int {
	return c.NumSets * c.Assoc
}

// TotalSize returns the capacity in bytes.
func (c Config) TotalSize() uint64 {
	return uint64(c.NumLines()) * c.LineSize
}

// String rebuilds the descriptor.
func (c Config) String() string {
	return fmt.Sprintf("%c:%d:%d:%d,%c:%c:%c:%c:%c,%c:%d:%d,%d:%d,%d",
		cacheTypeCodes[c.Type], c.NumSets, c.LineSize, c.Assoc,
		evictPolicyCodes[c.EvictPolicy], writePolicyCodes[c.WritePolicy],
		allocPolicyCodes[c.AllocPolicy], writeAllocCodes[c.WriteAllocPolicy],
		setIndexCodes[c.SetIndexFunction],
		mshrTypeCodes[c.MSHRType], c.MSHREntries, c.MSHRMaxMerge,
		c.MissQueueSize, c.ResultFIFOSize, c.DataPortWidth)
}
