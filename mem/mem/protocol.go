// Package mem defines the memory requests that travel between the NDP
// pipeline, its caches, and the memory below them.
package mem

import (
	"fmt"
	"log"
	"math/bits"

	"github.com/sarchlab/ndpsim/sim/id"
)

// Byte size units.
const (
	KB uint64 = 1 << 10
	MB uint64 = 1 << 20
	GB uint64 = 1 << 30
)

const (
	// SectorChunkSize is the number of sectors in a cache line.
	SectorChunkSize = 4

	// DefaultMemAccessSize is the default memory access granularity, which
	// is also the size of a sector.
	DefaultMemAccessSize uint64 = 32

	// WritePacketSize is the control overhead of a write packet.
	WritePacketSize uint64 = 8
)

// AccessType tells who issued a request and why.
type AccessType int

// The access types.
const (
	GlobalAccR AccessType = iota
	GlobalAccW
	InstAccR
	TLBAccR
	L1CacheWA
	L2CacheWA
	L1CacheWB
	L2CacheWB
	DMAAllocW
	HostAccR
	HostAccW
	NumAccessTypes
)

var accessTypeNames = [NumAccessTypes]string{
	"GLOBAL_ACC_R", "GLOBAL_ACC_W", "INST_ACC_R", "TLB_ACC_R",
	"L1_CACHE_WA", "L2_CACHE_WA", "L1_CACHE_WB", "L2_CACHE_WB",
	"DMA_ALLOC_W", "HOST_ACC_R", "HOST_ACC_W",
}

func (t AccessType) String() string {
	if t < 0 || t >= NumAccessTypes {
		return fmt.Sprintf("AccessType(%d)", int(t))
	}

	return accessTypeNames[t]
}

// ReqType distinguishes requests from replies.
type ReqType int

// The request types.
const (
	ReadRequest ReqType = iota
	WriteRequest
	ReadReply
	WriteAck
)

func (t ReqType) String() string {
	switch t {
	case ReadRequest:
		return "READ_REQUEST"
	case WriteRequest:
		return "WRITE_REQUEST"
	case ReadReply:
		return "READ_REPLY"
	case WriteAck:
		return "WRITE_ACK"
	default:
		return fmt.Sprintf("ReqType(%d)", int(t))
	}
}

// SectorMask has one bit per sector of a cache line.
type SectorMask uint8

// FullSectorMask has every sector set.
const FullSectorMask SectorMask = 1<<SectorChunkSize - 1

// SectorMaskOf returns the mask with only sector i set.
func SectorMaskOf(i int) SectorMask {
	if i < 0 || i >= SectorChunkSize {
		log.Panicf("sector %d out of range", i)
	}

	return SectorMask(1) << i
}

// Test tells if sector i is set.
func (m SectorMask) Test(i int) bool {
	return m&(SectorMask(1)<<i) != 0
}

// Count returns the number of sectors set.
func (m SectorMask) Count() int {
	return bits.OnesCount8(uint8(m))
}

// Index returns the only sector set in the mask. It panics if the mask does
// not have exactly one sector.
func (m SectorMask) Index() int {
	if m.Count() != 1 {
		log.Panicf("sector mask %04b must select exactly one sector", m)
	}

	return bits.TrailingZeros8(uint8(m))
}

func (m SectorMask) String() string {
	return fmt.Sprintf("%0*b", SectorChunkSize, uint8(m))
}

// A Fetch is a memory request, or the reply to one, as it moves through the
// memory hierarchy. Caches rewrite the address and size of a fetch while it
// is outstanding and restore them when it is filled.
type Fetch struct {
	ID         string
	OriginalID string

	Address    uint64
	DataSize   uint64
	CtrlSize   uint64
	AccessType AccessType
	Type       ReqType
	ByteMask   []bool
	SectorMask SectorMask
	DirtyMask  SectorMask
	Data       []byte

	Atomic    bool
	FromNDP   bool
	Channel   int
	Timestamp uint64

	// CurrentState is a free-form label that shows where the request is.
	CurrentState string
}

// IsWrite tells if the fetch writes memory.
func (f *Fetch) IsWrite() bool {
	return f.Type == WriteRequest || f.Type == WriteAck
}

// IsRequest tells if the fetch is still a request rather than a reply.
func (f *Fetch) IsRequest() bool {
	return f.Type == ReadRequest || f.Type == WriteRequest
}

// IsAtomic tells if the fetch is an atomic operation.
func (f *Fetch) IsAtomic() bool {
	return f.Atomic
}

// Size returns the number of bytes the fetch occupies on a link.
func (f *Fetch) Size() uint64 {
	if f.Type == WriteRequest || f.Type == ReadReply {
		return f.DataSize + f.CtrlSize
	}

	return f.CtrlSize
}

// ByteMaskCount returns the number of bytes the fetch touches.
func (f *Fetch) ByteMaskCount() uint64 {
	n := uint64(0)

	for _, b := range f.ByteMask {
		if b {
			n++
		}
	}

	return n
}

// SetReply turns a request into its reply.
func (f *Fetch) SetReply() {
	switch f.Type {
	case ReadRequest:
		f.Type = ReadReply
	case WriteRequest:
		f.Type = WriteAck
	default:
		log.Panicf("fetch %s of type %s cannot become a reply", f.ID, f.Type)
	}
}

// SplitSectors divides the fetch into one sub-fetch per sector. Every
// sub-fetch remembers the fetch it came from in OriginalID.
func (f *Fetch) SplitSectors(sectorSize uint64) []*Fetch {
	n := f.DataSize / sectorSize
	if n == 0 {
		n = 1
	}

	subs := make([]*Fetch, 0, n)

	for i := uint64(0); i < n; i++ {
		sub := *f
		sub.ID = id.Generate()
		sub.OriginalID = f.ID
		sub.Address = f.Address + i*sectorSize
		sub.DataSize = sectorSize
		sub.SectorMask = SectorMaskOf(
			int(sub.Address % (sectorSize * SectorChunkSize) / sectorSize))
		sub.ByteMask = nil
		sub.Data = nil

		if len(f.Data) >= int((i+1)*sectorSize) {
			sub.Data = f.Data[i*sectorSize : (i+1)*sectorSize]
		}

		subs = append(subs, &sub)
	}

	return subs
}

// FetchBuilder builds fetches.
type FetchBuilder struct {
	address       uint64
	accessType    AccessType
	reqType       ReqType
	dataSize      uint64
	ctrlSize      uint64
	byteMask      []bool
	sectorMask    SectorMask
	data          []byte
	atomic        bool
	fromNDP       bool
	channel       int
	timestamp     uint64
	memAccessSize uint64
}

// WithAddress sets the address of the fetch.
func (b FetchBuilder) WithAddress(address uint64) FetchBuilder {
	b.address = address
	return b
}

// WithAccessType sets the access type of the fetch.
func (b FetchBuilder) WithAccessType(t AccessType) FetchBuilder {
	b.accessType = t
	return b
}

// WithType sets whether the fetch reads or writes.
func (b FetchBuilder) WithType(t ReqType) FetchBuilder {
	b.reqType = t
	return b
}

// WithByteSize sets the number of bytes to access.
func (b FetchBuilder) WithByteSize(size uint64) FetchBuilder {
	b.dataSize = size
	return b
}

// WithCtrlSize sets the control overhead of the fetch.
func (b FetchBuilder) WithCtrlSize(size uint64) FetchBuilder {
	b.ctrlSize = size
	return b
}

// WithByteMask sets the bytes touched by the fetch.
func (b FetchBuilder) WithByteMask(mask []bool) FetchBuilder {
	b.byteMask = mask
	return b
}

// WithSectorMask adds sectors to the sector mask of the fetch.
func (b FetchBuilder) WithSectorMask(mask SectorMask) FetchBuilder {
	b.sectorMask = mask
	return b
}

// WithData sets the data carried by the fetch.
func (b FetchBuilder) WithData(data []byte) FetchBuilder {
	b.data = data
	return b
}

// WithAtomic marks the fetch as atomic.
func (b FetchBuilder) WithAtomic(atomic bool) FetchBuilder {
	b.atomic = atomic
	return b
}

// WithFromNDP marks the fetch as issued by an NDP unit.
func (b FetchBuilder) WithFromNDP(fromNDP bool) FetchBuilder {
	b.fromNDP = fromNDP
	return b
}

// WithChannel sets the memory channel of the fetch.
func (b FetchBuilder) WithChannel(channel int) FetchBuilder {
	b.channel = channel
	return b
}

// WithTimestamp sets the cycle the fetch was created.
func (b FetchBuilder) WithTimestamp(t uint64) FetchBuilder {
	b.timestamp = t
	return b
}

// WithMemAccessSize sets the sector size used to derive the sector mask.
func (b FetchBuilder) WithMemAccessSize(size uint64) FetchBuilder {
	b.memAccessSize = size
	return b
}

// Build creates the fetch. The sector that holds the address is always part
// of the sector mask. A write without an explicit byte mask touches DataSize
// bytes starting from the address.
func (b FetchBuilder) Build() *Fetch {
	accessSize := b.memAccessSize
	if accessSize == 0 {
		accessSize = DefaultMemAccessSize
	}

	sector := int(b.address % (accessSize * SectorChunkSize) / accessSize)

	f := &Fetch{
		ID:           id.Generate(),
		Address:      b.address,
		DataSize:     b.dataSize,
		CtrlSize:     b.ctrlSize,
		AccessType:   b.accessType,
		Type:         b.reqType,
		ByteMask:     b.byteMask,
		SectorMask:   b.sectorMask | SectorMaskOf(sector),
		Data:         b.data,
		Atomic:       b.atomic,
		FromNDP:      b.fromNDP,
		Channel:      b.channel,
		Timestamp:    b.timestamp,
		CurrentState: "NONE",
	}

	if f.ByteMask == nil && b.reqType == WriteRequest {
		f.ByteMask = contiguousByteMask(
			b.address%(accessSize*SectorChunkSize), b.dataSize,
			accessSize*SectorChunkSize)
	}

	return f
}

func contiguousByteMask(offset, size, maskSize uint64) []bool {
	mask := make([]bool, maskSize)

	for i := offset; i < offset+size && i < maskSize; i++ {
		mask[i] = true
	}

	return mask
}
