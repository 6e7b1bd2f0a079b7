package tagging

import (
	"log"

	"github.com/sarchlab/ndpsim/mem/mem"
)

// AddressDecoder splits an address into the parts a tag array needs.
type AddressDecoder interface {
	SetIndex(addr uint64) int
	Tag(addr uint64) uint64
	BlockAddr(addr uint64) uint64
}

// Config describes the shape of a tag array.
type Config struct {
	NumSets  int
	NumWays  int
	Sectored bool

	// AllocateOnMiss reserves a line when a miss is seen. Otherwise lines
	// are only allocated when the data arrives.
	AllocateOnMiss bool

	LineSize     uint64
	SectorSize   uint64
	Decoder      AddressDecoder
	VictimFinder VictimFinder
}

// Eviction describes a modified block that was replaced.
type Eviction struct {
	BlockAddr    uint64
	ModifiedSize uint64
	DirtyMask    mem.SectorMask
}

// Counters counts the outcomes of the accesses to a tag array.
type Counters struct {
	Access          uint64
	Miss            uint64
	PendingHit      uint64
	ReservationFail uint64
	SectorMiss      uint64
}

// A TagArray owns the blocks of a cache. Block idx belongs to set
// idx / NumWays.
type TagArray struct {
	config Config
	blocks []Block

	counters Counters
	used     bool
}

// NewTagArray creates a tag array with every block invalid.
func NewTagArray(config Config) *TagArray {
	if config.Decoder == nil {
		log.Panic("tag array requires an address decoder")
	}

	if config.VictimFinder == nil {
		config.VictimFinder = NewLRUVictimFinder()
	}

	t := &TagArray{
		config: config,
		blocks: make([]Block, config.NumSets*config.NumWays),
	}

	for i := range t.blocks {
		if config.Sectored {
			t.blocks[i] = NewSectorBlock(config.SectorSize)
		} else {
			t.blocks[i] = NewLineBlock(config.LineSize)
		}
	}

	return t
}

// Size returns the number of blocks.
func (t *TagArray) Size() int {
	return len(t.blocks)
}

// Block returns the block at idx.
func (t *TagArray) Block(idx int) Block {
	return t.blocks[idx]
}

// Counters returns the access counters.
func (t *TagArray) Counters() Counters {
	return t.counters
}

func (t *TagArray) set(addr uint64) (base int, set []Block) {
	base = t.config.Decoder.SetIndex(addr) * t.config.NumWays

	return base, t.blocks[base : base+t.config.NumWays]
}

// Probe looks addr up without changing anything. On a miss, the returned
// index is the block that would be replaced. On a reservation fail, the
// index is -1.
func (t *TagArray) Probe(addr uint64, mask mem.SectorMask) (Status, int) {
	base, set := t.set(addr)
	tag := t.config.Decoder.Tag(addr)

	for way, b := range set {
		if !b.MatchTag(tag) {
			continue
		}

		state := b.Status(mask)

		switch {
		case state == Reserved:
			return HitReserved, base + way
		case state == Valid || (state == Modified && b.IsReadable(mask)):
			return Hit, base + way
		case state == Modified || b.IsValidLine():
			return SectorMiss, base + way
		}
	}

	way, ok := t.config.VictimFinder.FindVictim(set)
	if !ok {
		if !t.config.AllocateOnMiss {
			log.Panicf("all ways of set %d are reserved",
				base/t.config.NumWays)
		}

		return ReservationFail, -1
	}

	return Miss, base + way
}

// Access looks addr up and updates the blocks. A miss under the
// allocate-on-miss policy reserves a block, returning the eviction if the
// replaced block was modified.
func (t *TagArray) Access(
	addr, time uint64,
	mask mem.SectorMask,
) (Status, int, *Eviction) {
	t.used = true
	t.counters.Access++

	var eviction *Eviction

	status, idx := t.Probe(addr, mask)

	switch status {
	case HitReserved:
		t.counters.PendingHit++
	case Hit:
		t.blocks[idx].SetLastAccessTime(time, mask)
	case SectorMiss:
		t.counters.SectorMiss++
		if t.config.AllocateOnMiss {
			t.sectorBlock(idx).AllocateSector(time, mask)
		}
	case Miss:
		t.counters.Miss++
		if t.config.AllocateOnMiss {
			eviction = t.allocate(idx, addr, time, mask)
		}
	case ReservationFail:
		t.counters.ReservationFail++
	}

	return status, idx, eviction
}

func (t *TagArray) allocate(
	idx int,
	addr, time uint64,
	mask mem.SectorMask,
) *Eviction {
	var eviction *Eviction

	b := t.blocks[idx]
	if b.IsModifiedLine() {
		eviction = &Eviction{
			BlockAddr:    b.BlockAddr(),
			ModifiedSize: b.ModifiedSize(),
			DirtyMask:    b.DirtyMask(),
		}
	}

	b.Allocate(t.config.Decoder.Tag(addr), t.config.Decoder.BlockAddr(addr),
		time, mask)

	return eviction
}

func (t *TagArray) sectorBlock(idx int) *SectorBlock {
	b, ok := t.blocks[idx].(*SectorBlock)
	if !ok {
		log.Panicf("block %d is not a sector block", idx)
	}

	return b
}

// Fill installs the data of addr, allocating a block if needed, and returns
// the index of the block.
func (t *TagArray) Fill(addr, time uint64, mask mem.SectorMask) int {
	status, idx := t.Probe(addr, mask)

	switch status {
	case Miss:
		t.blocks[idx].Allocate(t.config.Decoder.Tag(addr),
			t.config.Decoder.BlockAddr(addr), time, mask)
	case SectorMiss:
		t.sectorBlock(idx).AllocateSector(time, mask)
	case ReservationFail:
		log.Panicf("cannot fill 0x%x, all ways are reserved", addr)
	}

	t.blocks[idx].Fill(time, mask)

	return idx
}

// FillIndex completes the reservation of block idx.
func (t *TagArray) FillIndex(idx int, time uint64, mask mem.SectorMask) {
	if !t.config.AllocateOnMiss {
		log.Panic("filling by index requires the allocate-on-miss policy")
	}

	t.blocks[idx].Fill(time, mask)
}

// Invalidate drops every sector of every block. An array that has never
// been accessed is left alone.
func (t *TagArray) Invalidate() {
	if !t.used {
		return
	}

	for _, b := range t.blocks {
		for i := 0; i < mem.SectorChunkSize; i++ {
			b.SetStatus(Invalid, mem.SectorMaskOf(i))
		}
	}
}
