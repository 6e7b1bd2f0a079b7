package tagging

import (
	"log"

	"github.com/sarchlab/ndpsim/mem/mem"
)

// A Block is the state associated with one cache line.
//
// The mask arguments select a sector. A LineBlock ignores them.
type Block interface {
	Tag() uint64
	BlockAddr() uint64
	MatchTag(tag uint64) bool

	Allocate(tag, blockAddr, time uint64, mask mem.SectorMask)
	Fill(time uint64, mask mem.SectorMask)

	IsValidLine() bool
	IsInvalidLine() bool
	IsReservedLine() bool
	IsModifiedLine() bool

	Status(mask mem.SectorMask) BlockState
	SetStatus(state BlockState, mask mem.SectorMask)
	IsReadable(mask mem.SectorMask) bool
	SetReadable(readable bool, mask mem.SectorMask)
	SetIgnoreOnFill(ignore bool, mask mem.SectorMask)
	SetModifiedOnFill(modified bool, mask mem.SectorMask)

	DirtyMask() mem.SectorMask
	ModifiedSize() uint64

	AllocTime() uint64
	LastAccessTime() uint64
	SetLastAccessTime(time uint64, mask mem.SectorMask)
	FillTime() uint64
}

type blockBase struct {
	tag       uint64
	blockAddr uint64
}

func (b *blockBase) Tag() uint64 {
	return b.tag
}

func (b *blockBase) BlockAddr() uint64 {
	return b.blockAddr
}

func (b *blockBase) MatchTag(tag uint64) bool {
	return b.tag == tag
}

// LineBlock tracks a whole line with a single state.
type LineBlock struct {
	blockBase

	lineSize uint64

	allocTime      uint64
	lastAccessTime uint64
	fillTime       uint64

	state          BlockState
	ignoreOnFill   bool
	modifiedOnFill bool
	readable       bool
}

// NewLineBlock creates an invalid line of lineSize bytes.
func NewLineBlock(lineSize uint64) *LineBlock {
	return &LineBlock{
		lineSize: lineSize,
		readable: true,
	}
}

// Allocate reserves the line for tag.
func (b *LineBlock) Allocate(tag, blockAddr, time uint64, _ mem.SectorMask) {
	b.tag = tag
	b.blockAddr = blockAddr
	b.allocTime = time
	b.lastAccessTime = time
	b.fillTime = 0
	b.state = Reserved
	b.ignoreOnFill = false
	b.modifiedOnFill = false
}

// Fill completes the reservation.
func (b *LineBlock) Fill(time uint64, _ mem.SectorMask) {
	b.fillTime = time

	if b.modifiedOnFill {
		b.state = Modified
	} else {
		b.state = Valid
	}
}

func (b *LineBlock) IsValidLine() bool    { return b.state == Valid }
func (b *LineBlock) IsInvalidLine() bool  { return b.state == Invalid }
func (b *LineBlock) IsReservedLine() bool { return b.state == Reserved }
func (b *LineBlock) IsModifiedLine() bool { return b.state == Modified }

func (b *LineBlock) Status(_ mem.SectorMask) BlockState {
	return b.state
}

func (b *LineBlock) SetStatus(state BlockState, _ mem.SectorMask) {
	b.state = state
}

func (b *LineBlock) IsReadable(_ mem.SectorMask) bool {
	return b.readable
}

func (b *LineBlock) SetReadable(readable bool, _ mem.SectorMask) {
	b.readable = readable
}

func (b *LineBlock) SetIgnoreOnFill(ignore bool, _ mem.SectorMask) {
	b.ignoreOnFill = ignore
}

func (b *LineBlock) SetModifiedOnFill(modified bool, _ mem.SectorMask) {
	b.modifiedOnFill = modified
}

// DirtyMask covers the whole line.
func (b *LineBlock) DirtyMask() mem.SectorMask {
	return mem.FullSectorMask
}

// ModifiedSize is always the size of the line.
func (b *LineBlock) ModifiedSize() uint64 {
	return b.lineSize
}

func (b *LineBlock) AllocTime() uint64      { return b.allocTime }
func (b *LineBlock) LastAccessTime() uint64 { return b.lastAccessTime }
func (b *LineBlock) FillTime() uint64       { return b.fillTime }

func (b *LineBlock) SetLastAccessTime(time uint64, _ mem.SectorMask) {
	b.lastAccessTime = time
}

type sector struct {
	allocTime      uint64
	fillTime       uint64
	lastAccessTime uint64
	state          BlockState
	ignoreOnFill   bool
	modifiedOnFill bool
	readable       bool
}

// SectorBlock tracks every sector of a line on its own. The line keeps
// aggregate timestamps for victim selection.
type SectorBlock struct {
	blockBase

	sectorSize uint64
	sectors    [mem.SectorChunkSize]sector

	lineAllocTime      uint64
	lineFillTime       uint64
	lineLastAccessTime uint64
}

// NewSectorBlock creates an invalid sectored line.
func NewSectorBlock(sectorSize uint64) *SectorBlock {
	b := &SectorBlock{sectorSize: sectorSize}
	b.reset()

	return b
}

func (b *SectorBlock) reset() {
	for i := range b.sectors {
		b.sectors[i] = sector{readable: true}
	}

	b.lineAllocTime = 0
	b.lineFillTime = 0
	b.lineLastAccessTime = 0
}

func (b *SectorBlock) sector(mask mem.SectorMask) *sector {
	return &b.sectors[mask.Index()]
}

// Allocate drops every sector and reserves the one selected by mask.
func (b *SectorBlock) Allocate(tag, blockAddr, time uint64, mask mem.SectorMask) {
	b.reset()
	b.tag = tag
	b.blockAddr = blockAddr

	s := b.sector(mask)
	s.allocTime = time
	s.lastAccessTime = time
	s.state = Reserved

	b.lineAllocTime = time
	b.lineLastAccessTime = time
}

// AllocateSector reserves one more sector of a line that is already in use.
// A sector that was modified stays modified once it is filled.
func (b *SectorBlock) AllocateSector(time uint64, mask mem.SectorMask) {
	if b.IsInvalidLine() {
		log.Panic("allocating a sector of an invalid line")
	}

	s := b.sector(mask)
	s.allocTime = time
	s.lastAccessTime = time
	s.fillTime = 0
	s.modifiedOnFill = s.state == Modified
	s.state = Reserved
	s.ignoreOnFill = false
	s.readable = true

	b.lineLastAccessTime = time
	b.lineFillTime = 0
}

// Fill completes the reservation of the selected sector.
func (b *SectorBlock) Fill(time uint64, mask mem.SectorMask) {
	s := b.sector(mask)

	if s.modifiedOnFill {
		s.state = Modified
	} else {
		s.state = Valid
	}

	s.fillTime = time
	b.lineFillTime = time
}

// IsValidLine tells if any sector is in use.
func (b *SectorBlock) IsValidLine() bool {
	return !b.IsInvalidLine()
}

// IsInvalidLine tells if every sector is invalid.
func (b *SectorBlock) IsInvalidLine() bool {
	for i := range b.sectors {
		if b.sectors[i].state != Invalid {
			return false
		}
	}

	return true
}

// IsReservedLine tells if any sector waits for a fill.
func (b *SectorBlock) IsReservedLine() bool {
	return b.anySectorIn(Reserved)
}

// IsModifiedLine tells if any sector is dirty.
func (b *SectorBlock) IsModifiedLine() bool {
	return b.anySectorIn(Modified)
}

func (b *SectorBlock) anySectorIn(state BlockState) bool {
	for i := range b.sectors {
		if b.sectors[i].state == state {
			return true
		}
	}

	return false
}

func (b *SectorBlock) Status(mask mem.SectorMask) BlockState {
	return b.sector(mask).state
}

func (b *SectorBlock) SetStatus(state BlockState, mask mem.SectorMask) {
	b.sector(mask).state = state
}

func (b *SectorBlock) IsReadable(mask mem.SectorMask) bool {
	return b.sector(mask).readable
}

func (b *SectorBlock) SetReadable(readable bool, mask mem.SectorMask) {
	b.sector(mask).readable = readable
}

func (b *SectorBlock) SetIgnoreOnFill(ignore bool, mask mem.SectorMask) {
	b.sector(mask).ignoreOnFill = ignore
}

func (b *SectorBlock) SetModifiedOnFill(modified bool, mask mem.SectorMask) {
	b.sector(mask).modifiedOnFill = modified
}

// DirtyMask has the modified sectors set.
func (b *SectorBlock) DirtyMask() mem.SectorMask {
	var mask mem.SectorMask

	for i := range b.sectors {
		if b.sectors[i].state == Modified {
			mask |= mem.SectorMaskOf(i)
		}
	}

	return mask
}

// ModifiedSize is the number of bytes in modified sectors.
func (b *SectorBlock) ModifiedSize() uint64 {
	return uint64(b.DirtyMask().Count()) * b.sectorSize
}

func (b *SectorBlock) AllocTime() uint64      { return b.lineAllocTime }
func (b *SectorBlock) LastAccessTime() uint64 { return b.lineLastAccessTime }
func (b *SectorBlock) FillTime() uint64       { return b.lineFillTime }

// SectorFillTime returns when the selected sector was last filled.
func (b *SectorBlock) SectorFillTime(mask mem.SectorMask) uint64 {
	return b.sector(mask).fillTime
}

func (b *SectorBlock) SetLastAccessTime(time uint64, mask mem.SectorMask) {
	b.lineLastAccessTime = time
	b.sector(mask).lastAccessTime = time
}
