package cache

import (
	"log"

	"github.com/sarchlab/ndpsim/mem/cache/internal/tagging"
	"github.com/sarchlab/ndpsim/mem/mem"
)

// DataCache is a cache that is read and written. Its write policy decides
// what a write hit does and its write allocate policy what a write miss
// does.
type DataCache struct {
	*Cache

	writeAllocType mem.AccessType
	writeBackType  mem.AccessType
	channelMapper  mem.AddressToChannelMapper
}

// Access looks up req. Reads that hit get their data in req. Everything the
// access sent below is reported as events.
func (c *DataCache) Access(
	addr, time uint64,
	req *mem.Fetch,
) (RequestStatus, []Event) {
	a := &access{
		addr:      addr,
		blockAddr: c.config.BlockAddr(addr),
		req:       req,
		time:      time,
	}
	a.probe, a.index = c.tags.Probe(a.blockAddr, req.SectorMask)

	status := c.processTagProbe(a)
	c.finishAccess(a, status)

	return status, a.events
}

func (c *DataCache) processTagProbe(a *access) RequestStatus {
	status := a.probe

	if a.req.IsWrite() {
		switch {
		case a.probe == Hit:
			status = c.writeHit(a)
		case a.probe != ReservationFail ||
			c.config.WriteAllocPolicy == NoWriteAllocate:
			status = c.writeMiss(a)
		default:
			c.fail(a.req, LineAllocFail)
		}
	} else {
		switch {
		case a.probe == Hit:
			status = c.readHit(a)
		case a.probe != ReservationFail:
			status = c.readMiss(a)
		default:
			c.fail(a.req, LineAllocFail)
		}
	}

	c.bandwidth.useDataPort(a.req, status, a.events)

	return status
}

func (c *DataCache) writeHit(a *access) RequestStatus {
	switch c.config.WritePolicy {
	case WriteBack:
		return c.writeHitWriteBack(a)
	case WriteThrough:
		return c.writeHitWriteThrough(a)
	case WriteEvict:
		return c.writeHitWriteEvict(a)
	case LocalWBGlobalWT:
		if a.req.FromNDP {
			return c.writeHitWriteBack(a)
		}

		return c.writeHitWriteEvict(a)
	default:
		log.Panicf("data cache %s cannot have write policy %d",
			c.name, c.config.WritePolicy)
	}

	return ReservationFail
}

func (c *DataCache) writeMiss(a *access) RequestStatus {
	switch c.config.WriteAllocPolicy {
	case NoWriteAllocate:
		return c.writeMissNoWriteAllocate(a)
	case WriteAllocate:
		return c.writeMissWriteAllocate(a)
	case FetchOnWrite:
		return c.writeMissFetchOnWrite(a)
	case LazyFetchOnRead:
		return c.writeMissLazyFetchOnRead(a)
	default:
		log.Panicf("unknown write allocate policy %d",
			c.config.WriteAllocPolicy)
	}

	return ReservationFail
}

func (c *DataCache) block(a *access) tagging.Block {
	return c.tags.Block(a.index)
}

func (c *DataCache) writeHitWriteBack(a *access) RequestStatus {
	c.tags.Access(a.blockAddr, a.time, a.req.SectorMask)
	c.block(a).SetStatus(tagging.Modified, a.req.SectorMask)
	c.writeData(a)

	return Hit
}

func (c *DataCache) writeHitWriteThrough(a *access) RequestStatus {
	if c.missQueueFull(0) {
		return c.fail(a.req, MissQueueFull)
	}

	c.tags.Access(a.blockAddr, a.time, a.req.SectorMask)
	c.block(a).SetStatus(tagging.Modified, a.req.SectorMask)
	c.writeData(a)
	c.writeAround(a)

	return Hit
}

func (c *DataCache) writeHitWriteEvict(a *access) RequestStatus {
	if c.missQueueFull(0) {
		return c.fail(a.req, MissQueueFull)
	}

	c.writeAround(a)
	c.block(a).SetStatus(tagging.Invalid, a.req.SectorMask)

	if c.config.Type == Sector {
		sector := uint64(a.req.SectorMask.Index())
		c.data.drop(a.index, sector*c.config.MemAccessSize,
			c.config.MemAccessSize)
	} else {
		c.data.reset(a.index)
	}

	return Hit
}

func (c *DataCache) writeMissNoWriteAllocate(a *access) RequestStatus {
	if c.missQueueFull(0) {
		return c.fail(a.req, MissQueueFull)
	}

	c.writeAround(a)

	return Miss
}

// checkMSHR returns the reason the miss of a cannot be merged into or added
// to the MSHRs.
func (c *DataCache) checkMSHR(a *access) (FailReason, bool) {
	mshrAddr := c.config.MSHRAddr(a.addr)
	mshrHit := c.mshrs.Probe(mshrAddr)
	mshrFull := c.mshrs.Full(mshrAddr)

	switch {
	case mshrHit && mshrFull:
		return MSHRMergeEntryFail, false
	case mshrFull:
		return MSHREntryFail, false
	}

	return 0, true
}

// writeMissWriteAllocate forwards the write and fetches the line.
func (c *DataCache) writeMissWriteAllocate(a *access) RequestStatus {
	if c.missQueueFull(2) {
		return c.fail(a.req, MissQueueFull)
	}

	if reason, ok := c.checkMSHR(a); !ok {
		return c.fail(a.req, reason)
	}

	c.writeAround(a)

	sent, evicted := c.sendReadRequest(a, c.writeAllocateRead(a), true)
	if !sent {
		return ReservationFail
	}

	if c.config.AllocPolicy == OnMiss {
		c.writeData(a)
	} else {
		c.deferWrite(a, false)
	}

	c.writeBackIfNeeded(a, evicted)

	return Miss
}

// writeMissFetchOnWrite installs a write that covers the whole atom and
// fetches the rest of the atom otherwise. The written bytes survive the
// fetch.
func (c *DataCache) writeMissFetchOnWrite(a *access) RequestStatus {
	mask := a.req.SectorMask

	if a.req.ByteMaskCount() == c.config.AtomSize() {
		if c.missQueueFull(0) {
			return c.fail(a.req, MissQueueFull)
		}

		status, idx, evicted := c.accessTags(a.blockAddr, a.time, mask)
		if !c.holdsLine(status) {
			c.writeAround(a)
			return Miss
		}

		a.index = idx
		c.block(a).SetStatus(tagging.Modified, mask)

		if a.probe == HitReserved {
			c.block(a).SetIgnoreOnFill(true, mask)
			c.block(a).SetModifiedOnFill(true, mask)
		}

		c.writeData(a)
		c.writeBackIfNeeded(a, evicted)

		return Miss
	}

	if c.missQueueFull(1) {
		return c.fail(a.req, MissQueueFull)
	}

	if reason, ok := c.checkMSHR(a); !ok {
		return c.fail(a.req, reason)
	}

	mshrAddr := c.config.MSHRAddr(a.addr)
	if c.mshrs.Probe(mshrAddr) && c.mshrs.IsReadAfterWritePending(mshrAddr) {
		return c.fail(a.req, MSHRRWPending)
	}

	sent, evicted := c.sendReadRequest(a, c.writeAllocateRead(a), true)
	if !sent {
		return ReservationFail
	}

	if c.config.AllocPolicy == OnMiss {
		c.block(a).SetModifiedOnFill(true, mask)
		c.writeData(a)
	} else {
		c.deferWrite(a, true)
	}

	a.events = append(a.events, Event{Type: WriteAllocateSent})
	c.writeBackIfNeeded(a, evicted)

	return Miss
}

// writeMissLazyFetchOnRead installs the written bytes without fetching the
// rest of the line.
func (c *DataCache) writeMissLazyFetchOnRead(a *access) RequestStatus {
	mask := a.req.SectorMask

	if c.missQueueFull(0) {
		return c.fail(a.req, MissQueueFull)
	}

	status, idx, evicted := c.accessTags(a.blockAddr, a.time, mask)
	if status == ReservationFail {
		return c.fail(a.req, LineAllocFail)
	}

	if c.config.WritePolicy == WriteThrough || !c.holdsLine(status) {
		c.writeAround(a)
	}

	if !c.holdsLine(status) {
		return Miss
	}

	a.index = idx
	block := c.block(a)
	block.SetStatus(tagging.Modified, mask)

	if status == HitReserved {
		block.SetIgnoreOnFill(true, mask)
		block.SetModifiedOnFill(true, mask)
	}

	block.SetReadable(true, mask)
	c.writeData(a)
	c.writeBackIfNeeded(a, evicted)

	return Miss
}

func (c *DataCache) readHit(a *access) RequestStatus {
	c.tags.Access(a.blockAddr, a.time, a.req.SectorMask)

	if a.req.IsAtomic() {
		c.block(a).SetStatus(tagging.Modified, a.req.SectorMask)
	}

	c.readHitData(a)

	return Hit
}

func (c *DataCache) readMiss(a *access) RequestStatus {
	if c.missQueueFull(1) {
		return c.fail(a.req, MissQueueFull)
	}

	sent, evicted := c.sendReadRequest(a, a.req, false)
	if !sent {
		return ReservationFail
	}

	c.writeBackIfNeeded(a, evicted)

	return Miss
}

// writeAllocateRead creates the read that brings in the rest of the atom a
// write misses on.
func (c *DataCache) writeAllocateRead(a *access) *mem.Fetch {
	return mem.FetchBuilder{}.
		WithAddress(a.req.Address).
		WithAccessType(c.writeAllocType).
		WithType(mem.ReadRequest).
		WithByteSize(c.config.AtomSize()).
		WithCtrlSize(a.req.CtrlSize).
		WithByteMask(a.req.ByteMask).
		WithSectorMask(a.req.SectorMask).
		WithChannel(a.req.Channel).
		WithTimestamp(a.time).
		WithMemAccessSize(c.config.MemAccessSize).
		Build()
}

// writeAround sends the write below unchanged.
func (c *DataCache) writeAround(a *access) {
	c.sendWriteRequest(a, a.req, Event{Type: WriteRequestSent})
}

func (c *DataCache) sendWriteRequest(a *access, req *mem.Fetch, e Event) {
	a.events = append(a.events, e)
	c.missQueue.Push(req)
}

func (c *DataCache) writeBackIfNeeded(a *access, evicted *EvictedBlockInfo) {
	if evicted == nil || c.config.WritePolicy == WriteThrough {
		return
	}

	c.writeBack(a, evicted)
}

// writeBack sends the dirty part of an evicted line below in packets.
// Every packet carries the dirty sector mask of the line.
func (c *DataCache) writeBack(a *access, evicted *EvictedBlockInfo) {
	packet := c.config.PacketSize

	for offset := uint64(0); offset < c.config.LineSize; offset += packet {
		if !c.packetDirty(evicted, offset) {
			continue
		}

		addr := evicted.BlockAddr + offset

		req := mem.FetchBuilder{}.
			WithAddress(addr).
			WithAccessType(c.writeBackType).
			WithType(mem.WriteRequest).
			WithByteSize(packet).
			WithCtrlSize(mem.WritePacketSize).
			WithByteMask(c.writeBackByteMask(evicted, offset)).
			WithTimestamp(a.time).
			WithMemAccessSize(c.config.MemAccessSize).
			Build()
		req.DirtyMask = evicted.DirtyMask

		if offset+packet <= uint64(len(evicted.Data)) {
			req.Data = evicted.Data[offset : offset+packet]
		}

		if c.channelMapper != nil {
			req.Channel = c.channelMapper.Find(addr)
		}

		c.sendWriteRequest(a, req, Event{
			Type:    WriteBackRequestSent,
			Evicted: *evicted,
		})
	}
}

// packetDirty tells if the packet at offset overlaps a dirty sector. Lines
// of normal caches are dirty as a whole.
func (c *DataCache) packetDirty(evicted *EvictedBlockInfo, offset uint64) bool {
	if c.config.Type == Normal {
		return true
	}

	mas := c.config.MemAccessSize
	for s := offset / mas; s*mas < offset+c.config.PacketSize; s++ {
		if s < mem.SectorChunkSize && evicted.DirtyMask.Test(int(s)) {
			return true
		}
	}

	return false
}

// writeBackByteMask marks the bytes of a packet that are both dirty and
// hold data.
func (c *DataCache) writeBackByteMask(
	evicted *EvictedBlockInfo,
	offset uint64,
) []bool {
	mask := make([]bool, c.config.PacketSize)

	for i := range mask {
		o := offset + uint64(i)
		if o >= uint64(len(evicted.Valid)) || !evicted.Valid[o] {
			continue
		}

		mask[i] = c.config.Type == Normal ||
			evicted.DirtyMask.Test(int(o/c.config.MemAccessSize))
	}

	return mask
}
