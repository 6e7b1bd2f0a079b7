// Package cache models the set-associative caches of the NDP units.
package cache

import (
	"log"

	"github.com/sarchlab/ndpsim/mem/cache/internal/mshr"
	"github.com/sarchlab/ndpsim/mem/cache/internal/tagging"
	"github.com/sarchlab/ndpsim/mem/mem"
	"github.com/sarchlab/ndpsim/sim/hooking"
	"github.com/sarchlab/ndpsim/sim/queueing"
)

// HookPosCacheAccess marks when an access is done. The item is an
// AccessRecord.
var HookPosCacheAccess = &hooking.HookPos{Name: "Cache Access"}

// HookPosCacheFill marks when a miss is filled. The item is the request
// that caused the miss and the detail is the fill time.
var HookPosCacheFill = &hooking.HookPos{Name: "Cache Fill"}

// AccessRecord tells what an access did.
type AccessRecord struct {
	Req    *mem.Fetch
	Time   uint64
	Status RequestStatus
	Events []Event
}

// A MemQueue carries the requests of a cache to the memory below.
type MemQueue interface {
	Full() bool
	Push(req *mem.Fetch)
}

// pendingTransaction remembers a request that is waiting for its data while
// its address and size are changed to the MSHR granularity.
type pendingTransaction struct {
	req        *mem.Fetch
	blockAddr  uint64
	addr       uint64
	dataSize   uint64
	cacheIndex int

	// pendingReads counts the sector replies still expected.
	pendingReads int

	data     []byte
	received []bool

	// writes are the writes that missed while the line was not allocated.
	// They are stored into the line once it is filled.
	writes []deferredWrite
}

type deferredWrite struct {
	addr     uint64
	data     []byte
	keep     []bool
	mask     mem.SectorMask
	modified bool
}

func (t *pendingTransaction) collect(resp *mem.Fetch) {
	for i, b := range resp.Data {
		a := resp.Address + uint64(i)
		if a < t.blockAddr || a >= t.blockAddr+uint64(len(t.data)) {
			continue
		}

		t.data[a-t.blockAddr] = b
		t.received[a-t.blockAddr] = true
	}
}

// Cache is what the read-only and the data caches share. It holds the tags,
// the MSHRs and the miss queue.
type Cache struct {
	hooking.HookableBase

	name   string
	coreID int
	config Config

	tags      *tagging.TagArray
	mshrs     *mshr.Table
	missQueue queueing.Buffer
	toMem     MemQueue
	data      *dataArray
	pending   map[string]*pendingTransaction
	bandwidth bandwidthManagement
	stats     *Stats
}

// Name returns the name of the cache.
func (c *Cache) Name() string {
	return c.name
}

// Config returns the configuration of the cache.
func (c *Cache) Config() Config {
	return c.config
}

// Stats returns the statistics of the cache.
func (c *Cache) Stats() *Stats {
	return c.stats
}

// TagCounters returns the counters of the tag array.
func (c *Cache) TagCounters() tagging.Counters {
	return c.tags.Counters()
}

// BlockState returns the state of the sector that holds addr, and whether
// the line is in the cache.
func (c *Cache) BlockState(addr uint64, mask mem.SectorMask) (
	tagging.BlockState, bool,
) {
	status, idx := c.tags.Probe(addr, mask)

	switch status {
	case Hit, HitReserved, SectorMiss:
		return c.tags.Block(idx).Status(mask), true
	default:
		return tagging.Invalid, false
	}
}

// MissQueueLen returns the number of requests waiting to be sent below.
func (c *Cache) MissQueueLen() int {
	return c.missQueue.Size()
}

// MissQueue returns the queue of requests waiting to be sent below. Hooks
// attached to it see every request pushed and sent.
func (c *Cache) MissQueue() queueing.Buffer {
	return c.missQueue
}

func (c *Cache) missQueueFull(numMisses int) bool {
	return c.missQueue.Size()+numMisses > c.config.MissQueueSize
}

// Cycle sends the oldest queued request below if there is room and frees
// one cycle of port bandwidth.
func (c *Cache) Cycle() {
	if req := c.missQueue.Peek(); req != nil && !c.toMem.Full() {
		c.missQueue.Pop()
		c.toMem.Push(req.(*mem.Fetch))
	}

	c.countPortCycles()
	c.bandwidth.replenish()
}

func (c *Cache) countPortCycles() {
	busy := false

	if c.bandwidth.dataPortOccupiedCycles > 0 {
		c.stats.DataPortBusyCycles++
		busy = true
	}

	if c.bandwidth.fillPortOccupiedCycles > 0 {
		c.stats.FillPortBusyCycles++
		busy = true
	}

	if !busy {
		c.stats.PortAvailableCycles++
	}
}

// DataPortFree tells if the data port can take an access.
func (c *Cache) DataPortFree() bool {
	return c.bandwidth.dataPortFree()
}

// FillPortFree tells if the fill port can take a fill.
func (c *Cache) FillPortFree() bool {
	return c.bandwidth.fillPortFree()
}

// DataPortOccupancy returns the cycles the data port is still busy for.
func (c *Cache) DataPortOccupancy() uint64 {
	return c.bandwidth.dataPortOccupiedCycles
}

// FillPortOccupancy returns the cycles the fill port is still busy for.
func (c *Cache) FillPortOccupancy() uint64 {
	return c.bandwidth.fillPortOccupiedCycles
}

// accessTags accesses the tag array. If a line is replaced, its data is
// dropped, and returned if the line was modified.
func (c *Cache) accessTags(
	addr, time uint64,
	mask mem.SectorMask,
) (RequestStatus, int, *EvictedBlockInfo) {
	status, idx, eviction := c.tags.Access(addr, time, mask)

	if status != Miss || c.config.AllocPolicy != OnMiss {
		return status, idx, nil
	}

	data, present := c.data.take(idx)
	if eviction == nil {
		return status, idx, nil
	}

	evicted := &EvictedBlockInfo{
		BlockAddr:    eviction.BlockAddr,
		ModifiedSize: eviction.ModifiedSize,
		DirtyMask:    eviction.DirtyMask,
		Data:         data,
		Valid:        present,
	}

	return status, idx, evicted
}

// sendReadRequest merges req into the MSHR entry of its block or sends a
// new read below. It returns false if neither is possible this cycle.
func (c *Cache) sendReadRequest(
	a *access,
	req *mem.Fetch,
	writeAllocate bool,
) (sent bool, evicted *EvictedBlockInfo) {
	mshrAddr := c.config.MSHRAddr(a.addr)
	mshrHit := c.mshrs.Probe(mshrAddr)
	mshrAvail := !c.mshrs.Full(mshrAddr)

	switch {
	case mshrHit && mshrAvail:
		_, a.index, evicted = c.accessTags(a.blockAddr, a.time, req.SectorMask)
		c.mshrs.Add(mshrAddr, req)
		c.stats.IncStats(req.AccessType, MSHRHit)

		return true, evicted
	case !mshrHit && mshrAvail && !c.missQueueFull(0):
		_, a.index, evicted = c.accessTags(a.blockAddr, a.time, req.SectorMask)
		c.mshrs.Add(mshrAddr, req)
		c.startTransaction(req, mshrAddr, a.index)
		c.missQueue.Push(req)

		if !writeAllocate {
			a.events = append(a.events, Event{Type: ReadRequestSent})
		}

		return true, evicted
	case mshrHit && !mshrAvail:
		c.fail(req, MSHRMergeEntryFail)
	case !mshrHit && !mshrAvail:
		c.fail(req, MSHREntryFail)
	}

	return false, nil
}

func (c *Cache) startTransaction(req *mem.Fetch, mshrAddr uint64, idx int) {
	atom := c.config.AtomSize()

	t := &pendingTransaction{
		req:        req,
		blockAddr:  mshrAddr,
		addr:       req.Address,
		dataSize:   req.DataSize,
		cacheIndex: idx,
		data:       make([]byte, atom),
		received:   make([]bool, atom),
	}

	if c.config.MSHRType == SectorAssoc {
		t.pendingReads = int(atom / c.config.MemAccessSize)
	}

	c.pending[req.ID] = t

	req.DataSize = atom
	req.Address = mshrAddr
}

// WaitingForFill tells if req has been sent below and not filled yet.
func (c *Cache) WaitingForFill(req *mem.Fetch) bool {
	_, ok := c.pending[req.ID]
	return ok
}

// Fill completes the miss that resp answers. Under a SectorAssoc MSHR, resp
// is one sector of the reply and the miss completes with the last sector.
func (c *Cache) Fill(resp *mem.Fetch, time uint64) {
	key := resp.ID
	if c.config.MSHRType == SectorAssoc {
		if resp.OriginalID == "" {
			log.Panicf("sector reply %s does not name its request", resp.ID)
		}

		key = resp.OriginalID
	}

	t, ok := c.pending[key]
	if !ok {
		log.Panicf("cache %s is not waiting for request %s", c.name, key)
	}

	t.collect(resp)

	if c.config.MSHRType == SectorAssoc {
		t.pendingReads--
		if t.pendingReads > 0 {
			return
		}
	}

	req := t.req
	req.DataSize = t.dataSize
	req.Address = t.addr

	idx := t.cacheIndex
	if c.config.AllocPolicy == OnMiss {
		c.tags.FillIndex(idx, time, req.SectorMask)
	} else {
		if status, victim := c.tags.Probe(t.blockAddr, req.SectorMask); status == Miss {
			c.data.reset(victim)
		}

		idx = c.tags.Fill(t.blockAddr, time, req.SectorMask)
	}

	lineBase := c.config.BlockAddr(t.blockAddr)
	c.data.fill(idx, t.blockAddr-lineBase, t.data, t.received)
	c.applyDeferredWrites(t, idx, lineBase)

	if c.mshrs.MarkReady(t.blockAddr) {
		if c.config.AllocPolicy != OnMiss {
			log.Panic("atomic requests require the allocate-on-miss policy")
		}

		c.tags.Block(idx).SetStatus(tagging.Modified, req.SectorMask)
	}

	c.deliverData(t.blockAddr, idx, lineBase)

	delete(c.pending, key)
	c.bandwidth.useFillPort()

	if c.NumHooks() > 0 {
		c.InvokeHook(hooking.HookCtx{
			Domain: c,
			Pos:    HookPosCacheFill,
			Item:   req,
			Detail: time,
		})
	}
}

func (c *Cache) applyDeferredWrites(
	t *pendingTransaction,
	idx int,
	lineBase uint64,
) {
	for _, w := range t.writes {
		keep := w.keep
		c.data.write(idx, w.addr-lineBase, w.data,
			func(i int) bool { return keep[i] })

		if w.modified {
			c.tags.Block(idx).SetStatus(tagging.Modified, w.mask)
		}
	}
}

// deferWrite keeps the bytes of a write until the line it missed on is
// filled. If the fill already arrived, the bytes go into the line.
func (c *Cache) deferWrite(a *access, modified bool) {
	mshrAddr := c.config.MSHRAddr(a.addr)

	for _, t := range c.pending {
		if t.blockAddr != mshrAddr {
			continue
		}

		t.writes = append(t.writes, deferredWrite{
			addr:     a.req.Address,
			data:     append([]byte(nil), a.req.Data...),
			keep:     writtenBytes(a.req),
			mask:     a.req.SectorMask,
			modified: modified,
		})

		return
	}

	status, idx := c.tags.Probe(a.blockAddr, a.req.SectorMask)
	if status == Miss || status == ReservationFail {
		log.Panicf("cache %s has no line and no pending fill for 0x%x",
			c.name, mshrAddr)
	}

	a.index = idx
	c.writeData(a)

	if modified {
		c.tags.Block(idx).SetStatus(tagging.Modified, a.req.SectorMask)
	}
}

// holdsLine tells if the block an access landed on belongs to the accessed
// line. A miss only takes over its victim under the allocate-on-miss policy.
func (c *Cache) holdsLine(status RequestStatus) bool {
	return status != Miss || c.config.AllocPolicy == OnMiss
}

// deliverData gives the reads waiting on a block their bytes.
func (c *Cache) deliverData(blockAddr uint64, idx int, lineBase uint64) {
	for _, w := range c.mshrs.Waiters(blockAddr) {
		if w.IsWrite() || w.Address < lineBase {
			continue
		}

		w.Data = c.data.read(idx, w.Address-lineBase, w.DataSize)
	}
}

// AccessReady tells if a filled request is waiting to be drained.
func (c *Cache) AccessReady() bool {
	return c.mshrs.AccessReady()
}

// TopNextAccess returns the next filled request without removing it.
func (c *Cache) TopNextAccess() *mem.Fetch {
	return c.mshrs.TopNextAccess()
}

// PopNextAccess removes and returns the next filled request. Requests of a
// block come out in the order they missed, and blocks in the order they
// were filled. Reads generated by write allocation come out too.
func (c *Cache) PopNextAccess() *mem.Fetch {
	return c.mshrs.PopNextAccess()
}

// Invalidate drops every line.
func (c *Cache) Invalidate() {
	c.tags.Invalidate()
	c.data.resetAll()
}

// ForceTagAccess installs the sector of addr as if it had been filled,
// without sending anything below.
func (c *Cache) ForceTagAccess(addr, time uint64, mask mem.SectorMask) {
	if status, idx := c.tags.Probe(addr, mask); status == Miss {
		c.data.reset(idx)
	}

	c.tags.Fill(addr, time, mask)
}

func (c *Cache) readHitData(a *access) {
	if a.req.IsWrite() {
		return
	}

	offset := a.addr - a.blockAddr
	a.req.Data = c.data.read(a.index, offset, a.req.DataSize)
}

func (c *Cache) writeData(a *access) {
	offset := a.req.Address - a.blockAddr
	keep := writtenBytes(a.req)

	c.data.write(a.index, offset, a.req.Data,
		func(i int) bool { return keep[i] })
}

// writtenBytes tells which bytes of the data of a write are written. The
// byte mask covers an aligned window that holds the address.
func writtenBytes(req *mem.Fetch) []bool {
	keep := make([]bool, len(req.Data))
	mask := req.ByteMask

	if len(mask) == 0 {
		for i := range keep {
			keep[i] = true
		}

		return keep
	}

	base := req.Address - req.Address%uint64(len(mask))

	for i := range keep {
		pos := req.Address + uint64(i) - base
		keep[i] = pos < uint64(len(mask)) && mask[pos]
	}

	return keep
}

// fail counts a refused access and labels the request with the reason.
func (c *Cache) fail(req *mem.Fetch, reason FailReason) RequestStatus {
	req.CurrentState = reason.String()
	c.stats.IncFailStats(req.AccessType, reason)

	return ReservationFail
}

func (c *Cache) finishAccess(a *access, status RequestStatus) {
	c.stats.IncStats(a.req.AccessType, SelectStatsStatus(a.probe, status))

	if c.NumHooks() > 0 {
		c.InvokeHook(hooking.HookCtx{
			Domain: c,
			Pos:    HookPosCacheAccess,
			Item: AccessRecord{
				Req:    a.req,
				Time:   a.time,
				Status: status,
				Events: a.events,
			},
		})
	}
}

// access carries the state of one access through the handlers.
type access struct {
	addr      uint64
	blockAddr uint64
	index     int
	req       *mem.Fetch
	time      uint64
	probe     RequestStatus
	events    []Event
}
