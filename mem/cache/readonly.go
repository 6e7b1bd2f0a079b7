package cache

import (
	"log"

	"github.com/sarchlab/ndpsim/mem/mem"
)

// ReadOnlyCache is a cache that is never written, such as an instruction
// cache.
type ReadOnlyCache struct {
	*Cache
}

// Access looks up a read. A hit returns the data in req. A miss is sent
// below and req can be drained once it is filled.
func (c *ReadOnlyCache) Access(
	addr, time uint64,
	req *mem.Fetch,
) (RequestStatus, []Event) {
	if req.IsWrite() {
		log.Panicf("read-only cache %s cannot be written", c.name)
	}

	if req.DataSize > c.config.AtomSize() {
		log.Panicf("request of %d bytes is larger than the atom of %s",
			req.DataSize, c.name)
	}

	a := &access{
		addr:      addr,
		blockAddr: c.config.BlockAddr(addr),
		req:       req,
		time:      time,
	}
	a.probe, a.index = c.tags.Probe(a.blockAddr, req.SectorMask)

	status := ReservationFail

	switch {
	case a.probe == Hit:
		status, _, _ = c.tags.Access(a.blockAddr, time, req.SectorMask)
		c.readHitData(a)
	case a.probe == ReservationFail:
		c.fail(req, LineAllocFail)
	case c.missQueueFull(0):
		c.fail(req, MissQueueFull)
	default:
		if sent, _ := c.sendReadRequest(a, req, false); sent {
			status = Miss
		}
	}

	c.finishAccess(a, status)
	c.bandwidth.useDataPort(req, status, a.events)

	return status, a.events
}
