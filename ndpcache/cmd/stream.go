package cmd

import (
	"fmt"

	"github.com/sarchlab/ndpsim/mem/cache"
	"github.com/sarchlab/ndpsim/mem/idealmemory"
	"github.com/sarchlab/ndpsim/mem/mem"
	"github.com/sarchlab/ndpsim/sim/hooking"
)

// streamOptions describes a synthetic access stream and the cache it runs
// through.
type streamOptions struct {
	descriptor string
	latency    uint64
	accesses   int
	stride     uint64
	footprint  uint64
	size       uint64

	// writeEvery makes every n-th access a write. Zero means reads only.
	writeEvery int
	l1         bool
	maxCycles  uint64
	hooks      []hooking.Hook
}

// streamResult is what is left after a stream is drained.
type streamResult struct {
	cache   *cache.DataCache
	memory  *idealmemory.Comp
	cycles  uint64
	filled  int
	retries int
}

func (o streamOptions) address(i int) uint64 {
	return (uint64(i) * o.stride) % o.footprint
}

func (o streamOptions) fetch(i int) *mem.Fetch {
	addr := o.address(i)

	if o.writeEvery > 0 && (i+1)%o.writeEvery == 0 {
		data := make([]byte, o.size)
		for j := range data {
			data[j] = byte(i + j)
		}

		return mem.FetchBuilder{}.
			WithAddress(addr).
			WithAccessType(mem.GlobalAccW).
			WithType(mem.WriteRequest).
			WithByteSize(o.size).
			WithData(data).
			Build()
	}

	return mem.FetchBuilder{}.
		WithAddress(addr).
		WithAccessType(mem.GlobalAccR).
		WithType(mem.ReadRequest).
		WithByteSize(o.size).
		Build()
}

func (o streamOptions) validate() error {
	switch {
	case o.accesses <= 0:
		return fmt.Errorf("the number of accesses must be positive")
	case o.footprint == 0:
		return fmt.Errorf("the footprint must not be zero")
	case o.size == 0:
		return fmt.Errorf("the access size must not be zero")
	}

	return nil
}

// runStream sends the accesses one per cycle. An access that the cache
// cannot take is retried on the next cycle. The stream ends when every
// access went through and the memory is idle.
func runStream(o streamOptions) (*streamResult, error) {
	if err := o.validate(); err != nil {
		return nil, err
	}

	config, err := cache.ParseConfig(o.descriptor)
	if err != nil {
		return nil, err
	}

	memBuilder := idealmemory.MakeBuilder().
		WithLatency(o.latency).
		WithNewStorage(o.footprint + mem.MB)

	// A sector MSHR completes a miss from one reply per sector.
	if config.MSHRType == cache.SectorAssoc {
		memBuilder = memBuilder.WithSectorReplies(config.MemAccessSize)
	}

	memory := memBuilder.Build("Mem")

	c, err := cache.MakeBuilder().
		WithName("Cache").
		WithConfig(config).
		WithL1(o.l1).
		WithMemQueue(memory).
		BuildDataCache()
	if err != nil {
		return nil, err
	}

	memory.SetFillReceiver(c)

	for _, h := range o.hooks {
		c.AcceptHook(h)
	}

	res := &streamResult{cache: c, memory: memory}
	next := 0
	pending := o.fetch(next)

	for now := uint64(1); ; now++ {
		if o.maxCycles > 0 && now > o.maxCycles {
			return res, fmt.Errorf("stream did not finish in %d cycles",
				o.maxCycles)
		}

		if pending != nil {
			status, _ := c.Access(pending.Address, now, pending)
			if status == cache.ReservationFail {
				res.retries++
			} else {
				next++
				pending = nil

				if next < o.accesses {
					pending = o.fetch(next)
				}
			}
		}

		c.Cycle()
		memory.Tick(now)

		for c.AccessReady() {
			c.PopNextAccess()
			res.filled++
		}

		res.cycles = now

		if pending == nil && c.MissQueueLen() == 0 &&
			memory.InflightCount() == 0 {
			return res, nil
		}
	}
}
