package idealmemory

import (
	"github.com/sarchlab/ndpsim/mem/mem"
)

// Builder can build ideal memories.
type Builder struct {
	width      int
	latency    uint64
	capacity   uint64
	queueSize  int
	sectorSize uint64
	storage    *mem.Storage
	receiver   FillReceiver
}

// MakeBuilder returns a new Builder.
func MakeBuilder() Builder {
	return Builder{
		width:     1,
		latency:   100,
		capacity:  4 * mem.GB,
		queueSize: 16,
	}
}

// WithWidth sets the number of requests taken in each cycle.
func (b Builder) WithWidth(width int) Builder {
	b.width = width
	return b
}

// WithLatency sets the number of cycles a request takes.
func (b Builder) WithLatency(latency uint64) Builder {
	b.latency = latency
	return b
}

// WithNewStorage sets the capacity of the storage created for the memory.
func (b Builder) WithNewStorage(capacity uint64) Builder {
	b.capacity = capacity
	return b
}

// WithStorage sets the storage of the memory.
func (b Builder) WithStorage(storage *mem.Storage) Builder {
	b.storage = storage
	return b
}

// WithQueueSize sets the number of requests that can wait in the memory.
func (b Builder) WithQueueSize(size int) Builder {
	b.queueSize = size
	return b
}

// WithSectorReplies makes the memory answer a read with one reply per
// sector of the given size.
func (b Builder) WithSectorReplies(sectorSize uint64) Builder {
	b.sectorSize = sectorSize
	return b
}

// WithFillReceiver sets who gets the read replies.
func (b Builder) WithFillReceiver(r FillReceiver) Builder {
	b.receiver = r
	return b
}

// Build builds a new Comp.
func (b Builder) Build(name string) *Comp {
	c := &Comp{
		name:       name,
		width:      b.width,
		Latency:    b.latency,
		queueSize:  b.queueSize,
		sectorSize: b.sectorSize,
		receiver:   b.receiver,
	}

	if b.storage == nil {
		c.Storage = mem.NewStorage(b.capacity)
	} else {
		c.Storage = b.storage
	}

	return c
}
