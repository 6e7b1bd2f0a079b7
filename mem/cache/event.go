package cache

import (
	"fmt"

	"github.com/sarchlab/ndpsim/mem/mem"
)

// EventType names what an access sent to the memory below.
type EventType int

// The event types.
const (
	WriteBackRequestSent EventType = iota
	ReadRequestSent
	WriteRequestSent
	WriteAllocateSent
)

func (t EventType) String() string {
	switch t {
	case WriteBackRequestSent:
		return "WRITE_BACK_REQUEST_SENT"
	case ReadRequestSent:
		return "READ_REQUEST_SENT"
	case WriteRequestSent:
		return "WRITE_REQUEST_SENT"
	case WriteAllocateSent:
		return "WRITE_ALLOCATE_SENT"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

// EvictedBlockInfo describes a modified line that was replaced.
type EvictedBlockInfo struct {
	BlockAddr    uint64
	ModifiedSize uint64
	DirtyMask    mem.SectorMask

	// Data is the content of the line when it was replaced. Valid marks
	// the bytes of Data that hold data.
	Data  []byte
	Valid []bool
}

// An Event is reported by an access for every request it sends.
type Event struct {
	Type EventType

	// Evicted is only set for WriteBackRequestSent.
	Evicted EvictedBlockInfo
}

// WasEventSent returns the first event of type t.
func WasEventSent(events []Event, t EventType) (Event, bool) {
	for _, e := range events {
		if e.Type == t {
			return e, true
		}
	}

	return Event{}, false
}

// WasWriteSent tells if the access forwarded a write.
func WasWriteSent(events []Event) bool {
	_, ok := WasEventSent(events, WriteRequestSent)
	return ok
}

// WasReadSent tells if the access sent a read.
func WasReadSent(events []Event) bool {
	_, ok := WasEventSent(events, ReadRequestSent)
	return ok
}

// WasWriteBackSent tells if the access wrote back an evicted line.
func WasWriteBackSent(events []Event) bool {
	_, ok := WasEventSent(events, WriteBackRequestSent)
	return ok
}

// WasWriteAllocateSent tells if the access fetched a line to write it.
func WasWriteAllocateSent(events []Event) bool {
	_, ok := WasEventSent(events, WriteAllocateSent)
	return ok
}
