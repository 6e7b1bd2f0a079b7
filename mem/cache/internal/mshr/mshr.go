// Package mshr tracks the misses that a cache has sent to the memory below
// and the requests that wait for them.
package mshr

import (
	"fmt"
	"io"
	"log"

	"github.com/google/btree"

	"github.com/sarchlab/ndpsim/mem/mem"
)

type entry struct {
	blockAddr uint64
	waiters   []*mem.Fetch
	hasAtomic bool
}

func entryLess(a, b *entry) bool {
	return a.blockAddr < b.blockAddr
}

// Table maps the address of every outstanding block to the requests merged
// into it. It also keeps the addresses whose data has arrived in arrival
// order.
type Table struct {
	numEntries int
	maxMerge   int

	entries *btree.BTreeG[*entry]
	ready   []uint64
}

// NewTable creates a table with numEntries entries, each merging up to
// maxMerge requests.
func NewTable(numEntries, maxMerge int) *Table {
	return &Table{
		numEntries: numEntries,
		maxMerge:   maxMerge,
		entries:    btree.NewG(2, entryLess),
	}
}

func (t *Table) get(blockAddr uint64) (*entry, bool) {
	return t.entries.Get(&entry{blockAddr: blockAddr})
}

// Probe tells if blockAddr has an entry.
func (t *Table) Probe(blockAddr uint64) bool {
	_, found := t.get(blockAddr)
	return found
}

// Full tells if a request to blockAddr cannot be added. An existing entry is
// full when it has merged maxMerge requests. Otherwise the table is full
// when it has numEntries entries.
func (t *Table) Full(blockAddr uint64) bool {
	if e, found := t.get(blockAddr); found {
		return len(e.waiters) >= t.maxMerge
	}

	return t.entries.Len() >= t.numEntries
}

// Add appends req to the waiters of blockAddr.
func (t *Table) Add(blockAddr uint64, req *mem.Fetch) {
	if t.Full(blockAddr) {
		log.Panicf("adding request %s to a full MSHR entry 0x%x",
			req.ID, blockAddr)
	}

	e, found := t.get(blockAddr)
	if !found {
		e = &entry{blockAddr: blockAddr}
		t.entries.ReplaceOrInsert(e)
	}

	e.waiters = append(e.waiters, req)
	if req.IsAtomic() {
		e.hasAtomic = true
	}
}

// MarkReady queues blockAddr for draining. It reports whether any of the
// waiting requests is atomic.
func (t *Table) MarkReady(blockAddr uint64) (hasAtomic bool) {
	e, found := t.get(blockAddr)
	if !found {
		log.Panicf("marking 0x%x ready without an MSHR entry", blockAddr)
	}

	t.ready = append(t.ready, blockAddr)

	return e.hasAtomic
}

// AccessReady tells if a request is waiting to be drained.
func (t *Table) AccessReady() bool {
	return len(t.ready) > 0
}

func (t *Table) front() *entry {
	if !t.AccessReady() {
		log.Panic("no MSHR entry is ready")
	}

	e, found := t.get(t.ready[0])
	if !found {
		log.Panicf("ready block 0x%x has no MSHR entry", t.ready[0])
	}

	return e
}

// TopNextAccess returns the oldest waiter of the oldest ready block.
func (t *Table) TopNextAccess() *mem.Fetch {
	return t.front().waiters[0]
}

// PopNextAccess removes and returns the oldest waiter of the oldest ready
// block. The entry goes away with its last waiter.
func (t *Table) PopNextAccess() *mem.Fetch {
	e := t.front()

	req := e.waiters[0]
	e.waiters = e.waiters[1:]

	if len(e.waiters) == 0 {
		t.entries.Delete(e)
		t.ready = t.ready[1:]
	}

	return req
}

// IsReadAfterWritePending tells if a read waits behind a write in the entry
// of blockAddr.
func (t *Table) IsReadAfterWritePending(blockAddr uint64) bool {
	e, found := t.get(blockAddr)
	if !found {
		return false
	}

	writeFound := false

	for _, req := range e.waiters {
		if req.IsWrite() {
			writeFound = true
		} else if writeFound {
			return true
		}
	}

	return false
}

// Waiters returns the requests merged into blockAddr, oldest first.
func (t *Table) Waiters(blockAddr uint64) []*mem.Fetch {
	e, found := t.get(blockAddr)
	if !found {
		return nil
	}

	return e.waiters
}

// Len returns the number of entries.
func (t *Table) Len() int {
	return t.entries.Len()
}

// Dump writes the entries in address order.
func (t *Table) Dump(w io.Writer) {
	t.entries.Ascend(func(e *entry) bool {
		fmt.Fprintf(w, "MSHR: tag=0x%x, atomic=%t %d entries :",
			e.blockAddr, e.hasAtomic, len(e.waiters))

		for _, req := range e.waiters {
			fmt.Fprintf(w, " %s", req.ID)
		}

		fmt.Fprintln(w)

		return true
	})
}
