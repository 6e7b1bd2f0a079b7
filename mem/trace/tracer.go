// Package trace provides hooks that record what caches do.
package trace

import (
	"log"
	"slices"

	"github.com/sarchlab/ndpsim/datarecording"
	"github.com/sarchlab/ndpsim/mem/cache"
	"github.com/sarchlab/ndpsim/mem/mem"
	"github.com/sarchlab/ndpsim/sim/hooking"
)

// AccessTable is the table the database tracer writes into.
const AccessTable = "cache_accesses"

// AccessEntry is a traced access in the database.
type AccessEntry struct {
	ID         string
	Cache      string
	AccessType string
	Status     string
	Address    uint64
	ByteSize   uint64
	StartTime  uint64
	EndTime    uint64
}

type named interface {
	Name() string
}

func domainName(d hooking.Hookable) string {
	if n, ok := d.(named); ok {
		return n.Name()
	}

	return ""
}

// A tracer is a hook that logs the accesses and fills of a cache.
type tracer struct {
	logger *log.Logger
}

// NewTracer creates a hook that writes one line per access and fill into
// logger.
func NewTracer(logger *log.Logger) hooking.Hook {
	return &tracer{logger: logger}
}

func (t *tracer) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case cache.HookPosCacheAccess:
		r := ctx.Item.(cache.AccessRecord)
		t.logger.Printf("access, %d, %s, %s, %s, 0x%x, %d, %s\n",
			r.Time,
			domainName(ctx.Domain),
			r.Req.ID,
			r.Req.AccessType,
			r.Req.Address,
			r.Req.DataSize,
			r.Status,
		)
	case cache.HookPosCacheFill:
		req := ctx.Item.(*mem.Fetch)
		t.logger.Printf("fill, %d, %s, %s\n",
			ctx.Detail.(uint64), domainName(ctx.Domain), req.ID)
	}
}

// A dbTracer is a hook that records the accesses of a cache into a
// database. An access that sent a read below ends when it is filled. Every
// other access ends when it starts.
type dbTracer struct {
	recorder datarecording.DataRecorder
	pending  map[string]*AccessEntry
}

// NewDBTracer creates a hook that records accesses into the AccessTable of
// recorder.
func NewDBTracer(recorder datarecording.DataRecorder) hooking.Hook {
	t := &dbTracer{
		recorder: recorder,
		pending:  make(map[string]*AccessEntry),
	}

	if !slices.Contains(recorder.ListTables(), AccessTable) {
		recorder.CreateTable(AccessTable, AccessEntry{})
	}

	return t
}

func (t *dbTracer) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case cache.HookPosCacheAccess:
		t.startAccess(domainName(ctx.Domain), ctx.Item.(cache.AccessRecord))
	case cache.HookPosCacheFill:
		t.endAccess(ctx.Item.(*mem.Fetch), ctx.Detail.(uint64))
	}
}

func (t *dbTracer) startAccess(name string, r cache.AccessRecord) {
	entry := &AccessEntry{
		ID:         r.Req.ID,
		Cache:      name,
		AccessType: r.Req.AccessType.String(),
		Status:     r.Status.String(),
		Address:    r.Req.Address,
		ByteSize:   r.Req.DataSize,
		StartTime:  r.Time,
		EndTime:    r.Time,
	}

	if r.Status != cache.ReservationFail && cache.WasReadSent(r.Events) {
		t.pending[entry.ID] = entry
		return
	}

	t.recorder.InsertData(AccessTable, *entry)
}

func (t *dbTracer) endAccess(req *mem.Fetch, time uint64) {
	entry, ok := t.pending[req.ID]
	if !ok {
		return
	}

	entry.Address = req.Address
	entry.ByteSize = req.DataSize
	entry.EndTime = time
	t.recorder.InsertData(AccessTable, *entry)

	delete(t.pending, req.ID)
}
