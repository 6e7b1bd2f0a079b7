// Package idealmemory provides a memory that answers every request after a
// fixed latency.
package idealmemory

import (
	"log"

	"github.com/sarchlab/ndpsim/mem/mem"
	"github.com/sarchlab/ndpsim/sim/hooking"
)

// HookPosMemRespond marks when the memory completes a request. The item is
// the request.
var HookPosMemRespond = &hooking.HookPos{Name: "Mem Respond"}

// A FillReceiver takes the read replies of the memory.
type FillReceiver interface {
	Fill(resp *mem.Fetch, time uint64)
}

type inflightReq struct {
	req     *mem.Fetch
	readyAt uint64
}

// Comp is an ideal memory. Requests are served in order and never conflict.
type Comp struct {
	hooking.HookableBase

	name       string
	width      int
	queueSize  int
	sectorSize uint64
	receiver   FillReceiver
	inflight   []inflightReq
	now        uint64

	Latency uint64
	Storage *mem.Storage
}

// Name returns the name of the memory.
func (c *Comp) Name() string {
	return c.name
}

// SetFillReceiver sets who gets the read replies.
func (c *Comp) SetFillReceiver(r FillReceiver) {
	c.receiver = r
}

// Full tells if the memory cannot take another request.
func (c *Comp) Full() bool {
	return len(c.inflight) >= c.queueSize
}

// Push takes a request. The request completes Latency cycles after the
// last tick.
func (c *Comp) Push(req *mem.Fetch) {
	if c.Full() {
		log.Panicf("memory %s is full", c.name)
	}

	if !req.IsRequest() {
		log.Panicf("memory %s cannot take a reply", c.name)
	}

	c.inflight = append(c.inflight, inflightReq{
		req:     req,
		readyAt: c.now + c.Latency,
	})
}

// InflightCount returns the number of requests not completed.
func (c *Comp) InflightCount() int {
	return len(c.inflight)
}

// Tick completes up to width requests that are due at now. It returns true
// if any request completes.
func (c *Comp) Tick(now uint64) bool {
	c.now = now
	madeProgress := false

	for i := 0; i < c.width; i++ {
		if len(c.inflight) == 0 || c.inflight[0].readyAt > now {
			break
		}

		req := c.inflight[0].req
		c.inflight = c.inflight[1:]

		if req.Type == mem.ReadRequest {
			c.handleRead(req, now)
		} else {
			c.handleWrite(req)
		}

		c.InvokeHook(hooking.HookCtx{
			Domain: c,
			Pos:    HookPosMemRespond,
			Item:   req,
		})

		madeProgress = true
	}

	return madeProgress
}

func (c *Comp) handleRead(req *mem.Fetch, now uint64) {
	data, err := c.Storage.Read(req.Address, req.DataSize)
	if err != nil {
		log.Panic(err)
	}

	resp := *req
	resp.Data = data
	resp.SetReply()

	if c.receiver == nil {
		return
	}

	if c.sectorSize == 0 {
		c.receiver.Fill(&resp, now)
		return
	}

	for _, sub := range resp.SplitSectors(c.sectorSize) {
		c.receiver.Fill(sub, now)
	}
}

func (c *Comp) handleWrite(req *mem.Fetch) {
	if len(req.Data) == 0 {
		return
	}

	err := c.Storage.WriteMasked(req.Address, req.Data, dataMask(req))
	if err != nil {
		log.Panic(err)
	}
}

// dataMask converts the byte mask of req, which covers an aligned window,
// to one bit per byte of its data.
func dataMask(req *mem.Fetch) []bool {
	if len(req.ByteMask) == 0 {
		return nil
	}

	window := uint64(len(req.ByteMask))
	base := req.Address - req.Address%window
	mask := make([]bool, len(req.Data))

	for i := range mask {
		pos := req.Address + uint64(i) - base
		mask[i] = pos < window && req.ByteMask[pos]
	}

	return mask
}
