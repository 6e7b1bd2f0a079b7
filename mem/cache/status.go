package cache

import (
	"fmt"

	"github.com/sarchlab/ndpsim/mem/cache/internal/tagging"
)

// RequestStatus is the outcome of a cache access.
type RequestStatus = tagging.Status

// The request statuses.
const (
	Hit             = tagging.Hit
	HitReserved     = tagging.HitReserved
	Miss            = tagging.Miss
	ReservationFail = tagging.ReservationFail
	SectorMiss      = tagging.SectorMiss
	MSHRHit         = tagging.MSHRHit
	NumStatus       = tagging.NumStatus
)

// FailReason tells why an access got RESERVATION_FAIL.
type FailReason int

// The fail reasons.
const (
	LineAllocFail FailReason = iota
	MissQueueFull
	MSHREntryFail
	MSHRMergeEntryFail
	MSHRRWPending
	NumFailReasons
)

var failReasonNames = [NumFailReasons]string{
	"LINE_ALLOC_FAIL", "MISS_QUEUE_FULL", "MSHR_ENTRY_FAIL",
	"MSHR_MERGE_ENTRY_FAIL", "MSHR_RW_PENDING",
}

func (r FailReason) String() string {
	if r < 0 || r >= NumFailReasons {
		return fmt.Sprintf("FailReason(%d)", int(r))
	}

	return failReasonNames[r]
}
