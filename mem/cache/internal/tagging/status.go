// Package tagging keeps the tag and state of every cache line.
package tagging

import "fmt"

// BlockState is the state of a line or of one sector of a line.
type BlockState int

// The block states.
const (
	Invalid BlockState = iota
	Reserved
	Valid
	Modified
)

func (s BlockState) String() string {
	switch s {
	case Invalid:
		return "INVALID"
	case Reserved:
		return "RESERVED"
	case Valid:
		return "VALID"
	case Modified:
		return "MODIFIED"
	default:
		return fmt.Sprintf("BlockState(%d)", int(s))
	}
}

// Status is the outcome of looking up an address.
type Status int

// The lookup outcomes.
const (
	Hit Status = iota
	HitReserved
	Miss
	ReservationFail
	SectorMiss
	MSHRHit
	NumStatus
)

var statusNames = [NumStatus]string{
	"HIT", "HIT_RESERVED", "MISS", "RESERVATION_FAIL", "SECTOR_MISS",
	"MSHR_HIT",
}

func (s Status) String() string {
	if s < 0 || s >= NumStatus {
		return fmt.Sprintf("Status(%d)", int(s))
	}

	return statusNames[s]
}
