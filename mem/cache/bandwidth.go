package cache

import (
	"log"

	"github.com/sarchlab/ndpsim/mem/mem"
)

// bandwidthManagement models the occupancy of the data and the fill port.
type bandwidthManagement struct {
	config *Config

	dataPortOccupiedCycles uint64
	fillPortOccupiedCycles uint64
}

func ceilDiv(a, b uint64) uint64 {
	return (a + b - 1) / b
}

// useDataPort charges the data port for an access. A hit reads the data out
// and a miss that evicted a modified line reads the line out.
func (b *bandwidthManagement) useDataPort(
	req *mem.Fetch,
	outcome RequestStatus,
	events []Event,
) {
	width := b.config.DataPortWidth

	switch outcome {
	case Hit:
		b.dataPortOccupiedCycles += ceilDiv(req.DataSize, width)
	case HitReserved, Miss:
		if e, ok := WasEventSent(events, WriteBackRequestSent); ok {
			b.dataPortOccupiedCycles += e.Evicted.ModifiedSize / width
		}
	case SectorMiss, ReservationFail:
	default:
		log.Panicf("unexpected access outcome %s", outcome)
	}
}

// useFillPort charges the fill port for one fill.
func (b *bandwidthManagement) useFillPort() {
	b.fillPortOccupiedCycles += b.config.AtomSize() / b.config.DataPortWidth
}

// replenish frees one cycle of each port.
func (b *bandwidthManagement) replenish() {
	if b.dataPortOccupiedCycles > 0 {
		b.dataPortOccupiedCycles--
	}

	if b.fillPortOccupiedCycles > 0 {
		b.fillPortOccupiedCycles--
	}
}

func (b *bandwidthManagement) dataPortFree() bool {
	return !b.config.BandwidthLimited || b.dataPortOccupiedCycles == 0
}

func (b *bandwidthManagement) fillPortFree() bool {
	return !b.config.BandwidthLimited || b.fillPortOccupiedCycles == 0
}
