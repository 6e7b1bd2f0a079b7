package cache

import (
	"fmt"
	"io"
	"slices"

	"github.com/sarchlab/ndpsim/datarecording"
	"github.com/sarchlab/ndpsim/mem/mem"
)

var (
	readAccessTypes = []mem.AccessType{
		mem.GlobalAccR, mem.InstAccR, mem.HostAccR, mem.TLBAccR,
	}
	writeAccessTypes = []mem.AccessType{
		mem.GlobalAccW, mem.L1CacheWA, mem.L1CacheWB, mem.L2CacheWA,
		mem.L2CacheWB, mem.DMAAllocW, mem.HostAccW,
	}
)

// Stats counts the outcomes of the accesses to one cache.
type Stats struct {
	stats     [mem.NumAccessTypes][NumStatus]uint64
	failStats [mem.NumAccessTypes][NumFailReasons]uint64

	PortAvailableCycles uint64
	DataPortBusyCycles  uint64
	FillPortBusyCycles  uint64

	prevHit  uint64
	prevMiss uint64
}

// NewStats creates a zeroed statistics object.
func NewStats() *Stats {
	return &Stats{}
}

// IncStats counts one access of type t with outcome status.
func (s *Stats) IncStats(t mem.AccessType, status RequestStatus) {
	s.stats[t][status]++
}

// IncFailStats counts one access of type t that failed for reason.
func (s *Stats) IncFailStats(t mem.AccessType, reason FailReason) {
	s.failStats[t][reason]++
}

// Get returns the number of accesses of type t with outcome status.
func (s *Stats) Get(t mem.AccessType, status RequestStatus) uint64 {
	return s.stats[t][status]
}

// GetFail returns the number of accesses of type t that failed for reason.
func (s *Stats) GetFail(t mem.AccessType, reason FailReason) uint64 {
	return s.failStats[t][reason]
}

// SelectStatsStatus picks the status an access is counted as. A pending
// hit stays a pending hit unless the access failed, and a sector miss stays
// a sector miss if it was handled as a miss.
func SelectStatsStatus(probe, access RequestStatus) RequestStatus {
	switch {
	case probe == HitReserved && access != ReservationFail:
		return probe
	case probe == SectorMiss && access == Miss:
		return probe
	default:
		return access
	}
}

// Add accumulates other into s.
func (s *Stats) Add(other *Stats) {
	for t := range s.stats {
		for st := range s.stats[t] {
			s.stats[t][st] += other.stats[t][st]
		}

		for r := range s.failStats[t] {
			s.failStats[t][r] += other.failStats[t][r]
		}
	}

	s.PortAvailableCycles += other.PortAvailableCycles
	s.DataPortBusyCycles += other.DataPortBusyCycles
	s.FillPortBusyCycles += other.FillPortBusyCycles
}

// Clear zeroes the counters.
func (s *Stats) Clear() {
	s.stats = [mem.NumAccessTypes][NumStatus]uint64{}
	s.failStats = [mem.NumAccessTypes][NumFailReasons]uint64{}
	s.PortAvailableCycles = 0
	s.DataPortBusyCycles = 0
	s.FillPortBusyCycles = 0
}

func (s *Stats) sum(
	types []mem.AccessType,
	statuses ...RequestStatus,
) uint64 {
	total := uint64(0)

	for _, t := range types {
		for _, st := range statuses {
			total += s.stats[t][st]
		}
	}

	return total
}

func allAccessTypes() []mem.AccessType {
	types := make([]mem.AccessType, mem.NumAccessTypes)
	for i := range types {
		types[i] = mem.AccessType(i)
	}

	return types
}

// Hit returns the number of hits.
func (s *Stats) Hit() uint64 {
	return s.sum(allAccessTypes(), Hit)
}

// Miss returns the number of misses, sector misses included.
func (s *Stats) Miss() uint64 {
	return s.sum(allAccessTypes(), Miss, SectorMiss)
}

// ReadHit returns the number of reads that hit or hit a pending line.
func (s *Stats) ReadHit() uint64 {
	return s.sum(readAccessTypes, Hit, HitReserved)
}

// WriteHit returns the number of writes that hit or hit a pending line.
func (s *Stats) WriteHit() uint64 {
	return s.sum(writeAccessTypes, Hit, HitReserved)
}

// ReadMiss returns the number of reads that missed.
func (s *Stats) ReadMiss() uint64 {
	return s.sum(readAccessTypes, Miss, SectorMiss)
}

// WriteMiss returns the number of writes that missed.
func (s *Stats) WriteMiss() uint64 {
	return s.sum(writeAccessTypes, Miss, SectorMiss)
}

// Accesses returns the number of accesses that were not refused.
func (s *Stats) Accesses() uint64 {
	return s.sum(allAccessTypes(), Hit, Miss, SectorMiss, HitReserved)
}

// IntervalHit returns the hits since the previous call.
func (s *Stats) IntervalHit() uint64 {
	prev := s.prevHit
	s.prevHit = s.Hit()

	return s.prevHit - prev
}

// IntervalMiss returns the misses since the previous call.
func (s *Stats) IntervalMiss() uint64 {
	prev := s.prevMiss
	s.prevMiss = s.Miss()

	return s.prevMiss - prev
}

// HitRatio returns hits over accesses, or 0 without accesses.
func (s *Stats) HitRatio() float64 {
	accesses := s.Accesses()
	if accesses == 0 {
		return 0
	}

	return float64(s.Hit()) / float64(accesses)
}

// WriteReport prints the counters of every access type and outcome.
func (s *Stats) WriteReport(w io.Writer, name string) {
	fmt.Fprintf(w, "\tCache Hit : %d, Cache Miss : %d, Hit Ratio : %.2f\n",
		s.Hit(), s.Miss(), s.HitRatio())

	var total [mem.NumAccessTypes]uint64

	for t := mem.AccessType(0); t < mem.NumAccessTypes; t++ {
		for st := RequestStatus(0); st < NumStatus; st++ {
			fmt.Fprintf(w, "\t%s[%s][%s] = %d\n", name, t, st, s.stats[t][st])

			if st != ReservationFail && st != MSHRHit {
				total[t] += s.stats[t][st]
			}
		}
	}

	for t := mem.AccessType(0); t < mem.NumAccessTypes; t++ {
		fmt.Fprintf(w, "\t%s[%s][TOTAL] = %d\n", name, t, total[t])
	}
}

// WriteFailReport prints the fail counters.
func (s *Stats) WriteFailReport(w io.Writer, name string) {
	for t := mem.AccessType(0); t < mem.NumAccessTypes; t++ {
		for r := FailReason(0); r < NumFailReasons; r++ {
			fmt.Fprintf(w, "\t%s[%s][%s] = %d\n", name, t, r,
				s.failStats[t][r])
		}
	}
}

// WriteEnergyReport prints the counters energy models consume.
func (s *Stats) WriteEnergyReport(w io.Writer, name string) {
	fmt.Fprintf(w, "%s_RH: %d\n", name, s.ReadHit())
	fmt.Fprintf(w, "%s_RM: %d\n", name, s.ReadMiss())
	fmt.Fprintf(w, "%s_WH: %d\n", name, s.WriteHit())
	fmt.Fprintf(w, "%s_WM: %d\n", name, s.WriteMiss())
}

// StatsEntry is a row of recorded cache statistics.
type StatsEntry struct {
	Cache      string
	AccessType string
	Outcome    string
	Fail       bool
	Count      uint64
}

// Record writes the non-zero counters of the cache called name into table.
// The table is created if it does not exist.
func (s *Stats) Record(
	recorder datarecording.DataRecorder,
	table, name string,
) {
	if !slices.Contains(recorder.ListTables(), table) {
		recorder.CreateTable(table, StatsEntry{})
	}

	for t := mem.AccessType(0); t < mem.NumAccessTypes; t++ {
		for st := RequestStatus(0); st < NumStatus; st++ {
			if n := s.stats[t][st]; n > 0 {
				recorder.InsertData(table, StatsEntry{
					Cache: name, AccessType: t.String(),
					Outcome: st.String(), Count: n,
				})
			}
		}

		for r := FailReason(0); r < NumFailReasons; r++ {
			if n := s.failStats[t][r]; n > 0 {
				recorder.InsertData(table, StatsEntry{
					Cache: name, AccessType: t.String(),
					Outcome: r.String(), Fail: true, Count: n,
				})
			}
		}
	}

	ports := []struct {
		name  string
		count uint64
	}{
		{"PORT_AVAILABLE", s.PortAvailableCycles},
		{"DATA_PORT_BUSY", s.DataPortBusyCycles},
		{"FILL_PORT_BUSY", s.FillPortBusyCycles},
	}

	for _, p := range ports {
		recorder.InsertData(table, StatsEntry{
			Cache: name, AccessType: "ALL", Outcome: p.name, Count: p.count,
		})
	}
}
