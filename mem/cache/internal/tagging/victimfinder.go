package tagging

// A VictimFinder decides which block of a set should be evicted.
type VictimFinder interface {
	// FindVictim returns the position in set of the block to evict. It
	// returns false if every block is reserved.
	FindVictim(set []Block) (int, bool)
}

// LRUVictimFinder evicts the least recently used block.
type LRUVictimFinder struct{}

// NewLRUVictimFinder returns a newly constructed LRU victim finder.
func NewLRUVictimFinder() *LRUVictimFinder {
	return &LRUVictimFinder{}
}

// FindVictim returns an invalid block if there is one, or else the block
// that was accessed the longest time ago.
func (e *LRUVictimFinder) FindVictim(set []Block) (int, bool) {
	return findVictim(set, Block.LastAccessTime)
}

// FIFOVictimFinder evicts the block that was allocated first.
type FIFOVictimFinder struct{}

// NewFIFOVictimFinder returns a newly constructed FIFO victim finder.
func NewFIFOVictimFinder() *FIFOVictimFinder {
	return &FIFOVictimFinder{}
}

// FindVictim returns an invalid block if there is one, or else the oldest
// allocated block.
func (e *FIFOVictimFinder) FindVictim(set []Block) (int, bool) {
	return findVictim(set, Block.AllocTime)
}

func findVictim(set []Block, age func(Block) uint64) (int, bool) {
	victim := -1
	oldest := ^uint64(0)

	for i, b := range set {
		if b.IsReservedLine() {
			continue
		}

		if b.IsInvalidLine() {
			return i, true
		}

		if t := age(b); victim < 0 || t < oldest {
			oldest = t
			victim = i
		}
	}

	return victim, victim >= 0
}
