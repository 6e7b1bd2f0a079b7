package mem

import (
	"fmt"
	"sync"
)

// A Storage keeps the bytes of the simulated memory.
//
// Storage is allocated in units, similar to pages. Units that have never been
// read or written take no host memory.
type Storage struct {
	sync.Mutex

	unitSize uint64
	capacity uint64
	data     map[uint64][]byte
}

// NewStorage creates a storage of the given capacity in bytes.
func NewStorage(capacity uint64) *Storage {
	return &Storage{
		unitSize: 4 * KB,
		capacity: capacity,
		data:     make(map[uint64][]byte),
	}
}

// Capacity returns the number of bytes the storage can hold.
func (s *Storage) Capacity() uint64 {
	return s.capacity
}

func (s *Storage) unit(addr uint64) ([]byte, error) {
	if addr >= s.capacity {
		return nil, fmt.Errorf(
			"address 0x%x is beyond the storage capacity 0x%x",
			addr, s.capacity)
	}

	base := addr / s.unitSize * s.unitSize

	u, ok := s.data[base]
	if !ok {
		u = make([]byte, s.unitSize)
		s.data[base] = u
	}

	return u, nil
}

// Read returns length bytes starting at addr.
func (s *Storage) Read(addr, length uint64) ([]byte, error) {
	s.Lock()
	defer s.Unlock()

	res := make([]byte, length)

	for done := uint64(0); done < length; {
		curr := addr + done

		u, err := s.unit(curr)
		if err != nil {
			return nil, err
		}

		offset := curr % s.unitSize
		n := copy(res[done:], u[offset:])
		done += uint64(n)
	}

	return res, nil
}

// Write stores data starting at addr.
func (s *Storage) Write(addr uint64, data []byte) error {
	return s.WriteMasked(addr, data, nil)
}

// WriteMasked stores the bytes of data whose mask bit is set. A nil mask
// writes every byte.
func (s *Storage) WriteMasked(addr uint64, data []byte, mask []bool) error {
	s.Lock()
	defer s.Unlock()

	for i, b := range data {
		if mask != nil && (i >= len(mask) || !mask[i]) {
			continue
		}

		curr := addr + uint64(i)

		u, err := s.unit(curr)
		if err != nil {
			return err
		}

		u[curr%s.unitSize] = b
	}

	return nil
}
