package mem

import "log"

// AddressToChannelMapper decides which memory channel serves an address.
type AddressToChannelMapper interface {
	Find(address uint64) int
}

// SingleChannelMapper sends every address to the same channel.
type SingleChannelMapper struct {
	Channel int
}

// Find returns the only channel.
func (m *SingleChannelMapper) Find(_ uint64) int {
	return m.Channel
}

// InterleavedChannelMapper spreads consecutive blocks of InterleavingSize
// bytes over NumChannels channels, round robin.
type InterleavedChannelMapper struct {
	InterleavingSize uint64
	NumChannels      int
}

// NewInterleavedChannelMapper creates a mapper over numChannels channels.
func NewInterleavedChannelMapper(
	interleavingSize uint64,
	numChannels int,
) *InterleavedChannelMapper {
	if interleavingSize == 0 || numChannels <= 0 {
		log.Panic("interleaving size and channel count must be positive")
	}

	return &InterleavedChannelMapper{
		InterleavingSize: interleavingSize,
		NumChannels:      numChannels,
	}
}

// Find returns the channel that serves the address.
func (m *InterleavedChannelMapper) Find(address uint64) int {
	return int(address / m.InterleavingSize % uint64(m.NumChannels))
}
