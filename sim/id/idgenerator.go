// Package id generates the identifiers that memory requests carry through the
// cache hierarchy.
package id

import (
	"log"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/rs/xid"
)

var (
	generatorMutex        sync.Mutex
	generatorInstantiated bool
	generator             Generator
)

// Generator can generate IDs.
type Generator interface {
	// Generate returns an ID that has not been returned before.
	Generate() string
}

// UseSequentialIDGenerator configures the package to generate sequential,
// deterministic IDs.
func UseSequentialIDGenerator() {
	generatorMutex.Lock()
	defer generatorMutex.Unlock()

	if generatorInstantiated {
		log.Panic("cannot change id generator type after using it")
	}

	generator = &sequentialIDGenerator{}
	generatorInstantiated = true
}

// UseParallelIDGenerator configures the package to generate globally unique
// IDs. The IDs generated are not deterministic.
func UseParallelIDGenerator() {
	generatorMutex.Lock()
	defer generatorMutex.Unlock()

	if generatorInstantiated {
		log.Panic("cannot change id generator type after using it")
	}

	generator = parallelIDGenerator{}
	generatorInstantiated = true
}

// GetIDGenerator returns the ID generator in use. A sequential generator is
// installed if none has been chosen.
func GetIDGenerator() Generator {
	generatorMutex.Lock()
	defer generatorMutex.Unlock()

	if !generatorInstantiated {
		generator = &sequentialIDGenerator{}
		generatorInstantiated = true
	}

	return generator
}

// Generate returns a new ID from the ID generator in use.
func Generate() string {
	return GetIDGenerator().Generate()
}

type sequentialIDGenerator struct {
	nextID uint64
}

func (g *sequentialIDGenerator) Generate() string {
	idNumber := atomic.AddUint64(&g.nextID, 1)

	return strconv.FormatUint(idNumber, 10)
}

type parallelIDGenerator struct{}

func (g parallelIDGenerator) Generate() string {
	return xid.New().String()
}
