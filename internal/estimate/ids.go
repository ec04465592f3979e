package estimate

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// IDGenerator produces opaque unique identifiers for rooms and line items.
// Injected so tests can assert deterministic ids.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator generates random UUID identifiers
type UUIDGenerator struct{}

// NewID returns a new random UUID string
func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}

// SequenceGenerator generates predictable ids ("prefix-1", "prefix-2", ...)
// for use in tests
type SequenceGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceGenerator creates a sequence generator with the given prefix
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	return &SequenceGenerator{prefix: prefix}
}

// NewID returns the next id in the sequence
func (g *SequenceGenerator) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
