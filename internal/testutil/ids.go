package testutil

import (
	"fmt"
	"sync"
)

// FixedIDGenerator hands out predictable ids: "<prefix>-0001", "<prefix>-0002", ...
type FixedIDGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewFixedIDGenerator creates a generator with the given prefix.
func NewFixedIDGenerator(prefix string) *FixedIDGenerator {
	return &FixedIDGenerator{prefix: prefix}
}

// Next returns the next id.
func (g *FixedIDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
