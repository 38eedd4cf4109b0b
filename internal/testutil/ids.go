package testutil

import "fmt"

// SequentialIDGenerator returns run ids "<prefix>-1", "<prefix>-2", ...
//
// Journal tests use it instead of UUIDv7 so that golden output and
// assertions do not depend on time or randomness.
type SequentialIDGenerator struct {
	prefix string
	n      int
}

// NewSequentialIDGenerator creates a generator. An empty prefix selects
// "test-run".
func NewSequentialIDGenerator(prefix string) *SequentialIDGenerator {
	if prefix == "" {
		prefix = "test-run"
	}
	return &SequentialIDGenerator{prefix: prefix}
}

// NewID returns the next id.
func (g *SequentialIDGenerator) NewID() string {
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
