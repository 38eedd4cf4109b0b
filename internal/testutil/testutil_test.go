package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/worldtext/internal/anvil"
	"github.com/roach88/worldtext/internal/nbt"
)

func TestDeterministicClock_AdvancesOneSecond(t *testing.T) {
	clock := NewDeterministicClock()
	assert.Equal(t, Epoch, clock.Now())
	assert.Equal(t, Epoch.Add(time.Second), clock.Now())

	clock.Reset()
	assert.Equal(t, Epoch, clock.Now())
}

func TestDeterministicClock_ConcurrentAccess(t *testing.T) {
	clock := NewDeterministicClock()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			clock.Now()
		}()
	}
	wg.Wait()
	assert.Equal(t, Epoch.Add(50*time.Second), clock.Now())
}

func TestSequentialIDGenerator(t *testing.T) {
	gen := NewSequentialIDGenerator("")
	assert.Equal(t, "test-run-1", gen.NewID())
	assert.Equal(t, "test-run-2", gen.NewID())
	assert.Equal(t, "x-1", NewSequentialIDGenerator("x").NewID())
}

func TestWorldBuilder_RoundTrip(t *testing.T) {
	b := NewWorld(t, 3465).
		Chunk("", "region", anvil.Pos{X: 1, Z: 2}, map[string]any{"block_entities": []any{}}).
		File("datapacks/p/data/ns/function/f.mcfunction", "say hi\n")

	level := b.ReadDocument("level.dat")
	v, ok := nbt.TryGet(level, "Data", "DataVersion")
	require.True(t, ok)
	assert.Equal(t, nbt.Int(3465), v)

	chunk := b.ReadChunk("", "region", anvil.Pos{X: 1, Z: 2})
	assert.True(t, chunk.Has("block_entities"))
	assert.Equal(t, "say hi\n", b.ReadFile("datapacks/p/data/ns/function/f.mcfunction"))
}
