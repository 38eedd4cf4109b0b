package world

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/worldtext/internal/anvil"
	"github.com/roach88/worldtext/internal/nbt"
	"github.com/roach88/worldtext/internal/testutil"
)

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func chunk(name string) map[string]any {
	return map[string]any{"Status": name}
}

func TestOpen_RequiresLevelDat(t *testing.T) {
	_, err := Open(t.TempDir(), Options{})
	assert.ErrorIs(t, err, ErrNotAWorld)
}

func TestDimensions_Order(t *testing.T) {
	b := testutil.NewWorld(t, 3465).
		Chunk("DIM1", "region", anvil.Pos{}, chunk("end")).
		Chunk("", "region", anvil.Pos{}, chunk("over")).
		Chunk("dimensions/zz/b", "region", anvil.Pos{}, chunk("b")).
		Chunk("dimensions/aa/a", "entities", anvil.Pos{}, chunk("a"))

	w, err := Open(b.Root(), Options{Logger: quiet()})
	require.NoError(t, err)
	assert.Equal(t, []string{"minecraft:overworld", "minecraft:the_end", "aa:a", "zz:b"}, w.Dimensions())
}

func TestRecords_SortedWithChunkBeforeEntities(t *testing.T) {
	b := testutil.NewWorld(t, 3465).
		Chunk("", "region", anvil.Pos{X: 1, Z: 0}, chunk("a")).
		Chunk("", "region", anvil.Pos{X: -1, Z: 5}, chunk("b")).
		Chunk("", "region", anvil.Pos{X: 0, Z: 0}, chunk("c")).
		Chunk("", "entities", anvil.Pos{X: 0, Z: 0}, chunk("d"))

	w, err := Open(b.Root(), Options{Logger: quiet()})
	require.NoError(t, err)
	defer w.Close()

	hs, err := w.Records("minecraft:overworld")
	require.NoError(t, err)
	dim := "minecraft:overworld"
	assert.Equal(t, []Handle{
		{Dim: dim, Kind: KindChunk, Pos: anvil.Pos{X: -1, Z: 5}},
		{Dim: dim, Kind: KindChunk, Pos: anvil.Pos{X: 0, Z: 0}},
		{Dim: dim, Kind: KindEntities, Pos: anvil.Pos{X: 0, Z: 0}},
		{Dim: dim, Kind: KindChunk, Pos: anvil.Pos{X: 1, Z: 0}},
	}, hs)

	_, err = w.Records("minecraft:the_nether")
	assert.Error(t, err)
}

func TestReadWriteFlush(t *testing.T) {
	b := testutil.NewWorld(t, 3465).Chunk("", "region", anvil.Pos{X: 2, Z: 3}, chunk("old"))
	w, err := Open(b.Root(), Options{Logger: quiet()})
	require.NoError(t, err)

	h := Handle{Dim: "minecraft:overworld", Kind: KindChunk, Pos: anvil.Pos{X: 2, Z: 3}}
	root, err := w.Read(h)
	require.NoError(t, err)
	root.Set("Status", nbt.String("new"))
	require.NoError(t, w.Write(h, root))
	require.NoError(t, w.Close())

	got := b.ReadChunk("", "region", anvil.Pos{X: 2, Z: 3})
	s, _ := got.String("Status")
	assert.Equal(t, "new", s)
}

func TestEvictedDirtyRegionIsSaved(t *testing.T) {
	b := testutil.NewWorld(t, 3465).
		Chunk("", "region", anvil.Pos{X: 0, Z: 0}, chunk("a")).
		Chunk("", "region", anvil.Pos{X: 40, Z: 0}, chunk("b"))
	w, err := Open(b.Root(), Options{CacheSize: 1, Logger: quiet()})
	require.NoError(t, err)

	first := Handle{Dim: "minecraft:overworld", Kind: KindChunk, Pos: anvil.Pos{X: 0, Z: 0}}
	root, err := w.Read(first)
	require.NoError(t, err)
	root.Set("Status", nbt.String("rewritten"))
	require.NoError(t, w.Write(first, root))

	// Touching a second region evicts the first.
	_, err = w.Read(Handle{Dim: "minecraft:overworld", Kind: KindChunk, Pos: anvil.Pos{X: 40, Z: 0}})
	require.NoError(t, err)

	got := b.ReadChunk("", "region", anvil.Pos{X: 0, Z: 0})
	s, _ := got.String("Status")
	assert.Equal(t, "rewritten", s)
	require.NoError(t, w.Close())
}

func TestLevelData(t *testing.T) {
	b := testutil.NewWorld(t, 2730).Chunk("", "region", anvil.Pos{}, chunk("a"))
	w, err := Open(b.Root(), Options{Logger: quiet()})
	require.NoError(t, err)

	ld, err := w.LevelData()
	require.NoError(t, err)
	assert.Equal(t, "test", ld.Name)
	assert.EqualValues(t, 2730, ld.DataVersion)
	assert.True(t, ld.LegacySpawners())
	assert.False(t, LevelData{DataVersion: 3465}.LegacySpawners())
	assert.False(t, LevelData{}.LegacySpawners())
}

func TestDocuments(t *testing.T) {
	b := testutil.NewWorld(t, 3465).Document(ScoreboardFile, map[string]any{"data": map[string]any{}})
	w, err := Open(b.Root(), Options{Logger: quiet()})
	require.NoError(t, err)

	doc, err := w.ReadDocument(ScoreboardFile)
	require.NoError(t, err)
	assert.True(t, doc.File.Compressed)
	doc.File.Root.Set("touched", nbt.Byte(1))
	require.NoError(t, doc.Save())
	assert.True(t, b.ReadDocument(ScoreboardFile).Has("touched"))

	_, err = w.ReadDocument("data/missing.dat")
	assert.True(t, IsMissing(err))
}

func TestBackup(t *testing.T) {
	b := testutil.NewWorld(t, 3465).File("datapacks/p/pack.mcmeta", "{}")
	dst := filepath.Join(t.TempDir(), "copy")

	require.NoError(t, Backup(b.Root(), dst))
	data, err := os.ReadFile(filepath.Join(dst, "datapacks", "p", "pack.mcmeta"))
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
	_, err = os.Stat(filepath.Join(dst, "level.dat"))
	assert.NoError(t, err)

	assert.Error(t, Backup(b.Root(), dst))
}
