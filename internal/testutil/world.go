package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/worldtext/internal/anvil"
	"github.com/roach88/worldtext/internal/nbt"
)

// WorldBuilder writes a minimal save directory for tests.
type WorldBuilder struct {
	t    *testing.T
	root string
}

// NewWorld creates an empty save with a gzip level.dat at dataVersion.
func NewWorld(t *testing.T, dataVersion int) *WorldBuilder {
	t.Helper()
	b := &WorldBuilder{t: t, root: filepath.Join(t.TempDir(), "world")}
	require.NoError(t, os.MkdirAll(b.root, 0o755))
	b.Document("level.dat", map[string]any{
		"Data": map[string]any{"LevelName": "test", "DataVersion": dataVersion},
	})
	return b
}

// Root returns the save directory.
func (b *WorldBuilder) Root() string {
	return b.root
}

// Compound converts a plain value tree into NBT.
func Compound(t *testing.T, v map[string]any) *nbt.Compound {
	t.Helper()
	c, err := nbt.CompoundFromValue(v)
	require.NoError(t, err)
	return c
}

// Chunk stores a record in the region file of dir ("region" or "entities")
// below dimDir ("" for the overworld).
func (b *WorldBuilder) Chunk(dimDir, dir string, pos anvil.Pos, v map[string]any) *WorldBuilder {
	b.t.Helper()
	regionDir := filepath.Join(b.root, dimDir, dir)
	require.NoError(b.t, os.MkdirAll(regionDir, 0o755))
	r, err := anvil.Open(filepath.Join(regionDir, anvil.FileName(anvil.RegionOf(pos))))
	require.NoError(b.t, err)
	require.NoError(b.t, r.WriteChunk(pos, Compound(b.t, v)))
	require.NoError(b.t, r.Save())
	return b
}

// Document writes a gzip-compressed NBT file at rel.
func (b *WorldBuilder) Document(rel string, v map[string]any) *WorldBuilder {
	b.t.Helper()
	path := filepath.Join(b.root, filepath.FromSlash(rel))
	require.NoError(b.t, os.MkdirAll(filepath.Dir(path), 0o755))
	f := &nbt.File{Root: Compound(b.t, v), Compressed: true}
	require.NoError(b.t, f.Save(path))
	return b
}

// File writes a plain file at rel.
func (b *WorldBuilder) File(rel, content string) *WorldBuilder {
	b.t.Helper()
	path := filepath.Join(b.root, filepath.FromSlash(rel))
	require.NoError(b.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(b.t, os.WriteFile(path, []byte(content), 0o644))
	return b
}

// ReadChunk decodes a record back for assertions.
func (b *WorldBuilder) ReadChunk(dimDir, dir string, pos anvil.Pos) *nbt.Compound {
	b.t.Helper()
	r, err := anvil.Open(filepath.Join(b.root, dimDir, dir, anvil.FileName(anvil.RegionOf(pos))))
	require.NoError(b.t, err)
	root, err := r.ReadChunk(pos)
	require.NoError(b.t, err)
	return root
}

// ReadDocument decodes an NBT file back for assertions.
func (b *WorldBuilder) ReadDocument(rel string) *nbt.Compound {
	b.t.Helper()
	f, err := nbt.ReadFile(filepath.Join(b.root, filepath.FromSlash(rel)))
	require.NoError(b.t, err)
	return f.Root
}

// ReadFile returns a plain file's content.
func (b *WorldBuilder) ReadFile(rel string) string {
	b.t.Helper()
	data, err := os.ReadFile(filepath.Join(b.root, filepath.FromSlash(rel)))
	require.NoError(b.t, err)
	return string(data)
}
