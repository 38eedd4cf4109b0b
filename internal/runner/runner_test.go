package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/worldtext/internal/anvil"
	"github.com/roach88/worldtext/internal/config"
	"github.com/roach88/worldtext/internal/extract"
	"github.com/roach88/worldtext/internal/journal"
	"github.com/roach88/worldtext/internal/nbt"
	"github.com/roach88/worldtext/internal/testutil"
	"github.com/roach88/worldtext/internal/world"
)

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T, overrides map[string]any) *config.Config {
	t.Helper()
	if overrides == nil {
		overrides = map[string]any{}
	}
	if _, ok := overrides["backup"]; !ok {
		overrides["backup"] = false
	}
	cfg, err := config.FromMap(overrides)
	require.NoError(t, err)
	return cfg
}

func readTable(t *testing.T, path string) map[string]string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var out map[string]string
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func signChunk(text string) map[string]any {
	return map[string]any{
		"block_entities": []any{
			map[string]any{"id": "minecraft:oak_sign", "Text1": `{"text":"` + text + `"}`},
		},
	}
}

// sampleWorld has two signs saying "Welcome", a named cow, a scoreboard,
// a boss bar and a data-pack function.
func sampleWorld(t *testing.T) *testutil.WorldBuilder {
	b := testutil.NewWorld(t, 3465).
		Chunk("", "region", anvil.Pos{X: 0, Z: 0}, signChunk("Welcome")).
		Chunk("", "region", anvil.Pos{X: 1, Z: 0}, signChunk("Welcome")).
		Chunk("", "entities", anvil.Pos{X: 0, Z: 0}, map[string]any{
			"Entities": []any{map[string]any{"id": "minecraft:cow", "CustomName": `"Daisy"`}},
		}).
		Document("data/scoreboard.dat", map[string]any{"data": map[string]any{
			"Objectives": []any{map[string]any{"Name": "kills", "DisplayName": `{"text":"Kills"}`}},
		}}).
		File("datapacks/pack/data/ns/function/greet.mcfunction", "tellraw @a {\"text\":\"Hello\"}\n")
	// level.dat with a boss bar, replacing the builder's default.
	b.Document("level.dat", map[string]any{"Data": map[string]any{
		"LevelName":        "test",
		"DataVersion":      3465,
		"CustomBossEvents": map[string]any{"minecraft:b1": map[string]any{"Name": `{"text":"Boss"}`}},
	}})
	return b
}

func TestRun_RewritesWorldAndExports(t *testing.T) {
	b := sampleWorld(t)
	out := filepath.Join(t.TempDir(), "lang")
	r := New(testConfig(t, nil), Options{Output: out, Logger: quiet()})

	res, err := r.Run(context.Background(), b.Root())
	require.NoError(t, err)
	assert.False(t, res.Interrupted)
	assert.Empty(t, res.Backup)

	c0 := b.ReadChunk("", "region", anvil.Pos{X: 0, Z: 0})
	c1 := b.ReadChunk("", "region", anvil.Pos{X: 1, Z: 0})
	e0 := b.ReadChunk("", "entities", anvil.Pos{X: 0, Z: 0})
	get := func(root *nbt.Compound, path ...string) string {
		v, ok := nbt.TryGet(root, path...)
		require.True(t, ok, "missing %v", path)
		return string(v.(nbt.String))
	}
	assert.Equal(t, `{"translate":"block.sign.1.text1.1"}`, get(c0, "block_entities", "0", "Text1"))
	assert.Equal(t, `{"translate":"block.sign.2.text1.1"}`, get(c1, "block_entities", "0", "Text1"))
	assert.Equal(t, `{"translate":"entity.cow.1.name.1"}`, get(e0, "Entities", "0", "CustomName"))

	scores := b.ReadDocument("data/scoreboard.dat")
	assert.Equal(t, `{"translate":"score.objective.kills.name.1"}`, get(scores, "data", "Objectives", "0", "DisplayName"))
	level := b.ReadDocument("level.dat")
	assert.Equal(t, `{"translate":"bossbar.b1.name.1"}`, get(level, "Data", "CustomBossEvents", "minecraft:b1", "Name"))
	assert.Equal(t, "tellraw @a {\"translate\":\"ns.function.greet.1\"}\n",
		b.ReadFile("datapacks/pack/data/ns/function/greet.mcfunction"))

	raw := readTable(t, res.RawPath)
	assert.Equal(t, map[string]string{
		"block.sign.1.text1.1":         "Welcome",
		"block.sign.2.text1.1":         "Welcome",
		"entity.cow.1.name.1":          "Daisy",
		"score.objective.kills.name.1": "Kills",
		"bossbar.b1.name.1":            "Boss",
		"ns.function.greet.1":          "Hello",
	}, raw)
	merged := readTable(t, res.MergedPath)
	assert.Len(t, merged, 5)
	assert.NotContains(t, merged, "block.sign.2.text1.1")

	// Three records, then scoreboard, level and one data file.
	assert.EqualValues(t, 6, res.Stats.Records)
	assert.Equal(t, 3, res.Files)
	assert.Equal(t, 6, res.Keys)
}

func TestRun_RepeatableOverIdenticalWorlds(t *testing.T) {
	cfg := testConfig(t, map[string]any{"dedupe": map[string]any{"signs": true}})
	files := []string{
		filepath.Join("region", "r.0.0.mca"),
		filepath.Join("entities", "r.0.0.mca"),
		filepath.Join("data", "scoreboard.dat"),
		"level.dat",
		filepath.Join("datapacks", "pack", "data", "ns", "function", "greet.mcfunction"),
	}

	run := func() (map[string][]byte, [2][]byte) {
		b := sampleWorld(t)
		res, err := New(cfg, Options{Output: filepath.Join(t.TempDir(), "lang"), Logger: quiet()}).
			Run(context.Background(), b.Root())
		require.NoError(t, err)

		saved := make(map[string][]byte, len(files))
		for _, f := range files {
			data, err := os.ReadFile(filepath.Join(b.Root(), f))
			require.NoError(t, err)
			saved[f] = data
		}
		raw, err := os.ReadFile(res.RawPath)
		require.NoError(t, err)
		merged, err := os.ReadFile(res.MergedPath)
		require.NoError(t, err)
		return saved, [2][]byte{raw, merged}
	}

	savedA, tablesA := run()
	savedB, tablesB := run()
	assert.Equal(t, string(tablesA[0]), string(tablesB[0]), "raw table")
	assert.Equal(t, string(tablesA[1]), string(tablesB[1]), "merged table")
	for _, f := range files {
		assert.True(t, bytes.Equal(savedA[f], savedB[f]), "%s differs between runs", f)
	}
}

func TestRun_DedupPolicySharesKeysAcrossRecords(t *testing.T) {
	b := sampleWorld(t)
	out := filepath.Join(t.TempDir(), "lang")
	cfg := testConfig(t, map[string]any{"dedupe": map[string]any{"signs": true}})

	_, err := New(cfg, Options{Output: out, Logger: quiet()}).Run(context.Background(), b.Root())
	require.NoError(t, err)

	c1 := b.ReadChunk("", "region", anvil.Pos{X: 1, Z: 0})
	v, _ := nbt.TryGet(c1, "block_entities", "0", "Text1")
	assert.Equal(t, nbt.String(`{"translate":"block.sign.1.text1.1"}`), v)
}

func TestRun_Backup(t *testing.T) {
	b := sampleWorld(t)
	cfg := testConfig(t, map[string]any{"backup": true})
	r := New(cfg, Options{
		Output: filepath.Join(t.TempDir(), "lang"),
		Clock:  testutil.NewDeterministicClock(),
		Logger: quiet(),
	})

	res, err := r.Run(context.Background(), b.Root())
	require.NoError(t, err)
	assert.Equal(t, b.Root()+"_backup_20240101-000000", res.Backup)

	// The backup holds the untouched records.
	br, err := anvil.Open(filepath.Join(res.Backup, "region", anvil.FileName(anvil.Pos{})))
	require.NoError(t, err)
	root, err := br.ReadChunk(anvil.Pos{})
	require.NoError(t, err)
	v, _ := nbt.TryGet(root, "block_entities", "0", "Text1")
	assert.Equal(t, nbt.String(`{"text":"Welcome"}`), v)
}

func TestRun_BackupWithTrailingSlash(t *testing.T) {
	b := sampleWorld(t)
	cfg := testConfig(t, map[string]any{"backup": true})
	r := New(cfg, Options{
		Output: filepath.Join(t.TempDir(), "lang"),
		Clock:  testutil.NewDeterministicClock(),
		Logger: quiet(),
	})

	res, err := r.Run(context.Background(), b.Root()+string(filepath.Separator))
	require.NoError(t, err)
	assert.Equal(t, b.Root()+"_backup_20240101-000000", res.Backup)
	assert.DirExists(t, res.Backup)

	entries, err := os.ReadDir(b.Root())
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), "_backup_")
	}
}

func TestRun_NotAWorld(t *testing.T) {
	r := New(testConfig(t, nil), Options{Output: filepath.Join(t.TempDir(), "lang"), Logger: quiet()})
	_, err := r.Run(context.Background(), t.TempDir())
	assert.ErrorIs(t, err, world.ErrNotAWorld)
}

func TestRun_InterruptedStillExports(t *testing.T) {
	b := sampleWorld(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := testConfig(t, map[string]any{"default_keys": map[string]any{"OK": "gui.ok"}})
	res, err := New(cfg, Options{Output: filepath.Join(t.TempDir(), "lang"), Logger: quiet()}).
		Run(ctx, b.Root())
	require.ErrorIs(t, err, ErrInterrupted)
	require.NotNil(t, res)
	assert.True(t, res.Interrupted)
	assert.Zero(t, res.Stats.Records)
	assert.Equal(t, map[string]string{"gui.ok": "OK"}, readTable(t, res.RawPath))

	// Nothing was rewritten.
	v, _ := nbt.TryGet(b.ReadChunk("", "region", anvil.Pos{}), "block_entities", "0", "Text1")
	assert.Equal(t, nbt.String(`{"text":"Welcome"}`), v)
}

func TestRun_JournalRecordsKeysAndCheckpoints(t *testing.T) {
	b := sampleWorld(t)
	j, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"), journal.Options{
		IDs:   testutil.NewSequentialIDGenerator(""),
		Clock: testutil.NewDeterministicClock(),
	})
	require.NoError(t, err)
	defer j.Close()

	cfg := testConfig(t, map[string]any{"save_threshold": 1})
	res, err := New(cfg, Options{Journal: j, Output: filepath.Join(t.TempDir(), "lang"), Logger: quiet()}).
		Run(context.Background(), b.Root())
	require.NoError(t, err)
	assert.Equal(t, "test-run-1", res.RunID)

	ctx := context.Background()
	run, err := j.Run(ctx, res.RunID)
	require.NoError(t, err)
	assert.Equal(t, journal.StatusDone, run.Status)

	keys, err := j.Keys(ctx, res.RunID)
	require.NoError(t, err)
	require.Len(t, keys, 6)
	assert.Equal(t, "block.sign.1.text1.1", keys[0].Key)
	assert.True(t, keys[0].First)
	assert.False(t, keys[1].First)
	assert.Equal(t, extract.CatSign, keys[1].Category)

	cps, err := j.Checkpoints(ctx, res.RunID)
	require.NoError(t, err)
	// One per record plus the final one.
	require.Len(t, cps, 4)
	assert.EqualValues(t, 3, cps[2].Records)
	assert.EqualValues(t, 6, cps[3].Keys)
}

// fakeStore serves records from memory and fails to read the ones in bad.
type fakeStore struct {
	records map[world.Handle]*nbt.Compound
	order   []world.Handle
	bad     map[world.Handle]bool
	writes  int
	flushes int
	closed  bool
}

func (f *fakeStore) Dimensions() []string { return []string{"minecraft:overworld"} }

func (f *fakeStore) Records(string) ([]world.Handle, error) { return f.order, nil }

func (f *fakeStore) Read(h world.Handle) (*nbt.Compound, error) {
	if f.bad[h] {
		return nil, nbt.ErrMalformed
	}
	return f.records[h], nil
}

func (f *fakeStore) Write(h world.Handle, root *nbt.Compound) error {
	f.writes++
	f.records[h] = root
	return nil
}

func (f *fakeStore) Flush() error { f.flushes++; return nil }

func (f *fakeStore) Close() error { f.closed = true; return nil }

func TestRun_SkipsMalformedRecords(t *testing.T) {
	h := func(x int) world.Handle {
		return world.Handle{Dim: "minecraft:overworld", Kind: world.KindChunk, Pos: anvil.Pos{X: x}}
	}
	store := &fakeStore{
		records: map[world.Handle]*nbt.Compound{
			h(0): testutil.Compound(t, signChunk("A")),
			h(2): testutil.Compound(t, signChunk("B")),
		},
		order: []world.Handle{h(0), h(1), h(2)},
		bad:   map[world.Handle]bool{h(1): true},
	}
	cfg := testConfig(t, map[string]any{"save_threshold": 2})
	r := New(cfg, Options{
		Output:    filepath.Join(t.TempDir(), "lang"),
		OpenStore: func(string, *slog.Logger) (RecordStore, error) { return store, nil },
		Logger:    quiet(),
	})

	res, err := r.Run(context.Background(), "ignored")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 2, store.writes)
	assert.Equal(t, 1, store.flushes)
	assert.True(t, store.closed)
	assert.EqualValues(t, 2, res.Stats.Records)
}

func TestRun_OpenFailure(t *testing.T) {
	boom := errors.New("boom")
	r := New(testConfig(t, nil), Options{
		OpenStore: func(string, *slog.Logger) (RecordStore, error) { return nil, boom },
		Logger:    quiet(),
	})
	_, err := r.Run(context.Background(), "x")
	assert.ErrorIs(t, err, boom)
}

func TestRunDatapacks(t *testing.T) {
	dir := t.TempDir()
	fn := filepath.Join(dir, "data", "ns", "function", "a.mcfunction")
	adv := filepath.Join(dir, "data", "ns", "advancement", "start.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(fn), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Dir(adv), 0o755))
	require.NoError(t, os.WriteFile(fn, []byte("# comment\nbossbar set b1 name \"Boss\"\n"), 0o644))
	require.NoError(t, os.WriteFile(adv, []byte(`{"display":{"title":"Start"}}`+"\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pack.mcmeta"), []byte(`{"pack":{"description":"x"}}`), 0o644))

	out := filepath.Join(t.TempDir(), "lang")
	res, err := New(testConfig(t, nil), Options{Output: out, Logger: quiet()}).
		RunDatapacks(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Files)

	data, err := os.ReadFile(fn)
	require.NoError(t, err)
	assert.Equal(t, "# comment\nbossbar set b1 name {\"translate\":\"ns.function.a.1\"}\n", string(data))

	assert.Equal(t, map[string]string{
		"ns.advancement.start.1": "Start",
		"ns.function.a.1":        "Boss",
	}, readTable(t, res.RawPath))
}

func TestRunDatapacks_MissingDir(t *testing.T) {
	_, err := New(testConfig(t, nil), Options{Output: filepath.Join(t.TempDir(), "lang"), Logger: quiet()}).
		RunDatapacks(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
