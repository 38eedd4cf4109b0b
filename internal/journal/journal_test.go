package journal

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/worldtext/internal/extract"
	"github.com/roach88/worldtext/internal/testutil"
)

// createTestJournal opens a journal in a temp dir with deterministic ids
// and timestamps.
func createTestJournal(t *testing.T) *Journal {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := Open(path, Options{
		IDs:   testutil.NewSequentialIDGenerator(""),
		Clock: testutil.NewDeterministicClock(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := Open(path, Options{})
	require.NoError(t, err)
	defer j.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	for i := 0; i < 3; i++ {
		j, err := Open(path, Options{})
		require.NoError(t, err, "iteration %d", i)
		require.NoError(t, j.Close())
	}
}

func TestOpen_Pragmas(t *testing.T) {
	j := createTestJournal(t)
	assert.NoError(t, j.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, j.verifyPragma("foreign_keys", "1"))
	assert.NoError(t, j.verifyPragma("user_version", "1"))
}

func TestOpen_DefaultIDsAreUUIDv7(t *testing.T) {
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"), Options{})
	require.NoError(t, err)
	defer j.Close()

	id, err := j.BeginRun(context.Background(), "/saves/w")
	require.NoError(t, err)
	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestBeginAndFinishRun(t *testing.T) {
	ctx := context.Background()
	j := createTestJournal(t)

	id, err := j.BeginRun(ctx, "/saves/w")
	require.NoError(t, err)
	assert.Equal(t, "test-run-1", id)

	r, err := j.Run(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "/saves/w", r.World)
	assert.Equal(t, StatusRunning, r.Status)
	assert.True(t, r.StartedAt.Equal(testutil.Epoch))
	assert.True(t, r.FinishedAt.IsZero())

	require.NoError(t, j.FinishRun(ctx, id, StatusDone))
	r, err = j.Run(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusDone, r.Status)
	assert.True(t, r.FinishedAt.Equal(testutil.Epoch.Add(time.Second)))
}

func TestFinishRun_Unknown(t *testing.T) {
	j := createTestJournal(t)
	err := j.FinishRun(context.Background(), "nope", StatusDone)
	assert.ErrorIs(t, err, ErrNoRun)
}

func TestRun_Unknown(t *testing.T) {
	j := createTestJournal(t)
	_, err := j.Run(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNoRun)
	_, err = j.LatestRun(context.Background())
	assert.ErrorIs(t, err, ErrNoRun)
}

func TestLatestRunAndRuns(t *testing.T) {
	ctx := context.Background()
	j := createTestJournal(t)

	first, err := j.BeginRun(ctx, "/a")
	require.NoError(t, err)
	second, err := j.BeginRun(ctx, "/b")
	require.NoError(t, err)

	latest, err := j.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, second, latest.ID)

	runs, err := j.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, first, runs[0].ID)
	assert.Equal(t, second, runs[1].ID)
}

func TestAppendKeys_PreservesOrder(t *testing.T) {
	ctx := context.Background()
	j := createTestJournal(t)
	id, err := j.BeginRun(ctx, "/w")
	require.NoError(t, err)

	seeded := []extract.Entry{{Key: "gui.ok", Text: "OK", First: true}}
	minted := []extract.Entry{
		{Seq: 1, Key: "sign.1", Text: "Hi", Category: extract.CatSign, First: true},
		{Seq: 2, Key: "sign.2", Text: "Hi", Category: extract.CatSign},
	}
	require.NoError(t, j.AppendKeys(ctx, id, seeded))
	require.NoError(t, j.AppendKeys(ctx, id, minted))

	got, err := j.Keys(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, append(seeded, minted...), got)
}

func TestAppendKeys_Idempotent(t *testing.T) {
	ctx := context.Background()
	j := createTestJournal(t)
	id, err := j.BeginRun(ctx, "/w")
	require.NoError(t, err)

	batch := []extract.Entry{
		{Seq: 1, Key: "a.1", Text: "x", First: true},
		{Seq: 2, Key: "a.2", Text: "y", First: true},
	}
	require.NoError(t, j.AppendKeys(ctx, id, batch))
	require.NoError(t, j.AppendKeys(ctx, id, batch))
	require.NoError(t, j.AppendKeys(ctx, id, []extract.Entry{{Seq: 3, Key: "a.3", Text: "z", First: true}}))

	got, err := j.Keys(ctx, id)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "a.3", got[2].Key)
}

func TestAppendKeys_UnknownRunFails(t *testing.T) {
	j := createTestJournal(t)
	err := j.AppendKeys(context.Background(), "nope", []extract.Entry{{Key: "k", Text: "t"}})
	assert.Error(t, err)
}

func TestKeys_EmptyRun(t *testing.T) {
	ctx := context.Background()
	j := createTestJournal(t)
	id, err := j.BeginRun(ctx, "/w")
	require.NoError(t, err)

	got, err := j.Keys(ctx, id)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestKeys_IsolatedPerRun(t *testing.T) {
	ctx := context.Background()
	j := createTestJournal(t)
	a, _ := j.BeginRun(ctx, "/w")
	b, _ := j.BeginRun(ctx, "/w")

	require.NoError(t, j.AppendKeys(ctx, a, []extract.Entry{{Seq: 1, Key: "k.1", Text: "A", First: true}}))
	require.NoError(t, j.AppendKeys(ctx, b, []extract.Entry{{Seq: 1, Key: "k.1", Text: "B", First: true}}))

	got, err := j.Keys(ctx, b)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "B", got[0].Text)
}

func TestCheckpoints(t *testing.T) {
	ctx := context.Background()
	j := createTestJournal(t)
	id, err := j.BeginRun(ctx, "/w")
	require.NoError(t, err)

	require.NoError(t, j.Checkpoint(ctx, id, 256, 10))
	require.NoError(t, j.Checkpoint(ctx, id, 512, 14))

	cps, err := j.Checkpoints(ctx, id)
	require.NoError(t, err)
	require.Len(t, cps, 2)
	assert.Equal(t, int64(1), cps[0].Seq)
	assert.Equal(t, int64(256), cps[0].Records)
	assert.Equal(t, int64(2), cps[1].Seq)
	assert.Equal(t, int64(14), cps[1].Keys)
	assert.True(t, cps[1].CreatedAt.After(cps[0].CreatedAt))
}

func TestJournal_ReopenKeepsRuns(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "journal.db")

	j, err := Open(path, Options{IDs: testutil.NewSequentialIDGenerator("r")})
	require.NoError(t, err)
	id, err := j.BeginRun(ctx, "/w")
	require.NoError(t, err)
	require.NoError(t, j.AppendKeys(ctx, id, []extract.Entry{{Seq: 1, Key: "k.1", Text: "x", First: true}}))
	require.NoError(t, j.Close())

	j, err = Open(path, Options{})
	require.NoError(t, err)
	defer j.Close()
	got, err := j.Keys(ctx, id)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
