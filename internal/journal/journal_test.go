package journal

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-viewer/internal/action"
	"github.com/joeblew999/plat-viewer/internal/host"
	"github.com/joeblew999/plat-viewer/internal/shoreline"
)

func openMemory(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(Config{})
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestAppendAndReadBack(t *testing.T) {
	j := openMemory(t)
	ctx := context.Background()

	require.NoError(t, j.Append(ctx, "s1", 1, host.ChangeLocale{Locale: "en-US"}))
	require.NoError(t, j.Append(ctx, "s1", 2, shoreline.SetRegion{}))
	require.NoError(t, j.Append(ctx, "s2", 1, action.PipelineFailed{Pipeline: "p", Error: "boom"}))

	entries, err := j.Entries(ctx, "s1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, uint64(1), entries[0].Seq)
	assert.Equal(t, host.ChangeLocaleType, entries[0].Type)
	assert.JSONEq(t, `{"locale":"en-US"}`, string(entries[0].Payload))
	assert.False(t, entries[0].At.IsZero())

	after, err := j.Entries(ctx, "s1", 1)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, shoreline.SetRegionType, after[0].Type)

	actions, skipped, err := j.Actions(ctx, "s2")
	require.NoError(t, err)
	assert.Zero(t, skipped)
	assert.Equal(t, []action.Action{action.PipelineFailed{Pipeline: "p", Error: "boom"}}, actions)

	ids, err := j.Sessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2"}, ids)
}

func TestDuplicateSequenceIsRejected(t *testing.T) {
	j := openMemory(t)
	ctx := context.Background()

	require.NoError(t, j.Append(ctx, "s1", 1, host.ChangeLocale{Locale: "en-US"}))
	assert.Error(t, j.Append(ctx, "s1", 1, host.ChangeLocale{Locale: "fr-CA"}))
}

func TestUnknownTagsAreSkipped(t *testing.T) {
	j := openMemory(t)
	ctx := context.Background()

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO actions (session, seq, type, payload, at) VALUES ('s1', 1, 'GONE:ACTION', '{}', now())`)
	require.NoError(t, err)
	require.NoError(t, j.Append(ctx, "s1", 2, host.ChangeLocale{Locale: "en-US"}))

	actions, skipped, err := j.Actions(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	assert.Equal(t, []action.Action{host.ChangeLocale{Locale: "en-US"}}, actions)
}

func TestDelete(t *testing.T) {
	j := openMemory(t)
	ctx := context.Background()

	require.NoError(t, j.Append(ctx, "s1", 1, host.ChangeLocale{Locale: "en-US"}))
	require.NoError(t, j.Delete(ctx, "s1"))

	entries, err := j.Entries(ctx, "s1", 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFileJournalPersists(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	j, err := Open(Config{DataDir: dir, DBName: "test"})
	require.NoError(t, err)
	require.NoError(t, j.Append(ctx, "s1", 1, host.ChangeLocale{Locale: "en-US"}))
	require.NoError(t, j.Close())
	assert.FileExists(t, filepath.Join(dir, "duckdb", "test.duckdb"))

	j, err = Open(Config{DataDir: dir, DBName: "test"})
	require.NoError(t, err)
	defer j.Close()

	entries, err := j.Entries(ctx, "s1", 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
