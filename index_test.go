package git

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadIndexEntriesEmptyRepo(t *testing.T) {
	repo, ctx := newTestRepo(t)
	entries, err := repo.readIndexEntries(ctx)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestReadIndexEntriesAfterAdd(t *testing.T) {
	repo, ctx := newTestRepo(t)
	require.NoError(t, repo.fs().WriteFile("a.txt", []byte("hello"), 0o644))
	require.NoError(t, repo.Add(ctx, "a.txt"))

	entries, err := repo.readIndexEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "a.txt", entries[0].Path)
}

func TestReadCheckoutIndexSkipsUnmergedStages(t *testing.T) {
	repo, ctx := newTestRepo(t)
	require.NoError(t, repo.fs().WriteFile("a.txt", []byte("hello"), 0o644))
	require.NoError(t, repo.Add(ctx, "a.txt"))

	entries, err := repo.readIndexEntries(ctx)
	require.NoError(t, err)
	entries[0].Stage = 1
	require.NoError(t, repo.writeIndexEntries(ctx, entries))

	idx, err := repo.readCheckoutIndex(ctx)
	require.NoError(t, err)
	require.Empty(t, idx.Entries)
}

func TestWriteIndexEntriesRoundTrip(t *testing.T) {
	repo, ctx := newTestRepo(t)
	require.NoError(t, repo.fs().WriteFile("a.txt", []byte("hello"), 0o644))
	require.NoError(t, repo.Add(ctx, "a.txt"))

	entries, err := repo.readIndexEntries(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.writeIndexEntries(ctx, entries))

	again, err := repo.readIndexEntries(ctx)
	require.NoError(t, err)
	require.Equal(t, entries, again)
}
