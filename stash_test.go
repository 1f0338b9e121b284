package git

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/awesome-os/portable-git/backend"
)

// setStashIdentity configures the committer identity StashPush requires.
func setStashIdentity(t *testing.T, repo *Repo, ctx context.Context) {
	t.Helper()
	require.NoError(t, repo.Config().Set(ctx, backend.ConfigKey{Section: "user", Name: "name"}, "Test", backend.ScopeLocal, false))
	require.NoError(t, repo.Config().Set(ctx, backend.ConfigKey{Section: "user", Name: "email"}, "test@example.com", backend.ScopeLocal, false))
}

func TestStashPushListApplyPop(t *testing.T) {
	repo, ctx := newTestRepo(t)
	setStashIdentity(t, repo, ctx)
	head := mustCommit(t, repo, ctx, "a.txt", "v1", "initial")

	require.NoError(t, repo.fs().WriteFile("a.txt", []byte("v2"), 0o644))
	require.NoError(t, repo.Add(ctx, "a.txt"))

	oid, err := repo.StashPush(ctx, "work in progress")
	require.NoError(t, err)
	require.NotEmpty(t, oid)

	content, ok, err := repo.wt.Read(ctx, "a.txt")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v1", string(content))

	entries, err := repo.StashList(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "work in progress: "+head[:7]+" initial", entries[0].Message)

	require.NoError(t, repo.StashPop(ctx))

	content, ok, err = repo.wt.Read(ctx, "a.txt")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v2", string(content))

	entries, err = repo.StashList(ctx)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestStashApplyKeepsEntry(t *testing.T) {
	repo, ctx := newTestRepo(t)
	setStashIdentity(t, repo, ctx)
	mustCommit(t, repo, ctx, "a.txt", "v1", "initial")

	require.NoError(t, repo.fs().WriteFile("a.txt", []byte("v2"), 0o644))
	require.NoError(t, repo.Add(ctx, "a.txt"))
	_, err := repo.StashPush(ctx, "")
	require.NoError(t, err)

	require.NoError(t, repo.StashApply(ctx, 0))

	entries, err := repo.StashList(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestStashDrop(t *testing.T) {
	repo, ctx := newTestRepo(t)
	setStashIdentity(t, repo, ctx)
	mustCommit(t, repo, ctx, "a.txt", "v1", "initial")

	require.NoError(t, repo.fs().WriteFile("a.txt", []byte("v2"), 0o644))
	require.NoError(t, repo.Add(ctx, "a.txt"))
	_, err := repo.StashPush(ctx, "")
	require.NoError(t, err)

	require.NoError(t, repo.StashDrop(ctx, 0))

	entries, err := repo.StashList(ctx)
	require.NoError(t, err)
	require.Empty(t, entries)
}
