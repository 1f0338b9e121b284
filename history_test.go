package git

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func collectCommits(t *testing.T, iter *CommitIter) []Commit {
	t.Helper()
	var out []Commit
	require.NoError(t, iter.ForEach(func(c *Commit) error {
		out = append(out, *c)
		return nil
	}))
	return out
}

func TestLogOrdersNewestFirst(t *testing.T) {
	repo, ctx := newTestRepo(t)
	first := mustCommit(t, repo, ctx, "a.txt", "v1", "first")
	second := mustCommit(t, repo, ctx, "a.txt", "v2", "second")

	iter, err := repo.Log(ctx, LogFilter{})
	require.NoError(t, err)
	commits := collectCommits(t, iter)
	require.Len(t, commits, 2)
	require.Equal(t, second, commits[0].OID)
	require.Equal(t, first, commits[1].OID)
}

func TestLogMaxCount(t *testing.T) {
	repo, ctx := newTestRepo(t)
	mustCommit(t, repo, ctx, "a.txt", "v1", "first")
	mustCommit(t, repo, ctx, "a.txt", "v2", "second")
	mustCommit(t, repo, ctx, "a.txt", "v3", "third")

	iter, err := repo.Log(ctx, LogFilter{MaxCount: 2})
	require.NoError(t, err)
	require.Len(t, collectCommits(t, iter), 2)
}

func TestLogAuthorFilter(t *testing.T) {
	repo, ctx := newTestRepo(t)
	mustCommit(t, repo, ctx, "a.txt", "v1", "first")

	iter, err := repo.Log(ctx, LogFilter{Author: "nobody"})
	require.NoError(t, err)
	require.Empty(t, collectCommits(t, iter))

	iter, err = repo.Log(ctx, LogFilter{Author: "Test"})
	require.NoError(t, err)
	require.Len(t, collectCommits(t, iter), 1)
}

func TestLogPathFilter(t *testing.T) {
	repo, ctx := newTestRepo(t)
	mustCommit(t, repo, ctx, "a.txt", "v1", "touch a")
	mustCommit(t, repo, ctx, "b.txt", "v1", "touch b")

	iter, err := repo.Log(ctx, LogFilter{Path: []string{"a.txt"}})
	require.NoError(t, err)
	commits := collectCommits(t, iter)
	require.Len(t, commits, 1)
	require.Equal(t, "touch a", commits[0].Message)
}

func TestLogFromEmptyRepo(t *testing.T) {
	repo, ctx := newTestRepo(t)
	iter, err := repo.Log(ctx, LogFilter{})
	require.NoError(t, err)
	require.Empty(t, collectCommits(t, iter))
}
