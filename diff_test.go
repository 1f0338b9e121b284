package git

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDiffDetectsAddAndModify(t *testing.T) {
	repo, ctx := newTestRepo(t)
	first := mustCommit(t, repo, ctx, "a.txt", "v1", "first")

	require.NoError(t, repo.fs().WriteFile("a.txt", []byte("v2"), 0o644))
	require.NoError(t, repo.fs().WriteFile("b.txt", []byte("new"), 0o644))
	require.NoError(t, repo.Add(ctx, "a.txt"))
	require.NoError(t, repo.Add(ctx, "b.txt"))
	second, err := repo.Commit(ctx, "second", testSignature(), CommitOpts{})
	require.NoError(t, err)

	result, err := repo.Diff(ctx, first, second)
	require.NoError(t, err)
	require.Len(t, result.Changes, 2)

	byPath := map[string]Change{}
	for _, c := range result.Changes {
		byPath[c.Path] = c
	}
	require.Equal(t, ChangeModify, byPath["a.txt"].Kind)
	require.Equal(t, ChangeAdd, byPath["b.txt"].Kind)
}

func TestDiffExtensionFilter(t *testing.T) {
	repo, ctx := newTestRepo(t)
	first := mustCommit(t, repo, ctx, "a.go", "v1", "first")

	require.NoError(t, repo.fs().WriteFile("a.go", []byte("v2"), 0o644))
	require.NoError(t, repo.fs().WriteFile("b.md", []byte("v2"), 0o644))
	require.NoError(t, repo.Add(ctx, "a.go"))
	require.NoError(t, repo.Add(ctx, "b.md"))
	second, err := repo.Commit(ctx, "second", testSignature(), CommitOpts{})
	require.NoError(t, err)

	result, err := repo.Diff(ctx, first, second, ExtensionFilter(".go"))
	require.NoError(t, err)
	require.Len(t, result.Changes, 1)
	require.Equal(t, "a.go", result.Changes[0].Path)
}

func TestDiffTextRendersModification(t *testing.T) {
	repo, ctx := newTestRepo(t)
	first := mustCommit(t, repo, ctx, "a.txt", "hello\n", "first")
	require.NoError(t, repo.fs().WriteFile("a.txt", []byte("world\n"), 0o644))
	require.NoError(t, repo.Add(ctx, "a.txt"))
	second, err := repo.Commit(ctx, "second", testSignature(), CommitOpts{})
	require.NoError(t, err)

	result, err := repo.Diff(ctx, first, second)
	require.NoError(t, err)
	text, err := result.Text(ctx, repo)
	require.NoError(t, err)
	require.Contains(t, text, "-hello")
	require.Contains(t, text, "+world")
}
