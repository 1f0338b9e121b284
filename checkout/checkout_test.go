package checkout

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awesome-os/portable-git/backend"
	"github.com/awesome-os/portable-git/objparse"
)

func buildSimpleTree(t *testing.T, git *fakeGit) string {
	t.Helper()
	readmeOID := git.put(backend.ObjectBlob, []byte("hello\n"))
	mainOID := git.put(backend.ObjectBlob, []byte("package main\n"))

	subTreeRaw, err := objparse.EncodeTree([]objparse.TreeEntry{
		{Mode: "100644", Name: "main.go", OID: mainOID},
	})
	require.NoError(t, err)
	subTreeOID := git.put(backend.ObjectTree, subTreeRaw)

	rootRaw, err := objparse.EncodeTree([]objparse.TreeEntry{
		{Mode: "100644", Name: "README.md", OID: readmeOID},
		{Mode: "40000", Name: "src", OID: subTreeOID},
	})
	require.NoError(t, err)
	return git.put(backend.ObjectTree, rootRaw)
}

func TestAnalyzeAndExecuteFreshCheckout(t *testing.T) {
	git := newFakeGit()
	wt := newFakeWorktree()
	treeOID := buildSimpleTree(t, git)
	ctx := context.Background()

	ops, err := Analyze(ctx, git, wt, treeOID, newIndex(), Options{ObjectFormat: backend.ObjectFormatSHA1})
	require.NoError(t, err)
	require.NotEmpty(t, ops)

	idx, err := Execute(ctx, git, wt, ops, backend.ObjectFormatSHA1)
	require.NoError(t, err)

	assert.Equal(t, []byte("hello\n"), wt.files["README.md"])
	assert.Equal(t, []byte("package main\n"), wt.files["src/main.go"])
	assert.Contains(t, idx.Entries, "README.md")
	assert.Contains(t, idx.Entries, "src/main.go")
	assert.NotEmpty(t, git.index, "write_index must be called with encoded bytes")
}

func TestAnalyzeKeepsMatchingWorkdirContent(t *testing.T) {
	git := newFakeGit()
	wt := newFakeWorktree()
	treeOID := buildSimpleTree(t, git)
	ctx := context.Background()
	opts := Options{ObjectFormat: backend.ObjectFormatSHA1}

	ops, err := Analyze(ctx, git, wt, treeOID, newIndex(), opts)
	require.NoError(t, err)
	_, err = Execute(ctx, git, wt, ops, backend.ObjectFormatSHA1)
	require.NoError(t, err)

	idx := newIndex()
	for _, op := range ops {
		if op.Kind == OpUpdate {
			idx.Entries[op.Path] = IndexEntry{Path: op.Path, OID: op.OID, Mode: op.Mode}
		}
	}

	ops2, err := Analyze(ctx, git, wt, treeOID, idx, opts)
	require.NoError(t, err)
	for _, op := range ops2 {
		if op.Path == "README.md" || op.Path == "src/main.go" {
			assert.Equal(t, OpKeep, op.Kind, "unchanged content should be kept, not rewritten")
		}
	}
}

func TestAnalyzeConflictsOnDivergentWorkdir(t *testing.T) {
	git := newFakeGit()
	wt := newFakeWorktree()
	treeOID := buildSimpleTree(t, git)
	ctx := context.Background()
	opts := Options{ObjectFormat: backend.ObjectFormatSHA1}

	// Workdir already has a different, unstaged README.
	wt.files["README.md"] = []byte("conflicting local edit\n")

	_, err := Analyze(ctx, git, wt, treeOID, newIndex(), opts)
	require.Error(t, err)
	var conflictErr *backend.CheckoutConflictError
	assert.ErrorAs(t, err, &conflictErr)
	assert.Contains(t, conflictErr.Paths, "README.md")
}

func TestAnalyzeForceOverwritesConflict(t *testing.T) {
	git := newFakeGit()
	wt := newFakeWorktree()
	treeOID := buildSimpleTree(t, git)
	ctx := context.Background()
	opts := Options{ObjectFormat: backend.ObjectFormatSHA1, Force: true}

	wt.files["README.md"] = []byte("conflicting local edit\n")

	ops, err := Analyze(ctx, git, wt, treeOID, newIndex(), opts)
	require.NoError(t, err)

	_, err = Execute(ctx, git, wt, ops, backend.ObjectFormatSHA1)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello\n"), wt.files["README.md"])
}

func TestAnalyzeDropsPathsExcludedBySparsePatterns(t *testing.T) {
	git := newFakeGit()
	wt := newFakeWorktree()
	treeOID := buildSimpleTree(t, git)
	ctx := context.Background()
	opts := Options{
		ObjectFormat:   backend.ObjectFormatSHA1,
		SparsePatterns: []string{"/*"},
		Cone:           true,
	}

	ops, err := Analyze(ctx, git, wt, treeOID, newIndex(), opts)
	require.NoError(t, err)

	var sawSrc bool
	for _, op := range ops {
		if op.Path == "src/main.go" {
			sawSrc = true
		}
	}
	assert.False(t, sawSrc, "cone pattern /* should not include the src/ subtree")
}
