package git

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	billyfs "github.com/awesome-os/portable-git/fsapi/billy"
)

// newTestRepo initializes a fresh non-bare repository over an in-memory
// filesystem, ready for Add/Commit/Checkout/etc.
func newTestRepo(t *testing.T) (*Repo, context.Context) {
	t.Helper()
	ctx := context.Background()
	repo, err := Init(ctx, &Options{FS: billyfs.NewInMemoryFS(), Workdir: "/"})
	require.NoError(t, err)
	return repo, ctx
}

// newBareTestRepo initializes a fresh bare repository (no worktree) over
// an in-memory filesystem.
func newBareTestRepo(t *testing.T) (*Repo, context.Context) {
	t.Helper()
	ctx := context.Background()
	repo, err := Init(ctx, &Options{FS: billyfs.NewInMemoryFS(), Workdir: "/", Bare: true})
	require.NoError(t, err)
	return repo, ctx
}

func testSignature() Signature {
	return Signature{Name: "Test", Email: "test@example.com", When: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)}
}

// mustCommit writes path with content to the worktree, stages it, and
// commits it with message, returning the new commit's OID.
func mustCommit(t *testing.T, repo *Repo, ctx context.Context, path, content, message string) string {
	t.Helper()
	require.NoError(t, repo.fs().WriteFile(path, []byte(content), 0o644))
	require.NoError(t, repo.Add(ctx, path))
	oid, err := repo.Commit(ctx, message, testSignature(), CommitOpts{})
	require.NoError(t, err)
	return oid
}
