package git

import (
	"context"
	"time"

	"github.com/awesome-os/portable-git/stash"
)

// StashEntry mirrors stash.Entry for the root package's public surface.
type StashEntry struct {
	Index   int
	Commit  string
	Message string
}

// StashPush records the current index and worktree state as a new stash
// entry and resets both to HEAD. The entry's message is
// "WIP on <branch>: <short HEAD> <HEAD subject>"; a non-empty msg takes
// the place of the "WIP on <branch>" part.
func (r *Repo) StashPush(ctx context.Context, msg string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := r.requireWorktree(); err != nil {
		return "", err
	}
	branch, err := r.CurrentBranch(ctx)
	if err != nil {
		branch = "HEAD"
	}
	format, err := r.git.ObjectFormat(ctx)
	if err != nil {
		return "", err
	}
	now := time.Now()
	oid, err := stash.Push(ctx, r.git, r.wt, branch, msg, format, now.Unix(), Signature{When: now}.tzOffset())
	if err != nil {
		return "", WrapError(err, "stash push")
	}
	r.logger().Info("stash pushed", "oid", oid)
	return oid, nil
}

// StashList returns every stash entry, newest first.
func (r *Repo) StashList(ctx context.Context) ([]StashEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := stash.List(ctx, r.git)
	if err != nil {
		return nil, WrapError(err, "stash list")
	}
	out := make([]StashEntry, len(entries))
	for i, e := range entries {
		out[i] = StashEntry{Index: e.Index, Commit: e.Commit, Message: e.Message}
	}
	return out, nil
}

// StashApply applies the stash entry at index to the index and worktree
// without removing it from the stack.
func (r *Repo) StashApply(ctx context.Context, index int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.requireWorktree(); err != nil {
		return err
	}
	format, err := r.git.ObjectFormat(ctx)
	if err != nil {
		return err
	}
	if err := stash.Apply(ctx, r.git, r.wt, index, format); err != nil {
		return WrapError(err, "stash apply")
	}
	return nil
}

// StashPop applies the top stash entry, then removes it from the stack.
func (r *Repo) StashPop(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.requireWorktree(); err != nil {
		return err
	}
	format, err := r.git.ObjectFormat(ctx)
	if err != nil {
		return err
	}
	if err := stash.Pop(ctx, r.git, r.wt, format); err != nil {
		return WrapError(err, "stash pop")
	}
	return nil
}

// StashDrop removes the stash entry at index from the stack without
// applying it.
func (r *Repo) StashDrop(ctx context.Context, index int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := stash.Drop(ctx, r.git, index); err != nil {
		return WrapError(err, "stash drop")
	}
	return nil
}
