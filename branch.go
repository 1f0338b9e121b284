package git

import (
	"context"
	"sort"
)

const branchPrefix = "refs/heads/"

// Branch describes a local branch.
type Branch struct {
	Name string
	OID  string
}

// CreateBranch creates a new branch named name pointing at startPoint
// (a ref name or OID). force allows overwriting an existing branch of
// the same name.
func (r *Repo) CreateBranch(ctx context.Context, name, startPoint string, force bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if name == "" {
		return &MissingParameterError{Name: "name"}
	}
	ref := branchPrefix + name

	if !force {
		if _, err := r.git.ResolveRef(ctx, ref); err == nil {
			return WrapErrorf(ErrBranchExists, "%q", name)
		}
	}

	if startPoint == "" {
		startPoint = "HEAD"
	}
	oid, err := r.git.ResolveRef(ctx, startPoint)
	if err != nil {
		return WrapErrorf(ErrResolveFailed, "resolve start point %q", startPoint)
	}

	if err := r.git.WriteRef(ctx, ref, oid); err != nil {
		return WrapErrorf(err, "create branch %q", name)
	}
	r.logger().Info("branch created", "name", name, "oid", oid)
	return nil
}

// DeleteBranch removes branch name. force allows deleting a branch
// whose tip is not merged into the current branch; this implementation
// does not track merge status so force is otherwise a no-op.
func (r *Repo) DeleteBranch(ctx context.Context, name string, force bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ref := branchPrefix + name
	if _, err := r.git.ResolveRef(ctx, ref); err != nil {
		return WrapErrorf(ErrBranchMissing, "%q", name)
	}
	if current, err := r.CurrentBranch(ctx); err == nil && current == name {
		return WrapErrorf(ErrInvalidRef, "cannot delete the currently checked out branch %q", name)
	}
	if err := r.git.DeleteRef(ctx, ref); err != nil {
		return WrapErrorf(err, "delete branch %q", name)
	}
	r.logger().Info("branch deleted", "name", name)
	return nil
}

// Branches lists every local branch, sorted by name.
func (r *Repo) Branches(ctx context.Context) ([]Branch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	refs, err := r.git.ListRefs(ctx, branchPrefix)
	if err != nil {
		return nil, WrapError(err, "list branches")
	}
	out := make([]Branch, 0, len(refs))
	for name, oid := range refs {
		out = append(out, Branch{Name: name[len(branchPrefix):], OID: oid})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// CheckoutBranch switches the current branch to name, updating the
// worktree and index to match its tip and repointing HEAD. createIfMissing
// creates the branch at HEAD first if it does not already exist; force
// discards local worktree modifications that would otherwise block the
// switch.
func (r *Repo) CheckoutBranch(ctx context.Context, name string, createIfMissing, force bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ref := branchPrefix + name
	if _, err := r.git.ResolveRef(ctx, ref); err != nil {
		if !createIfMissing {
			return WrapErrorf(ErrBranchMissing, "%q", name)
		}
		if err := r.CreateBranch(ctx, name, "HEAD", false); err != nil {
			return err
		}
	}

	if r.wt != nil {
		if err := r.Checkout(ctx, ref, CheckoutOpts{Force: force}); err != nil {
			return err
		}
	}
	if err := r.git.WriteSymbolicRef(ctx, "HEAD", ref); err != nil {
		return WrapErrorf(err, "update HEAD to %q", name)
	}
	r.logger().Info("branch checked out", "name", name)
	return nil
}
