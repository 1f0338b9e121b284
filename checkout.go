package git

import (
	"context"

	"github.com/awesome-os/portable-git/backend"
	"github.com/awesome-os/portable-git/checkout"
	"github.com/awesome-os/portable-git/objparse"
)

// commitTree resolves oid (a commit, or an annotated tag pointing at
// one) to its tree OID.
func (r *Repo) commitTree(ctx context.Context, oid string) (string, error) {
	obj, err := r.git.ReadObject(ctx, oid, backend.FormContent)
	if err != nil {
		return "", WrapErrorf(err, "read object %s", oid)
	}
	switch obj.Kind {
	case backend.ObjectTag:
		tag, err := objparse.DecodeTag(obj.Bytes)
		if err != nil {
			return "", WrapErrorf(err, "decode tag %s", oid)
		}
		return r.commitTree(ctx, tag.Object)
	case backend.ObjectCommit:
		c, err := objparse.DecodeCommit(obj.Bytes)
		if err != nil {
			return "", WrapErrorf(err, "decode commit %s", oid)
		}
		return c.Tree, nil
	default:
		return "", WrapErrorf(ErrInvalidRef, "%s is not a commit or tag", oid)
	}
}

// CheckoutOpts configures Repo.Checkout.
type CheckoutOpts struct {
	// Force discards local worktree modifications that would otherwise
	// block the checkout.
	Force bool

	// SparsePatterns restricts the checkout to matching paths, honoring
	// Cone to select cone-mode or full-pattern matching semantics.
	SparsePatterns []string
	Cone           bool

	// PathFilters restricts the checkout to the given paths (or path
	// prefixes), leaving everything else in the index untouched.
	PathFilters []string
}

// Checkout updates the index and worktree to match ref's tree.
func (r *Repo) Checkout(ctx context.Context, ref string, opts CheckoutOpts) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.requireWorktree(); err != nil {
		return err
	}

	oid, err := r.git.ResolveRef(ctx, ref)
	if err != nil {
		return WrapErrorf(ErrResolveFailed, "resolve %q", ref)
	}
	treeOID, err := r.commitTree(ctx, oid)
	if err != nil {
		return err
	}

	idx, err := r.readCheckoutIndex(ctx)
	if err != nil {
		return err
	}
	format, err := r.git.ObjectFormat(ctx)
	if err != nil {
		return err
	}

	ops, err := checkout.Analyze(ctx, r.git, r.wt, treeOID, idx, checkout.Options{
		Filters:        opts.PathFilters,
		SparsePatterns: opts.SparsePatterns,
		Cone:           opts.Cone,
		Force:          opts.Force,
		ObjectFormat:   format,
	})
	if err != nil {
		return err
	}
	if len(opts.PathFilters) > 0 {
		covered := make(map[string]bool, len(ops))
		for _, op := range ops {
			covered[op.Path] = true
		}
		for p, e := range idx.Entries {
			if !covered[p] {
				ops = append(ops, checkout.Op{Kind: checkout.OpKeep, Path: p, OID: e.OID, Mode: e.Mode, Stat: e.Stat})
			}
		}
	}
	if _, err := checkout.Execute(ctx, r.git, r.wt, ops, format); err != nil {
		return err
	}
	r.logger().Info("checkout complete", "ref", ref)
	return nil
}
