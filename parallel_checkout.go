package git

import (
	"context"
	"fmt"

	"github.com/awesome-os/portable-git/sparse"
	"github.com/awesome-os/portable-git/workerpool"
)

// ParallelCheckoutOpts configures Repo.ParallelCheckout.
type ParallelCheckoutOpts struct {
	// Workers caps concurrent checkout workers; 0 or a negative value
	// selects four workers.
	Workers int

	// SparsePatterns and Cone select the sparse-checkout matcher
	// directories are discovered under; nil patterns checkout everything.
	SparsePatterns []string
	Cone           bool
}

// ParallelCheckout checks out ref's tree using a pool of worker-local
// backend handles, one per directory bucket, merging their results into
// the index as a single writer at the end. It requires Options to have
// produced a repository with filesystem-backed worker handles (any
// non-bare Repo opened via Init/Open qualifies).
func (r *Repo) ParallelCheckout(ctx context.Context, ref string, opts ParallelCheckoutOpts) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := r.requireWorktree(); err != nil {
		return 0, err
	}
	if r.newHandle == nil {
		return 0, WrapError(ErrInternal, "repository does not support worker-local handles")
	}

	oid, err := r.git.ResolveRef(ctx, ref)
	if err != nil {
		return 0, WrapErrorf(ErrResolveFailed, "resolve %q", ref)
	}
	treeOID, err := r.commitTree(ctx, oid)
	if err != nil {
		return 0, err
	}
	format, err := r.git.ObjectFormat(ctx)
	if err != nil {
		return 0, err
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}

	pc := &workerpool.ParallelCheckout{
		Pool:           workerpool.New(workers),
		Handles:        workerpool.HandleFactory(r.newHandle),
		CoordinatorGit: r.git,
	}
	matcher := sparse.New(opts.SparsePatterns, opts.Cone)

	entries, err := pc.Run(ctx, treeOID, matcher, opts.Cone, format)
	if err != nil {
		var agg *workerpool.AggregateError
		if !asAggregateError(err, &agg) {
			return 0, WrapError(err, "parallel checkout")
		}
		r.logger().Error("parallel checkout completed with errors", fmt.Errorf("%d worker errors", len(agg.Results)))
		return len(entries), WrapError(err, "parallel checkout")
	}
	r.logger().Info("parallel checkout complete", "ref", ref, "files", len(entries))
	return len(entries), nil
}

func asAggregateError(err error, target **workerpool.AggregateError) bool {
	agg, ok := err.(*workerpool.AggregateError)
	if !ok {
		return false
	}
	*target = agg
	return true
}
