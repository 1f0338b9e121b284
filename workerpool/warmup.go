package workerpool

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// WarmHandles opens and immediately discards one handle pair per worker
// ID in [0, n), concurrently, so a coordinator can fail fast on a
// misconfigured HandleFactory (bad gitdir, unreachable worktree root)
// before committing to a checkout run. Unlike the per-task work in
// ParallelCheckout.Run, a single bad handle here should abort the whole
// preflight rather than degrade to a partial result, which is exactly
// errgroup.Group's cancel-on-first-error contract.
func WarmHandles(ctx context.Context, n int, factory HandleFactory) error {
	g, gctx := errgroup.WithContext(ctx)
	for id := 0; id < n; id++ {
		id := id
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			_, _, err := factory(id)
			return err
		})
	}
	return g.Wait()
}
