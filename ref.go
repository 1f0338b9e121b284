package git

import "context"

// ResolveRef resolves name (a branch, remote-tracking branch, tag, HEAD,
// or raw OID) to its OID and classifies which kind of reference it is.
func (r *Repo) ResolveRef(ctx context.Context, name string) (ResolvedRef, error) {
	if err := ctx.Err(); err != nil {
		return ResolvedRef{}, err
	}
	canonical, err := r.git.ExpandRef(ctx, name)
	if err != nil {
		canonical = name
	}
	oid, err := r.git.ResolveRef(ctx, name)
	if err != nil {
		return ResolvedRef{}, WrapErrorf(ErrResolveFailed, "resolve %q", name)
	}
	kind := classifyRefName(canonical)
	if canonical == name && canonical == oid {
		kind = RefCommit
	}
	return ResolvedRef{Kind: kind, Hash: oid, CanonicalName: canonical}, nil
}
