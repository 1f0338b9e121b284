package git

import (
	"context"
	"strings"

	"github.com/awesome-os/portable-git/backend"
	"github.com/awesome-os/portable-git/objparse"
)

// Commit is a resolved, parsed commit.
type Commit struct {
	OID       string
	Tree      string
	Parents   []string
	Author    Signature
	Committer Signature
	Message   string
}

// CommitIter iterates commits in breadth-first parent order from HEAD,
// already filtered by the LogFilter that produced it.
type CommitIter struct {
	commits []Commit
	pos     int
}

// Next returns the next commit, or (nil, false) when exhausted.
func (it *CommitIter) Next() (*Commit, bool) {
	if it.pos >= len(it.commits) {
		return nil, false
	}
	c := it.commits[it.pos]
	it.pos++
	return &c, true
}

// ForEach calls fn for every remaining commit, stopping and returning
// fn's error if it returns one.
func (it *CommitIter) ForEach(fn func(*Commit) error) error {
	for {
		c, ok := it.Next()
		if !ok {
			return nil
		}
		if err := fn(c); err != nil {
			return err
		}
	}
}

// Close releases the iterator's resources. It exists for drop-in parity
// with iterator shapes elsewhere in this module; CommitIter holds no
// resources of its own to release.
func (it *CommitIter) Close() {}

// Log walks commit history from HEAD applying filter. filter.Path keeps
// only commits that touch the path; the walk still starts at HEAD.
func (r *Repo) Log(ctx context.Context, filter LogFilter) (*CommitIter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	head, err := r.git.ResolveRef(ctx, "HEAD")
	if err != nil || head == "" {
		return &CommitIter{}, nil
	}
	return r.logFrom(ctx, head, filter)
}

// LogFrom walks commit history from the given ref/OID, newest first.
func (r *Repo) LogFrom(ctx context.Context, ref string, filter LogFilter) (*CommitIter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	oid, err := r.git.ResolveRef(ctx, ref)
	if err != nil {
		return nil, WrapErrorf(ErrResolveFailed, "resolve %q", ref)
	}
	return r.logFrom(ctx, oid, filter)
}

func (r *Repo) logFrom(ctx context.Context, start string, filter LogFilter) (*CommitIter, error) {
	var out []Commit
	seen := map[string]bool{}
	queue := []string{start}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		oid := queue[0]
		queue = queue[1:]
		if seen[oid] || oid == "" {
			continue
		}
		seen[oid] = true

		obj, err := r.git.ReadObject(ctx, oid, backend.FormContent)
		if err != nil {
			return nil, WrapErrorf(err, "read commit %s", oid)
		}
		pc, err := objparse.DecodeCommit(obj.Bytes)
		if err != nil {
			return nil, WrapErrorf(err, "decode commit %s", oid)
		}

		c := Commit{
			OID:       oid,
			Tree:      pc.Tree,
			Parents:   pc.Parents,
			Author:    Signature{Name: pc.Author.Name, Email: pc.Author.Email, When: unixToTime(pc.Author.When, pc.Author.TZOffset)},
			Committer: Signature{Name: pc.Committer.Name, Email: pc.Committer.Email, When: unixToTime(pc.Committer.When, pc.Committer.TZOffset)},
			Message:   pc.Message,
		}

		if matchesLogFilter(ctx, r, c, filter) {
			out = append(out, c)
			if filter.MaxCount > 0 && len(out) >= filter.MaxCount {
				return &CommitIter{commits: out}, nil
			}
		}
		queue = append(queue, pc.Parents...)
	}
	return &CommitIter{commits: out}, nil
}

func matchesLogFilter(ctx context.Context, r *Repo, c Commit, filter LogFilter) bool {
	if filter.Since != nil && c.Committer.When.Before(*filter.Since) {
		return false
	}
	if filter.Until != nil && c.Committer.When.After(*filter.Until) {
		return false
	}
	if filter.Author != "" && !strings.Contains(c.Author.Name, filter.Author) && !strings.Contains(c.Author.Email, filter.Author) {
		return false
	}
	if len(filter.Path) > 0 && !r.commitTouchesPaths(ctx, c, filter.Path) {
		return false
	}
	return true
}

// commitTouchesPaths reports whether any of paths differs between c's
// tree and its first parent's tree (or is present at all, for a root
// commit).
func (r *Repo) commitTouchesPaths(ctx context.Context, c Commit, paths []string) bool {
	cur, err := r.flattenTreeOID(ctx, c.Tree, "")
	if err != nil {
		return false
	}
	var parent map[string]objparse.IndexEntry
	if len(c.Parents) > 0 {
		pobj, err := r.git.ReadObject(ctx, c.Parents[0], backend.FormContent)
		if err != nil {
			return false
		}
		pc, err := objparse.DecodeCommit(pobj.Bytes)
		if err != nil {
			return false
		}
		parent, err = r.flattenTreeOID(ctx, pc.Tree, "")
		if err != nil {
			return false
		}
	} else {
		parent = map[string]objparse.IndexEntry{}
	}

	for p := range cur {
		if !pathMatchesAny(p, paths) {
			continue
		}
		if o, ok := parent[p]; !ok || o.OID != cur[p].OID {
			return true
		}
	}
	for p := range parent {
		if !pathMatchesAny(p, paths) {
			continue
		}
		if _, ok := cur[p]; !ok {
			return true
		}
	}
	return false
}

func pathMatchesAny(p string, paths []string) bool {
	for _, want := range paths {
		if p == want || strings.HasPrefix(p, want+"/") {
			return true
		}
	}
	return false
}
