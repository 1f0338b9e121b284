package git

import (
	"context"
	"strconv"

	"github.com/awesome-os/portable-git/backend"
	"github.com/awesome-os/portable-git/checkout"
	"github.com/awesome-os/portable-git/objparse"
)

// oidSize returns the byte length of an object ID under format.
func oidSize(format backend.ObjectFormat) int {
	if format == backend.ObjectFormatSHA256 {
		return 32
	}
	return 20
}

// readIndexEntries decodes the repository's on-disk index into its raw
// objparse representation, returning an empty slice (not an error) for
// a repository that has never had anything staged.
func (r *Repo) readIndexEntries(ctx context.Context) ([]objparse.IndexEntry, error) {
	format, err := r.git.ObjectFormat(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := r.git.ReadIndex(ctx)
	if err != nil {
		return nil, WrapError(err, "read index")
	}
	if len(raw) == 0 {
		return nil, nil
	}
	entries, err := objparse.DecodeIndexV2(raw, oidSize(format))
	if err != nil {
		return nil, WrapError(err, "decode index")
	}
	return entries, nil
}

// writeIndexEntries re-encodes entries into index v2 format and persists
// them via the backend.
func (r *Repo) writeIndexEntries(ctx context.Context, entries []objparse.IndexEntry) error {
	format, err := r.git.ObjectFormat(ctx)
	if err != nil {
		return err
	}
	raw, err := objparse.EncodeIndexV2(entries, oidSize(format))
	if err != nil {
		return WrapError(err, "encode index")
	}
	if err := r.git.WriteIndex(ctx, raw); err != nil {
		return WrapError(err, "write index")
	}
	return nil
}

// readCheckoutIndex loads the on-disk index into the shape the checkout
// engine operates on, collapsing out any unmerged (stage != 0) rows
// since Analyze/Execute only reason about fully-staged content.
func (r *Repo) readCheckoutIndex(ctx context.Context) (*checkout.Index, error) {
	entries, err := r.readIndexEntries(ctx)
	if err != nil {
		return nil, err
	}
	idx := &checkout.Index{Entries: map[string]checkout.IndexEntry{}}
	for _, e := range entries {
		if e.Stage != 0 {
			continue
		}
		idx.Entries[e.Path] = checkout.IndexEntry{
			Path: e.Path,
			OID:  e.OID,
			Mode: strconv.FormatUint(uint64(e.Mode), 8),
		}
	}
	return idx, nil
}
