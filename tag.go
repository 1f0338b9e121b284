package git

import (
	"context"
	"sort"
	"strings"

	"github.com/awesome-os/portable-git/backend"
	"github.com/awesome-os/portable-git/objparse"
)

const tagPrefix = "refs/tags/"

// Tag describes a resolved tag, lightweight or annotated.
type Tag struct {
	Name      string
	OID       string
	Annotated bool
	Message   string
	Tagger    Signature
	TargetOID string
}

// TagFilter selects tags in Repo.Tags; nil includes every tag.
type TagFilter func(name string) bool

// TagPatternFilter returns a TagFilter matching names containing pattern
// as a literal substring (a minimal stand-in for shell globbing, since
// this module does not depend on a glob library for such a narrow use).
func TagPatternFilter(pattern string) TagFilter {
	return func(name string) bool { return strings.Contains(name, pattern) }
}

// CreateTag creates a tag named name at target (a ref name or OID).
// When message is non-empty the tag is annotated; otherwise it is a
// lightweight tag (a plain ref).
func (r *Repo) CreateTag(ctx context.Context, name, target, message string, tagger Signature) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if name == "" {
		return &MissingParameterError{Name: "name"}
	}
	ref := tagPrefix + name
	if _, err := r.git.ResolveRef(ctx, ref); err == nil {
		return WrapErrorf(ErrTagExists, "%q", name)
	}

	oid, err := r.git.ResolveRef(ctx, target)
	if err != nil {
		return WrapErrorf(ErrResolveFailed, "resolve target %q", target)
	}

	if message == "" {
		if err := r.git.WriteRef(ctx, ref, oid); err != nil {
			return WrapErrorf(err, "create tag %q", name)
		}
		r.logger().Info("lightweight tag created", "name", name, "oid", oid)
		return nil
	}

	obj, err := r.git.ReadObject(ctx, oid, backend.FormContent)
	if err != nil {
		return WrapErrorf(err, "read target %s", oid)
	}
	tag := objparse.Tag{
		Object:  oid,
		Type:    obj.Kind.String(),
		TagName: name,
		Tagger:  objparse.Signature{Name: tagger.Name, Email: tagger.Email, When: tagger.When.Unix(), TZOffset: tagger.tzOffset()},
		Message: message,
	}
	tagOID, err := r.git.WriteObject(ctx, backend.ObjectTag, objparse.EncodeTag(tag))
	if err != nil {
		return WrapErrorf(err, "write tag object %q", name)
	}
	if err := r.git.WriteRef(ctx, ref, tagOID); err != nil {
		return WrapErrorf(err, "create tag %q", name)
	}
	r.logger().Info("annotated tag created", "name", name, "oid", tagOID)
	return nil
}

// DeleteTag removes tag name.
func (r *Repo) DeleteTag(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ref := tagPrefix + name
	if _, err := r.git.ResolveRef(ctx, ref); err != nil {
		return WrapErrorf(ErrTagMissing, "%q", name)
	}
	if err := r.git.DeleteRef(ctx, ref); err != nil {
		return WrapErrorf(err, "delete tag %q", name)
	}
	r.logger().Info("tag deleted", "name", name)
	return nil
}

// Tags lists every tag, sorted by name, optionally restricted by
// filters (a tag must satisfy every supplied filter to be included).
func (r *Repo) Tags(ctx context.Context, filters ...TagFilter) ([]Tag, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	refs, err := r.git.ListRefs(ctx, tagPrefix)
	if err != nil {
		return nil, WrapError(err, "list tags")
	}

	out := make([]Tag, 0, len(refs))
	for full, oid := range refs {
		name := full[len(tagPrefix):]
		if !matchesAllTagFilters(name, filters) {
			continue
		}
		tag, err := r.resolveTag(ctx, name, oid)
		if err != nil {
			return nil, err
		}
		out = append(out, tag)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func matchesAllTagFilters(name string, filters []TagFilter) bool {
	for _, f := range filters {
		if f != nil && !f(name) {
			return false
		}
	}
	return true
}

func (r *Repo) resolveTag(ctx context.Context, name, oid string) (Tag, error) {
	obj, err := r.git.ReadObject(ctx, oid, backend.FormContent)
	if err != nil {
		return Tag{}, WrapErrorf(err, "read tag %s", oid)
	}
	if obj.Kind != backend.ObjectTag {
		return Tag{Name: name, OID: oid, TargetOID: oid}, nil
	}
	t, err := objparse.DecodeTag(obj.Bytes)
	if err != nil {
		return Tag{}, WrapErrorf(err, "decode tag %s", oid)
	}
	return Tag{
		Name:      name,
		OID:       oid,
		Annotated: true,
		Message:   t.Message,
		Tagger:    Signature{Name: t.Tagger.Name, Email: t.Tagger.Email, When: unixToTime(t.Tagger.When, t.Tagger.TZOffset)},
		TargetOID: t.Object,
	}, nil
}
