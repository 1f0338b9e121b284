// Package backend declares the two capability contracts the rest of this
// module is built against: GitBackend (object database, refs, index,
// config) and WorktreeBackend (working-directory I/O). Concrete
// implementations live in sibling packages (fsgit, fsworktree); callers
// never type-switch on which implementation they were handed.
package backend

import "context"

// ObjectKind identifies the four Git object types.
type ObjectKind int8

const (
	// ObjectCommit identifies a commit object.
	ObjectCommit ObjectKind = iota
	// ObjectTree identifies a tree object.
	ObjectTree
	// ObjectBlob identifies a blob object.
	ObjectBlob
	// ObjectTag identifies an annotated tag object.
	ObjectTag
)

// String renders the kind the way Git's loose-object header does.
func (k ObjectKind) String() string {
	switch k {
	case ObjectCommit:
		return "commit"
	case ObjectTree:
		return "tree"
	case ObjectBlob:
		return "blob"
	case ObjectTag:
		return "tag"
	default:
		return "unknown"
	}
}

// ObjectForm selects how ReadObject returns object bytes.
type ObjectForm int8

const (
	// FormContent returns only the object's content, with the
	// "<kind> <len>\0" header stripped.
	FormContent ObjectForm = iota
	// FormRaw returns the object exactly as it would be written loose
	// (uncompressed), header included.
	FormRaw
)

// Object is the result of a ReadObject call.
type Object struct {
	Kind  ObjectKind
	Bytes []byte
}

// ObjectFormat names the repository-wide hash algorithm.
type ObjectFormat string

const (
	// ObjectFormatSHA1 is Git's historical 40-hex-character object format.
	ObjectFormatSHA1 ObjectFormat = "sha1"
	// ObjectFormatSHA256 is Git's 64-hex-character object format.
	ObjectFormatSHA256 ObjectFormat = "sha256"
)

// ConfigScope orders the four configuration scopes from lowest to
// highest precedence.
type ConfigScope int8

const (
	// ScopeSystem is the machine-wide configuration scope.
	ScopeSystem ConfigScope = iota
	// ScopeGlobal is the per-user configuration scope.
	ScopeGlobal
	// ScopeLocal is the per-repository configuration scope.
	ScopeLocal
	// ScopeWorktree is the per-worktree configuration scope.
	ScopeWorktree
)

// ConfigKey addresses a single configuration value, optionally within a
// named subsection (e.g. remote.<name>.url has Section="remote",
// Subsection="<name>", Name="url").
type ConfigKey struct {
	Section    string
	Subsection string
	Name       string
}

// GitBackend is the object-database/refs/index/config contract. A
// filesystem-default implementation is provided by the fsgit package;
// alternative implementations (in-memory, SQL, blob storage) satisfy the
// same contract without the rest of the module knowing the difference.
type GitBackend interface {
	// Gitdir returns the directory path this backend exposes for
	// display/diagnostics, or an error if none is applicable.
	Gitdir(ctx context.Context) (string, error)

	// ObjectFormat returns the repository-wide hash algorithm, probed
	// once and expected to be cached by the caller.
	ObjectFormat(ctx context.Context) (ObjectFormat, error)

	// ReadObject resolves oid transparently from loose or packed
	// storage and returns its kind and bytes in the requested form.
	ReadObject(ctx context.Context, oid string, form ObjectForm) (Object, error)

	// WriteObject hashes bytes under the repository's object format and
	// stores it; the call is idempotent.
	WriteObject(ctx context.Context, kind ObjectKind, content []byte) (string, error)

	// HasObject reports whether oid is present without fetching its
	// content.
	HasObject(ctx context.Context, oid string) (bool, error)

	// ResolveRef resolves name (branch, tag, HEAD, or raw OID) to an
	// OID, following symbolic refs.
	ResolveRef(ctx context.Context, name string) (string, error)

	// ExpandRef expands a short ref name to its canonical form
	// (e.g. "main" -> "refs/heads/main").
	ExpandRef(ctx context.Context, name string) (string, error)

	// ReadSymbolicRef returns the target name a symbolic ref (typically
	// HEAD) points at, without resolving it to an OID.
	ReadSymbolicRef(ctx context.Context, name string) (string, error)

	// WriteRef points name directly at oid.
	WriteRef(ctx context.Context, name, oid string) error

	// WriteSymbolicRef points name at another ref name.
	WriteSymbolicRef(ctx context.Context, name, target string) error

	// ListRefs enumerates every ref under the given namespace prefix
	// (e.g. "refs/heads/"); an empty prefix lists everything.
	ListRefs(ctx context.Context, prefix string) (map[string]string, error)

	// DeleteRef removes a ref.
	DeleteRef(ctx context.Context, name string) error

	// AppendReflog appends one entry to the reflog for name.
	AppendReflog(ctx context.Context, name string, entry ReflogEntry) error

	// ReadIndex returns the raw, opaque bytes of the current index.
	// Callers parse them (see the index codec used by package checkout).
	ReadIndex(ctx context.Context) ([]byte, error)

	// WriteIndex persists raw, opaque index bytes.
	WriteIndex(ctx context.Context, raw []byte) error

	// GetConfig returns the highest-precedence value set for key across
	// scopes, or ("", false) if unset anywhere.
	GetConfig(ctx context.Context, key ConfigKey) (string, bool, error)

	// GetAllConfig concatenates every value set for key from local then
	// worktree scope, preserving insertion order (multi-valued keys).
	GetAllConfig(ctx context.Context, key ConfigKey) ([]string, error)

	// SetConfig sets key to value in the given scope. When append is
	// true and the key already holds a value, the new value is added
	// rather than replacing it (multi-valued keys).
	SetConfig(ctx context.Context, key ConfigKey, value string, scope ConfigScope, append bool) error

	// GetConfigSubsections returns the set-union of subsection names
	// declared for section across every scope.
	GetConfigSubsections(ctx context.Context, section string) ([]string, error)

	// GetConfigSections returns every distinct section name declared
	// across every scope.
	GetConfigSections(ctx context.Context) ([]string, error)

	// ReloadConfig invalidates any cached configuration view.
	ReloadConfig(ctx context.Context) error
}

// ReflogEntry is one line of a reference's reflog.
type ReflogEntry struct {
	OldOID    string
	NewOID    string
	Who       string
	When      int64 // unix seconds
	TZOffset  string
	Message   string
}
