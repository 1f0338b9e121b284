package git

import (
	"time"

	fs "github.com/awesome-os/portable-git/fsapi"
)

const (
	// DefaultWorkdir is the default worktree directory name.
	DefaultWorkdir = "."

	// DefaultRemoteName is the default remote name used for operations.
	DefaultRemoteName = "origin"
)

// Logger is the structured logging sink every operation writes through.
// A nil Logger (the default) makes every call a no-op; callers wanting
// output wire in a concrete implementation such as a zerolog/zap
// adapter.
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Error(msg string, err error, kv ...any)
}

// nopLogger is the zero-value Logger installed by applyDefaults.
type nopLogger struct{}

func (nopLogger) Debug(string, ...any)      {}
func (nopLogger) Info(string, ...any)       {}
func (nopLogger) Error(string, error, ...any) {}

// Options configures repository discovery/creation.
type Options struct {
	// FS is the REQUIRED native filesystem root (OS or in-memory).
	// All repository state lives within this filesystem.
	FS fs.Filesystem

	// Workdir is the path within FS for the worktree root.
	// Defaults to "." (current directory in FS).
	Workdir string

	// Bare indicates if this should be a bare repository (.git only, no worktree).
	Bare bool

	// Logger receives structured diagnostics for every operation. A nil
	// value installs a no-op logger.
	Logger Logger

	// RemoteRegistry resolves named remotes to a RemoteBackend for
	// Fetch/Push/Pull. A nil value means no remote is configured; those
	// operations then fail with ErrRemoteNotConfigured.
	RemoteRegistry RemoteRegistry
}

// Validate checks that the Options are properly configured.
func (o *Options) Validate() error {
	if o.FS == nil {
		return &MissingParameterError{Name: "FS"}
	}
	return nil
}

// applyDefaults sets default values for any unset fields in Options.
func (o *Options) applyDefaults() {
	if o.Workdir == "" {
		o.Workdir = DefaultWorkdir
	}
	if o.Logger == nil {
		o.Logger = nopLogger{}
	}
}

// Signature represents an author/committer signature for commits and tags.
type Signature struct {
	Name  string
	Email string
	When  time.Time
}

// tzOffset renders s.When's zone the way Git commit/tag headers do
// ("+hhmm"/"-hhmm").
func (s Signature) tzOffset() string {
	_, offsetSec := s.When.Zone()
	sign := "+"
	if offsetSec < 0 {
		sign = "-"
		offsetSec = -offsetSec
	}
	return sign + twoDigits(offsetSec/3600) + twoDigits((offsetSec%3600)/60)
}

// unixToTime reconstructs a time.Time from a commit/tag header's unix
// seconds and "+hhmm"/"-hhmm" zone, the inverse of Signature.tzOffset.
func unixToTime(sec int64, tzOffset string) time.Time {
	offsetSec := 0
	if len(tzOffset) == 5 {
		sign := 1
		if tzOffset[0] == '-' {
			sign = -1
		}
		hh := int(tzOffset[1]-'0')*10 + int(tzOffset[2]-'0')
		mm := int(tzOffset[3]-'0')*10 + int(tzOffset[4]-'0')
		offsetSec = sign * (hh*3600 + mm*60)
	}
	loc := time.FixedZone(tzOffset, offsetSec)
	return time.Unix(sec, 0).In(loc)
}

func twoDigits(v int) string {
	if v < 10 {
		return "0" + itoa(v)
	}
	return itoa(v)
}

func itoa(v int) string {
	if v == 0 {
		return "0"
	}
	digits := [2]byte{}
	i := len(digits)
	for v > 0 && i > 0 {
		i--
		digits[i] = byte('0' + v%10)
		v /= 10
	}
	return string(digits[i:])
}

// CommitOpts configures commit creation behavior.
type CommitOpts struct {
	// AllowEmpty allows creating commits with no changes.
	AllowEmpty bool

	// All adds all modified and untracked files to the index before committing.
	All bool

	// Amend amends the tip of the current branch with this commit.
	Amend bool

	// LintMessage requires msg to parse as a Conventional Commit before
	// the commit is created.
	LintMessage bool
}

// LogFilter configures which commits to include in log operations.
type LogFilter struct {
	Since    *time.Time
	Until    *time.Time
	Author   string
	Path     []string
	MaxCount int
}

// ResolvedRef represents a resolved reference with its kind and hash.
type ResolvedRef struct {
	Kind          RefKind
	Hash          string
	CanonicalName string
}

// MergeStrategy represents the different merge strategies this module
// supports; only fast-forward merges are implemented, matching
// FetchAndMerge's contract.
type MergeStrategy int8

const (
	// FastForwardOnly represents a merge strategy that only allows fast-forward merges.
	FastForwardOnly MergeStrategy = iota
)

// String returns a human-readable string representation of the MergeStrategy.
func (s MergeStrategy) String() string {
	switch s {
	case FastForwardOnly:
		return "fast-forward-only"
	default:
		return "unknown"
	}
}

// RefKind represents the type of git reference.
type RefKind int

const (
	// RefBranch indicates a local branch reference (refs/heads/*).
	RefBranch RefKind = iota
	// RefRemoteBranch indicates a remote branch reference (refs/remotes/*/*).
	RefRemoteBranch
	// RefTag indicates a tag reference (refs/tags/*).
	RefTag
	// RefRemote indicates a generic remote reference.
	RefRemote
	// RefCommit indicates a commit hash (not a symbolic reference).
	RefCommit
	// RefOther indicates any other type of reference.
	RefOther
)

// String returns a human-readable string representation of the RefKind.
func (k RefKind) String() string {
	switch k {
	case RefBranch:
		return "branch"
	case RefRemoteBranch:
		return "remote-branch"
	case RefTag:
		return "tag"
	case RefRemote:
		return "remote"
	case RefCommit:
		return "commit"
	case RefOther:
		return "other"
	default:
		return "unknown"
	}
}

func classifyRefName(name string) RefKind {
	switch {
	case hasPrefix(name, "refs/heads/"):
		return RefBranch
	case hasPrefix(name, "refs/remotes/"):
		return RefRemoteBranch
	case hasPrefix(name, "refs/tags/"):
		return RefTag
	case name == "HEAD":
		return RefOther
	default:
		return RefOther
	}
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
