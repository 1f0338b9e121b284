// Package git provides the closed error taxonomy shared by every operation
// in this module. Every error returned by the public API either is, or
// wraps, one of the sentinels declared here, so callers can always recover
// the failure kind with errors.Is/errors.As regardless of how deep the
// call chain that produced it was.
package git

import (
	"errors"
	"fmt"

	"github.com/awesome-os/portable-git/backend"
)

// Common sentinel errors that can be checked with errors.Is().
// They are plain sentinel values of this package, not go-git errors,
// so consumers can match on them independently of go-git.

// ErrAlreadyUpToDate is returned when fetch, pull, or push operations
// result in no changes because the local and remote states are already synchronized.
var ErrAlreadyUpToDate = errors.New("already up to date")

// ErrAuthRequired is returned when an operation requires authentication
// but no credentials were provided or available.
var ErrAuthRequired = errors.New("authentication required")

// ErrAuthFailed is returned when authentication was attempted but failed
// (invalid credentials, expired tokens, etc.).
var ErrAuthFailed = errors.New("authentication failed")

// ErrBranchExists is returned when attempting to create a branch that already exists
// and force creation was not requested.
var ErrBranchExists = errors.New("branch already exists")

// ErrBranchMissing is returned when attempting to operate on a branch that does not exist.
var ErrBranchMissing = errors.New("branch does not exist")

// ErrTagExists is returned when attempting to create a tag that already exists
// and force creation was not requested.
var ErrTagExists = errors.New("tag already exists")

// ErrTagMissing is returned when attempting to operate on a tag that does not exist.
var ErrTagMissing = errors.New("tag does not exist")

// ErrNotFastForward is returned when a push or pull operation cannot be performed
// as a fast-forward merge and requires manual conflict resolution.
var ErrNotFastForward = errors.New("not a fast-forward")

// ErrMergeConflict is returned when a merge operation encounters conflicts
// that cannot be automatically resolved.
var ErrMergeConflict = errors.New("merge conflict")

// ErrInvalidRef is returned when a reference name or revision specification
// is malformed or invalid according to git's reference naming rules.
var ErrInvalidRef = errors.New("invalid reference")

// ErrResolveFailed is returned when a revision specification cannot be resolved
// to a valid commit hash (e.g., branch/tag doesn't exist, invalid SHA).
var ErrResolveFailed = errors.New("cannot resolve revision")

// ErrBareRepository is returned when an operation that requires a worktree
// is invoked against a repository with no WorktreeBackend configured.
var ErrBareRepository = errors.New("operation requires a worktree")

// ErrUnmergedPaths, ErrMissingName, ErrNothingToStash, and
// ErrCheckoutConflict are defined in package backend (so checkout/stash/
// workerpool can raise and recognize them without importing this
// package) and re-exported here under their public names.
var (
	ErrUnmergedPaths    = backend.ErrUnmergedPaths
	ErrMissingName      = backend.ErrMissingName
	ErrNothingToStash   = backend.ErrNothingToStash
	ErrCheckoutConflict = backend.ErrCheckoutConflict
)

// ErrCommitNotFetched is returned when a ref resolves to an object the
// local object database does not have.
var ErrCommitNotFetched = errors.New("commit not present in local object database")

// ErrInternal marks an invariant violation that indicates a bug rather
// than a user-correctable condition.
var ErrInternal = errors.New("internal invariant violation")

// NotFoundError reports a missing ref, object, remote, submodule, or file.
type NotFoundError struct {
	What string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("not found: %s", e.What) }
func (e *NotFoundError) Unwrap() error { return errNotFound }

var errNotFound = errors.New("not found")

// AlreadyExistsError reports an attempt to create something that already
// exists without requesting force semantics.
type AlreadyExistsError struct {
	Kind string
	Name string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s %q already exists", e.Kind, e.Name)
}
func (e *AlreadyExistsError) Unwrap() error { return errAlreadyExists }

var errAlreadyExists = errors.New("already exists")

// InvalidRefNameError reports a malformed reference name, optionally with
// a suggested correction.
type InvalidRefNameError struct {
	Ref        string
	Suggestion string
}

func (e *InvalidRefNameError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("invalid ref name %q (did you mean %q?)", e.Ref, e.Suggestion)
	}
	return fmt.Sprintf("invalid ref name %q", e.Ref)
}
func (e *InvalidRefNameError) Unwrap() error { return ErrInvalidRef }

// MissingParameterError reports a required parameter that was left unset.
type MissingParameterError struct {
	Name string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("missing required parameter %q", e.Name)
}
func (e *MissingParameterError) Unwrap() error { return errMissingParameter }

var errMissingParameter = errors.New("missing parameter")

// InvalidParameterError reports a parameter whose value was rejected.
type InvalidParameterError struct {
	Name   string
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %q: %s", e.Name, e.Reason)
}
func (e *InvalidParameterError) Unwrap() error { return errInvalidParameter }

var errInvalidParameter = errors.New("invalid parameter")

// CheckoutConflictError and UnmergedPathsError are defined in package
// backend and re-exported here as type aliases so existing callers of
// errors.As(&git.CheckoutConflictError{}) keep working unchanged.
type (
	CheckoutConflictError = backend.CheckoutConflictError
	UnmergedPathsError    = backend.UnmergedPathsError
)

// CommitNotFetchedError reports a ref whose target object is absent from
// the local object database.
type CommitNotFetchedError struct {
	Ref string
	OID string
}

func (e *CommitNotFetchedError) Error() string {
	return fmt.Sprintf("ref %q resolves to %s which is not in the local object database", e.Ref, e.OID)
}
func (e *CommitNotFetchedError) Unwrap() error { return ErrCommitNotFetched }

// MergeConflictError is emitted (not thrown as a fatal error) by
// MergeTree-style operations; Details is collaborator-defined content
// describing the conflicting hunks.
type MergeConflictError struct {
	Details string
}

func (e *MergeConflictError) Error() string { return fmt.Sprintf("merge conflict: %s", e.Details) }
func (e *MergeConflictError) Unwrap() error { return ErrMergeConflict }

// URLParseError reports a remote URL the transport layer could not parse.
type URLParseError struct {
	URL string
}

func (e *URLParseError) Error() string { return fmt.Sprintf("cannot parse remote url %q", e.URL) }
func (e *URLParseError) Unwrap() error { return errURLParse }

var errURLParse = errors.New("url parse error")

// SmartHTTPError reports a protocol-level failure from a smart-HTTP
// collaborator, with a short preview of the offending response body.
type SmartHTTPError struct {
	Preview string
}

func (e *SmartHTTPError) Error() string { return fmt.Sprintf("smart http error: %s", e.Preview) }
func (e *SmartHTTPError) Unwrap() error { return errSmartHTTP }

var errSmartHTTP = errors.New("smart http error")

// InternalError marks a violated invariant. Seeing one means there is a
// bug in this module, not in the caller.
type InternalError struct {
	Reason string
}

func (e *InternalError) Error() string { return fmt.Sprintf("internal error: %s", e.Reason) }
func (e *InternalError) Unwrap() error { return ErrInternal }

// WrapError wraps an error with additional context while preserving
// the ability to check against sentinel errors using errors.Is().
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// WrapErrorf wraps an error with formatted additional context while preserving
// the ability to check against sentinel errors using errors.Is().
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
