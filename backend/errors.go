package backend

import (
	"errors"
	"fmt"
	"strings"
)

// These sentinels and the error types that wrap them live here, rather
// than in the root package, because checkout/stash/workerpool need to
// raise and recognize them without importing the root package (which
// itself depends on backend). The root package re-exports them under
// its own names for callers of the public API.

// ErrCheckoutConflict is returned when one or more paths would be
// overwritten by a non-forced checkout.
var ErrCheckoutConflict = errors.New("checkout would overwrite local changes")

// ErrUnmergedPaths is returned when the index holds stage 1/2/3 entries
// and an operation (stash, checkout) requires a fully staged index.
var ErrUnmergedPaths = errors.New("unmerged paths in index")

// ErrMissingName is returned when no committer identity (user.name /
// user.email) can be resolved from any configuration scope.
var ErrMissingName = errors.New("no committer identity configured")

// ErrNothingToStash is returned when stash push finds neither staged nor
// worktree changes to record.
var ErrNothingToStash = errors.New("nothing to stash")

// CheckoutConflictError accumulates the paths that block a non-forced
// checkout from proceeding. It is raised once, before any mutation.
type CheckoutConflictError struct {
	Paths []string
}

func (e *CheckoutConflictError) Error() string {
	return fmt.Sprintf("checkout conflict on %d path(s): %s", len(e.Paths), strings.Join(e.Paths, ", "))
}
func (e *CheckoutConflictError) Unwrap() error { return ErrCheckoutConflict }

// UnmergedPathsError reports index entries left in stage 1/2/3.
type UnmergedPathsError struct {
	Paths []string
}

func (e *UnmergedPathsError) Error() string {
	return fmt.Sprintf("unmerged paths: %s", strings.Join(e.Paths, ", "))
}
func (e *UnmergedPathsError) Unwrap() error { return ErrUnmergedPaths }

// MissingNameError reports that no committer identity could be resolved
// from any configuration scope.
type MissingNameError struct{}

func (e *MissingNameError) Error() string { return "no committer identity configured" }
func (e *MissingNameError) Unwrap() error { return ErrMissingName }

// NothingToStashError reports that stash push found neither staged nor
// worktree changes to record.
type NothingToStashError struct{}

func (e *NothingToStashError) Error() string { return "nothing to stash" }
func (e *NothingToStashError) Unwrap() error { return ErrNothingToStash }
