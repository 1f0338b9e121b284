package git

import (
	conventionalcommits "github.com/leodido/go-conventionalcommits"
	ccparser "github.com/leodido/go-conventionalcommits/parser"
)

// lintCommitMessage requires msg to parse as a Conventional Commit
// (https://www.conventionalcommits.org). It is an opt-in hook invoked by
// Repo.Commit when CommitOpts.LintMessage is set; the original command
// surface this module replaces left message shaping to hooks, which are
// out of scope here, so this is the one place a malformed message is
// rejected before the commit object is built.
func lintCommitMessage(msg string) error {
	machine := ccparser.NewMachine(ccparser.WithTypes(conventionalcommits.TypesConventional))
	if _, err := machine.Parse([]byte(msg)); err != nil {
		return &InvalidParameterError{Name: "message", Reason: err.Error()}
	}
	return nil
}
