package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a release failure. Each kind maps to its own exit code.
type ErrorKind string

const (
	ErrorKindUsage         ErrorKind = "usage"
	ErrorKindConflict      ErrorKind = "conflict"
	ErrorKindIgnoreFile    ErrorKind = "ignore_file"
	ErrorKindBuild         ErrorKind = "build"
	ErrorKindStage         ErrorKind = "stage"
	ErrorKindCommit        ErrorKind = "commit"
	ErrorKindTag           ErrorKind = "tag"
	ErrorKindPush          ErrorKind = "push"
	ErrorKindGithubRelease ErrorKind = "github_release"
	ErrorKindRollback      ErrorKind = "rollback"
	ErrorKindInternal      ErrorKind = "internal"
)

// Exit codes returned by the release-tag binary.
const (
	ExitCodeOK            = 0
	ExitCodeInternal      = 1
	ExitCodeUsage         = 2
	ExitCodeConflict      = 3
	ExitCodeIgnoreFile    = 4
	ExitCodeBuild         = 5
	ExitCodeStage         = 6
	ExitCodeCommit        = 7
	ExitCodeTag           = 8
	ExitCodePush          = 9
	ExitCodeGithubRelease = 10
	ExitCodeRollback      = 11
)

var exitCodes = map[ErrorKind]int{
	ErrorKindUsage:         ExitCodeUsage,
	ErrorKindConflict:      ExitCodeConflict,
	ErrorKindIgnoreFile:    ExitCodeIgnoreFile,
	ErrorKindBuild:         ExitCodeBuild,
	ErrorKindStage:         ExitCodeStage,
	ErrorKindCommit:        ExitCodeCommit,
	ErrorKindTag:           ExitCodeTag,
	ErrorKindPush:          ExitCodePush,
	ErrorKindGithubRelease: ExitCodeGithubRelease,
	ErrorKindRollback:      ExitCodeRollback,
	ErrorKindInternal:      ExitCodeInternal,
}

var (
	ErrMissingIdentifier   = errors.New("the version name is required")
	ErrInvalidIdentifier   = errors.New("invalid release identifier")
	ErrDuplicateIdentifier = errors.New("release identifier already exists")
	ErrVersionNotIncreased = errors.New("release version is not greater than the latest tag")
	ErrIgnoreFileNotFound  = errors.New("ignore file not found")
	ErrNothingToCommit     = errors.New("nothing to commit")
	ErrRemoteNotFound      = errors.New("remote not found")
)

// ReleaseError is the error type returned by every release step.
type ReleaseError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

// NewReleaseError wraps err with the given kind and operation name.
func NewReleaseError(kind ErrorKind, op string, err error) *ReleaseError {
	return &ReleaseError{Kind: kind, Op: op, Err: err}
}

func (e *ReleaseError) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ReleaseError) Unwrap() error {
	return e.Err
}

// ExitCode returns the process exit code for the error kind.
func (e *ReleaseError) ExitCode() int {
	if code, ok := exitCodes[e.Kind]; ok {
		return code
	}
	return ExitCodeInternal
}

// ExitCodeFor resolves the exit code of any error returned by the release workflow.
// The first ReleaseError in the chain decides; unknown errors map to ExitCodeInternal.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitCodeOK
	}
	var relErr *ReleaseError
	if errors.As(err, &relErr) {
		return relErr.ExitCode()
	}
	return ExitCodeInternal
}

// KindOf returns the kind of the first ReleaseError in the chain.
func KindOf(err error) ErrorKind {
	var relErr *ReleaseError
	if errors.As(err, &relErr) {
		return relErr.Kind
	}
	return ErrorKindInternal
}
