package repository

import "context"

// GitRepository defines the interface for Git operations.

type GitRepository interface {
	LatestVersionTag(ctx context.Context) (string, error)
	BranchExists(ctx context.Context, name string) (bool, error)
	TagExists(ctx context.Context, tag string) (bool, error)
	UntrackedFiles(ctx context.Context) ([]string, error)
	AddFiles(ctx context.Context, paths []string) error
	Commit(ctx context.Context, message string) (string, error)
	CreateTag(ctx context.Context, tag, msg string) error
	PushTag(ctx context.Context, remote, tag string) error
}
