package repository

import "context"

// GitExtendedRepository extends GitRepository with additional operations needed for orchestration.
type GitExtendedRepository interface {
	GitRepository
	// Git configuration
	ConfigureUser(ctx context.Context, name, email string) error
	// Inspection
	GetHeadCommit(ctx context.Context) (string, error)
	GetCurrentBranch(ctx context.Context) (string, error)
	TagTarget(ctx context.Context, tag string) (string, error)
	RemoteExists(ctx context.Context, remote string) (bool, error)
	// Compensation
	ResetMixed(ctx context.Context, ref string) error
	DeleteTag(ctx context.Context, tag string) error
	DeleteRemoteTag(ctx context.Context, remote, tag string) error
}
