package service

import "context"

// BuildService runs the pre-release build of a project.
type BuildService interface {
	// Run executes command through the shell with RELEASE_VERSION set to version.
	Run(ctx context.Context, command, version string) error
}
