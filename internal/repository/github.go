package repository

import "context"

// Release is a published GitHub release.
type Release struct {
	ID      int64
	TagName string
	HTMLURL string
}

// GithubRepository defines the GitHub API operations used by a release.
type GithubRepository interface {
	CreateRelease(ctx context.Context, tag, name, body string) (*Release, error)
	DeleteRelease(ctx context.Context, id int64) error
}
