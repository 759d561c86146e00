package repository

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/compozy/releasetag/internal/config"
	"github.com/compozy/releasetag/internal/domain"
	"github.com/google/go-github/v74/github"
	"golang.org/x/oauth2"
)

// githubRepository is the implementation of the GithubRepository interface.
type githubRepository struct {
	client *github.Client
	owner  string
	repo   string
}

// NewGithubRepository creates a GithubRepository authenticated with token.
func NewGithubRepository(token, owner, repo string) (GithubRepository, error) {
	if err := config.ValidateGitHubToken(token); err != nil {
		return nil, fmt.Errorf("invalid GitHub token: %w", err)
	}
	if err := config.ValidateGitHubOwnerRepo(owner, repo); err != nil {
		return nil, fmt.Errorf("invalid repository configuration: %w", err)
	}
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: strings.TrimSpace(token)},
	)
	return newGithubRepository(oauth2.NewClient(context.Background(), ts), owner, repo), nil
}

func newGithubRepository(httpClient *http.Client, owner, repo string) *githubRepository {
	return &githubRepository{
		client: github.NewClient(httpClient),
		owner:  owner,
		repo:   repo,
	}
}

// CreateRelease publishes a release for an existing tag.
func (r *githubRepository) CreateRelease(ctx context.Context, tag, name, body string) (*Release, error) {
	release, _, err := r.client.Repositories.CreateRelease(ctx, r.owner, r.repo, &github.RepositoryRelease{
		TagName:    github.Ptr(tag),
		Name:       github.Ptr(name),
		Body:       github.Ptr(body),
		Draft:      github.Ptr(false),
		Prerelease: github.Ptr(isPrerelease(tag)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create release %s: %w", tag, err)
	}
	return &Release{
		ID:      release.GetID(),
		TagName: release.GetTagName(),
		HTMLURL: release.GetHTMLURL(),
	}, nil
}

// DeleteRelease removes a release. The tag itself is left in place.
func (r *githubRepository) DeleteRelease(ctx context.Context, id int64) error {
	resp, err := r.client.Repositories.DeleteRelease(ctx, r.owner, r.repo, id)
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete release %d: %w", id, err)
	}
	return nil
}

// isPrerelease reports whether tag is a semantic version with a pre-release part.
// Free-form tags are never pre-releases.
func isPrerelease(tag string) bool {
	v, err := domain.NewVersion(tag)
	if err != nil {
		return false
	}
	return v.Prerelease() != ""
}
