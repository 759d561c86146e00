package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/compozy/releasetag/internal/domain"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
)

// gitRepository is the implementation of the GitRepository interface.

type gitRepository struct {
	repo   *git.Repository
	author *object.Signature
	token  string
}

// GitOption customizes a git repository.
type GitOption func(*gitRepository)

// WithToken sets the token used for HTTP(S) remotes. Without it, GITHUB_TOKEN
// from the environment is used.
func WithToken(token string) GitOption {
	return func(r *gitRepository) {
		r.token = strings.TrimSpace(token)
	}
}

// NewGitRepository opens the repository rooted at path.
func NewGitRepository(path string, opts ...GitOption) (GitRepository, error) {
	return openGitRepository(path, opts...)
}

// NewGitExtendedRepository creates a new GitExtendedRepository with all extended operations.
func NewGitExtendedRepository(path string, opts ...GitOption) (GitExtendedRepository, error) {
	return openGitRepository(path, opts...)
}

func openGitRepository(path string, opts ...GitOption) (*gitRepository, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open git repository: %w", err)
	}
	r := &gitRepository{repo: repo}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// LatestVersionTag returns the highest tag that parses as a semantic version, or "".
func (r *gitRepository) LatestVersionTag(_ context.Context) (string, error) {
	tagRefs, err := r.repo.Tags()
	if err != nil {
		return "", fmt.Errorf("failed to get tags: %w", err)
	}
	var latest *domain.Version
	var latestTag string
	if err := tagRefs.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().Short()
		v, err := domain.NewVersion(name)
		if err != nil {
			return nil // Not a version tag
		}
		if latest == nil || v.GreaterThan(latest) {
			latest = v
			latestTag = name
		}
		return nil
	}); err != nil {
		return "", fmt.Errorf("failed to iterate tags: %w", err)
	}
	return latestTag, nil
}

// BranchExists checks refs/heads/<name>.
func (r *gitRepository) BranchExists(_ context.Context, name string) (bool, error) {
	_, err := r.repo.Reference(plumbing.NewBranchReferenceName(name), false)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check branch %s: %w", name, err)
	}
	return true, nil
}

// TagExists checks if a tag exists.
func (r *gitRepository) TagExists(_ context.Context, tag string) (bool, error) {
	_, err := r.repo.Tag(tag)
	if errors.Is(err, git.ErrTagNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check tag %s: %w", tag, err)
	}
	return true, nil
}

// UntrackedFiles lists files unknown to the index and not excluded by ignore rules,
// sorted by path. Besides the repository's own rules, the excludes file from git
// configuration applies, as with git ls-files --exclude-standard.
func (r *gitRepository) UntrackedFiles(_ context.Context) ([]string, error) {
	w, err := r.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}
	excludes, err := r.excludePatterns(w.Filesystem.Root())
	if err != nil {
		return nil, err
	}
	w.Excludes = append(w.Excludes, excludes...)
	status, err := w.Status()
	if err != nil {
		return nil, fmt.Errorf("failed to get status: %w", err)
	}
	var files []string
	for path, fileStatus := range status {
		if fileStatus.Worktree == git.Untracked {
			files = append(files, path)
		}
	}
	sort.Strings(files)
	return files, nil
}

// AddFiles stages the given paths.
func (r *gitRepository) AddFiles(_ context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	w, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}
	for _, path := range paths {
		if _, err := w.Add(path); err != nil {
			return fmt.Errorf("failed to add %s: %w", path, err)
		}
	}
	return nil
}

// Commit records staged files plus every modified or deleted tracked file and
// returns the new commit hash.
func (r *gitRepository) Commit(_ context.Context, message string) (string, error) {
	w, err := r.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to get worktree: %w", err)
	}
	sig, err := r.signature()
	if err != nil {
		return "", err
	}
	hash, err := w.Commit(message, &git.CommitOptions{
		All:    true,
		Author: sig,
	})
	if errors.Is(err, git.ErrEmptyCommit) {
		return "", domain.ErrNothingToCommit
	}
	if err != nil {
		return "", fmt.Errorf("failed to create commit: %w", err)
	}
	return hash.String(), nil
}

// CreateTag tags HEAD. An empty message creates a lightweight tag.
func (r *gitRepository) CreateTag(_ context.Context, tag, msg string) error {
	head, err := r.repo.Head()
	if err != nil {
		return fmt.Errorf("failed to get HEAD: %w", err)
	}
	var opts *git.CreateTagOptions
	if msg != "" {
		sig, err := r.signature()
		if err != nil {
			return err
		}
		opts = &git.CreateTagOptions{Message: msg, Tagger: sig}
	}
	if _, err := r.repo.CreateTag(tag, head.Hash(), opts); err != nil {
		return fmt.Errorf("failed to create tag %s: %w", tag, err)
	}
	return nil
}

// PushTag pushes a tag to the remote.
func (r *gitRepository) PushTag(ctx context.Context, remote, tag string) error {
	refSpec := config.RefSpec(fmt.Sprintf("refs/tags/%s:refs/tags/%s", tag, tag))
	return r.push(ctx, remote, refSpec)
}

// DeleteRemoteTag removes a tag from the remote.
func (r *gitRepository) DeleteRemoteTag(ctx context.Context, remote, tag string) error {
	refSpec := config.RefSpec(":refs/tags/" + tag)
	return r.push(ctx, remote, refSpec)
}

func (r *gitRepository) push(ctx context.Context, remote string, refSpec config.RefSpec) error {
	auth, err := r.getAuth(remote)
	if err != nil {
		return err
	}
	err = r.repo.PushContext(ctx, &git.PushOptions{
		RemoteName: remote,
		RefSpecs:   []config.RefSpec{refSpec},
		Auth:       auth,
	})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to push %s to %s: %w", refSpec, remote, err)
	}
	return nil
}

// getAuth returns basic auth for HTTP(S) remotes when a token is known.
func (r *gitRepository) getAuth(remote string) (transport.AuthMethod, error) {
	rem, err := r.repo.Remote(remote)
	if errors.Is(err, git.ErrRemoteNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrRemoteNotFound, remote)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get remote %s: %w", remote, err)
	}
	urls := rem.Config().URLs
	if len(urls) == 0 || !strings.HasPrefix(urls[0], "http") {
		return nil, nil
	}
	token := r.token
	if token == "" {
		token = os.Getenv("GITHUB_TOKEN")
	}
	if token == "" {
		return nil, nil
	}
	// Use x-access-token as username for GitHub token authentication
	return &http.BasicAuth{
		Username: "x-access-token",
		Password: token,
	}, nil
}

// ConfigureUser sets the identity used for commits and annotated tags of this run.
// The repository configuration is left untouched.
func (r *gitRepository) ConfigureUser(_ context.Context, name, email string) error {
	if name == "" || email == "" {
		return fmt.Errorf("user name and email are required")
	}
	r.author = &object.Signature{Name: name, Email: email}
	return nil
}

// signature resolves the identity from ConfigureUser, then from git configuration.
func (r *gitRepository) signature() (*object.Signature, error) {
	if r.author != nil {
		return &object.Signature{Name: r.author.Name, Email: r.author.Email, When: time.Now()}, nil
	}
	cfg, err := r.repo.ConfigScoped(config.SystemScope)
	if err != nil {
		cfg, err = r.repo.Config()
		if err != nil {
			return nil, fmt.Errorf("failed to read git config: %w", err)
		}
	}
	if cfg.User.Name == "" || cfg.User.Email == "" {
		return nil, fmt.Errorf("author identity unknown: set user.name and user.email or author_name and author_email")
	}
	return &object.Signature{Name: cfg.User.Name, Email: cfg.User.Email, When: time.Now()}, nil
}

// GetHeadCommit returns the SHA of the current HEAD commit.
func (r *gitRepository) GetHeadCommit(_ context.Context) (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to get HEAD: %w", err)
	}
	return head.Hash().String(), nil
}

// GetCurrentBranch returns the name of the current branch.
func (r *gitRepository) GetCurrentBranch(_ context.Context) (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to get HEAD: %w", err)
	}
	return head.Name().Short(), nil
}

// TagTarget returns the commit a tag points at, peeling annotated tags.
func (r *gitRepository) TagTarget(_ context.Context, tag string) (string, error) {
	ref, err := r.repo.Tag(tag)
	if err != nil {
		return "", fmt.Errorf("failed to get tag %s: %w", tag, err)
	}
	// Try as lightweight tag first
	if commit, err := r.repo.CommitObject(ref.Hash()); err == nil {
		return commit.Hash.String(), nil
	}
	// Try as annotated tag
	if tagObj, err := r.repo.TagObject(ref.Hash()); err == nil {
		if commit, err := r.repo.CommitObject(tagObj.Target); err == nil {
			return commit.Hash.String(), nil
		}
	}
	return "", fmt.Errorf("failed to resolve commit for tag %s", tag)
}

// RemoteExists reports whether the named remote is configured.
func (r *gitRepository) RemoteExists(_ context.Context, remote string) (bool, error) {
	_, err := r.repo.Remote(remote)
	if errors.Is(err, git.ErrRemoteNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get remote %s: %w", remote, err)
	}
	return true, nil
}

// ResetMixed moves HEAD to ref and resets the index, keeping the working tree.
func (r *gitRepository) ResetMixed(_ context.Context, ref string) error {
	w, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}
	hash, err := r.repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return fmt.Errorf("failed to resolve revision %s: %w", ref, err)
	}
	if err := w.Reset(&git.ResetOptions{Commit: *hash, Mode: git.MixedReset}); err != nil {
		return fmt.Errorf("failed to reset to %s: %w", ref, err)
	}
	return nil
}

// DeleteTag deletes a local tag. Deleting a missing tag is not an error.
func (r *gitRepository) DeleteTag(_ context.Context, tag string) error {
	err := r.repo.DeleteTag(tag)
	if err != nil && !errors.Is(err, git.ErrTagNotFound) {
		return fmt.Errorf("failed to delete tag %s: %w", tag, err)
	}
	return nil
}
