package orchestrator

import (
	"context"

	"github.com/compozy/releasetag/internal/domain"
	"github.com/compozy/releasetag/internal/repository"
	"github.com/stretchr/testify/mock"
)

// Mock for GitExtendedRepository
type mockGitExtendedRepository struct{ mock.Mock }

func (m *mockGitExtendedRepository) LatestVersionTag(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}
func (m *mockGitExtendedRepository) BranchExists(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)
	return args.Bool(0), args.Error(1)
}
func (m *mockGitExtendedRepository) TagExists(ctx context.Context, tag string) (bool, error) {
	args := m.Called(ctx, tag)
	return args.Bool(0), args.Error(1)
}
func (m *mockGitExtendedRepository) UntrackedFiles(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if files := args.Get(0); files != nil {
		return files.([]string), args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockGitExtendedRepository) AddFiles(ctx context.Context, paths []string) error {
	args := m.Called(ctx, paths)
	return args.Error(0)
}
func (m *mockGitExtendedRepository) Commit(ctx context.Context, message string) (string, error) {
	args := m.Called(ctx, message)
	return args.String(0), args.Error(1)
}
func (m *mockGitExtendedRepository) CreateTag(ctx context.Context, tag, msg string) error {
	args := m.Called(ctx, tag, msg)
	return args.Error(0)
}
func (m *mockGitExtendedRepository) PushTag(ctx context.Context, remote, tag string) error {
	args := m.Called(ctx, remote, tag)
	return args.Error(0)
}
func (m *mockGitExtendedRepository) ConfigureUser(ctx context.Context, name, email string) error {
	args := m.Called(ctx, name, email)
	return args.Error(0)
}
func (m *mockGitExtendedRepository) GetHeadCommit(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}
func (m *mockGitExtendedRepository) GetCurrentBranch(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}
func (m *mockGitExtendedRepository) TagTarget(ctx context.Context, tag string) (string, error) {
	args := m.Called(ctx, tag)
	return args.String(0), args.Error(1)
}
func (m *mockGitExtendedRepository) RemoteExists(ctx context.Context, remote string) (bool, error) {
	args := m.Called(ctx, remote)
	return args.Bool(0), args.Error(1)
}
func (m *mockGitExtendedRepository) ResetMixed(ctx context.Context, ref string) error {
	args := m.Called(ctx, ref)
	return args.Error(0)
}
func (m *mockGitExtendedRepository) DeleteTag(ctx context.Context, tag string) error {
	args := m.Called(ctx, tag)
	return args.Error(0)
}
func (m *mockGitExtendedRepository) DeleteRemoteTag(ctx context.Context, remote, tag string) error {
	args := m.Called(ctx, remote, tag)
	return args.Error(0)
}

// Mock for GithubRepository
type mockGithubRepository struct{ mock.Mock }

func (m *mockGithubRepository) CreateRelease(
	ctx context.Context,
	tag, name, body string,
) (*repository.Release, error) {
	args := m.Called(ctx, tag, name, body)
	if release := args.Get(0); release != nil {
		return release.(*repository.Release), args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockGithubRepository) DeleteRelease(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// Mock for BuildService
type mockBuildService struct{ mock.Mock }

func (m *mockBuildService) Run(ctx context.Context, command, version string) error {
	args := m.Called(ctx, command, version)
	return args.Error(0)
}

// Mock for StateRepository
type mockStateRepository struct{ mock.Mock }

func (m *mockStateRepository) Save(ctx context.Context, state *domain.RollbackState) error {
	args := m.Called(ctx, state)
	return args.Error(0)
}

func (m *mockStateRepository) Load(ctx context.Context, sessionID string) (*domain.RollbackState, error) {
	args := m.Called(ctx, sessionID)
	if state := args.Get(0); state != nil {
		return state.(*domain.RollbackState), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStateRepository) LoadLatest(ctx context.Context) (*domain.RollbackState, error) {
	args := m.Called(ctx)
	if state := args.Get(0); state != nil {
		return state.(*domain.RollbackState), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStateRepository) Delete(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

func (m *mockStateRepository) Exists(ctx context.Context, sessionID string) (bool, error) {
	args := m.Called(ctx, sessionID)
	return args.Bool(0), args.Error(1)
}
