package orchestrator

import (
	"context"
	"fmt"

	"github.com/compozy/releasetag/internal/repository"
	"github.com/compozy/releasetag/internal/usecase"
	"go.uber.org/zap"
)

// Keys of the rollback data recorded by each release step.
const (
	rollbackKeyPath         = "path"
	rollbackKeyOriginal     = "original_content"
	rollbackKeyChanged      = "changed"
	rollbackKeyFiles        = "files"
	rollbackKeyCommitSHA    = "commit_sha"
	rollbackKeyOriginalHead = "original_head"
	rollbackKeyTag          = "tag"
	rollbackKeyRemote       = "remote"
	rollbackKeyReleaseID    = "release_id"
)

// CompensatingActions provides idempotent rollback operations for release workflow steps
type CompensatingActions struct {
	gitRepo    repository.GitExtendedRepository
	githubRepo repository.GithubRepository
	ignoreFile *usecase.RewriteIgnoreFileUseCase
	logger     *zap.Logger
}

// NewCompensatingActions creates a new compensating actions handler
func NewCompensatingActions(
	gitRepo repository.GitExtendedRepository,
	githubRepo repository.GithubRepository,
	fsRepo repository.FileSystemRepository,
	logger *zap.Logger,
) *CompensatingActions {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompensatingActions{
		gitRepo:    gitRepo,
		githubRepo: githubRepo,
		ignoreFile: &usecase.RewriteIgnoreFileUseCase{FS: fsRepo},
		logger:     logger,
	}
}

// RestoreIgnoreFile writes the original ignore-file content back.
func (ca *CompensatingActions) RestoreIgnoreFile(ctx context.Context, rollbackData map[string]any) error {
	if changed, _ := rollbackData[rollbackKeyChanged].(bool); !changed {
		return nil
	}
	path, ok := rollbackData[rollbackKeyPath].(string)
	if !ok || path == "" {
		return fmt.Errorf("%s not found in rollback data", rollbackKeyPath)
	}
	original, ok := rollbackData[rollbackKeyOriginal].(string)
	if !ok {
		return fmt.Errorf("%s not found in rollback data", rollbackKeyOriginal)
	}
	return ca.ignoreFile.Restore(ctx, path, original)
}

// UnstageFiles resets the index to HEAD. The working tree is kept.
func (ca *CompensatingActions) UnstageFiles(ctx context.Context, rollbackData map[string]any) error {
	if len(stringSlice(rollbackData[rollbackKeyFiles])) == 0 {
		return nil
	}
	if err := ca.gitRepo.ResetMixed(ctx, "HEAD"); err != nil {
		return fmt.Errorf("failed to unstage files: %w", err)
	}
	return nil
}

// ResetCommit moves HEAD back to the original commit when the release commit is still HEAD.
func (ca *CompensatingActions) ResetCommit(ctx context.Context, rollbackData map[string]any) error {
	commitSHA, _ := rollbackData[rollbackKeyCommitSHA].(string)
	if commitSHA == "" {
		return nil
	}
	currentHead, err := ca.gitRepo.GetHeadCommit(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current HEAD: %w", err)
	}
	if currentHead != commitSHA {
		ca.logger.Info("release commit is no longer HEAD, skipping reset",
			zap.String("commit", commitSHA), zap.String("head", currentHead))
		return nil
	}
	originalHead, _ := rollbackData[rollbackKeyOriginalHead].(string)
	if originalHead == "" {
		return fmt.Errorf("cannot undo commit %s: it has no parent to return to", commitSHA)
	}
	if err := ca.gitRepo.ResetMixed(ctx, originalHead); err != nil {
		return fmt.Errorf("failed to reset commit %s: %w", commitSHA, err)
	}
	return nil
}

// DeleteTag removes the local tag when it still points at the release commit.
func (ca *CompensatingActions) DeleteTag(ctx context.Context, rollbackData map[string]any) error {
	tag, _ := rollbackData[rollbackKeyTag].(string)
	if tag == "" {
		return nil
	}
	exists, err := ca.gitRepo.TagExists(ctx, tag)
	if err != nil {
		return fmt.Errorf("failed to check tag %s: %w", tag, err)
	}
	if !exists {
		return nil
	}
	if commitSHA, _ := rollbackData[rollbackKeyCommitSHA].(string); commitSHA != "" {
		target, err := ca.gitRepo.TagTarget(ctx, tag)
		if err != nil {
			return fmt.Errorf("failed to resolve tag %s: %w", tag, err)
		}
		if target != commitSHA {
			ca.logger.Warn("tag points at another commit, leaving it in place",
				zap.String("tag", tag), zap.String("target", target))
			return nil
		}
	}
	return ca.gitRepo.DeleteTag(ctx, tag)
}

// DeleteRemoteTag removes the pushed tag from the remote.
func (ca *CompensatingActions) DeleteRemoteTag(ctx context.Context, rollbackData map[string]any) error {
	tag, _ := rollbackData[rollbackKeyTag].(string)
	remote, _ := rollbackData[rollbackKeyRemote].(string)
	if tag == "" || remote == "" {
		return nil
	}
	if err := ca.gitRepo.DeleteRemoteTag(ctx, remote, tag); err != nil {
		return fmt.Errorf("failed to delete tag %s from %s: %w", tag, remote, err)
	}
	return nil
}

// DeleteRelease removes the GitHub release created for the tag.
func (ca *CompensatingActions) DeleteRelease(ctx context.Context, rollbackData map[string]any) error {
	id := extractInt64(rollbackData[rollbackKeyReleaseID])
	if id == 0 {
		return nil
	}
	return ca.githubRepo.DeleteRelease(ctx, id)
}

// NoOp is a no-operation compensating action for operations that don't need rollback
func (ca *CompensatingActions) NoOp(_ context.Context, _ map[string]any) error {
	return nil
}

// extractInt64 reads a number that may have passed through JSON.
func extractInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}

// stringSlice reads a string list that may have passed through JSON.
func stringSlice(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
