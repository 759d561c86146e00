package usecase

import (
	"context"

	"github.com/compozy/releasetag/internal/domain"
	"github.com/compozy/releasetag/internal/repository"
)

// CommitReleaseUseCase records the release commit.
type CommitReleaseUseCase struct {
	GitRepo repository.GitRepository
}

// Execute commits staged and modified tracked files and returns the commit hash.
func (uc *CommitReleaseUseCase) Execute(ctx context.Context, message string) (string, error) {
	hash, err := uc.GitRepo.Commit(ctx, message)
	if err != nil {
		return "", domain.NewReleaseError(domain.ErrorKindCommit, "commit", err)
	}
	return hash, nil
}
