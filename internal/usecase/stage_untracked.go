package usecase

import (
	"context"

	"github.com/compozy/releasetag/internal/domain"
	"github.com/compozy/releasetag/internal/repository"
)

// StageUntrackedUseCase stages every untracked, non-ignored file.
type StageUntrackedUseCase struct {
	GitRepo repository.GitRepository
}

// Execute returns the staged paths.
func (uc *StageUntrackedUseCase) Execute(ctx context.Context) ([]string, error) {
	const op = "stage files"
	files, err := uc.GitRepo.UntrackedFiles(ctx)
	if err != nil {
		return nil, domain.NewReleaseError(domain.ErrorKindStage, op, err)
	}
	if err := uc.GitRepo.AddFiles(ctx, files); err != nil {
		return nil, domain.NewReleaseError(domain.ErrorKindStage, op, err)
	}
	return files, nil
}
