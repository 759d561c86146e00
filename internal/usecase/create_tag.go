package usecase

import (
	"context"

	"github.com/compozy/releasetag/internal/domain"
	"github.com/compozy/releasetag/internal/repository"
)

// CreateTagUseCase tags the release commit.
type CreateTagUseCase struct {
	GitRepo repository.GitRepository
}

// Execute creates tag on HEAD; a non-empty message makes it annotated.
func (uc *CreateTagUseCase) Execute(ctx context.Context, tag, message string) error {
	if err := uc.GitRepo.CreateTag(ctx, tag, message); err != nil {
		return domain.NewReleaseError(domain.ErrorKindTag, "create tag", err)
	}
	return nil
}

// PushTagUseCase publishes a tag to a remote.
type PushTagUseCase struct {
	GitRepo repository.GitRepository
}

// Execute pushes refs/tags/<tag> to remote.
func (uc *PushTagUseCase) Execute(ctx context.Context, remote, tag string) error {
	if err := uc.GitRepo.PushTag(ctx, remote, tag); err != nil {
		return domain.NewReleaseError(domain.ErrorKindPush, "push tag", err)
	}
	return nil
}
