package usecase

import (
	"context"
	"fmt"

	"github.com/compozy/releasetag/internal/domain"
	"github.com/compozy/releasetag/internal/repository"
)

// PublishReleaseUseCase creates a GitHub release for a pushed tag.
type PublishReleaseUseCase struct {
	GithubRepo repository.GithubRepository
}

// Execute creates the release named after the tag.
func (uc *PublishReleaseUseCase) Execute(
	ctx context.Context,
	id domain.ReleaseID,
	nameTemplate string,
) (*repository.Release, error) {
	name := id.String()
	if nameTemplate != "" {
		name = domain.FormatMessage(nameTemplate, id)
	}
	body := fmt.Sprintf("Release %s", id)
	release, err := uc.GithubRepo.CreateRelease(ctx, id.String(), name, body)
	if err != nil {
		return nil, domain.NewReleaseError(domain.ErrorKindGithubRelease, "publish release", err)
	}
	return release, nil
}
