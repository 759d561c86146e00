package usecase

import (
	"context"
	"fmt"

	"github.com/compozy/releasetag/internal/domain"
	"github.com/compozy/releasetag/internal/repository"
)

// CheckIdentifierUseCase verifies a release identifier is free to use.
type CheckIdentifierUseCase struct {
	GitRepo           repository.GitRepository
	RequireSemver     bool
	CheckVersionOrder bool
}

// Execute fails with a conflict when a branch or tag named id already exists.
func (uc *CheckIdentifierUseCase) Execute(ctx context.Context, id domain.ReleaseID) error {
	const op = "check identifier"
	if err := id.Validate(); err != nil {
		return err
	}
	if uc.RequireSemver && !domain.IsSemver(id.String()) {
		return domain.NewReleaseError(domain.ErrorKindUsage, op,
			fmt.Errorf("%w: %s is not a semantic version", domain.ErrInvalidIdentifier, id))
	}
	branchExists, err := uc.GitRepo.BranchExists(ctx, id.String())
	if err != nil {
		return domain.NewReleaseError(domain.ErrorKindInternal, op, err)
	}
	if branchExists {
		return domain.NewReleaseError(domain.ErrorKindConflict, op,
			fmt.Errorf("%w: branch %s", domain.ErrDuplicateIdentifier, id))
	}
	tagExists, err := uc.GitRepo.TagExists(ctx, id.String())
	if err != nil {
		return domain.NewReleaseError(domain.ErrorKindInternal, op, err)
	}
	if tagExists {
		return domain.NewReleaseError(domain.ErrorKindConflict, op,
			fmt.Errorf("%w: tag %s", domain.ErrDuplicateIdentifier, id))
	}
	if uc.CheckVersionOrder {
		return uc.checkOrder(ctx, id)
	}
	return nil
}

func (uc *CheckIdentifierUseCase) checkOrder(ctx context.Context, id domain.ReleaseID) error {
	const op = "check version order"
	version, err := id.Version()
	if err != nil {
		// Only semantic versions have an order.
		return nil
	}
	latestTag, err := uc.GitRepo.LatestVersionTag(ctx)
	if err != nil {
		return domain.NewReleaseError(domain.ErrorKindInternal, op, err)
	}
	if latestTag == "" {
		return nil
	}
	latest, err := domain.NewVersion(latestTag)
	if err != nil {
		return domain.NewReleaseError(domain.ErrorKindInternal, op, err)
	}
	if !version.GreaterThan(latest) {
		return domain.NewReleaseError(domain.ErrorKindConflict, op,
			fmt.Errorf("%w: %s <= %s", domain.ErrVersionNotIncreased, version, latest))
	}
	return nil
}
