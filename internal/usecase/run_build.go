package usecase

import (
	"context"

	"github.com/compozy/releasetag/internal/domain"
	"github.com/compozy/releasetag/internal/service"
)

// RunBuildUseCase runs the configured pre-release build.
type RunBuildUseCase struct {
	BuildSvc service.BuildService
}

// Execute runs command for the release. An empty command is a no-op.
func (uc *RunBuildUseCase) Execute(ctx context.Context, command string, id domain.ReleaseID) error {
	if command == "" {
		return nil
	}
	if err := uc.BuildSvc.Run(ctx, command, id.String()); err != nil {
		return domain.NewReleaseError(domain.ErrorKindBuild, "build", err)
	}
	return nil
}
