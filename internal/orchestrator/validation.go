package orchestrator

import (
	"context"
	"fmt"

	"github.com/compozy/releasetag/internal/domain"
	"github.com/compozy/releasetag/internal/repository"
)

// validatePreconditions fails before any change when the release cannot be published.
func (o *ReleaseOrchestrator) validatePreconditions(ctx context.Context) error {
	exists, err := o.gitRepo.RemoteExists(ctx, o.cfg.Remote)
	if err != nil {
		return domain.NewReleaseError(domain.ErrorKindInternal, "preflight", err)
	}
	if !exists {
		return domain.NewReleaseError(domain.ErrorKindPush, "preflight",
			fmt.Errorf("%w: %s", domain.ErrRemoteNotFound, o.cfg.Remote))
	}
	if o.cfg.GithubRelease && o.cfg.GithubToken == "" {
		return domain.NewReleaseError(domain.ErrorKindGithubRelease, "preflight", repository.ErrGithubTokenRequired)
	}
	return nil
}
