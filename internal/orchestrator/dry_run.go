package orchestrator

import (
	"context"
	"fmt"

	"github.com/compozy/releasetag/internal/domain"
	"github.com/compozy/releasetag/internal/usecase"
)

// executeDryRun runs the read-only checks and prints what a release would do.
func (o *ReleaseOrchestrator) executeDryRun(ctx context.Context, release *domain.Release, cfg ReleaseConfig) error {
	check := &usecase.CheckIdentifierUseCase{
		GitRepo:           o.gitRepo,
		RequireSemver:     o.cfg.RequireSemver,
		CheckVersionOrder: o.cfg.CheckVersionOrder,
	}
	if err := check.Execute(ctx, release.ID); err != nil {
		return err
	}
	ignoreFile := &usecase.RewriteIgnoreFileUseCase{FS: o.fsRepo}
	hasPattern, err := ignoreFile.Contains(ctx, release.IgnoreFile, release.ExcludePattern)
	if err != nil {
		return err
	}
	untracked, err := o.gitRepo.UntrackedFiles(ctx)
	if err != nil {
		return domain.NewReleaseError(domain.ErrorKindStage, "list untracked files", err)
	}
	remoteExists, err := o.gitRepo.RemoteExists(ctx, release.Remote)
	if err != nil {
		return domain.NewReleaseError(domain.ErrorKindInternal, "check remote", err)
	}
	if cfg.CIOutput {
		o.printCIOutput(true, "dry_run=true\n")
		o.printCIOutput(true, "version=%s\n", release.ID)
		o.printCIOutput(true, "tag=%s\n", release.ID)
		o.printCIOutput(true, "pattern_present=%t\n", hasPattern)
		o.printCIOutput(true, "untracked_files=%d\n", len(untracked))
		o.printCIOutput(true, "remote_exists=%t\n", remoteExists)
		return nil
	}
	o.printStatus(false, fmt.Sprintf("Dry run for release %s", release.ID))
	if hasPattern {
		o.printStatus(false, fmt.Sprintf("  would remove %q from %s", release.ExcludePattern, release.IgnoreFile))
	} else {
		o.printStatus(false, fmt.Sprintf("  %s does not contain %q", release.IgnoreFile, release.ExcludePattern))
	}
	if o.cfg.BuildCommand != "" {
		o.printStatus(false, fmt.Sprintf("  would run build command: %s", o.cfg.BuildCommand))
	}
	o.printStatus(false, fmt.Sprintf("  would stage %d untracked file(s) plus files un-ignored by the rewrite", len(untracked)))
	for _, file := range untracked {
		o.printStatus(false, "    "+file)
	}
	o.printStatus(false, fmt.Sprintf("  would commit: %s", release.CommitMessage))
	kind := "lightweight"
	if release.Annotated {
		kind = "annotated"
	}
	o.printStatus(false, fmt.Sprintf("  would create %s tag %s", kind, release.ID))
	if remoteExists {
		o.printStatus(false, fmt.Sprintf("  would push tag %s to %s", release.ID, release.Remote))
	} else {
		o.printStatus(false, fmt.Sprintf("  remote %s is not configured; the push would fail", release.Remote))
	}
	if o.cfg.GithubRelease {
		o.printStatus(false, fmt.Sprintf("  would publish GitHub release %s/%s@%s", o.cfg.GithubOwner, o.cfg.GithubRepo, release.ID))
	}
	o.printStatus(false, "No changes were made.")
	return nil
}
