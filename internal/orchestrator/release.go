package orchestrator

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/compozy/releasetag/internal/config"
	"github.com/compozy/releasetag/internal/domain"
	"github.com/compozy/releasetag/internal/repository"
	"github.com/compozy/releasetag/internal/service"
	"github.com/compozy/releasetag/internal/usecase"
	"go.uber.org/zap"
)

// ReleaseConfig contains the per-run options of the release workflow.
type ReleaseConfig struct {
	Version        string
	DryRun         bool
	CIOutput       bool
	EnableRollback bool   // Enable saga-based rollback support
	Rollback       bool   // Perform rollback of failed session
	SessionID      string // Session ID for rollback operations
}

// ReleaseOrchestrator runs the tag release workflow.
type ReleaseOrchestrator struct {
	gitRepo    repository.GitExtendedRepository
	githubRepo repository.GithubRepository
	fsRepo     repository.FileSystemRepository
	buildSvc   service.BuildService
	stateRepo  repository.StateRepository
	cfg        *config.Config
	logger     *zap.Logger
	out        io.Writer
}

// NewReleaseOrchestrator creates a new release orchestrator.
func NewReleaseOrchestrator(
	gitRepo repository.GitExtendedRepository,
	githubRepo repository.GithubRepository,
	fsRepo repository.FileSystemRepository,
	buildSvc service.BuildService,
	stateRepo repository.StateRepository,
	cfg *config.Config,
	logger *zap.Logger,
) *ReleaseOrchestrator {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReleaseOrchestrator{
		gitRepo:    gitRepo,
		githubRepo: githubRepo,
		fsRepo:     fsRepo,
		buildSvc:   buildSvc,
		stateRepo:  stateRepo,
		cfg:        cfg,
		logger:     logger,
		out:        os.Stdout,
	}
}

// SetOutput redirects status and CI lines.
func (o *ReleaseOrchestrator) SetOutput(w io.Writer) {
	o.out = w
}

// Execute runs the complete release workflow.
func (o *ReleaseOrchestrator) Execute(ctx context.Context, cfg ReleaseConfig) error {
	if cfg.Rollback {
		return o.performRollback(ctx, cfg.SessionID, cfg.CIOutput)
	}
	id, err := domain.ParseReleaseID(cfg.Version)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, DefaultWorkflowTimeout)
	defer cancel()
	release := o.newRelease(id)
	if cfg.DryRun {
		return o.executeDryRun(ctx, release, cfg)
	}
	if err := o.validatePreconditions(ctx); err != nil {
		return err
	}
	if err := o.configureAuthor(ctx); err != nil {
		return err
	}
	saga := o.initializeSaga(ctx, release, cfg.EnableRollback)
	wctx := &workflowContext{release: release, originalHead: saga.GetState().OriginalHead}
	o.buildWorkflow(saga, wctx)
	o.printCIOutput(cfg.CIOutput, "session_id=%s\n", saga.SessionID())
	if err := saga.Execute(ctx); err != nil {
		if cfg.EnableRollback && domain.KindOf(err) != domain.ErrorKindRollback {
			o.printStatus(cfg.CIOutput,
				fmt.Sprintf("Release %s failed; completed steps of session %s were rolled back", id, saga.SessionID()))
		}
		return err
	}
	if cfg.EnableRollback {
		o.pruneSession(ctx, saga.SessionID())
	}
	o.printCIOutput(cfg.CIOutput, "version=%s\n", id)
	o.printCIOutput(cfg.CIOutput, "tag=%s\n", id)
	o.printCIOutput(cfg.CIOutput, "commit=%s\n", wctx.commitSHA)
	o.printCIOutput(cfg.CIOutput, "staged_files=%d\n", len(wctx.staged))
	if wctx.releaseURL != "" {
		o.printCIOutput(cfg.CIOutput, "release_url=%s\n", wctx.releaseURL)
	}
	o.printStatus(cfg.CIOutput, fmt.Sprintf("Release %s tagged at %s and pushed to %s",
		id, shortSHA(wctx.commitSHA), release.Remote))
	return nil
}

func (o *ReleaseOrchestrator) newRelease(id domain.ReleaseID) *domain.Release {
	release := &domain.Release{
		ID:             id,
		CommitMessage:  domain.FormatMessage(o.cfg.CommitMessage, id),
		Annotated:      o.cfg.AnnotateTag,
		Remote:         o.cfg.Remote,
		IgnoreFile:     o.cfg.IgnoreFile,
		ExcludePattern: o.cfg.ExcludePattern,
	}
	if release.Annotated {
		release.TagMessage = domain.FormatMessage(o.cfg.TagMessage, id)
	}
	return release
}

// pruneSession drops the journal of a completed release; it can never be rolled back.
func (o *ReleaseOrchestrator) pruneSession(ctx context.Context, sessionID string) {
	if err := o.stateRepo.Delete(ctx, sessionID); err != nil {
		o.logger.Warn("failed to remove completed release state",
			zap.String("session_id", sessionID), zap.Error(err))
	}
}

// configureAuthor sets the commit identity from config, or the Actions bot identity on a runner.
func (o *ReleaseOrchestrator) configureAuthor(ctx context.Context) error {
	name, email := o.cfg.AuthorName, o.cfg.AuthorEmail
	if name == "" && os.Getenv(envGithubActions) == githubActionsTrue {
		name, email = actionsBotName, actionsBotEmail
	}
	if name == "" {
		return nil
	}
	if err := o.gitRepo.ConfigureUser(ctx, name, email); err != nil {
		return domain.NewReleaseError(domain.ErrorKindInternal, "configure author", err)
	}
	return nil
}

// initializeSaga creates the saga and records where HEAD was before the release
func (o *ReleaseOrchestrator) initializeSaga(
	ctx context.Context,
	release *domain.Release,
	enableRollback bool,
) *SagaExecutor {
	saga := NewSagaExecutor(o.stateRepo, enableRollback, o.logger)
	saga.SetVersion(release.ID.String())
	saga.SetRemote(release.Remote)
	head, err := o.gitRepo.GetHeadCommit(ctx)
	if err != nil {
		// An unborn branch has no HEAD yet; the release commit becomes the root commit.
		o.logger.Warn("repository has no HEAD commit", zap.Error(err))
	}
	saga.SetOriginalHead(head)
	if branch, err := o.gitRepo.GetCurrentBranch(ctx); err == nil {
		saga.SetOriginalBranch(branch)
	}
	return saga
}

// workflowContext holds shared state for workflow execution
type workflowContext struct {
	release      *domain.Release
	originalHead string
	staged       []string
	commitSHA    string
	releaseURL   string
}

// buildWorkflow adds the release steps in execution order.
func (o *ReleaseOrchestrator) buildWorkflow(saga *SagaExecutor, wctx *workflowContext) {
	compensator := NewCompensatingActions(o.gitRepo, o.githubRepo, o.fsRepo, o.logger)
	o.addCheckIdentifierStep(saga, compensator, wctx)
	o.addRewriteIgnoreFileStep(saga, compensator, wctx)
	if o.cfg.BuildCommand != "" {
		o.addBuildStep(saga, compensator, wctx)
	}
	o.addStageFilesStep(saga, compensator, wctx)
	o.addCommitStep(saga, compensator, wctx)
	o.addCreateTagStep(saga, compensator, wctx)
	o.addPushTagStep(saga, compensator, wctx)
	if o.cfg.GithubRelease {
		o.addGithubReleaseStep(saga, compensator, wctx)
	}
}

func (o *ReleaseOrchestrator) addCheckIdentifierStep(
	saga *SagaExecutor,
	compensator *CompensatingActions,
	wctx *workflowContext,
) {
	saga.AddStep(SagaStep{
		Name: "Check Identifier",
		Type: domain.OperationTypeCheckIdentifier,
		Execute: func(ctx context.Context) (map[string]any, error) {
			uc := &usecase.CheckIdentifierUseCase{
				GitRepo:           o.gitRepo,
				RequireSemver:     o.cfg.RequireSemver,
				CheckVersionOrder: o.cfg.CheckVersionOrder,
			}
			if err := uc.Execute(ctx, wctx.release.ID); err != nil {
				return nil, err
			}
			return map[string]any{"identifier": wctx.release.ID.String()}, nil
		},
		Compensate: compensator.NoOp,
	})
}

func (o *ReleaseOrchestrator) addRewriteIgnoreFileStep(
	saga *SagaExecutor,
	compensator *CompensatingActions,
	wctx *workflowContext,
) {
	saga.AddStep(SagaStep{
		Name: "Rewrite Ignore File",
		Type: domain.OperationTypeRewriteIgnoreFile,
		Execute: func(ctx context.Context) (map[string]any, error) {
			uc := &usecase.RewriteIgnoreFileUseCase{FS: o.fsRepo}
			result, err := uc.Execute(ctx, wctx.release.IgnoreFile, wctx.release.ExcludePattern)
			if err != nil {
				return nil, err
			}
			if !result.Changed {
				o.logger.Info("ignore file does not contain the pattern",
					zap.String("file", result.Path), zap.String("pattern", wctx.release.ExcludePattern))
			}
			return map[string]any{
				rollbackKeyPath:     result.Path,
				rollbackKeyOriginal: result.Original,
				rollbackKeyChanged:  result.Changed,
			}, nil
		},
		Compensate: compensator.RestoreIgnoreFile,
	})
}

func (o *ReleaseOrchestrator) addBuildStep(
	saga *SagaExecutor,
	compensator *CompensatingActions,
	wctx *workflowContext,
) {
	saga.AddStep(SagaStep{
		Name: "Build",
		Type: domain.OperationTypeBuild,
		Execute: func(ctx context.Context) (map[string]any, error) {
			uc := &usecase.RunBuildUseCase{BuildSvc: o.buildSvc}
			if err := uc.Execute(ctx, o.cfg.BuildCommand, wctx.release.ID); err != nil {
				return nil, err
			}
			return map[string]any{"command": o.cfg.BuildCommand}, nil
		},
		Compensate: compensator.NoOp,
	})
}

func (o *ReleaseOrchestrator) addStageFilesStep(
	saga *SagaExecutor,
	compensator *CompensatingActions,
	wctx *workflowContext,
) {
	saga.AddStep(SagaStep{
		Name: "Stage Files",
		Type: domain.OperationTypeStageFiles,
		Execute: func(ctx context.Context) (map[string]any, error) {
			uc := &usecase.StageUntrackedUseCase{GitRepo: o.gitRepo}
			files, err := uc.Execute(ctx)
			if err != nil {
				return nil, err
			}
			wctx.staged = files
			o.logger.Info("staged untracked files", zap.Int("count", len(files)))
			return map[string]any{rollbackKeyFiles: files}, nil
		},
		Compensate: compensator.UnstageFiles,
	})
}

func (o *ReleaseOrchestrator) addCommitStep(
	saga *SagaExecutor,
	compensator *CompensatingActions,
	wctx *workflowContext,
) {
	saga.AddStep(SagaStep{
		Name: "Commit",
		Type: domain.OperationTypeCommit,
		Execute: func(ctx context.Context) (map[string]any, error) {
			uc := &usecase.CommitReleaseUseCase{GitRepo: o.gitRepo}
			sha, err := uc.Execute(ctx, wctx.release.CommitMessage)
			if err != nil {
				return nil, err
			}
			wctx.commitSHA = sha
			return map[string]any{
				rollbackKeyCommitSHA:    sha,
				rollbackKeyOriginalHead: wctx.originalHead,
			}, nil
		},
		Compensate: compensator.ResetCommit,
	})
}

func (o *ReleaseOrchestrator) addCreateTagStep(
	saga *SagaExecutor,
	compensator *CompensatingActions,
	wctx *workflowContext,
) {
	saga.AddStep(SagaStep{
		Name: "Create Tag",
		Type: domain.OperationTypeCreateTag,
		Execute: func(ctx context.Context) (map[string]any, error) {
			uc := &usecase.CreateTagUseCase{GitRepo: o.gitRepo}
			tag := wctx.release.ID.String()
			if err := uc.Execute(ctx, tag, wctx.release.TagMessage); err != nil {
				return nil, err
			}
			return map[string]any{
				rollbackKeyTag:       tag,
				rollbackKeyCommitSHA: wctx.commitSHA,
			}, nil
		},
		Compensate: compensator.DeleteTag,
	})
}

func (o *ReleaseOrchestrator) addPushTagStep(
	saga *SagaExecutor,
	compensator *CompensatingActions,
	wctx *workflowContext,
) {
	saga.AddStep(SagaStep{
		Name:      "Push Tag",
		Type:      domain.OperationTypePushTag,
		Retryable: true,
		Execute: func(ctx context.Context) (map[string]any, error) {
			uc := &usecase.PushTagUseCase{GitRepo: o.gitRepo}
			tag := wctx.release.ID.String()
			if err := uc.Execute(ctx, wctx.release.Remote, tag); err != nil {
				return nil, err
			}
			return map[string]any{
				rollbackKeyTag:    tag,
				rollbackKeyRemote: wctx.release.Remote,
			}, nil
		},
		Compensate: compensator.DeleteRemoteTag,
	})
}

func (o *ReleaseOrchestrator) addGithubReleaseStep(
	saga *SagaExecutor,
	compensator *CompensatingActions,
	wctx *workflowContext,
) {
	saga.AddStep(SagaStep{
		Name:      "Publish GitHub Release",
		Type:      domain.OperationTypeGithubRelease,
		Retryable: true,
		Execute: func(ctx context.Context) (map[string]any, error) {
			uc := &usecase.PublishReleaseUseCase{GithubRepo: o.githubRepo}
			release, err := uc.Execute(ctx, wctx.release.ID, o.cfg.TagMessage)
			if err != nil {
				return nil, err
			}
			wctx.releaseURL = release.HTMLURL
			return map[string]any{
				rollbackKeyReleaseID: release.ID,
				"url":                release.HTMLURL,
			}, nil
		},
		Compensate: compensator.DeleteRelease,
	})
}

// performRollback rolls back a failed release session
func (o *ReleaseOrchestrator) performRollback(ctx context.Context, sessionID string, ciOutput bool) error {
	if sessionID == "" {
		state, err := o.stateRepo.LoadLatest(ctx)
		if err != nil {
			return domain.NewReleaseError(domain.ErrorKindRollback, "load latest session", err)
		}
		sessionID = state.SessionID
	}
	saga, err := LoadExistingSaga(ctx, o.stateRepo, sessionID, o.logger)
	if err != nil {
		return domain.NewReleaseError(domain.ErrorKindRollback, "load session", err)
	}
	switch saga.GetState().Status {
	case domain.WorkflowStatusRolledBack:
		o.printStatus(ciOutput, fmt.Sprintf("Session %s is already rolled back", sessionID))
		return nil
	case domain.WorkflowStatusCompleted:
		return domain.NewReleaseError(domain.ErrorKindUsage, "rollback",
			fmt.Errorf("session %s completed successfully; refusing to undo a published release", sessionID))
	}
	compensator := NewCompensatingActions(o.gitRepo, o.githubRepo, o.fsRepo, o.logger)
	// The loaded saga has no function pointers; rebuild them from the operation types.
	o.rebuildSagaSteps(saga, compensator)
	rollbackCtx, cancel := context.WithTimeout(ctx, RollbackTimeout)
	defer cancel()
	if err := saga.Rollback(rollbackCtx); err != nil {
		return domain.NewReleaseError(domain.ErrorKindRollback, "rollback", err)
	}
	o.printCIOutput(ciOutput, "session_id=%s\n", sessionID)
	o.printCIOutput(ciOutput, "rolled_back=true\n")
	o.printStatus(ciOutput, fmt.Sprintf("Rollback of session %s (%s) completed", sessionID, saga.GetState().Version))
	return nil
}

// rebuildSagaSteps rebuilds the saga steps with compensating actions
func (o *ReleaseOrchestrator) rebuildSagaSteps(saga *SagaExecutor, compensator *CompensatingActions) {
	compensateMap := map[domain.OperationType]func(context.Context, map[string]any) error{
		domain.OperationTypeCheckIdentifier:   compensator.NoOp,
		domain.OperationTypeRewriteIgnoreFile: compensator.RestoreIgnoreFile,
		domain.OperationTypeBuild:             compensator.NoOp,
		domain.OperationTypeStageFiles:        compensator.UnstageFiles,
		domain.OperationTypeCommit:            compensator.ResetCommit,
		domain.OperationTypeCreateTag:         compensator.DeleteTag,
		domain.OperationTypePushTag:           compensator.DeleteRemoteTag,
		domain.OperationTypeGithubRelease:     compensator.DeleteRelease,
	}
	for _, op := range saga.GetState().Operations {
		if compensate, ok := compensateMap[op.Type]; ok {
			saga.registerCompensation(SagaStep{
				Name:       string(op.Type),
				Type:       op.Type,
				Compensate: compensate,
			})
		}
	}
}

// printCIOutput prints output in CI format if enabled
func (o *ReleaseOrchestrator) printCIOutput(ciOutput bool, format string, args ...any) {
	if ciOutput {
		fmt.Fprintf(o.out, format, args...)
	}
}

// printStatus prints status messages when not in CI mode
func (o *ReleaseOrchestrator) printStatus(ciOutput bool, message string) {
	if !ciOutput {
		fmt.Fprintln(o.out, message)
	}
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
