package cmd

import (
	"fmt"
	"io"

	"github.com/compozy/releasetag/internal/config"
	"github.com/compozy/releasetag/internal/domain"
	"github.com/compozy/releasetag/internal/logger"
	"github.com/compozy/releasetag/internal/orchestrator"
	"github.com/compozy/releasetag/internal/repository"
	"github.com/compozy/releasetag/internal/service"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// container holds all the dependencies for the application.
type container struct {
	cfg    *config.Config
	logger *zap.Logger

	fsRepo     repository.FileSystemRepository
	gitRepo    repository.GitExtendedRepository
	githubRepo repository.GithubRepository
	stateRepo  repository.StateRepository
	buildSvc   service.BuildService
}

// newContainer loads the configuration, lets override adjust it and wires the
// repositories for the current working directory.
func newContainer(override func(cfg *config.Config)) (*container, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, domain.NewReleaseError(domain.ErrorKindUsage, "load config", err)
	}
	if override != nil {
		override(cfg)
		if err := cfg.Validate(); err != nil {
			return nil, domain.NewReleaseError(domain.ErrorKindUsage, "validate flags", err)
		}
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, domain.NewReleaseError(domain.ErrorKindUsage, "create logger", err)
	}
	fsRepo := repository.FileSystemRepository(afero.NewOsFs())
	gitRepo, err := repository.NewGitExtendedRepository(".", repository.WithToken(cfg.GithubToken))
	if err != nil {
		return nil, domain.NewReleaseError(domain.ErrorKindInternal, "open repository",
			fmt.Errorf("failed to open git repository in the working directory: %w", err))
	}
	// The GitHub client is only needed to publish releases.
	githubRepo := repository.NewGithubNoopRepository(cfg.GithubOwner, cfg.GithubRepo)
	if cfg.GithubRelease && cfg.GithubToken != "" {
		githubRepo, err = repository.NewGithubRepository(cfg.GithubToken, cfg.GithubOwner, cfg.GithubRepo)
		if err != nil {
			return nil, domain.NewReleaseError(domain.ErrorKindUsage, "create github client", err)
		}
	}
	return &container{
		cfg:        cfg,
		logger:     log,
		fsRepo:     fsRepo,
		gitRepo:    gitRepo,
		githubRepo: githubRepo,
		stateRepo:  repository.NewJSONStateRepository(fsRepo, cfg.StateDir, log),
		buildSvc:   service.NewBuildService(cfg.BuildTimeout, log),
	}, nil
}

func (c *container) releaseOrchestrator(out io.Writer) *orchestrator.ReleaseOrchestrator {
	orch := orchestrator.NewReleaseOrchestrator(
		c.gitRepo,
		c.githubRepo,
		c.fsRepo,
		c.buildSvc,
		c.stateRepo,
		c.cfg,
		c.logger,
	)
	orch.SetOutput(out)
	return orch
}

func (c *container) close() {
	// Sync fails on terminals; nothing useful can be done about it.
	_ = c.logger.Sync()
}
