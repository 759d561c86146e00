package cmd

import (
	"context"
	"fmt"

	"github.com/compozy/releasetag/internal/config"
	"github.com/compozy/releasetag/internal/domain"
	"github.com/compozy/releasetag/internal/orchestrator"
	"github.com/compozy/releasetag/pkg/version"
	"github.com/spf13/cobra"
)

// releaseOptions holds the command line flags. Flags set explicitly override config.
type releaseOptions struct {
	dryRun         bool
	ciOutput       bool
	enableRollback bool
	githubRelease  bool
	annotate       bool
	remote         string
	ignoreFile     string
	pattern        string
	sessionID      string
}

// Execute runs the release-tag command line.
func Execute(ctx context.Context) error {
	return newRootCmd(&releaseOptions{}).ExecuteContext(ctx)
}

func newRootCmd(opts *releaseOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "release-tag <version>",
		Short: "Commit build output and tag a release",
		Long: `release-tag publishes a release from the current checkout.

It removes the build output pattern from the ignore-file, stages every untracked
file, commits with "chore release: new release <version>", tags the commit with
<version> and pushes the tag.

Unless --enable-rollback=false is given, each step is journaled under the state
directory and a failure undoes the completed steps. A session left behind by a
killed process can be undone with "release-tag rollback".`,
		Version:       version.Summary(),
		Args:          requireVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRelease(cmd, opts, args[0])
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return domain.NewReleaseError(domain.ErrorKindUsage, "parse flags", err)
	})
	flags := cmd.Flags()
	flags.BoolVar(&opts.dryRun, "dry-run", false, "Report what would be released without changing anything")
	flags.BoolVar(&opts.enableRollback, "enable-rollback", true, "Undo completed steps when a step fails")
	flags.BoolVar(&opts.githubRelease, "github-release", false, "Publish a GitHub release for the tag")
	flags.BoolVar(&opts.annotate, "annotate", false, "Create an annotated tag")
	flags.StringVar(&opts.remote, "remote", "", "Remote to push the tag to (default from config: origin)")
	flags.StringVar(&opts.ignoreFile, "ignore-file", "", "Ignore-file to rewrite (default from config: .gitignore)")
	flags.StringVar(&opts.pattern, "pattern", "", "Pattern to remove from the ignore-file (default from config: /dist)")
	cmd.PersistentFlags().BoolVar(&opts.ciOutput, "ci-output", false, "Print key=value lines instead of status lines")
	cmd.AddCommand(newRollbackCmd(opts), newVersionCmd())
	return cmd
}

func requireVersion(_ *cobra.Command, args []string) error {
	switch {
	case len(args) == 0:
		return domain.NewReleaseError(domain.ErrorKindUsage, "parse arguments", domain.ErrMissingIdentifier)
	case len(args) > 1:
		return domain.NewReleaseError(domain.ErrorKindUsage, "parse arguments",
			fmt.Errorf("expected a single version, got %d arguments", len(args)))
	}
	return nil
}

// apply copies the flags the user set onto cfg.
func (o *releaseOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("enable-rollback") {
		cfg.EnableRollback = o.enableRollback
	}
	if flags.Changed("github-release") {
		cfg.GithubRelease = o.githubRelease
	}
	if flags.Changed("annotate") {
		cfg.AnnotateTag = o.annotate
	}
	if flags.Changed("remote") {
		cfg.Remote = o.remote
	}
	if flags.Changed("ignore-file") {
		cfg.IgnoreFile = o.ignoreFile
	}
	if flags.Changed("pattern") {
		cfg.ExcludePattern = o.pattern
	}
}

func runRelease(cmd *cobra.Command, opts *releaseOptions, version string) error {
	c, err := newContainer(func(cfg *config.Config) { opts.apply(cmd, cfg) })
	if err != nil {
		return err
	}
	defer c.close()
	return c.releaseOrchestrator(cmd.OutOrStdout()).Execute(cmd.Context(), orchestrator.ReleaseConfig{
		Version:        version,
		DryRun:         opts.dryRun,
		CIOutput:       opts.ciOutput,
		EnableRollback: c.cfg.EnableRollback,
	})
}
