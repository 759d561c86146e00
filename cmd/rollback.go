package cmd

import (
	"github.com/compozy/releasetag/internal/orchestrator"
	"github.com/spf13/cobra"
)

func newRollbackCmd(opts *releaseOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rollback",
		Short: "Undo the completed steps of a failed release session",
		Long: `Undo the completed steps of a failed release session.

Without --session-id the most recently recorded session is used. Sessions that
completed successfully are never undone.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newContainer(nil)
			if err != nil {
				return err
			}
			defer c.close()
			return c.releaseOrchestrator(cmd.OutOrStdout()).Execute(cmd.Context(), orchestrator.ReleaseConfig{
				Rollback:  true,
				SessionID: opts.sessionID,
				CIOutput:  opts.ciOutput,
			})
		},
	}
	cmd.Flags().StringVar(&opts.sessionID, "session-id", "", "Session ID to roll back (uses latest if not specified)")
	return cmd
}
