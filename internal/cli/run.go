package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/haatos/simple-build/internal/service"
	"github.com/spf13/cobra"
)

func newRunCommand(opts *rootOptions) *cobra.Command {
	var skip []string
	cmd := &cobra.Command{
		Use:   "run [targets...]",
		Short: "Run targets and everything they depend on",
		Long: `Run the given targets after their dependencies. Without arguments the
default target of the build definition runs.

Example:
  simplebuild run
  simplebuild run deploy-release --skip clean
  simplebuild run test --test-partition 2/3 -c Release`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			builds, err := opts.app.buildService()
			if err != nil {
				return WrapExitError(ExitCommandError, "unable to start build", err)
			}
			run, report, err := builds.Run(ctx, service.RunRequest{
				Targets:     args,
				Skip:        skip,
				TriggeredBy: "cli",
			})
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid run request", err)
			}
			if err := report.WriteSummary(cmd.OutOrStdout()); err != nil {
				return err
			}
			if !report.Succeeded() {
				return WrapExitError(report.ExitCode(), fmt.Sprintf("run %s %s", run.UUID, run.Status), report.Err())
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&skip, "skip", nil, "targets to leave out; their dependents still run")
	return cmd
}
