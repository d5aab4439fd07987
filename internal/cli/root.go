// Package cli implements the simplebuild command line.
package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/haatos/simple-build/internal"
	"github.com/haatos/simple-build/internal/settings"
	"github.com/haatos/simple-build/internal/tool"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	app *app
	// executor and stdin are swapped in tests.
	executor tool.Executor
	stdin    io.Reader
}

func NewRootCommand() *cobra.Command {
	return newRootCommand(&rootOptions{})
}

// execute runs cmd and closes whatever the command opened, failed or not.
func (o *rootOptions) execute(cmd *cobra.Command) error {
	defer func() {
		if o.app != nil {
			_ = o.app.Close()
		}
	}()
	return cmd.Execute()
}

func newRootCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simplebuild",
		Short: "Build, test, package and release .NET solutions",
		Long: `simplebuild runs the build targets declared for a repository: clean,
restore, compile, test, coverage, analysis, nuget-pack, nuget-push, publish,
octo-pack, octo-push, deploy-release and drop-publish.

Secrets such as NUGET_API_KEY or OCTOPUS_API_KEY are read from the
environment or from the encrypted secret store, only when a target that needs
them is about to run.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := settings.ReadDotenv(internal.DotEnvPath); err != nil {
				return WrapExitError(ExitCommandError, "unable to read .env", err)
			}
			a, err := newApp(cmd.Flags(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			a.executor = opts.executor
			opts.app = a
			return nil
		},
	}
	settings.BindFlags(cmd.PersistentFlags())
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	})

	cmd.AddCommand(
		newRunCommand(opts),
		newPlanCommand(opts),
		newTargetsCommand(opts),
		newHistoryCommand(opts),
		newServeCommand(opts),
		newSecretCommand(opts),
		newAPIKeyCommand(opts),
	)
	return cmd
}

func usageArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return WrapExitError(ExitCommandError, "invalid arguments", err)
		}
		return nil
	}
}

// Execute runs the root command and returns the process exit code.
func Execute(stderr io.Writer) int {
	opts := &rootOptions{}
	err := opts.execute(newRootCommand(opts))
	if err == nil {
		return ExitSuccess
	}
	fmt.Fprintln(stderr, "error:", err)
	if strings.HasPrefix(err.Error(), "unknown command") {
		return ExitCommandError
	}
	return GetExitCode(err)
}
