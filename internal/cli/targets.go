package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newTargetsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "targets",
		Short: "List the declared targets",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			builds, err := opts.app.buildService()
			if err != nil {
				return WrapExitError(ExitCommandError, "unable to load targets", err)
			}
			targets, err := builds.Targets()
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid targets", err)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TARGET\tDEPENDS ON\tDESCRIPTION")
			for _, t := range targets {
				deps := strings.Join(t.DependsOn, ", ")
				if deps == "" {
					deps = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", t.Name, deps, t.Description)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\ndefault target: %s\n", opts.app.definition.DefaultTarget)
			return nil
		},
	}
}
