package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/haatos/simple-build/internal/service"
	"github.com/haatos/simple-build/internal/target"
	"github.com/spf13/cobra"
)

func newPlanCommand(opts *rootOptions) *cobra.Command {
	var skip []string
	cmd := &cobra.Command{
		Use:   "plan [targets...]",
		Short: "Print the execution order without running anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			builds, err := opts.app.buildService()
			if err != nil {
				return WrapExitError(ExitCommandError, "unable to load targets", err)
			}
			req := service.RunRequest{Targets: args, Skip: skip}
			plan, err := builds.Plan(req)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid plan", err)
			}
			targets, err := builds.Targets()
			if err != nil {
				return err
			}
			return renderPlan(cmd.OutOrStdout(), targets, plan)
		},
	}
	cmd.Flags().StringSliceVar(&skip, "skip", nil, "targets to leave out; their dependents still run")
	return cmd
}

func renderPlan(w io.Writer, targets []target.Target, plan target.Plan) error {
	byName := make(map[string]target.Target, len(targets))
	width := 0
	for _, t := range targets {
		byName[t.Name] = t
	}
	for _, name := range plan.Targets {
		width = max(width, len(name))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Plan for %s\n", strings.Join(plan.Invoked, ", "))
	for i, name := range plan.Targets {
		note := ""
		switch t := byName[name]; {
		case plan.IsSkipped(name):
			note = "skipped"
		case len(t.Requires) > 0:
			note = "requires " + strings.Join(t.Requires, ", ")
		}
		line := fmt.Sprintf("%2d. %-*s %s", i+1, width, name, note)
		b.WriteString(strings.TrimRight(line, " "))
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "%d targets, %d skipped\n", len(plan.Targets), len(plan.Skipped))
	_, err := io.WriteString(w, b.String())
	return err
}
