package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/haatos/simple-build/internal/store"
	"github.com/spf13/cobra"
)

func newHistoryCommand(opts *rootOptions) *cobra.Command {
	var limit int64
	cmd := &cobra.Command{
		Use:   "history [run-uuid]",
		Short: "Show recorded runs, or the target results of one run",
		Args:  usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			builds, err := opts.app.buildService()
			if err != nil {
				return WrapExitError(ExitCommandError, "unable to open history", err)
			}
			if len(args) == 1 {
				run, results, err := builds.GetRunByUUID(cmd.Context(), args[0])
				if errors.Is(err, sql.ErrNoRows) {
					return NewExitError(ExitCommandError, "run "+args[0]+" not found")
				}
				if err != nil {
					return err
				}
				return writeRun(cmd.OutOrStdout(), run, results)
			}
			runs, err := builds.ListLatestRuns(cmd.Context(), limit)
			if err != nil {
				return WrapExitError(ExitCommandError, "unable to list runs", err)
			}
			return writeRuns(cmd.OutOrStdout(), runs)
		},
	}
	cmd.Flags().Int64Var(&limit, "limit", 20, "number of runs to show")
	return cmd
}

func exitCode(r *store.Run) string {
	if r.ExitCode == nil {
		return "-"
	}
	return strconv.FormatInt(*r.ExitCode, 10)
}

func writeRuns(w io.Writer, runs []store.Run) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTATUS\tEXIT\tTARGETS\tTRIGGERED BY\tCREATED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.UUID, r.Status, exitCode(&r), r.Targets, r.TriggeredBy,
			r.CreatedOn.Local().Format(time.DateTime),
		)
	}
	return tw.Flush()
}

func writeRun(w io.Writer, r *store.Run, results []store.TargetResult) error {
	fmt.Fprintf(w, "Run %s: %s (exit %s)\n", r.UUID, r.Status, exitCode(r))
	fmt.Fprintf(w, "targets: %s  configuration: %s  triggered by: %s\n\n", r.Targets, r.Configuration, r.TriggeredBy)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TARGET\tSTATUS\tDURATION\tERROR")
	for _, res := range results {
		msg := ""
		if res.Error != nil {
			msg = *res.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			res.Name, res.Status, (time.Duration(res.DurationMS) * time.Millisecond).String(), msg,
		)
	}
	return tw.Flush()
}
