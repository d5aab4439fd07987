package target

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
	StatusNotRun    Status = "not-run"
)

type Result struct {
	Name     string
	Status   Status
	Duration time.Duration
	Err      error
}

type Report struct {
	Results   []*Result
	Duration  time.Duration
	Cancelled bool
}

func (r *Report) Result(name string) *Result {
	for _, res := range r.Results {
		if res.Name == name {
			return res
		}
	}
	return nil
}

// Failed returns the failed results in execution order.
func (r *Report) Failed() []*Result {
	var out []*Result
	for _, res := range r.Results {
		if res.Status == StatusFailed {
			out = append(out, res)
		}
	}
	return out
}

func (r *Report) Succeeded() bool {
	if r.Cancelled {
		return false
	}
	for _, res := range r.Results {
		if res.Status != StatusSucceeded && res.Status != StatusSkipped {
			return false
		}
	}
	return true
}

// Err joins every failure, or nil when the run succeeded.
func (r *Report) Err() error {
	if r.Succeeded() {
		return nil
	}
	var errs []error
	for _, res := range r.Failed() {
		errs = append(errs, res.Err)
	}
	if len(errs) == 0 {
		return errors.New("run did not complete")
	}
	return errors.Join(errs...)
}

// ExitCode is 0 on success. Otherwise it is the exit code carried by the
// first failed target's error, falling back to 1.
func (r *Report) ExitCode() int {
	if r.Succeeded() {
		return 0
	}
	for _, res := range r.Failed() {
		var coder interface{ ExitCode() int }
		if errors.As(res.Err, &coder) && coder.ExitCode() > 0 {
			return coder.ExitCode()
		}
		return 1
	}
	return 1
}

var statusColors = map[Status]*color.Color{
	StatusSucceeded: color.New(color.FgGreen),
	StatusFailed:    color.New(color.FgRed, color.Bold),
	StatusSkipped:   color.New(color.FgYellow),
	StatusNotRun:    color.New(color.FgHiBlack),
	StatusPending:   color.New(color.FgHiBlack),
}

// WriteSummary prints a per-target table followed by the overall outcome.
func (r *Report) WriteSummary(w io.Writer) error {
	var table bytes.Buffer
	tw := tabwriter.NewWriter(&table, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TARGET\tSTATUS\tDURATION")
	for _, res := range r.Results {
		duration := ""
		if res.Status == StatusSucceeded || res.Status == StatusFailed {
			duration = res.Duration.Round(time.Millisecond).String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", res.Name, res.Status, duration)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	// color after alignment; escape codes differ in length per status
	lines := strings.SplitAfter(table.String(), "\n")
	col := strings.Index(lines[0], "STATUS")
	for i, res := range r.Results {
		line := lines[i+1]
		end := col + len(res.Status)
		lines[i+1] = line[:col] + statusColors[res.Status].Sprint(string(res.Status)) + line[end:]
	}
	if _, err := io.WriteString(w, strings.Join(lines, "")); err != nil {
		return err
	}

	var b strings.Builder
	switch {
	case r.Succeeded():
		b.WriteString(color.GreenString("Build succeeded"))
	case r.Cancelled:
		b.WriteString(color.YellowString("Build cancelled"))
	default:
		b.WriteString(color.RedString("Build failed"))
	}
	fmt.Fprintf(&b, " in %s\n", r.Duration.Round(time.Millisecond))
	for _, res := range r.Failed() {
		fmt.Fprintf(&b, "  %s: %v\n", res.Name, res.Err)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
