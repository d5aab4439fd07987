package tool

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
)

type CombineOptions struct {
	Parallelism int
	// CompleteOnFailure attempts every invocation even after one fails.
	CompleteOnFailure bool
}

type ItemFailure struct {
	Label string
	Err   error
}

// AggregateError summarises a CompleteOnFailure run with failures.
type AggregateError struct {
	Succeeded []string
	Failed    []ItemFailure
}

func (e *AggregateError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d of %d items failed", len(e.Failed), len(e.Failed)+len(e.Succeeded))
	for _, f := range e.Failed {
		fmt.Fprintf(&b, "; %s: %v", f.Label, f.Err)
	}
	return b.String()
}

func (e *AggregateError) Unwrap() []error {
	errs := make([]error, len(e.Failed))
	for i, f := range e.Failed {
		errs[i] = f.Err
	}
	return errs
}

// RunAll executes invocations with bounded parallelism. Outputs are returned
// in input order; entries for invocations that never ran are nil.
func RunAll(ctx context.Context, exec Executor, invocations []Invocation, opts CombineOptions) ([]*Output, error) {
	outputs := make([]*Output, len(invocations))
	errs := make([]error, len(invocations))

	var g *errgroup.Group
	runCtx := ctx
	if opts.CompleteOnFailure {
		g = new(errgroup.Group)
	} else {
		g, runCtx = errgroup.WithContext(ctx)
	}
	g.SetLimit(max(opts.Parallelism, 1))

	for i, inv := range invocations {
		g.Go(func() error {
			if err := runCtx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			out, err := exec.Execute(runCtx, inv)
			outputs[i] = out
			errs[i] = err
			if opts.CompleteOnFailure {
				return nil
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return outputs, err
	}
	if !opts.CompleteOnFailure {
		return outputs, ctx.Err()
	}

	agg := &AggregateError{}
	for i, err := range errs {
		if err == nil {
			agg.Succeeded = append(agg.Succeeded, invocations[i].name())
			continue
		}
		agg.Failed = append(agg.Failed, ItemFailure{Label: invocations[i].name(), Err: err})
	}
	if len(agg.Failed) > 0 {
		return outputs, agg
	}
	return outputs, nil
}
