package target

import (
	"context"
	"errors"
	"time"

	"github.com/haatos/simple-build/internal/settings"
	"github.com/haatos/simple-build/internal/util"
	"github.com/sirupsen/logrus"
)

type Runner struct {
	Graph        *Graph
	ArtifactsDir string
	Secrets      settings.SecretResolver
	Logger       logrus.FieldLogger
	// OnResult is called once per planned target as soon as its status is
	// final.
	OnResult func(*Result)
}

// Run executes the plan sequentially and always returns a report.
func (r *Runner) Run(ctx context.Context, plan Plan) *Report {
	logger := r.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	report := &Report{Results: make([]*Result, 0, len(plan.Targets))}
	results := make(map[string]*Result, len(plan.Targets))
	started := time.Now()

	var aborted error
	for _, name := range plan.Targets {
		t := r.Graph.Target(name)
		res := &Result{Name: name, Status: StatusPending}
		report.Results = append(report.Results, res)
		results[name] = res
		log := logger.WithField("target", name)

		switch {
		case aborted != nil:
			res.Status = StatusNotRun
			res.Err = aborted
		case ctx.Err() != nil:
			aborted = ctx.Err()
			res.Status = StatusNotRun
			res.Err = aborted
		case plan.IsSkipped(name):
			res.Status = StatusSkipped
			log.Info("skipped")
		default:
			if dep := blockedBy(t, results); dep != nil {
				res.Status = StatusNotRun
				res.Err = &DependencyError{Target: name, Dependency: dep.Name, Status: dep.Status}
				log.Warn(res.Err)
				break
			}
			r.execute(ctx, t, plan, res, log)
			if res.Status == StatusFailed && !t.ContinueOnFailure && !isRequirementError(res.Err) {
				aborted = ErrAborted
				if ctx.Err() != nil {
					aborted = ctx.Err()
				}
			}
		}
		if r.OnResult != nil {
			r.OnResult(res)
		}
	}

	report.Duration = time.Since(started)
	report.Cancelled = ctx.Err() != nil
	return report
}

func (r *Runner) execute(ctx context.Context, t *Target, plan Plan, res *Result, log logrus.FieldLogger) {
	started := time.Now()
	defer func() {
		res.Duration = time.Since(started)
	}()

	values, err := settings.Require(ctx, r.Secrets, t.Requires...)
	if err != nil {
		var missing *settings.MissingSecretError
		if errors.As(err, &missing) {
			err = &MissingRequirementError{Target: t.Name, Err: err}
		}
		res.Status = StatusFailed
		res.Err = err
		log.WithError(err).Error("requirement check failed")
		return
	}

	tc := &Context{
		Target:       t.Name,
		ArtifactsDir: r.ArtifactsDir,
		Logger:       log,
		plan:         plan,
		requirements: values,
		secrets:      r.Secrets,
	}

	log.Info("starting")
	if t.Action != nil {
		err = t.Action(ctx, tc)
	}
	if err == nil && !tc.skipProduces {
		err = r.verifyProduces(t)
	}
	if err != nil {
		res.Status = StatusFailed
		res.Err = err
		log.WithError(err).Error("failed")
		return
	}
	res.Status = StatusSucceeded
	log.WithField("duration", time.Since(started).Round(time.Millisecond)).Info("succeeded")
}

func (r *Runner) verifyProduces(t *Target) error {
	for _, pattern := range t.Produces {
		matches, err := util.GlobFiles(r.ArtifactsDir, pattern)
		if err != nil {
			return err
		}
		if len(matches) == 0 {
			return &ArtifactError{Target: t.Name, Pattern: pattern}
		}
	}
	return nil
}

// blockedBy returns the first dependency that neither succeeded nor was
// skipped.
func blockedBy(t *Target, results map[string]*Result) *Result {
	for _, dep := range t.DependsOn {
		res, ok := results[dep]
		if !ok {
			continue
		}
		if res.Status != StatusSucceeded && res.Status != StatusSkipped {
			return res
		}
	}
	return nil
}

func isRequirementError(err error) bool {
	var req *MissingRequirementError
	return errors.As(err, &req)
}
