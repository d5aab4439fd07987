package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/haatos/simple-build/internal/build"
	"github.com/haatos/simple-build/internal/settings"
	"github.com/haatos/simple-build/internal/store"
	"github.com/haatos/simple-build/internal/target"
	"github.com/haatos/simple-build/internal/util"
	"github.com/sirupsen/logrus"
)

type RunRequest struct {
	Targets []string `json:"targets"`
	Skip    []string `json:"skip"`
	// Configuration overrides the environment's configuration when set.
	Configuration settings.Configuration `json:"configuration,omitempty"`
	TriggeredBy   string                 `json:"-"`
}

// PreparedRun is a validated plan with its history record.
type PreparedRun struct {
	Run      *store.Run
	Plan     target.Plan
	pipeline *build.Pipeline
	graph    *target.Graph
}

type BuildServicer interface {
	Targets() ([]target.Target, error)
	Prepare(context.Context, RunRequest) (*PreparedRun, error)
	Execute(context.Context, *PreparedRun) *target.Report
	Finish(*PreparedRun, store.RunStatus, int64)
	GetRunByUUID(context.Context, string) (*store.Run, []store.TargetResult, error)
	ListLatestRuns(context.Context, int64) ([]store.Run, error)
}

type BuildService struct {
	env      build.Env
	secrets  settings.SecretResolver
	runStore store.RunStore
	logger   logrus.FieldLogger
}

func NewBuildService(
	env build.Env,
	secrets settings.SecretResolver,
	runStore store.RunStore,
	logger logrus.FieldLogger,
) *BuildService {
	if runStore == nil {
		runStore = new(store.NopRunStore)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &BuildService{env: env, secrets: secrets, runStore: runStore, logger: logger}
}

func (s *BuildService) pipeline(configuration settings.Configuration) *build.Pipeline {
	env := s.env
	if configuration != "" {
		env.Configuration = configuration
	}
	return build.New(env)
}

func (s *BuildService) Targets() ([]target.Target, error) {
	g, err := s.pipeline("").Graph()
	if err != nil {
		return nil, err
	}
	return g.Targets(), nil
}

// Plan orders the requested targets without recording anything. No targets
// means the definition's default target.
func (s *BuildService) Plan(req RunRequest) (target.Plan, error) {
	p := s.pipeline(req.Configuration)
	g, err := p.Graph()
	if err != nil {
		return target.Plan{}, err
	}
	return g.Plan(requested(p, req), req.Skip)
}

func requested(p *build.Pipeline, req RunRequest) []string {
	if len(req.Targets) == 0 {
		return []string{p.DefaultTarget()}
	}
	return req.Targets
}

func (s *BuildService) Prepare(ctx context.Context, req RunRequest) (*PreparedRun, error) {
	p := s.pipeline(req.Configuration)
	g, err := p.Graph()
	if err != nil {
		return nil, err
	}
	plan, err := g.Plan(requested(p, req), req.Skip)
	if err != nil {
		return nil, err
	}
	configuration := req.Configuration
	if configuration == "" {
		configuration = s.env.Configuration
	}
	run, err := s.runStore.CreateRun(ctx, store.NewRun{
		UUID:          uuid.NewString(),
		Targets:       plan.Invoked,
		Skip:          plan.Skipped,
		Configuration: configuration.String(),
		TriggeredBy:   req.TriggeredBy,
	})
	if err != nil {
		return nil, err
	}
	return &PreparedRun{Run: run, Plan: plan, pipeline: p, graph: g}, nil
}

// Execute runs a prepared plan and records its outcome. History write
// failures are logged; they never fail the build.
func (s *BuildService) Execute(ctx context.Context, pr *PreparedRun) *target.Report {
	logger := s.logger.WithField("run", pr.Run.UUID)
	storeCtx := context.WithoutCancel(ctx)

	startedOn := time.Now().UTC()
	pr.Run.Status = store.StatusRunning
	pr.Run.StartedOn = &startedOn
	if err := s.runStore.UpdateRunStartedOn(storeCtx, pr.Run.RunID, startedOn); err != nil {
		logger.WithError(err).Warn("err updating run started on")
	}

	position := 0
	runner := &target.Runner{
		Graph:        pr.graph,
		ArtifactsDir: pr.pipeline.Layout().ArtifactsDir,
		Secrets:      s.secrets,
		Logger:       logger,
		OnResult: func(res *target.Result) {
			tr := &store.TargetResult{
				TargetResultRunID: pr.Run.RunID,
				Position:          position,
				Name:              res.Name,
				Status:            string(res.Status),
				DurationMS:        res.Duration.Milliseconds(),
			}
			position++
			if res.Err != nil {
				tr.Error = util.AsPtr(res.Err.Error())
			}
			if err := s.runStore.CreateTargetResult(storeCtx, tr); err != nil {
				logger.WithError(err).WithField("target", res.Name).Warn("err recording target result")
			}
		},
	}
	report := runner.Run(ctx, pr.Plan)

	status := store.StatusFailed
	switch {
	case report.Cancelled:
		status = store.StatusCancelled
	case report.Succeeded():
		status = store.StatusPassed
	}
	s.Finish(pr, status, int64(report.ExitCode()))
	return report
}

// Finish records the final status of a run.
func (s *BuildService) Finish(pr *PreparedRun, status store.RunStatus, exitCode int64) {
	endedOn := time.Now().UTC()
	pr.Run.Status = status
	pr.Run.ExitCode = &exitCode
	pr.Run.EndedOn = &endedOn
	if err := s.runStore.UpdateRunEndedOn(context.Background(), pr.Run.RunID, status, exitCode, endedOn); err != nil {
		s.logger.WithError(err).WithField("run", pr.Run.UUID).Warn("err updating run ended on")
	}
}

func (s *BuildService) Run(ctx context.Context, req RunRequest) (*store.Run, *target.Report, error) {
	pr, err := s.Prepare(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	report := s.Execute(ctx, pr)
	return pr.Run, report, nil
}

func (s *BuildService) GetRunByUUID(ctx context.Context, id string) (*store.Run, []store.TargetResult, error) {
	run, err := s.runStore.ReadRunByUUID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	results, err := s.runStore.ListTargetResults(ctx, run.RunID)
	if err != nil {
		return nil, nil, err
	}
	return run, results, nil
}

func (s *BuildService) ListLatestRuns(ctx context.Context, limit int64) ([]store.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.runStore.ListLatestRuns(ctx, limit)
}

// IsPlanError reports whether err came from an invalid run request.
func IsPlanError(err error) bool {
	return errors.Is(err, target.ErrUnknownTarget) || errors.Is(err, target.ErrInvalidGraph)
}
