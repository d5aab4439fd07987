package target

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/haatos/simple-build/internal/settings"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type exitCodeError struct{ code int }

func (e *exitCodeError) Error() string { return "tool failed" }
func (e *exitCodeError) ExitCode() int { return e.code }

type recorder struct {
	order []string
}

func (r *recorder) action(err error) Action {
	return func(_ context.Context, tc *Context) error {
		r.order = append(r.order, tc.Target)
		return err
	}
}

func quietLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newRunner(t *testing.T, env map[string]string, targets ...Target) *Runner {
	t.Helper()
	g, err := NewGraph(targets...)
	require.NoError(t, err)
	return &Runner{
		Graph:        g,
		ArtifactsDir: t.TempDir(),
		Secrets: settings.NewEnvSecretsFrom(func(k string) (string, bool) {
			v, ok := env[k]
			return v, ok
		}),
		Logger: quietLogger(),
	}
}

func statuses(report *Report) map[string]Status {
	out := make(map[string]Status, len(report.Results))
	for _, res := range report.Results {
		out[res.Name] = res.Status
	}
	return out
}

func TestRunner_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("success - runs the plan in order exactly once", func(t *testing.T) {
		rec := &recorder{}
		var reported []string
		r := newRunner(t, nil,
			Target{Name: "restore", Action: rec.action(nil)},
			Target{Name: "compile", DependsOn: []string{"restore"}, Action: rec.action(nil)},
			Target{Name: "test", DependsOn: []string{"compile", "restore"}, Action: rec.action(nil)},
		)
		r.OnResult = func(res *Result) { reported = append(reported, res.Name) }
		plan, err := r.Graph.Plan([]string{"test"}, nil)
		require.NoError(t, err)

		report := r.Run(ctx, plan)

		assert.True(t, report.Succeeded())
		assert.Equal(t, 0, report.ExitCode())
		assert.NoError(t, report.Err())
		assert.Equal(t, []string{"restore", "compile", "test"}, rec.order)
		assert.Equal(t, []string{"restore", "compile", "test"}, reported)
	})

	t.Run("success - skipped target lets dependents run", func(t *testing.T) {
		rec := &recorder{}
		r := newRunner(t, nil,
			Target{Name: "restore", Action: rec.action(errors.New("should not run"))},
			Target{Name: "compile", DependsOn: []string{"restore"}, Action: rec.action(nil)},
		)
		plan, err := r.Graph.Plan([]string{"compile"}, []string{"restore"})
		require.NoError(t, err)

		report := r.Run(ctx, plan)

		assert.True(t, report.Succeeded())
		assert.Equal(t, []string{"compile"}, rec.order)
		assert.Equal(t, StatusSkipped, report.Result("restore").Status)
	})

	t.Run("failure - tool exit code aborts remaining targets", func(t *testing.T) {
		rec := &recorder{}
		r := newRunner(t, nil,
			Target{Name: "restore", Action: rec.action(nil)},
			Target{Name: "compile", DependsOn: []string{"restore"}, Action: rec.action(&exitCodeError{code: 3})},
			Target{Name: "analysis", DependsOn: []string{"restore"}, Action: rec.action(nil)},
		)
		plan, err := r.Graph.Plan([]string{"compile", "analysis"}, nil)
		require.NoError(t, err)

		report := r.Run(ctx, plan)

		assert.False(t, report.Succeeded())
		assert.Equal(t, 3, report.ExitCode())
		assert.Equal(t, []string{"restore", "compile"}, rec.order)
		assert.Equal(t, StatusNotRun, report.Result("analysis").Status)
		assert.ErrorIs(t, report.Result("analysis").Err, ErrAborted)
		assert.Len(t, report.Failed(), 1)
	})

	t.Run("failure - plain error exits with one", func(t *testing.T) {
		r := newRunner(t, nil, Target{Name: "restore", Action: (&recorder{}).action(errors.New("boom"))})
		plan, err := r.Graph.Plan([]string{"restore"}, nil)
		require.NoError(t, err)

		report := r.Run(ctx, plan)

		assert.Equal(t, 1, report.ExitCode())
	})

	t.Run("failure - missing secret only blocks dependents", func(t *testing.T) {
		rec := &recorder{}
		r := newRunner(t, map[string]string{settings.NuGetSourceURL: "https://nuget.example.test"},
			Target{Name: "restore", Action: rec.action(nil)},
			Target{
				Name:      "nuget-push",
				DependsOn: []string{"restore"},
				Requires:  []string{settings.NuGetSourceURL, settings.NuGetAPIKey},
				Action:    rec.action(nil),
			},
			Target{Name: "release", DependsOn: []string{"nuget-push"}, Action: rec.action(nil)},
			Target{Name: "publish", DependsOn: []string{"restore"}, Action: rec.action(nil)},
		)
		plan, err := r.Graph.Plan([]string{"release", "publish"}, nil)
		require.NoError(t, err)

		report := r.Run(ctx, plan)

		assert.Equal(t, []string{"restore", "publish"}, rec.order)
		assert.Equal(t, map[string]Status{
			"restore":    StatusSucceeded,
			"nuget-push": StatusFailed,
			"release":    StatusNotRun,
			"publish":    StatusSucceeded,
		}, statuses(report))

		var missing *settings.MissingSecretError
		require.ErrorAs(t, report.Result("nuget-push").Err, &missing)
		assert.Equal(t, settings.NuGetAPIKey, missing.Name)
		var dep *DependencyError
		require.ErrorAs(t, report.Result("release").Err, &dep)
		assert.Equal(t, "nuget-push", dep.Dependency)
		assert.Equal(t, 1, report.ExitCode())
	})

	t.Run("success - requirements are handed to the action", func(t *testing.T) {
		var got string
		r := newRunner(t, map[string]string{settings.OctopusAPIKey: "API-KEY"},
			Target{
				Name:     "octo-push",
				Requires: []string{settings.OctopusAPIKey},
				Action: func(_ context.Context, tc *Context) error {
					got = tc.Requirement(settings.OctopusAPIKey)
					return nil
				},
			},
		)
		plan, err := r.Graph.Plan([]string{"octo-push"}, nil)
		require.NoError(t, err)

		report := r.Run(ctx, plan)

		assert.True(t, report.Succeeded())
		assert.Equal(t, "API-KEY", got)
	})

	t.Run("failure - continue on failure keeps independent targets going", func(t *testing.T) {
		rec := &recorder{}
		r := newRunner(t, nil,
			Target{Name: "pack", Action: rec.action(nil)},
			Target{Name: "push", DependsOn: []string{"pack"}, ContinueOnFailure: true, Action: rec.action(errors.New("partial"))},
			Target{Name: "announce", DependsOn: []string{"push"}, Action: rec.action(nil)},
			Target{Name: "publish", DependsOn: []string{"pack"}, Action: rec.action(nil)},
		)
		plan, err := r.Graph.Plan([]string{"announce", "publish"}, nil)
		require.NoError(t, err)

		report := r.Run(ctx, plan)

		assert.Equal(t, []string{"pack", "push", "publish"}, rec.order)
		assert.Equal(t, StatusNotRun, report.Result("announce").Status)
		assert.Equal(t, StatusSucceeded, report.Result("publish").Status)
	})

	t.Run("failure - declared artifact missing", func(t *testing.T) {
		r := newRunner(t, nil,
			Target{Name: "test", Produces: []string{"*.trx"}, Action: (&recorder{}).action(nil)},
		)
		plan, err := r.Graph.Plan([]string{"test"}, nil)
		require.NoError(t, err)

		report := r.Run(ctx, plan)

		var artifactErr *ArtifactError
		require.ErrorAs(t, report.Result("test").Err, &artifactErr)
		assert.Equal(t, "*.trx", artifactErr.Pattern)
	})

	t.Run("success - action can waive declared artifacts", func(t *testing.T) {
		r := newRunner(t, nil,
			Target{Name: "octo-pack", Produces: []string{"octo/*.nupkg"}, Action: func(_ context.Context, tc *Context) error {
				tc.SkipOutputs()
				return nil
			}},
		)
		plan, err := r.Graph.Plan([]string{"octo-pack"}, nil)
		require.NoError(t, err)

		report := r.Run(ctx, plan)

		assert.True(t, report.Succeeded())
	})

	t.Run("success - declared artifact present and discoverable", func(t *testing.T) {
		var produced []string
		r := newRunner(t, nil)
		g, err := NewGraph(
			Target{
				Name:     "pack",
				Produces: []string{"nuget/*.nupkg"},
				Action: func(_ context.Context, tc *Context) error {
					dir := filepath.Join(tc.ArtifactsDir, "nuget")
					if err := os.MkdirAll(dir, os.ModePerm); err != nil {
						return err
					}
					return os.WriteFile(filepath.Join(dir, "Api.1.0.0.nupkg"), nil, 0o644)
				},
			},
			Target{
				Name:      "push",
				DependsOn: []string{"pack"},
				Action: func(_ context.Context, tc *Context) (err error) {
					produced, err = tc.Produced("nuget/*.nupkg")
					return err
				},
			},
		)
		require.NoError(t, err)
		r.Graph = g
		plan, err := g.Plan([]string{"push"}, nil)
		require.NoError(t, err)

		report := r.Run(ctx, plan)

		assert.True(t, report.Succeeded())
		assert.Equal(t, []string{filepath.Join(r.ArtifactsDir, "nuget", "Api.1.0.0.nupkg")}, produced)
	})

	t.Run("failure - cancellation stops the run", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		rec := &recorder{}
		r := newRunner(t, nil,
			Target{Name: "restore", Action: func(_ context.Context, tc *Context) error {
				cancel()
				return nil
			}},
			Target{Name: "compile", DependsOn: []string{"restore"}, Action: rec.action(nil)},
		)
		plan, err := r.Graph.Plan([]string{"compile"}, nil)
		require.NoError(t, err)

		report := r.Run(cctx, plan)

		assert.True(t, report.Cancelled)
		assert.Empty(t, rec.order)
		assert.ErrorIs(t, report.Result("compile").Err, context.Canceled)
		assert.NotEqual(t, 0, report.ExitCode())
	})
}

func TestContext_InvokedAndPlanned(t *testing.T) {
	var invoked, planned, skippedPlanned bool
	r := newRunner(t, nil,
		Target{Name: "restore"},
		Target{Name: "compile", DependsOn: []string{"restore"}},
		Target{Name: "test", DependsOn: []string{"compile"}, Action: func(_ context.Context, tc *Context) error {
			invoked = tc.Invoked("compile")
			planned = tc.Planned("compile")
			skippedPlanned = tc.Planned("restore")
			return nil
		}},
	)
	plan, err := r.Graph.Plan([]string{"test"}, []string{"restore"})
	require.NoError(t, err)

	r.Run(context.Background(), plan)

	assert.False(t, invoked)
	assert.True(t, planned)
	assert.False(t, skippedPlanned)
}

func TestReport_WriteSummary(t *testing.T) {
	color.NoColor = true
	report := &Report{Results: []*Result{
		{Name: "restore", Status: StatusSucceeded},
		{Name: "nuget-push", Status: StatusFailed, Err: errors.New("NUGET_API_KEY missing")},
		{Name: "release", Status: StatusNotRun},
	}}

	var buf bytes.Buffer
	require.NoError(t, report.WriteSummary(&buf))

	out := buf.String()
	assert.Contains(t, out, "TARGET")
	assert.Contains(t, out, "nuget-push")
	assert.Contains(t, out, "Build failed")
	assert.Contains(t, out, "nuget-push: NUGET_API_KEY missing")
}

func TestReport_WriteSummaryAlignsColoredStatus(t *testing.T) {
	noColor := color.NoColor
	color.NoColor = false
	t.Cleanup(func() { color.NoColor = noColor })
	report := &Report{Results: []*Result{
		{Name: "restore", Status: StatusSucceeded, Duration: 1200 * time.Millisecond},
		{Name: "compile", Status: StatusFailed, Duration: 3 * time.Second, Err: errors.New("boom")},
		{Name: "test", Status: StatusSkipped},
	}}

	var buf bytes.Buffer
	require.NoError(t, report.WriteSummary(&buf))

	raw := buf.String()
	assert.Contains(t, raw, "\x1b[")
	lines := strings.Split(regexp.MustCompile(`\x1b\[[0-9;]*m`).ReplaceAllString(raw, ""), "\n")
	col := strings.Index(lines[0], "DURATION")
	require.Positive(t, col)
	assert.Equal(t, "1.2s", lines[1][col:])
	assert.Equal(t, "3s", lines[2][col:])
	assert.Equal(t, "skipped", strings.TrimSpace(lines[3][strings.Index(lines[0], "STATUS"):]))
}
