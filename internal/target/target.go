// Package target declares build targets, orders them into a plan and runs
// the plan.
package target

import (
	"context"

	"github.com/haatos/simple-build/internal/settings"
	"github.com/haatos/simple-build/internal/util"
	"github.com/sirupsen/logrus"
)

type Action func(ctx context.Context, tc *Context) error

type Target struct {
	Name        string
	Description string
	// DependsOn targets are pulled into the plan and must succeed first.
	DependsOn []string
	// Before orders this target ahead of the named ones when both are
	// planned. It never pulls anything into the plan.
	Before []string
	// Produces are globs relative to the artifacts dir that must each match
	// at least one file once the action returns.
	Produces []string
	// Requires are secret names resolved right before the action runs.
	Requires          []string
	ContinueOnFailure bool
	Action            Action
}

// Context is handed to a running action.
type Context struct {
	Target       string
	ArtifactsDir string
	Logger       logrus.FieldLogger

	plan         Plan
	requirements map[string]string
	secrets      settings.SecretResolver
	skipProduces bool
}

// Invoked reports whether name was requested explicitly.
func (tc *Context) Invoked(name string) bool {
	return tc.plan.IsInvoked(name)
}

// Planned reports whether name is part of this run and not skipped.
func (tc *Context) Planned(name string) bool {
	return tc.plan.Contains(name) && !tc.plan.IsSkipped(name)
}

// Requirement returns a value resolved from the target's Requires list.
func (tc *Context) Requirement(name string) string {
	return tc.requirements[name]
}

// Secret resolves an optional secret. Missing secrets yield "".
func (tc *Context) Secret(ctx context.Context, name string) (string, error) {
	if v, ok := tc.requirements[name]; ok {
		return v, nil
	}
	if tc.secrets == nil {
		return "", nil
	}
	v, _, err := tc.secrets.Lookup(ctx, name)
	return v, err
}

// Produced lists the artifact files matching pattern.
func (tc *Context) Produced(pattern string) ([]string, error) {
	return util.GlobFiles(tc.ArtifactsDir, pattern)
}

// SkipOutputs waives the Produces check for this execution, for actions
// that legitimately had nothing to do.
func (tc *Context) SkipOutputs() {
	tc.skipProduces = true
}
