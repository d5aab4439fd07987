package target

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidGraph  = errors.New("invalid target graph")
	ErrCycle         = errors.New("dependency cycle")
	ErrUnknownTarget = errors.New("unknown target")
	ErrAborted       = errors.New("aborted after an earlier failure")
)

// MissingRequirementError fails a single target without aborting the run.
type MissingRequirementError struct {
	Target string
	Err    error
}

func (e *MissingRequirementError) Error() string {
	return fmt.Sprintf("target %s: %v", e.Target, e.Err)
}

func (e *MissingRequirementError) Unwrap() error {
	return e.Err
}

type ArtifactError struct {
	Target  string
	Pattern string
}

func (e *ArtifactError) Error() string {
	return fmt.Sprintf("target %s produced no artifact matching %q", e.Target, e.Pattern)
}

// DependencyError marks a target that could not run because a dependency
// did not succeed.
type DependencyError struct {
	Target     string
	Dependency string
	Status     Status
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("target %s not run: dependency %s %s", e.Target, e.Dependency, e.Status)
}
