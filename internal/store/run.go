package store

import (
	"context"
	"strings"
	"time"
)

type RunStatus string

const (
	StatusQueued    RunStatus = "queued"
	StatusRunning   RunStatus = "running"
	StatusCancelled RunStatus = "cancelled"
	StatusFailed    RunStatus = "failed"
	StatusPassed    RunStatus = "passed"
)

func (s RunStatus) Finished() bool {
	return s == StatusCancelled || s == StatusFailed || s == StatusPassed
}

// Run is one recorded invocation of the target graph. Targets and Skip are
// stored space separated.
type Run struct {
	RunID         int64      `db:"run_id" json:"-"`
	UUID          string     `db:"uuid" json:"uuid"`
	Targets       string     `db:"targets" json:"-"`
	Skip          string     `db:"skip" json:"-"`
	Configuration string     `db:"configuration" json:"configuration"`
	TriggeredBy   string     `db:"triggered_by" json:"triggered_by"`
	Status        RunStatus  `db:"status" json:"status"`
	ExitCode      *int64     `db:"exit_code" json:"exit_code,omitempty"`
	CreatedOn     time.Time  `db:"created_on" json:"created_on"`
	StartedOn     *time.Time `db:"started_on" json:"started_on,omitempty"`
	EndedOn       *time.Time `db:"ended_on" json:"ended_on,omitempty"`
}

func (r *Run) TargetNames() []string {
	return strings.Fields(r.Targets)
}

func (r *Run) SkipNames() []string {
	return strings.Fields(r.Skip)
}

type TargetResult struct {
	TargetResultID    int64   `db:"target_result_id" json:"-"`
	TargetResultRunID int64   `db:"target_result_run_id" json:"-"`
	Position          int     `db:"position" json:"-"`
	Name              string  `db:"name" json:"name"`
	Status            string  `db:"status" json:"status"`
	DurationMS        int64   `db:"duration_ms" json:"duration_ms"`
	Error             *string `db:"error" json:"error,omitempty"`
}

type NewRun struct {
	UUID          string
	Targets       []string
	Skip          []string
	Configuration string
	TriggeredBy   string
}

type RunStore interface {
	CreateRun(context.Context, NewRun) (*Run, error)
	ReadRunByID(context.Context, int64) (*Run, error)
	ReadRunByUUID(context.Context, string) (*Run, error)
	UpdateRunStartedOn(context.Context, int64, time.Time) error
	UpdateRunEndedOn(context.Context, int64, RunStatus, int64, time.Time) error
	CreateTargetResult(context.Context, *TargetResult) error
	ListTargetResults(context.Context, int64) ([]TargetResult, error)
	ListLatestRuns(context.Context, int64) ([]Run, error)
	DeleteRun(context.Context, int64) error
}
