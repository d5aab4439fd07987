package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/georgysavva/scany/v2/sqlscan"
)

type RunSQLStore struct {
	db *sql.DB
}

func NewRunSQLStore(db *sql.DB) *RunSQLStore {
	return &RunSQLStore{db}
}

func (store *RunSQLStore) CreateRun(ctx context.Context, nr NewRun) (*Run, error) {
	r := &Run{
		UUID:          nr.UUID,
		Targets:       strings.Join(nr.Targets, " "),
		Skip:          strings.Join(nr.Skip, " "),
		Configuration: nr.Configuration,
		TriggeredBy:   nr.TriggeredBy,
		Status:        StatusQueued,
	}
	query := `insert into runs (
		uuid,
		targets,
		skip,
		configuration,
		triggered_by,
		status
	)
	values ($1, $2, $3, $4, $5, $6)
	returning run_id, created_on`
	if err := sqlscan.Get(
		ctx, store.db, r, query,
		r.UUID, r.Targets, r.Skip, r.Configuration, r.TriggeredBy, r.Status,
	); err != nil {
		return nil, err
	}
	return r, nil
}

func (store *RunSQLStore) ReadRunByID(ctx context.Context, id int64) (*Run, error) {
	r := new(Run)
	query := "select * from runs where run_id = $1"
	if err := sqlscan.Get(ctx, store.db, r, query, id); err != nil {
		return nil, err
	}
	return r, nil
}

func (store *RunSQLStore) ReadRunByUUID(ctx context.Context, uuid string) (*Run, error) {
	r := new(Run)
	query := "select * from runs where uuid = $1"
	if err := sqlscan.Get(ctx, store.db, r, query, uuid); err != nil {
		return nil, err
	}
	return r, nil
}

func (store *RunSQLStore) UpdateRunStartedOn(ctx context.Context, id int64, startedOn time.Time) error {
	query := `update runs
	set status = $1,
		started_on = $2
	where run_id = $3`
	return execOne(ctx, store.db, query, StatusRunning, startedOn.UTC(), id)
}

func (store *RunSQLStore) UpdateRunEndedOn(
	ctx context.Context,
	id int64,
	status RunStatus,
	exitCode int64,
	endedOn time.Time,
) error {
	query := `update runs
	set status = $1,
		exit_code = $2,
		ended_on = $3
	where run_id = $4`
	return execOne(ctx, store.db, query, status, exitCode, endedOn.UTC(), id)
}

func (store *RunSQLStore) CreateTargetResult(ctx context.Context, tr *TargetResult) error {
	query := `insert into target_results (
		target_result_run_id,
		position,
		name,
		status,
		duration_ms,
		error
	)
	values ($1, $2, $3, $4, $5, $6)
	returning target_result_id`
	return sqlscan.Get(
		ctx, store.db, tr, query,
		tr.TargetResultRunID, tr.Position, tr.Name, tr.Status, tr.DurationMS, tr.Error,
	)
}

func (store *RunSQLStore) ListTargetResults(ctx context.Context, runID int64) ([]TargetResult, error) {
	results := make([]TargetResult, 0)
	query := `select * from target_results
	where target_result_run_id = $1
	order by position`
	if err := sqlscan.Select(ctx, store.db, &results, query, runID); err != nil {
		return nil, err
	}
	return results, nil
}

func (store *RunSQLStore) ListLatestRuns(ctx context.Context, limit int64) ([]Run, error) {
	runs := make([]Run, 0)
	query := `select * from runs
	order by run_id desc
	limit $1`
	if err := sqlscan.Select(ctx, store.db, &runs, query, limit); err != nil {
		return nil, err
	}
	return runs, nil
}

func (store *RunSQLStore) DeleteRun(ctx context.Context, id int64) error {
	_, err := store.db.ExecContext(ctx, "delete from runs where run_id = $1", id)
	return err
}

// execOne runs an update that must touch exactly one row.
func execOne(ctx context.Context, db *sql.DB, query string, args ...any) error {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
