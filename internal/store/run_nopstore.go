package store

import (
	"context"
	"sync/atomic"
	"time"
)

// NopRunStore hands out run ids without persisting anything. It backs
// builds started with history disabled.
type NopRunStore struct {
	seq atomic.Int64
}

func (store *NopRunStore) CreateRun(_ context.Context, nr NewRun) (*Run, error) {
	run := &Run{
		RunID:         store.seq.Add(1),
		UUID:          nr.UUID,
		Configuration: nr.Configuration,
		TriggeredBy:   nr.TriggeredBy,
		Status:        StatusQueued,
		CreatedOn:     time.Now().UTC(),
	}
	return run, nil
}

func (*NopRunStore) ReadRunByID(context.Context, int64) (*Run, error) { return nil, ErrHistoryDisabled }
func (*NopRunStore) ReadRunByUUID(context.Context, string) (*Run, error) {
	return nil, ErrHistoryDisabled
}
func (*NopRunStore) UpdateRunStartedOn(context.Context, int64, time.Time) error { return nil }
func (*NopRunStore) UpdateRunEndedOn(context.Context, int64, RunStatus, int64, time.Time) error {
	return nil
}
func (*NopRunStore) CreateTargetResult(context.Context, *TargetResult) error { return nil }
func (*NopRunStore) ListTargetResults(context.Context, int64) ([]TargetResult, error) {
	return nil, ErrHistoryDisabled
}
func (*NopRunStore) ListLatestRuns(context.Context, int64) ([]Run, error) {
	return nil, ErrHistoryDisabled
}
func (*NopRunStore) DeleteRun(context.Context, int64) error { return nil }
