package store

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/sirupsen/logrus"
)

func (store *RunSQLStore) DeleteRunsEndedBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := store.db.ExecContext(ctx, "delete from runs where ended_on < $1", before.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ScheduleDailyCleanUp removes finished runs older than keep every night at
// midnight. A zero keep disables the job.
func (store *RunSQLStore) ScheduleDailyCleanUp(
	s gocron.Scheduler,
	keep time.Duration,
	logger logrus.FieldLogger,
) error {
	if keep <= 0 {
		return nil
	}
	_, err := s.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(0, 0, 0))),
		gocron.NewTask(func() {
			n, err := store.DeleteRunsEndedBefore(context.Background(), time.Now().Add(-keep))
			if err != nil {
				logger.WithError(err).Error("err deleting expired runs")
				return
			}
			logger.WithField("deleted", n).Info("expired runs deleted")
		}),
		gocron.WithName("run-retention"),
	)
	return err
}
