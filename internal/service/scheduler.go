package service

import (
	"context"
	"fmt"

	"github.com/go-co-op/gocron/v2"
	"github.com/haatos/simple-build/internal/build"
	"github.com/sirupsen/logrus"
)

func NewScheduler() (gocron.Scheduler, error) {
	return gocron.NewScheduler()
}

// ScheduleBuilds registers one cron job per schedule in the build
// definition. Each firing enqueues a run; a full queue drops that firing.
func ScheduleBuilds(
	s gocron.Scheduler,
	schedules []build.Schedule,
	queue RunEnqueuer,
	logger logrus.FieldLogger,
) error {
	for _, sched := range schedules {
		req := RunRequest{
			Targets:     sched.Targets,
			Skip:        sched.Skip,
			TriggeredBy: "schedule:" + sched.Name,
		}
		log := logger.WithField("schedule", sched.Name)
		if _, err := s.NewJob(
			gocron.CronJob(sched.Cron, false),
			gocron.NewTask(func() {
				run, err := queue.Enqueue(context.Background(), req)
				if err != nil {
					log.WithError(err).Error("err enqueuing scheduled run")
					return
				}
				log.WithField("run", run.UUID).Info("scheduled run enqueued")
			}),
			gocron.WithName(sched.Name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		); err != nil {
			return fmt.Errorf("err scheduling %s (%q): %w", sched.Name, sched.Cron, err)
		}
	}
	return nil
}
