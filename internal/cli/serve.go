package cli

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/haatos/simple-build/internal/handler"
	"github.com/haatos/simple-build/internal/service"
	"github.com/haatos/simple-build/internal/settings"
	"github.com/haatos/simple-build/internal/store"
	"github.com/spf13/cobra"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	var retentionDays int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the trigger API and run scheduled builds",
		Long: `Serve the HTTP trigger API. Runs are queued and executed one at a time.
Requests must carry a key created with 'simplebuild apikey create' in the
X-SimpleBuild-Trigger-Key header. Schedules from the build definition are
enqueued by cron expression.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := opts.app
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			builds, err := a.buildService()
			if err != nil {
				return WrapExitError(ExitCommandError, "unable to start build service", err)
			}
			apiKeys, err := a.apiKeyService()
			if err != nil {
				return WrapExitError(ExitCommandError, "unable to open api key store", err)
			}

			queue := service.NewRunQueue(builds, a.settings.QueueSize, a.logger)
			go queue.Run()
			defer queue.Shutdown()

			scheduler, err := service.NewScheduler()
			if err != nil {
				return err
			}
			defer scheduler.Shutdown()
			if err := service.ScheduleBuilds(scheduler, a.definition.Schedules, queue, a.logger); err != nil {
				return WrapExitError(ExitCommandError, "invalid schedule", err)
			}
			runStore, err := a.runStore()
			if err != nil {
				return err
			}
			if rs, ok := runStore.(*store.RunSQLStore); ok {
				keep := time.Duration(retentionDays) * 24 * time.Hour
				if err := rs.ScheduleDailyCleanUp(scheduler, keep, a.logger); err != nil {
					return err
				}
			}
			scheduler.Start()

			e := handler.NewServer(builds, queue, apiKeys, a.logger)
			a.logger.WithField("port", a.settings.Port).WithField("schedules", len(a.definition.Schedules)).Info("serving trigger api")
			return handler.GracefulShutdown(ctx, e, a.settings.Port)
		},
	}
	cmd.Flags().String(settings.KeyPort, ":8080", "listen address")
	cmd.Flags().Int(settings.KeyQueueSize, 3, "number of runs that may wait in the queue")
	cmd.Flags().IntVar(&retentionDays, "retention-days", 30, "delete finished runs older than this; 0 keeps everything")
	return cmd
}
