package service

import (
	"context"
	"log"
	"log/slog"

	"github.com/go-co-op/gocron/v2"
)

func NewScheduler() gocron.Scheduler {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		log.Fatal(err)
	}
	return scheduler
}

// SchedulePipelines registers a cron job for every pipeline that declares a
// schedule. Triggered runs go through the same queue as manual ones.
func SchedulePipelines(
	scheduler gocron.Scheduler,
	pipelineService PipelineServicer,
	queue *RunQueue,
) error {
	for _, p := range pipelineService.ListPipelines() {
		if p.Schedule == "" {
			continue
		}
		name := p.Name
		_, err := scheduler.NewJob(
			gocron.CronJob(p.Schedule, false),
			gocron.NewTask(func() {
				run, err := pipelineService.CreateRun(context.Background(), name)
				if err != nil {
					slog.Error("err creating scheduled run", "pipeline", name, "err", err)
					return
				}
				if err := queue.Enqueue(run); err != nil {
					slog.Error("err enqueueing scheduled run", "pipeline", name, "err", err)
				}
			}),
		)
		if err != nil {
			return err
		}
		slog.Info("scheduled pipeline", "pipeline", name, "cron", p.Schedule)
	}
	return nil
}
