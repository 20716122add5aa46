package main

import (
	"log"

	"energy-debates/internal/config"
	"energy-debates/pkg/tasks"

	"github.com/hibiken/asynq"
)

// CommitSHA is set at build time via ldflags
var CommitSHA = "unknown"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		&asynq.SchedulerOpts{},
	)

	task, err := tasks.NewReapStaleJobsTask()
	if err != nil {
		log.Fatalf("could not create task: %v", err)
	}

	// Run every 15 minutes
	_, err = scheduler.Register("@every 15m", task)
	if err != nil {
		log.Fatalf("could not register task: %v", err)
	}

	log.Printf("Scheduler starting (commit: %s)", CommitSHA)
	if err := scheduler.Run(); err != nil {
		log.Fatalf("could not run scheduler: %v", err)
	}
}
