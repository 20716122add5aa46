package main

import (
	"log"
	"time"

	"energy-debates/internal/app"
	"energy-debates/internal/config"
	"energy-debates/internal/db"
	"energy-debates/internal/storage"
	"energy-debates/internal/worker"
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

	db.InitDB(cfg.DatabaseURL)

	blobs, err := storage.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		asynq.Config{
			// each audio job already fans out to SYNTHESIS_WORKERS requests
			Concurrency: 2,
			Queues: map[string]int{
				"audio":   2,
				"default": 1,
			},
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				delay := time.Minute
				for i := 0; i < n && delay < time.Hour; i++ {
					delay *= 2
				}
				delay = min(delay, time.Hour)
				log.Printf("Task %s failed %d times, retrying in %v", task.Type(), n+1, delay)
				return delay
			},
		},
	)

	mux := asynq.NewServeMux()
	taskHandler := worker.NewTaskHandler(app.NewAudioRunner(cfg, blobs), cfg.StaleJobAfter)

	mux.HandleFunc(tasks.TypeGenerateAudio, taskHandler.HandleGenerateAudioTask)
	mux.HandleFunc(tasks.TypeReapStaleJobs, taskHandler.HandleReapStaleJobsTask)

	log.Printf("Worker starting (commit: %s)", CommitSHA)
	if err := srv.Run(mux); err != nil {
		log.Fatalf("could not run server: %v", err)
	}
}
