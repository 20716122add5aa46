package main

import (
	"fmt"

	"energy-debates/internal/app"
	"energy-debates/internal/db"
	"energy-debates/internal/models"
	"energy-debates/pkg/tasks"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"
)

func newAudioCommand(ctx *commandContext) *cobra.Command {
	audioCmd := &cobra.Command{
		Use:   "audio",
		Short: "Start and inspect audio jobs",
	}
	audioCmd.AddCommand(newAudioStartCommand(ctx))
	audioCmd.AddCommand(newAudioStatusCommand(ctx))
	return audioCmd
}

func newAudioStartCommand(ctx *commandContext) *cobra.Command {
	var enqueue bool
	cmd := &cobra.Command{
		Use:   "start <episode-id>",
		Short: "Start audio generation for an episode",
		Long: "Start audio generation for an episode. By default the job runs in this process;\n" +
			"with --enqueue it is handed to the worker instead.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.database()
			if err != nil {
				return err
			}
			job, created, err := db.StartAudioJob(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !created {
				fmt.Fprintf(cmd.OutOrStdout(), "Episode already has active job %s (%s, %d%%)\n", job.ID, job.Status, job.Progress)
				return nil
			}

			if enqueue {
				client := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
				defer client.Close()
				task, err := tasks.NewGenerateAudioTask(job.ID)
				if err != nil {
					return err
				}
				if _, err := client.Enqueue(task); err != nil {
					return fmt.Errorf("enqueue audio job %s: %w", job.ID, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued audio job %s\n", job.ID)
				return nil
			}

			blobs, err := ctx.blobs()
			if err != nil {
				return err
			}
			final, err := app.NewAudioRunner(cfg, blobs).Run(cmd.Context(), job.ID)
			if final != nil {
				writeJSON(cmd, final)
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&enqueue, "enqueue", false, "Hand the job to the worker instead of running it here")
	return cmd
}

type jobStatus struct {
	*models.AudioJob
	URL string `json:"url,omitempty"`
}

func newAudioStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show an audio job's status and, once complete, its download URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := ctx.database(); err != nil {
				return err
			}
			job, err := db.GetAudioJob(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := jobStatus{AudioJob: job}
			if job.Status == models.JobComplete && job.OutputPath != nil {
				blobs, err := ctx.blobs()
				if err != nil {
					return err
				}
				if out.URL, err = blobs.URL(cmd.Context(), *job.OutputPath); err != nil {
					return err
				}
			}
			return writeJSON(cmd, out)
		},
	}
}
