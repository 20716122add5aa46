package main

import (
	"fmt"
	"os"

	"energy-debates/internal/app"
	"energy-debates/internal/audio"
	"energy-debates/internal/content"
	"energy-debates/internal/db"
	"energy-debates/internal/models"
	"energy-debates/internal/scriptfmt"

	"github.com/spf13/cobra"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := ctx.database(); err != nil {
				return err
			}
			return db.Migrate(cmd.Context())
		},
	}
}

func newIngestCommand(ctx *commandContext) *cobra.Command {
	var title string
	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Store a markdown or HTML blog post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read blog: %w", err)
			}
			blog, err := content.Extract(args[0], raw)
			if err != nil {
				return err
			}
			if title != "" {
				blog.Title = title
			}

			if _, err := ctx.database(); err != nil {
				return err
			}
			if err := db.CreateBlog(cmd.Context(), blog); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored blog %s (%q)\n", blog.ID, blog.Title)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Override the extracted title")
	return cmd
}

type generateFlags struct {
	duration string
	humor    int
	focus    []string
	points   []string
}

func (f generateFlags) settings() (models.GenerationSettings, error) {
	settings := models.GenerationSettings{
		Duration:            models.Duration(f.duration),
		HumorLevel:          f.humor,
		FocusAreas:          f.focus,
		CustomTalkingPoints: f.points,
	}
	return settings, settings.Validate()
}

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	defaults := models.DefaultGenerationSettings()
	flags := generateFlags{}
	cmd := &cobra.Command{
		Use:   "generate <blog-id>",
		Short: "Generate a debate episode script for a stored blog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := flags.settings()
			if err != nil {
				return err
			}
			cfg, err := ctx.database()
			if err != nil {
				return err
			}
			episode, err := app.NewScriptService(cfg).GenerateEpisode(cmd.Context(), args[0], settings)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created episode %s: %s (~%d min)\n", episode.ID, episode.Title, episode.DurationEstimate)
			return nil
		},
	}
	cmd.Flags().StringVar(&flags.duration, "duration", string(defaults.Duration), "short, medium or long")
	cmd.Flags().IntVar(&flags.humor, "humor", defaults.HumorLevel, "Humor level from 1 to 5")
	cmd.Flags().StringSliceVar(&flags.focus, "focus", nil, "Insight categories to emphasize")
	cmd.Flags().StringArrayVar(&flags.points, "point", nil, "Custom talking point (repeatable)")
	return cmd
}

func newMetadataCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "metadata <episode-id>",
		Short: "Write publishing copy and chapters for an episode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.database()
			if err != nil {
				return err
			}
			meta, err := app.NewPublisher(cfg).GenerateMetadata(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd, meta)
		},
	}
}

func newSegmentsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "segments <script-file>",
		Short: "Print the speaker turns a script would be voiced as",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read script: %w", err)
			}
			return writeJSON(cmd, audio.Collect(string(raw)))
		},
	}
}

func newExportCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "export <script-file>",
		Short: "Render a script as plain text or teleprompter layout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read script: %w", err)
			}
			out, err := scriptfmt.Export(string(raw), format)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", scriptfmt.FormatText, "txt or teleprompter")
	return cmd
}
