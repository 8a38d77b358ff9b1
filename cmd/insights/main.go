package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"lesson-insights-go/internal/config"
	"lesson-insights-go/internal/dashboard"
	"lesson-insights-go/internal/drive"
	"lesson-insights-go/internal/emotion"
	"lesson-insights-go/internal/jobs"
	"lesson-insights-go/internal/logger"
	"lesson-insights-go/internal/media"
	"lesson-insights-go/internal/processor"
	"lesson-insights-go/internal/transcription"
)

func main() {
	_ = godotenv.Load() // loads .env

	log := logger.New()
	log.WithField("service", "lesson-insights-go").Info("starting")

	cfg := config.Load()

	root := &cobra.Command{
		Use:           "insights",
		Short:         "Lesson recording analysis pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		jobCommand(cfg, jobs.DailyJob, "daily", "Process yesterday's lesson recordings"),
		jobCommand(cfg, jobs.WeeklyJob, "weekly", "Aggregate last week's lessons into tutor scores"),
		jobCommand(cfg, jobs.MonthlyJob, "monthly", "Aggregate last month's lessons per tutor"),
		serveCommand(cfg),
	)

	if err := root.Execute(); err != nil {
		log.WithError(err).Error("command failed")
		os.Exit(1)
	}
}

// newRegistry wires the collaborators and registers every job. Clients are
// constructed once here and injected; nothing is a package-level singleton.
func newRegistry(cfg config.Config) *jobs.Registry {
	proc := processor.New(
		drive.New(cfg.DriveBaseURL, cfg.DownloadsDir, cfg.MockDrive),
		media.New(cfg.MediaBaseURL, cfg.AudioDir, cfg.MockMedia),
		transcription.New(cfg.TranscribeBaseURL, cfg.MockTranscribe),
		emotion.New(cfg.LLMGatewayURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.MockLLM),
	)
	runner := jobs.NewRunner(cfg, proc)

	registry := jobs.NewRegistry(cfg.TempDir)
	registry.Register(jobs.DailyJob, func() error { return runner.RunDaily(context.Background()) })
	registry.Register(jobs.WeeklyJob, func() error { return runner.RunWeekly(context.Background()) })
	registry.Register(jobs.MonthlyJob, func() error { return runner.RunMonthly(context.Background()) })
	return registry
}

func jobCommand(cfg config.Config, jobName, use, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return newRegistry(cfg).Run(jobName)
		},
	}
}

func serveCommand(cfg config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the read-only dashboard API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return dashboard.New(cfg, newRegistry(cfg)).Run()
		},
	}
}
