package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ibebio/herb-transcribe/internal/config"
	"github.com/ibebio/herb-transcribe/internal/orientation"
	"github.com/ibebio/herb-transcribe/internal/pipeline"
	"github.com/ibebio/herb-transcribe/internal/report"
	"github.com/ibebio/herb-transcribe/internal/state"
	"github.com/ibebio/herb-transcribe/internal/transcription"
)

type transcribeOptions struct {
	processedDir      string
	transcriptionsDir string
	orientatedDir     string
	stateDB           string
	override          bool
	provider          string
	model             string
	timeout           time.Duration
	concurrency       int
	watch             bool
	reportPath        string
}

func newTranscribeCmd(root *rootOptions) *cobra.Command {
	return transcribeCommand(root, &transcribeOptions{})
}

func transcribeCommand(root *rootOptions, opts *transcribeOptions) *cobra.Command {
	defaults := config.Default()

	cmd := &cobra.Command{
		Use:   "transcribe INPUT_DIR",
		Short: "Transcribe every label image in a directory",
		Long: `Processes every .jpg and .png image directly inside INPUT_DIR.

For each image two oriented crops are transcribed, the more complete
transcription is kept, and three artifacts are written: the transcription
JSON, the full-size oriented image and the cropped oriented image. A
completion marker is written last; marked images are skipped on later
runs unless --override is set.`,
		Example: `  # Transcribe a folder with OpenAI
  herb-transcribe transcribe ./photos

  # Use a local Ollama model and keep watching for new photos
  herb-transcribe transcribe ./photos --provider ollama --watch

  # Reprocess everything and write a YAML run report
  herb-transcribe transcribe ./photos --override --report runs/latest.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load(cmd)
			if err != nil {
				return err
			}
			opts.apply(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runTranscribe(cmd, cfg, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.processedDir, "processed-images-dir", defaults.Paths.ProcessedImagesDir, "Directory for candidate images and completion markers")
	cmd.Flags().StringVar(&opts.transcriptionsDir, "transcriptions-dir", defaults.Paths.TranscriptionsDir, "Directory for transcription JSON files")
	cmd.Flags().StringVar(&opts.orientatedDir, "orientated-images-dir", defaults.Paths.OrientatedImagesDir, "Directory for full-size oriented images")
	cmd.Flags().StringVar(&opts.stateDB, "state-db", "", "Path to the state journal (default <processed-images-dir>/state.db)")
	cmd.Flags().BoolVar(&opts.override, "override", false, "Reprocess images that already have a completion marker")
	cmd.Flags().StringVar(&opts.provider, "provider", defaults.Extraction.Provider, "Extraction provider: openai, ollama or gemini")
	cmd.Flags().StringVar(&opts.model, "model", "", "Model name (default depends on provider)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", time.Duration(defaults.Extraction.TimeoutSeconds)*time.Second, "Timeout for a single extraction call")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", defaults.Pipeline.Concurrency, "Number of images processed in parallel")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "Keep watching INPUT_DIR for new images after the run")
	cmd.Flags().StringVar(&opts.reportPath, "report", "", "Write a YAML run report to this file")

	return cmd
}

// apply copies explicitly set flags over the loaded configuration.
func (o *transcribeOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("processed-images-dir") {
		cfg.Paths.ProcessedImagesDir = o.processedDir
	}
	if flags.Changed("transcriptions-dir") {
		cfg.Paths.TranscriptionsDir = o.transcriptionsDir
	}
	if flags.Changed("orientated-images-dir") {
		cfg.Paths.OrientatedImagesDir = o.orientatedDir
	}
	if flags.Changed("state-db") {
		cfg.Paths.StateDB = o.stateDB
	}
	if flags.Changed("override") {
		cfg.Pipeline.Override = o.override
	}
	if flags.Changed("provider") {
		cfg.Extraction.Provider = o.provider
	}
	if flags.Changed("model") {
		cfg.Extraction.Model = o.model
	}
	if flags.Changed("timeout") {
		cfg.Extraction.TimeoutSeconds = timeoutSeconds(o.timeout)
	}
	if flags.Changed("concurrency") {
		cfg.Pipeline.Concurrency = o.concurrency
	}
}

// timeoutSeconds converts a flag duration to the whole seconds kept in the
// configuration, rounding a positive remainder up so 500ms becomes 1s.
func timeoutSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}

func runTranscribe(cmd *cobra.Command, cfg *config.Config, opts *transcribeOptions, inputDir string) error {
	info, err := os.Stat(inputDir)
	if err != nil {
		return fmt.Errorf("failed to read input directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("provided path %s is not a directory", inputDir)
	}

	slog.Info("Starting transcription",
		"input", inputDir,
		"provider", cfg.Extraction.Provider,
		"model", cfg.Model(),
		"processed_images_dir", cfg.Paths.ProcessedImagesDir,
		"transcriptions_dir", cfg.Paths.TranscriptionsDir,
		"orientated_images_dir", cfg.Paths.OrientatedImagesDir,
		"override", cfg.Pipeline.Override)

	client, err := transcription.NewClientFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("failed to create extraction client: %w", err)
	}

	journal, err := state.Open(cfg.StateDBPath())
	if err != nil {
		return fmt.Errorf("failed to open state journal: %w", err)
	}
	defer journal.Close()

	gen := orientation.NewGenerator(cfg.Paths.ProcessedImagesDir, orientation.WithJPEGQuality(cfg.Pipeline.JPEGQuality))
	ctrl, err := pipeline.New(pipeline.Config{
		ProcessedImagesDir:     cfg.Paths.ProcessedImagesDir,
		TranscriptionsDir:      cfg.Paths.TranscriptionsDir,
		OrientatedImagesDir:    cfg.Paths.OrientatedImagesDir,
		ProcessedOrientatedDir: cfg.ProcessedOrientatedDir(),
		Override:               cfg.Pipeline.Override,
		Concurrency:            cfg.Pipeline.Concurrency,
		WatchDelay:             time.Duration(cfg.Pipeline.WatchDelayMS) * time.Millisecond,
	}, gen, client, pipeline.WithJournal(journal))
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	summary, err := ctrl.Run(ctx, inputDir)
	if err != nil {
		return err
	}
	if err := report.WriteSummary(cmd.OutOrStdout(), summary); err != nil {
		return err
	}

	runCfg := report.RunConfig{
		Provider:    cfg.Extraction.Provider,
		Model:       cfg.Model(),
		InputDir:    inputDir,
		Override:    cfg.Pipeline.Override,
		Concurrency: cfg.Pipeline.Concurrency,
	}
	if opts.reportPath != "" {
		if err := report.SaveYAML(report.Build(summary, runCfg), opts.reportPath); err != nil {
			return err
		}
		slog.Info("Run report saved", "path", opts.reportPath)
	}

	runErr := summary.Err()
	if opts.watch {
		watched, err := ctrl.Watch(ctx, inputDir)
		if err != nil {
			return errors.Join(runErr, err)
		}
		if err := report.WriteSummary(cmd.OutOrStdout(), watched); err != nil {
			return err
		}
		runErr = errors.Join(runErr, watched.Err())
	}
	return runErr
}
