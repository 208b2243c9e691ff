package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ibebio/herb-transcribe/internal/config"
)

type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "herb-transcribe",
		Short: "Transcribe herbarium specimen labels with vision LLMs",
		Long: `herb-transcribe turns a folder of photographed herbarium labels into
structured transcriptions and correctly oriented image archives.

Each photo is rotated into its two plausible upright orientations, both
are sent to a vision LLM, and the more complete transcription wins.
Completed images are marked so interrupted runs resume where they stopped.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to TOML config file (default ~/.config/herb-transcribe/config.toml)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "Log format: text or json")

	cmd.AddCommand(newTranscribeCmd(opts))
	cmd.AddCommand(newStatusCmd(opts))
	cmd.AddCommand(newExportCmd(opts))
	cmd.AddCommand(newGeocodeCmd(opts))
	cmd.AddCommand(newEvaluateCmd(opts))

	return cmd
}

// load reads the configuration, applies the global flags and installs the
// default logger.
func (o *rootOptions) load(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = o.logLevel
	}
	if cmd.Flags().Changed("log-format") {
		cfg.Logging.Format = o.logFormat
	}
	if err := setupLogging(cfg.Logging); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupLogging(l config.Logging) error {
	var level slog.Level
	if l.Level != "" {
		if err := level.UnmarshalText([]byte(l.Level)); err != nil {
			return fmt.Errorf("invalid log level %q: %w", l.Level, err)
		}
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch l.Format {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	case "", "text":
		handler = slog.NewTextHandler(os.Stderr, handlerOpts)
	default:
		return fmt.Errorf("unsupported log format: %q", l.Format)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}
