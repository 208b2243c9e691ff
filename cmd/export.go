package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ibebio/herb-transcribe/internal/export"
)

func newExportCmd(root *rootOptions) *cobra.Command {
	var (
		transcriptionsDir string
		format            string
		output            string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export transcriptions into a single tabular file",
		Example: `  herb-transcribe export --output transcriptions.parquet
  herb-transcribe export --format jsonl --output transcriptions.jsonl`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("transcriptions-dir") {
				cfg.Paths.TranscriptionsDir = transcriptionsDir
			}

			rows, err := export.Collect(cfg.Paths.TranscriptionsDir)
			if err != nil {
				return err
			}
			if err := export.Write(rows, output, format); err != nil {
				return err
			}
			slog.Info("Export complete", "rows", len(rows), "format", format, "output", output)
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Exported %d transcriptions to %s\n", len(rows), output)
			return err
		},
	}

	cmd.Flags().StringVar(&transcriptionsDir, "transcriptions-dir", "", "Directory with transcription JSON files")
	cmd.Flags().StringVar(&format, "format", "parquet", "Output format: parquet or jsonl")
	cmd.Flags().StringVar(&output, "output", "", "Output file (required)")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}
