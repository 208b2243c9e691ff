package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ibebio/herb-transcribe/internal/evaluation"
	"github.com/ibebio/herb-transcribe/internal/report"
)

func newEvaluateCmd(root *rootOptions) *cobra.Command {
	var (
		referencesDir     string
		transcriptionsDir string
		output            string
	)

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score transcriptions against hand-checked reference records",
		Long: `Compare every reference JSON record with the transcription of the same
image and report per-field accuracy. Reference files are matched by image
base name, so IMG_1.json pairs with IMG_1.SRGH_1.json.`,
		Example: `  herb-transcribe evaluate --references ./references
  herb-transcribe evaluate --references ./references --output evaluation.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("transcriptions-dir") {
				cfg.Paths.TranscriptionsDir = transcriptionsDir
			}

			agg, err := evaluation.Evaluate(referencesDir, cfg.Paths.TranscriptionsDir)
			if err != nil {
				return err
			}
			if err := report.WriteEvaluation(cmd.OutOrStdout(), agg); err != nil {
				return err
			}

			if output != "" {
				if err := agg.SaveYAML(output); err != nil {
					return err
				}
				slog.Info("Evaluation saved", "path", output)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&referencesDir, "references", "", "Directory with reference JSON records (required)")
	cmd.Flags().StringVar(&transcriptionsDir, "transcriptions-dir", "", "Directory with transcription JSON files")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the full evaluation as YAML")
	_ = cmd.MarkFlagRequired("references")

	return cmd
}
