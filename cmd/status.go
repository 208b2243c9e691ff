package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/ibebio/herb-transcribe/internal/report"
	"github.com/ibebio/herb-transcribe/internal/state"
)

func newStatusCmd(root *rootOptions) *cobra.Command {
	var (
		processedDir string
		stateDB      string
		only         []string
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show per-image progress from the state journal",
		Long: `Lists every image recorded in the state journal with its last status,
and checks that completed images still have their marker and artifacts.`,
		Example: `  herb-transcribe status
  herb-transcribe status --only failed,skipped`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("processed-images-dir") {
				cfg.Paths.ProcessedImagesDir = processedDir
			}
			if cmd.Flags().Changed("state-db") {
				cfg.Paths.StateDB = stateDB
			}

			path := cfg.StateDBPath()
			if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "No state journal at %s\n", path)
				return err
			}

			journal, err := state.Open(path)
			if err != nil {
				return fmt.Errorf("failed to open state journal: %w", err)
			}
			defer journal.Close()

			ctx := cmd.Context()
			run, err := journal.LastRun(ctx)
			if err != nil && !errors.Is(err, state.ErrNotFound) {
				return err
			}

			statuses := make([]state.Status, 0, len(only))
			for _, s := range only {
				statuses = append(statuses, state.Status(s))
			}
			items, err := journal.List(ctx, statuses...)
			if err != nil {
				return err
			}

			return report.WriteStatus(cmd.OutOrStdout(), run, items, report.FindIssues(run, items))
		},
	}

	cmd.Flags().StringVar(&processedDir, "processed-images-dir", "", "Processed images directory holding the journal")
	cmd.Flags().StringVar(&stateDB, "state-db", "", "Path to the state journal")
	cmd.Flags().StringSliceVar(&only, "only", nil, "Only show items with these statuses")

	return cmd
}
