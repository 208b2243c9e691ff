package report

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/ibebio/herb-transcribe/internal/evaluation"
)

// WriteEvaluation prints per-field accuracy followed by the overall score.
func WriteEvaluation(w io.Writer, agg *evaluation.Aggregate) error {
	names := agg.FieldNames()
	rows := make([]table.Row, 0, len(names))
	for _, name := range names {
		stats := agg.Fields[name]
		rows = append(rows, table.Row{name, stats.ExactMatches, stats.FuzzyMatches, stats.NoMatches, stats.MissingFields, fmt.Sprintf("%.2f", stats.AverageScore)})
	}

	_, err := fmt.Fprintf(w, "%s\n\nEvaluated: %d  Compared: %d  Without transcription: %d\nOverall accuracy: %.1f%%\n",
		render(fieldColumns, rows, IsTerminal(w)), agg.TotalRecords, agg.SuccessCount, agg.FailureCount, agg.OverallAccuracy*100)
	return err
}
