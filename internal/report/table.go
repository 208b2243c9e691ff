package report

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"github.com/ibebio/herb-transcribe/internal/pipeline"
	"github.com/ibebio/herb-transcribe/internal/state"
)

const timeLayout = "2006-01-02 15:04:05"

// column is one table column; numeric columns are right aligned.
type column struct {
	title   string
	numeric bool
}

var (
	summaryColumns = []column{{"Image", false}, {"Status", false}, {"Orientation", false}, {"Plant ID", false}, {"Score", true}, {"Reason", false}}
	statusColumns  = []column{{"Image", false}, {"Status", false}, {"Orientation", false}, {"Plant ID", false}, {"Updated", false}, {"Message", false}}
	issueColumns   = []column{{"Image", false}, {"Path", false}, {"Problem", false}}
	fieldColumns   = []column{{"Field", false}, {"Exact", true}, {"Fuzzy", true}, {"No match", true}, {"Missing", true}, {"Avg score", true}}
)

// render lays rows out under cols, rounded on a terminal and plain ASCII
// everywhere else.
func render(cols []column, rows []table.Row, fancy bool) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleDefault)
	if fancy {
		tw.SetStyle(table.StyleRounded)
	}

	header := make(table.Row, len(cols))
	configs := make([]table.ColumnConfig, len(cols))
	for i, c := range cols {
		header[i] = c.title
		configs[i] = table.ColumnConfig{Number: i + 1, AlignHeader: text.AlignLeft}
		if c.numeric {
			configs[i].Align = text.AlignRight
		}
	}
	tw.AppendHeader(header)
	tw.AppendRows(rows)
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// WriteSummary prints the per-item outcomes of a run followed by totals.
func WriteSummary(w io.Writer, summary *pipeline.Summary) error {
	rows := make([]table.Row, 0, len(summary.Outcomes))
	for _, o := range summary.Outcomes {
		var score any = ""
		if o.Status == state.StatusDone {
			score = o.Score
		}
		rows = append(rows, table.Row{o.Item.BaseName, o.Status, o.Orientation, o.Identifier, score, o.Reason})
	}

	_, err := fmt.Fprintf(w, "%s\n\nProcessed: %d  Skipped: %d  Failed: %d\n", render(summaryColumns, rows, IsTerminal(w)),
		summary.Count(state.StatusDone), summary.Count(state.StatusSkipped), summary.Count(state.StatusFailed))
	return err
}

// Issue is an inconsistency between the journal and the output trees.
type Issue struct {
	BaseName string
	Path     string
	Problem  string
}

// FindIssues checks that every completed item still has its marker and
// artifacts on disk, and flags items left mid-way by a run that is no
// longer active. run is the latest run and may be nil.
func FindIssues(run *state.Run, items []*state.Item) []Issue {
	var issues []Issue
	for _, item := range items {
		if !item.Status.IsTerminal() {
			if run == nil || item.RunID != run.ID || !run.FinishedAt.IsZero() {
				issues = append(issues, Issue{BaseName: item.BaseName, Path: item.SourcePath, Problem: "interrupted while " + string(item.Status)})
			}
			continue
		}
		if item.Status != state.StatusDone {
			continue
		}
		for _, p := range item.ArtifactPaths() {
			if _, err := os.Stat(p); err != nil {
				problem := err.Error()
				if errors.Is(err, fs.ErrNotExist) {
					problem = "missing"
				}
				issues = append(issues, Issue{BaseName: item.BaseName, Path: p, Problem: problem})
			}
		}
	}
	return issues
}

// WriteStatus prints the journal items and any consistency issues.
func WriteStatus(w io.Writer, run *state.Run, items []*state.Item, issues []Issue) error {
	fancy := IsTerminal(w)

	if run != nil {
		finished := "running"
		if !run.FinishedAt.IsZero() {
			finished = run.FinishedAt.Local().Format(timeLayout)
		}
		if _, err := fmt.Fprintf(w, "Last run %s (%s)\nStarted: %s  Finished: %s\nProcessed: %d  Skipped: %d  Failed: %d\n\n",
			run.ID, run.InputDir, run.StartedAt.Local().Format(timeLayout), finished,
			run.Processed, run.Skipped, run.Failed); err != nil {
			return err
		}
	}

	rows := make([]table.Row, 0, len(items))
	for _, item := range items {
		rows = append(rows, table.Row{item.BaseName, item.Status, item.Orientation, item.Identifier, item.UpdatedAt.Local().Format(timeLayout), item.Message})
	}
	if _, err := fmt.Fprintln(w, render(statusColumns, rows, fancy)); err != nil {
		return err
	}

	if len(issues) == 0 {
		return nil
	}
	issueRows := make([]table.Row, 0, len(issues))
	for _, issue := range issues {
		issueRows = append(issueRows, table.Row{issue.BaseName, issue.Path, issue.Problem})
	}
	_, err := fmt.Fprintf(w, "\n%d consistency issue(s):\n%s\n", len(issues), render(issueColumns, issueRows, fancy))
	return err
}
