package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/rshade/mediabatch/internal/config"
	"github.com/rshade/mediabatch/internal/engine/batch"
	"github.com/rshade/mediabatch/internal/jobs"
)

// Output formats.
const (
	outputTable = "table"
	outputJSON  = "json"
)

const detailWidth = 60

// batchReport is the JSON form of a finished batch.
type batchReport struct {
	RunID    string         `json:"run_id"`
	Kind     string         `json:"kind"`
	Input    string         `json:"input"`
	Summary  reportSummary  `json:"summary"`
	Tasks    []reportTask   `json:"tasks"`
	Skipped  []jobs.Skipped `json:"skipped,omitempty"`
	Duration string         `json:"duration"`
}

type reportSummary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Retried   int `json:"retried"`
}

type reportTask struct {
	ID        string `json:"id"`
	Line      int    `json:"line"`
	Label     string `json:"label"`
	Status    string `json:"status"`
	Attempt   int    `json:"attempt"`
	Detail    string `json:"detail,omitempty"`
	Class     string `json:"class,omitempty"`
	Permanent bool   `json:"permanent,omitempty"`
}

func newBatchReport(record *config.RunRecord, tasks []jobs.TaskView, skipped []jobs.Skipped) batchReport {
	report := batchReport{
		RunID: record.RunID,
		Kind:  record.Kind,
		Input: record.Input,
		Summary: reportSummary{
			Total:     record.Total,
			Succeeded: record.Succeeded,
			Failed:    record.Failed,
			Retried:   record.Retried,
		},
		Tasks:    make([]reportTask, 0, len(tasks)),
		Skipped:  skipped,
		Duration: record.FinishedAt.Sub(record.StartedAt).Round(time.Millisecond).String(),
	}
	for _, t := range tasks {
		report.Tasks = append(report.Tasks, reportTask{
			ID:        t.ID,
			Line:      t.Line,
			Label:     t.Label,
			Status:    string(t.Status),
			Attempt:   t.Attempt,
			Detail:    t.Detail,
			Class:     string(t.Class),
			Permanent: t.Permanent,
		})
	}
	return report
}

// renderJSON writes v as indented JSON.
func renderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// renderTable draws a rounded table. Short rows are padded with empty cells.
func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range columns {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// renderTaskTable writes the final state of every task.
func renderTaskTable(w io.Writer, tasks []jobs.TaskView) error {
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, []string{
			strconv.Itoa(t.Line),
			t.Label,
			string(t.Status),
			strconv.Itoa(t.Attempt),
			text.Trim(t.Detail, detailWidth),
		})
	}
	out := renderTable(
		[]string{"Line", "Task", "Status", "Attempts", "Detail"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
	)
	_, err := fmt.Fprintln(w, out)
	return err
}

// renderSummaryLine writes the one-line outcome, with grouped thousands.
func renderSummaryLine(w io.Writer, kind jobs.Kind, summary batch.Summary, elapsed time.Duration) error {
	p := message.NewPrinter(language.English)
	_, err := p.Fprintf(w, "%s: %d of %d tasks succeeded, %d failed (%v)\n",
		kind, summary.SuccessCount, summary.Total, summary.FailureCount, elapsed.Round(time.Millisecond))
	return err
}

// renderSkipped lists input rows that never became tasks.
func renderSkipped(w io.Writer, skipped []jobs.Skipped) {
	if len(skipped) == 0 {
		return
	}
	p := message.NewPrinter(language.English)
	p.Fprintf(w, "Skipped %d input rows:\n", len(skipped))
	for _, s := range skipped {
		p.Fprintf(w, "  line %d: %s\n", s.Line, s.Reason)
	}
}
