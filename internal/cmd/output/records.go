package output

import (
	"io"

	"github.com/noxenys/AI-Knowledge-Agent/internal/cmd/table"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/dedupe"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/reconcile"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/records"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/upsert"
)

func tabular(f Format) bool {
	return f == FormatTable || f == FormatWide || f == ""
}

// FormatRecords writes records as a table or as structured data.
func FormatRecords(w io.Writer, recs []*records.Record, format Format) error {
	var data any = recs
	if tabular(format) {
		data = table.RecordsToTableData(recs, format == FormatWide)
	}
	return NewFormatter(format).Format(w, data)
}

// FormatDedupe writes a duplicate resolution report.
func FormatDedupe(w io.Writer, report *dedupe.Report, format Format) error {
	if !tabular(format) {
		return NewFormatter(format).Format(w, report)
	}
	if len(report.Groups) == 0 {
		_, err := io.WriteString(w, "No duplicates found.\n")
		return err
	}
	if err := NewFormatter(format).Format(w, table.GroupsToTableData(report.Groups)); err != nil {
		return err
	}
	_, err := io.WriteString(w, report.Summary()+"\n")
	return err
}

// cycleView is the structured form of a cycle result.
type cycleView struct {
	Records   int            `json:"records" yaml:"records"`
	Duration  string         `json:"duration" yaml:"duration"`
	Decisions map[string]int `json:"decisions" yaml:"decisions"`
	Created   int            `json:"created" yaml:"created"`
	Updated   int            `json:"updated" yaml:"updated"`
	Skipped   int            `json:"skipped" yaml:"skipped"`
	Errors    int            `json:"errors" yaml:"errors"`
	Backup    string         `json:"backup,omitempty" yaml:"backup,omitempty"`
}

// FormatCycle writes the outcome of one reconciliation cycle.
func FormatCycle(w io.Writer, res *reconcile.Result, format Format) error {
	total := res.Total()
	if tabular(format) {
		f := NewFormatter(format)
		if err := f.Format(w, table.DecisionsToTableData(res.Decisions)); err != nil {
			return err
		}
		return f.Format(w, table.StatsToTableData(total))
	}

	view := cycleView{
		Records:   res.Records,
		Duration:  res.Duration.String(),
		Decisions: make(map[string]int, len(res.Decisions)),
		Created:   total.Created,
		Updated:   total.Updated,
		Skipped:   total.Skipped,
		Errors:    total.Error,
	}
	for d, n := range res.Decisions {
		view.Decisions[d.String()] = n
	}
	if res.BackupErr != nil {
		view.Backup = res.BackupErr.Error()
	}
	return NewFormatter(format).Format(w, view)
}

// FormatStats writes upsert counters.
func FormatStats(w io.Writer, stats upsert.Stats, format Format) error {
	if tabular(format) {
		return NewFormatter(format).Format(w, table.StatsToTableData(stats))
	}
	return NewFormatter(format).Format(w, stats)
}
