// Package table converts domain values into rows for CLI table output.
package table

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/noxenys/AI-Knowledge-Agent/pkg/dedupe"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/reconcile"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/records"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/upsert"
)

// Align represents column alignment in tables.
type Align int

const (
	// AlignDefault uses the default alignment (skip).
	AlignDefault Align = iota
	// AlignLeft aligns content to the left.
	AlignLeft
	// AlignCenter centers content.
	AlignCenter
	// AlignRight aligns content to the right.
	AlignRight
)

// Data represents table formatting data to avoid import cycles.
type Data struct {
	Headers         []string
	Rows            [][]string
	ColumnAlignment []Align // Optional: column alignment
}

// RecordsToTableData converts records to table format. Wide output adds the
// content fingerprint and the last edit time.
func RecordsToTableData(recs []*records.Record, wide bool) Data {
	headers := []string{"Title", "Tag", "Status", "Source"}
	if wide {
		headers = append(headers, "ID", "Hash", "Edited")
	}

	rows := make([][]string, 0, len(recs))
	for _, r := range recs {
		source := r.SourceURL
		if source == "" {
			source = "-"
		}
		row := []string{Truncate(r.Title, 48), r.Tag.String(), r.Status.String(), Truncate(source, 60)}
		if wide {
			row = append(row, r.ID, r.Hash()[:8], FormatTimestamp(r.LastEditedTime))
		}
		rows = append(rows, row)
	}
	return Data{Headers: headers, Rows: rows}
}

// GroupsToTableData lists every duplicate group with the kept record first.
func GroupsToTableData(groups []dedupe.Group) Data {
	rows := make([][]string, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, []string{
			Truncate(g.Title, 48),
			g.Winner.ID,
			fmt.Sprintf("%d", dedupe.Score(g.Winner)),
			fmt.Sprintf("%d", len(g.Losers)),
		})
	}
	return Data{
		Headers:         []string{"Title", "Kept", "Score", "Archived"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignLeft, AlignRight, AlignRight},
	}
}

// StatsToTableData renders upsert counters as a single row.
func StatsToTableData(s upsert.Stats) Data {
	return Data{
		Headers: []string{"Created", "Updated", "Skipped", "Errors"},
		Rows: [][]string{{
			fmt.Sprintf("%d", s.Created),
			fmt.Sprintf("%d", s.Updated),
			fmt.Sprintf("%d", s.Skipped),
			fmt.Sprintf("%d", s.Error),
		}},
		ColumnAlignment: []Align{AlignRight, AlignRight, AlignRight, AlignRight},
	}
}

// DecisionsToTableData renders how often each reconciliation decision was taken.
func DecisionsToTableData(counts map[reconcile.Decision]int) Data {
	decisions := make([]reconcile.Decision, 0, len(counts))
	for d := range counts {
		decisions = append(decisions, d)
	}
	sort.Slice(decisions, func(i, j int) bool { return decisions[i] < decisions[j] })

	rows := make([][]string, 0, len(decisions))
	for _, d := range decisions {
		rows = append(rows, []string{d.String(), fmt.Sprintf("%d", counts[d])})
	}
	return Data{
		Headers:         []string{"Decision", "Records"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignRight},
	}
}

// Truncate shortens s to at most n runes, marking the cut with "...".
func Truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= n || n < 4 {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-3]) + "..."
}

// FormatTimestamp formats a timestamp for display.
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02 15:04")
}
