package table

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/noxenys/AI-Knowledge-Agent/pkg/dedupe"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/reconcile"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/records"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/upsert"
)

func TestRecordsToTableData(t *testing.T) {
	recs := []*records.Record{
		{ID: "a", Title: "Stripe", Tag: records.TagSkill, Status: records.StatusActive, SourceURL: "https://x.io"},
		{ID: "b", Title: "Notes", Tag: records.TagMCP, Status: records.StatusBroken},
	}

	data := RecordsToTableData(recs, false)
	assert.Equal(t, []string{"Title", "Tag", "Status", "Source"}, data.Headers)
	assert.Equal(t, []string{"Stripe", "Skill", "Active", "https://x.io"}, data.Rows[0])
	assert.Equal(t, "-", data.Rows[1][3])

	wide := RecordsToTableData(recs, true)
	assert.Len(t, wide.Headers, 7)
	assert.Len(t, wide.Rows[0][5], 8)
	assert.Equal(t, "-", wide.Rows[0][6])
}

func TestGroupsToTableData(t *testing.T) {
	g := dedupe.Group{
		Title:  "Dup",
		Winner: &records.Record{ID: "keep", Content: "long enough content"},
		Losers: []*records.Record{{ID: "x"}, {ID: "y"}},
	}
	data := GroupsToTableData([]dedupe.Group{g})
	assert.Equal(t, []string{"Dup", "keep", "100", "2"}, data.Rows[0])
}

func TestStatsAndDecisions(t *testing.T) {
	s := StatsToTableData(upsert.Stats{Created: 1, Updated: 2, Skipped: 3, Error: 4})
	assert.Equal(t, []string{"1", "2", "3", "4"}, s.Rows[0])

	d := DecisionsToTableData(map[reconcile.Decision]int{
		reconcile.DecisionMarkBroken: 1,
		reconcile.DecisionSkip:       5,
	})
	assert.Equal(t, [][]string{{"skip", "5"}, {"mark_broken", "1"}}, d.Rows)
}

func TestTruncateAndTimestamp(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abcd...", Truncate("abcdefghij", 7))
	assert.Equal(t, "héll...", Truncate("héllo wörld", 7))

	assert.Equal(t, "-", FormatTimestamp(time.Time{}))
	assert.Equal(t, "2024-01-02 03:04", FormatTimestamp(time.Date(2024, 1, 2, 3, 4, 0, 0, time.UTC)))
}
