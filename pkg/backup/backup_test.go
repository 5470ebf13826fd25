package backup

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noxenys/AI-Knowledge-Agent/pkg/errors"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/records"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/retry"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/store/memstore"
)

var fixed = time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)

func seeded() *memstore.Store {
	s := memstore.New(1)
	s.SetClock(func() time.Time { return fixed })
	s.Seed(records.Record{Title: "Stripe", Content: "line one\nline two", Tag: records.TagSkill, Status: records.StatusActive, SourceURL: "https://x.io/s"})
	s.Seed(records.Record{Title: "Dead", Content: "old", Tag: records.TagMCP, Status: records.StatusBroken})
	return s
}

func TestTakeWritesBothFormats(t *testing.T) {
	dir := t.TempDir()
	sn := New(seeded(), dir, WithSleeper(retry.NoSleep), WithClock(func() time.Time { return fixed }))

	paths, err := sn.Take(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(dir, "records_20250304_050607.json"),
		filepath.Join(dir, "records_20250304_050607.yaml"),
	}, paths)

	for _, p := range paths {
		snap, err := Load(p)
		require.NoError(t, err, p)
		assert.Equal(t, 2, snap.Count)
		require.Len(t, snap.Records, 2)
		assert.Equal(t, "Stripe", snap.Records[0].Title)
		assert.Equal(t, "line one\nline two", snap.Records[0].Content)
		assert.Equal(t, records.TagMCP, snap.Records[1].Tag)
		assert.Equal(t, records.StatusBroken, snap.Records[1].Status)
		assert.True(t, fixed.Equal(snap.GeneratedAt))
	}

	raw, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"status": "Broken"`)
}

func TestTakeListingFailure(t *testing.T) {
	s := seeded()
	s.SetFault(func(op memstore.Op, _ string) error {
		if op == memstore.OpList {
			return errors.NewAPIError("notion", 500, "down")
		}
		return nil
	})
	dir := filepath.Join(t.TempDir(), "out")
	err := New(s, dir, WithSleeper(retry.NoSleep)).Snapshot(context.Background())
	require.Error(t, err)
	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestLoadRejectsUnknownExtension(t *testing.T) {
	_, err := Load("snapshot.txt")
	assert.True(t, errors.IsValidationError(err))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("YML")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)
	_, err = ParseFormat("xml")
	assert.Error(t, err)
	assert.Equal(t, ".json", FormatJSON.Ext())
	assert.False(t, Format(7).IsValid())
}

func TestExportActiveOnly(t *testing.T) {
	var buf bytes.Buffer
	n, err := Export(context.Background(), seeded(), nil, &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	out := buf.String()
	assert.Contains(t, out, "# Knowledge Export")
	assert.Contains(t, out, "1 active items")
	assert.Contains(t, out, "## Stripe\nline one\nline two\n")
	assert.NotContains(t, out, "Dead")
}
