package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noxenys/AI-Knowledge-Agent/pkg/errors"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/records"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/store"
)

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "records.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func fields(title string) store.Fields {
	return store.Fields{
		Title:     title,
		Content:   "content of " + title,
		Tag:       records.TagMCP,
		Status:    records.StatusActive,
		SourceURL: "https://example.com/" + title,
	}
}

func TestCreateAndGetByTitle(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s := newTestStore(t, WithClock(func() time.Time { return at }))

	created, err := s.Create(ctx, fields("alpha"))
	require.NoError(t, err)
	assert.Len(t, created.ID, 26)
	assert.True(t, created.CreatedTime.Equal(at))

	got, err := s.GetByTitle(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "content of alpha", got.Content)
	assert.Equal(t, records.TagMCP, got.Tag)
	assert.Equal(t, records.StatusActive, got.Status)
	assert.Equal(t, "https://example.com/alpha", got.SourceURL)

	_, err = s.GetByTitle(ctx, "missing")
	assert.True(t, errors.IsNotFound(err))
}

func TestGetByTitlePrefersOldest(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first, err := s.Create(ctx, fields("dup"))
	require.NoError(t, err)
	_, err = s.Create(ctx, fields("dup"))
	require.NoError(t, err)

	got, err := s.GetByTitle(ctx, "dup")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
}

func TestUpdateClearsSource(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	rec, err := s.Create(ctx, fields("beta"))
	require.NoError(t, err)

	f := store.FieldsOf(rec)
	f.SourceURL = ""
	f.Status = records.StatusBroken
	updated, err := s.Update(ctx, rec.ID, f)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, updated.ID)
	assert.Empty(t, updated.SourceURL)
	assert.True(t, updated.SelfManaged())
	assert.Equal(t, records.StatusBroken, updated.Status)

	_, err = s.Update(ctx, "nope", f)
	assert.True(t, errors.IsStoreWrite(err))
}

func TestArchiveHidesRecord(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	rec, err := s.Create(ctx, fields("gamma"))
	require.NoError(t, err)
	require.NoError(t, s.Archive(ctx, rec.ID))

	_, err = s.GetByTitle(ctx, "gamma")
	assert.True(t, errors.IsNotFound(err))

	all, err := store.All(ctx, s, nil)
	require.NoError(t, err)
	assert.Empty(t, all)

	assert.True(t, errors.IsStoreWrite(s.Archive(ctx, rec.ID)))
}

func TestListPagination(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, WithPageSize(2))

	for i := 0; i < 5; i++ {
		_, err := s.Create(ctx, fields(fmt.Sprintf("r%d", i)))
		require.NoError(t, err)
	}

	page, err := s.ListPage(ctx, "")
	require.NoError(t, err)
	assert.Len(t, page.Records, 2)
	assert.True(t, page.HasMore)
	assert.Equal(t, page.Records[1].ID, page.NextCursor)

	all, err := store.All(ctx, s, nil)
	require.NoError(t, err)
	require.Len(t, all, 5)
	for i, r := range all {
		assert.Equal(t, fmt.Sprintf("r%d", i), r.Title)
	}
}
