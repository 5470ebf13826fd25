package upsert

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noxenys/AI-Knowledge-Agent/pkg/errors"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/records"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/retry"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/store/memstore"
)

type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return ctx.Err()
}

func params() Params {
	return Params{
		Title:     "Stripe Rules",
		Content:   "use idempotency keys",
		Tag:       records.TagSkill,
		Status:    records.StatusActive,
		SourceURL: "https://example.com/stripe",
	}
}

func TestUpsertIdempotent(t *testing.T) {
	ctx := context.Background()
	s := memstore.New(100)
	e := New(s, WithSleeper(retry.NoSleep))

	assert.Equal(t, Created, e.Upsert(ctx, params()))
	writes := s.Writes()

	assert.Equal(t, Skipped, e.Upsert(ctx, params()))
	assert.Equal(t, writes, s.Writes(), "second identical upsert must not write")
	assert.Len(t, s.Snapshot(), 1)
}

func TestUpsertUpdatesOnAnyTrackedChange(t *testing.T) {
	tests := []struct {
		name   string
		change func(*Params)
	}{
		{"content", func(p *Params) { p.Content = "new body" }},
		{"status", func(p *Params) { p.Status = records.StatusBroken }},
		{"url", func(p *Params) { p.SourceURL = "https://example.com/moved" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s := memstore.New(100)
			e := New(s, WithSleeper(retry.NoSleep))
			require.Equal(t, Created, e.Upsert(ctx, params()))

			p := params()
			tt.change(&p)
			outcome, rec, err := e.Save(ctx, p)
			require.NoError(t, err)
			assert.Equal(t, Updated, outcome)
			assert.Equal(t, p.Content, rec.Content)
			assert.Equal(t, p.Status, rec.Status)
			assert.Equal(t, p.SourceURL, rec.SourceURL)
			assert.Equal(t, 1, s.Calls(memstore.OpUpdate))
		})
	}
}

func TestUpsertTagChangeAloneIsSkipped(t *testing.T) {
	ctx := context.Background()
	s := memstore.New(100)
	e := New(s, WithSleeper(retry.NoSleep))
	require.Equal(t, Created, e.Upsert(ctx, params()))

	p := params()
	p.Tag = records.TagMCP
	assert.Equal(t, Skipped, e.Upsert(ctx, p))
}

func TestUpsertValidation(t *testing.T) {
	tests := []struct {
		name   string
		change func(*Params)
	}{
		{"missing title", func(p *Params) { p.Title = "  " }},
		{"missing content", func(p *Params) { p.Content = "" }},
		{"bad tag", func(p *Params) { p.Tag = records.Tag(42) }},
		{"unknown status", func(p *Params) { p.Status = records.StatusUnknown }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := memstore.New(100)
			e := New(s, WithSleeper(retry.NoSleep))
			p := params()
			tt.change(&p)

			outcome, _, err := e.Save(context.Background(), p)
			assert.Equal(t, Error, outcome)
			assert.True(t, errors.IsValidationError(err))
			assert.Zero(t, s.Calls(memstore.OpGet), "validation failures never reach the store")
			assert.Zero(t, s.Writes())
		})
	}
}

func TestUpsertUnknownTagDefaultsToSkill(t *testing.T) {
	s := memstore.New(100)
	e := New(s, WithSleeper(retry.NoSleep))
	p := params()
	p.Tag = records.TagUnknown

	outcome, rec, err := e.Save(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, Created, outcome)
	assert.Equal(t, records.TagSkill, rec.Tag)
}

func TestUpsertCreateRetries(t *testing.T) {
	ctx := context.Background()
	s := memstore.New(100)
	failures := 2
	s.SetFault(func(op memstore.Op, _ string) error {
		if op == memstore.OpCreate && failures > 0 {
			failures--
			return errors.NewAPIError("notion", 502, "bad gateway")
		}
		return nil
	})
	sl := &recordingSleeper{}
	e := New(s, WithSleeper(sl))

	assert.Equal(t, Created, e.Upsert(ctx, params()))
	assert.Equal(t, 3, s.Calls(memstore.OpCreate))
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, sl.delays)
}

func TestUpsertCreateGivesUpAfterBudget(t *testing.T) {
	s := memstore.New(100)
	s.SetFault(func(op memstore.Op, _ string) error {
		if op == memstore.OpCreate {
			return errors.NewAPIError("notion", 500, "down")
		}
		return nil
	})
	e := New(s, WithSleeper(retry.NoSleep))

	outcome, _, err := e.Save(context.Background(), params())
	assert.Equal(t, Error, outcome)
	assert.True(t, errors.IsStoreWrite(err))
	assert.Equal(t, 3, s.Calls(memstore.OpCreate))
}

func TestUpsertUpdateIsNotRetried(t *testing.T) {
	ctx := context.Background()
	s := memstore.New(100)
	e := New(s, WithSleeper(retry.NoSleep))
	require.Equal(t, Created, e.Upsert(ctx, params()))

	s.SetFault(func(op memstore.Op, _ string) error {
		if op == memstore.OpUpdate {
			return errors.NewAPIError("notion", 500, "down")
		}
		return nil
	})
	p := params()
	p.Content = "changed"
	outcome, _, err := e.Save(ctx, p)
	assert.Equal(t, Error, outcome)
	assert.True(t, errors.IsStoreWrite(err))
	assert.Equal(t, 1, s.Calls(memstore.OpUpdate))
}

func TestUpsertLookupFailureDoesNotCreate(t *testing.T) {
	s := memstore.New(100)
	s.SetFault(func(op memstore.Op, _ string) error {
		if op == memstore.OpGet {
			return errors.NewAPIError("notion", 503, "unavailable")
		}
		return nil
	})
	e := New(s, WithSleeper(retry.NoSleep))

	assert.Equal(t, Error, e.Upsert(context.Background(), params()))
	assert.Zero(t, s.Calls(memstore.OpCreate))
}

func TestUpsertConcurrentSameTitleCreatesOnce(t *testing.T) {
	ctx := context.Background()
	s := memstore.New(100)
	e := New(s, WithSleeper(retry.NoSleep))

	var wg sync.WaitGroup
	outcomes := make([]Outcome, 8)
	for i := range outcomes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i] = e.Upsert(ctx, params())
		}(i)
	}
	wg.Wait()

	created := 0
	for _, o := range outcomes {
		if o == Created {
			created++
		}
	}
	assert.Equal(t, 1, created)
	assert.Len(t, s.Snapshot(), 1)
	assert.Empty(t, e.locks.locks)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "created", Created.String())
	assert.Equal(t, "error", Error.String())
}

func TestStats(t *testing.T) {
	var s Stats
	for _, o := range []Outcome{Created, Updated, Updated, Skipped, Error, Outcome(99)} {
		s.Add(o)
	}
	s.Merge(Stats{Skipped: 2})
	assert.Equal(t, 7, s.Total())
	assert.Equal(t, "Created: 1 | Updated: 2 | Skipped: 3 | Errors: 1", s.Summary())
}
