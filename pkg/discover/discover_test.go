package discover

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noxenys/AI-Knowledge-Agent/pkg/fetch"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/records"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/retry"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/store/memstore"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/upsert"
)

type mapFetcher map[string]string

func (m mapFetcher) Fetch(_ context.Context, url string) fetch.Result {
	if text, ok := m[url]; ok {
		return fetch.Result{Kind: fetch.Success, Text: text, Attempts: 1}
	}
	return fetch.Result{Kind: fetch.NotFound, Attempts: 1}
}

func TestTitleFromPath(t *testing.T) {
	assert.Equal(t, "Stripe Api Best Practices", TitleFromPath("/rules/stripe-api-best-practices"))
	assert.Equal(t, "Nextjs", TitleFromPath("/rules/NEXTJS"))
}

func TestRulePaths(t *testing.T) {
	page := `<html><body>
<a href="/rules/stripe-api">Stripe</a>
<a href="/rules/stripe-api">dup</a>
<a href="https://cursor.directory/rules/zapier-flows/">abs</a>
<a href="https://elsewhere.dev/rules/not-ours">foreign</a>
<a href="/rules/">empty</a>
<a href="/learn">other</a>
</body></html>`
	paths, err := RulePaths(strings.NewReader(page), DefaultBaseURL)
	require.NoError(t, err)
	assert.Equal(t, []string{"/rules/stripe-api", "/rules/zapier-flows"}, paths)
}

func TestDiscover(t *testing.T) {
	base := "https://dir.test"
	f := mapFetcher{
		base + "/search?q=stripe":     `<a href="/rules/stripe-api">x</a><a href="/rules/gone">y</a>`,
		base + "/search?q=automation": `<a href="/rules/stripe-api">x</a><a href="/rules/n8n-flows">z</a>`,
		base + "/rules/stripe-api":    "stripe body",
		base + "/rules/n8n-flows":     "n8n body",
	}
	s := memstore.New(100)
	engine := upsert.New(s, upsert.WithSleeper(retry.NoSleep))

	var delays []time.Duration
	sleeper := retry.SleeperFunc(func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return ctx.Err()
	})
	d := New(f, engine, WithBaseURL(base+"/"), WithSleeper(sleeper))

	stats, err := d.Discover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, upsert.Stats{Created: 2}, stats)
	assert.Equal(t, []time.Duration{time.Second, time.Second}, delays)
	assert.Equal(t, []string{"N8n Flows", "Stripe Api"}, s.Titles())

	rec, err := s.GetByTitle(context.Background(), "Stripe Api")
	require.NoError(t, err)
	assert.Equal(t, records.TagSkill, rec.Tag)
	assert.Equal(t, records.StatusActive, rec.Status)
	assert.Equal(t, base+"/rules/stripe-api", rec.SourceURL)
	assert.True(t, strings.HasSuffix(rec.Content, "Original Content ("+base+"/rules/stripe-api):\n\nstripe body"))

	again, err := d.Discover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, upsert.Stats{Skipped: 2}, again)
}

func TestDiscoverStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(mapFetcher{}, nil, WithSleeper(retry.NoSleep)).Discover(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
