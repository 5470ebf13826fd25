// Package search finds a replacement source URL for a record whose remote
// source has gone dead.
package search

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/noxenys/AI-Knowledge-Agent/pkg/constants"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/errors"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/logging"
)

// Result is one search hit.
type Result struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Provider is an external web search.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
}

// Resolver turns a dead source into a replacement candidate.
type Resolver struct {
	provider   Provider
	keywords   string
	trusted    string
	maxResults int
	cache      *cache.Cache
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithKeywords sets the words appended to every title query.
func WithKeywords(k string) Option {
	return func(r *Resolver) {
		r.keywords = k
	}
}

// WithTrustedDomain sets the fallback domain accepted for any title.
func WithTrustedDomain(d string) Option {
	return func(r *Resolver) {
		r.trusted = strings.ToLower(d)
	}
}

// WithMaxResults sets how many candidates are requested.
func WithMaxResults(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxResults = n
		}
	}
}

// WithCacheTTL sets how long results for a query are reused. Zero disables caching.
func WithCacheTTL(ttl time.Duration) Option {
	return func(r *Resolver) {
		if ttl <= 0 {
			r.cache = nil
			return
		}
		r.cache = cache.New(ttl, constants.SearchCacheCleanupInterval)
	}
}

// NewResolver returns a Resolver over provider.
func NewResolver(provider Provider, opts ...Option) *Resolver {
	r := &Resolver{
		provider:   provider,
		keywords:   constants.SearchKeywords,
		trusted:    constants.TrustedDomain,
		maxResults: constants.SearchMaxResults,
		cache:      cache.New(constants.SearchCacheTTL, constants.SearchCacheCleanupInterval),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Query returns the search query used for title.
func (r *Resolver) Query(title string) string {
	title = strings.TrimSpace(title)
	if r.keywords == "" {
		return title
	}
	return title + " " + r.keywords
}

// Resolve returns the first candidate that is either on the original URL's
// host or on the trusted domain. Provider failures count as no match.
func (r *Resolver) Resolve(ctx context.Context, title, originalURL string) (string, bool) {
	logger := logging.Ctx(ctx)

	candidates, err := r.candidates(ctx, r.Query(title))
	if err != nil {
		logger.Warn().Err(err).Str("title", title).Msg("Search unavailable, healing skipped")
		return "", false
	}

	u, ok := Pick(candidates, originalURL, r.trusted)
	if ok {
		logger.Info().Str("title", title).Str("original", originalURL).Str("replacement", u).Msg("Found replacement source")
	} else {
		logger.Info().Str("title", title).Int("candidates", len(candidates)).Msg("No qualifying replacement source")
	}
	return u, ok
}

func (r *Resolver) candidates(ctx context.Context, query string) ([]Result, error) {
	if r.provider == nil {
		return nil, &errors.SearchUnavailableError{Provider: "none", Query: query, Err: errors.ErrSearchUnavailable}
	}
	if r.cache != nil {
		if v, ok := r.cache.Get(query); ok {
			return v.([]Result), nil
		}
	}

	results, err := r.provider.Search(ctx, query, r.maxResults)
	if err != nil {
		if errors.IsSearchUnavailable(err) {
			return nil, err
		}
		return nil, &errors.SearchUnavailableError{Provider: r.provider.Name(), Query: query, Err: err}
	}
	if len(results) > r.maxResults {
		results = results[:r.maxResults]
	}
	if r.cache != nil {
		r.cache.SetDefault(query, results)
	}
	return results, nil
}

// Pick evaluates candidates in order and returns the first whose host equals
// the original URL's host or belongs to trusted.
func Pick(candidates []Result, originalURL, trusted string) (string, bool) {
	origHost := Host(originalURL)
	for _, c := range candidates {
		h := Host(c.URL)
		if h == "" {
			continue
		}
		if origHost != "" && h == origHost {
			return c.URL, true
		}
		if trusted != "" && (h == trusted || strings.HasSuffix(h, "."+trusted)) {
			return c.URL, true
		}
	}
	return "", false
}

// Host returns the lower-cased host of raw without port or "www." prefix,
// or "" if raw has none.
func Host(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	h := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(h, "www.")
}
