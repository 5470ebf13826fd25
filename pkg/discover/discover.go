// Package discover finds rules on a public directory that the store does not
// hold yet and upserts them as new Active records.
package discover

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/noxenys/AI-Knowledge-Agent/pkg/constants"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/fetch"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/logging"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/records"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/retry"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/upsert"
)

// DefaultBaseURL is the rules directory searched.
const DefaultBaseURL = "https://cursor.directory"

// DefaultKeywords are searched when none are configured.
var DefaultKeywords = []string{"stripe", "automation"}

// RulesPrefix is the path prefix of a rule page.
const RulesPrefix = "/rules/"

// Discoverer searches the directory per keyword.
type Discoverer struct {
	baseURL  string
	keywords []string
	fetcher  fetch.Fetcher
	upserter upsert.Upserter
	delay    time.Duration
	sleeper  retry.Sleeper
}

// Option configures a Discoverer.
type Option func(*Discoverer)

// WithBaseURL sets the directory root.
func WithBaseURL(u string) Option {
	return func(d *Discoverer) {
		if u != "" {
			d.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithKeywords sets the search keywords.
func WithKeywords(kw ...string) Option {
	return func(d *Discoverer) {
		if len(kw) > 0 {
			d.keywords = kw
		}
	}
}

// WithDelay sets the pause after each upserted rule.
func WithDelay(delay time.Duration) Option {
	return func(d *Discoverer) {
		d.delay = delay
	}
}

// WithSleeper overrides how pauses are taken.
func WithSleeper(s retry.Sleeper) Option {
	return func(d *Discoverer) {
		if s != nil {
			d.sleeper = s
		}
	}
}

// New returns a Discoverer.
func New(f fetch.Fetcher, u upsert.Upserter, opts ...Option) *Discoverer {
	d := &Discoverer{
		baseURL:  DefaultBaseURL,
		keywords: DefaultKeywords,
		fetcher:  f,
		upserter: u,
		delay:    constants.DiscoveryDelay,
		sleeper:  retry.RealSleeper,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Discover runs one pass over every keyword. Unreachable pages are skipped;
// only cancellation returns an error.
func (d *Discoverer) Discover(ctx context.Context) (upsert.Stats, error) {
	logger := logging.Ctx(ctx)
	var stats upsert.Stats
	seen := make(map[string]bool)

	for _, kw := range d.keywords {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		searchURL := d.baseURL + "/search?q=" + url.QueryEscape(kw)
		logger.Info().Str("keyword", kw).Msg("Searching rules directory")

		page := d.fetcher.Fetch(ctx, searchURL)
		if !page.OK() {
			logger.Warn().Str("keyword", kw).Str("kind", page.Kind.String()).Msg("Search page unavailable")
			continue
		}

		paths, err := RulePaths(strings.NewReader(page.Text), d.baseURL)
		if err != nil {
			logger.Warn().Err(err).Str("keyword", kw).Msg("Search page unparsable")
			continue
		}
		if len(paths) == 0 {
			logger.Info().Str("keyword", kw).Msg("No rules found")
			continue
		}

		for _, path := range paths {
			if seen[path] {
				continue
			}
			seen[path] = true

			ruleURL := d.baseURL + path
			rule := d.fetcher.Fetch(ctx, ruleURL)
			if !rule.OK() {
				continue
			}

			title := TitleFromPath(path)
			o := d.upserter.Upsert(ctx, upsert.Params{
				Title:     title,
				Content:   Content(kw, title, ruleURL, rule.Text),
				Tag:       records.TagSkill,
				Status:    records.StatusActive,
				SourceURL: ruleURL,
			})
			stats.Add(o)
			logger.Info().Str("title", title).Str("outcome", o.String()).Msg("Discovered rule")

			if err := d.sleeper.Sleep(ctx, d.delay); err != nil {
				return stats, err
			}
		}
	}
	return stats, nil
}

// Content builds the stored text of a discovered rule.
func Content(keyword, title, ruleURL, text string) string {
	return fmt.Sprintf("Auto-discovered %s rule [%s], extends the agent's automation capabilities in this area.\n\n%s",
		keyword, title, records.QuoteSource(ruleURL, text))
}

// TitleFromPath turns "/rules/stripe-api-best-practices" into
// "Stripe Api Best Practices".
func TitleFromPath(path string) string {
	slug := strings.TrimPrefix(path, RulesPrefix)
	slug = strings.ReplaceAll(slug, "-", " ")
	return cases.Title(language.English).String(slug)
}

// RulePaths returns the distinct rule paths linked from an HTML page, in
// document order. Links to other hosts are ignored.
func RulePaths(r io.Reader, baseURL string) ([]string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	baseHost := ""
	if b, err := url.Parse(baseURL); err == nil {
		baseHost = b.Hostname()
	}

	var paths []string
	seen := make(map[string]bool)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, a := range n.Attr {
				if a.Key != "href" {
					continue
				}
				u, err := url.Parse(strings.TrimSpace(a.Val))
				if err != nil {
					continue
				}
				if u.Host != "" && u.Hostname() != baseHost {
					continue
				}
				p := strings.TrimRight(u.Path, "/")
				if strings.HasPrefix(p, RulesPrefix) && len(p) > len(RulesPrefix) && !seen[p] {
					seen[p] = true
					paths = append(paths, p)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return paths, nil
}
