// Package dedupe repairs title uniqueness: for every title shared by more
// than one record it keeps the best candidate and archives the rest.
package dedupe

import (
	"context"
	"fmt"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/noxenys/AI-Knowledge-Agent/pkg/constants"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/logging"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/records"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/retry"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/store"
)

// ContentBonus is the score of a candidate with non-trivial content.
const ContentBonus = 100

// Score returns the content-presence score of r.
func Score(r *records.Record) int {
	if utf8.RuneCountInString(r.Content) > constants.NontrivialContentLength {
		return ContentBonus
	}
	return 0
}

// Better reports whether a should be kept over b: higher score first, then
// earlier creation, then smaller ID.
func Better(a, b *records.Record) bool {
	if sa, sb := Score(a), Score(b); sa != sb {
		return sa > sb
	}
	if !a.CreatedTime.Equal(b.CreatedTime) {
		return a.CreatedTime.Before(b.CreatedTime)
	}
	return a.ID < b.ID
}

// Group is one set of records sharing a title.
type Group struct {
	Title  string            `json:"title" yaml:"title"`
	Winner *records.Record   `json:"winner" yaml:"winner"`
	Losers []*records.Record `json:"losers" yaml:"losers"`
}

// Plan groups recs by title and orders each duplicate group. Groups are
// returned sorted by title; records without a title are ignored.
func Plan(recs []*records.Record) []Group {
	byTitle := make(map[string][]*records.Record)
	for _, r := range recs {
		if r.Title == "" {
			continue
		}
		byTitle[r.Title] = append(byTitle[r.Title], r)
	}

	var groups []Group
	for title, members := range byTitle {
		if len(members) < 2 {
			continue
		}
		sort.SliceStable(members, func(i, j int) bool { return Better(members[i], members[j]) })
		groups = append(groups, Group{Title: title, Winner: members[0], Losers: members[1:]})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Title < groups[j].Title })
	return groups
}

// Report summarizes one run.
type Report struct {
	Scanned  int      `json:"scanned" yaml:"scanned"`
	Groups   []Group  `json:"groups" yaml:"groups"`
	Archived int      `json:"archived" yaml:"archived"`
	Failed   int      `json:"failed" yaml:"failed"`
	DryRun   bool     `json:"dry_run" yaml:"dry_run"`
	Errors   []string `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// Summary returns a one-line description.
func (r *Report) Summary() string {
	if len(r.Groups) == 0 {
		return fmt.Sprintf("No duplicates among %d records", r.Scanned)
	}
	s := fmt.Sprintf("%d duplicate groups among %d records, %d archived", len(r.Groups), r.Scanned, r.Archived)
	if r.Failed > 0 {
		s += fmt.Sprintf(", %d failed", r.Failed)
	}
	if r.DryRun {
		s += " (dry run)"
	}
	return s
}

// Resolver scans the store and archives duplicates.
type Resolver struct {
	store     store.Store
	dryRun    bool
	pageDelay time.Duration
	sleeper   retry.Sleeper
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithDryRun reports what would be archived without archiving.
func WithDryRun(dry bool) Option {
	return func(r *Resolver) {
		r.dryRun = dry
	}
}

// WithPageDelay sets the pause after each listed page.
func WithPageDelay(d time.Duration) Option {
	return func(r *Resolver) {
		r.pageDelay = d
	}
}

// WithSleeper overrides how pauses are taken.
func WithSleeper(s retry.Sleeper) Option {
	return func(r *Resolver) {
		if s != nil {
			r.sleeper = s
		}
	}
}

// New returns a Resolver over s.
func New(s store.Store, opts ...Option) *Resolver {
	r := &Resolver{store: s, pageDelay: constants.PageDelay, sleeper: retry.RealSleeper}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run scans every record and archives the losers of each duplicate group.
// A listing failure aborts before anything is archived; archive failures are
// counted and the run continues.
func (r *Resolver) Run(ctx context.Context) (*Report, error) {
	logger := logging.Ctx(ctx)

	all, err := store.All(ctx, r.store, func(ctx context.Context) error {
		return r.sleeper.Sleep(ctx, r.pageDelay)
	})
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}

	report := &Report{Scanned: len(all), Groups: Plan(all), DryRun: r.dryRun}
	logger.Info().Int("records", len(all)).Int("groups", len(report.Groups)).Msg("Duplicate scan finished")

	for _, g := range report.Groups {
		logger.Info().
			Str("title", g.Title).
			Str("winner", g.Winner.ID).
			Time("winner_created", g.Winner.CreatedTime).
			Int("losers", len(g.Losers)).
			Msg("Duplicate group")

		for _, loser := range g.Losers {
			if r.dryRun {
				logger.Info().Str("title", g.Title).Str("id", loser.ID).Msg("Would archive duplicate")
				continue
			}
			if err := ctx.Err(); err != nil {
				return report, err
			}
			if err := r.store.Archive(ctx, loser.ID); err != nil {
				report.Failed++
				report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", loser.ID, err))
				logger.Error().Err(err).Str("title", g.Title).Str("id", loser.ID).Msg("Archive failed")
				continue
			}
			report.Archived++
			logger.Info().Str("title", g.Title).Str("id", loser.ID).Msg("Duplicate archived")
		}
	}

	return report, nil
}
