// Package reconcile runs the per-record reconciliation policy over the whole
// store: refresh records from their remote source, repair dead sources via
// search, mark what cannot be repaired as Broken, and keep self-managed
// records Active.
package reconcile

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/noxenys/AI-Knowledge-Agent/pkg/constants"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/fetch"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/logging"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/notify"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/records"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/retry"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/store"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/upsert"
)

// ProvenancePrefix starts every piece of content copied from a remote source.
const ProvenancePrefix = "Auto-synced from Source: "

// Annotate prefixes text with its source URL.
func Annotate(url, text string) string {
	return ProvenancePrefix + url + "\n\n" + text
}

// Resolver finds a replacement for a dead source URL.
type Resolver interface {
	Resolve(ctx context.Context, title, originalURL string) (string, bool)
}

// Snapshotter dumps the whole store once per cycle.
type Snapshotter interface {
	Snapshot(ctx context.Context) error
}

// Discoverer adds new records from outside the store.
type Discoverer interface {
	Discover(ctx context.Context) (upsert.Stats, error)
}

// Reconciler owns one reconciliation cycle.
type Reconciler struct {
	store      store.Store
	fetcher    fetch.Fetcher
	resolver   Resolver
	upserter   upsert.Upserter
	notifier   notify.Notifier
	backup     Snapshotter
	discoverer Discoverer
	pageDelay  time.Duration
	sleeper    retry.Sleeper
	now        func() time.Time
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithNotifier sets where healing, Broken and report messages go.
func WithNotifier(n notify.Notifier) Option {
	return func(r *Reconciler) {
		r.notifier = n
	}
}

// WithSnapshotter sets the end-of-cycle backup.
func WithSnapshotter(s Snapshotter) Option {
	return func(r *Reconciler) {
		r.backup = s
	}
}

// WithDiscoverer adds a discovery pass after the existing records.
func WithDiscoverer(d Discoverer) Option {
	return func(r *Reconciler) {
		r.discoverer = d
	}
}

// WithPageDelay sets the pause after each listed page.
func WithPageDelay(d time.Duration) Option {
	return func(r *Reconciler) {
		r.pageDelay = d
	}
}

// WithSleeper overrides how pauses are taken.
func WithSleeper(s retry.Sleeper) Option {
	return func(r *Reconciler) {
		if s != nil {
			r.sleeper = s
		}
	}
}

// WithClock overrides the time source used for cycle timing.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) {
		if now != nil {
			r.now = now
		}
	}
}

// New returns a Reconciler. resolver may be nil, which disables healing.
func New(s store.Store, f fetch.Fetcher, resolver Resolver, u upsert.Upserter, opts ...Option) *Reconciler {
	r := &Reconciler{
		store:     s,
		fetcher:   f,
		resolver:  resolver,
		upserter:  u,
		notifier:  notify.Log{},
		pageDelay: constants.PageDelay,
		sleeper:   retry.RealSleeper,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Result summarizes one cycle.
type Result struct {
	Stats     upsert.Stats
	Discovery upsert.Stats
	Decisions map[Decision]int
	Records   int
	Started   time.Time
	Duration  time.Duration
	BackupErr error
}

// Total returns reconciliation and discovery stats combined.
func (res *Result) Total() upsert.Stats {
	total := res.Stats
	total.Merge(res.Discovery)
	return total
}

// RunCycle reconciles every record, runs discovery, takes a backup and sends
// the report. Only a listing failure or cancellation returns an error.
func (r *Reconciler) RunCycle(ctx context.Context) (*Result, error) {
	logger := logging.Ctx(ctx)
	res := &Result{Decisions: make(map[Decision]int), Started: r.now()}

	logger.Info().Msg("Reconciliation cycle started")

	pause := func(ctx context.Context) error {
		return r.sleeper.Sleep(ctx, r.pageDelay)
	}
	err := store.Walk(ctx, r.store, pause, func(rec *records.Record) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if rec.Title == "" {
			logger.Warn().Str("id", rec.ID).Msg("Record without title ignored")
			return nil
		}
		d, o := r.ReconcileRecord(ctx, rec)
		if err := ctx.Err(); err != nil {
			return err
		}
		res.Records++
		res.Decisions[d]++
		res.Stats.Add(o)
		return nil
	})
	if err != nil {
		res.Duration = r.now().Sub(res.Started)
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		return res, fmt.Errorf("listing records: %w", err)
	}

	if r.discoverer != nil {
		ds, err := r.discoverer.Discover(ctx)
		res.Discovery = ds
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			logger.Warn().Err(err).Msg("Discovery pass failed")
		}
	}

	if r.backup != nil {
		if err := r.backup.Snapshot(ctx); err != nil {
			res.BackupErr = err
			logger.Error().Err(err).Msg("Backup failed")
			notify.Best(ctx, r.notifier, notify.BackupFailed(err))
		}
	}

	res.Duration = r.now().Sub(res.Started)
	summary := res.Total().Summary()
	logger.Info().
		Int("records", res.Records).
		Dur("duration", res.Duration).
		Str("summary", summary).
		Msg("Reconciliation cycle finished")
	notify.Best(ctx, r.notifier, notify.Report(summary))

	return res, nil
}

// ReconcileRecord applies the policy to one record. It never panics and
// never returns an error: failures surface as upsert.Error.
func (r *Reconciler) ReconcileRecord(ctx context.Context, rec *records.Record) (d Decision, o upsert.Outcome) {
	ctx = logging.WithRecord(ctx, rec.Title)
	logger := logging.Ctx(ctx)

	defer func() {
		if p := recover(); p != nil {
			logger.Error().Interface("panic", p).Msg("Record reconciliation panicked")
			o = upsert.Error
		}
	}()

	obs := Observation{SelfManaged: rec.SelfManaged(), Status: rec.Status}
	if obs.SelfManaged {
		d = Decide(obs)
		return d, r.apply(ctx, rec, d, "", "")
	}

	source := rec.SourceURL
	fetched := r.fetcher.Fetch(ctx, source)
	if fetched.OK() {
		obs.Reachable = true
		obs.ContentMatches = contentMatches(rec, source, fetched.Text)
		d = Decide(obs)
		if d == DecisionRefresh && rec.Status != records.StatusActive {
			logger.Info().Str("status", rec.Status.String()).Msg("Source reachable again, restoring Active")
		}
		return d, r.apply(ctx, rec, d, source, fetched.Text)
	}

	if ctx.Err() != nil {
		return DecisionSkip, upsert.Skipped
	}
	logger.Warn().Str("source", source).Str("kind", fetched.Kind.String()).Msg("Source unreachable, attempting to heal")

	var replacement string
	var replacementText string
	if r.resolver != nil {
		if u, ok := r.resolver.Resolve(ctx, rec.Title, source); ok {
			if healed := r.fetcher.Fetch(ctx, u); healed.OK() {
				obs.Healed = true
				replacement, replacementText = u, healed.Text
			} else {
				logger.Warn().Str("replacement", u).Msg("Replacement source unreachable")
			}
		}
	}

	if ctx.Err() != nil {
		return DecisionSkip, upsert.Skipped
	}

	d = Decide(obs)
	if d == DecisionHealed {
		return d, r.apply(ctx, rec, d, replacement, replacementText)
	}
	return d, r.apply(ctx, rec, d, source, "")
}

// contentMatches reports whether the stored content is the remote text as
// written by a refresh, by discovery, or verbatim.
func contentMatches(rec *records.Record, source, text string) bool {
	local := rec.Hash()
	if local == records.ContentHash(text) || local == records.ContentHash(Annotate(source, text)) {
		return true
	}
	return strings.HasSuffix(rec.Content, records.QuoteSource(source, text))
}

func (r *Reconciler) apply(ctx context.Context, rec *records.Record, d Decision, url, remote string) upsert.Outcome {
	logger := logging.Ctx(ctx)

	var p upsert.Params
	switch d {
	case DecisionSkip, DecisionStayBroken:
		logger.Debug().Str("decision", d.String()).Msg("No write needed")
		return upsert.Skipped
	case DecisionForceActive:
		logger.Info().Str("status", rec.Status.String()).Msg("Self-managed record restored to Active")
		p = params(rec, rec.Content, "", records.StatusActive)
	case DecisionRefresh, DecisionHealed:
		p = params(rec, Annotate(url, remote), url, records.StatusActive)
	case DecisionMarkBroken:
		p = params(rec, rec.Content, url, records.StatusBroken)
	default:
		logger.Error().Str("decision", d.String()).Msg("Unhandled decision")
		return upsert.Error
	}

	o := r.upserter.Upsert(ctx, p)
	if o == upsert.Error {
		return o
	}

	switch d {
	case DecisionHealed:
		logger.Info().Str("old", rec.SourceURL).Str("new", url).Msg("Dead link repaired")
		notify.Best(ctx, r.notifier, notify.Healed(rec.Title, rec.SourceURL, url))
	case DecisionMarkBroken:
		logger.Warn().Str("source", url).Msg("Healing failed, record marked Broken")
		notify.Best(ctx, r.notifier, notify.Broken(rec.Title, url))
	case DecisionSkip, DecisionForceActive, DecisionRefresh, DecisionStayBroken:
	}
	return o
}

func params(rec *records.Record, content, url string, status records.Status) upsert.Params {
	return upsert.Params{
		Title:     rec.Title,
		Content:   content,
		Tag:       rec.Tag,
		Status:    status,
		SourceURL: url,
	}
}
