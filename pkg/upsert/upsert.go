// Package upsert writes one record into the store by natural key, skipping
// the write entirely when nothing observable would change.
package upsert

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/noxenys/AI-Knowledge-Agent/pkg/errors"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/logging"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/records"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/retry"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/store"
)

// Outcome is the per-call result counted into cycle stats.
type Outcome int

// Outcomes.
const (
	Created Outcome = iota
	Updated
	Skipped
	Error
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case Updated:
		return "updated"
	case Skipped:
		return "skipped"
	case Error:
		return "error"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Params is the desired state of one record.
type Params struct {
	Title     string
	Content   string
	Tag       records.Tag
	Status    records.Status
	SourceURL string
}

// Validate reports missing or malformed fields. Unknown tags fall back to
// the default tag; an unknown status is rejected.
func (p *Params) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return errors.NewValidationError("title", p.Title, "title is required")
	}
	if p.Content == "" {
		return errors.NewValidationError("content", "", "content is required")
	}
	if p.Tag == records.TagUnknown {
		p.Tag = records.DefaultTag
	}
	if !p.Tag.Valid() {
		return errors.NewValidationError("tag", p.Tag.String(), "must be Skill or MCP")
	}
	if !p.Status.Valid() {
		return errors.NewValidationError("status", p.Status.String(), "must be Active, Broken or Review")
	}
	return nil
}

func (p Params) fields() store.Fields {
	return store.Fields{
		Title:     p.Title,
		Content:   p.Content,
		Tag:       p.Tag,
		Status:    p.Status,
		SourceURL: p.SourceURL,
	}
}

// Upserter is the write path used by the reconciler and the discovery pass.
type Upserter interface {
	Upsert(ctx context.Context, p Params) Outcome
}

// Engine is the default Upserter.
type Engine struct {
	store   store.Store
	policy  retry.Policy
	sleeper retry.Sleeper
	locks   *keyedMutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithPolicy overrides the create retry budget.
func WithPolicy(p retry.Policy) Option {
	return func(e *Engine) {
		e.policy = p
	}
}

// WithSleeper overrides how the engine waits between create attempts.
func WithSleeper(s retry.Sleeper) Option {
	return func(e *Engine) {
		if s != nil {
			e.sleeper = s
		}
	}
}

// New returns an Engine writing to s.
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:   s,
		policy:  retry.DefaultPolicy(),
		sleeper: retry.RealSleeper,
		locks:   newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Upsert implements Upserter. Failures are logged and reported as Error.
func (e *Engine) Upsert(ctx context.Context, p Params) Outcome {
	outcome, _, err := e.Save(ctx, p)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("title", p.Title).Msg("Upsert failed")
	}
	return outcome
}

// Save is Upsert with the resulting record and error exposed.
func (e *Engine) Save(ctx context.Context, p Params) (Outcome, *records.Record, error) {
	if err := p.Validate(); err != nil {
		return Error, nil, err
	}

	unlock := e.locks.Lock(p.Title)
	defer unlock()

	logger := logging.Ctx(ctx).With().Str("title", p.Title).Logger()

	existing, err := e.store.GetByTitle(ctx, p.Title)
	switch {
	case errors.IsNotFound(err):
		rec, err := e.create(ctx, p)
		if err != nil {
			return Error, nil, err
		}
		logger.Info().Str("id", rec.ID).Msg("Record created")
		return Created, rec, nil
	case err != nil:
		return Error, nil, errors.WrapResource("lookup", "record", p.Title, err)
	}

	if Unchanged(existing, p) {
		logger.Debug().Str("id", existing.ID).Msg("Record unchanged, skipping write")
		return Skipped, existing, nil
	}

	rec, err := e.store.Update(ctx, existing.ID, p.fields())
	if err != nil {
		return Error, nil, errors.NewStoreWriteError("update", p.Title, existing.ID, err)
	}
	logger.Info().Str("id", existing.ID).Str("status", p.Status.String()).Msg("Record updated")
	return Updated, rec, nil
}

// Unchanged reports whether writing p over existing would change nothing
// the engine tracks: content fingerprint, status and source URL.
func Unchanged(existing *records.Record, p Params) bool {
	return existing.Hash() == records.ContentHash(p.Content) &&
		existing.Status == p.Status &&
		strings.TrimSpace(existing.SourceURL) == strings.TrimSpace(p.SourceURL)
}

func (e *Engine) create(ctx context.Context, p Params) (*records.Record, error) {
	logger := logging.Ctx(ctx)
	var rec *records.Record

	_, attempts, err := retry.Do(ctx, e.policy, e.sleeper, func(attempt int) (retry.Outcome, error) {
		r, err := e.store.Create(ctx, p.fields())
		if err == nil {
			rec = r
			return retry.Succeeded, nil
		}
		if errors.IsValidationError(err) {
			return retry.Terminal, err
		}
		logger.Warn().Err(err).Str("title", p.Title).Int("attempt", attempt).Msg("Create failed")
		return retry.Retryable, err
	})
	if rec != nil {
		return rec, nil
	}
	if errors.IsValidationError(err) {
		return nil, err
	}
	return nil, errors.NewStoreWriteError("create", p.Title, "", fmt.Errorf("after %d attempts: %w", attempts, err))
}

// keyedMutex serializes work per key and forgets keys nobody holds.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

type refLock struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refLock)}
}

// Lock acquires the lock for key and returns its release function.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &refLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
