// Package retry expresses the bounded, fixed-delay retry policy shared by the
// fetch client and the upsert engine. The decision is a pure function of the
// attempt number and the outcome; sleeping is delegated to a Sleeper so tests
// never wait on real time.
package retry

import (
	"context"
	"time"

	"github.com/noxenys/AI-Knowledge-Agent/pkg/constants"
)

// Outcome classifies the result of one attempt.
type Outcome int

const (
	// Succeeded ends the loop.
	Succeeded Outcome = iota
	// Retryable failures are attempted again while budget remains.
	Retryable
	// Terminal failures end the loop immediately.
	Terminal
)

// Policy is a bounded retry budget with a fixed delay between attempts.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultPolicy returns three attempts spaced two seconds apart.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: constants.MaxAttempts, Delay: constants.RetryDelay}
}

// Next decides what follows attempt (1-based) given its outcome.
func (p Policy) Next(attempt int, outcome Outcome) (retry bool, delay time.Duration) {
	switch outcome {
	case Succeeded, Terminal:
		return false, 0
	case Retryable:
		if attempt < p.attempts() {
			return true, p.Delay
		}
		return false, 0
	}
	return false, 0
}

func (p Policy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Sleeper waits for d or until ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc adapts a function to Sleeper.
type SleeperFunc func(ctx context.Context, d time.Duration) error

// Sleep implements Sleeper.
func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error {
	return f(ctx, d)
}

// RealSleeper sleeps on the wall clock and honors cancellation.
var RealSleeper Sleeper = SleeperFunc(func(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
})

// NoSleep returns immediately unless ctx is already done.
var NoSleep Sleeper = SleeperFunc(func(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
})

// Do runs op until the policy stops it and returns the last outcome, the
// number of attempts made and the last error. A cancelled context while
// waiting between attempts ends the loop with the context error.
func Do(ctx context.Context, p Policy, s Sleeper, op func(attempt int) (Outcome, error)) (Outcome, int, error) {
	if s == nil {
		s = RealSleeper
	}
	attempt := 0
	for {
		attempt++
		outcome, err := op(attempt)
		again, delay := p.Next(attempt, outcome)
		if !again {
			return outcome, attempt, err
		}
		if serr := s.Sleep(ctx, delay); serr != nil {
			return outcome, attempt, serr
		}
	}
}
