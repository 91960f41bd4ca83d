package candidates

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bhuvan-advantix/Back-testing/internal/domain"
)

// Compile-time interface check.
var _ Feed = (*Chain)(nil)

// Chain composes multiple feeds into a prioritized fallback sequence: the
// first provider that answers wins. Originally a hand-wired "primary AI,
// backup AI" arrangement; modeling it as an ordered list keeps provider
// failover out of the simulation loop entirely.
type Chain struct {
	feeds   []Feed
	timeout time.Duration // per-provider attempt budget
	logger  *slog.Logger
}

// NewChain creates a Chain trying the given feeds in order. timeout bounds
// each individual provider attempt; zero means no per-provider bound beyond
// the caller's context.
func NewChain(timeout time.Duration, logger *slog.Logger, feeds ...Feed) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{feeds: feeds, timeout: timeout, logger: logger}
}

// Name returns "chain".
func (c *Chain) Name() string {
	return "chain"
}

// Suggest tries each provider in priority order and returns the first
// successful answer. When every provider fails the combined error wraps
// domain.ErrProviderError so the loop can degrade to an empty candidate list
// and record a diagnostic instead of aborting.
func (c *Chain) Suggest(ctx context.Context, date time.Time, universe []string) ([]domain.Candidate, error) {
	if len(c.feeds) == 0 {
		return nil, fmt.Errorf("%w: no providers configured", domain.ErrProviderError)
	}

	var errs []error
	for _, f := range c.feeds {
		attempt := ctx
		cancel := context.CancelFunc(func() {})
		if c.timeout > 0 {
			attempt, cancel = context.WithTimeout(ctx, c.timeout)
		}

		cands, err := f.Suggest(attempt, date, universe)
		cancel()

		if err == nil {
			return cands, nil
		}

		// A cancelled parent context is not a provider failure; stop trying.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		c.logger.Warn("candidate provider failed, falling back",
			slog.String("provider", f.Name()),
			slog.String("date", date.Format("2006-01-02")),
			slog.String("error", err.Error()))
		errs = append(errs, fmt.Errorf("%s: %w", f.Name(), err))
	}

	return nil, fmt.Errorf("%w: all providers failed: %w", domain.ErrProviderError, errors.Join(errs...))
}
