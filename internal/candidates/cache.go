package candidates

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bhuvan-advantix/Back-testing/internal/domain"
	"github.com/bhuvan-advantix/Back-testing/internal/store"
)

// Compile-time interface check.
var _ Feed = (*CachingFeed)(nil)

// CachingFeed wraps another feed with a persistent query-keyed cache, so
// repeated runs over the same dates and universe never repeat provider
// calls. Cache keys are (date, universe hash); entries never expire by time.
type CachingFeed struct {
	inner  Feed
	cache  store.CandidateStore
	logger *slog.Logger
}

// NewCachingFeed wraps inner with the given candidate cache.
func NewCachingFeed(inner Feed, cache store.CandidateStore, logger *slog.Logger) *CachingFeed {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachingFeed{inner: inner, cache: cache, logger: logger}
}

// Name returns the inner feed's name suffixed with "+cache".
func (f *CachingFeed) Name() string {
	return f.inner.Name() + "+cache"
}

// Suggest answers from the cache when the exact query was answered before,
// and otherwise delegates to the inner feed and stores its answer. Provider
// failures are never cached; only answers are.
func (f *CachingFeed) Suggest(ctx context.Context, date time.Time, universe []string) ([]domain.Candidate, error) {
	hash := UniverseHash(universe)

	cached, hit, err := f.cache.ReadCandidates(ctx, date, hash)
	if err != nil {
		return nil, fmt.Errorf("reading candidate cache: %w", err)
	}
	if hit {
		return cached, nil
	}

	cands, err := f.inner.Suggest(ctx, date, universe)
	if err != nil {
		return nil, err
	}

	if err := f.cache.WriteCandidates(ctx, date, hash, cands); err != nil {
		// A broken cache degrades to pass-through; the answer is still good.
		f.logger.Warn("writing candidate cache failed",
			slog.String("date", date.Format("2006-01-02")),
			slog.String("error", err.Error()))
	}
	return cands, nil
}
