// Package store defines storage interfaces for persisting and retrieving
// historical bars and cached candidate suggestions, so repeated runs do not
// repeat external calls.
package store

import (
	"context"
	"time"

	"github.com/bhuvan-advantix/Back-testing/internal/domain"
)

// BarStore persists and retrieves OHLCV bar data.
type BarStore interface {
	// WriteBars persists a batch of bars to storage.
	WriteBars(ctx context.Context, bars []domain.Bar) error

	// ReadBars returns bars for the given symbol within [start, end],
	// ascending by date.
	ReadBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error)

	// ListSymbols returns all distinct symbols available, sorted.
	ListSymbols(ctx context.Context) ([]string, error)
}

// CandidateStore caches candidate suggestions keyed by query, never by
// wall-clock recency: the key is (date, universe hash), so the same question
// always hits the same entry.
type CandidateStore interface {
	// WriteCandidates stores the suggestions returned for one query.
	WriteCandidates(ctx context.Context, date time.Time, universeHash string, cands []domain.Candidate) error

	// ReadCandidates returns the cached suggestions for a query. The second
	// return value reports whether the query was ever answered; an empty
	// cached answer is distinct from a miss.
	ReadCandidates(ctx context.Context, date time.Time, universeHash string) ([]domain.Candidate, bool, error)
}
