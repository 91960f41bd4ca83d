package candidates

import (
	"context"
	"time"

	"github.com/bhuvan-advantix/Back-testing/internal/domain"
	"github.com/bhuvan-advantix/Back-testing/internal/marketdata"
)

// Compile-time interface check.
var _ Feed = (*StaticFeed)(nil)

// StaticFeed serves a fixed per-date candidate table. It backs offline
// replays and tests, where determinism matters more than fresh opinions.
type StaticFeed struct {
	byDate map[time.Time][]domain.Candidate
}

// NewStaticFeed creates a StaticFeed from a date-keyed candidate table. Dates
// are compared by UTC day.
func NewStaticFeed(byDate map[time.Time][]domain.Candidate) *StaticFeed {
	normalized := make(map[time.Time][]domain.Candidate, len(byDate))
	for d, cands := range byDate {
		normalized[marketdata.Day(d)] = cands
	}
	return &StaticFeed{byDate: normalized}
}

// Name returns "static".
func (f *StaticFeed) Name() string {
	return "static"
}

// Suggest returns the fixture candidates for the date, sorted. Dates with no
// entry yield an empty list, which is a valid answer, not an error.
func (f *StaticFeed) Suggest(_ context.Context, date time.Time, _ []string) ([]domain.Candidate, error) {
	src := f.byDate[marketdata.Day(date)]

	cands := make([]domain.Candidate, len(src))
	copy(cands, src)
	SortCandidates(cands)
	return cands, nil
}
