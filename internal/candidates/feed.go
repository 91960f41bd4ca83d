// Package candidates defines the suggestion-provider interface the
// simulation queries each date, a prioritized fallback chain over multiple
// providers, an AI-backed implementation, and a query-keyed cache wrapper.
package candidates

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"

	"github.com/bhuvan-advantix/Back-testing/internal/domain"
)

// Feed produces ranked candidate symbols for one date. Implementations must
// only use information available up to that date; the simulation loop
// verifies the AsOf field of every candidate and treats a future-dated answer
// as a fatal integrity violation rather than trusting the feed.
type Feed interface {
	// Name returns the provider identifier, e.g. "openai", "static".
	Name() string

	// Suggest returns candidates for the date, drawn from the universe,
	// ordered best-first. Failures are reported as errors wrapping
	// domain.ErrProviderTimeout or domain.ErrProviderError.
	Suggest(ctx context.Context, date time.Time, universe []string) ([]domain.Candidate, error)
}

// SortCandidates orders candidates by score descending, then symbol
// ascending. Every feed result passes through here so candidate order, and
// with it the whole simulation, is deterministic.
func SortCandidates(cands []domain.Candidate) {
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].Score != cands[j].Score {
			return cands[i].Score > cands[j].Score
		}
		return cands[i].Symbol < cands[j].Symbol
	})
}

// UniverseHash returns the content-address of a universe: the hex SHA-256 of
// its sorted symbols. Cache entries are keyed by it, so the same universe
// always maps to the same entry regardless of symbol order.
func UniverseHash(universe []string) string {
	sorted := make([]string, len(universe))
	copy(sorted, universe)
	sort.Strings(sorted)

	sum := sha256.Sum256([]byte(strings.Join(sorted, ",")))
	return hex.EncodeToString(sum[:])
}
