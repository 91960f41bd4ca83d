package builtins

import (
	"github.com/bhuvan-advantix/Back-testing/internal/domain"
	"github.com/bhuvan-advantix/Back-testing/internal/marketdata"
	"github.com/bhuvan-advantix/Back-testing/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Variant = (*ConfidenceWeighted)(nil)

// ConfidenceWeighted sizes each pick in proportion to the provider's
// confidence: weights are the candidates' scores normalized to sum to one.
type ConfidenceWeighted struct {
	name string
	max  int
}

// NewConfidenceWeighted creates a ConfidenceWeighted variant holding at most
// max positions.
func NewConfidenceWeighted(name string, max int) *ConfidenceWeighted {
	return &ConfidenceWeighted{name: name, max: max}
}

// Name returns the configured variant name.
func (v *ConfidenceWeighted) Name() string {
	return v.name
}

// Decide normalizes candidate scores into target weights. A degenerate
// all-zero score set falls back to equal weighting rather than producing an
// empty book.
func (v *ConfidenceWeighted) Decide(view *marketdata.View, cands []domain.Candidate, _ strategy.PortfolioView) []domain.Target {
	picks := tradeable(view, cands)
	if len(picks) > v.max {
		picks = picks[:v.max]
	}
	if len(picks) == 0 {
		return nil
	}

	var total float64
	for _, c := range picks {
		total += c.Score
	}

	targets := make([]domain.Target, 0, len(picks))
	for _, c := range picks {
		w := 1.0 / float64(len(picks))
		if total > 0 {
			w = c.Score / total
		}
		targets = append(targets, domain.Target{Symbol: c.Symbol, Weight: w})
	}
	strategy.SortTargets(targets)
	return targets
}
