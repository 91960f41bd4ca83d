package builtins

import (
	"github.com/bhuvan-advantix/Back-testing/internal/domain"
	"github.com/bhuvan-advantix/Back-testing/internal/marketdata"
	"github.com/bhuvan-advantix/Back-testing/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Variant = (*EqualWeight)(nil)

// EqualWeight ignores scores beyond candidate order and spreads weight
// evenly over every tradeable candidate, up to its position cap. It is the
// baseline the ranked variants are compared against.
type EqualWeight struct {
	name string
	max  int
}

// NewEqualWeight creates an EqualWeight variant holding at most max
// positions.
func NewEqualWeight(name string, max int) *EqualWeight {
	return &EqualWeight{name: name, max: max}
}

// Name returns the configured variant name.
func (v *EqualWeight) Name() string {
	return v.name
}

// Decide targets every tradeable candidate at equal weight.
func (v *EqualWeight) Decide(view *marketdata.View, cands []domain.Candidate, _ strategy.PortfolioView) []domain.Target {
	picks := tradeable(view, cands)
	if len(picks) > v.max {
		picks = picks[:v.max]
	}
	if len(picks) == 0 {
		return nil
	}

	w := 1.0 / float64(len(picks))
	targets := make([]domain.Target, 0, len(picks))
	for _, c := range picks {
		targets = append(targets, domain.Target{Symbol: c.Symbol, Weight: w})
	}
	strategy.SortTargets(targets)
	return targets
}
