package builtins

import (
	"github.com/bhuvan-advantix/Back-testing/internal/domain"
	"github.com/bhuvan-advantix/Back-testing/internal/marketdata"
	"github.com/bhuvan-advantix/Back-testing/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Variant = (*TopK)(nil)

// TopK targets an equal-weight basket of the K highest-scored candidates.
type TopK struct {
	name string
	k    int
}

// NewTopK creates a TopK variant with the given name and basket size.
func NewTopK(name string, k int) *TopK {
	return &TopK{name: name, k: k}
}

// Name returns the configured variant name.
func (v *TopK) Name() string {
	return v.name
}

// Decide targets the top K tradeable candidates at equal weight. Fewer than
// K candidates still split the full weight budget equally, so the variant is
// always as invested as its candidates allow.
func (v *TopK) Decide(view *marketdata.View, cands []domain.Candidate, _ strategy.PortfolioView) []domain.Target {
	picks := tradeable(view, cands)
	if len(picks) > v.k {
		picks = picks[:v.k]
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
