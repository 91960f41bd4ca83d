// Package strategy defines the Variant interface for stock-selection
// policies under comparison and provides a Registry for managing multiple
// variants.
package strategy

import (
	"sort"

	"github.com/bhuvan-advantix/Back-testing/internal/domain"
	"github.com/bhuvan-advantix/Back-testing/internal/marketdata"
)

// PortfolioView is the read-only window onto a ledger that variants reason
// about. Variants never receive the ledger itself, so they cannot mutate
// capital state.
type PortfolioView interface {
	// Cash returns current free cash.
	Cash() float64

	// Positions returns copies of all open positions, sorted by symbol.
	Positions() []domain.Position

	// HasPosition reports whether the symbol is currently held.
	HasPosition(symbol string) bool
}

// Variant is one named strategy policy. Decide is a pure function of its
// inputs: the date-bounded market view, the day's ranked candidates, and the
// portfolio view. It returns desired target positions as equity-weight
// fractions, best first. Implementations must not retain or mutate any
// argument and must not consult data sources of their own; the view is all
// the market they get to see.
type Variant interface {
	// Name returns the unique identifier for this variant.
	Name() string

	// Decide maps (market view, candidates, portfolio) to desired targets.
	Decide(view *marketdata.View, cands []domain.Candidate, portfolio PortfolioView) []domain.Target
}

// Registry holds a named collection of variants for lookup and enumeration.
type Registry struct {
	variants map[string]Variant
}

// NewRegistry creates an empty variant Registry.
func NewRegistry() *Registry {
	return &Registry{
		variants: make(map[string]Variant),
	}
}

// Register adds a variant to the registry, keyed by its Name().
func (r *Registry) Register(v Variant) {
	r.variants[v.Name()] = v
}

// Get retrieves a variant by name. The second return value indicates whether
// the variant was found.
func (r *Registry) Get(name string) (Variant, bool) {
	v, ok := r.variants[name]
	return v, ok
}

// List returns a sorted slice of all registered variant names. The
// simulation loop iterates variants in this order, which is part of the
// determinism guarantee.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.variants))
	for name := range r.variants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SortTargets orders targets by weight descending, then symbol ascending,
// the order in which competing buys are considered when position slots run
// out.
func SortTargets(targets []domain.Target) {
	sort.Slice(targets, func(i, j int) bool {
		if targets[i].Weight != targets[j].Weight {
			return targets[i].Weight > targets[j].Weight
		}
		return targets[i].Symbol < targets[j].Symbol
	})
}
