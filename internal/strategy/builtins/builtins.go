// Package builtins provides the built-in strategy variants that ship with
// the backtesting engine and a factory that builds a registry from
// configuration.
package builtins

import (
	"fmt"

	"github.com/bhuvan-advantix/Back-testing/internal/config"
	"github.com/bhuvan-advantix/Back-testing/internal/domain"
	"github.com/bhuvan-advantix/Back-testing/internal/marketdata"
	"github.com/bhuvan-advantix/Back-testing/internal/strategy"
)

// FromConfig builds a registry containing one variant per configuration
// entry. Unknown types are a configuration error.
func FromConfig(defs []config.Variant) (*strategy.Registry, error) {
	registry := strategy.NewRegistry()
	for _, def := range defs {
		v, err := build(def)
		if err != nil {
			return nil, err
		}
		registry.Register(v)
	}
	return registry, nil
}

func build(def config.Variant) (strategy.Variant, error) {
	switch def.Type {
	case "top-k":
		k := def.Params["k"]
		if k <= 0 {
			k = 3
		}
		return NewTopK(def.Name, k), nil
	case "confidence-weighted":
		return NewConfidenceWeighted(def.Name, maxOrDefault(def.Params)), nil
	case "equal-weight":
		return NewEqualWeight(def.Name, maxOrDefault(def.Params)), nil
	default:
		return nil, &domain.ConfigError{
			Field:  "variants",
			Reason: fmt.Sprintf("unknown variant type %q for %q", def.Type, def.Name),
		}
	}
}

func maxOrDefault(params map[string]int) int {
	if m := params["max"]; m > 0 {
		return m
	}
	return 5
}

// tradeable filters candidates down to bullish symbols that have at least
// one bar visible in the view: a symbol with no price history yet cannot be
// sized, and short positions are not modeled.
func tradeable(view *marketdata.View, cands []domain.Candidate) []domain.Candidate {
	out := make([]domain.Candidate, 0, len(cands))
	for _, c := range cands {
		if c.Bias == domain.BiasBearish {
			continue
		}
		if _, ok := view.Last(c.Symbol); !ok {
			continue
		}
		out = append(out, c)
	}
	return out
}
