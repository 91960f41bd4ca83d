// Package marketdata provides the immutable historical bar series the
// simulation replays, including date-bounded "as of" views that make
// lookahead structurally impossible, and resampling between timeframes.
package marketdata

import (
	"fmt"
	"sort"
	"time"

	"github.com/bhuvan-advantix/Back-testing/internal/domain"
)

// Series is a normalized per-symbol historical bar sequence. It is built
// once, validated, and never mutated afterwards; the simulation loop owns it
// for the duration of a run and hands out read-only views.
type Series struct {
	bars    map[string][]domain.Bar // per symbol, ascending by date
	symbols []string                // sorted
	dates   []time.Time             // union of all bar dates, ascending
}

// NewSeries builds a Series from a flat bar slice. Bars for each symbol must
// have strictly increasing dates with no duplicates; violations are rejected
// so a malformed feed cannot corrupt a run.
func NewSeries(bars []domain.Bar) (*Series, error) {
	bySymbol := make(map[string][]domain.Bar)
	for _, b := range bars {
		if b.Symbol == "" {
			return nil, fmt.Errorf("bar with empty symbol at %s", b.Date.Format("2006-01-02"))
		}
		bySymbol[b.Symbol] = append(bySymbol[b.Symbol], b)
	}

	dateSet := make(map[time.Time]struct{})
	symbols := make([]string, 0, len(bySymbol))
	for sym, sbars := range bySymbol {
		sort.Slice(sbars, func(i, j int) bool { return sbars[i].Date.Before(sbars[j].Date) })
		for i := 1; i < len(sbars); i++ {
			if !sbars[i].Date.After(sbars[i-1].Date) {
				return nil, fmt.Errorf("duplicate bar for %s on %s", sym, sbars[i].Date.Format("2006-01-02"))
			}
		}
		bySymbol[sym] = sbars
		symbols = append(symbols, sym)
		for _, b := range sbars {
			dateSet[b.Date] = struct{}{}
		}
	}
	sort.Strings(symbols)

	dates := make([]time.Time, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	return &Series{bars: bySymbol, symbols: symbols, dates: dates}, nil
}

// Symbols returns all symbols in the series, sorted.
func (s *Series) Symbols() []string {
	out := make([]string, len(s.symbols))
	copy(out, s.symbols)
	return out
}

// Dates returns every session date in [start, end] on which at least one
// symbol has a bar, in ascending order. This is the simulation clock.
func (s *Series) Dates(start, end time.Time) []time.Time {
	var out []time.Time
	for _, d := range s.dates {
		if d.Before(start) || d.After(end) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// At returns the bar for symbol on exactly the given date.
func (s *Series) At(symbol string, date time.Time) (domain.Bar, bool) {
	sbars := s.bars[symbol]
	i := sort.Search(len(sbars), func(i int) bool { return !sbars[i].Date.Before(date) })
	if i < len(sbars) && sbars[i].Date.Equal(date) {
		return sbars[i], true
	}
	return domain.Bar{}, false
}

// NextOn returns the first bar for symbol dated on or after date.
func (s *Series) NextOn(symbol string, date time.Time) (domain.Bar, bool) {
	sbars := s.bars[symbol]
	i := sort.Search(len(sbars), func(i int) bool { return !sbars[i].Date.Before(date) })
	if i < len(sbars) {
		return sbars[i], true
	}
	return domain.Bar{}, false
}

// View returns the as-of snapshot of the series at the given date. Only bars
// dated on or before asOf are reachable through it.
func (s *Series) View(asOf time.Time) *View {
	return &View{series: s, asOf: asOf}
}

// View is a date-bounded, read-only window over a Series. It is the only
// market-data surface strategies ever see, which is what enforces the
// no-lookahead guarantee: data beyond AsOf is not reachable through it.
type View struct {
	series *Series
	asOf   time.Time
}

// AsOf returns the view's boundary date.
func (v *View) AsOf() time.Time {
	return v.asOf
}

// Symbols returns all symbols in the underlying series, sorted.
func (v *View) Symbols() []string {
	return v.series.Symbols()
}

// Bars returns all bars for symbol dated on or before the boundary,
// ascending.
func (v *View) Bars(symbol string) []domain.Bar {
	sbars := v.series.bars[symbol]
	i := sort.Search(len(sbars), func(i int) bool { return sbars[i].Date.After(v.asOf) })
	out := make([]domain.Bar, i)
	copy(out, sbars[:i])
	return out
}

// Last returns the most recent bar for symbol at or before the boundary.
func (v *View) Last(symbol string) (domain.Bar, bool) {
	sbars := v.series.bars[symbol]
	i := sort.Search(len(sbars), func(i int) bool { return sbars[i].Date.After(v.asOf) })
	if i == 0 {
		return domain.Bar{}, false
	}
	return sbars[i-1], true
}
