package engine

import (
	"github.com/bhuvan-advantix/Back-testing/internal/domain"
)

// Result is the complete outcome of simulating one variant over one
// timeframe: its equity curve, closed trades, and every diagnostic recorded
// along the way.
type Result struct {
	RunID       string
	Variant     string
	Timeframe   domain.Timeframe
	EquityCurve []domain.EquityPoint
	Trades      []domain.Trade
	Diagnostics []domain.Diagnostic

	// Incomplete is set when the run was cancelled between dates; the
	// curve and trades cover only the dates simulated before the stop.
	Incomplete bool
}

// FinalEquity returns the last equity snapshot, or the initial cash when no
// date was simulated.
func (r *Result) FinalEquity(initialCash float64) float64 {
	if len(r.EquityCurve) == 0 {
		return initialCash
	}
	return r.EquityCurve[len(r.EquityCurve)-1].Equity
}
