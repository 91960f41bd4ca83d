// Package metrics computes per-variant performance statistics from
// simulation results and ranks variants against each other.
package metrics

import (
	"math"
	"sort"

	"github.com/bhuvan-advantix/Back-testing/internal/engine"
)

// Summary holds the performance statistics for one variant on one
// timeframe. Ratio fields are fractions, not percentages.
type Summary struct {
	Variant   string
	Timeframe string

	TotalReturn float64 // (final - initial) / initial
	FinalEquity float64

	Trades     int
	WinRate    float64
	AvgWin     float64 // mean PnL of winning trades
	AvgLoss    float64 // mean |PnL| of losing trades
	Expectancy float64 // winRate*avgWin - lossRate*avgLoss, per trade

	MaxDrawdown float64 // worst peak-to-trough equity decline, as a fraction
	Sharpe      float64 // annualized; zero when undefined

	Incomplete bool
}

// Compute derives a Summary from one result. A run with no trades or no
// equity movement yields neutral statistics, never NaN.
func Compute(r engine.Result, initialCash, annualization float64) Summary {
	s := Summary{
		Variant:    r.Variant,
		Timeframe:  string(r.Timeframe),
		Trades:     len(r.Trades),
		Incomplete: r.Incomplete,
	}

	s.FinalEquity = r.FinalEquity(initialCash)
	if initialCash > 0 {
		s.TotalReturn = (s.FinalEquity - initialCash) / initialCash
	}

	var wins, losses int
	var winSum, lossSum float64
	for _, t := range r.Trades {
		if t.PnL > 0 {
			wins++
			winSum += t.PnL
		} else if t.PnL < 0 {
			losses++
			lossSum += -t.PnL
		}
	}
	if len(r.Trades) > 0 {
		s.WinRate = float64(wins) / float64(len(r.Trades))
	}
	if wins > 0 {
		s.AvgWin = winSum / float64(wins)
	}
	if losses > 0 {
		s.AvgLoss = lossSum / float64(losses)
	}
	lossRate := 0.0
	if len(r.Trades) > 0 {
		lossRate = float64(losses) / float64(len(r.Trades))
	}
	s.Expectancy = s.WinRate*s.AvgWin - lossRate*s.AvgLoss

	s.MaxDrawdown = maxDrawdown(r)
	s.Sharpe = sharpe(r, annualization)
	return s
}

// maxDrawdown walks the equity curve and returns the deepest decline from a
// running peak, as a fraction of that peak.
func maxDrawdown(r engine.Result) float64 {
	var peak, worst float64
	for _, p := range r.EquityCurve {
		if p.Equity > peak {
			peak = p.Equity
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - p.Equity) / peak; dd > worst {
			worst = dd
		}
	}
	return worst
}

// sharpe computes the annualized Sharpe ratio over per-period equity
// returns, with a zero risk-free rate. It returns zero when there are fewer
// than two periods or the returns have no variance.
func sharpe(r engine.Result, annualization float64) float64 {
	curve := r.EquityCurve
	if len(curve) < 2 {
		return 0
	}
	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev <= 0 {
			return 0
		}
		returns = append(returns, curve[i].Equity/prev-1)
	}

	var mean float64
	for _, ret := range returns {
		mean += ret
	}
	mean /= float64(len(returns))

	var variance float64
	for _, ret := range returns {
		variance += (ret - mean) * (ret - mean)
	}
	variance /= float64(len(returns))
	if variance == 0 {
		return 0
	}
	if annualization <= 0 {
		annualization = 252
	}
	return mean / math.Sqrt(variance) * math.Sqrt(annualization)
}

// Ranking names the best and worst variants for one timeframe under two
// lenses: total return and win rate.
type Ranking struct {
	Timeframe      string
	BestByReturn   string
	WorstByReturn  string
	BestByWinRate  string
	WorstByWinRate string
}

// Rank orders each timeframe's summaries. Ties break toward the lower max
// drawdown, then the lexicographically smaller variant name, so rankings are
// stable across runs.
func Rank(summaries []Summary) []Ranking {
	byTF := make(map[string][]Summary)
	for _, s := range summaries {
		byTF[s.Timeframe] = append(byTF[s.Timeframe], s)
	}
	tfs := make([]string, 0, len(byTF))
	for tf := range byTF {
		tfs = append(tfs, tf)
	}
	sort.Strings(tfs)

	rankings := make([]Ranking, 0, len(tfs))
	for _, tf := range tfs {
		group := byTF[tf]
		rankings = append(rankings, Ranking{
			Timeframe:      tf,
			BestByReturn:   pick(group, func(s Summary) float64 { return s.TotalReturn }, true),
			WorstByReturn:  pick(group, func(s Summary) float64 { return s.TotalReturn }, false),
			BestByWinRate:  pick(group, func(s Summary) float64 { return s.WinRate }, true),
			WorstByWinRate: pick(group, func(s Summary) float64 { return s.WinRate }, false),
		})
	}
	return rankings
}

func pick(group []Summary, key func(Summary) float64, best bool) string {
	if len(group) == 0 {
		return ""
	}
	chosen := group[0]
	for _, s := range group[1:] {
		if better(s, chosen, key, best) {
			chosen = s
		}
	}
	return chosen.Variant
}

func better(a, b Summary, key func(Summary) float64, best bool) bool {
	ka, kb := key(a), key(b)
	if ka != kb {
		if best {
			return ka > kb
		}
		return ka < kb
	}
	if a.MaxDrawdown != b.MaxDrawdown {
		return a.MaxDrawdown < b.MaxDrawdown
	}
	return a.Variant < b.Variant
}
