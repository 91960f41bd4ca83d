package metrics

import (
	"math"
	"testing"
	"time"

	"github.com/bhuvan-advantix/Back-testing/internal/domain"
	"github.com/bhuvan-advantix/Back-testing/internal/engine"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func curve(equities ...float64) []domain.EquityPoint {
	points := make([]domain.EquityPoint, 0, len(equities))
	for i, eq := range equities {
		points = append(points, domain.EquityPoint{Date: day(i + 1), Equity: eq})
	}
	return points
}

func trades(pnls ...float64) []domain.Trade {
	out := make([]domain.Trade, 0, len(pnls))
	for _, pnl := range pnls {
		out = append(out, domain.Trade{Symbol: "AAPL", PnL: pnl})
	}
	return out
}

func TestComputeTradeStats(t *testing.T) {
	r := engine.Result{
		Variant:     "top3",
		Timeframe:   domain.TimeframeDaily,
		Trades:      trades(100, -50, 25),
		EquityCurve: curve(1000, 1075),
	}
	s := Compute(r, 1000, 252)

	if s.Trades != 3 {
		t.Errorf("Trades = %d, want 3", s.Trades)
	}
	if want := 2.0 / 3.0; math.Abs(s.WinRate-want) > 1e-9 {
		t.Errorf("WinRate = %v, want %v", s.WinRate, want)
	}
	if math.Abs(s.AvgWin-62.5) > 1e-9 {
		t.Errorf("AvgWin = %v, want 62.5", s.AvgWin)
	}
	if math.Abs(s.AvgLoss-50) > 1e-9 {
		t.Errorf("AvgLoss = %v, want 50", s.AvgLoss)
	}
	// 2/3 * 62.5 - 1/3 * 50 = 25 per trade.
	if math.Abs(s.Expectancy-25) > 1e-9 {
		t.Errorf("Expectancy = %v, want 25", s.Expectancy)
	}
	if want := 0.075; math.Abs(s.TotalReturn-want) > 1e-9 {
		t.Errorf("TotalReturn = %v, want %v", s.TotalReturn, want)
	}
}

func TestComputeNoTradesIsNeutral(t *testing.T) {
	r := engine.Result{Variant: "idle", Timeframe: domain.TimeframeDaily, EquityCurve: curve(1000, 1000)}
	s := Compute(r, 1000, 252)

	for name, v := range map[string]float64{
		"WinRate":     s.WinRate,
		"AvgWin":      s.AvgWin,
		"AvgLoss":     s.AvgLoss,
		"Expectancy":  s.Expectancy,
		"TotalReturn": s.TotalReturn,
		"MaxDrawdown": s.MaxDrawdown,
		"Sharpe":      s.Sharpe,
	} {
		if v != 0 {
			t.Errorf("%s = %v, want 0", name, v)
		}
		if math.IsNaN(v) {
			t.Errorf("%s is NaN", name)
		}
	}
}

func TestComputeEmptyCurveUsesInitialCash(t *testing.T) {
	s := Compute(engine.Result{Variant: "v"}, 1000, 252)
	if s.FinalEquity != 1000 {
		t.Errorf("FinalEquity = %v, want initial cash", s.FinalEquity)
	}
	if s.TotalReturn != 0 {
		t.Errorf("TotalReturn = %v, want 0", s.TotalReturn)
	}
}

func TestMaxDrawdown(t *testing.T) {
	r := engine.Result{EquityCurve: curve(1000, 1200, 900, 1100, 800)}
	s := Compute(r, 1000, 252)

	// Peak 1200 to trough 800 is a one-third decline.
	if want := 1.0 / 3.0; math.Abs(s.MaxDrawdown-want) > 1e-9 {
		t.Errorf("MaxDrawdown = %v, want %v", s.MaxDrawdown, want)
	}
}

func TestSharpeFlatCurveIsZero(t *testing.T) {
	r := engine.Result{EquityCurve: curve(1000, 1000, 1000)}
	if s := Compute(r, 1000, 252); s.Sharpe != 0 {
		t.Errorf("Sharpe = %v, want 0 for zero-variance returns", s.Sharpe)
	}
}

func TestSharpePositiveForSteadyGains(t *testing.T) {
	r := engine.Result{EquityCurve: curve(1000, 1010, 1021, 1030)}
	s := Compute(r, 1000, 252)
	if s.Sharpe <= 0 {
		t.Errorf("Sharpe = %v, want positive for a rising curve", s.Sharpe)
	}
	if math.IsNaN(s.Sharpe) || math.IsInf(s.Sharpe, 0) {
		t.Errorf("Sharpe = %v, want finite", s.Sharpe)
	}
}

func TestRank(t *testing.T) {
	summaries := []Summary{
		{Variant: "a", Timeframe: "daily", TotalReturn: 0.10, WinRate: 0.5},
		{Variant: "b", Timeframe: "daily", TotalReturn: 0.20, WinRate: 0.4},
		{Variant: "c", Timeframe: "daily", TotalReturn: -0.05, WinRate: 0.7},
	}
	rankings := Rank(summaries)
	if len(rankings) != 1 {
		t.Fatalf("rankings = %d, want 1", len(rankings))
	}
	r := rankings[0]
	if r.BestByReturn != "b" || r.WorstByReturn != "c" {
		t.Errorf("by return: best=%s worst=%s, want b/c", r.BestByReturn, r.WorstByReturn)
	}
	if r.BestByWinRate != "c" || r.WorstByWinRate != "b" {
		t.Errorf("by win rate: best=%s worst=%s, want c/b", r.BestByWinRate, r.WorstByWinRate)
	}
}

func TestRankTieBreaks(t *testing.T) {
	// Equal returns: the lower drawdown wins; equal drawdowns fall back
	// to the lexicographically smaller name.
	summaries := []Summary{
		{Variant: "b", Timeframe: "daily", TotalReturn: 0.10, MaxDrawdown: 0.20},
		{Variant: "a", Timeframe: "daily", TotalReturn: 0.10, MaxDrawdown: 0.05},
		{Variant: "c", Timeframe: "daily", TotalReturn: 0.10, MaxDrawdown: 0.05},
	}
	r := Rank(summaries)[0]
	if r.BestByReturn != "a" {
		t.Errorf("BestByReturn = %s, want a (lower drawdown, then name)", r.BestByReturn)
	}

	// Reordering the input must not change the answer.
	for i := 0; i < len(summaries); i++ {
		rotated := append(summaries[i:], summaries[:i]...)
		if got := Rank(rotated)[0].BestByReturn; got != "a" {
			t.Errorf("rotation %d: BestByReturn = %s, want a", i, got)
		}
	}
}

func TestRankGroupsByTimeframe(t *testing.T) {
	summaries := []Summary{
		{Variant: "a", Timeframe: "weekly", TotalReturn: 0.10},
		{Variant: "b", Timeframe: "daily", TotalReturn: 0.20},
	}
	rankings := Rank(summaries)
	if len(rankings) != 2 {
		t.Fatalf("rankings = %d, want one per timeframe", len(rankings))
	}
	if rankings[0].Timeframe != "daily" || rankings[1].Timeframe != "weekly" {
		t.Errorf("order = %s, %s; want daily then weekly", rankings[0].Timeframe, rankings[1].Timeframe)
	}
}
