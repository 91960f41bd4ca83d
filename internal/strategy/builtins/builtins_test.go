package builtins

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/bhuvan-advantix/Back-testing/internal/config"
	"github.com/bhuvan-advantix/Back-testing/internal/domain"
	"github.com/bhuvan-advantix/Back-testing/internal/ledger"
	"github.com/bhuvan-advantix/Back-testing/internal/marketdata"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func fixtureView(t *testing.T) *marketdata.View {
	t.Helper()
	var bars []domain.Bar
	for _, sym := range []string{"AAPL", "MSFT", "GOOGL", "AMZN"} {
		bars = append(bars, domain.Bar{
			Symbol: sym, Date: day(2),
			Open: 100, High: 101, Low: 99, Close: 100, Volume: 1000000,
		})
	}
	series, err := marketdata.NewSeries(bars)
	if err != nil {
		t.Fatalf("NewSeries: %v", err)
	}
	return series.View(day(2))
}

func cand(sym string, score float64) domain.Candidate {
	return domain.Candidate{Symbol: sym, Score: score, Bias: domain.BiasBullish, AsOf: day(2)}
}

func TestTopK(t *testing.T) {
	view := fixtureView(t)
	v := NewTopK("top2", 2)

	cands := []domain.Candidate{cand("AAPL", 90), cand("MSFT", 80), cand("GOOGL", 70)}
	targets := v.Decide(view, cands, ledger.New(1000))

	if len(targets) != 2 {
		t.Fatalf("targets = %d, want 2", len(targets))
	}
	for _, tg := range targets {
		if math.Abs(tg.Weight-0.5) > 1e-9 {
			t.Errorf("weight for %s = %v, want 0.5", tg.Symbol, tg.Weight)
		}
	}
	if targets[0].Symbol != "AAPL" && targets[1].Symbol != "AAPL" {
		t.Errorf("top-2 should include AAPL: %+v", targets)
	}
}

func TestTopKSkipsBearishAndUnpriced(t *testing.T) {
	view := fixtureView(t)
	v := NewTopK("top3", 3)

	cands := []domain.Candidate{
		cand("AAPL", 90),
		{Symbol: "MSFT", Score: 95, Bias: domain.BiasBearish, AsOf: day(2)}, // shorts not modeled
		cand("ZZZZ", 99), // no bars in view
	}
	targets := v.Decide(view, cands, ledger.New(1000))

	if len(targets) != 1 || targets[0].Symbol != "AAPL" {
		t.Errorf("targets = %+v, want only AAPL", targets)
	}
	if math.Abs(targets[0].Weight-1.0) > 1e-9 {
		t.Errorf("sole pick weight = %v, want full budget 1.0", targets[0].Weight)
	}
}

func TestConfidenceWeighted(t *testing.T) {
	view := fixtureView(t)
	v := NewConfidenceWeighted("conf", 5)

	cands := []domain.Candidate{cand("AAPL", 60), cand("MSFT", 30), cand("GOOGL", 10)}
	targets := v.Decide(view, cands, ledger.New(1000))

	if len(targets) != 3 {
		t.Fatalf("targets = %d, want 3", len(targets))
	}
	bySym := make(map[string]float64)
	var sum float64
	for _, tg := range targets {
		bySym[tg.Symbol] = tg.Weight
		sum += tg.Weight
	}
	if math.Abs(bySym["AAPL"]-0.6) > 1e-9 || math.Abs(bySym["MSFT"]-0.3) > 1e-9 || math.Abs(bySym["GOOGL"]-0.1) > 1e-9 {
		t.Errorf("weights = %v, want 0.6/0.3/0.1", bySym)
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("weights sum = %v, want 1.0", sum)
	}
	// Sorted by weight descending.
	if targets[0].Symbol != "AAPL" {
		t.Errorf("first target = %s, want AAPL", targets[0].Symbol)
	}
}

func TestConfidenceWeightedZeroScores(t *testing.T) {
	view := fixtureView(t)
	v := NewConfidenceWeighted("conf", 5)

	targets := v.Decide(view, []domain.Candidate{cand("AAPL", 0), cand("MSFT", 0)}, ledger.New(1000))
	if len(targets) != 2 {
		t.Fatalf("targets = %d, want 2", len(targets))
	}
	for _, tg := range targets {
		if math.Abs(tg.Weight-0.5) > 1e-9 {
			t.Errorf("zero-score fallback weight for %s = %v, want 0.5", tg.Symbol, tg.Weight)
		}
	}
}

func TestEqualWeightCap(t *testing.T) {
	view := fixtureView(t)
	v := NewEqualWeight("eq", 2)

	cands := []domain.Candidate{cand("AAPL", 90), cand("MSFT", 80), cand("GOOGL", 70)}
	targets := v.Decide(view, cands, ledger.New(1000))

	if len(targets) != 2 {
		t.Fatalf("targets = %d, want capped at 2", len(targets))
	}
	for _, tg := range targets {
		if math.Abs(tg.Weight-0.5) > 1e-9 {
			t.Errorf("weight = %v, want 0.5", tg.Weight)
		}
	}
}

func TestEmptyCandidatesMeansNoTargets(t *testing.T) {
	view := fixtureView(t)
	if got := NewTopK("t", 3).Decide(view, nil, ledger.New(1000)); len(got) != 0 {
		t.Errorf("TopK on empty candidates = %+v, want none", got)
	}
	if got := NewConfidenceWeighted("c", 3).Decide(view, nil, ledger.New(1000)); len(got) != 0 {
		t.Errorf("ConfidenceWeighted on empty candidates = %+v, want none", got)
	}
	if got := NewEqualWeight("e", 3).Decide(view, nil, ledger.New(1000)); len(got) != 0 {
		t.Errorf("EqualWeight on empty candidates = %+v, want none", got)
	}
}

func TestFromConfig(t *testing.T) {
	registry, err := FromConfig([]config.Variant{
		{Name: "top3", Type: "top-k", Params: map[string]int{"k": 3}},
		{Name: "conf", Type: "confidence-weighted"},
		{Name: "eq", Type: "equal-weight", Params: map[string]int{"max": 4}},
	})
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}

	names := registry.List()
	want := []string{"conf", "eq", "top3"}
	if len(names) != len(want) {
		t.Fatalf("List = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("List[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestFromConfigUnknownType(t *testing.T) {
	_, err := FromConfig([]config.Variant{{Name: "x", Type: "martingale"}})
	if err == nil {
		t.Fatal("FromConfig should reject an unknown variant type")
	}
	var ce *domain.ConfigError
	if !errors.As(err, &ce) {
		t.Errorf("error %T, want *domain.ConfigError", err)
	}
}
