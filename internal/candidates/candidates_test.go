package candidates

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/bhuvan-advantix/Back-testing/internal/domain"
	"github.com/bhuvan-advantix/Back-testing/internal/store"
	"github.com/bhuvan-advantix/Back-testing/internal/util"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// stubFeed answers or fails on demand and counts calls.
type stubFeed struct {
	name  string
	cands []domain.Candidate
	err   error
	calls int
}

func (s *stubFeed) Name() string { return s.name }

func (s *stubFeed) Suggest(_ context.Context, _ time.Time, _ []string) ([]domain.Candidate, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.cands, nil
}

func TestSortCandidates(t *testing.T) {
	cands := []domain.Candidate{
		{Symbol: "MSFT", Score: 70},
		{Symbol: "AAPL", Score: 90},
		{Symbol: "AMZN", Score: 70},
	}
	SortCandidates(cands)

	want := []string{"AAPL", "AMZN", "MSFT"}
	for i, sym := range want {
		if cands[i].Symbol != sym {
			t.Fatalf("order[%d] = %s, want %s (full: %+v)", i, cands[i].Symbol, sym, cands)
		}
	}
}

func TestUniverseHashOrderIndependent(t *testing.T) {
	a := UniverseHash([]string{"AAPL", "MSFT", "GOOGL"})
	b := UniverseHash([]string{"MSFT", "GOOGL", "AAPL"})
	if a != b {
		t.Errorf("hash differs for reordered universe: %s vs %s", a, b)
	}
	c := UniverseHash([]string{"AAPL", "MSFT"})
	if a == c {
		t.Error("hash identical for different universes")
	}
}

func TestChainFallsBack(t *testing.T) {
	primary := &stubFeed{name: "primary", err: fmt.Errorf("%w: boom", domain.ErrProviderError)}
	backup := &stubFeed{name: "backup", cands: []domain.Candidate{{Symbol: "AAPL", Score: 80}}}

	chain := NewChain(0, util.NewLogger("error", "json"), primary, backup)

	cands, err := chain.Suggest(context.Background(), day(2024, 1, 2), []string{"AAPL"})
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(cands) != 1 || cands[0].Symbol != "AAPL" {
		t.Errorf("Suggest = %+v, want backup's answer", cands)
	}
	if primary.calls != 1 || backup.calls != 1 {
		t.Errorf("calls primary=%d backup=%d, want 1 and 1", primary.calls, backup.calls)
	}
}

func TestChainAllFail(t *testing.T) {
	a := &stubFeed{name: "a", err: fmt.Errorf("%w: down", domain.ErrProviderTimeout)}
	b := &stubFeed{name: "b", err: fmt.Errorf("%w: down", domain.ErrProviderError)}

	chain := NewChain(0, util.NewLogger("error", "json"), a, b)

	_, err := chain.Suggest(context.Background(), day(2024, 1, 2), []string{"AAPL"})
	if err == nil {
		t.Fatal("Suggest should fail when every provider fails")
	}
	if !errors.Is(err, domain.ErrProviderError) {
		t.Errorf("error %v should wrap domain.ErrProviderError", err)
	}
}

func TestChainPrimaryWinsWithoutFallback(t *testing.T) {
	primary := &stubFeed{name: "primary", cands: []domain.Candidate{{Symbol: "MSFT", Score: 60}}}
	backup := &stubFeed{name: "backup"}

	chain := NewChain(0, util.NewLogger("error", "json"), primary, backup)

	if _, err := chain.Suggest(context.Background(), day(2024, 1, 2), []string{"MSFT"}); err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if backup.calls != 0 {
		t.Errorf("backup called %d times, want 0 when primary answers", backup.calls)
	}
}

func TestParseSuggestions(t *testing.T) {
	date := day(2024, 1, 2)
	universe := []string{"AAPL", "MSFT", "GOOGL"}

	response := "Here are my picks:\n```json\n" +
		`[
		  {"symbol": "AAPL", "confidence": 85, "bias": "BULLISH", "reason": "momentum"},
		  {"symbol": "MSFT", "confidence": 140, "bias": "BULLISH", "reason": "out of range"},
		  {"symbol": "TSLA", "confidence": 90, "bias": "BULLISH", "reason": "not in universe"},
		  {"symbol": "GOOGL", "confidence": 60, "bias": "SIDEWAYS", "reason": "bad bias"}
		]` + "\n```\nGood luck!"

	cands, err := parseSuggestions(response, date, universe)
	if err != nil {
		t.Fatalf("parseSuggestions: %v", err)
	}
	if len(cands) != 1 {
		t.Fatalf("got %d candidates, want only the valid one: %+v", len(cands), cands)
	}
	c := cands[0]
	if c.Symbol != "AAPL" || c.Score != 85 || c.Bias != domain.BiasBullish {
		t.Errorf("parsed candidate = %+v", c)
	}
	if !c.AsOf.Equal(date) {
		t.Errorf("AsOf = %v, want pinned to queried date %v", c.AsOf, date)
	}
}

func TestParseSuggestionsBareArray(t *testing.T) {
	cands, err := parseSuggestions(
		`[{"symbol": "AAPL", "confidence": 50, "bias": "BEARISH", "reason": "weak"}]`,
		day(2024, 1, 2), []string{"AAPL"})
	if err != nil {
		t.Fatalf("parseSuggestions: %v", err)
	}
	if len(cands) != 1 || cands[0].Bias != domain.BiasBearish {
		t.Errorf("parsed = %+v", cands)
	}
}

func TestParseSuggestionsNoArray(t *testing.T) {
	if _, err := parseSuggestions("I cannot help with that.", day(2024, 1, 2), nil); err == nil {
		t.Error("expected error for response without JSON array")
	}
}

func TestCachingFeed(t *testing.T) {
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer s.Close()

	inner := &stubFeed{name: "stub", cands: []domain.Candidate{
		{Symbol: "AAPL", Score: 85, Bias: domain.BiasBullish, Reason: "r", AsOf: day(2024, 1, 2)},
	}}
	feed := NewCachingFeed(inner, s, util.NewLogger("error", "json"))

	ctx := context.Background()
	universe := []string{"AAPL", "MSFT"}

	first, err := feed.Suggest(ctx, day(2024, 1, 2), universe)
	if err != nil {
		t.Fatalf("Suggest (miss): %v", err)
	}
	second, err := feed.Suggest(ctx, day(2024, 1, 2), universe)
	if err != nil {
		t.Fatalf("Suggest (hit): %v", err)
	}

	if inner.calls != 1 {
		t.Errorf("inner feed called %d times, want 1 (second call served from cache)", inner.calls)
	}
	if len(first) != 1 || len(second) != 1 || first[0].Symbol != second[0].Symbol {
		t.Errorf("cached answer differs: %+v vs %+v", first, second)
	}

	// A different date is a different query.
	if _, err := feed.Suggest(ctx, day(2024, 1, 3), universe); err != nil {
		t.Fatalf("Suggest (new date): %v", err)
	}
	if inner.calls != 2 {
		t.Errorf("inner feed called %d times after new date, want 2", inner.calls)
	}

	// Failures must not be cached.
	inner.err = fmt.Errorf("%w: down", domain.ErrProviderError)
	if _, err := feed.Suggest(ctx, day(2024, 1, 4), universe); err == nil {
		t.Fatal("expected provider error to propagate")
	}
	inner.err = nil
	if _, err := feed.Suggest(ctx, day(2024, 1, 4), universe); err != nil {
		t.Fatalf("Suggest after recovery: %v", err)
	}
	if inner.calls != 4 {
		t.Errorf("inner feed called %d times, want 4 (failure not cached)", inner.calls)
	}
}
