package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/bhuvan-advantix/Back-testing/internal/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParquetStorePath(t *testing.T) {
	ps := NewParquetStore("/data")

	got := ps.barPath("aapl", 2024)
	want := filepath.Join("/data", "bars", "AAPL", "2024.parquet")
	if got != want {
		t.Errorf("barPath mismatch:\n  got  %s\n  want %s", got, want)
	}
}

func TestParquetStoreWriteReadBars(t *testing.T) {
	ps := NewParquetStore(t.TempDir())
	ctx := context.Background()

	bars := []domain.Bar{
		{Symbol: "AAPL", Date: day(2024, 1, 2), Open: 185.0, High: 186.5, Low: 184.0, Close: 185.5, Volume: 50000000},
		{Symbol: "AAPL", Date: day(2024, 1, 3), Open: 185.5, High: 187.0, Low: 185.0, Close: 186.0, Volume: 45000000},
	}

	if err := ps.WriteBars(ctx, bars); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	got, err := ps.ReadBars(ctx, "AAPL", day(2024, 1, 1), day(2024, 12, 31))
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadBars returned %d bars, want 2", len(got))
	}
	if got[0].Close != 185.5 {
		t.Errorf("first bar Close = %v, want 185.5", got[0].Close)
	}
	if got[1].Close != 186.0 {
		t.Errorf("second bar Close = %v, want 186.0", got[1].Close)
	}
}

func TestParquetStoreMergeBars(t *testing.T) {
	ps := NewParquetStore(t.TempDir())
	ctx := context.Background()

	bars1 := []domain.Bar{
		{Symbol: "MSFT", Date: day(2024, 3, 1), Open: 400.0, High: 405.0, Low: 399.0, Close: 403.0, Volume: 30000000},
	}
	if err := ps.WriteBars(ctx, bars1); err != nil {
		t.Fatalf("WriteBars (first): %v", err)
	}

	// Write another bar for same symbol+year — should merge, not overwrite.
	bars2 := []domain.Bar{
		{Symbol: "MSFT", Date: day(2024, 3, 4), Open: 403.0, High: 410.0, Low: 402.0, Close: 408.0, Volume: 35000000},
	}
	if err := ps.WriteBars(ctx, bars2); err != nil {
		t.Fatalf("WriteBars (second): %v", err)
	}

	got, err := ps.ReadBars(ctx, "MSFT", day(2024, 1, 1), day(2024, 12, 31))
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadBars returned %d bars after merge, want 2", len(got))
	}
}

func TestParquetStoreListSymbols(t *testing.T) {
	ps := NewParquetStore(t.TempDir())
	ctx := context.Background()

	bars := []domain.Bar{
		{Symbol: "AAPL", Date: day(2024, 1, 2), Open: 185.0, High: 186.0, Low: 184.0, Close: 185.5, Volume: 50000000},
		{Symbol: "GOOGL", Date: day(2024, 1, 2), Open: 140.0, High: 141.0, Low: 139.0, Close: 140.5, Volume: 20000000},
	}
	if err := ps.WriteBars(ctx, bars); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	symbols, err := ps.ListSymbols(ctx)
	if err != nil {
		t.Fatalf("ListSymbols: %v", err)
	}
	if len(symbols) != 2 || symbols[0] != "AAPL" || symbols[1] != "GOOGL" {
		t.Errorf("ListSymbols = %v, want [AAPL GOOGL]", symbols)
	}
}

func TestSQLiteStoreBars(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cache.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore(%q): %v", dbPath, err)
	}
	defer s.Close()
	ctx := context.Background()

	bars := []domain.Bar{
		{Symbol: "AAPL", Date: day(2024, 1, 3), Open: 185.5, High: 187.0, Low: 185.0, Close: 186.0, Volume: 45000000},
		{Symbol: "AAPL", Date: day(2024, 1, 2), Open: 185.0, High: 186.5, Low: 184.0, Close: 185.5, Volume: 50000000},
	}
	if err := s.WriteBars(ctx, bars); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	got, err := s.ReadBars(ctx, "AAPL", day(2024, 1, 1), day(2024, 1, 31))
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadBars returned %d bars, want 2", len(got))
	}
	// Must come back ascending even though written out of order.
	if !got[0].Date.Equal(day(2024, 1, 2)) || !got[1].Date.Equal(day(2024, 1, 3)) {
		t.Errorf("ReadBars dates = %v, %v; want ascending", got[0].Date, got[1].Date)
	}

	// Rewriting the same bar is an upsert, not a duplicate.
	if err := s.WriteBars(ctx, bars[:1]); err != nil {
		t.Fatalf("WriteBars (rewrite): %v", err)
	}
	got, err = s.ReadBars(ctx, "AAPL", day(2024, 1, 1), day(2024, 1, 31))
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("ReadBars after rewrite returned %d bars, want 2", len(got))
	}
}

func TestSQLiteStoreCandidates(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	date := day(2024, 2, 5)

	// Miss before any write.
	_, hit, err := s.ReadCandidates(ctx, date, "hash-a")
	if err != nil {
		t.Fatalf("ReadCandidates: %v", err)
	}
	if hit {
		t.Error("ReadCandidates reported hit before any write")
	}

	cands := []domain.Candidate{
		{Symbol: "AAPL", Score: 85, Bias: domain.BiasBullish, Reason: "breakout", AsOf: date},
		{Symbol: "MSFT", Score: 70, Bias: domain.BiasBullish, Reason: "earnings", AsOf: date},
	}
	if err := s.WriteCandidates(ctx, date, "hash-a", cands); err != nil {
		t.Fatalf("WriteCandidates: %v", err)
	}

	got, hit, err := s.ReadCandidates(ctx, date, "hash-a")
	if err != nil {
		t.Fatalf("ReadCandidates: %v", err)
	}
	if !hit {
		t.Fatal("ReadCandidates reported miss after write")
	}
	if len(got) != 2 || got[0].Symbol != "AAPL" || got[1].Symbol != "MSFT" {
		t.Errorf("ReadCandidates = %+v, want rank order [AAPL MSFT]", got)
	}
	if got[0].Score != 85 || got[0].Bias != domain.BiasBullish {
		t.Errorf("candidate fields lost in round trip: %+v", got[0])
	}
	if !got[0].AsOf.Equal(date) {
		t.Errorf("AsOf = %v, want %v", got[0].AsOf, date)
	}

	// An answered-empty query is a hit with zero candidates, not a miss.
	if err := s.WriteCandidates(ctx, date, "hash-b", nil); err != nil {
		t.Fatalf("WriteCandidates (empty): %v", err)
	}
	got, hit, err = s.ReadCandidates(ctx, date, "hash-b")
	if err != nil {
		t.Fatalf("ReadCandidates: %v", err)
	}
	if !hit || len(got) != 0 {
		t.Errorf("empty answer: hit=%v len=%d, want hit with 0 candidates", hit, len(got))
	}

	// Different universe hash is a different query.
	_, hit, err = s.ReadCandidates(ctx, date, "hash-c")
	if err != nil {
		t.Fatalf("ReadCandidates: %v", err)
	}
	if hit {
		t.Error("unrelated universe hash should miss")
	}
}
