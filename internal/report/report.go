// Package report assembles simulation results and metrics into a stable
// document and writes it through pluggable sinks.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/bhuvan-advantix/Back-testing/internal/engine"
	"github.com/bhuvan-advantix/Back-testing/internal/metrics"
)

// Document is the full output of one run. Field order is fixed and the
// generation time is an explicit input, so two runs over the same inputs
// serialize identically.
type Document struct {
	RunID       string            `json:"run_id"`
	GeneratedAt time.Time         `json:"generated_at"`
	Start       string            `json:"start"`
	End         string            `json:"end"`
	InitialCash float64           `json:"initial_cash"`
	Results     []VariantResult   `json:"results"`
	Rankings    []metrics.Ranking `json:"rankings"`
}

// VariantResult pairs one result's raw output with its computed summary.
type VariantResult struct {
	Variant     string          `json:"variant"`
	Timeframe   string          `json:"timeframe"`
	Incomplete  bool            `json:"incomplete,omitempty"`
	Summary     metrics.Summary `json:"summary"`
	EquityCurve []EquityPoint   `json:"equity_curve"`
	Trades      []Trade         `json:"trades"`
	Diagnostics []Diagnostic    `json:"diagnostics,omitempty"`
}

// EquityPoint mirrors domain.EquityPoint with a date string for stable
// serialization.
type EquityPoint struct {
	Date   string   `json:"date"`
	Cash   float64  `json:"cash"`
	Equity float64  `json:"equity"`
	Stale  []string `json:"stale,omitempty"`
}

type Trade struct {
	Symbol      string  `json:"symbol"`
	Shares      int64   `json:"shares"`
	EntryDate   string  `json:"entry_date"`
	EntryPrice  float64 `json:"entry_price"`
	ExitDate    string  `json:"exit_date"`
	ExitPrice   float64 `json:"exit_price"`
	PnL         float64 `json:"pnl"`
	HoldingDays int     `json:"holding_days"`
}

type Diagnostic struct {
	Date    string `json:"date"`
	Variant string `json:"variant,omitempty"`
	Symbol  string `json:"symbol,omitempty"`
	Code    string `json:"code"`
	Detail  string `json:"detail,omitempty"`
}

const dateLayout = "2006-01-02"

// Build assembles the document from results and their summaries. Results and
// summaries must be in the same order, as produced by the orchestrator and a
// matching metrics pass. generatedAt is stamped as given; callers wanting
// reproducible documents pass a fixed time.
func Build(results []engine.Result, summaries []metrics.Summary, initialCash float64, start, end, generatedAt time.Time) Document {
	doc := Document{
		GeneratedAt: generatedAt.UTC(),
		Start:       start.Format(dateLayout),
		End:         end.Format(dateLayout),
		InitialCash: initialCash,
		Rankings:    metrics.Rank(summaries),
	}
	if len(results) > 0 {
		doc.RunID = results[0].RunID
	}
	for i, r := range results {
		vr := VariantResult{
			Variant:    r.Variant,
			Timeframe:  string(r.Timeframe),
			Incomplete: r.Incomplete,
		}
		if i < len(summaries) {
			vr.Summary = summaries[i]
		}
		for _, p := range r.EquityCurve {
			vr.EquityCurve = append(vr.EquityCurve, EquityPoint{
				Date: p.Date.Format(dateLayout), Cash: p.Cash, Equity: p.Equity, Stale: p.Stale,
			})
		}
		for _, t := range r.Trades {
			vr.Trades = append(vr.Trades, Trade{
				Symbol:      t.Symbol,
				Shares:      t.Shares,
				EntryDate:   t.EntryDate.Format(dateLayout),
				EntryPrice:  t.EntryPrice,
				ExitDate:    t.ExitDate.Format(dateLayout),
				ExitPrice:   t.ExitPrice,
				PnL:         t.PnL,
				HoldingDays: t.HoldingDays,
			})
		}
		for _, d := range r.Diagnostics {
			vr.Diagnostics = append(vr.Diagnostics, Diagnostic{
				Date:    d.Date.Format(dateLayout),
				Variant: d.Variant,
				Symbol:  d.Symbol,
				Code:    string(d.Code),
				Detail:  d.Detail,
			})
		}
		doc.Results = append(doc.Results, vr)
	}
	return doc
}

// Sink writes a finished document somewhere.
type Sink interface {
	Write(doc Document) error
}

// JSONSink writes the document as indented JSON to an io.Writer.
type JSONSink struct {
	Out io.Writer
}

// Compile-time interface check.
var _ Sink = (*JSONSink)(nil)

func (s *JSONSink) Write(doc Document) error {
	enc := json.NewEncoder(s.Out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return nil
}

// FileSink writes the document as indented JSON to a path, creating or
// truncating the file.
type FileSink struct {
	Path string
}

// Compile-time interface check.
var _ Sink = (*FileSink)(nil)

func (s *FileSink) Write(doc Document) error {
	f, err := os.Create(s.Path)
	if err != nil {
		return fmt.Errorf("creating report file: %w", err)
	}
	js := &JSONSink{Out: f}
	if err := js.Write(doc); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
