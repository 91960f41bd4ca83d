// Package domain defines the core data types shared across the backtesting
// engine: bars, candidates, positions, orders, trades, equity snapshots, and
// step diagnostics.
package domain

import "time"

// Timeframe identifies the bar granularity a simulation runs on.
type Timeframe string

const (
	TimeframeDaily  Timeframe = "daily"
	TimeframeWeekly Timeframe = "weekly"
)

// KnownTimeframes lists every timeframe the engine can simulate.
var KnownTimeframes = []Timeframe{TimeframeDaily, TimeframeWeekly}

// Bar is a single OHLCV record for a symbol on a session date. Dates are
// normalized to UTC midnight; intra-session times are not modeled.
type Bar struct {
	Symbol string
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// Bias is the directional call attached to a candidate suggestion.
type Bias string

const (
	BiasBullish Bias = "BULLISH"
	BiasBearish Bias = "BEARISH"
)

// Candidate is a symbol proposed by a suggestion provider as worth
// considering on a given date. AsOf records the date the underlying analysis
// claims to reflect; the simulation loop rejects candidates whose AsOf lies
// beyond the current simulated date.
type Candidate struct {
	Symbol string
	Score  float64 // provider confidence, 0-100
	Bias   Bias
	Reason string
	AsOf   time.Time
}

// Target is a strategy's desired exposure for one symbol, expressed as a
// fraction of current portfolio equity.
type Target struct {
	Symbol string
	Weight float64
}

// Position is an open holding inside exactly one ledger.
type Position struct {
	Symbol    string
	Shares    int64
	CostBasis float64 // average per-share cost including entry fees
	Opened    time.Time
}

// Side is the direction of an order.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Order is a simulated order. It is created during one step's allocation and
// consumed when it fills at a later bar's open; it never outlives the run.
type Order struct {
	ID        string
	Symbol    string
	Side      Side
	Shares    int64
	Requested time.Time
	FillDate  time.Time
	FillPrice float64
}

// Trade is a closed-position record. It is append-only and immutable once
// written to a ledger.
type Trade struct {
	Symbol      string
	Shares      int64
	EntryDate   time.Time
	EntryPrice  float64
	ExitDate    time.Time
	ExitPrice   float64
	PnL         float64
	HoldingDays int
}

// EquityPoint is one mark-to-market snapshot of a ledger. Stale lists held
// symbols that had no bar on the snapshot date and were valued at their last
// known price.
type EquityPoint struct {
	Date   time.Time
	Cash   float64
	Equity float64
	Stale  []string
}

// DiagnosticCode classifies a non-fatal event recorded during a step.
type DiagnosticCode string

const (
	DiagAllocationRejected DiagnosticCode = "allocation_rejected"
	DiagAllocationSummary  DiagnosticCode = "allocation_summary"
	DiagOrderDeferred      DiagnosticCode = "order_deferred"
	DiagOrderExpired       DiagnosticCode = "order_expired"
	DiagOrderTrimmed       DiagnosticCode = "order_trimmed"
	DiagDataGap            DiagnosticCode = "data_gap"
	DiagProviderFailed     DiagnosticCode = "provider_failed"
	DiagEmptyCandidates    DiagnosticCode = "empty_candidates"
)

// Diagnostic records a recoverable, per-step failure or degradation. A run
// that finishes always carries its diagnostics alongside its results.
type Diagnostic struct {
	Date    time.Time
	Variant string
	Symbol  string
	Code    DiagnosticCode
	Detail  string
}
