package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestZeroValues(t *testing.T) {
	// Verify Bar can be instantiated with zero values.
	bar := Bar{}
	if bar.Symbol != "" {
		t.Error("expected empty Symbol for zero-value Bar")
	}
	if !bar.Date.IsZero() {
		t.Error("expected zero Date for zero-value Bar")
	}
	if bar.Open != 0 || bar.High != 0 || bar.Low != 0 || bar.Close != 0 || bar.Volume != 0 {
		t.Error("expected zero OHLCV values for zero-value Bar")
	}

	// Verify Order can be instantiated with zero values.
	order := Order{}
	if order.ID != "" || order.Side != "" || order.Shares != 0 {
		t.Error("expected zero fields for zero-value Order")
	}
	if !order.Requested.IsZero() || !order.FillDate.IsZero() {
		t.Error("expected zero dates for zero-value Order")
	}

	// Verify enum constants are defined correctly.
	if SideBuy != "buy" || SideSell != "sell" {
		t.Error("Side constants have unexpected values")
	}
	if TimeframeDaily != "daily" || TimeframeWeekly != "weekly" {
		t.Error("Timeframe constants have unexpected values")
	}
	if BiasBullish != "BULLISH" || BiasBearish != "BEARISH" {
		t.Error("Bias constants have unexpected values")
	}
}

func TestLookaheadError(t *testing.T) {
	err := &LookaheadError{
		Simulated: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Observed:  time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		Source:    "candidate AAPL",
	}

	msg := err.Error()
	if !strings.Contains(msg, "lookahead violation") {
		t.Errorf("Error() = %q, want it to mention lookahead violation", msg)
	}
	if !strings.Contains(msg, "2024-03-04") || !strings.Contains(msg, "2024-03-01") {
		t.Errorf("Error() = %q, want both dates present", msg)
	}

	// LookaheadError must be matchable through wrapping.
	wrapped := fmt.Errorf("timeframe daily: %w", err)
	var le *LookaheadError
	if !errors.As(wrapped, &le) {
		t.Error("errors.As failed to recover wrapped *LookaheadError")
	}
}

func TestConfigError(t *testing.T) {
	err := &ConfigError{Field: "constraints.max_position_pct", Reason: "must be in (0, 1]"}
	if !strings.Contains(err.Error(), "max_position_pct") {
		t.Errorf("Error() = %q, want field name present", err.Error())
	}
}
