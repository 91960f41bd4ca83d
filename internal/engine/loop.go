// Package engine runs the simulation: it steps through session dates in
// order, fills pending orders at each bar's open, asks every strategy
// variant for decisions at the close, and records equity snapshots, trades,
// and diagnostics per variant.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/bhuvan-advantix/Back-testing/internal/allocator"
	"github.com/bhuvan-advantix/Back-testing/internal/candidates"
	"github.com/bhuvan-advantix/Back-testing/internal/domain"
	"github.com/bhuvan-advantix/Back-testing/internal/ledger"
	"github.com/bhuvan-advantix/Back-testing/internal/marketdata"
	"github.com/bhuvan-advantix/Back-testing/internal/strategy"
)

// Options are the tunable mechanics of a simulation run.
type Options struct {
	InitialCash float64

	// OrderTTLSessions is how many sessions a pending order survives
	// without a fill before it expires.
	OrderTTLSessions int

	// FeeBps is the per-side commission in basis points of notional.
	FeeBps float64

	// SlippageBps worsens every fill price by this many basis points:
	// buys fill above the open, sells below it.
	SlippageBps float64

	// MaxTradePctOfVolume caps a single fill at this fraction of the
	// bar's volume. Zero disables the cap.
	MaxTradePctOfVolume float64
}

// Loop simulates every registered variant over one bar series. Variants
// share the series, candidate feed, and allocator but each runs against its
// own ledger and order queue, so their results are fully independent.
type Loop struct {
	series   *marketdata.Series
	feed     candidates.Feed
	registry *strategy.Registry
	alloc    *allocator.Allocator
	opts     Options
	logger   *slog.Logger
}

// NewLoop creates a simulation loop.
func NewLoop(series *marketdata.Series, feed candidates.Feed, registry *strategy.Registry, alloc *allocator.Allocator, opts Options, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.OrderTTLSessions <= 0 {
		opts.OrderTTLSessions = 5
	}
	return &Loop{
		series:   series,
		feed:     feed,
		registry: registry,
		alloc:    alloc,
		opts:     opts,
		logger:   logger,
	}
}

// pendingOrder is an order waiting for a session bar to fill against. Age
// counts the sessions it has gone unfilled.
type pendingOrder struct {
	order domain.Order
	age   int
}

// variantState is one variant's private simulation state.
type variantState struct {
	name    string
	variant strategy.Variant
	ledger  *ledger.Ledger
	pending []pendingOrder
	result  *Result
}

// Run simulates all variants over the dates in [start, end], in order.
//
// Decisions made at the close of one date fill at the open of the next date
// that has a bar for the symbol. Cancellation stops on a date boundary or
// inside the candidate query; either way every simulated date keeps its
// equity point and results are marked Incomplete. A feed that returns a
// candidate dated after the simulated date aborts the whole run with a
// *domain.LookaheadError.
func (l *Loop) Run(ctx context.Context, tf domain.Timeframe, runID string, start, end time.Time) ([]Result, error) {
	dates := l.series.Dates(start, end)
	universe := l.series.Symbols()

	states := make([]*variantState, 0, len(l.registry.List()))
	for _, name := range l.registry.List() {
		v, _ := l.registry.Get(name)
		states = append(states, &variantState{
			name:    name,
			variant: v,
			ledger:  ledger.New(l.opts.InitialCash),
			result: &Result{
				RunID:     runID,
				Variant:   name,
				Timeframe: tf,
			},
		})
	}

	for _, date := range dates {
		if err := ctx.Err(); err != nil {
			l.logger.Warn("run cancelled between dates",
				"timeframe", tf, "date", date.Format("2006-01-02"), "cause", err)
			return l.collect(states, true), nil
		}

		for _, st := range states {
			l.fillPending(st, date)
		}

		cands, answered, err := l.suggest(ctx, date, universe, states)
		if err != nil {
			if ctx.Err() != nil {
				l.logger.Warn("run cancelled during candidate query",
					"timeframe", tf, "date", date.Format("2006-01-02"))
				// Fills already applied for this date must be covered
				// by an equity point before the run stops.
				l.snapshotAll(states, date)
				return l.collect(states, true), nil
			}
			return nil, err
		}

		// A feed outage holds the book as-is for the date. Only an
		// answered (possibly empty) candidate list drives decisions, so
		// a transient provider failure cannot liquidate positions.
		if answered {
			view := l.series.View(date)
			for _, st := range states {
				targets := st.variant.Decide(view, cands, st.ledger)
				queued := make([]domain.Order, 0, len(st.pending))
				for _, p := range st.pending {
					queued = append(queued, p.order)
				}
				orders, diags := l.alloc.Plan(st.ledger, st.name, date, targets, view, queued)
				st.result.Diagnostics = append(st.result.Diagnostics, diags...)
				for _, o := range orders {
					st.pending = append(st.pending, pendingOrder{order: o})
				}
			}
		}

		l.snapshotAll(states, date)
	}

	return l.collect(states, false), nil
}

// suggest queries the feed once per date and shares the answer across all
// variants. Provider failures degrade to an unanswered date with a
// diagnostic (answered=false); a future-dated candidate is fatal.
func (l *Loop) suggest(ctx context.Context, date time.Time, universe []string, states []*variantState) (cands []domain.Candidate, answered bool, err error) {
	cands, err = l.feed.Suggest(ctx, date, universe)
	if err != nil {
		if ctx.Err() != nil {
			// Surface the cancellation to the caller, which stops the
			// run at this date.
			return nil, false, ctx.Err()
		}
		l.logger.Warn("candidate feed failed",
			"provider", l.feed.Name(), "date", date.Format("2006-01-02"), "error", err)
		l.diagnoseAll(states, domain.Diagnostic{
			Date: date, Code: domain.DiagProviderFailed,
			Detail: fmt.Sprintf("%s: %v", l.feed.Name(), err),
		})
		return nil, false, nil
	}

	for _, c := range cands {
		if c.AsOf.After(date) {
			return nil, false, &domain.LookaheadError{
				Simulated: date,
				Observed:  c.AsOf,
				Source:    l.feed.Name(),
			}
		}
	}
	candidates.SortCandidates(cands)

	if len(cands) == 0 {
		l.diagnoseAll(states, domain.Diagnostic{
			Date: date, Code: domain.DiagEmptyCandidates,
			Detail: l.feed.Name() + " returned no candidates",
		})
	}
	return cands, true, nil
}

// fillPending attempts to fill the variant's queued orders against the
// date's bars. Sells are processed before buys so their proceeds fund same-
// date purchases. Orders whose symbol has no bar, or whose bar has no
// volume, age by one session and expire past the TTL.
func (l *Loop) fillPending(st *variantState, date time.Time) {
	if len(st.pending) == 0 {
		return
	}
	sort.SliceStable(st.pending, func(i, j int) bool {
		a, b := st.pending[i].order, st.pending[j].order
		if a.Side != b.Side {
			return a.Side == domain.SideSell
		}
		return a.Symbol < b.Symbol
	})

	var keep []pendingOrder
	for _, p := range st.pending {
		bar, ok := l.series.At(p.order.Symbol, date)
		if !ok || bar.Volume <= 0 {
			p.age++
			if p.age > l.opts.OrderTTLSessions {
				st.result.Diagnostics = append(st.result.Diagnostics, domain.Diagnostic{
					Date: date, Variant: st.name, Symbol: p.order.Symbol,
					Code:   domain.DiagOrderExpired,
					Detail: fmt.Sprintf("no fill within %d sessions", l.opts.OrderTTLSessions),
				})
				continue
			}
			detail := "no session bar"
			if ok {
				detail = "no traded volume"
			}
			st.result.Diagnostics = append(st.result.Diagnostics, domain.Diagnostic{
				Date: date, Variant: st.name, Symbol: p.order.Symbol,
				Code: domain.DiagOrderDeferred, Detail: detail,
			})
			keep = append(keep, p)
			continue
		}
		l.fillOrder(st, p.order, bar)
	}
	st.pending = keep
}

// fillOrder executes one order against the bar's open, applying slippage,
// the volume cap, fees, and cash-affordability reduction for buys.
func (l *Loop) fillOrder(st *variantState, order domain.Order, bar domain.Bar) {
	slip := l.opts.SlippageBps / 10000
	price := bar.Open * (1 + slip)
	if order.Side == domain.SideSell {
		price = bar.Open * (1 - slip)
	}

	shares := order.Shares
	if pct := l.opts.MaxTradePctOfVolume; pct > 0 {
		if maxShares := int64(math.Floor(pct * float64(bar.Volume))); shares > maxShares {
			st.result.Diagnostics = append(st.result.Diagnostics, domain.Diagnostic{
				Date: bar.Date, Variant: st.name, Symbol: order.Symbol,
				Code:   domain.DiagOrderTrimmed,
				Detail: fmt.Sprintf("volume cap: %d of %d shares", maxShares, shares),
			})
			shares = maxShares
		}
	}
	if order.Side == domain.SideBuy {
		feeRate := l.opts.FeeBps / 10000
		if affordable := int64(math.Floor(st.ledger.Cash() / (price * (1 + feeRate)))); shares > affordable {
			st.result.Diagnostics = append(st.result.Diagnostics, domain.Diagnostic{
				Date: bar.Date, Variant: st.name, Symbol: order.Symbol,
				Code:   domain.DiagOrderTrimmed,
				Detail: fmt.Sprintf("insufficient cash: %d of %d shares", affordable, shares),
			})
			shares = affordable
		}
	}
	if shares <= 0 {
		return
	}

	order.Shares = shares
	order.FillDate = bar.Date
	order.FillPrice = price
	fee := l.opts.FeeBps / 10000 * float64(shares) * price

	var err error
	if order.Side == domain.SideSell {
		_, err = st.ledger.ApplySell(order, fee)
	} else {
		err = st.ledger.ApplyBuy(order, fee)
	}
	if err != nil {
		// The reductions above should make this unreachable; record it
		// rather than corrupting the ledger.
		st.result.Diagnostics = append(st.result.Diagnostics, domain.Diagnostic{
			Date: bar.Date, Variant: st.name, Symbol: order.Symbol,
			Code: domain.DiagAllocationRejected, Detail: err.Error(),
		})
		return
	}
	l.logger.Debug("order filled",
		"variant", st.name, "symbol", order.Symbol, "side", order.Side,
		"shares", shares, "price", price, "date", bar.Date.Format("2006-01-02"))
}

// snapshotAll records the date's closing equity point for every variant,
// flagging held symbols valued at a stale price.
func (l *Loop) snapshotAll(states []*variantState, date time.Time) {
	closes := l.closingPrices(date)
	for _, st := range states {
		point := st.ledger.Snapshot(date, closes)
		if len(point.Stale) > 0 {
			st.result.Diagnostics = append(st.result.Diagnostics, domain.Diagnostic{
				Date: date, Variant: st.name, Code: domain.DiagDataGap,
				Detail: fmt.Sprintf("no session bar for held symbols %v; valued at last known price", point.Stale),
			})
		}
	}
}

// closingPrices returns each symbol's close on the date, omitting symbols
// without a bar so the ledger can mark them stale.
func (l *Loop) closingPrices(date time.Time) map[string]float64 {
	closes := make(map[string]float64)
	for _, sym := range l.series.Symbols() {
		if bar, ok := l.series.At(sym, date); ok {
			closes[sym] = bar.Close
		}
	}
	return closes
}

func (l *Loop) diagnoseAll(states []*variantState, diag domain.Diagnostic) {
	for _, st := range states {
		d := diag
		d.Variant = st.name
		st.result.Diagnostics = append(st.result.Diagnostics, d)
	}
}

func (l *Loop) collect(states []*variantState, incomplete bool) []Result {
	results := make([]Result, 0, len(states))
	for _, st := range states {
		st.result.EquityCurve = st.ledger.EquityCurve()
		st.result.Trades = st.ledger.Trades()
		st.result.Incomplete = incomplete
		results = append(results, *st.result)
	}
	return results
}
