// Package allocator turns a strategy's desired target weights into concrete
// orders against one ledger, applying capital and position constraints. It
// plans at decision prices; actual fills happen later at the next bar's open.
package allocator

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/bhuvan-advantix/Back-testing/internal/config"
	"github.com/bhuvan-advantix/Back-testing/internal/domain"
	"github.com/bhuvan-advantix/Back-testing/internal/ledger"
	"github.com/bhuvan-advantix/Back-testing/internal/marketdata"
)

// Allocator plans orders for one step. It is stateless across steps and
// shared safely by every variant in a run.
type Allocator struct {
	constraints config.Constraints
	logger      *slog.Logger
}

// New creates an allocator with the given constraints.
func New(constraints config.Constraints, logger *slog.Logger) *Allocator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Allocator{constraints: constraints, logger: logger}
}

// Plan converts targets into sell and buy orders for the given ledger and
// date. Sells always precede buys in the returned slice so that freed cash
// is available to fund purchases. When the aggregate cost of new buys
// exceeds deployable capital, every buy is scaled down by the same factor
// rather than filling early targets in full and starving later ones.
//
// pending holds the variant's not-yet-filled orders from earlier steps.
// Their shares are netted against the targets, so a buy deferred by a data
// gap is not planned a second time and the exposure caps hold across the
// queued and planned orders combined.
func (a *Allocator) Plan(led *ledger.Ledger, variant string, date time.Time, targets []domain.Target, view *marketdata.View, pending []domain.Order) ([]domain.Order, []domain.Diagnostic) {
	var diags []domain.Diagnostic
	reject := func(symbol, detail string) {
		diags = append(diags, domain.Diagnostic{
			Date: date, Variant: variant, Symbol: symbol,
			Code: domain.DiagAllocationRejected, Detail: detail,
		})
	}

	prices := a.decisionPrices(led, targets, view)
	equity := led.MarkToMarket(prices)
	if equity <= 0 {
		return nil, diags
	}

	pendingBuys := make(map[string]int64)
	pendingSells := make(map[string]int64)
	for _, o := range pending {
		if o.Side == domain.SideBuy {
			pendingBuys[o.Symbol] += o.Shares
		} else {
			pendingSells[o.Symbol] += o.Shares
		}
	}

	// Desired share counts per symbol, position-cap applied per target.
	wanted := make(map[string]int64, len(targets))
	ordered := make([]string, 0, len(targets))
	for _, tgt := range targets {
		price, ok := prices[tgt.Symbol]
		if !ok || price <= 0 {
			reject(tgt.Symbol, "no decision price available")
			continue
		}
		weight := tgt.Weight
		if limit := a.constraints.MaxPositionPct; limit > 0 && weight > limit {
			weight = limit
		}
		shares := int64(math.Floor(weight * equity / price))
		if shares <= 0 {
			reject(tgt.Symbol, fmt.Sprintf("target weight %.4f sizes to zero shares at %.2f", tgt.Weight, price))
			continue
		}
		wanted[tgt.Symbol] = shares
		ordered = append(ordered, tgt.Symbol)
	}

	sells, proceeds := a.planSells(led, variant, date, wanted, prices, pendingSells)

	buys := a.planBuys(led, variant, date, wanted, ordered, prices, pendingBuys, reject)

	// Pro-rata scale-down when demand exceeds deployable capital.
	deployable := led.Cash() + proceeds - a.constraints.MinCashReservePct*equity
	buys = a.scaleToDeployable(buys, prices, deployable, reject)

	orders := make([]domain.Order, 0, len(sells)+len(buys))
	orders = append(orders, sells...)
	orders = append(orders, buys...)
	if len(orders) > 0 {
		diags = append(diags, a.summarize(variant, date, sells, buys, prices, led.Cash()+proceeds, deployable, equity))
	}
	return orders, diags
}

// summarize records what the plan commits: order counts, buy cost against
// deployable capital, and the projected exposure after all orders fill, so
// every step's capital usage is auditable from its diagnostics. freeCash is
// the cash on hand once sells settle, before buys spend it.
func (a *Allocator) summarize(variant string, date time.Time, sells, buys []domain.Order, prices map[string]float64, freeCash, deployable, equity float64) domain.Diagnostic {
	var buyCost float64
	for _, o := range buys {
		buyCost += float64(o.Shares) * prices[o.Symbol]
	}
	utilization := 0.0
	if deployable > 0 {
		utilization = buyCost / deployable
	}
	exposure := (equity - (freeCash - buyCost)) / equity
	return domain.Diagnostic{
		Date: date, Variant: variant, Code: domain.DiagAllocationSummary,
		Detail: fmt.Sprintf("%d sells, %d buys (est. cost %.2f of %.2f deployable, %.1f%% utilization), projected exposure %.1f%%",
			len(sells), len(buys), buyCost, deployable, utilization*100, exposure*100),
	}
}

// decisionPrices collects the last known close at or before the view's
// boundary for every symbol the plan can touch: targets and open positions.
func (a *Allocator) decisionPrices(led *ledger.Ledger, targets []domain.Target, view *marketdata.View) map[string]float64 {
	prices := make(map[string]float64)
	for _, tgt := range targets {
		if bar, ok := view.Last(tgt.Symbol); ok {
			prices[tgt.Symbol] = bar.Close
		}
	}
	for _, pos := range led.Positions() {
		if _, done := prices[pos.Symbol]; done {
			continue
		}
		if bar, ok := view.Last(pos.Symbol); ok {
			prices[pos.Symbol] = bar.Close
		}
	}
	return prices
}

// planSells emits a sell for every held symbol whose desired share count is
// below the current holding, including full exits for symbols no longer
// targeted. Shares already covered by queued sells are not sold again. It
// returns the orders sorted by symbol and the estimated proceeds at decision
// prices.
func (a *Allocator) planSells(led *ledger.Ledger, variant string, date time.Time, wanted map[string]int64, prices map[string]float64, pendingSells map[string]int64) ([]domain.Order, float64) {
	var sells []domain.Order
	var proceeds float64
	for _, pos := range led.Positions() {
		delta := pos.Shares - pendingSells[pos.Symbol] - wanted[pos.Symbol]
		if delta <= 0 {
			continue
		}
		sells = append(sells, domain.Order{
			ID:        orderID(variant, date, pos.Symbol, domain.SideSell),
			Symbol:    pos.Symbol,
			Side:      domain.SideSell,
			Shares:    delta,
			Requested: date,
		})
		// A stale symbol with no decision price still sells; estimate
		// its proceeds at cost basis.
		price := prices[pos.Symbol]
		if price <= 0 {
			price = pos.CostBasis
		}
		proceeds += float64(delta) * price
	}
	sort.Slice(sells, func(i, j int) bool { return sells[i].Symbol < sells[j].Symbol })
	return sells, proceeds
}

// planBuys emits buys for targets above the current holding, preserving
// target order so that higher-conviction picks claim open-position slots
// first when the cap binds. Shares already queued as buys count as held, so
// a deferred order and a fresh plan for the same symbol cannot stack past
// its target.
func (a *Allocator) planBuys(led *ledger.Ledger, variant string, date time.Time, wanted map[string]int64, ordered []string, prices map[string]float64, pendingBuys map[string]int64, reject func(symbol, detail string)) []domain.Order {
	// Open slots already claimed: held symbols still wanted, plus queued
	// buys on symbols not held yet.
	open := 0
	claimed := make(map[string]bool)
	for _, pos := range led.Positions() {
		if wanted[pos.Symbol] > 0 {
			open++
			claimed[pos.Symbol] = true
		}
	}
	for sym, shares := range pendingBuys {
		if shares <= 0 || claimed[sym] || led.HasPosition(sym) {
			continue
		}
		open++
		claimed[sym] = true
	}

	var buys []domain.Order
	for _, symbol := range ordered {
		pos, held := led.Position(symbol)
		delta := wanted[symbol] - pendingBuys[symbol]
		if held {
			delta -= pos.Shares
		}
		if delta <= 0 {
			continue
		}
		if !held && !claimed[symbol] {
			if limit := a.constraints.MaxOpenPositions; limit > 0 && open >= limit {
				reject(symbol, fmt.Sprintf("open position cap %d reached", limit))
				continue
			}
			open++
			claimed[symbol] = true
		}
		buys = append(buys, domain.Order{
			ID:        orderID(variant, date, symbol, domain.SideBuy),
			Symbol:    symbol,
			Side:      domain.SideBuy,
			Shares:    delta,
			Requested: date,
		})
	}
	return buys
}

// scaleToDeployable shrinks every buy by the same factor when their combined
// cost at decision prices exceeds deployable capital. Buys that round down
// to zero shares are dropped with a diagnostic.
func (a *Allocator) scaleToDeployable(buys []domain.Order, prices map[string]float64, deployable float64, reject func(symbol, detail string)) []domain.Order {
	if len(buys) == 0 {
		return buys
	}
	var cost float64
	for _, o := range buys {
		cost += float64(o.Shares) * prices[o.Symbol]
	}
	if cost <= deployable {
		return buys
	}
	factor := 0.0
	if deployable > 0 {
		factor = deployable / cost
	}
	a.logger.Debug("scaling buys to deployable capital",
		"cost", cost, "deployable", deployable, "factor", factor)

	kept := buys[:0]
	for _, o := range buys {
		scaled := int64(math.Floor(float64(o.Shares) * factor))
		if scaled <= 0 {
			reject(o.Symbol, "scaled to zero shares by available capital")
			continue
		}
		o.Shares = scaled
		kept = append(kept, o)
	}
	return kept
}

// orderID derives a stable identifier from the order's coordinates, so two
// runs over the same inputs produce identical plans.
func orderID(variant string, date time.Time, symbol string, side domain.Side) string {
	seed := fmt.Sprintf("%s|%s|%s|%s", variant, date.Format("2006-01-02"), symbol, side)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed)).String()
}
