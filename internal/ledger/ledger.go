// Package ledger tracks one strategy variant's simulated capital: cash, open
// positions, closed trades, and the mark-to-market equity curve. Exactly one
// ledger exists per (variant, timeframe) pair and only that run's allocator
// mutates it.
package ledger

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/bhuvan-advantix/Back-testing/internal/domain"
)

// Ledger is the book of record for one simulated portfolio.
type Ledger struct {
	cash       float64
	positions  map[string]*domain.Position
	trades     []domain.Trade
	curve      []domain.EquityPoint
	lastPrices map[string]float64 // last close seen per symbol, for stale marks
	initial    float64
}

// New creates a ledger holding only cash.
func New(initialCash float64) *Ledger {
	return &Ledger{
		cash:       initialCash,
		positions:  make(map[string]*domain.Position),
		lastPrices: make(map[string]float64),
		initial:    initialCash,
	}
}

// Cash returns the current free cash.
func (l *Ledger) Cash() float64 {
	return l.cash
}

// InitialCash returns the starting capital.
func (l *Ledger) InitialCash() float64 {
	return l.initial
}

// Position returns the open position for symbol, if any.
func (l *Ledger) Position(symbol string) (domain.Position, bool) {
	p, ok := l.positions[symbol]
	if !ok {
		return domain.Position{}, false
	}
	return *p, true
}

// HasPosition reports whether symbol is currently held.
func (l *Ledger) HasPosition(symbol string) bool {
	_, ok := l.positions[symbol]
	return ok
}

// OpenPositions returns the number of currently held symbols.
func (l *Ledger) OpenPositions() int {
	return len(l.positions)
}

// Positions returns copies of all open positions, sorted by symbol so
// iteration order never leaks map randomness into results.
func (l *Ledger) Positions() []domain.Position {
	out := make([]domain.Position, 0, len(l.positions))
	for _, p := range l.positions {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Trades returns the closed-trade history in close order.
func (l *Ledger) Trades() []domain.Trade {
	out := make([]domain.Trade, len(l.trades))
	copy(out, l.trades)
	return out
}

// EquityCurve returns the recorded equity snapshots in date order.
func (l *Ledger) EquityCurve() []domain.EquityPoint {
	out := make([]domain.EquityPoint, len(l.curve))
	copy(out, l.curve)
	return out
}

// ApplyBuy books a filled buy order. The fee is added to the position's cost
// basis. It fails rather than let cash go negative; callers size orders so
// this does not happen, and the check is the last line of defense for the
// no-negative-cash invariant.
func (l *Ledger) ApplyBuy(order domain.Order, fee float64) error {
	cost := float64(order.Shares)*order.FillPrice + fee
	if cost > l.cash+1e-9 {
		return fmt.Errorf("buy %d %s at %.2f needs %.2f, cash %.2f",
			order.Shares, order.Symbol, order.FillPrice, cost, l.cash)
	}
	if order.Shares <= 0 {
		return fmt.Errorf("buy %s with non-positive shares %d", order.Symbol, order.Shares)
	}

	l.cash -= cost

	if p, ok := l.positions[order.Symbol]; ok {
		total := float64(p.Shares)*p.CostBasis + cost
		p.Shares += order.Shares
		p.CostBasis = total / float64(p.Shares)
	} else {
		l.positions[order.Symbol] = &domain.Position{
			Symbol:    order.Symbol,
			Shares:    order.Shares,
			CostBasis: cost / float64(order.Shares),
			Opened:    order.FillDate,
		}
	}
	l.lastPrices[order.Symbol] = order.FillPrice
	return nil
}

// ApplySell books a filled sell order, realizes the proceeds into cash, and
// appends the closed Trade. Selling more than is held is a programming error
// and is rejected.
func (l *Ledger) ApplySell(order domain.Order, fee float64) (domain.Trade, error) {
	p, ok := l.positions[order.Symbol]
	if !ok {
		return domain.Trade{}, fmt.Errorf("sell %s with no open position", order.Symbol)
	}
	if order.Shares <= 0 || order.Shares > p.Shares {
		return domain.Trade{}, fmt.Errorf("sell %d %s, position holds %d", order.Shares, order.Symbol, p.Shares)
	}

	proceeds := float64(order.Shares)*order.FillPrice - fee
	l.cash += proceeds

	trade := domain.Trade{
		Symbol:      order.Symbol,
		Shares:      order.Shares,
		EntryDate:   p.Opened,
		EntryPrice:  p.CostBasis,
		ExitDate:    order.FillDate,
		ExitPrice:   order.FillPrice,
		PnL:         (order.FillPrice-p.CostBasis)*float64(order.Shares) - fee,
		HoldingDays: int(math.Round(order.FillDate.Sub(p.Opened).Hours() / 24)),
	}
	l.trades = append(l.trades, trade)

	p.Shares -= order.Shares
	if p.Shares == 0 {
		delete(l.positions, order.Symbol)
	}
	l.lastPrices[order.Symbol] = order.FillPrice
	return trade, nil
}

// MarkToMarket values the portfolio at the given closing prices. Held
// symbols missing from prices fall back to their last known price.
func (l *Ledger) MarkToMarket(prices map[string]float64) float64 {
	equity := l.cash
	for sym, p := range l.positions {
		price, ok := prices[sym]
		if !ok {
			price = l.lastPrices[sym]
		}
		equity += float64(p.Shares) * price
	}
	return equity
}

// Snapshot marks the portfolio to market at the given date and closing
// prices, records the equity point, and returns it. Held symbols without a
// price on this date are valued at their last known price and listed as
// stale rather than silently dropped.
func (l *Ledger) Snapshot(date time.Time, prices map[string]float64) domain.EquityPoint {
	var stale []string
	for sym := range l.positions {
		if _, ok := prices[sym]; !ok {
			stale = append(stale, sym)
		}
	}
	sort.Strings(stale)

	for sym, price := range prices {
		if l.HasPosition(sym) {
			l.lastPrices[sym] = price
		}
	}

	point := domain.EquityPoint{
		Date:   date,
		Cash:   l.cash,
		Equity: l.MarkToMarket(prices),
		Stale:  stale,
	}
	l.curve = append(l.curve, point)
	return point
}
