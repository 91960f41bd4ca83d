package marketdata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bhuvan-advantix/Back-testing/internal/domain"
	"github.com/bhuvan-advantix/Back-testing/internal/store"
)

// Provider serves historical bars for one symbol and date range. A provider
// must not silently return partial ranges: when the served bars do not cover
// the requested range it returns them together with domain.ErrPartialRange,
// and when it can serve nothing at all it fails with domain.ErrDataUnavailable.
type Provider interface {
	Fetch(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error)
}

// Compile-time interface check.
var _ Provider = (*StoreProvider)(nil)

// StoreProvider serves bars out of a local BarStore (the Parquet archive or
// the SQLite cache). It is the replay-time collaborator standing in for a
// network fetcher.
type StoreProvider struct {
	store  store.BarStore
	logger *slog.Logger
}

// NewStoreProvider creates a StoreProvider reading from the given store.
func NewStoreProvider(barStore store.BarStore, logger *slog.Logger) *StoreProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &StoreProvider{store: barStore, logger: logger}
}

// Fetch reads bars for the symbol within [start, end]. An empty result is
// domain.ErrDataUnavailable. A result whose first or last session sits more
// than a week inside the requested range is flagged with
// domain.ErrPartialRange alongside the bars, so callers can decide whether a
// truncated history is acceptable instead of discovering it mid-run.
func (p *StoreProvider) Fetch(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	bars, err := p.store.ReadBars(ctx, symbol, start, end)
	if err != nil {
		return nil, fmt.Errorf("reading bars for %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: %s %s..%s", domain.ErrDataUnavailable,
			symbol, start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	const edgeTolerance = 7 * 24 * time.Hour
	first, last := bars[0].Date, bars[len(bars)-1].Date
	if first.Sub(start) > edgeTolerance || end.Sub(last) > edgeTolerance {
		p.logger.Warn("partial bar range",
			slog.String("symbol", symbol),
			slog.String("requested_start", start.Format("2006-01-02")),
			slog.String("requested_end", end.Format("2006-01-02")),
			slog.String("served_start", first.Format("2006-01-02")),
			slog.String("served_end", last.Format("2006-01-02")))
		return bars, fmt.Errorf("%w: %s served %s..%s of %s..%s", domain.ErrPartialRange,
			symbol, first.Format("2006-01-02"), last.Format("2006-01-02"),
			start.Format("2006-01-02"), end.Format("2006-01-02"))
	}
	return bars, nil
}

// LoadSeries fetches every universe symbol through the provider and builds a
// validated Series. Symbols that are entirely unavailable are skipped with a
// warning; partial ranges are kept. It fails only when no symbol can be
// served at all.
func LoadSeries(ctx context.Context, p Provider, universe []string, start, end time.Time, logger *slog.Logger) (*Series, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var all []domain.Bar
	for _, sym := range universe {
		bars, err := p.Fetch(ctx, sym, start, end)
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrPartialRange):
			logger.Warn("using partial history", slog.String("symbol", sym))
		case errors.Is(err, domain.ErrDataUnavailable):
			logger.Warn("symbol skipped, no data", slog.String("symbol", sym))
			continue
		default:
			return nil, err
		}
		all = append(all, bars...)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("%w: no universe symbol could be served", domain.ErrDataUnavailable)
	}
	return NewSeries(all)
}
