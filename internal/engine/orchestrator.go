package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bhuvan-advantix/Back-testing/internal/allocator"
	"github.com/bhuvan-advantix/Back-testing/internal/candidates"
	"github.com/bhuvan-advantix/Back-testing/internal/domain"
	"github.com/bhuvan-advantix/Back-testing/internal/marketdata"
	"github.com/bhuvan-advantix/Back-testing/internal/strategy"
)

// Orchestrator runs the same variants over several timeframes concurrently.
// Each timeframe gets its own resampled series and its own ledgers, so the
// runs never share mutable state; the candidate feed and allocator are
// shared because both are safe for concurrent use.
type Orchestrator struct {
	daily    *marketdata.Series
	feed     candidates.Feed
	registry *strategy.Registry
	alloc    *allocator.Allocator
	opts     Options
	logger   *slog.Logger
}

// NewOrchestrator creates an orchestrator over the daily series.
func NewOrchestrator(daily *marketdata.Series, feed candidates.Feed, registry *strategy.Registry, alloc *allocator.Allocator, opts Options, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		daily:    daily,
		feed:     feed,
		registry: registry,
		alloc:    alloc,
		opts:     opts,
		logger:   logger,
	}
}

// Run simulates every variant on every requested timeframe, one goroutine
// per timeframe. A failed timeframe contributes no results; its error is
// joined into the returned error, and results from the timeframes that
// succeeded are still returned.
func (o *Orchestrator) Run(ctx context.Context, timeframes []domain.Timeframe, start, end time.Time) ([]Result, error) {
	runID := o.runID(timeframes, start, end)
	o.logger.Info("starting run",
		"run_id", runID,
		"timeframes", len(timeframes),
		"variants", len(o.registry.List()),
		"start", start.Format("2006-01-02"),
		"end", end.Format("2006-01-02"))

	var (
		mu      sync.Mutex
		results []Result
		errs    []error
		wg      sync.WaitGroup
	)
	for _, tf := range timeframes {
		wg.Add(1)
		go func(tf domain.Timeframe) {
			defer wg.Done()
			res, err := o.runTimeframe(ctx, tf, runID, start, end)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("timeframe %s: %w", tf, err))
				return
			}
			results = append(results, res...)
		}(tf)
	}
	wg.Wait()

	// Deterministic output order regardless of goroutine completion.
	sortResults(results)
	return results, errors.Join(errs...)
}

// runID derives a stable identifier from the run's inputs, so repeating a
// run over the same configuration reproduces its results bit for bit.
func (o *Orchestrator) runID(timeframes []domain.Timeframe, start, end time.Time) string {
	seed := fmt.Sprintf("%s|%s|%v|%v|%+v",
		start.Format("2006-01-02"), end.Format("2006-01-02"),
		timeframes, o.registry.List(), o.opts)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed)).String()
}

func (o *Orchestrator) runTimeframe(ctx context.Context, tf domain.Timeframe, runID string, start, end time.Time) ([]Result, error) {
	series, err := marketdata.Resample(o.daily, tf)
	if err != nil {
		return nil, err
	}
	loop := NewLoop(series, o.feed, o.registry, o.alloc, o.opts, o.logger.With("timeframe", tf))
	res, err := loop.Run(ctx, tf, runID, start, end)
	if err != nil {
		var lerr *domain.LookaheadError
		if errors.As(err, &lerr) {
			o.logger.Error("lookahead violation, discarding timeframe",
				"timeframe", tf, "source", lerr.Source)
		}
		return nil, err
	}
	return res, nil
}

func sortResults(results []Result) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Timeframe != results[j].Timeframe {
			return results[i].Timeframe < results[j].Timeframe
		}
		return results[i].Variant < results[j].Variant
	})
}
