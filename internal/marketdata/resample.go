package marketdata

import (
	"fmt"
	"sort"
	"time"

	"github.com/bhuvan-advantix/Back-testing/internal/domain"
)

// Resample converts a daily series into the requested timeframe. Daily input
// passes through unchanged. Weekly bars aggregate one ISO week per symbol and
// are dated at the week's last traded session, so a weekly bar only "exists"
// once the whole week is over and the no-lookahead boundary stays correct
// after resampling.
func Resample(s *Series, tf domain.Timeframe) (*Series, error) {
	if tf == domain.TimeframeDaily {
		return s, nil
	}
	if tf != domain.TimeframeWeekly {
		return nil, fmt.Errorf("unsupported timeframe %q", tf)
	}

	var out []domain.Bar
	for _, sym := range s.symbols {
		out = append(out, resampleWeekly(s.bars[sym])...)
	}
	return NewSeries(out)
}

// resampleWeekly folds ascending daily bars into one bar per ISO week:
// open of the first session, close of the last, high/low extremes, summed
// volume.
func resampleWeekly(daily []domain.Bar) []domain.Bar {
	type wk struct{ year, week int }

	groups := make(map[wk][]domain.Bar)
	var order []wk
	for _, b := range daily {
		y, w := b.Date.ISOWeek()
		k := wk{y, w}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], b)
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i].year != order[j].year {
			return order[i].year < order[j].year
		}
		return order[i].week < order[j].week
	})

	out := make([]domain.Bar, 0, len(order))
	for _, k := range order {
		days := groups[k]
		bar := domain.Bar{
			Symbol: days[0].Symbol,
			Date:   days[len(days)-1].Date,
			Open:   days[0].Open,
			High:   days[0].High,
			Low:    days[0].Low,
			Close:  days[len(days)-1].Close,
		}
		for _, d := range days {
			if d.High > bar.High {
				bar.High = d.High
			}
			if d.Low < bar.Low {
				bar.Low = d.Low
			}
			bar.Volume += d.Volume
		}
		out = append(out, bar)
	}
	return out
}

// Day normalizes a timestamp to its UTC session date.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
