package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for recoverable external failures. Callers are expected to
// match with errors.Is and degrade rather than abort the run.
var (
	// ErrDataUnavailable indicates a symbol/range could not be served at all.
	ErrDataUnavailable = errors.New("data unavailable")

	// ErrPartialRange indicates a provider served fewer sessions than the
	// requested range covers. The bars returned alongside it are still valid.
	ErrPartialRange = errors.New("partial range")

	// ErrProviderTimeout indicates a suggestion provider did not answer in time.
	ErrProviderTimeout = errors.New("provider timeout")

	// ErrProviderError indicates a suggestion provider answered with a failure.
	ErrProviderError = errors.New("provider error")
)

// LookaheadError reports data dated beyond the current simulated date leaking
// into a decision. It is an integrity violation: the run that observes it is
// aborted immediately because every result after the leak is suspect.
type LookaheadError struct {
	Simulated time.Time // the loop's current date
	Observed  time.Time // the offending data's date
	Source    string    // what produced the data, e.g. "candidate AAPL"
}

func (e *LookaheadError) Error() string {
	return fmt.Sprintf("lookahead violation: %s dated %s observed at simulated date %s",
		e.Source, e.Observed.Format("2006-01-02"), e.Simulated.Format("2006-01-02"))
}

// ConfigError reports an invalid configuration value. It is fatal at run
// start; no simulation begins with a config that fails validation.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}
