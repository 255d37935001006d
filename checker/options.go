package checker

import (
	"runtime"
	"time"

	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"
)

// Options configures a Checker.
type Options struct {
	// ThreadCount is the number of parallel worker goroutines. 0 selects
	// runtime.NumCPU().
	ThreadCount int

	// MaxDepth bounds the search depth. 0 (or negative) means unbounded.
	// A positive MaxDepth switches the work queue into strict-BFS mode, so
	// depth increases monotonically across the whole search rather than
	// merely per path.
	MaxDepth int

	// Timeout bounds wall-clock run time. 0 means no timeout. A search
	// that times out returns Outcome{Result: Incomplete}.
	Timeout time.Duration

	// FinishWhen, if set, is polled after each state's properties are
	// evaluated; returning true signals an early, successful shutdown in
	// addition to the built-in "every property has a discovery" rule.
	FinishWhen func(Status) bool

	// NondeterminismSampleEvery, if > 0, re-expands every Nth generated
	// state and compares successor fingerprints against the first
	// expansion, surfacing model.NondeterminismError on a mismatch. 0
	// disables the probe.
	NondeterminismSampleEvery int

	// EventuallyLassoDepth bounds the local forward walk CheckEventually
	// performs from each newly-discovered state. 0 selects a default of 64.
	EventuallyLassoDepth int

	// Registerer, if non-nil, receives the Checker's Prometheus metrics.
	// A nil Registerer disables metrics entirely (no-op), matching the
	// teacher's metrics.NewAverager nil-registerer convention.
	Registerer prometheus.Registerer

	// Logger receives structured progress and error logs. A nil Logger
	// uses log.NoLog (no-op).
	Logger log.Logger
}

func (o Options) withDefaults() Options {
	if o.ThreadCount <= 0 {
		o.ThreadCount = runtime.NumCPU()
	}
	if o.EventuallyLassoDepth <= 0 {
		o.EventuallyLassoDepth = 64
	}
	if o.Logger == nil {
		o.Logger = log.NewNoOpLogger()
	}
	return o
}

// DefaultOptions returns unbounded, untimed, single-run options sized to
// the host's CPU count.
func DefaultOptions() Options {
	return Options{}
}

// QuickOptions returns options suited to unit tests: a short timeout, a
// small thread count, and frequent nondeterminism sampling, trading
// thoroughness for speed.
func QuickOptions() Options {
	return Options{
		ThreadCount:               2,
		Timeout:                   5 * time.Second,
		NondeterminismSampleEvery: 8,
	}
}

// ExhaustiveOptions returns options for a full, untimed exhaustive search
// using every available CPU, with nondeterminism sampling enabled.
func ExhaustiveOptions() Options {
	return Options{
		ThreadCount:               runtime.NumCPU(),
		NondeterminismSampleEvery: 64,
	}
}
