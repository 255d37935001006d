package checker

import (
	"fmt"

	"github.com/luxfi/checker/fingerprint"
	"github.com/luxfi/checker/model"
)

// Result classifies the overall outcome of a completed or stopped check.
type Result int

const (
	Pass Result = iota
	Fail
	Incomplete
)

func (r Result) String() string {
	switch r {
	case Pass:
		return "Pass"
	case Fail:
		return "Fail"
	case Incomplete:
		return "Incomplete"
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}

// Counters are the §4.5/§5 bookkeeping totals for a run.
type Counters struct {
	Generated      uint64 // successor states ever produced by expansion
	Unique         uint64 // |VisitedSet|
	BoundaryPruned uint64 // entries discarded for exceeding MaxDepth or failing WithinBoundary
}

// PathStep is one step of a reconstructed witness path. Action is nil for
// the first step (the initial state the path starts from).
type PathStep[S any, A any] struct {
	State  S
	Action *A
}

// PropertyReport summarizes one property's outcome.
type PropertyReport[S any, A any] struct {
	Kind      model.Kind
	Name      string
	Satisfied bool // true iff the property's expectation held over the whole search
	Path      []PathStep[S, A]
	hasPath   bool
}

// HasPath reports whether Path is a reconstructed witness/counterexample
// path (as opposed to a property with no discovery — an Always or
// Eventually that held, or a Sometimes that was never witnessed — which
// has no path to show).
func (p PropertyReport[S, A]) HasPath() bool { return p.hasPath }

// Outcome is the structured result of Checker.Run.
type Outcome[S any, A any] struct {
	Result           Result
	Properties       []PropertyReport[S, A]
	Counters         Counters
	IncompleteReason string
}

// Status is the live snapshot exposed by Checker.Status, mirroring the §6
// `/.status` JSON shape's fields before JSON rendering.
type Status struct {
	Done              bool
	StateCount        uint64
	UniqueStateCount  uint64
	MaxDepth          int
	ModelName         string
	RecentPathFPs     []fingerprint.Fingerprint
	PropertiesPending []string
}
