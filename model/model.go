// Package model defines the contract a user-supplied state machine must
// satisfy to be explored by the checker, and the fatal error kinds the
// contract can raise.
package model

import "fmt"

// Model is the user-supplied state machine. State and Action must be
// deterministically hashable (via fingerprint.Of), equatable, and cheap to
// copy; the engine treats both as opaque values.
//
// Actions and NextState must be pure functions of their inputs — the
// checker detects violations of this by re-expanding a sampled state and
// comparing successor fingerprints (see model.NondeterminismError).
type Model[S any, A any] interface {
	// InitialStates returns the states the search begins from. Must return
	// at least one; returning none is a ConstructionError.
	InitialStates() []S

	// Actions enumerates the actions available from state. May return none
	// (a terminal state).
	Actions(state S) []A

	// NextState applies action to state. A false second return means the
	// action is ignored from this state: the label is preserved in edge
	// logs for UI purposes, but no successor is produced.
	NextState(state S, action A) (S, bool)

	// Properties returns the properties checked against every reached
	// state. Property names must be unique; duplicates are a
	// ConstructionError.
	Properties() []Property[S]
}

// BoundedModel is an optional capability: states failing WithinBoundary are
// pruned (neither inserted nor expanded), bounding otherwise-infinite
// searches.
type BoundedModel[S any] interface {
	WithinBoundary(state S) bool
}

// DisplayModel is an optional capability supplying a human-readable label
// for an action taken from a state, for UI consumption.
type DisplayModel[S any, A any] interface {
	DisplayAction(action A, state S) string
}

// SymmetricModel is an optional capability that canonicalizes symmetric
// states before fingerprinting. Implementations must satisfy:
//
//	Representative(Representative(s)) == Representative(s)
//
// and assign equal representatives to any two states related by the
// declared symmetry. A misimplementation is detectable by the same
// nondeterminism probe used for impure Actions/NextState.
type SymmetricModel[S any] interface {
	Representative(state S) S
}

// Kind is a property's reporting expectation.
type Kind int

const (
	Always Kind = iota
	Sometimes
	Eventually
)

func (k Kind) String() string {
	switch k {
	case Always:
		return "Always"
	case Sometimes:
		return "Sometimes"
	case Eventually:
		return "Eventually"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Property is a named predicate with a reporting expectation. See
// property.Evaluator for discovery semantics per Kind.
type Property[S any] struct {
	Kind      Kind
	Name      string
	Predicate func(S) bool
}

// ConstructionError reports a problem found while converting a Model into a
// Checker: duplicate property names, no initial states, or an invalid
// network discipline (for ActorModel). Always fatal.
type ConstructionError struct {
	Reason string
}

func (e *ConstructionError) Error() string {
	return "model construction error: " + e.Reason
}

// SerializationError mirrors fingerprint.SerializationError so callers
// of this package don't need to import fingerprint just to type-switch on
// it; model.SerializationError wraps the underlying error with state
// already formatted.
type SerializationError struct {
	Err error
}

func (e *SerializationError) Error() string { return "model: " + e.Err.Error() }
func (e *SerializationError) Unwrap() error { return e.Err }

// NondeterminismError reports that re-expanding a sampled state produced a
// different set of successor fingerprints than the first expansion did,
// meaning Actions or NextState is not a pure function of its inputs.
type NondeterminismError struct {
	State    any
	Expected []uint64
	Actual   []uint64
}

func (e *NondeterminismError) Error() string {
	return fmt.Sprintf("model: nondeterministic expansion of state %#v: expected successor fingerprints %v, got %v", e.State, e.Expected, e.Actual)
}

// PropertyPanic reports that a property predicate panicked while
// evaluating a reached state. Always fatal.
type PropertyPanic struct {
	PropertyName string
	State        any
	Recovered    any
}

func (e *PropertyPanic) Error() string {
	return fmt.Sprintf("model: property %q panicked on state %#v: %v", e.PropertyName, e.State, e.Recovered)
}
