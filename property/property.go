// Package property evaluates Always/Sometimes/Eventually expectations over
// reached states and paths, recording the first discovery for each
// property under a deterministic tie-break.
package property

import (
	"fmt"
	"sync"

	"github.com/luxfi/checker/fingerprint"
	"github.com/luxfi/checker/model"
)

// Discovery is a recorded counterexample (Always/Eventually) or witness
// (Sometimes): the fingerprint that triggered it and a chain of
// fingerprints used for the cross-worker tie-break. For Always and
// Sometimes the chain runs from an initial state to FP; for Eventually it
// is the unsatisfied lasso cycle found by walking forward from FP.
type Discovery struct {
	FP      fingerprint.Fingerprint
	PathFPs []fingerprint.Fingerprint
}

type trackedProperty[S any] struct {
	prop model.Property[S]

	mu        sync.Mutex
	discovery *Discovery
}

// Evaluator holds the live Property set for one Checker run and records
// discoveries as states are evaluated against each property's predicate.
// A is the Model's Action type, needed only for the Eventually lasso check.
type Evaluator[S any, A any] struct {
	props  []*trackedProperty[S]
	byName map[string]*trackedProperty[S]
}

// NewEvaluator validates property names are unique and returns an Evaluator
// tracking them. A duplicate name is a model.ConstructionError.
func NewEvaluator[S any, A any](props []model.Property[S]) (*Evaluator[S, A], error) {
	byName := make(map[string]*trackedProperty[S], len(props))
	e := &Evaluator[S, A]{byName: byName}
	for _, p := range props {
		if _, dup := byName[p.Name]; dup {
			return nil, &model.ConstructionError{Reason: fmt.Sprintf("duplicate property name %q", p.Name)}
		}
		tp := &trackedProperty[S]{prop: p}
		byName[p.Name] = tp
		e.props = append(e.props, tp)
	}
	return e, nil
}

// Names returns the evaluator's property names in construction order.
func (e *Evaluator[S, A]) Names() []string {
	names := make([]string, len(e.props))
	for i, tp := range e.props {
		names[i] = tp.prop.Name
	}
	return names
}

// Discovery returns the recorded discovery for name, if any.
func (e *Evaluator[S, A]) Discovery(name string) (Discovery, bool) {
	tp, ok := e.byName[name]
	if !ok {
		return Discovery{}, false
	}
	tp.mu.Lock()
	defer tp.mu.Unlock()
	if tp.discovery == nil {
		return Discovery{}, false
	}
	return *tp.discovery, true
}

// AllDiscovered reports whether every property being tracked has a
// recorded discovery (used by Checker's default FinishWhen).
func (e *Evaluator[S, A]) AllDiscovered() bool {
	for _, tp := range e.props {
		tp.mu.Lock()
		found := tp.discovery != nil
		tp.mu.Unlock()
		if !found {
			return false
		}
	}
	return true
}

// Evaluate runs every Always/Sometimes property's predicate against state,
// recording discoveries, and returns the names of properties that
// transitioned from undiscovered to discovered by this call. pathFPs is the
// fingerprint chain from an initial state to fp (inclusive), used for the
// discovery tie-break. Eventually properties are not evaluated here; see
// CheckEventually.
func (e *Evaluator[S, A]) Evaluate(state S, fp fingerprint.Fingerprint, pathFPs []fingerprint.Fingerprint) ([]string, error) {
	var newly []string
	for _, tp := range e.props {
		switch tp.prop.Kind {
		case model.Always:
			ok, err := e.invoke(tp, state)
			if err != nil {
				return newly, err
			}
			if !ok && e.considerDiscovery(tp, fp, pathFPs) {
				newly = append(newly, tp.prop.Name)
			}
		case model.Sometimes:
			ok, err := e.invoke(tp, state)
			if err != nil {
				return newly, err
			}
			if ok && e.considerDiscovery(tp, fp, pathFPs) {
				newly = append(newly, tp.prop.Name)
			}
		case model.Eventually:
			// Handled by CheckEventually.
		}
	}
	return newly, nil
}

func (e *Evaluator[S, A]) invoke(tp *trackedProperty[S], state S) (result bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &model.PropertyPanic{PropertyName: tp.prop.Name, State: state, Recovered: r}
		}
	}()
	return tp.prop.Predicate(state), nil
}

// considerDiscovery records (state, fp) as tp's discovery if tp has none
// yet, or if pathFPs wins the deterministic tie-break against the existing
// discovery: shorter path wins; equal-length paths compare lexicographically
// by fingerprint, smallest wins. It reports whether this was the property's
// first-ever discovery (as opposed to a tie-break replacement of an
// existing one).
func (e *Evaluator[S, A]) considerDiscovery(tp *trackedProperty[S], fp fingerprint.Fingerprint, pathFPs []fingerprint.Fingerprint) bool {
	candidate := append([]fingerprint.Fingerprint(nil), pathFPs...)

	tp.mu.Lock()
	defer tp.mu.Unlock()
	wasNil := tp.discovery == nil
	if wasNil || isBetterPath(candidate, tp.discovery.PathFPs) {
		tp.discovery = &Discovery{FP: fp, PathFPs: candidate}
	}
	return wasNil
}

func isBetterPath(a, b []fingerprint.Fingerprint) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false // equal: not strictly better, keep existing
}

// expansion abstracts the part of model.Model that CheckEventually needs,
// so it can be called without depending on the Checker's specific Model
// value (only its Actions/NextState behavior).
type expansion[S any, A any] interface {
	Actions(state S) []A
	NextState(state S, action A) (S, bool)
}

// CheckEventually performs a bounded local depth-first walk forward from
// (state, fp), looking for a lasso — a path that revisits a fingerprint it
// has already seen on this same walk — in which no state on the cycle
// satisfies the Eventually property's predicate. Per the documented
// incompleteness of this check (spec §4.6/§9), revisits are tracked only
// along this single local walk, not globally across the whole reachable
// set: false negatives are possible, false positives are not.
func (e *Evaluator[S, A]) CheckEventually(m expansion[S, A], state S, fp fingerprint.Fingerprint, maxDepth int) ([]string, error) {
	var newly []string
	for _, tp := range e.props {
		if tp.prop.Kind != model.Eventually {
			continue
		}
		tp.mu.Lock()
		done := tp.discovery != nil
		tp.mu.Unlock()
		if done {
			continue
		}
		if cyclePath, found := findUnsatisfiedLasso(m, state, tp.prop.Predicate, maxDepth); found {
			if e.considerDiscovery(tp, fp, cyclePath) {
				newly = append(newly, tp.prop.Name)
			}
		}
	}
	return newly, nil
}

// findUnsatisfiedLasso walks forward from start taking the first action at
// each step (a single deterministic path through the local walk, not a
// branching search — intentionally cheap since this runs on every
// newly-discovered state). It stops at the first fingerprint repeat and
// reports the repeat as a counterexample iff no state visited since the
// repeated fingerprint's first occurrence satisfies pred.
func findUnsatisfiedLasso[S any, A any](m expansion[S, A], start S, pred func(S) bool, maxDepth int) ([]fingerprint.Fingerprint, bool) {
	seen := make(map[fingerprint.Fingerprint]int)
	var pathFPs []fingerprint.Fingerprint
	satisfiedSince := make(map[int]bool)

	state := start
	for step := 0; step <= maxDepth; step++ {
		fp, err := fingerprint.Of(state)
		if err != nil {
			return nil, false
		}
		if firstIdx, ok := seen[fp]; ok {
			// Closed a cycle from firstIdx..step. Check whether pred held
			// anywhere on it.
			for i := firstIdx; i <= step; i++ {
				if satisfiedSince[i] {
					return nil, false
				}
			}
			return append([]fingerprint.Fingerprint(nil), pathFPs[firstIdx:]...), true
		}
		seen[fp] = step
		pathFPs = append(pathFPs, fp)
		if pred(state) {
			satisfiedSince[step] = true
		}

		actions := m.Actions(state)
		var next S
		var advanced bool
		for _, a := range actions {
			if ns, ok := m.NextState(state, a); ok {
				next = ns
				advanced = true
				break
			}
		}
		if !advanced {
			return nil, false // terminal state, no lasso to find
		}
		state = next
	}
	return nil, false
}
