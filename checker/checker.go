// Package checker implements the parallel breadth-first state-space
// exploration engine: it drains a Model's reachable states, deduplicates
// them by fingerprint, evaluates properties over each, and can reconstruct
// a witnessing path of actions from an initial state to any discovery.
package checker

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/luxfi/checker/fingerprint"
	"github.com/luxfi/checker/model"
	"github.com/luxfi/checker/property"
	"github.com/luxfi/checker/queue"
	"github.com/luxfi/checker/visited"
	"github.com/luxfi/log"
)

// Checker drives exhaustive (or bounded/timed) exploration of a Model.
// Construct with New, then either Run it to completion or drive it
// on-demand with Expand/Status.
type Checker[S any, A any] struct {
	m         model.Model[S, A]
	bounded   model.BoundedModel[S]
	display   model.DisplayModel[S, A]
	symmetric model.SymmetricModel[S]

	opts    Options
	logger  log.Logger
	metrics *metrics

	initial []S
	visited *visited.Set[A]
	queue   *queue.Queue[S, A]
	eval    *property.Evaluator[S, A]

	generated      atomic.Uint64
	boundaryPruned atomic.Uint64
	shutdown       atomic.Bool

	fatalMu  sync.Mutex
	fatalErr error

	recentPathMu sync.Mutex
	recentPath   []fingerprint.Fingerprint

	modelName string
}

// New constructs a Checker for m. It fails with a *model.ConstructionError
// if m has no initial states or declares duplicate property names.
func New[S any, A any](m model.Model[S, A], opts Options) (*Checker[S, A], error) {
	opts = opts.withDefaults()

	initial := m.InitialStates()
	if len(initial) == 0 {
		return nil, &model.ConstructionError{Reason: "model returned no initial states"}
	}

	eval, err := property.NewEvaluator[S, A](m.Properties())
	if err != nil {
		return nil, err
	}

	met, err := newMetrics(opts.Registerer)
	if err != nil {
		return nil, fmt.Errorf("checker: registering metrics: %w", err)
	}

	c := &Checker[S, A]{
		m:         m,
		opts:      opts,
		logger:    opts.Logger,
		metrics:   met,
		initial:   initial,
		visited:   visited.New[A](opts.ThreadCount),
		queue:     queue.New[S, A](opts.MaxDepth > 0),
		eval:      eval,
		modelName: fmt.Sprintf("%T", m),
	}
	if b, ok := m.(model.BoundedModel[S]); ok {
		c.bounded = b
	}
	if d, ok := m.(model.DisplayModel[S, A]); ok {
		c.display = d
	}
	if sy, ok := m.(model.SymmetricModel[S]); ok {
		c.symmetric = sy
	}
	return c, nil
}

// Run drains the state space to completion (subject to MaxDepth, Timeout,
// and FinishWhen) using Options.ThreadCount parallel workers. The returned
// error is non-nil only for a fatal condition (ConstructionError already
// surfaces from New; NondeterminismError, SerializationError, and
// PropertyPanic surface here).
func (c *Checker[S, A]) Run(ctx context.Context) (Outcome[S, A], error) {
	for i, s := range c.initial {
		c.queue.Push(queue.Entry[S, A]{State: s, Depth: 0, IsInitial: true, InitIndex: i})
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var timedOut atomic.Bool
	if c.opts.Timeout > 0 {
		timer := time.AfterFunc(c.opts.Timeout, func() {
			timedOut.Store(true)
			c.triggerShutdown()
		})
		defer timer.Stop()
	}

	watchDone := make(chan struct{})
	go func() {
		select {
		case <-runCtx.Done():
			if ctx.Err() != nil {
				c.triggerShutdown()
			}
		case <-watchDone:
		}
	}()

	var wg sync.WaitGroup
	wg.Add(c.opts.ThreadCount)
	for i := 0; i < c.opts.ThreadCount; i++ {
		go func() {
			defer wg.Done()
			c.worker()
		}()
	}
	wg.Wait()
	close(watchDone)
	// Every worker has returned, so the search is over however it ended;
	// Status reports Done from here on.
	c.shutdown.Store(true)

	outcome := c.compileOutcome()
	switch {
	case outcome.Result == Fail:
		// A genuine violation takes priority over how the search ended.
	case timedOut.Load():
		outcome.Result = Incomplete
		outcome.IncompleteReason = "timeout"
	case ctx.Err() != nil:
		outcome.Result = Incomplete
		outcome.IncompleteReason = ctx.Err().Error()
	}

	c.fatalMu.Lock()
	fatal := c.fatalErr
	c.fatalMu.Unlock()
	if fatal != nil {
		c.logger.Error("check aborted", "model", c.modelName, "error", fatal)
	} else {
		c.logger.Info("check finished", "model", c.modelName, "result", outcome.Result.String(),
			"generated", outcome.Counters.Generated, "unique", outcome.Counters.Unique)
	}
	return outcome, fatal
}

func (c *Checker[S, A]) triggerShutdown() {
	if c.shutdown.CompareAndSwap(false, true) {
		c.queue.Close()
	}
}

func (c *Checker[S, A]) recordFatal(err error) {
	c.fatalMu.Lock()
	if c.fatalErr == nil {
		c.fatalErr = err
	}
	c.fatalMu.Unlock()
	c.triggerShutdown()
}

func (c *Checker[S, A]) worker() {
	defer func() {
		if r := recover(); r != nil {
			c.recordFatal(fmt.Errorf("checker: worker panic: %v", r))
		}
	}()
	for {
		e, ok := c.queue.Pop()
		if !ok {
			return
		}
		func() {
			// Marked done even if processEntry panics, so the remaining
			// workers can drain the closed queue and exit.
			defer c.queue.TaskDone(e.Depth)
			c.processEntry(e)
		}()
	}
}

// processEntry implements one iteration of the §4.5 main loop.
func (c *Checker[S, A]) processEntry(e queue.Entry[S, A]) {
	if c.opts.MaxDepth > 0 && e.Depth > c.opts.MaxDepth {
		c.boundaryPruned.Add(1)
		c.metrics.incBoundaryPruned()
		return
	}

	state := e.State
	if c.symmetric != nil {
		state = c.symmetric.Representative(state)
	}
	if c.bounded != nil && !c.bounded.WithinBoundary(state) {
		c.boundaryPruned.Add(1)
		c.metrics.incBoundaryPruned()
		return
	}

	fp, err := fingerprint.Of(state)
	if err != nil {
		c.recordFatal(&model.SerializationError{Err: err})
		return
	}

	anc := visited.Ancestry[A]{Root: e.IsInitial, ParentFP: e.ParentFP, Action: e.Action, InitIndex: e.InitIndex}
	if !c.visited.InsertIfAbsent(fp, anc) {
		return // already explored
	}
	c.metrics.setUnique(float64(c.visited.Len()))

	pathFPs, pathErr := c.pathFingerprints(fp)
	if pathErr == nil {
		c.recentPathMu.Lock()
		c.recentPath = pathFPs
		c.recentPathMu.Unlock()
	}

	newlyAlwaysSometimes, err := c.eval.Evaluate(state, fp, pathFPs)
	if err != nil {
		c.recordFatal(err)
		return
	}
	for _, name := range newlyAlwaysSometimes {
		c.metrics.incDiscovery(name)
	}

	newlyEventually, err := c.eval.CheckEventually(c.m, state, fp, c.opts.EventuallyLassoDepth)
	if err != nil {
		c.recordFatal(err)
		return
	}
	for _, name := range newlyEventually {
		c.metrics.incDiscovery(name)
	}

	if c.shutdown.Load() {
		return
	}
	// AllDiscovered is vacuously true for a model with no declared
	// properties; such a model has nothing to stop early for, so it only
	// terminates by exhaustion, MaxDepth, Timeout, or ctx cancellation.
	hasProperties := len(c.eval.Names()) > 0
	if (hasProperties && c.eval.AllDiscovered()) || (c.opts.FinishWhen != nil && c.opts.FinishWhen(c.Status())) {
		c.triggerShutdown()
		return
	}

	c.expand(state, fp, e.Depth)
}

// expand enumerates actions from state, computes successors, and enqueues
// them; it also drives the nondeterminism probe of §4.4.
func (c *Checker[S, A]) expand(state S, fp fingerprint.Fingerprint, depth int) {
	actions := c.m.Actions(state)
	firstFPs := make([]fingerprint.Fingerprint, 0, len(actions))

	for _, a := range actions {
		next, ok := c.m.NextState(state, a)
		if !ok {
			continue // action ignored from this state
		}
		c.generated.Add(1)
		c.metrics.incGenerated()
		nfp, err := fingerprint.Of(next)
		if err != nil {
			c.recordFatal(&model.SerializationError{Err: err})
			return
		}
		firstFPs = append(firstFPs, nfp)
		c.queue.Push(queue.Entry[S, A]{State: next, Depth: depth + 1, ParentFP: fp, Action: a})
	}
	c.metrics.setQueueDepth(float64(c.queue.Len()))

	if n := c.opts.NondeterminismSampleEvery; n > 0 {
		if g := c.generated.Load(); g > 0 && g%uint64(n) == 0 {
			c.probeDeterminism(state, firstFPs)
		}
	}
}

// probeDeterminism re-expands state and compares successor fingerprints
// against firstFPs, per §4.4's nondeterminism detection.
func (c *Checker[S, A]) probeDeterminism(state S, firstFPs []fingerprint.Fingerprint) {
	actions := c.m.Actions(state)
	secondFPs := make([]fingerprint.Fingerprint, 0, len(actions))
	for _, a := range actions {
		next, ok := c.m.NextState(state, a)
		if !ok {
			continue
		}
		nfp, err := fingerprint.Of(next)
		if err != nil {
			c.recordFatal(&model.SerializationError{Err: err})
			return
		}
		secondFPs = append(secondFPs, nfp)
	}
	if !sameMultiset(firstFPs, secondFPs) {
		c.recordFatal(&model.NondeterminismError{
			State:    state,
			Expected: toUint64s(firstFPs),
			Actual:   toUint64s(secondFPs),
		})
	}
}

func toUint64s(fps []fingerprint.Fingerprint) []uint64 {
	out := make([]uint64, len(fps))
	for i, fp := range fps {
		out[i] = uint64(fp)
	}
	return out
}

func sameMultiset(a, b []fingerprint.Fingerprint) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]fingerprint.Fingerprint(nil), a...)
	bs := append([]fingerprint.Fingerprint(nil), b...)
	sort.Slice(as, func(i, j int) bool { return as[i] < as[j] })
	sort.Slice(bs, func(i, j int) bool { return bs[i] < bs[j] })
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

// pathFingerprints walks ancestry backward from fp to an initial state's
// fingerprint, returning the chain from initial to fp inclusive.
func (c *Checker[S, A]) pathFingerprints(fp fingerprint.Fingerprint) ([]fingerprint.Fingerprint, error) {
	var chain []fingerprint.Fingerprint
	cur := fp
	for {
		anc, ok := c.visited.Ancestry(cur)
		if !ok {
			return nil, fmt.Errorf("checker: no ancestry recorded for fingerprint %d", cur)
		}
		chain = append(chain, cur)
		if anc.Root {
			break
		}
		cur = anc.ParentFP
	}
	// chain was built backward (fp -> ... -> root); reverse it.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// PathTo reconstructs the witness path to fp: the sequence of states from
// an initial state to fp, replaying the recovered actions forward through
// Model.NextState (states are not retained after expansion, only
// ancestry, per §5). Returns an error if fp was never recorded or the
// chain does not actually replay (a VisitedSet consistency bug, or a
// non-deterministic Model not caught by the sampling probe).
func (c *Checker[S, A]) PathTo(fp fingerprint.Fingerprint) ([]PathStep[S, A], error) {
	anc, ok := c.visited.Ancestry(fp)
	if !ok {
		return nil, fmt.Errorf("checker: fingerprint %d was never visited", fp)
	}

	// Collect the action taken at each step from fp back to the root.
	type link struct{ action A }
	var links []link
	cur := fp
	curAnc := anc
	for {
		if curAnc.Root {
			break
		}
		links = append(links, link{action: curAnc.Action})
		cur = curAnc.ParentFP
		var ok bool
		curAnc, ok = c.visited.Ancestry(cur)
		if !ok {
			return nil, fmt.Errorf("checker: broken ancestry chain at fingerprint %d", cur)
		}
	}
	// links is innermost-first (closest to fp); reverse for forward replay.
	for i, j := 0, len(links)-1; i < j; i, j = i+1, j-1 {
		links[i], links[j] = links[j], links[i]
	}

	if curAnc.InitIndex < 0 || curAnc.InitIndex >= len(c.initial) {
		return nil, fmt.Errorf("checker: invalid initial-state index %d", curAnc.InitIndex)
	}
	state := c.initial[curAnc.InitIndex]
	path := []PathStep[S, A]{{State: state, Action: nil}}
	for _, l := range links {
		action := l.action
		next, ok := c.m.NextState(state, action)
		if !ok {
			return nil, fmt.Errorf("checker: recorded action did not replay from state %#v", state)
		}
		path = append(path, PathStep[S, A]{State: next, Action: &action})
		state = next
	}
	return path, nil
}

// Expansion is one action's outcome from a state, for the §4.5/§6 on-demand
// explorer view: either a successor state and its fingerprint, or Ignored
// if NextState declined the action.
type Expansion[S any, A any] struct {
	Action  A
	Next    S
	FP      fingerprint.Fingerprint
	Ignored bool
}

// Expand returns every action's outcome from the state reached by fp (found
// via PathTo's replay), for the interactive explorer's path-addressed view.
// It is read-only: no new fingerprint is inserted into the VisitedSet, so
// browsing never perturbs the counters a concurrent Run would report.
func (c *Checker[S, A]) Expand(fp fingerprint.Fingerprint) ([]Expansion[S, A], error) {
	path, err := c.PathTo(fp)
	if err != nil {
		return nil, err
	}
	state := path[len(path)-1].State

	actions := c.m.Actions(state)
	out := make([]Expansion[S, A], 0, len(actions))
	for _, a := range actions {
		next, ok := c.m.NextState(state, a)
		if !ok {
			out = append(out, Expansion[S, A]{Action: a, Ignored: true})
			continue
		}
		nfp, err := fingerprint.Of(next)
		if err != nil {
			return nil, &model.SerializationError{Err: err}
		}
		out = append(out, Expansion[S, A]{Action: a, Next: next, FP: nfp})
	}
	return out, nil
}

// Status returns a live snapshot suitable for the §6 `/.status` view.
func (c *Checker[S, A]) Status() Status {
	c.recentPathMu.Lock()
	recent := append([]fingerprint.Fingerprint(nil), c.recentPath...)
	c.recentPathMu.Unlock()

	var pending []string
	for _, name := range c.eval.Names() {
		if _, found := c.eval.Discovery(name); !found {
			pending = append(pending, name)
		}
	}

	return Status{
		Done:              c.shutdown.Load() && c.queue.Len() == 0,
		StateCount:        c.generated.Load(),
		UniqueStateCount:  uint64(c.visited.Len()),
		MaxDepth:          c.opts.MaxDepth,
		ModelName:         c.modelName,
		RecentPathFPs:     recent,
		PropertiesPending: pending,
	}
}

// Visited exposes the underlying dedup set's size, per §4.2's len/unique_len
// split (Generated is tracked separately on Counters).
func (c *Checker[S, A]) Visited() int { return c.visited.Len() }

// DisplayAction renders action's UI label via the model's optional
// DisplayModel capability, falling back to fmt's default verb when the
// model does not implement it.
func (c *Checker[S, A]) DisplayAction(action A, state S) string {
	if c.display != nil {
		return c.display.DisplayAction(action, state)
	}
	return fmt.Sprintf("%v", action)
}

// PropertyStatus reports each property's expectation, name, and current
// discovery (if any has been made so far), safe to call at any time —
// including concurrently with a running Run — for the §6 live `/.status`
// and `/.states` explorer views.
func (c *Checker[S, A]) PropertyStatus() []PropertyReport[S, A] {
	reports := make([]PropertyReport[S, A], 0, len(c.m.Properties()))
	for _, p := range c.m.Properties() {
		d, found := c.eval.Discovery(p.Name)
		report := PropertyReport[S, A]{Kind: p.Kind, Name: p.Name}

		switch p.Kind {
		case model.Always, model.Eventually:
			// A discovery here is a counterexample: the property is
			// violated.
			report.Satisfied = !found
		case model.Sometimes:
			// A discovery here is the witness the property requires.
			report.Satisfied = found
		}
		if found {
			if path, err := c.PathTo(d.FP); err == nil {
				report.Path = path
				report.hasPath = true
			}
		}
		reports = append(reports, report)
	}
	return reports
}

func (c *Checker[S, A]) compileOutcome() Outcome[S, A] {
	reports := c.PropertyStatus()

	result := Pass
	for _, report := range reports {
		if !report.Satisfied {
			result = Fail
			break
		}
	}

	return Outcome[S, A]{
		Result:     result,
		Properties: reports,
		Counters: Counters{
			Generated:      c.generated.Load(),
			Unique:         uint64(c.visited.Len()),
			BoundaryPruned: c.boundaryPruned.Load(),
		},
	}
}
