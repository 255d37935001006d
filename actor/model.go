package actor

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"

	"github.com/luxfi/checker/model"
)

// ActorModelState is the composite state of an actor system: per-actor
// states, the in-flight network, opaque history for a consistency tester,
// per-actor pending timers, and a crashed bit per actor. It is itself a
// valid model.Model state: fully value-typed and never mutated in place.
type ActorModelState[S any, M any, H any] struct {
	Actors  []S
	Network NetworkState[M]
	History H
	Timers  []map[string]bool
	Crashed *bitset.BitSet
}

func (s ActorModelState[S, M, H]) clone() ActorModelState[S, M, H] {
	actors := make([]S, len(s.Actors))
	copy(actors, s.Actors)
	timers := make([]map[string]bool, len(s.Timers))
	copy(timers, s.Timers)
	return ActorModelState[S, M, H]{
		Actors:  actors,
		Network: s.Network,
		History: s.History,
		Timers:  timers,
		Crashed: s.Crashed.Clone(),
	}
}

// ActorActionKind discriminates ActorAction variants.
type ActorActionKind int

const (
	Deliver ActorActionKind = iota
	Timeout
	Crash
	Restart
	Drop
)

// ActorAction is the Action type for an ActorModel. Deliver and Drop refer
// to a network envelope by index rather than by value, so the action
// itself stays small and fingerprints cheaply regardless of message size.
type ActorAction struct {
	Kind          ActorActionKind
	Actor         ActorID
	EnvelopeIndex int
	Timer         string
}

func (a ActorAction) String() string {
	switch a.Kind {
	case Deliver:
		return fmt.Sprintf("Deliver(env=%d)", a.EnvelopeIndex)
	case Timeout:
		return fmt.Sprintf("Timeout(actor=%d, timer=%q)", a.Actor, a.Timer)
	case Crash:
		return fmt.Sprintf("Crash(actor=%d)", a.Actor)
	case Restart:
		return fmt.Sprintf("Restart(actor=%d)", a.Actor)
	case Drop:
		return fmt.Sprintf("Drop(env=%d)", a.EnvelopeIndex)
	default:
		return "ActorAction(?)"
	}
}

// PersistentStore is the optional write-through view of actor state that
// survives a Crash action, per §6's "persisted state". A ActorModel built
// without one restarts crashed actors via OnStart, as if they had never
// run before.
type PersistentStore[S any] interface {
	Load(id ActorID) (S, bool)
	Store(id ActorID, state S)
}

// RecordHook observes a delivered or sent envelope and folds it into the
// opaque history value carried on ActorModelState; it drives a
// consistency.Tester plugged in as an Always property.
type RecordHook[M any, H any] func(history H, env Envelope[M]) H

// ActorModel specializes model.Model for a fixed set of actors over a
// configurable network discipline.
type ActorModel[S any, M any, H any] struct {
	behaviors    []Actor[S, M]
	discipline   Discipline
	lossy        bool
	allowCrashes bool
	store        PersistentStore[S]
	recordIn     RecordHook[M, H]
	recordOut    RecordHook[M, H]
	initHistory  H
	props        []model.Property[ActorModelState[S, M, H]]
	boundary     func(ActorModelState[S, M, H]) bool
}

// Config bundles the construction-time choices for an ActorModel.
type Config[S any, M any, H any] struct {
	Behaviors    []Actor[S, M]
	Discipline   Discipline
	Lossy        bool
	AllowCrashes bool
	Store        PersistentStore[S] // optional
	RecordIn     RecordHook[M, H]   // optional
	RecordOut    RecordHook[M, H]   // optional
	InitHistory  H
	Properties   []model.Property[ActorModelState[S, M, H]]
	WithinBoundary func(ActorModelState[S, M, H]) bool // optional
}

// New constructs an ActorModel. At least one behavior and one of the three
// defined Disciplines are required; anything else is a
// *model.ConstructionError.
func New[S any, M any, H any](cfg Config[S, M, H]) (*ActorModel[S, M, H], error) {
	if len(cfg.Behaviors) == 0 {
		return nil, &model.ConstructionError{Reason: "actor model requires at least one actor"}
	}
	if cfg.Discipline < Ordered || cfg.Discipline > UnorderedDuplicating {
		return nil, &model.ConstructionError{Reason: fmt.Sprintf("invalid network discipline %d", int(cfg.Discipline))}
	}
	return &ActorModel[S, M, H]{
		behaviors:    cfg.Behaviors,
		discipline:   cfg.Discipline,
		lossy:        cfg.Lossy,
		allowCrashes: cfg.AllowCrashes,
		store:        cfg.Store,
		recordIn:     cfg.RecordIn,
		recordOut:    cfg.RecordOut,
		initHistory:  cfg.InitHistory,
		props:        cfg.Properties,
		boundary:     cfg.WithinBoundary,
	}, nil
}

// InitialStates implements model.Model: a single state where every actor
// has run OnStart and the network is empty.
func (m *ActorModel[S, M, H]) InitialStates() []ActorModelState[S, M, H] {
	n := len(m.behaviors)
	actors := make([]S, n)
	timers := make([]map[string]bool, n)
	net := NewNetwork[M](m.discipline, m.lossy)

	for i, b := range m.behaviors {
		state, effects := b.OnStart(ActorID(i))
		actors[i] = state
		timers[i] = map[string]bool{}
		var patched map[string]bool
		actors[i], net, patched = applyEffects(ActorID(i), actors[i], effects, net, timers[i])
		timers[i] = patched
	}

	return []ActorModelState[S, M, H]{{
		Actors:  actors,
		Network: net,
		History: m.initHistory,
		Timers:  timers,
		Crashed: bitset.New(uint(n)),
	}}
}

// Actions implements model.Model.
func (m *ActorModel[S, M, H]) Actions(s ActorModelState[S, M, H]) []ActorAction {
	var actions []ActorAction

	for _, idx := range s.Network.DeliverableIndices() {
		env := s.Network.Envelopes[idx]
		if s.Crashed.Test(uint(env.Dst)) {
			continue
		}
		actions = append(actions, ActorAction{Kind: Deliver, EnvelopeIndex: idx})
		if s.Network.Lossy {
			actions = append(actions, ActorAction{Kind: Drop, EnvelopeIndex: idx})
		}
	}

	for i := range m.behaviors {
		id := ActorID(i)
		if s.Crashed.Test(uint(i)) {
			if m.allowCrashes {
				actions = append(actions, ActorAction{Kind: Restart, Actor: id})
			}
			continue
		}
		if m.allowCrashes {
			actions = append(actions, ActorAction{Kind: Crash, Actor: id})
		}
		for name, set := range s.Timers[i] {
			if set {
				actions = append(actions, ActorAction{Kind: Timeout, Actor: id, Timer: name})
			}
		}
	}

	return actions
}

// NextState implements model.Model.
func (m *ActorModel[S, M, H]) NextState(s ActorModelState[S, M, H], a ActorAction) (ActorModelState[S, M, H], bool) {
	next := s.clone()

	switch a.Kind {
	case Deliver:
		env, net := next.Network.Deliver(a.EnvelopeIndex)
		if next.Crashed.Test(uint(env.Dst)) {
			return next, false
		}
		next.Network = net
		if m.recordIn != nil {
			next.History = m.recordIn(next.History, env)
		}
		effects := m.behaviors[env.Dst].OnMessage(next.Actors[env.Dst], env.Src, env.Msg)
		next.Actors[env.Dst], next.Network, next.Timers[env.Dst] = applyEffects(
			env.Dst, next.Actors[env.Dst], effects, next.Network, next.Timers[env.Dst])
		if m.recordOut != nil {
			next.History = recordSends(m.recordOut, next.History, env.Dst, effects)
		}
		return next, true

	case Drop:
		if !next.Network.Lossy {
			return next, false
		}
		_, net := next.Network.Drop(a.EnvelopeIndex)
		next.Network = net
		return next, true

	case Timeout:
		id := a.Actor
		if next.Crashed.Test(uint(id)) || !next.Timers[id][a.Timer] {
			return next, false
		}
		timers := cloneTimerSet(next.Timers[id])
		delete(timers, a.Timer)
		next.Timers[id] = timers
		effects := m.behaviors[id].OnTimeout(next.Actors[id], a.Timer)
		next.Actors[id], next.Network, next.Timers[id] = applyEffects(
			id, next.Actors[id], effects, next.Network, next.Timers[id])
		if m.recordOut != nil {
			next.History = recordSends(m.recordOut, next.History, id, effects)
		}
		return next, true

	case Crash:
		if !m.allowCrashes || next.Crashed.Test(uint(a.Actor)) {
			return next, false
		}
		if m.store != nil {
			m.store.Store(a.Actor, next.Actors[a.Actor])
		}
		next.Crashed.Set(uint(a.Actor))
		return next, true

	case Restart:
		if !m.allowCrashes || !next.Crashed.Test(uint(a.Actor)) {
			return next, false
		}
		next.Crashed.Clear(uint(a.Actor))
		if m.store != nil {
			if saved, ok := m.store.Load(a.Actor); ok {
				next.Actors[a.Actor] = saved
				next.Timers[a.Actor] = map[string]bool{}
				return next, true
			}
		}
		state, effects := m.behaviors[a.Actor].OnStart(a.Actor)
		next.Actors[a.Actor] = state
		next.Timers[a.Actor] = map[string]bool{}
		next.Actors[a.Actor], next.Network, next.Timers[a.Actor] = applyEffects(
			a.Actor, next.Actors[a.Actor], effects, next.Network, next.Timers[a.Actor])
		return next, true
	}

	return next, false
}

// Properties implements model.Model.
func (m *ActorModel[S, M, H]) Properties() []model.Property[ActorModelState[S, M, H]] {
	return m.props
}

// WithinBoundary implements model.BoundedModel when configured.
func (m *ActorModel[S, M, H]) WithinBoundary(s ActorModelState[S, M, H]) bool {
	if m.boundary == nil {
		return true
	}
	return m.boundary(s)
}

func applyEffects[S any, M any](
	id ActorID, state S, effects []Effect[S, M], net NetworkState[M], timers map[string]bool,
) (S, NetworkState[M], map[string]bool) {
	for _, eff := range effects {
		switch eff.Kind {
		case Send:
			net = net.Send(Envelope[M]{Src: id, Dst: eff.Dst, Msg: eff.Msg})
		case SetTimer:
			timers = cloneTimerSet(timers)
			timers[eff.Timer] = true
		case CancelTimer:
			timers = cloneTimerSet(timers)
			delete(timers, eff.Timer)
		case UpdateState:
			state = eff.State
		}
	}
	return state, net, timers
}

func cloneTimerSet(in map[string]bool) map[string]bool {
	out := make(map[string]bool, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func recordSends[S any, M any, H any](hook RecordHook[M, H], history H, src ActorID, effects []Effect[S, M]) H {
	for _, eff := range effects {
		if eff.Kind == Send {
			history = hook(history, Envelope[M]{Src: src, Dst: eff.Dst, Msg: eff.Msg})
		}
	}
	return history
}
