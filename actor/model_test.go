package actor_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/checker/actor"
	"github.com/luxfi/checker/checker"
	"github.com/luxfi/checker/model"
)

type pingMsg struct{ N int }

type echoState struct {
	Sent     int
	Received int
}

// echoActor bounces a counter back and forth with its peer, incrementing
// on each hop, until the counter reaches limit.
type echoActor struct {
	Peer  actor.ActorID
	Limit int
	First bool
}

func (e echoActor) OnStart(actor.ActorID) (echoState, []actor.Effect[echoState, pingMsg]) {
	if e.First {
		return echoState{Sent: 1}, []actor.Effect[echoState, pingMsg]{
			actor.SendTo[echoState, pingMsg](e.Peer, pingMsg{N: 1}),
		}
	}
	return echoState{}, nil
}

func (e echoActor) OnMessage(s echoState, src actor.ActorID, m pingMsg) []actor.Effect[echoState, pingMsg] {
	s.Received++
	if m.N >= e.Limit {
		return []actor.Effect[echoState, pingMsg]{actor.UpdateStateTo[echoState, pingMsg](s)}
	}
	s.Sent++
	return []actor.Effect[echoState, pingMsg]{
		actor.UpdateStateTo[echoState, pingMsg](s),
		actor.SendTo[echoState, pingMsg](src, pingMsg{N: m.N + 1}),
	}
}

func (echoActor) OnTimeout(s echoState, timer string) []actor.Effect[echoState, pingMsg] {
	return nil
}

type noHistory = struct{}

func newEchoModel(t *testing.T, d actor.Discipline, lossy bool) *actor.ActorModel[echoState, pingMsg, noHistory] {
	t.Helper()
	props := []model.Property[actor.ActorModelState[echoState, pingMsg, noHistory]]{
		{
			Kind: model.Always,
			Name: "counts-non-negative",
			Predicate: func(s actor.ActorModelState[echoState, pingMsg, noHistory]) bool {
				for _, a := range s.Actors {
					if a.Sent < 0 || a.Received < 0 {
						return false
					}
				}
				return true
			},
		},
	}
	m, err := actor.New[echoState, pingMsg, noHistory](actor.Config[echoState, pingMsg, noHistory]{
		Behaviors:  []actor.Actor[echoState, pingMsg]{echoActor{Peer: 1, Limit: 4, First: true}, echoActor{Peer: 0, Limit: 4}},
		Discipline: d,
		Lossy:      lossy,
		Properties: props,
	})
	require.NoError(t, err)
	return m
}

func TestOrderedEchoReachesBoundedStateSpace(t *testing.T) {
	m := newEchoModel(t, actor.Ordered, false)
	c, err := checker.New[actor.ActorModelState[echoState, pingMsg, noHistory], actor.ActorAction](m, checker.Options{
		ThreadCount: 2,
		MaxDepth:    20,
	})
	require.NoError(t, err)

	outcome, runErr := c.Run(context.Background())
	require.NoError(t, runErr)
	require.Equal(t, checker.Pass, outcome.Result)
	require.Greater(t, outcome.Counters.Unique, uint64(0))
}

func TestUnorderedDuplicatingHasAtLeastAsManyStatesAsOrdered(t *testing.T) {
	// A small MaxDepth keeps this bounded: UnorderedDuplicating never
	// naturally drains (a delivered envelope stays deliverable), so only
	// the depth bound stops the search, and it does so quickly since
	// branching per state is small in this two-actor protocol.
	const depth = 6

	ordered := newEchoModel(t, actor.Ordered, false)
	oc, err := checker.New[actor.ActorModelState[echoState, pingMsg, noHistory], actor.ActorAction](ordered, checker.Options{
		ThreadCount: 2, MaxDepth: depth,
	})
	require.NoError(t, err)
	oOutcome, err := oc.Run(context.Background())
	require.NoError(t, err)

	dup := newEchoModel(t, actor.UnorderedDuplicating, false)
	dc, err := checker.New[actor.ActorModelState[echoState, pingMsg, noHistory], actor.ActorAction](dup, checker.Options{
		ThreadCount: 2, MaxDepth: depth,
	})
	require.NoError(t, err)
	dOutcome, err := dc.Run(context.Background())
	require.NoError(t, err)

	require.GreaterOrEqual(t, dOutcome.Counters.Unique, oOutcome.Counters.Unique)
}

func TestLossyNetworkPermitsDrop(t *testing.T) {
	m := newEchoModel(t, actor.UnorderedNonDuplicating, true)

	// The initial state has actor 0's first ping in flight; a lossy
	// network offers a Drop for it alongside the Deliver.
	var kinds []actor.ActorActionKind
	for _, a := range m.Actions(m.InitialStates()[0]) {
		kinds = append(kinds, a.Kind)
	}
	require.Contains(t, kinds, actor.Drop)

	c, err := checker.New[actor.ActorModelState[echoState, pingMsg, noHistory], actor.ActorAction](m, checker.Options{
		ThreadCount: 2, MaxDepth: 20,
	})
	require.NoError(t, err)

	outcome, runErr := c.Run(context.Background())
	require.NoError(t, runErr)
	require.Equal(t, checker.Pass, outcome.Result)
}
