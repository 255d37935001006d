package consistency

import (
	"github.com/luxfi/checker/actor"
	"github.com/luxfi/checker/model"
)

// AsProperty wraps a Tester as an Always property over an ActorModelState
// whose History type is H, suitable for dropping straight into
// actor.Config.Properties. It fails the first time the recorded history
// has no legal serialization under the tester's consistency model.
//
// historyOf extracts the plain consistency.History from H; when the
// recorded history needs no extra bookkeeping, H is History itself and
// historyOf is the identity function. Protocols that must bridge an
// operation's invocation to a later, separately-observed completion (see
// examples.ABDHistory) carry that bookkeeping alongside History in their
// own H and supply an accessor here.
func AsProperty[S any, M any, H any](name string, tester Tester, historyOf func(H) History) model.Property[actor.ActorModelState[S, M, H]] {
	return model.Property[actor.ActorModelState[S, M, H]]{
		Kind: model.Always,
		Name: name,
		Predicate: func(s actor.ActorModelState[S, M, H]) bool {
			ok, _ := tester.Check(historyOf(s.History))
			return ok
		},
	}
}

// RecordInvocation is a convenience RecordHook-shaped builder: most actor
// protocols record an operation's invocation and return as two separate
// network events (a request envelope and a response envelope), so the
// caller typically writes small closures around History.Invoke/Return
// rather than using this directly. It is provided for the common case of
// treating a single envelope delivery as an atomic invoke-then-return,
// useful for actors that answer synchronously within one message.
func RecordInvocation[M any](client ClientID, op func(M) Op, invTime func(M) int) actor.RecordHook[M, History] {
	return func(history History, env actor.Envelope[M]) History {
		o := op(env.Msg)
		history, idx := history.Invoke(client, o, invTime(env.Msg))
		return history.Return(idx, invTime(env.Msg), o.Value)
	}
}
