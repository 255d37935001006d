package actor

// Discipline selects which envelopes are deliverable and whether delivery
// consumes them, per the three network semantics.
type Discipline int

const (
	// Ordered keeps, conceptually, a per-(src,dst) FIFO queue: only the
	// oldest still-pending envelope for a given ordered pair is
	// deliverable. Implies lossless, non-duplicating, in-order delivery
	// and yields the smallest state space of the three disciplines.
	Ordered Discipline = iota

	// UnorderedNonDuplicating treats envelopes as a set: any pending
	// envelope is deliverable, and delivery removes it.
	UnorderedNonDuplicating

	// UnorderedDuplicating treats envelopes as a multiset: any pending
	// envelope is deliverable, but delivery does not remove it, modeling
	// unbounded redelivery. The resulting unbounded branching is tamed by
	// state deduplication: once redelivery stops changing the reachable
	// ActorModelState, the search stops generating anything new from it.
	UnorderedDuplicating
)

func (d Discipline) String() string {
	switch d {
	case Ordered:
		return "Ordered"
	case UnorderedNonDuplicating:
		return "UnorderedNonDuplicating"
	case UnorderedDuplicating:
		return "UnorderedDuplicating"
	default:
		return "Discipline(?)"
	}
}

// NetworkState is the message-in-flight component of an ActorModelState.
// It is a plain value (a discipline tag plus a slice of envelopes) so it
// fingerprints and copies the same way any other model state does; all
// mutating operations return a new NetworkState rather than mutating the
// receiver.
type NetworkState[M any] struct {
	Discipline Discipline
	Lossy      bool
	Envelopes  []Envelope[M]
}

// NewNetwork returns an empty network under the given discipline.
func NewNetwork[M any](d Discipline, lossy bool) NetworkState[M] {
	return NetworkState[M]{Discipline: d, Lossy: lossy}
}

// Send returns a NetworkState with env appended.
func (n NetworkState[M]) Send(env Envelope[M]) NetworkState[M] {
	next := make([]Envelope[M], len(n.Envelopes), len(n.Envelopes)+1)
	copy(next, n.Envelopes)
	next = append(next, env)
	n.Envelopes = next
	return n
}

// DeliverableIndices returns the envelope indices eligible for a Deliver
// action, per the active discipline.
func (n NetworkState[M]) DeliverableIndices() []int {
	switch n.Discipline {
	case Ordered:
		seen := make(map[[2]ActorID]bool)
		var idxs []int
		for i, e := range n.Envelopes {
			key := [2]ActorID{e.Src, e.Dst}
			if seen[key] {
				continue
			}
			seen[key] = true
			idxs = append(idxs, i)
		}
		return idxs
	default: // UnorderedNonDuplicating, UnorderedDuplicating
		idxs := make([]int, len(n.Envelopes))
		for i := range n.Envelopes {
			idxs[i] = i
		}
		return idxs
	}
}

// Deliver returns the envelope at idx and the resulting NetworkState:
// consumed (removed) under Ordered and UnorderedNonDuplicating, retained
// under UnorderedDuplicating.
func (n NetworkState[M]) Deliver(idx int) (Envelope[M], NetworkState[M]) {
	env := n.Envelopes[idx]
	if n.Discipline == UnorderedDuplicating {
		return env, n
	}
	n.Envelopes = removeAt(n.Envelopes, idx)
	return env, n
}

// Drop removes the envelope at idx unconditionally; legal only when Lossy.
func (n NetworkState[M]) Drop(idx int) (Envelope[M], NetworkState[M]) {
	env := n.Envelopes[idx]
	n.Envelopes = removeAt(n.Envelopes, idx)
	return env, n
}

func removeAt[M any](envs []Envelope[M], idx int) []Envelope[M] {
	next := make([]Envelope[M], 0, len(envs)-1)
	next = append(next, envs[:idx]...)
	next = append(next, envs[idx+1:]...)
	return next
}
