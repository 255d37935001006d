// Package queue implements the state-space search's work list: an unbounded
// multi-producer/multi-consumer queue of (state, depth, parent, action)
// entries, drained in approximate BFS order.
package queue

import (
	"sync"

	"github.com/luxfi/checker/fingerprint"
)

// Entry is one unit of expansion work: a state reached at depth via action
// from the state fingerprinted as ParentFP.
type Entry[S any, A any] struct {
	State    S
	Depth    int
	ParentFP fingerprint.Fingerprint
	Action   A

	// IsInitial marks an entry produced from Model.InitialStates rather
	// than from expanding a predecessor; InitIndex then identifies which
	// initial state it is. ParentFP and Action are meaningless when set.
	IsInitial bool
	InitIndex int
}

// Queue is a depth-leveled work list. Entries at the lowest open depth are
// always preferred; when StrictBFS is set, entries at depth d+1 are held
// back until depth d has no queued entries and no worker is still
// processing a depth-d entry, keeping expansion depth monotonic per path.
// Without StrictBFS, the queue still prefers lower depths but does not wait
// on in-flight counts, which is cheaper and sufficient for unbounded
// exhaustive search.
type Queue[S any, A any] struct {
	mu        sync.Mutex
	cond      *sync.Cond
	strictBFS bool
	closed    bool

	levels map[int]*level[S, A]
	minOpen int // smallest depth with queued or in-flight entries; meaningful only when hasMin
	hasMin  bool

	// active counts workers currently holding a dequeued entry (not yet
	// marked done), used for queue-drained/idle termination detection.
	active int
}

type level[S any, A any] struct {
	items    []Entry[S, A]
	inFlight int
}

// New returns an empty Queue.
func New[S any, A any](strictBFS bool) *Queue[S, A] {
	q := &Queue[S, A]{
		strictBFS: strictBFS,
		levels:    make(map[int]*level[S, A]),
		hasMin:    false,
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *Queue[S, A]) levelAt(d int) *level[S, A] {
	l, ok := q.levels[d]
	if !ok {
		l = &level[S, A]{}
		q.levels[d] = l
	}
	return l
}

func (q *Queue[S, A]) updateMinLocked() {
	if q.hasMin {
		l, ok := q.levels[q.minOpen]
		if ok && (len(l.items) > 0 || l.inFlight > 0) {
			return // still current
		}
		if ok && len(l.items) == 0 && l.inFlight == 0 {
			delete(q.levels, q.minOpen)
		}
	}
	// Find the new minimum depth with any work.
	q.hasMin = false
	best := 0
	for d, l := range q.levels {
		if len(l.items) == 0 && l.inFlight == 0 {
			continue
		}
		if !q.hasMin || d < best {
			best = d
			q.hasMin = true
		}
	}
	q.minOpen = best
}

// Push enqueues e and wakes one waiting consumer.
func (q *Queue[S, A]) Push(e Entry[S, A]) {
	q.mu.Lock()
	l := q.levelAt(e.Depth)
	l.items = append(l.items, e)
	if !q.hasMin || e.Depth < q.minOpen {
		q.minOpen = e.Depth
		q.hasMin = true
	}
	q.mu.Unlock()
	q.cond.Signal()
}

// Pop blocks until an entry is available, the queue is closed and drained,
// or all work has drained and no worker is active (idle termination). It
// returns ok=false when there is nothing left to do.
func (q *Queue[S, A]) Pop() (e Entry[S, A], ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		q.updateMinLocked()

		if q.hasMin {
			d := q.minOpen
			if !q.strictBFS && len(q.levels[d].items) == 0 {
				// Depth-minOpen work is only in flight; take the shallowest
				// queued entry instead of waiting for it.
				found := false
				for ld, ll := range q.levels {
					if len(ll.items) > 0 && (!found || ld < d) {
						d, found = ld, true
					}
				}
			}
			l := q.levels[d]
			if q.strictBFS && l.inFlight > 0 && len(l.items) == 0 {
				// Depth-minOpen work is still being processed elsewhere and
				// none is queued; wait rather than jump ahead a depth.
			} else if len(l.items) > 0 {
				e = l.items[0]
				l.items = l.items[1:]
				l.inFlight++
				q.active++
				return e, true
			}
		}

		if q.closed && !q.hasMin && q.active == 0 {
			return e, false
		}
		if !q.hasMin && q.active == 0 && q.empty() {
			// Nothing queued, nothing in flight: the search is done even
			// without an explicit Close.
			return e, false
		}
		q.cond.Wait()
	}
}

func (q *Queue[S, A]) empty() bool {
	for _, l := range q.levels {
		if len(l.items) > 0 || l.inFlight > 0 {
			return false
		}
	}
	return true
}

// TaskDone marks the entry previously returned by Pop at depth as finished
// (either discarded or fully expanded). It must be called exactly once per
// successful Pop.
func (q *Queue[S, A]) TaskDone(depth int) {
	q.mu.Lock()
	if l, ok := q.levels[depth]; ok {
		l.inFlight--
	}
	q.active--
	q.mu.Unlock()
	q.cond.Broadcast()
}

// Close signals that no more entries will be pushed; blocked and future
// Pop calls return ok=false once the queue drains.
func (q *Queue[S, A]) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

// Len returns the number of entries currently queued (not counting
// in-flight entries already handed to a worker).
func (q *Queue[S, A]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, l := range q.levels {
		n += len(l.items)
	}
	return n
}
