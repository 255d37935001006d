package consistency

import (
	"fmt"
	"sort"
)

// Tester checks a recorded History against the sequential register spec
// under some consistency model, returning a witness serialization when the
// history is consistent.
type Tester interface {
	Check(h History) (bool, []int)
}

// Linearizability requires the witness serialization to respect real time:
// if a completed operation's return preceded another's invocation, the
// first must appear before the second in the witness.
type Linearizability struct{}

func (Linearizability) Check(h History) (bool, []int) {
	return search(h, true)
}

// SequentialConsistency drops the real-time constraint: operations only
// need to respect each client's own program order, and may be reordered
// across clients freely as long as some global serialization of the
// register spec exists.
type SequentialConsistency struct{}

func (SequentialConsistency) Check(h History) (bool, []int) {
	return search(h, false)
}

// search runs the Wing-Gong backtracking algorithm: at each step, try
// every client whose next unused operation (in program order) is a legal
// next step of the sequential register spec from the current value, and
// recurse. A memo of (value, per-client cursor) tuples known to be
// dead ends prunes repeated work.
func search(h History, respectRealTime bool) (bool, []int) {
	byClient, order := completedByClient(h)

	cursors := make(map[ClientID]int, len(byClient))
	for _, c := range order {
		cursors[c] = 0
	}

	memo := make(map[string]bool)
	var witness []int

	ok := step(h, byClient, order, cursors, 0, respectRealTime, memo, &witness)
	if !ok {
		return false, nil
	}
	return true, witness
}

// completedByClient groups the indices of non-pending records by client,
// preserving each client's original (program) order, and returns the
// sorted list of client IDs for deterministic iteration.
func completedByClient(h History) (map[ClientID][]int, []ClientID) {
	byClient := make(map[ClientID][]int)
	for i, r := range h.Records {
		if r.Pending {
			continue
		}
		byClient[r.Client] = append(byClient[r.Client], i)
	}
	order := make([]ClientID, 0, len(byClient))
	for c := range byClient {
		order = append(order, c)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	return byClient, order
}

// step tries to extend a partial serialization of length `done` by one
// more operation. value is the register's current value under the
// serialization chosen so far.
func step(
	h History,
	byClient map[ClientID][]int,
	clients []ClientID,
	cursors map[ClientID]int,
	value int,
	respectRealTime bool,
	memo map[string]bool,
	witness *[]int,
) bool {
	total := 0
	for _, c := range clients {
		total += len(byClient[c])
	}
	if len(*witness) == total {
		return true
	}

	key := memoKey(clients, cursors, value)
	if bad, known := memo[key]; known && bad {
		return false
	}

	for _, c := range clients {
		idxs := byClient[c]
		cur := cursors[c]
		if cur >= len(idxs) {
			continue
		}
		candidate := idxs[cur]
		rec := h.Records[candidate]

		if respectRealTime && violatesRealTime(h, byClient, clients, cursors, candidate) {
			continue
		}

		nextValue, valid := applySpec(value, rec.Op)
		if !valid {
			continue
		}

		cursors[c] = cur + 1
		*witness = append(*witness, candidate)

		if step(h, byClient, clients, cursors, nextValue, respectRealTime, memo, witness) {
			return true
		}

		*witness = (*witness)[:len(*witness)-1]
		cursors[c] = cur
	}

	memo[key] = true
	return false
}

// violatesRealTime reports whether candidate cannot legally be scheduled
// next because some other not-yet-used completed operation's return time
// precedes candidate's invocation time: that operation must precede
// candidate in any linearization, so candidate cannot jump ahead of it.
func violatesRealTime(
	h History,
	byClient map[ClientID][]int,
	clients []ClientID,
	cursors map[ClientID]int,
	candidate int,
) bool {
	inv := h.Records[candidate].InvTime
	for _, c := range clients {
		idxs := byClient[c]
		for i := cursors[c]; i < len(idxs); i++ {
			other := idxs[i]
			if other == candidate {
				continue
			}
			if h.Records[other].RetTime < inv {
				return true
			}
		}
	}
	return false
}

// applySpec is the sequential register spec: Put always succeeds and
// adopts its argument as the new value; Get succeeds only if its recorded
// return value matches the current value.
func applySpec(value int, op Op) (int, bool) {
	switch op.Kind {
	case Put:
		return op.Value, true
	case Get:
		return value, op.Value == value
	default:
		return value, false
	}
}

func memoKey(clients []ClientID, cursors map[ClientID]int, value int) string {
	key := fmt.Sprintf("v=%d", value)
	for _, c := range clients {
		key += fmt.Sprintf("|%d:%d", c, cursors[c])
	}
	return key
}
