package consistency_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/checker/consistency"
)

func complete(h consistency.History, client consistency.ClientID, op consistency.Op, inv, ret int) consistency.History {
	h, idx := h.Invoke(client, op, inv)
	return h.Return(idx, ret, op.Value)
}

func TestLinearizableSingleClientHistoryPasses(t *testing.T) {
	var h consistency.History
	h = complete(h, 0, consistency.Op{Kind: consistency.Put, Value: 1}, 0, 1)
	h = complete(h, 0, consistency.Op{Kind: consistency.Get, Value: 1}, 2, 3)

	ok, witness := (consistency.Linearizability{}).Check(h)
	require.True(t, ok)
	require.Equal(t, []int{0, 1}, witness)
}

func TestLinearizableRejectsStaleReadAfterCompletedWrite(t *testing.T) {
	var h consistency.History
	// A's Put(1) completes entirely before B's Get is invoked, yet B
	// observes the old value 0: real time forces Put before Get, but no
	// serialization respecting that order satisfies the register spec.
	h = complete(h, 0, consistency.Op{Kind: consistency.Put, Value: 1}, 0, 1)
	h = complete(h, 1, consistency.Op{Kind: consistency.Get, Value: 0}, 2, 3)

	ok, _ := (consistency.Linearizability{}).Check(h)
	require.False(t, ok)
}

func TestSequentialConsistencyAcceptsReorderAcrossClients(t *testing.T) {
	var h consistency.History
	h = complete(h, 0, consistency.Op{Kind: consistency.Put, Value: 1}, 0, 1)
	h = complete(h, 1, consistency.Op{Kind: consistency.Get, Value: 0}, 2, 3)

	ok, witness := (consistency.SequentialConsistency{}).Check(h)
	require.True(t, ok)
	require.Equal(t, []int{1, 0}, witness)
}

func TestProgramOrderIsNeverViolatedEvenUnderSequentialConsistency(t *testing.T) {
	var h consistency.History
	// Single client: Get before Put in its own program order can never be
	// satisfied (Get would have to observe 1 before the Put that sets it),
	// regardless of consistency model.
	h, idx := h.Invoke(0, consistency.Op{Kind: consistency.Get, Value: 1}, 0)
	h = h.Return(idx, 1, 1)
	h = complete(h, 0, consistency.Op{Kind: consistency.Put, Value: 1}, 2, 3)

	ok, _ := (consistency.SequentialConsistency{}).Check(h)
	require.False(t, ok)
}

func TestPendingOperationsAreExcludedFromTheSerialization(t *testing.T) {
	var h consistency.History
	h = complete(h, 0, consistency.Op{Kind: consistency.Put, Value: 1}, 0, 1)
	h, _ = h.Invoke(1, consistency.Op{Kind: consistency.Get, Value: 99}, 2)

	ok, witness := (consistency.Linearizability{}).Check(h)
	require.True(t, ok)
	require.Equal(t, []int{0}, witness)
}
