package checker_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/checker/checker"
	"github.com/luxfi/checker/fingerprint"
	"github.com/luxfi/checker/model"
)

// binaryClock is the §8 two-state scenario: flip toggles between 0 and 1.
type binaryClock struct{}

func (binaryClock) InitialStates() []int   { return []int{1} }
func (binaryClock) Actions(int) []string   { return []string{"flip"} }
func (binaryClock) NextState(s int, a string) (int, bool) {
	return 1 - s, true
}
func (binaryClock) Properties() []model.Property[int] {
	return []model.Property[int]{
		{Kind: model.Always, Name: "bounded", Predicate: func(s int) bool { return s == 0 || s == 1 }},
	}
}

func TestBinaryClockPassesAndHasTwoUniqueStates(t *testing.T) {
	c, err := checker.New[int, string](binaryClock{}, checker.Options{ThreadCount: 2})
	require.NoError(t, err)

	outcome, runErr := c.Run(context.Background())
	require.NoError(t, runErr)
	require.Equal(t, checker.Pass, outcome.Result)
	require.EqualValues(t, 2, outcome.Counters.Unique)
	require.Len(t, outcome.Properties, 1)
	require.True(t, outcome.Properties[0].Satisfied)
}

func TestBinaryClockPathToRecoversFlipSequence(t *testing.T) {
	c, err := checker.New[int, string](binaryClock{}, checker.Options{ThreadCount: 1})
	require.NoError(t, err)

	_, runErr := c.Run(context.Background())
	require.NoError(t, runErr)

	zeroFP := fingerprint.MustOf(0)
	path, err := c.PathTo(zeroFP)
	require.NoError(t, err)
	require.Len(t, path, 2)

	require.Equal(t, 1, path[0].State)
	require.Nil(t, path[0].Action)

	require.Equal(t, 0, path[1].State)
	require.NotNil(t, path[1].Action)
	require.Equal(t, "flip", *path[1].Action)
}

// boundedCounter counts up from 0 forever unless pruned by WithinBoundary.
// Its Always property never fails, so the search only ends once the
// boundary prunes the first out-of-range state; this exercises boundary
// pruning without the run stopping early via AllDiscovered.
type boundedCounter struct{ limit int }

func (boundedCounter) InitialStates() []int { return []int{0} }
func (boundedCounter) Actions(int) []string { return []string{"inc"} }
func (boundedCounter) NextState(s int, a string) (int, bool) {
	return s + 1, true
}
func (c boundedCounter) WithinBoundary(s int) bool { return s <= c.limit }
func (c boundedCounter) Properties() []model.Property[int] {
	return []model.Property[int]{
		{Kind: model.Always, Name: "in-range", Predicate: func(s int) bool { return s >= 0 }},
	}
}

func TestBoundedCounterPrunesOutOfRangeStates(t *testing.T) {
	m := boundedCounter{limit: 5}
	c, err := checker.New[int, string](m, checker.Options{ThreadCount: 2})
	require.NoError(t, err)

	outcome, runErr := c.Run(context.Background())
	require.NoError(t, runErr)
	require.Equal(t, checker.Pass, outcome.Result)
	require.EqualValues(t, 6, outcome.Counters.Unique) // 0..5 inclusive
	require.EqualValues(t, 1, outcome.Counters.BoundaryPruned)
	require.True(t, outcome.Properties[0].Satisfied)
}

func TestNoInitialStatesIsConstructionError(t *testing.T) {
	m := emptyModel{}
	_, err := checker.New[int, string](m, checker.Options{})
	require.Error(t, err)
	var ce *model.ConstructionError
	require.ErrorAs(t, err, &ce)
}

type emptyModel struct{}

func (emptyModel) InitialStates() []int                 { return nil }
func (emptyModel) Actions(int) []string                 { return nil }
func (emptyModel) NextState(s int, a string) (int, bool) { return s, true }
func (emptyModel) Properties() []model.Property[int]    { return nil }

// flappingModel is not a pure function of its inputs: NextState alternates
// its answer on successive calls using a shared counter, so the
// nondeterminism probe must catch it.
type flappingModel struct {
	calls atomic.Int32
}

func (*flappingModel) InitialStates() []int { return []int{0} }
func (*flappingModel) Actions(int) []string { return []string{"step"} }
func (m *flappingModel) NextState(s int, a string) (int, bool) {
	if m.calls.Add(1)%2 == 1 {
		return s + 1, true
	}
	return s + 2, true
}
func (*flappingModel) Properties() []model.Property[int] { return nil }

func TestNondeterministicModelIsDetected(t *testing.T) {
	m := &flappingModel{}
	c, err := checker.New[int, string](m, checker.Options{
		ThreadCount:               1,
		NondeterminismSampleEvery: 1,
	})
	require.NoError(t, err)

	_, runErr := c.Run(context.Background())
	require.Error(t, runErr)
	var nde *model.NondeterminismError
	require.ErrorAs(t, runErr, &nde)
}

// duplicatePropsModel declares two properties with the same name, which
// must be rejected at construction.
type duplicatePropsModel struct{}

func (duplicatePropsModel) InitialStates() []int { return []int{0} }
func (duplicatePropsModel) Actions(int) []string { return nil }
func (duplicatePropsModel) NextState(s int, a string) (int, bool) {
	return s, true
}
func (duplicatePropsModel) Properties() []model.Property[int] {
	always := func(int) bool { return true }
	return []model.Property[int]{
		{Kind: model.Always, Name: "dup", Predicate: always},
		{Kind: model.Sometimes, Name: "dup", Predicate: always},
	}
}

func TestDuplicatePropertyNameIsConstructionError(t *testing.T) {
	_, err := checker.New[int, string](duplicatePropsModel{}, checker.Options{})
	require.Error(t, err)
	var ce *model.ConstructionError
	require.True(t, errors.As(err, &ce))
}

// ticker is an unbounded model (every natural number reachable) used to
// exercise Timeout-driven Incomplete results.
type ticker struct{}

func (ticker) InitialStates() []int { return []int{0} }
func (ticker) Actions(int) []string { return []string{"tick"} }
func (ticker) NextState(s int, a string) (int, bool) {
	return s + 1, true
}
func (ticker) Properties() []model.Property[int] { return nil }

func TestTimeoutYieldsIncompleteResult(t *testing.T) {
	c, err := checker.New[int, string](ticker{}, checker.Options{
		ThreadCount: 1,
		Timeout:     10 * time.Millisecond,
	})
	require.NoError(t, err)

	outcome, runErr := c.Run(context.Background())
	require.NoError(t, runErr)
	require.Equal(t, checker.Incomplete, outcome.Result)
	require.Equal(t, "timeout", outcome.IncompleteReason)
}

func TestContextCancellationYieldsIncompleteResult(t *testing.T) {
	c, err := checker.New[int, string](ticker{}, checker.Options{ThreadCount: 1})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	outcome, runErr := c.Run(ctx)
	require.NoError(t, runErr)
	require.Equal(t, checker.Incomplete, outcome.Result)
}

func TestStatusReflectsProgress(t *testing.T) {
	// After a completed run, Status reports the search as done, counts
	// the states 0..3, and lists properties that have no discovery.
	m := boundedCounter{limit: 3}
	c, err := checker.New[int, string](m, checker.Options{ThreadCount: 1})
	require.NoError(t, err)

	_, runErr := c.Run(context.Background())
	require.NoError(t, runErr)

	status := c.Status()
	require.True(t, status.Done)
	require.EqualValues(t, 4, status.UniqueStateCount)
	// The Always property here never fails, so it never resolves into a
	// discovery; it stays reported as pending even though the search is done.
	require.Equal(t, []string{"in-range"}, status.PropertiesPending)
}
